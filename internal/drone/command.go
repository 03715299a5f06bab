package drone

import "fmt"

// Command is a validated maneuver instruction for the actuator.
type Command interface {
	Name() string
}

// Takeoff climbs to the given altitude in meters.
type Takeoff struct {
	Altitude float64
}

func (Takeoff) Name() string { return "TAKEOFF" }

// Goto navigates to a waypoint.
type Goto struct {
	Lat float64
	Lon float64
	Alt float64
}

func (Goto) Name() string { return "GOTO" }

// Land descends and lands at the current position.
type Land struct{}

func (Land) Name() string { return "LAND" }

// OutcomeStatus classifies what happened to a submitted command.
type OutcomeStatus string

const (
	// StatusAcked means the actuator accepted the command.
	StatusAcked OutcomeStatus = "ACKED"
	// StatusRejected means the command never reached the actuator.
	StatusRejected OutcomeStatus = "REJECTED"
	// StatusFailed means the actuator received but refused the command.
	StatusFailed OutcomeStatus = "FAILED"
)

// Outcome is the terminal result of one command submission.
type Outcome struct {
	Status OutcomeStatus
	Err    error
}

// Acked reports whether the command succeeded.
func (o Outcome) Acked() bool { return o.Status == StatusAcked }

func (o Outcome) String() string {
	if o.Err != nil {
		return fmt.Sprintf("%s: %v", o.Status, o.Err)
	}
	return string(o.Status)
}
