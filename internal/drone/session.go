package drone

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"fieldrelay/internal/config"
	"fieldrelay/internal/logger"
	"fieldrelay/internal/metrics"
)

// State is the drone session connection state.
type State string

const (
	StateDisconnected State = "DISCONNECTED"
	StateConnecting   State = "CONNECTING"
	StateConnected    State = "CONNECTED"
)

var (
	// ErrNotConnected rejects commands submitted outside StateConnected.
	ErrNotConnected = errors.New("drone session not connected")

	// ErrInvalidParameters rejects commands that fail validation before
	// reaching the actuator.
	ErrInvalidParameters = errors.New("invalid command parameters")

	// ErrSessionClosed rejects commands after gateway shutdown.
	ErrSessionClosed = errors.New("drone session closed")
)

// Limits bound what commands the session will forward.
type Limits struct {
	AltitudeCeiling float64
	Geofence        config.Geofence
}

// Session is one drone's command channel. Commands are serialized: the
// command mutex is held across the sink call, so no two commands for
// the same vehicle are ever in flight together. Independent sessions do
// not share it and proceed in parallel. State is guarded separately so
// readouts never wait behind an in-flight sink call.
type Session struct {
	id      string
	sink    ActuatorSink
	limits  Limits
	timeout time.Duration
	logger  *logger.Logger
	metrics *metrics.Metrics

	cmdMu sync.Mutex // serializes Connect/Disconnect/Submit

	mu          sync.Mutex // guards the fields below
	state       State
	closed      bool
	lastOutcome *Outcome
}

// NewSession creates a session in StateDisconnected.
func NewSession(id string, sink ActuatorSink, limits Limits, timeout time.Duration, log *logger.Logger, m *metrics.Metrics) *Session {
	return &Session{
		id:      id,
		sink:    sink,
		limits:  limits,
		timeout: timeout,
		logger:  log,
		metrics: m,
		state:   StateDisconnected,
	}
}

// ID returns the session's actuator identifier.
func (s *Session) ID() string { return s.id }

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastOutcome returns the most recent command outcome, if any.
func (s *Session) LastOutcome() *Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastOutcome
}

// Connect establishes the actuator link. On failure the session returns
// to StateDisconnected.
func (s *Session) Connect(ctx context.Context) error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateConnecting
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.sink.Connect(ctx); err != nil {
		s.setState(StateDisconnected)
		s.logger.Error("Drone %s: connection failed: %v", s.id, err)
		return fmt.Errorf("connect actuator: %w", err)
	}

	s.setState(StateConnected)
	s.logger.Info("Drone %s: connected", s.id)
	return nil
}

// Disconnect tears the session down.
func (s *Session) Disconnect() error {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return nil
	}
	s.state = StateDisconnected
	s.mu.Unlock()

	s.logger.Info("Drone %s: disconnected", s.id)
	return s.sink.Close()
}

// Submit validates cmd and forwards it to the actuator. Commands are
// accepted only while connected; validation failures never reach the
// sink. The sink call is bounded by the session timeout.
func (s *Session) Submit(ctx context.Context, cmd Command) Outcome {
	s.cmdMu.Lock()
	defer s.cmdMu.Unlock()

	s.mu.Lock()
	closed, state := s.closed, s.state
	s.mu.Unlock()

	if closed {
		return s.record(Outcome{Status: StatusRejected, Err: ErrSessionClosed})
	}
	if state != StateConnected {
		s.metrics.CommandsRejected.Inc()
		return s.record(Outcome{Status: StatusRejected, Err: ErrNotConnected})
	}
	if err := s.validate(cmd); err != nil {
		s.metrics.CommandsRejected.Inc()
		s.logger.Warning("Drone %s: rejected %s: %v", s.id, cmd.Name(), err)
		return s.record(Outcome{Status: StatusRejected, Err: err})
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.metrics.CommandsForwarded.Inc()
	if err := s.sink.Send(ctx, cmd); err != nil {
		if errors.Is(err, ErrConnectionLost) {
			s.setState(StateDisconnected)
			s.logger.Error("Drone %s: connection lost during %s", s.id, cmd.Name())
		} else {
			s.logger.Error("Drone %s: %s failed: %v", s.id, cmd.Name(), err)
		}
		return s.record(Outcome{Status: StatusFailed, Err: err})
	}

	s.logger.Info("Drone %s: %s acknowledged", s.id, cmd.Name())
	return s.record(Outcome{Status: StatusAcked})
}

func (s *Session) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// record stores and returns the outcome.
func (s *Session) record(o Outcome) Outcome {
	s.mu.Lock()
	s.lastOutcome = &o
	s.mu.Unlock()
	return o
}

// validate checks command parameters against the session limits.
func (s *Session) validate(cmd Command) error {
	switch c := cmd.(type) {
	case Takeoff:
		if c.Altitude <= 0 {
			return fmt.Errorf("%w: takeoff altitude must be positive, got %.1f", ErrInvalidParameters, c.Altitude)
		}
		if c.Altitude > s.limits.AltitudeCeiling {
			return fmt.Errorf("%w: takeoff altitude %.1f above ceiling %.1f", ErrInvalidParameters, c.Altitude, s.limits.AltitudeCeiling)
		}
	case Goto:
		if !s.limits.Geofence.Contains(c.Lat, c.Lon) {
			return fmt.Errorf("%w: position (%.4f, %.4f) outside geofence", ErrInvalidParameters, c.Lat, c.Lon)
		}
		if c.Alt <= 0 || c.Alt > s.limits.AltitudeCeiling {
			return fmt.Errorf("%w: altitude %.1f outside (0, %.1f]", ErrInvalidParameters, c.Alt, s.limits.AltitudeCeiling)
		}
	case Land:
		// no parameters
	default:
		return fmt.Errorf("%w: unknown command %q", ErrInvalidParameters, cmd.Name())
	}
	return nil
}

// close marks the session closed so further submissions are rejected.
// The in-flight command, if any, completes before the sink is closed.
func (s *Session) close() {
	s.mu.Lock()
	s.closed = true
	s.state = StateDisconnected
	s.mu.Unlock()

	s.cmdMu.Lock()
	s.sink.Close()
	s.cmdMu.Unlock()
}
