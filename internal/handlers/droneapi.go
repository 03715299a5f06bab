package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"fieldrelay/internal/drone"
	"fieldrelay/internal/logger"
)

// DefaultDroneID names the single drone session in one-vehicle
// deployments.
const DefaultDroneID = "drone-1"

type commandResponse struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason,omitempty"`
}

type takeoffRequest struct {
	DroneID  string  `json:"droneId"`
	Altitude float64 `json:"altitude"`
}

type gotoRequest struct {
	DroneID string  `json:"droneId"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Alt     float64 `json:"alt"`
}

type landRequest struct {
	DroneID string `json:"droneId"`
}

// TakeoffHandler submits a Takeoff command.
func TakeoffHandler(gw *drone.Gateway, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req takeoffRequest
		if !decodeCommand(w, r, &req) {
			return
		}
		outcome := gw.Submit(r.Context(), orDefault(req.DroneID), drone.Takeoff{Altitude: req.Altitude})
		writeOutcome(w, outcome)
	}
}

// GotoHandler submits a Goto command.
func GotoHandler(gw *drone.Gateway, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req gotoRequest
		if !decodeCommand(w, r, &req) {
			return
		}
		outcome := gw.Submit(r.Context(), orDefault(req.DroneID), drone.Goto{Lat: req.Lat, Lon: req.Lon, Alt: req.Alt})
		writeOutcome(w, outcome)
	}
}

// LandHandler submits a Land command.
func LandHandler(gw *drone.Gateway, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		// The body is optional; land needs no parameters.
		var req landRequest
		if r.ContentLength > 0 && !decodeCommand(w, r, &req) {
			return
		}
		outcome := gw.Submit(r.Context(), orDefault(req.DroneID), drone.Land{})
		writeOutcome(w, outcome)
	}
}

// DroneStatusHandler reports the session state and last command outcome.
func DroneStatusHandler(gw *drone.Gateway, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("droneId")
		session := gw.Session(orDefault(id))
		if session == nil {
			writeError(w, http.StatusNotFound, "unknown drone session")
			return
		}

		status := map[string]interface{}{
			"droneId": session.ID(),
			"state":   string(session.State()),
		}
		if last := session.LastOutcome(); last != nil {
			status["lastCommandOutcome"] = last.String()
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func decodeCommand(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func orDefault(droneID string) string {
	if droneID == "" {
		return DefaultDroneID
	}
	return droneID
}

func writeOutcome(w http.ResponseWriter, outcome drone.Outcome) {
	if outcome.Acked() {
		writeJSON(w, http.StatusOK, commandResponse{Success: true})
		return
	}

	status := http.StatusBadGateway
	switch {
	case errors.Is(outcome.Err, drone.ErrInvalidParameters):
		status = http.StatusBadRequest
	case errors.Is(outcome.Err, drone.ErrNotConnected):
		status = http.StatusConflict
	case errors.Is(outcome.Err, drone.ErrSessionClosed):
		status = http.StatusServiceUnavailable
	}

	reason := ""
	if outcome.Err != nil {
		reason = outcome.Err.Error()
	}
	writeJSON(w, status, commandResponse{Success: false, Reason: reason})
}
