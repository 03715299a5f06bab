package handlers

import (
	"encoding/json"
	"net/http"

	"fieldrelay/internal/hub"
	"fieldrelay/internal/logger"
	"fieldrelay/internal/model"
)

// TelemetryHandler ingests a raw drone telemetry sample and fans it out
// to subscribers as a SENSOR_DATA message. Telemetry is not persisted.
func TelemetryHandler(h *hub.Hub, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var data model.SensorData
		if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}

		h.PublishSensorData(data)
		writeJSON(w, http.StatusAccepted, map[string]bool{"success": true})
	}
}
