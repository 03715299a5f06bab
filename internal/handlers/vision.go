package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"fieldrelay/internal/dispatch"
	"fieldrelay/internal/ingest"
	"fieldrelay/internal/logger"
)

// DefaultSourceID is assumed when the capture webhook does not name a
// source (single-glasses deployments).
const DefaultSourceID = "glasses-1"

type visionRequest struct {
	ImageURL string `json:"imageUrl"`
	SourceID string `json:"sourceId"`
}

type visionResponse struct {
	Success  bool   `json:"success"`
	Analysis string `json:"analysis,omitempty"`
	Error    string `json:"error,omitempty"`
}

// VisionWebhookHandler ingests one capture event and answers with the
// analysis text. The response is synchronous: the handler waits for the
// dispatch outcome, trading latency for the simple webhook contract the
// capture bridge expects.
func VisionWebhookHandler(ing *ingest.Ingestor, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var req visionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.ImageURL == "" {
			writeError(w, http.StatusBadRequest, "No image URL provided")
			return
		}
		if req.SourceID == "" {
			req.SourceID = DefaultSourceID
		}

		ticket, err := ing.Submit(req.SourceID, req.ImageURL)
		if err != nil {
			switch {
			case errors.Is(err, ingest.ErrInvalidImageRef), errors.Is(err, ingest.ErrEmptySourceID):
				writeError(w, http.StatusBadRequest, err.Error())
			case errors.Is(err, ingest.ErrClosed), errors.Is(err, dispatch.ErrShuttingDown):
				writeError(w, http.StatusServiceUnavailable, "relay is shutting down")
			default:
				log.Error("Capture submission failed: %v", err)
				writeError(w, http.StatusInternalServerError, "Failed to process image")
			}
			return
		}

		result, err := ticket.Wait(r.Context())
		if err != nil {
			switch {
			case errors.Is(err, dispatch.ErrSuperseded):
				writeJSON(w, http.StatusConflict, visionResponse{Error: "superseded by a newer capture"})
			case errors.Is(err, dispatch.ErrShuttingDown):
				writeError(w, http.StatusServiceUnavailable, "relay is shutting down")
			default:
				log.Error("Analysis failed for source %s: %v", req.SourceID, err)
				writeJSON(w, http.StatusInternalServerError, visionResponse{Error: "Failed to process image"})
			}
			return
		}

		writeJSON(w, http.StatusOK, visionResponse{Success: true, Analysis: result.AnalysisText})
	}
}
