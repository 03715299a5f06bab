package handlers

import (
	"net/http"
	"time"

	"fieldrelay/internal/logger"
	"fieldrelay/internal/model"
	"fieldrelay/internal/store"
)

// ResultsHandler returns the stored analysis history in insertion order.
// An optional ?since=RFC3339 query narrows the read to newer results.
func ResultsHandler(st *store.Store, log *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		var (
			results []model.AnalysisResult
			err     error
		)
		if since := r.URL.Query().Get("since"); since != "" {
			t, perr := time.Parse(time.RFC3339, since)
			if perr != nil {
				writeError(w, http.StatusBadRequest, "invalid since timestamp, want RFC3339")
				return
			}
			results, err = st.ReadSince(t)
		} else {
			results, err = st.ReadAll()
		}

		if err != nil {
			log.Error("Failed to read result history: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to read results")
			return
		}

		if results == nil {
			results = []model.AnalysisResult{}
		}
		writeJSON(w, http.StatusOK, results)
	}
}
