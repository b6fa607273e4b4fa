package api

import (
	"net/http"

	"github.com/demand-radar/internal/scheduler"
)

// handleRunEvaluation runs an evaluation pass synchronously and returns the
// summary. The pass itself isolates per-user failures; this fails only when
// the pass cannot run at all.
func (s *Server) handleRunEvaluation(w http.ResponseWriter, r *http.Request) {
	summary, err := s.scheduler.RunPass(r.Context(), scheduler.TriggerManual)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// handleEvaluationStatus returns the scheduler state and the last pass summary.
func (s *Server) handleEvaluationStatus(w http.ResponseWriter, r *http.Request) {
	state, last := s.scheduler.Status()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"state":    state,
		"lastPass": last,
	})
}
