package http

import (
	"net/http"

	applog "expensetracker/internal/log"
)

// handleSummary recomputes the totals on every call.
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.svc.Summary(r.Context())
	if err != nil {
		writeServiceError(w, r, applog.OpSummary, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}
