package http

import (
	"context"
	"net/http"
	"time"

	applog "expensetracker/internal/log"
)

// handleHealth is the liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":              "ok",
		"timestamp":           time.Now().Format(time.RFC3339),
		"uptime":              time.Since(s.started).Round(time.Second).String(),
		"requests":            s.tracer.TotalRequests(),
		"rate_limited":        s.limiter.Rejected(),
		"active_clients":      s.limiter.ActiveClients(),
		"suspicious_requests": s.detector.SuspiciousCount(),
	})
}

// handleReady checks that the store can be read.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{"store": "ok"}
	if err := s.svc.Ready(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", "error", err)
		status, code = "not_ready", http.StatusServiceUnavailable
		checks["store"] = "failed: " + err.Error()
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}
