package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

const (
	msgMissingFields = "Missing required fields"
	msgNotFound      = "Expense not found"
	msgInvalidBody   = "Invalid request body"
	msgSaveFailed    = "Failed to save expense"
	msgInternal      = "Internal server error"
)

type errorResponse struct {
	Error string `json:"error"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeServiceError maps an error from the expense service to a status and
// client message. Unexpected failures are logged with op.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var ve *core.ValidationError
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, validationMessage(ve))
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, msgNotFound)
	case core.IsPersistence(err):
		logServiceError(r, op, err)
		writeError(w, http.StatusInternalServerError, msgSaveFailed)
	default:
		logServiceError(r, op, err)
		writeError(w, http.StatusInternalServerError, msgInternal)
	}
}

func logServiceError(r *http.Request, op string, err error) {
	sl := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	sl.LogError(r.Context(), "Expense operation failed", err, applog.ComponentExpense, op, nil)
}

func validationMessage(ve *core.ValidationError) string {
	switch {
	case errors.Is(ve, core.ErrMissingFields),
		errors.Is(ve, core.ErrEmptyDescription),
		errors.Is(ve, core.ErrEmptyCategory):
		return msgMissingFields
	case errors.Is(ve, core.ErrInvalidAmount):
		return "Invalid amount"
	default:
		return ve.Error()
	}
}

// sanitizeInput strips control characters and surrounding whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}
