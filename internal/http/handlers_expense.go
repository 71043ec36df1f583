package http

import (
	"errors"
	"net/http"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	items, err := s.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, r, applog.OpList, err)
		return
	}
	if items == nil {
		items = []core.Expense{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	draft, err := DraftFromRequest(p)
	if err != nil {
		writeServiceError(w, r, applog.OpValidate, err)
		return
	}

	e, err := s.svc.Create(r.Context(), draft)
	if err != nil {
		writeServiceError(w, r, applog.OpCreate, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	p := NewRequestBodyParser(w, r)
	if err := p.Parse(); err != nil {
		writeError(w, http.StatusBadRequest, msgInvalidBody)
		return
	}

	patch, err := PatchFromRequest(p)
	if err != nil {
		// An unknown id wins over a bad field.
		if _, gerr := s.svc.Get(r.Context(), id); errors.Is(gerr, core.ErrNotFound) {
			err = gerr
		}
		writeServiceError(w, r, applog.OpValidate, err)
		return
	}

	e, err := s.svc.Update(r.Context(), id, patch)
	if err != nil {
		writeServiceError(w, r, applog.OpUpdate, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, applog.OpDelete, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "Deleted successfully"})
}
