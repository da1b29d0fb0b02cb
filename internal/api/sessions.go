package api

import (
	"errors"
	"fmt"
	"net/http"

	"dinepos/m/domain"
	"dinepos/m/internal/report"
	"dinepos/m/internal/shift"
	"dinepos/m/internal/wire"
)

func (h *Handler) currentSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.Shifts.Current(r.Context(), userID(r))
	if errors.Is(err, domain.ErrNoActiveSession) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *Handler) openSession(w http.ResponseWriter, r *http.Request) {
	var req wire.OpenSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.Shifts.Open(r.Context(), userID(r), req.OpeningCash, req.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, s)
}

// session loads the session in the URL. Cashiers only see their own shifts.
func (h *Handler) session(r *http.Request) (domain.Session, error) {
	id, err := idParam(r, "id")
	if err != nil {
		return domain.Session{}, err
	}
	return h.ownSession(r, id)
}

// expenseSession resolves the session an expense call targets: the given
// id when set, the caller's open shift otherwise.
func (h *Handler) expenseSession(r *http.Request, id *int64) (domain.Session, error) {
	if id == nil || *id == 0 {
		return h.Shifts.Current(r.Context(), userID(r))
	}
	return h.ownSession(r, *id)
}

func (h *Handler) ownSession(r *http.Request, id int64) (domain.Session, error) {
	s, err := h.Shifts.Get(r.Context(), id)
	if err != nil {
		return domain.Session{}, err
	}
	if role(r) != domain.RoleManager && s.CashierID != userID(r) {
		return domain.Session{}, domain.ErrNotFound
	}
	return s, nil
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

func (h *Handler) sessionTotals(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	totals, err := h.Shifts.Totals(r.Context(), s.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, totals)
}

func (h *Handler) sessionOrders(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	orders, err := h.Shifts.Orders(r.Context(), s.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	var req wire.CloseSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !req.Confirm {
		respondError(w, http.StatusBadRequest, "closing a shift must be confirmed")
		return
	}
	s, err := h.session(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.Shifts.Close(r.Context(), s.ID, req.ClosingCash, req.Notes)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *Handler) sessionReport(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	ctx := r.Context()
	rep := report.Shift{Session: s}
	if rep.Totals, err = h.Shifts.Totals(ctx, s.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	if rep.Orders, err = h.Shifts.Orders(ctx, s.ID); err != nil {
		h.fail(w, r, err)
		return
	}
	if rep.Expenses, err = h.Shifts.Expenses(ctx, s.ID); err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="shift-%d.xlsx"`, s.ID))
	if err := report.Write(w, rep); err != nil {
		h.Logger.Error().Err(err).Int64("session_id", s.ID).Msg("write shift report")
	}
}

// Expenses

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	sessionID, err := optionalID(r, "session_id")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.expenseSession(r, sessionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	expenses, err := h.Shifts.Expenses(r.Context(), s.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, expenses)
}

func (h *Handler) addExpense(w http.ResponseWriter, r *http.Request) {
	var req wire.ExpenseRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	s, err := h.expenseSession(r, &req.SessionID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	e, err := h.Shifts.AddExpense(r.Context(), shift.ExpenseInput{
		SessionID:   s.ID,
		Amount:      req.Amount,
		Category:    req.Category,
		RiderID:     req.RiderID,
		Description: req.Description,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, e)
}
