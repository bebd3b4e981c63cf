package http

import (
	"encoding/json"
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/services"
)

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account_id query parameter is required")
		return
	}

	status, err := s.budgets.Status(r.Context(), u.ID, accountID, time.Now())
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeData(w, http.StatusOK, toBudgetStatusResponse(status))
}

func (s *Server) handlePutBudget(w http.ResponseWriter, r *http.Request) {
	u, _ := userFrom(r.Context())

	var req budgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := s.budgets.Upsert(r.Context(), u.ID, amount)
	if err != nil {
		writeServiceError(r.Context(), w, err)
		return
	}
	writeData(w, http.StatusOK, budgetResponse{
		ID:            saved.ID,
		Amount:        saved.Amount.StringFixed(2),
		LastAlertSent: formatOptional(saved.LastAlertSent),
	})
}

func toBudgetStatusResponse(status services.BudgetStatus) budgetResponse {
	return budgetResponse{
		ID:             status.Budget.ID,
		Amount:         status.Budget.Amount.StringFixed(2),
		CurrentExpense: status.CurrentExpense.StringFixed(2),
		PercentageUsed: status.PercentageUsed.StringFixed(2),
		LastAlertSent:  formatOptional(status.Budget.LastAlertSent),
	}
}
