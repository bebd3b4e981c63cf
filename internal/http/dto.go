package http

import (
	"errors"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/insights"
)

type accountRequest struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	IsDefault bool   `json:"is_default"`
}

type accountResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Balance   string `json:"balance"`
	IsDefault bool   `json:"is_default"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type transactionRequest struct {
	AccountID         string `json:"account_id"`
	Type              string `json:"type"`
	Amount            string `json:"amount"`
	Description       string `json:"description"`
	Date              string `json:"date"`
	Category          string `json:"category"`
	Status            string `json:"status,omitempty"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurringInterval string `json:"recurring_interval,omitempty"`
}

type transactionResponse struct {
	ID                string `json:"id"`
	AccountID         string `json:"account_id"`
	Type              string `json:"type"`
	Amount            string `json:"amount"`
	Description       string `json:"description"`
	Date              string `json:"date"`
	Category          string `json:"category"`
	Status            string `json:"status"`
	IsRecurring       bool   `json:"is_recurring"`
	RecurringInterval string `json:"recurring_interval,omitempty"`
	NextRecurringDate string `json:"next_recurring_date,omitempty"`
	LastProcessed     string `json:"last_processed,omitempty"`
	CreatedAt         string `json:"created_at"`
	UpdatedAt         string `json:"updated_at"`
}

type budgetRequest struct {
	Amount string `json:"amount"`
}

type budgetResponse struct {
	ID             string `json:"id"`
	Amount         string `json:"amount"`
	CurrentExpense string `json:"current_expense"`
	PercentageUsed string `json:"percentage_used"`
	LastAlertSent  string `json:"last_alert_sent,omitempty"`
}

type receiptResponse struct {
	Amount       string `json:"amount"`
	Date         string `json:"date"`
	Description  string `json:"description"`
	MerchantName string `json:"merchant_name"`
	Category     string `json:"category"`
}

func (req accountRequest) toAccount(userID string) core.Account {
	return core.Account{
		UserID:    userID,
		Name:      req.Name,
		Type:      core.AccountType(req.Type),
		IsDefault: req.IsDefault,
	}
}

func (req transactionRequest) toTransaction(userID string) (core.Transaction, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return core.Transaction{}, err
	}
	if req.AccountID == "" {
		return core.Transaction{}, errors.New("account_id is required")
	}
	return core.Transaction{
		UserID:            userID,
		AccountID:         req.AccountID,
		Type:              core.TransactionType(req.Type),
		Amount:            amount,
		Description:       req.Description,
		Date:              date,
		Category:          req.Category,
		Status:            core.TransactionStatus(req.Status),
		IsRecurring:       req.IsRecurring,
		RecurringInterval: core.RecurringInterval(req.RecurringInterval),
	}, nil
}

func toAccountResponse(a core.Account) accountResponse {
	return accountResponse{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Balance:   a.Balance.StringFixed(2),
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: a.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:                t.ID,
		AccountID:         t.AccountID,
		Type:              string(t.Type),
		Amount:            t.Amount.StringFixed(2),
		Description:       t.Description,
		Date:              t.Date.UTC().Format(time.RFC3339),
		Category:          t.Category,
		Status:            string(t.Status),
		IsRecurring:       t.IsRecurring,
		RecurringInterval: string(t.RecurringInterval),
		NextRecurringDate: formatOptional(t.NextRecurringDate),
		LastProcessed:     formatOptional(t.LastProcessed),
		CreatedAt:         t.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:         t.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toTransactionResponses(transactions []core.Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(transactions))
	for _, t := range transactions {
		out = append(out, toTransactionResponse(t))
	}
	return out
}

func toReceiptResponse(r insights.ReceiptData) receiptResponse {
	return receiptResponse{
		Amount:       r.Amount,
		Date:         r.Date.UTC().Format(time.RFC3339),
		Description:  r.Description,
		MerchantName: r.MerchantName,
		Category:     r.Category,
	}
}

func formatOptional(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// parseDate accepts RFC 3339 timestamps and bare dates.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("date is required")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format: %q", s)
}
