// Package services holds the business logic: transaction and account
// orchestration, the recurring-transaction processor, the budget alert
// evaluator, and the monthly report generator.
//
// Each service consumes a narrow store interface so tests can substitute
// in-memory fakes; internal/storage.SQLiteRepository satisfies all of them.
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// TransactionStore covers the request-path ledger operations.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	SoftDeleteTransaction(ctx context.Context, id, userID string) error
	GetTransaction(ctx context.Context, id, userID string) (core.Transaction, error)
	ListTransactions(ctx context.Context, userID, accountID string) ([]core.Transaction, error)
}

// AccountStore covers account management.
type AccountStore interface {
	CreateAccount(ctx context.Context, a core.Account) (core.Account, error)
	GetAccount(ctx context.Context, id, userID string) (core.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]core.Account, error)
	SetDefaultAccount(ctx context.Context, userID, accountID string) (core.Account, error)
}

// BudgetStore covers budget reads and writes plus the month-to-date expense
// aggregate the budget view needs.
type BudgetStore interface {
	UpsertBudget(ctx context.Context, userID string, amount decimal.Decimal) (core.Budget, error)
	GetBudget(ctx context.Context, userID string) (core.Budget, error)
	SumExpensesInRange(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error)
}

// RecurringStore covers the recurring-transaction pipeline.
type RecurringStore interface {
	ListDueRecurring(ctx context.Context, now time.Time) ([]core.Transaction, error)
	GetTransaction(ctx context.Context, id, userID string) (core.Transaction, error)
	ApplyRecurringOccurrence(ctx context.Context, templateID, userID string, occurrence core.Transaction, next, now time.Time) error
}

// AlertStore covers the budget alert evaluator's needs.
type AlertStore interface {
	ListAlertCandidates(ctx context.Context) ([]storage.AlertCandidate, error)
	SumExpensesInRange(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error)
	SetLastAlertSent(ctx context.Context, budgetID string, at time.Time) error
}

// ReportStore covers the monthly report generator's needs.
type ReportStore interface {
	ListUsers(ctx context.Context) ([]core.User, error)
	ListTransactionsInRange(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error)
}

// EventPublisher emits per-row processing requests for due recurring
// transactions; internal/amqp.Client satisfies it.
type EventPublisher interface {
	PublishRecurringProcess(ctx context.Context, transactionID, userID string) error
}

// InsightSource produces exactly three short insights for a month of stats;
// internal/insights.Generator satisfies it.
type InsightSource interface {
	MonthlyInsights(ctx context.Context, stats core.MonthlyStats, monthLabel string) ([]string, error)
}
