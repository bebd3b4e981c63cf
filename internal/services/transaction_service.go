package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// TransactionService validates and persists ledger entries. Every write goes
// through the repository's transactional balance update, keeping the stored
// account balance consistent with the ledger.
type TransactionService struct {
	store TransactionStore
}

func NewTransactionService(store TransactionStore) *TransactionService {
	return &TransactionService{store: store}
}

// Create validates a new transaction, computes its next recurrence date when
// it is a recurring template, and persists it together with the balance
// delta.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Status == "" {
		t.Status = core.Completed
	}
	if t.IsRecurring && t.RecurringInterval != "" {
		t.NextRecurringDate = core.NextRecurringDate(t.Date, t.RecurringInterval)
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	return created, nil
}

// Update rewrites a transaction's mutable fields. The recurrence schedule is
// recomputed from the new date and interval; a template turned non-recurring
// loses its schedule.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.Status == "" {
		t.Status = core.Completed
	}
	if t.IsRecurring && t.RecurringInterval != "" {
		t.NextRecurringDate = core.NextRecurringDate(t.Date, t.RecurringInterval)
	} else {
		t.NextRecurringDate = time.Time{}
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction updated",
		"transaction_id", updated.ID,
		"user_id", updated.UserID)

	return updated, nil
}

// Delete soft-deletes a transaction, reversing its effect on the balance.
func (s *TransactionService) Delete(ctx context.Context, id, userID string) error {
	if err := s.store.SoftDeleteTransaction(ctx, id, userID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

func (s *TransactionService) Get(ctx context.Context, id, userID string) (core.Transaction, error) {
	return s.store.GetTransaction(ctx, id, userID)
}

func (s *TransactionService) List(ctx context.Context, userID, accountID string) ([]core.Transaction, error) {
	return s.store.ListTransactions(ctx, userID, accountID)
}
