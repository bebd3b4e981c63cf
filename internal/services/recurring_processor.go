package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
)

// RecurringProcessor advances recurring transaction templates that are due.
//
// The daily fan-out selects candidates and emits one processing request per
// row; per-row processing re-validates due-ness before writing, so duplicate
// or concurrent requests for the same row create at most one occurrence.
type RecurringProcessor struct {
	store     RecurringStore
	publisher EventPublisher
}

// NewRecurringProcessor creates a new recurring transaction processor
func NewRecurringProcessor(store RecurringStore, publisher EventPublisher) *RecurringProcessor {
	return &RecurringProcessor{
		store:     store,
		publisher: publisher,
	}
}

// FanOutDue selects due recurring templates and publishes one processing
// request per row. A publish failure for one row does not stop the rest;
// an unpublished row is simply picked up by the next fan-out.
func (p *RecurringProcessor) FanOutDue(ctx context.Context, now time.Time) (int, error) {
	if p.store == nil || p.publisher == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	due, err := p.store.ListDueRecurring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("list due recurring transactions: %w", err)
	}

	slog.InfoContext(ctx, "Fanning out due recurring transactions",
		"total_due", len(due),
		"processing_date", now.Format("2006-01-02"))

	published := 0
	for _, t := range due {
		if err := p.publisher.PublishRecurringProcess(ctx, t.ID, t.UserID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish recurring process request",
				"transaction_id", t.ID,
				"user_id", t.UserID,
				"error", err)
			continue
		}
		published++
	}

	slog.InfoContext(ctx, "Recurring fan-out complete",
		"published", published,
		"total_due", len(due))

	return published, nil
}

// ProcessTransaction advances one recurring template: create the occurrence,
// apply its signed amount to the account balance, and move the schedule
// forward, all in one store transaction.
//
// It returns nil for rows that should not be retried (missing, no longer
// recurring, not due, or already advanced by a concurrent run) and an error
// only for failures worth redelivering.
func (p *RecurringProcessor) ProcessTransaction(ctx context.Context, transactionID, userID string, now time.Time) error {
	template, err := p.store.GetTransaction(ctx, transactionID, userID)
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Recurring transaction no longer exists, skipping",
			"transaction_id", transactionID,
			"user_id", userID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get recurring transaction: %w", err)
	}

	if !template.IsRecurring || template.Status != core.Completed {
		slog.WarnContext(ctx, "Transaction is not a processable recurring template, skipping",
			"transaction_id", template.ID,
			"is_recurring", template.IsRecurring,
			"status", string(template.Status))
		return nil
	}

	// Due re-check: an overlapping run may already have advanced this row.
	if !template.Due(now) {
		slog.InfoContext(ctx, "Recurring transaction not due, skipping",
			"transaction_id", template.ID,
			"next_recurring_date", template.NextRecurringDate.Format("2006-01-02"))
		return nil
	}

	occurrence := newOccurrence(template, now)
	next := core.NextRecurringDate(now, template.RecurringInterval)

	err = p.store.ApplyRecurringOccurrence(ctx, template.ID, userID, occurrence, next, now)
	if errors.Is(err, core.ErrAlreadyProcessed) {
		slog.InfoContext(ctx, "Recurring transaction advanced by a concurrent run, skipping",
			"transaction_id", template.ID)
		return nil
	}
	if errors.Is(err, core.ErrNotFound) {
		slog.WarnContext(ctx, "Recurring transaction vanished during processing, skipping",
			"transaction_id", template.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("apply recurring occurrence: %w", err)
	}

	slog.InfoContext(ctx, "Created occurrence from recurring template",
		"transaction_id", template.ID,
		"user_id", userID,
		"amount", template.Amount.String(),
		"recurring_interval", string(template.RecurringInterval),
		"next_recurring_date", next.Format("2006-01-02"))

	return nil
}

// newOccurrence copies the template into a concrete, non-recurring ledger
// entry dated now.
func newOccurrence(template core.Transaction, now time.Time) core.Transaction {
	return core.Transaction{
		UserID:      template.UserID,
		AccountID:   template.AccountID,
		Type:        template.Type,
		Amount:      template.Amount,
		Description: template.Description + " (recurring)",
		Date:        now,
		Category:    template.Category,
		Status:      core.Completed,
		IsRecurring: false,
	}
}
