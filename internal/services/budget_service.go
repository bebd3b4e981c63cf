package services

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// BudgetStatus is the budget together with the month-to-date expense on the
// account being viewed.
type BudgetStatus struct {
	Budget         core.Budget
	CurrentExpense decimal.Decimal
	PercentageUsed decimal.Decimal
}

// BudgetService manages the user's single monthly budget.
type BudgetService struct {
	store BudgetStore
}

func NewBudgetService(store BudgetStore) *BudgetService {
	return &BudgetService{store: store}
}

// Upsert creates or replaces the user's budget amount.
func (s *BudgetService) Upsert(ctx context.Context, userID string, amount decimal.Decimal) (core.Budget, error) {
	b := core.Budget{UserID: userID, Amount: amount}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	saved, err := s.store.UpsertBudget(ctx, userID, amount)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return saved, nil
}

// Status returns the budget and the current calendar month's expense total
// on the given account. Returns core.ErrNotFound when no budget is set.
func (s *BudgetService) Status(ctx context.Context, userID, accountID string, now time.Time) (BudgetStatus, error) {
	budget, err := s.store.GetBudget(ctx, userID)
	if err != nil {
		return BudgetStatus{}, err
	}

	spent, err := s.store.SumExpensesInRange(ctx, accountID, core.MonthStart(now), core.MonthEnd(now))
	if err != nil {
		return BudgetStatus{}, fmt.Errorf("sum current month expenses: %w", err)
	}

	return BudgetStatus{
		Budget:         budget,
		CurrentExpense: spent,
		PercentageUsed: core.Percentage(spent, budget.Amount),
	}, nil
}
