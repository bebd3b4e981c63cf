package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/mail"
	"fintrack/internal/storage"
)

// alertThreshold is the fraction of the monthly budget, in percent, at which
// an alert fires.
var alertThreshold = decimal.NewFromInt(80)

// BudgetAlertEvaluator decides, once per alert cycle, which users should
// receive a budget threshold alert, with at most one alert per calendar
// month per budget.
type BudgetAlertEvaluator struct {
	store  AlertStore
	sender mail.Sender
}

func NewBudgetAlertEvaluator(store AlertStore, sender mail.Sender) *BudgetAlertEvaluator {
	return &BudgetAlertEvaluator{
		store:  store,
		sender: sender,
	}
}

// Run evaluates every budget whose owner has a default account. A failure on
// one budget never stops evaluation of the rest. Returns the number of alerts
// sent.
func (e *BudgetAlertEvaluator) Run(ctx context.Context, now time.Time) (int, error) {
	if e.store == nil || e.sender == nil {
		return 0, fmt.Errorf("evaluator not properly initialized")
	}

	candidates, err := e.store.ListAlertCandidates(ctx)
	if err != nil {
		return 0, fmt.Errorf("list alert candidates: %w", err)
	}

	slog.InfoContext(ctx, "Evaluating budget alerts",
		"total_budgets", len(candidates))

	sent := 0
	for _, c := range candidates {
		fired, err := e.evaluate(ctx, c, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to evaluate budget",
				"budget_id", c.Budget.ID,
				"user_id", c.User.ID,
				"error", err)
			continue
		}
		if fired {
			sent++
		}
	}

	slog.InfoContext(ctx, "Budget alert cycle complete",
		"alerts_sent", sent,
		"total_budgets", len(candidates))

	return sent, nil
}

func (e *BudgetAlertEvaluator) evaluate(ctx context.Context, c storage.AlertCandidate, now time.Time) (bool, error) {
	spent, err := e.store.SumExpensesInRange(ctx, c.Account.ID, core.MonthStart(now), now)
	if err != nil {
		return false, fmt.Errorf("sum month-to-date expenses: %w", err)
	}

	pct := core.Percentage(spent, c.Budget.Amount)
	if !shouldAlert(c.Budget.LastAlertSent, pct, now) {
		return false, nil
	}

	body, err := mail.RenderBudgetAlert(mail.BudgetAlertData{
		Username:       c.User.Name,
		AccountName:    c.Account.Name,
		BudgetAmount:   c.Budget.Amount.StringFixed(2),
		TotalExpense:   spent.StringFixed(2),
		Remaining:      c.Budget.Amount.Sub(spent).StringFixed(2),
		PercentageUsed: pct.StringFixed(1),
	})
	if err != nil {
		return false, fmt.Errorf("render budget alert: %w", err)
	}

	subject := fmt.Sprintf("Budget Alert for %s", c.Account.Name)
	if err := e.sender.Send(ctx, c.User.Email, subject, body); err != nil {
		return false, fmt.Errorf("send budget alert: %w", err)
	}

	if err := e.store.SetLastAlertSent(ctx, c.Budget.ID, now); err != nil {
		// The email went out; without the marker the next cycle would alert
		// again this month.
		return true, fmt.Errorf("record alert sent: %w", err)
	}

	slog.InfoContext(ctx, "Budget alert sent",
		"budget_id", c.Budget.ID,
		"user_id", c.User.ID,
		"account_id", c.Account.ID,
		"percentage_used", pct.String())

	return true, nil
}

// shouldAlert fires when the threshold is reached and this calendar month has
// not been alerted yet. The threshold gates every fire: a bare month rollover
// below 80% stays silent.
func shouldAlert(lastAlertSent time.Time, pct decimal.Decimal, now time.Time) bool {
	if pct.LessThan(alertThreshold) {
		return false
	}
	if lastAlertSent.IsZero() {
		return true
	}
	return !core.SameMonth(lastAlertSent, now)
}
