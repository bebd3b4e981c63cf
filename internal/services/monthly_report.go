package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/mail"
)

// fallbackInsights is used whenever the text-generation service fails or
// returns something unusable. The report still goes out.
var fallbackInsights = []string{
	"Your highest expense category this month might need attention.",
	"Consider setting up a budget for better financial management.",
	"Track your recurring expenses to identify potential savings.",
}

// MonthlyReportGenerator summarizes each user's previous calendar month and
// mails a report with AI-generated insights.
type MonthlyReportGenerator struct {
	store    ReportStore
	insights InsightSource
	sender   mail.Sender
}

// NewMonthlyReportGenerator creates a report generator. insights may be nil,
// in which case the fallback insights are always used.
func NewMonthlyReportGenerator(store ReportStore, insights InsightSource, sender mail.Sender) *MonthlyReportGenerator {
	return &MonthlyReportGenerator{
		store:    store,
		insights: insights,
		sender:   sender,
	}
}

// Run generates and dispatches one report per user for the previous calendar
// month. A failure for one user never stops the rest. Returns the number of
// reports sent.
func (g *MonthlyReportGenerator) Run(ctx context.Context, now time.Time) (int, error) {
	if g.store == nil || g.sender == nil {
		return 0, fmt.Errorf("generator not properly initialized")
	}

	users, err := g.store.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("list users: %w", err)
	}

	monthStart := core.PreviousMonth(now)
	label := monthStart.Format("January 2006")

	slog.InfoContext(ctx, "Generating monthly reports",
		"month", label,
		"total_users", len(users))

	sent := 0
	for _, u := range users {
		if err := g.reportFor(ctx, u, monthStart, label); err != nil {
			slog.ErrorContext(ctx, "Failed to generate monthly report",
				"user_id", u.ID,
				"month", label,
				"error", err)
			continue
		}
		sent++
	}

	slog.InfoContext(ctx, "Monthly report run complete",
		"reports_sent", sent,
		"total_users", len(users))

	return sent, nil
}

func (g *MonthlyReportGenerator) reportFor(ctx context.Context, u core.User, monthStart time.Time, label string) error {
	transactions, err := g.store.ListTransactionsInRange(ctx, u.ID, monthStart, core.MonthEnd(monthStart))
	if err != nil {
		return fmt.Errorf("list month transactions: %w", err)
	}

	stats := ComputeMonthlyStats(transactions)
	insightList := g.insightsFor(ctx, u, stats, label)

	data := mail.MonthlyReportData{
		Username:         u.Name,
		Month:            label,
		TotalIncome:      stats.TotalIncome.StringFixed(2),
		TotalExpense:     stats.TotalExpense.StringFixed(2),
		Net:              stats.Net().StringFixed(2),
		TransactionCount: stats.TransactionCount,
		Insights:         insightList,
	}
	for _, c := range stats.ByCategory {
		data.ByCategory = append(data.ByCategory, mail.CategoryLine{
			Category: c.Category,
			Amount:   c.Amount.StringFixed(2),
		})
	}

	body, err := mail.RenderMonthlyReport(data)
	if err != nil {
		return fmt.Errorf("render monthly report: %w", err)
	}

	subject := fmt.Sprintf("Your %s Financial Report", label)
	if err := g.sender.Send(ctx, u.Email, subject, body); err != nil {
		return fmt.Errorf("send monthly report: %w", err)
	}
	return nil
}

func (g *MonthlyReportGenerator) insightsFor(ctx context.Context, u core.User, stats core.MonthlyStats, label string) []string {
	if g.insights == nil {
		return fallbackInsights
	}
	out, err := g.insights.MonthlyInsights(ctx, stats, label)
	if err != nil {
		slog.WarnContext(ctx, "Insight generation failed, using fallback insights",
			"user_id", u.ID,
			"error", err)
		return fallbackInsights
	}
	return out
}

// ComputeMonthlyStats aggregates transactions into income/expense totals,
// per-category expense totals, and a count.
func ComputeMonthlyStats(transactions []core.Transaction) core.MonthlyStats {
	stats := core.MonthlyStats{}
	byCategory := make(map[string]int)

	for _, t := range transactions {
		switch t.Type {
		case core.Expense:
			stats.TotalExpense = stats.TotalExpense.Add(t.Amount)
			if idx, ok := byCategory[t.Category]; ok {
				stats.ByCategory[idx].Amount = stats.ByCategory[idx].Amount.Add(t.Amount)
			} else {
				byCategory[t.Category] = len(stats.ByCategory)
				stats.ByCategory = append(stats.ByCategory, core.CategoryAmount{
					Category: t.Category,
					Amount:   t.Amount,
				})
			}
		case core.Income:
			stats.TotalIncome = stats.TotalIncome.Add(t.Amount)
		}
		stats.TransactionCount++
	}

	sort.Slice(stats.ByCategory, func(i, j int) bool {
		return stats.ByCategory[i].Category < stats.ByCategory[j].Category
	})

	return stats
}
