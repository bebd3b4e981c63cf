package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

func alertCandidate(budgetAmount string) storage.AlertCandidate {
	amount, _ := decimal.NewFromString(budgetAmount)
	return storage.AlertCandidate{
		Budget: core.Budget{ID: "budget-1", UserID: "user-1", Amount: amount},
		User:   core.User{ID: "user-1", Email: "sam@example.com", Name: "Sam"},
		Account: core.Account{
			ID:        "account-1",
			UserID:    "user-1",
			Name:      "Checking",
			Type:      core.Current,
			IsDefault: true,
		},
	}
}

func TestBudgetAlertThreshold(t *testing.T) {
	now := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		spent    string
		wantSent bool
	}{
		{name: "just under threshold stays silent", spent: "799.90", wantSent: false},
		{name: "exactly at threshold fires", spent: "800.00", wantSent: true},
		{name: "well over threshold fires", spent: "850.00", wantSent: true},
		{name: "over budget fires", spent: "1200.00", wantSent: true},
		{name: "no spending stays silent", spent: "0", wantSent: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spent, _ := decimal.NewFromString(tt.spent)
			store := &fakeAlertStore{
				candidates: []storage.AlertCandidate{alertCandidate("1000")},
				expenses:   map[string]decimal.Decimal{"account-1": spent},
			}
			sender := &fakeSender{}
			evaluator := NewBudgetAlertEvaluator(store, sender)

			sent, err := evaluator.Run(context.Background(), now)
			if err != nil {
				t.Fatalf("Run returned error: %v", err)
			}

			if tt.wantSent {
				if sent != 1 || len(sender.sent) != 1 {
					t.Fatalf("sent = %d, mails = %d, want 1 alert", sent, len(sender.sent))
				}
				if _, ok := store.alertsSet["budget-1"]; !ok {
					t.Error("alert marker was not recorded")
				}
			} else {
				if sent != 0 || len(sender.sent) != 0 {
					t.Errorf("sent = %d, mails = %d, want none", sent, len(sender.sent))
				}
			}
		})
	}
}

func TestBudgetAlertOncePerMonth(t *testing.T) {
	now := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)
	store := &fakeAlertStore{
		candidates: []storage.AlertCandidate{alertCandidate("1000")},
		expenses:   map[string]decimal.Decimal{"account-1": decimal.NewFromInt(850)},
	}
	sender := &fakeSender{}
	evaluator := NewBudgetAlertEvaluator(store, sender)

	if sent, _ := evaluator.Run(context.Background(), now); sent != 1 {
		t.Fatalf("first cycle sent = %d, want 1", sent)
	}

	// Same month, still over threshold: no second alert.
	later := now.AddDate(0, 0, 5)
	if sent, _ := evaluator.Run(context.Background(), later); sent != 0 {
		t.Errorf("second cycle same month sent = %d, want 0", sent)
	}

	// New month over threshold: alerts again.
	nextMonth := time.Date(2024, time.April, 18, 9, 0, 0, 0, time.UTC)
	if sent, _ := evaluator.Run(context.Background(), nextMonth); sent != 1 {
		t.Errorf("next month cycle sent = %d, want 1", sent)
	}
	if len(sender.sent) != 2 {
		t.Errorf("total mails = %d, want 2", len(sender.sent))
	}
}

func TestBudgetAlertMonthRolloverBelowThreshold(t *testing.T) {
	// Alerted last month, but the new month's spending is under 80%.
	candidate := alertCandidate("1000")
	candidate.Budget.LastAlertSent = time.Date(2024, time.February, 25, 0, 0, 0, 0, time.UTC)

	store := &fakeAlertStore{
		candidates: []storage.AlertCandidate{candidate},
		expenses:   map[string]decimal.Decimal{"account-1": decimal.NewFromInt(100)},
	}
	sender := &fakeSender{}
	evaluator := NewBudgetAlertEvaluator(store, sender)

	now := time.Date(2024, time.March, 5, 9, 0, 0, 0, time.UTC)
	sent, err := evaluator.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sent != 0 || len(sender.sent) != 0 {
		t.Errorf("sent = %d, want 0 on rollover below threshold", sent)
	}
}

func TestBudgetAlertPayload(t *testing.T) {
	now := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)
	store := &fakeAlertStore{
		candidates: []storage.AlertCandidate{alertCandidate("1000")},
		expenses:   map[string]decimal.Decimal{"account-1": decimal.NewFromInt(850)},
	}
	sender := &fakeSender{}
	evaluator := NewBudgetAlertEvaluator(store, sender)

	if _, err := evaluator.Run(context.Background(), now); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("mails = %d, want 1", len(sender.sent))
	}

	mail := sender.sent[0]
	if mail.to != "sam@example.com" {
		t.Errorf("recipient = %s", mail.to)
	}
	if mail.subject != "Budget Alert for Checking" {
		t.Errorf("subject = %q", mail.subject)
	}
	for _, want := range []string{"Sam", "Checking", "1000.00", "850.00", "150.00", "85.0"} {
		if !strings.Contains(mail.body, want) {
			t.Errorf("alert body missing %q", want)
		}
	}
}

func TestBudgetAlertFailureIsolation(t *testing.T) {
	now := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)

	broken := alertCandidate("1000")
	healthy := alertCandidate("1000")
	healthy.Budget.ID = "budget-2"
	healthy.User = core.User{ID: "user-2", Email: "kim@example.com", Name: "Kim"}
	healthy.Account.ID = "account-2"
	healthy.Account.UserID = "user-2"

	store := &fakeAlertStore{
		candidates: []storage.AlertCandidate{broken, healthy},
		expenses: map[string]decimal.Decimal{
			"account-1": decimal.NewFromInt(900),
			"account-2": decimal.NewFromInt(900),
		},
	}
	sender := &fakeSender{
		failFor: map[string]error{"sam@example.com": errors.New("smtp down")},
	}
	evaluator := NewBudgetAlertEvaluator(store, sender)

	sent, err := evaluator.Run(context.Background(), now)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if sent != 1 {
		t.Errorf("sent = %d, want 1 despite one delivery failure", sent)
	}
	if len(sender.sent) != 1 || sender.sent[0].to != "kim@example.com" {
		t.Errorf("surviving mail = %+v", sender.sent)
	}
}

func TestShouldAlert(t *testing.T) {
	now := time.Date(2024, time.March, 20, 0, 0, 0, 0, time.UTC)
	over := decimal.NewFromInt(85)
	under := decimal.NewFromFloat(79.99)

	tests := []struct {
		name          string
		lastAlertSent time.Time
		pct           decimal.Decimal
		want          bool
	}{
		{"under threshold never alerts", time.Time{}, under, false},
		{"over threshold with no prior alert", time.Time{}, over, true},
		{"over threshold already alerted this month", date(2024, time.March, 2), over, false},
		{"over threshold alerted last month", date(2024, time.February, 25), over, true},
		{"under threshold alerted last month", date(2024, time.February, 25), under, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := shouldAlert(tt.lastAlertSent, tt.pct, now); got != tt.want {
				t.Errorf("shouldAlert(%v, %s, %v) = %v, want %v", tt.lastAlertSent, tt.pct, now, got, tt.want)
			}
		})
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
