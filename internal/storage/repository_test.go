package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedUserAndAccount(t *testing.T, repo *SQLiteRepository, email string) (core.User, core.Account) {
	t.Helper()
	ctx := context.Background()

	u, err := repo.EnsureUser(ctx, email, "Test User")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	a, err := repo.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Checking", Type: core.Current})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	return u, a
}

func amount(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestEnsureUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first, err := repo.EnsureUser(ctx, "sam@example.com", "Sam")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if first.ID == "" {
		t.Fatal("EnsureUser returned empty ID")
	}

	second, err := repo.EnsureUser(ctx, "sam@example.com", "Sam Again")
	if err != nil {
		t.Fatalf("EnsureUser (second): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second EnsureUser ID = %s, want %s", second.ID, first.ID)
	}
	if second.Name != "Sam" {
		t.Errorf("existing user name = %s, want Sam", second.Name)
	}
}

func TestCreateAccountDefaultHandling(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	u, _ := repo.EnsureUser(ctx, "sam@example.com", "Sam")

	first, err := repo.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Checking", Type: core.Current})
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if !first.IsDefault {
		t.Error("first account should become the default")
	}

	second, err := repo.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Savings", Type: core.Saving})
	if err != nil {
		t.Fatalf("CreateAccount (second): %v", err)
	}
	if second.IsDefault {
		t.Error("second account should not be the default")
	}

	// An explicit default demotes the previous one.
	third, err := repo.CreateAccount(ctx, core.Account{UserID: u.ID, Name: "Shared", Type: core.Current, IsDefault: true})
	if err != nil {
		t.Fatalf("CreateAccount (third): %v", err)
	}
	if !third.IsDefault {
		t.Error("third account should be the default")
	}

	accounts, err := repo.ListAccounts(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListAccounts: %v", err)
	}
	defaults := 0
	for _, a := range accounts {
		if a.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		t.Errorf("found %d default accounts, want 1", defaults)
	}

	// SetDefaultAccount moves the flag.
	promoted, err := repo.SetDefaultAccount(ctx, u.ID, first.ID)
	if err != nil {
		t.Fatalf("SetDefaultAccount: %v", err)
	}
	if !promoted.IsDefault {
		t.Error("promoted account should be the default")
	}
	demoted, _ := repo.GetAccount(ctx, third.ID, u.ID)
	if demoted.IsDefault {
		t.Error("previous default should be demoted")
	}
}

func TestSetDefaultAccountUnknown(t *testing.T) {
	repo := newTestRepo(t)
	u, _ := seedUserAndAccount(t, repo, "sam@example.com")

	if _, err := repo.SetDefaultAccount(context.Background(), u.ID, "nope"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("SetDefaultAccount error = %v, want %v", err, core.ErrNotFound)
	}
}

func TestTransactionBalanceLifecycle(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u, a := seedUserAndAccount(t, repo, "sam@example.com")

	checkBalance := func(want string) {
		t.Helper()
		got, err := repo.GetAccount(ctx, a.ID, u.ID)
		if err != nil {
			t.Fatalf("GetAccount: %v", err)
		}
		if got.Balance.String() != want {
			t.Fatalf("balance = %s, want %s", got.Balance, want)
		}
	}

	income, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      u.ID,
		AccountID:   a.ID,
		Type:        core.Income,
		Amount:      amount("1000"),
		Description: "Salary",
		Date:        time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		Category:    "salary",
		Status:      core.Completed,
	})
	if err != nil {
		t.Fatalf("CreateTransaction (income): %v", err)
	}
	checkBalance("1000")

	expense, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      u.ID,
		AccountID:   a.ID,
		Type:        core.Expense,
		Amount:      amount("300.25"),
		Description: "Rent share",
		Date:        time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
		Category:    "housing",
		Status:      core.Completed,
	})
	if err != nil {
		t.Fatalf("CreateTransaction (expense): %v", err)
	}
	checkBalance("699.75")

	// Shrinking the expense gives the difference back.
	expense.Amount = amount("200.25")
	if _, err := repo.UpdateTransaction(ctx, expense); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	checkBalance("799.75")

	// Deleting reverses the remaining effect.
	if err := repo.SoftDeleteTransaction(ctx, expense.ID, u.ID); err != nil {
		t.Fatalf("SoftDeleteTransaction: %v", err)
	}
	checkBalance("1000")

	if _, err := repo.GetTransaction(ctx, expense.ID, u.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("GetTransaction after delete = %v, want %v", err, core.ErrNotFound)
	}

	list, err := repo.ListTransactions(ctx, u.ID, "")
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(list) != 1 || list[0].ID != income.ID {
		t.Errorf("ListTransactions after delete = %d rows, want only the income row", len(list))
	}
}

func TestCreateTransactionForeignAccount(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u, _ := seedUserAndAccount(t, repo, "sam@example.com")
	_, otherAccount := seedUserAndAccount(t, repo, "kim@example.com")

	_, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      u.ID,
		AccountID:   otherAccount.ID,
		Type:        core.Expense,
		Amount:      amount("10"),
		Description: "Sneaky",
		Date:        time.Now(),
		Category:    "other-expense",
		Status:      core.Completed,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("CreateTransaction on foreign account = %v, want %v", err, core.ErrNotFound)
	}
}

func createRecurringTemplate(t *testing.T, repo *SQLiteRepository, u core.User, a core.Account) core.Transaction {
	t.Helper()
	template, err := repo.CreateTransaction(context.Background(), core.Transaction{
		UserID:            u.ID,
		AccountID:         a.ID,
		Type:              core.Expense,
		Amount:            amount("9.99"),
		Description:       "Music subscription",
		Date:              time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		Category:          "entertainment",
		Status:            core.Completed,
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
		NextRecurringDate: time.Date(2024, time.February, 15, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("CreateTransaction (template): %v", err)
	}
	return template
}

func TestListDueRecurring(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u, a := seedUserAndAccount(t, repo, "sam@example.com")

	template := createRecurringTemplate(t, repo, u, a)

	// A plain transaction never shows up.
	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:      u.ID,
		AccountID:   a.ID,
		Type:        core.Expense,
		Amount:      amount("5"),
		Description: "Coffee",
		Date:        time.Date(2024, time.January, 16, 0, 0, 0, 0, time.UTC),
		Category:    "food",
		Status:      core.Completed,
	}); err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}

	// A pending template never shows up.
	if _, err := repo.CreateTransaction(ctx, core.Transaction{
		UserID:            u.ID,
		AccountID:         a.ID,
		Type:              core.Expense,
		Amount:            amount("15"),
		Description:       "Paused subscription",
		Date:              time.Date(2024, time.January, 10, 0, 0, 0, 0, time.UTC),
		Category:          "entertainment",
		Status:            core.Pending,
		IsRecurring:       true,
		RecurringInterval: core.Monthly,
		NextRecurringDate: time.Date(2024, time.January, 11, 0, 0, 0, 0, time.UTC),
	}); err != nil {
		t.Fatalf("CreateTransaction (pending): %v", err)
	}

	now := time.Date(2024, time.January, 16, 3, 0, 0, 0, time.UTC)
	due, err := repo.ListDueRecurring(ctx, now)
	if err != nil {
		t.Fatalf("ListDueRecurring: %v", err)
	}
	if len(due) != 1 || due[0].ID != template.ID {
		t.Fatalf("due rows = %d, want only the never-processed template", len(due))
	}
}

func TestApplyRecurringOccurrence(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u, a := seedUserAndAccount(t, repo, "sam@example.com")
	template := createRecurringTemplate(t, repo, u, a)

	balanceAfterTemplate, _ := repo.GetAccount(ctx, a.ID, u.ID)

	now := time.Date(2024, time.January, 16, 3, 0, 0, 0, time.UTC)
	next := time.Date(2024, time.February, 16, 3, 0, 0, 0, time.UTC)
	occurrence := core.Transaction{
		UserID:      u.ID,
		AccountID:   a.ID,
		Type:        core.Expense,
		Amount:      amount("9.99"),
		Description: "Music subscription (recurring)",
		Date:        now,
		Category:    "entertainment",
		Status:      core.Completed,
	}

	if err := repo.ApplyRecurringOccurrence(ctx, template.ID, u.ID, occurrence, next, now); err != nil {
		t.Fatalf("ApplyRecurringOccurrence: %v", err)
	}

	// Occurrence exists, balance moved once.
	list, err := repo.ListTransactions(ctx, u.ID, a.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("transactions = %d, want template plus occurrence", len(list))
	}
	account, _ := repo.GetAccount(ctx, a.ID, u.ID)
	wantBalance := balanceAfterTemplate.Balance.Sub(amount("9.99"))
	if !account.Balance.Equal(wantBalance) {
		t.Errorf("balance = %s, want %s", account.Balance, wantBalance)
	}

	// The template advanced.
	advanced, err := repo.GetTransaction(ctx, template.ID, u.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if advanced.LastProcessed.IsZero() {
		t.Error("template last_processed not set")
	}
	if !advanced.NextRecurringDate.Equal(next) {
		t.Errorf("next_recurring_date = %v, want %v", advanced.NextRecurringDate, next)
	}

	// A duplicate delivery changes nothing.
	err = repo.ApplyRecurringOccurrence(ctx, template.ID, u.ID, occurrence, next, now)
	if !errors.Is(err, core.ErrAlreadyProcessed) {
		t.Fatalf("duplicate ApplyRecurringOccurrence = %v, want %v", err, core.ErrAlreadyProcessed)
	}
	account, _ = repo.GetAccount(ctx, a.ID, u.ID)
	if !account.Balance.Equal(wantBalance) {
		t.Errorf("balance after duplicate = %s, want %s", account.Balance, wantBalance)
	}

	// The template is no longer listed as due until its next date passes.
	due, _ := repo.ListDueRecurring(ctx, now)
	if len(due) != 0 {
		t.Errorf("due rows after advance = %d, want 0", len(due))
	}
	due, _ = repo.ListDueRecurring(ctx, next.AddDate(0, 0, 1))
	if len(due) != 1 {
		t.Errorf("due rows after next date = %d, want 1", len(due))
	}
}

func TestSumExpensesInRange(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u, a := seedUserAndAccount(t, repo, "sam@example.com")

	add := func(ttype core.TransactionType, amt, day string) core.Transaction {
		t.Helper()
		d, _ := time.Parse("2006-01-02", day)
		tr, err := repo.CreateTransaction(ctx, core.Transaction{
			UserID:      u.ID,
			AccountID:   a.ID,
			Type:        ttype,
			Amount:      amount(amt),
			Description: "row",
			Date:        d,
			Category:    "other-expense",
			Status:      core.Completed,
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
		return tr
	}

	add(core.Expense, "100.10", "2024-03-05")
	add(core.Expense, "0.01", "2024-03-20")
	add(core.Income, "500", "2024-03-10")  // income excluded
	add(core.Expense, "999", "2024-02-28") // out of range

	// Deleted rows are excluded from the aggregate.
	deleted := add(core.Expense, "50", "2024-03-15")
	if err := repo.SoftDeleteTransaction(ctx, deleted.ID, u.ID); err != nil {
		t.Fatalf("SoftDeleteTransaction: %v", err)
	}

	from := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, time.March, 31, 23, 59, 59, 0, time.UTC)
	total, err := repo.SumExpensesInRange(ctx, a.ID, from, to)
	if err != nil {
		t.Fatalf("SumExpensesInRange: %v", err)
	}
	if total.String() != "100.11" {
		t.Errorf("total = %s, want 100.11", total)
	}
}

func TestBudgetUpsertPreservesAlertMarker(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	u, _ := seedUserAndAccount(t, repo, "sam@example.com")

	first, err := repo.UpsertBudget(ctx, u.ID, amount("1000"))
	if err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}

	alertAt := time.Date(2024, time.March, 20, 9, 0, 0, 0, time.UTC)
	if err := repo.SetLastAlertSent(ctx, first.ID, alertAt); err != nil {
		t.Fatalf("SetLastAlertSent: %v", err)
	}

	second, err := repo.UpsertBudget(ctx, u.ID, amount("1500"))
	if err != nil {
		t.Fatalf("UpsertBudget (second): %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert changed budget ID from %s to %s", first.ID, second.ID)
	}
	if second.Amount.String() != "1500" {
		t.Errorf("amount = %s, want 1500", second.Amount)
	}
	if !second.LastAlertSent.Equal(alertAt) {
		t.Errorf("last_alert_sent = %v, want %v preserved", second.LastAlertSent, alertAt)
	}
}

func TestSetLastAlertSentUnknownBudget(t *testing.T) {
	repo := newTestRepo(t)
	err := repo.SetLastAlertSent(context.Background(), "nope", time.Now())
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("SetLastAlertSent = %v, want %v", err, core.ErrNotFound)
	}
}

func TestListAlertCandidates(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	// User with a budget and a default account: included.
	withAccount, _ := seedUserAndAccount(t, repo, "sam@example.com")
	if _, err := repo.UpsertBudget(ctx, withAccount.ID, amount("1000")); err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}

	// User with a budget but no account: excluded.
	noAccount, err := repo.EnsureUser(ctx, "kim@example.com", "Kim")
	if err != nil {
		t.Fatalf("EnsureUser: %v", err)
	}
	if _, err := repo.UpsertBudget(ctx, noAccount.ID, amount("500")); err != nil {
		t.Fatalf("UpsertBudget: %v", err)
	}

	candidates, err := repo.ListAlertCandidates(ctx)
	if err != nil {
		t.Fatalf("ListAlertCandidates: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	c := candidates[0]
	if c.User.ID != withAccount.ID {
		t.Errorf("candidate user = %s, want %s", c.User.ID, withAccount.ID)
	}
	if !c.Account.IsDefault {
		t.Error("candidate account is not the default")
	}
	if c.Budget.Amount.String() != "1000" {
		t.Errorf("candidate budget amount = %s, want 1000", c.Budget.Amount)
	}
}
