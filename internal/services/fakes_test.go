package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/core"
	"fintrack/internal/storage"
)

// In-memory fakes for the store interfaces. Each one records calls so tests
// can assert on what the service wrote.

type appliedOccurrence struct {
	templateID string
	userID     string
	occurrence core.Transaction
	next       time.Time
	now        time.Time
}

type fakeRecurringStore struct {
	due          []core.Transaction
	transactions map[string]core.Transaction
	applied      []appliedOccurrence

	listErr  error
	getErr   error
	applyErr error
}

func (f *fakeRecurringStore) ListDueRecurring(_ context.Context, _ time.Time) ([]core.Transaction, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.due, nil
}

func (f *fakeRecurringStore) GetTransaction(_ context.Context, id, userID string) (core.Transaction, error) {
	if f.getErr != nil {
		return core.Transaction{}, f.getErr
	}
	t, ok := f.transactions[id]
	if !ok || t.UserID != userID {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (f *fakeRecurringStore) ApplyRecurringOccurrence(_ context.Context, templateID, userID string, occurrence core.Transaction, next, now time.Time) error {
	if f.applyErr != nil {
		return f.applyErr
	}
	f.applied = append(f.applied, appliedOccurrence{
		templateID: templateID,
		userID:     userID,
		occurrence: occurrence,
		next:       next,
		now:        now,
	})
	t := f.transactions[templateID]
	t.LastProcessed = now
	t.NextRecurringDate = next
	f.transactions[templateID] = t
	return nil
}

type publishedMessage struct {
	transactionID string
	userID        string
}

type fakePublisher struct {
	published []publishedMessage
	failFor   map[string]error
}

func (f *fakePublisher) PublishRecurringProcess(_ context.Context, transactionID, userID string) error {
	if err, ok := f.failFor[transactionID]; ok {
		return err
	}
	f.published = append(f.published, publishedMessage{transactionID: transactionID, userID: userID})
	return nil
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeSender struct {
	sent    []sentMail
	failFor map[string]error
}

func (f *fakeSender) Send(_ context.Context, to, subject, htmlBody string) error {
	if err, ok := f.failFor[to]; ok {
		return err
	}
	f.sent = append(f.sent, sentMail{to: to, subject: subject, body: htmlBody})
	return nil
}

type fakeAlertStore struct {
	candidates []storage.AlertCandidate
	expenses   map[string]decimal.Decimal // account ID -> month-to-date expense
	alertsSet  map[string]time.Time       // budget ID -> last alert marker

	listErr error
	sumErr  error
	setErr  error
}

func (f *fakeAlertStore) ListAlertCandidates(_ context.Context) ([]storage.AlertCandidate, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.candidates, nil
}

func (f *fakeAlertStore) SumExpensesInRange(_ context.Context, accountID string, _, _ time.Time) (decimal.Decimal, error) {
	if f.sumErr != nil {
		return decimal.Zero, f.sumErr
	}
	return f.expenses[accountID], nil
}

func (f *fakeAlertStore) SetLastAlertSent(_ context.Context, budgetID string, at time.Time) error {
	if f.setErr != nil {
		return f.setErr
	}
	if f.alertsSet == nil {
		f.alertsSet = make(map[string]time.Time)
	}
	f.alertsSet[budgetID] = at
	for i := range f.candidates {
		if f.candidates[i].Budget.ID == budgetID {
			f.candidates[i].Budget.LastAlertSent = at
		}
	}
	return nil
}

type rangeQuery struct {
	userID string
	from   time.Time
	to     time.Time
}

type fakeReportStore struct {
	users        []core.User
	transactions map[string][]core.Transaction // user ID -> month transactions
	queries      []rangeQuery

	listUsersErr error
	listTxErrFor map[string]error
}

func (f *fakeReportStore) ListUsers(_ context.Context) ([]core.User, error) {
	if f.listUsersErr != nil {
		return nil, f.listUsersErr
	}
	return f.users, nil
}

func (f *fakeReportStore) ListTransactionsInRange(_ context.Context, userID string, from, to time.Time) ([]core.Transaction, error) {
	if err, ok := f.listTxErrFor[userID]; ok {
		return nil, err
	}
	f.queries = append(f.queries, rangeQuery{userID: userID, from: from, to: to})
	return f.transactions[userID], nil
}

type fakeInsightSource struct {
	insights []string
	err      error
	calls    int
}

func (f *fakeInsightSource) MonthlyInsights(_ context.Context, _ core.MonthlyStats, _ string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.insights, nil
}

type fakeTransactionStore struct {
	created []core.Transaction
	updated []core.Transaction
	deleted []string

	createErr error
	updateErr error
}

func (f *fakeTransactionStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	t.ID = "tx-created"
	f.created = append(f.created, t)
	return t, nil
}

func (f *fakeTransactionStore) UpdateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if f.updateErr != nil {
		return core.Transaction{}, f.updateErr
	}
	f.updated = append(f.updated, t)
	return t, nil
}

func (f *fakeTransactionStore) SoftDeleteTransaction(_ context.Context, id, _ string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeTransactionStore) GetTransaction(_ context.Context, _, _ string) (core.Transaction, error) {
	return core.Transaction{}, errors.New("not implemented")
}

func (f *fakeTransactionStore) ListTransactions(_ context.Context, _, _ string) ([]core.Transaction, error) {
	return nil, nil
}
