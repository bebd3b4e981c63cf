package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

const transactionColumns = `id, user_id, account_id, type, amount, description, date, category, status,
	is_recurring, recurring_interval, next_recurring_date, last_processed, created_at, updated_at`

// CreateTransaction inserts a ledger entry and applies its signed amount to
// the account balance in one database transaction.
func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now()
	t.ID = uuid.NewString()
	t.CreatedAt = now
	t.UpdatedAt = now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var owned int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM accounts WHERE id = ? AND user_id = ?`,
			t.AccountID, t.UserID).Scan(&owned); err != nil {
			return fmt.Errorf("check account ownership: %w", err)
		}
		if owned == 0 {
			return fmt.Errorf("account %s: %w", t.AccountID, core.ErrNotFound)
		}
		if err := insertTransaction(ctx, tx, t); err != nil {
			return err
		}
		return applyBalanceDelta(ctx, tx, t.AccountID, t.SignedAmount(), now)
	})
	if err != nil {
		return core.Transaction{}, err
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", t.ID,
		"account_id", t.AccountID,
		"type", string(t.Type),
		"amount", t.Amount.String())

	return t, nil
}

// UpdateTransaction rewrites the mutable fields of a ledger entry and adjusts
// the account balance by the difference of signed amounts. Account and user
// are immutable after creation.
func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	now := time.Now()
	t.UpdatedAt = now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		old, err := getTransactionTx(ctx, tx, t.ID, t.UserID)
		if err != nil {
			return err
		}
		t.AccountID = old.AccountID
		t.CreatedAt = old.CreatedAt

		_, err = tx.ExecContext(ctx,
			`UPDATE transactions SET type = ?, amount = ?, description = ?, date = ?, category = ?,
				status = ?, is_recurring = ?, recurring_interval = ?, next_recurring_date = ?, updated_at = ?
			 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`,
			string(t.Type), t.Amount.String(), t.Description, fmtTime(t.Date), t.Category,
			string(t.Status), boolToInt(t.IsRecurring), nullString(string(t.RecurringInterval)),
			fmtNullTime(t.NextRecurringDate), fmtTime(now),
			t.ID, t.UserID)
		if err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}

		delta := t.SignedAmount().Sub(old.SignedAmount())
		return applyBalanceDelta(ctx, tx, old.AccountID, delta, now)
	})
	if err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// SoftDeleteTransaction marks a ledger entry deleted and reverses its signed
// amount on the account balance, atomically.
func (r *SQLiteRepository) SoftDeleteTransaction(ctx context.Context, id, userID string) error {
	now := time.Now()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		t, err := getTransactionTx(ctx, tx, id, userID)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE transactions SET deleted_at = ?, updated_at = ? WHERE id = ?`,
			fmtTime(now), fmtTime(now), id)
		if err != nil {
			return fmt.Errorf("soft delete transaction: %w", err)
		}
		return applyBalanceDelta(ctx, tx, t.AccountID, t.SignedAmount().Neg(), now)
	})
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, id, userID string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`, id, userID)
	return scanTransactionRow(row.Scan)
}

// ListTransactions returns a user's non-deleted transactions, newest first.
// accountID narrows the listing when non-empty.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, userID, accountID string) ([]core.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions
		 WHERE user_id = ? AND deleted_at IS NULL`
	args := []any{userID}
	if accountID != "" {
		query += ` AND account_id = ?`
		args = append(args, accountID)
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ListDueRecurring returns recurring templates due for processing at now:
// completed, recurring, and never processed or scheduled at or before now.
func (r *SQLiteRepository) ListDueRecurring(ctx context.Context, now time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE is_recurring = 1 AND status = 'COMPLETED' AND deleted_at IS NULL
		   AND (last_processed IS NULL OR next_recurring_date <= ?)
		 ORDER BY next_recurring_date`, fmtTime(now))
	if err != nil {
		return nil, fmt.Errorf("list due recurring transactions: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

// ApplyRecurringOccurrence performs the three writes of one recurring advance
// atomically: insert the occurrence, apply its signed amount to the balance,
// and advance the template's last_processed/next_recurring_date.
//
// The template's due-ness is re-checked against the row as stored, inside the
// transaction, so a concurrent run that already advanced it makes this call
// return core.ErrAlreadyProcessed without writing anything.
func (r *SQLiteRepository) ApplyRecurringOccurrence(ctx context.Context, templateID, userID string, occurrence core.Transaction, next, now time.Time) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		template, err := getTransactionTx(ctx, tx, templateID, userID)
		if err != nil {
			return err
		}
		if !template.Due(now) {
			return core.ErrAlreadyProcessed
		}

		occurrence.ID = uuid.NewString()
		occurrence.CreatedAt = now
		occurrence.UpdatedAt = now
		if err := insertTransaction(ctx, tx, occurrence); err != nil {
			return err
		}
		if err := applyBalanceDelta(ctx, tx, occurrence.AccountID, occurrence.SignedAmount(), now); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE transactions SET last_processed = ?, next_recurring_date = ?, updated_at = ? WHERE id = ?`,
			fmtTime(now), fmtTime(next), fmtTime(now), templateID)
		if err != nil {
			return fmt.Errorf("advance recurring template: %w", err)
		}
		return nil
	})
}

// SumExpensesInRange returns the exact sum of non-deleted EXPENSE amounts on
// an account between from and to inclusive.
func (r *SQLiteRepository) SumExpensesInRange(ctx context.Context, accountID string, from, to time.Time) (decimal.Decimal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT amount FROM transactions
		 WHERE account_id = ? AND type = 'EXPENSE' AND deleted_at IS NULL
		   AND date >= ? AND date <= ?`,
		accountID, fmtTime(from), fmtTime(to))
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum expenses: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return decimal.Zero, fmt.Errorf("scan amount: %w", err)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
		}
		total = total.Add(amount)
	}
	return total, rows.Err()
}

// ListTransactionsInRange returns a user's non-deleted transactions dated
// between from and to inclusive, across all accounts.
func (r *SQLiteRepository) ListTransactionsInRange(ctx context.Context, userID string, from, to time.Time) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE user_id = ? AND deleted_at IS NULL AND date >= ? AND date <= ?
		 ORDER BY date`, userID, fmtTime(from), fmtTime(to))
	if err != nil {
		return nil, fmt.Errorf("list transactions in range: %w", err)
	}
	defer rows.Close()
	return collectTransactions(rows)
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t core.Transaction) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (id, user_id, account_id, type, amount, description, date, category,
			status, is_recurring, recurring_interval, next_recurring_date, last_processed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.AccountID, string(t.Type), t.Amount.String(), t.Description,
		fmtTime(t.Date), t.Category, string(t.Status), boolToInt(t.IsRecurring),
		nullString(string(t.RecurringInterval)), fmtNullTime(t.NextRecurringDate),
		fmtNullTime(t.LastProcessed), fmtTime(t.CreatedAt), fmtTime(t.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func getTransactionTx(ctx context.Context, tx *sql.Tx, id, userID string) (core.Transaction, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE id = ? AND user_id = ? AND deleted_at IS NULL`, id, userID)
	return scanTransactionRow(row.Scan)
}

func collectTransactions(rows *sql.Rows) ([]core.Transaction, error) {
	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransactionRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransactionRow(scan func(dest ...any) error) (core.Transaction, error) {
	var t core.Transaction
	var typ, amount, date, status, createdAt, updatedAt string
	var interval, nextDate, lastProcessed sql.NullString
	var isRecurring int

	err := scan(&t.ID, &t.UserID, &t.AccountID, &typ, &amount, &t.Description, &date, &t.Category,
		&status, &isRecurring, &interval, &nextDate, &lastProcessed, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}

	t.Type = core.TransactionType(typ)
	t.Status = core.TransactionStatus(status)
	t.IsRecurring = isRecurring != 0
	if interval.Valid {
		t.RecurringInterval = core.RecurringInterval(interval.String)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount %q: %w", amount, err)
	}
	if t.Date, err = parseTime(date); err != nil {
		return core.Transaction{}, fmt.Errorf("parse date: %w", err)
	}
	if t.NextRecurringDate, err = parseNullTime(nextDate); err != nil {
		return core.Transaction{}, fmt.Errorf("parse next_recurring_date: %w", err)
	}
	if t.LastProcessed, err = parseNullTime(lastProcessed); err != nil {
		return core.Transaction{}, fmt.Errorf("parse last_processed: %w", err)
	}
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at: %w", err)
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Transaction{}, fmt.Errorf("parse updated_at: %w", err)
	}
	return t, nil
}
