// Package storage persists the fintrack domain model in SQLite.
//
// Monetary columns hold canonical decimal strings and are summed in Go with
// exact decimals. Every write that touches both a transaction row and its
// account balance runs inside one SQLite transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"fintrack/internal/core"
)

// timeLayout is fixed-width UTC so that lexicographic comparison in SQL
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// withTx runs fn inside a database transaction, rolling back on error.
func (r *SQLiteRepository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// applyBalanceDelta increments an account's stored balance by a signed delta
// within the caller's transaction. It never recomputes the balance from the
// ledger on this path.
func applyBalanceDelta(ctx context.Context, tx *sql.Tx, accountID string, delta decimal.Decimal, now time.Time) error {
	var raw string
	err := tx.QueryRowContext(ctx, `SELECT balance FROM accounts WHERE id = ?`, accountID).Scan(&raw)
	if err == sql.ErrNoRows {
		return fmt.Errorf("account %s: %w", accountID, core.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("read balance: %w", err)
	}
	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return fmt.Errorf("parse stored balance %q: %w", raw, err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, updated_at = ? WHERE id = ?`,
		balance.Add(delta).String(), fmtTime(now), accountID)
	if err != nil {
		return fmt.Errorf("update balance: %w", err)
	}
	return nil
}

func fmtTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func fmtNullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: fmtTime(t), Valid: true}
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Tolerate plain RFC3339 written by external tooling.
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t, err
}

func parseNullTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid {
		return time.Time{}, nil
	}
	return parseTime(ns.String)
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
