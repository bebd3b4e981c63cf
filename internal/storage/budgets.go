package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"fintrack/internal/core"
)

// UpsertBudget creates or replaces the user's single monthly budget amount.
// last_alert_sent is preserved on update; only the alert evaluator writes it.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, userID string, amount decimal.Decimal) (core.Budget, error) {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, user_id, amount, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE SET amount = excluded.amount, updated_at = excluded.updated_at`,
		uuid.NewString(), userID, amount.String(), fmtTime(now), fmtTime(now))
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	return r.GetBudget(ctx, userID)
}

func (r *SQLiteRepository) GetBudget(ctx context.Context, userID string) (core.Budget, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, amount, last_alert_sent, created_at, updated_at
		 FROM budgets WHERE user_id = ?`, userID)
	return scanBudgetRow(row.Scan)
}

// SetLastAlertSent records that an alert email went out for this budget.
func (r *SQLiteRepository) SetLastAlertSent(ctx context.Context, budgetID string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET last_alert_sent = ?, updated_at = ? WHERE id = ?`,
		fmtTime(at), fmtTime(at), budgetID)
	if err != nil {
		return fmt.Errorf("set last_alert_sent: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// AlertCandidate is one budget joined with its owner and the owner's default
// account, as consumed by the budget alert evaluator.
type AlertCandidate struct {
	Budget  core.Budget
	User    core.User
	Account core.Account
}

// ListAlertCandidates returns every budget whose owner has a default account.
// Budgets without one are excluded: there is no alert path for them.
func (r *SQLiteRepository) ListAlertCandidates(ctx context.Context) ([]AlertCandidate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT b.id, b.user_id, b.amount, b.last_alert_sent, b.created_at, b.updated_at,
		        u.id, u.email, u.name, u.created_at,
		        a.id, a.user_id, a.name, a.type, a.balance, a.is_default, a.created_at, a.updated_at
		 FROM budgets b
		 JOIN users u ON u.id = b.user_id
		 JOIN accounts a ON a.user_id = b.user_id AND a.is_default = 1
		 ORDER BY b.created_at`)
	if err != nil {
		return nil, fmt.Errorf("list alert candidates: %w", err)
	}
	defer rows.Close()

	var out []AlertCandidate
	for rows.Next() {
		var c AlertCandidate
		var bAmount, bCreated, bUpdated string
		var bLastAlert sql.NullString
		var uCreated string
		var aType, aBalance, aCreated, aUpdated string
		var aIsDefault int

		err := rows.Scan(
			&c.Budget.ID, &c.Budget.UserID, &bAmount, &bLastAlert, &bCreated, &bUpdated,
			&c.User.ID, &c.User.Email, &c.User.Name, &uCreated,
			&c.Account.ID, &c.Account.UserID, &c.Account.Name, &aType, &aBalance, &aIsDefault, &aCreated, &aUpdated)
		if err != nil {
			return nil, fmt.Errorf("scan alert candidate: %w", err)
		}

		if c.Budget.Amount, err = decimal.NewFromString(bAmount); err != nil {
			return nil, fmt.Errorf("parse budget amount %q: %w", bAmount, err)
		}
		if c.Budget.LastAlertSent, err = parseNullTime(bLastAlert); err != nil {
			return nil, fmt.Errorf("parse last_alert_sent: %w", err)
		}
		if c.Budget.CreatedAt, err = parseTime(bCreated); err != nil {
			return nil, fmt.Errorf("parse budget created_at: %w", err)
		}
		if c.Budget.UpdatedAt, err = parseTime(bUpdated); err != nil {
			return nil, fmt.Errorf("parse budget updated_at: %w", err)
		}
		if c.User.CreatedAt, err = parseTime(uCreated); err != nil {
			return nil, fmt.Errorf("parse user created_at: %w", err)
		}
		c.Account.Type = core.AccountType(aType)
		c.Account.IsDefault = aIsDefault != 0
		if c.Account.Balance, err = decimal.NewFromString(aBalance); err != nil {
			return nil, fmt.Errorf("parse account balance %q: %w", aBalance, err)
		}
		if c.Account.CreatedAt, err = parseTime(aCreated); err != nil {
			return nil, fmt.Errorf("parse account created_at: %w", err)
		}
		if c.Account.UpdatedAt, err = parseTime(aUpdated); err != nil {
			return nil, fmt.Errorf("parse account updated_at: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func scanBudgetRow(scan func(dest ...any) error) (core.Budget, error) {
	var b core.Budget
	var amount, createdAt, updatedAt string
	var lastAlert sql.NullString
	err := scan(&b.ID, &b.UserID, &amount, &lastAlert, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	if b.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget amount %q: %w", amount, err)
	}
	if b.LastAlertSent, err = parseNullTime(lastAlert); err != nil {
		return core.Budget{}, fmt.Errorf("parse last_alert_sent: %w", err)
	}
	if b.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget created_at: %w", err)
	}
	if b.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Budget{}, fmt.Errorf("parse budget updated_at: %w", err)
	}
	return b, nil
}
