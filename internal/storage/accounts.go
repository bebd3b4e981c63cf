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

const accountColumns = `id, user_id, name, type, balance, is_default, created_at, updated_at`

// CreateAccount inserts a new account. The first account a user creates
// becomes the default; an explicit default demotes any previous one inside
// the same transaction so at most one default exists per user.
func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	now := time.Now()
	a.ID = uuid.NewString()
	a.CreatedAt = now
	a.UpdatedAt = now

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var existing int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM accounts WHERE user_id = ?`, a.UserID).Scan(&existing); err != nil {
			return fmt.Errorf("count accounts: %w", err)
		}
		if existing == 0 {
			a.IsDefault = true
		}
		if a.IsDefault {
			if _, err := tx.ExecContext(ctx,
				`UPDATE accounts SET is_default = 0, updated_at = ? WHERE user_id = ? AND is_default = 1`,
				fmtTime(now), a.UserID); err != nil {
				return fmt.Errorf("clear default accounts: %w", err)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (id, user_id, name, type, balance, is_default, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.UserID, a.Name, string(a.Type), a.Balance.String(), boolToInt(a.IsDefault),
			fmtTime(a.CreatedAt), fmtTime(a.UpdatedAt))
		if err != nil {
			return fmt.Errorf("insert account: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return a, nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, id, userID string) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	return scanAccountRow(row.Scan)
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = ? ORDER BY created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccountRow(rows.Scan)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// SetDefaultAccount makes the given account the user's default, demoting any
// other account atomically.
func (r *SQLiteRepository) SetDefaultAccount(ctx context.Context, userID, accountID string) (core.Account, error) {
	now := time.Now()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM accounts WHERE id = ? AND user_id = ?`, accountID, userID).Scan(&exists); err != nil {
			return fmt.Errorf("check account: %w", err)
		}
		if exists == 0 {
			return core.ErrNotFound
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET is_default = 0, updated_at = ? WHERE user_id = ? AND is_default = 1`,
			fmtTime(now), userID); err != nil {
			return fmt.Errorf("clear default accounts: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE accounts SET is_default = 1, updated_at = ? WHERE id = ?`,
			fmtTime(now), accountID); err != nil {
			return fmt.Errorf("set default account: %w", err)
		}
		return nil
	})
	if err != nil {
		return core.Account{}, err
	}
	return r.GetAccount(ctx, accountID, userID)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanAccountRow(scan func(dest ...any) error) (core.Account, error) {
	var a core.Account
	var typ, balance, createdAt, updatedAt string
	var isDefault int
	err := scan(&a.ID, &a.UserID, &a.Name, &typ, &balance, &isDefault, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return core.Account{}, core.ErrNotFound
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("scan account: %w", err)
	}
	a.Type = core.AccountType(typ)
	a.IsDefault = isDefault != 0
	if a.Balance, err = decimal.NewFromString(balance); err != nil {
		return core.Account{}, fmt.Errorf("parse balance %q: %w", balance, err)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.Account{}, fmt.Errorf("parse account created_at: %w", err)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return core.Account{}, fmt.Errorf("parse account updated_at: %w", err)
	}
	return a, nil
}
