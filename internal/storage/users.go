package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// EnsureUser returns the user with the given email, creating it on first
// sight. Authentication itself happens upstream; this is the "created on
// first sign-in" hook.
func (r *SQLiteRepository) EnsureUser(ctx context.Context, email, name string) (core.User, error) {
	u, err := r.getUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if err != core.ErrNotFound {
		return core.User{}, err
	}

	u = core.User{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      name,
		CreatedAt: time.Now(),
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, fmtTime(u.CreatedAt))
	if err != nil {
		// Lost a race with a concurrent first request for the same email.
		if existing, lookupErr := r.getUserByEmail(ctx, email); lookupErr == nil {
			return existing, nil
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

func (r *SQLiteRepository) GetUser(ctx context.Context, id string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`, id))
}

func (r *SQLiteRepository) getUserByEmail(ctx context.Context, email string) (core.User, error) {
	return r.scanUser(r.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE email = ?`, email))
}

// ListUsers returns every user, for batch jobs such as monthly reports.
func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]core.User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, email, name, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		var u core.User
		var createdAt string
		if err := rows.Scan(&u.ID, &u.Email, &u.Name, &createdAt); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		if u.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, fmt.Errorf("parse user created_at: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *SQLiteRepository) scanUser(row *sql.Row) (core.User, error) {
	var u core.User
	var createdAt string
	err := row.Scan(&u.ID, &u.Email, &u.Name, &createdAt)
	if err == sql.ErrNoRows {
		return core.User{}, core.ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("scan user: %w", err)
	}
	if u.CreatedAt, err = parseTime(createdAt); err != nil {
		return core.User{}, fmt.Errorf("parse user created_at: %w", err)
	}
	return u, nil
}
