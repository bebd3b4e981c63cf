package services

import (
	"context"
	"fmt"

	"fintrack/internal/core"
)

// AccountService manages a user's accounts.
type AccountService struct {
	store AccountStore
}

func NewAccountService(store AccountStore) *AccountService {
	return &AccountService{store: store}
}

// Create validates and persists a new account. The repository makes the
// user's first account the default and keeps at most one default per user.
func (s *AccountService) Create(ctx context.Context, a core.Account) (core.Account, error) {
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	created, err := s.store.CreateAccount(ctx, a)
	if err != nil {
		return core.Account{}, fmt.Errorf("create account: %w", err)
	}
	return created, nil
}

func (s *AccountService) Get(ctx context.Context, id, userID string) (core.Account, error) {
	return s.store.GetAccount(ctx, id, userID)
}

func (s *AccountService) List(ctx context.Context, userID string) ([]core.Account, error) {
	return s.store.ListAccounts(ctx, userID)
}

// SetDefault promotes the given account to the user's default.
func (s *AccountService) SetDefault(ctx context.Context, userID, accountID string) (core.Account, error) {
	return s.store.SetDefaultAccount(ctx, userID, accountID)
}
