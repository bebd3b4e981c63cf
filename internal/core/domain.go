package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "INCOME"
	Expense TransactionType = "EXPENSE"
)

const (
	Current AccountType = "CURRENT"
	Saving  AccountType = "SAVING"
)

const (
	Pending   TransactionStatus = "PENDING"
	Completed TransactionStatus = "COMPLETED"
	Failed    TransactionStatus = "FAILED"
)

const (
	Daily   RecurringInterval = "DAILY"
	Weekly  RecurringInterval = "WEEKLY"
	Monthly RecurringInterval = "MONTHLY"
	Yearly  RecurringInterval = "YEARLY"
)

type (
	TransactionType   string
	AccountType       string
	TransactionStatus string
	RecurringInterval string

	User struct {
		ID        string
		Email     string
		Name      string
		CreatedAt time.Time
	}

	Account struct {
		ID        string
		UserID    string
		Name      string
		Type      AccountType
		Balance   decimal.Decimal
		IsDefault bool
		CreatedAt time.Time
		UpdatedAt time.Time
	}

	// Transaction is a single ledger entry. Amount is a non-negative
	// magnitude; the sign is implied by Type. The recurrence fields form a
	// template: occurrences generated from it carry IsRecurring=false.
	Transaction struct {
		ID                string
		UserID            string
		AccountID         string
		Type              TransactionType
		Amount            decimal.Decimal
		Description       string
		Date              time.Time
		Category          string
		Status            TransactionStatus
		IsRecurring       bool
		RecurringInterval RecurringInterval
		NextRecurringDate time.Time
		LastProcessed     time.Time
		CreatedAt         time.Time
		UpdatedAt         time.Time
	}

	// Budget is the per-user monthly spending cap. LastAlertSent is only
	// written by the alert evaluator.
	Budget struct {
		ID            string
		UserID        string
		Amount        decimal.Decimal
		LastAlertSent time.Time
		CreatedAt     time.Time
		UpdatedAt     time.Time
	}
)

var (
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidType        = errors.New("invalid transaction type")
	ErrInvalidAccountType = errors.New("invalid account type")
	ErrInvalidInterval    = errors.New("invalid recurring interval")
	ErrMissingInterval    = errors.New("recurring transaction requires an interval")
	ErrUnexpectedInterval = errors.New("interval set on non-recurring transaction")
	ErrInvalidDate        = errors.New("date cannot be zero")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrEmptyDescription   = errors.New("empty description")
	ErrEmptyCategory      = errors.New("empty category")
	ErrEmptyName          = errors.New("empty name")
	ErrNameTooLong        = errors.New("name too long (max 100 characters)")
	ErrNotFound           = errors.New("not found")
	ErrAlreadyProcessed   = errors.New("already processed")
)

// SignedAmount returns the amount with the sign implied by the transaction
// type: positive for income, negative for expense.
func (t Transaction) SignedAmount() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// Due reports whether a recurring template should be processed at now.
// A template never processed before is always due.
func (t Transaction) Due(now time.Time) bool {
	if t.LastProcessed.IsZero() {
		return true
	}
	return !t.NextRecurringDate.After(now)
}

func (t TransactionType) Validate() error {
	switch t {
	case Income, Expense:
		return nil
	}
	return ErrInvalidType
}

func (a AccountType) Validate() error {
	switch a {
	case Current, Saving:
		return nil
	}
	return ErrInvalidAccountType
}

func (i RecurringInterval) Validate() error {
	switch i {
	case Daily, Weekly, Monthly, Yearly:
		return nil
	}
	return ErrInvalidInterval
}

func (t Transaction) Validate() error {
	if err := t.Type.Validate(); err != nil {
		return err
	}
	if !t.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if len(t.Description) > 200 {
		return ErrDescriptionTooLong
	}
	// Interval present iff recurring.
	if t.IsRecurring {
		if t.RecurringInterval == "" {
			return ErrMissingInterval
		}
		if err := t.RecurringInterval.Validate(); err != nil {
			return err
		}
	} else if t.RecurringInterval != "" {
		return ErrUnexpectedInterval
	}
	return nil
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return ErrNameTooLong
	}
	return a.Type.Validate()
}

func (b Budget) Validate() error {
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}
