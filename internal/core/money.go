// Package core provides the fintrack domain model: accounts, transactions,
// budgets, and the money and recurrence-date arithmetic they rely on.
//
// Monetary amounts are exact decimals throughout. Balances are never computed
// through floating point.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into an exact positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up to two decimal places. Returns ErrInvalidAmount for malformed input,
// zero, or negative values.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	d = d.Round(2)
	if !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// Percentage returns part/whole*100 rounded to two decimal places.
// Returns zero when whole is not positive.
func Percentage(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(2)
}
