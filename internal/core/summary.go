package core

import "github.com/shopspring/decimal"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category string
	Amount   decimal.Decimal
}

// MonthlyStats summarizes one calendar month of a user's activity.
type MonthlyStats struct {
	TotalIncome      decimal.Decimal
	TotalExpense     decimal.Decimal
	ByCategory       []CategoryAmount // expense totals, sorted by category name
	TransactionCount int
}

// Net returns income minus expenses.
func (s MonthlyStats) Net() decimal.Decimal {
	return s.TotalIncome.Sub(s.TotalExpense)
}
