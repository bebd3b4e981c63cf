package core

import "time"

// NextRecurringDate returns the date one interval after from.
//
// Month and year steps preserve the day-of-month where the target month has
// it, clamping to the last valid day otherwise (Jan 31 + MONTHLY lands on the
// last day of February; Feb 29 + YEARLY lands on Feb 28).
func NextRecurringDate(from time.Time, interval RecurringInterval) time.Time {
	switch interval {
	case Daily:
		return from.AddDate(0, 0, 1)
	case Weekly:
		return from.AddDate(0, 0, 7)
	case Monthly:
		return addMonthsClamped(from, 1)
	case Yearly:
		return addYearsClamped(from, 1)
	}
	return from
}

// addMonthsClamped advances by whole months without the normalization
// time.AddDate applies (Jan 31 + 1 month must not become March 2/3).
func addMonthsClamped(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	m := int(month) + months
	year += (m - 1) / 12
	m = (m-1)%12 + 1
	if m < 1 {
		m += 12
		year--
	}
	if last := daysIn(year, time.Month(m)); day > last {
		day = last
	}
	return time.Date(year, time.Month(m), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func addYearsClamped(t time.Time, years int) time.Time {
	year, month, day := t.Date()
	year += years
	if last := daysIn(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthStart returns midnight on the first day of t's calendar month.
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// MonthEnd returns the last instant of t's calendar month.
func MonthEnd(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, 1, 0).Add(-time.Nanosecond)
}

// PreviousMonth returns midnight on the first day of the month before t's.
func PreviousMonth(t time.Time) time.Time {
	return MonthStart(t).AddDate(0, -1, 0)
}

// SameMonth reports whether a and b fall in the same calendar month and year.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
