package domain

import (
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	// AmountTolerance is how far apart two amounts may be and still match.
	AmountTolerance = decimal.RequireFromString("0.01")
	// FinalizeTolerance absorbs residual rounding when finalizing.
	FinalizeTolerance = decimal.RequireFromString("0.50")
)

// DateToleranceDays is the widest date gap, in days, for an automatic match.
const DateToleranceDays = 3

// Day truncates t to a UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the absolute number of calendar days between a and b.
func DaysBetween(a, b time.Time) int {
	n := int(Day(a).Sub(Day(b)).Hours() / 24)
	if n < 0 {
		return -n
	}
	return n
}

// AmountsMatch reports whether a and b are within AmountTolerance of each other.
func AmountsMatch(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(AmountTolerance)
}

// WithinMatchWindow reports whether amount and date are both inside the automatic
// matching tolerances.
func WithinMatchWindow(amountA, amountB decimal.Decimal, dateA, dateB time.Time) bool {
	return AmountsMatch(amountA, amountB) && DaysBetween(dateA, dateB) <= DateToleranceDays
}

// FormatAmount renders a decimal amount in the given ISO currency, e.g. "$1,234.50".
func FormatAmount(d decimal.Decimal, currency string) string {
	cur := money.New(0, currency).Currency()
	return cur.Formatter().Format(d.Shift(int32(cur.Fraction)).Round(0).IntPart())
}
