package domain

import (
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/shopspring/decimal"
)

func date(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDaysBetween(t *testing.T) {
	assert.Equal(t, 0, DaysBetween(date("2024-01-05"), date("2024-01-05")))
	assert.Equal(t, 3, DaysBetween(date("2024-01-05"), date("2024-01-08")))
	assert.Equal(t, 3, DaysBetween(date("2024-01-08"), date("2024-01-05")))
	assert.Equal(t, 2, DaysBetween(date("2024-02-28"), date("2024-03-01")))
	assert.Equal(t, 1, DaysBetween(date("2024-01-05").Add(23*time.Hour), date("2024-01-06")))
}

func TestWithinMatchWindow(t *testing.T) {
	tests := []struct {
		name   string
		a, b   string
		da, db string
		want   bool
	}{
		{"exact", "-150.00", "-150.00", "2024-01-05", "2024-01-06", true},
		{"amount off by a cent", "100.00", "100.01", "2024-01-05", "2024-01-05", true},
		{"amount off by two cents", "100.00", "100.02", "2024-01-05", "2024-01-05", false},
		{"three days apart", "100.00", "100.00", "2024-01-05", "2024-01-08", true},
		{"four days apart", "100.00", "100.00", "2024-01-05", "2024-01-09", false},
		{"opposite sign", "100.00", "-100.00", "2024-01-05", "2024-01-05", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WithinMatchWindow(dec(tt.a), dec(tt.b), date(tt.da), date(tt.db))
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCandidateProjection(t *testing.T) {
	line := CandidateFromLedgerLine(LedgerLine{ID: 7, Debit: dec("0"), Credit: dec("25.00"), Date: date("2024-01-02")})
	assert.Equal(t, CandidateRef{Type: CandidateLedgerLine, ID: 7}, line.Ref)
	assert.True(t, line.Amount.Equal(dec("-25.00")))

	in := CandidateFromCustomerPayment(CustomerPayment{ID: 7, Amount: dec("80.00"), Customer: "Acme"})
	assert.True(t, in.Amount.Equal(dec("80.00")))
	assert.Equal(t, "Payment from Acme", in.Description)

	out := CandidateFromVendorPayment(VendorPayment{ID: 7, Amount: dec("150.00"), Vendor: "Paper Co"})
	assert.True(t, out.Amount.Equal(dec("-150.00")))

	// same id, different type: distinct keys
	seen := map[CandidateRef]struct{}{line.Ref: {}, in.Ref: {}, out.Ref: {}}
	assert.Equal(t, 3, len(seen))
}

func TestJournalEntryValidate(t *testing.T) {
	t.Run("balanced", func(t *testing.T) {
		je := JournalEntry{Lines: []JournalEntryLine{
			{AccountID: 1, Debit: dec("25.00")},
			{AccountID: 2, Credit: dec("25.00")},
		}}
		assert.NoError(t, je.Validate())
		debit, credit := je.Totals()
		assert.True(t, debit.Equal(credit))
	})

	t.Run("unbalanced", func(t *testing.T) {
		je := JournalEntry{Lines: []JournalEntryLine{
			{AccountID: 1, Debit: dec("25.00")},
			{AccountID: 2, Credit: dec("24.99")},
		}}
		assert.IsError(t, je.Validate(), ErrUnbalancedEntry)
	})

	t.Run("two-sided line", func(t *testing.T) {
		je := JournalEntry{Lines: []JournalEntryLine{
			{AccountID: 1, Debit: dec("25.00"), Credit: dec("25.00")},
			{AccountID: 2, Credit: dec("0")},
		}}
		assert.Error(t, je.Validate())
	})

	t.Run("single line", func(t *testing.T) {
		je := JournalEntry{Lines: []JournalEntryLine{{AccountID: 1, Debit: dec("1")}}}
		assert.Error(t, je.Validate())
	})
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatAmount(dec("1234.5"), "USD"))
	assert.Equal(t, "$0.01", FormatAmount(dec("0.01"), "USD"))
}
