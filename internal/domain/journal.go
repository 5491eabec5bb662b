package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type EntryStatus string

const (
	EntryDraft  EntryStatus = "draft"
	EntryPosted EntryStatus = "posted"
)

// JournalEntry is a double-entry posting. The sum of line debits must equal the sum of
// line credits.
type JournalEntry struct {
	ID             int64              `json:"id"`
	OrganizationID int64              `json:"organization_id"`
	Date           time.Time          `json:"date"`
	Memo           string             `json:"memo"`
	Status         EntryStatus        `json:"status"`
	Source         string             `json:"source"`
	CreatedBy      int64              `json:"created_by"`
	Lines          []JournalEntryLine `json:"lines"`
}

// JournalEntryLine is one leg of a JournalEntry. Exactly one of Debit or Credit is
// positive.
type JournalEntryLine struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
	Description string          `json:"description"`
}

var ErrUnbalancedEntry = errors.New("journal entry is not balanced")

// Totals returns the entry's debit and credit sums.
func (e *JournalEntry) Totals() (debit, credit decimal.Decimal) {
	for _, l := range e.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// Validate checks the double-entry invariant and the shape of each line.
func (e *JournalEntry) Validate() error {
	if len(e.Lines) < 2 {
		return fmt.Errorf("journal entry needs at least two lines, got %d", len(e.Lines))
	}
	for i, l := range e.Lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() {
			return fmt.Errorf("line %d: negative amount", i)
		}
		if l.Debit.IsPositive() == l.Credit.IsPositive() {
			return fmt.Errorf("line %d: exactly one of debit or credit must be set", i)
		}
	}
	debit, credit := e.Totals()
	if !debit.Equal(credit) {
		return fmt.Errorf("%w: debits %s, credits %s", ErrUnbalancedEntry, debit, credit)
	}
	return nil
}
