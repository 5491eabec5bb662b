package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/shopspring/decimal"
)

func seed(t *testing.T) (*Memory, domain.BankStatement, domain.StatementLine) {
	t.Helper()
	m := NewMemory()
	cash := m.AddAccount(domain.Account{OrganizationID: 1, Code: "1010"})
	bank := m.AddBankAccount(domain.BankAccount{OrganizationID: 1, CashAccountID: cash.ID})
	st := m.AddStatement(domain.BankStatement{OrganizationID: 1, BankAccountID: bank.ID, PeriodEnd: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)})
	line := m.AddStatementLine(domain.StatementLine{StatementID: st.ID, Amount: decimal.RequireFromString("-10")})
	return m, st, line
}

func TestMemoryRollsBackOnError(t *testing.T) {
	m, st, line := seed(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := m.InTx(ctx, func(tx Tx) error {
		rec := &domain.Reconciliation{OrganizationID: 1, StatementID: st.ID, Status: domain.StatusDraft}
		assert.NoError(t, tx.CreateReconciliation(ctx, rec))
		assert.NoError(t, tx.SetLineCleared(ctx, line.ID, true, nil))
		return boom
	})
	assert.IsError(t, err, boom)

	err = m.ReadTx(ctx, func(tx Tx) error {
		_, err := tx.ReconciliationByStatement(ctx, 1, st.ID)
		assert.IsError(t, err, ErrNotFound)
		l, err := tx.GetStatementLine(ctx, 1, line.ID)
		assert.NoError(t, err)
		assert.False(t, l.Cleared)
		return nil
	})
	assert.NoError(t, err)
}

func TestMemoryUniqueMatches(t *testing.T) {
	m, st, line := seed(t)
	other := m.AddStatementLine(domain.StatementLine{StatementID: st.ID, Amount: decimal.RequireFromString("-10")})
	ctx := context.Background()
	ref := domain.CandidateRef{Type: domain.CandidateVendorPayment, ID: 1}

	var recID int64
	assert.NoError(t, m.InTx(ctx, func(tx Tx) error {
		rec := &domain.Reconciliation{OrganizationID: 1, StatementID: st.ID, Status: domain.StatusDraft}
		if err := tx.CreateReconciliation(ctx, rec); err != nil {
			return err
		}
		recID = rec.ID
		return tx.InsertMatches(ctx, []domain.Match{{ReconciliationID: rec.ID, StatementLineID: line.ID, Candidate: ref}})
	}))

	tests := []struct {
		name  string
		match domain.Match
		err   error
	}{
		{"same line", domain.Match{ReconciliationID: recID, StatementLineID: line.ID, Candidate: domain.CandidateRef{Type: domain.CandidateLedgerLine, ID: 1}}, ErrDuplicate},
		{"same candidate", domain.Match{ReconciliationID: recID, StatementLineID: other.ID, Candidate: ref}, ErrDuplicate},
		{"same id, other type", domain.Match{ReconciliationID: recID, StatementLineID: other.ID, Candidate: domain.CandidateRef{Type: domain.CandidateCustomerPayment, ID: 1}}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.InTx(ctx, func(tx Tx) error {
				return tx.InsertMatches(ctx, []domain.Match{tt.match})
			})
			if tt.err != nil {
				assert.IsError(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	assert.NoError(t, m.InTx(ctx, func(tx Tx) error {
		err := tx.CreateReconciliation(ctx, &domain.Reconciliation{OrganizationID: 1, StatementID: st.ID})
		assert.IsError(t, err, ErrDuplicate)
		return nil
	}))
}

func TestMemoryReadTxIsReadOnly(t *testing.T) {
	m, _, line := seed(t)
	ctx := context.Background()
	err := m.ReadTx(ctx, func(tx Tx) error {
		return tx.SetLineCleared(ctx, line.ID, true, nil)
	})
	assert.IsError(t, err, ErrReadOnly)
}

func TestMemoryBooksBalance(t *testing.T) {
	m, _, _ := seed(t)
	ctx := context.Background()
	entry := func(date string, status domain.EntryStatus, debit, credit string) {
		d, _ := time.Parse("2006-01-02", date)
		m.AddJournalEntry(domain.JournalEntry{
			OrganizationID: 1,
			Date:           d,
			Status:         status,
			Lines: []domain.JournalEntryLine{
				{AccountID: 1, Debit: decimal.RequireFromString(debit), Credit: decimal.RequireFromString(credit)},
				{AccountID: 99, Debit: decimal.RequireFromString(credit), Credit: decimal.RequireFromString(debit)},
			},
		})
	}
	entry("2024-01-03", domain.EntryPosted, "500", "0")
	entry("2024-01-31", domain.EntryPosted, "0", "120.50")
	entry("2024-01-15", domain.EntryDraft, "1000", "0")
	entry("2024-02-01", domain.EntryPosted, "75", "0")

	asOf := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, m.ReadTx(ctx, func(tx Tx) error {
		bal, err := tx.BooksBalance(ctx, 1, 1, asOf)
		assert.NoError(t, err)
		assert.Equal(t, "379.50", bal.StringFixed(2))

		lines, err := tx.PostedLedgerLines(ctx, 1, 1)
		assert.NoError(t, err)
		assert.Equal(t, 3, len(lines))
		assert.Equal(t, "JE-1", lines[0].Reference)
		return nil
	}))
}

func TestMemoryOrdersLargeIDs(t *testing.T) {
	m, st, first := seed(t)
	ctx := context.Background()
	d := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)
	big := m.AddStatementLine(domain.StatementLine{ID: 5_000_000_000, StatementID: st.ID, Date: d, Amount: decimal.RequireFromString("1")})
	small := m.AddStatementLine(domain.StatementLine{StatementID: st.ID, Date: d, Amount: decimal.RequireFromString("2")})
	assert.Equal(t, int64(5_000_000_001), small.ID)

	huge := m.AddVendorPayment(1, domain.VendorPayment{ID: 1 << 40, Date: d, Amount: decimal.RequireFromString("3")})
	low := m.AddVendorPayment(1, domain.VendorPayment{ID: 3, Date: d, Amount: decimal.RequireFromString("4")})

	assert.NoError(t, m.ReadTx(ctx, func(tx Tx) error {
		lines, err := tx.StatementLines(ctx, st.ID)
		assert.NoError(t, err)
		ids := make([]int64, len(lines))
		for i, l := range lines {
			ids[i] = l.ID
		}
		// first has a zero date, so it sorts ahead of the dated lines.
		assert.Equal(t, []int64{first.ID, big.ID, small.ID}, ids)

		vps, err := tx.VendorPayments(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, 2, len(vps))
		assert.Equal(t, low.ID, vps[0].ID)
		assert.Equal(t, huge.ID, vps[1].ID)
		return nil
	}))
}
