package service

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/shopspring/decimal"
)

func TestPostAdjustmentFee(t *testing.T) {
	f := newFixture(t, "975.00")
	f.cashEntry("2024-01-02", "1000.00", domain.EntryPosted)
	fee := f.line("2024-01-31", "-25.00")
	rec := f.create(t)
	assert.Equal(t, "-50.00", rec.Difference.StringFixed(2))

	res, err := f.svc.PostAdjustment(f.ctx, finance, AdjustmentRequest{
		ReconciliationID: rec.ID,
		Type:             AdjustmentFee,
		Amount:           dec("25.00"),
		Date:             day("2024-01-31"),
	})
	assert.NoError(t, err)
	assert.Equal(t, "-25.00", res.CashEffect.StringFixed(2))
	assert.NotZero(t, res.MatchedLineID)
	assert.Equal(t, fee.ID, *res.MatchedLineID)
	assert.Equal(t, "975.00", res.Reconciliation.EndingBalancePerBooks.StringFixed(2))
	assert.Equal(t, "0.00", res.Reconciliation.Difference.StringFixed(2))

	var je domain.JournalEntry
	for _, e := range f.st.JournalEntries() {
		if e.ID == res.JournalEntryID {
			je = e
		}
	}
	assert.Equal(t, domain.EntryPosted, je.Status)
	assert.Equal(t, "Bank fee", je.Memo)
	assert.Equal(t, "bank_reconciliation", je.Source)
	assert.Equal(t, finance.ID, je.CreatedBy)
	debits, credits := je.Totals()
	assert.True(t, debits.Equal(credits))
	assert.True(t, debits.Equal(dec("25")))
	for _, l := range je.Lines {
		if l.AccountID == f.cash.ID {
			assert.Equal(t, res.CashLedgerLine, l.ID)
			assert.True(t, l.Credit.Equal(dec("25")))
		}
	}

	d := f.detail(t, rec.ID)
	assert.Equal(t, 1, len(d.Matches))
	assert.Equal(t, domain.CandidateRef{Type: domain.CandidateLedgerLine, ID: res.CashLedgerLine}, d.Matches[0].Candidate)
	assert.True(t, d.Matches[0].AutoMatched)
	assert.True(t, lineByID(d, fee.ID).Cleared)
	for _, c := range d.UnmatchedCandidates {
		assert.NotEqual(t, res.CashLedgerLine, c.Ref.ID)
	}

	_, err = f.svc.Finalize(f.ctx, finance, rec.ID)
	assert.NoError(t, err)
}

func TestPostAdjustmentInterestWithoutLine(t *testing.T) {
	f := newFixture(t, "1000.00")
	f.cashEntry("2024-01-02", "1000.00", domain.EntryPosted)
	f.line("2024-01-20", "-2.50") // wrong sign for interest
	rec := f.create(t)

	res, err := f.svc.PostAdjustment(f.ctx, finance, AdjustmentRequest{
		ReconciliationID: rec.ID,
		Type:             AdjustmentInterest,
		Amount:           dec("2.50"),
		Date:             day("2024-01-20"),
		Memo:             "  January interest ",
	})
	assert.NoError(t, err)
	assert.Zero(t, res.MatchedLineID)
	assert.Equal(t, "2.50", res.CashEffect.StringFixed(2))
	assert.Equal(t, "1002.50", res.Reconciliation.EndingBalancePerBooks.StringFixed(2))
	// bank 1000 + checks -2.50 - books 1002.50
	assert.Equal(t, "-5.00", res.Reconciliation.Difference.StringFixed(2))

	entries := f.st.JournalEntries()
	je := entries[len(entries)-1]
	assert.Equal(t, "January interest", je.Memo)
	assert.Equal(t, f.cash.ID, je.Lines[0].AccountID)
	assert.True(t, je.Lines[0].Debit.Equal(dec("2.50")))
	assert.Equal(t, 0, len(f.detail(t, rec.ID).Matches))
}

func TestPostAdjustmentPicksClosestUnmatchedLine(t *testing.T) {
	f := newFixture(t, "0")
	early := f.line("2024-01-27", "-10.00")
	near := f.line("2024-01-30", "-10.00")
	taken := f.line("2024-01-31", "-10.00")
	vp := f.vendorPayment("2024-01-31", "10.00")
	rec := f.create(t)

	_, err := f.svc.ManualMatch(f.ctx, finance, MatchRequest{
		ReconciliationID: rec.ID,
		StatementLineID:  taken.ID,
		Candidate:        domain.CandidateRef{Type: domain.CandidateVendorPayment, ID: vp.ID},
	})
	assert.NoError(t, err)

	res, err := f.svc.PostAdjustment(f.ctx, finance, AdjustmentRequest{
		ReconciliationID: rec.ID,
		Type:             AdjustmentFee,
		Amount:           dec("10.00"),
		Date:             day("2024-01-31"),
	})
	assert.NoError(t, err)
	assert.Equal(t, near.ID, *res.MatchedLineID)
	assert.False(t, lineByID(f.detail(t, rec.ID), early.ID).Cleared)
}

func TestPostAdjustmentMissingAccount(t *testing.T) {
	f := newFixture(t, "1000.00")
	rec := f.create(t)
	svc := New(f.st, f.events, nil, Config{FeeAccountCode: "9999", InterestAccountCode: f.intCode})

	before := len(f.st.JournalEntries())
	_, err := svc.PostAdjustment(f.ctx, finance, AdjustmentRequest{
		ReconciliationID: rec.ID,
		Type:             AdjustmentFee,
		Amount:           dec("25.00"),
		Date:             day("2024-01-31"),
	})
	assert.IsError(t, err, ErrConfiguration)
	assert.Equal(t, "configuration", KindOf(err))
	assert.Equal(t, before, len(f.st.JournalEntries()))
}

func TestPostAdjustmentValidation(t *testing.T) {
	f := newFixture(t, "1000.00")
	rec := f.create(t)
	valid := AdjustmentRequest{ReconciliationID: rec.ID, Type: AdjustmentFee, Amount: dec("1"), Date: day("2024-01-31")}

	tests := []struct {
		name   string
		mutate func(*AdjustmentRequest)
		kind   error
	}{
		{"zero amount", func(r *AdjustmentRequest) { r.Amount = decimal.Zero }, ErrValidation},
		{"negative amount", func(r *AdjustmentRequest) { r.Amount = dec("-5") }, ErrValidation},
		{"rounds to zero", func(r *AdjustmentRequest) { r.Amount = dec("0.004") }, ErrValidation},
		{"sub-cent amount", func(r *AdjustmentRequest) { r.Amount = dec("10.005") }, ErrValidation},
		{"unknown type", func(r *AdjustmentRequest) { r.Type = "refund" }, ErrValidation},
		{"missing date", func(r *AdjustmentRequest) { r.Date = day("0001-01-01") }, ErrValidation},
		{"unknown reconciliation", func(r *AdjustmentRequest) { r.ReconciliationID = 404 }, ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			_, err := f.svc.PostAdjustment(f.ctx, finance, req)
			assert.IsError(t, err, tt.kind)
		})
	}

	_, err := f.svc.PostAdjustment(f.ctx, viewer, valid)
	assert.IsError(t, err, ErrUnauthorized)
	assert.Equal(t, 0, len(f.st.JournalEntries()))
}
