package service

import (
	"testing"

	"github.com/alecthomas/assert/v2"
	"github.com/punchamoorthee/bankrecon/internal/domain"
)

func TestFinalizeGuard(t *testing.T) {
	tests := []struct {
		bank string
		ok   bool
	}{
		{"1000.00", true},
		{"1000.50", true},
		{"999.50", true},
		{"1000.51", false},
		{"999.49", false},
	}
	for _, tt := range tests {
		t.Run(tt.bank, func(t *testing.T) {
			f := newFixture(t, tt.bank)
			f.cashEntry("2024-01-10", "1000.00", domain.EntryPosted)
			rec := f.create(t)

			got, err := f.svc.Finalize(f.ctx, finance, rec.ID)
			if !tt.ok {
				assert.IsError(t, err, ErrBusinessRule)
				assert.True(t, f.detail(t, rec.ID).Reconciliation.IsDraft())
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, domain.StatusFinalized, got.Status)
			assert.Equal(t, finance.ID, *got.FinalizedBy)
			assert.Equal(t, clock, *got.FinalizedAt)
		})
	}
}

func TestFinalizeRecomputesFirst(t *testing.T) {
	f := newFixture(t, "1100.00")
	f.cashEntry("2024-01-10", "1000.00", domain.EntryPosted)
	rec := f.create(t)
	assert.Equal(t, "100.00", rec.Difference.StringFixed(2))

	// Posted after the reconciliation was opened; no recalc in between.
	f.cashEntry("2024-01-25", "100.00", domain.EntryPosted)

	got, err := f.svc.Finalize(f.ctx, finance, rec.ID)
	assert.NoError(t, err)
	assert.Equal(t, "1100.00", got.EndingBalancePerBooks.StringFixed(2))
	assert.Equal(t, "0.00", got.Difference.StringFixed(2))
}

func TestFinalizeIsTerminal(t *testing.T) {
	f := newFixture(t, "0")
	rec := f.create(t)

	_, err := f.svc.Finalize(f.ctx, finance, rec.ID)
	assert.NoError(t, err)

	_, err = f.svc.Finalize(f.ctx, finance, rec.ID)
	assert.IsError(t, err, ErrStateConflict)

	_, err = f.svc.Recalc(f.ctx, finance, rec.ID)
	assert.IsError(t, err, ErrStateConflict)

	d := f.detail(t, rec.ID)
	assert.False(t, d.Reconciliation.IsDraft())

	var actions []string
	for _, e := range f.events.Events() {
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"create", "finalize"}, actions)

	_, err = f.svc.Finalize(f.ctx, viewer, rec.ID)
	assert.IsError(t, err, ErrUnauthorized)
	_, err = f.svc.Finalize(f.ctx, outside, rec.ID)
	assert.IsError(t, err, ErrNotFound)
}

func TestOutstanding(t *testing.T) {
	lines := []domain.StatementLine{
		{Amount: dec("120.00")},
		{Amount: dec("-45.10")},
		{Amount: dec("-4.90")},
		{Amount: dec("0")},
		{Amount: dec("300.00"), Cleared: true},
		{Amount: dec("-300.00"), Cleared: true},
	}
	o := Outstanding(lines)
	assert.Equal(t, "120.00", o.DepositsInTransit.StringFixed(2))
	assert.Equal(t, "-50.00", o.OutstandingChecks.StringFixed(2))
	assert.Equal(t, "70.00", Difference(dec("1000"), dec("1000"), o).StringFixed(2))

	empty := Outstanding(nil)
	assert.True(t, empty.DepositsInTransit.IsZero())
	assert.True(t, empty.OutstandingChecks.IsZero())
}
