package main

import (
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/punchamoorthee/bankrecon/internal/service"
	"github.com/shopspring/decimal"
)

func TestWriteDetail(t *testing.T) {
	ref := domain.CandidateRef{Type: domain.CandidateVendorPayment, ID: 4}
	d := &service.Detail{
		Reconciliation: domain.Reconciliation{
			ID:                    3,
			Status:                domain.StatusDraft,
			EndingBalancePerBank:  decimal.RequireFromString("975"),
			EndingBalancePerBooks: decimal.RequireFromString("1000"),
			Difference:            decimal.RequireFromString("-175"),
		},
		Statement:   domain.BankStatement{ID: 9, PeriodStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), PeriodEnd: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)},
		BankAccount: domain.BankAccount{Name: "Operating"},
		Lines: []domain.StatementLine{
			{ID: 1, Date: time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("-150"), Cleared: true, MatchedRef: &ref},
			{ID: 2, Date: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), Amount: decimal.RequireFromString("-25"), Description: "SERVICE FEE"},
		},
		Outstanding: domain.Outstanding{DepositsInTransit: decimal.Zero, OutstandingChecks: decimal.RequireFromString("-25")},
		UnmatchedCandidates: []domain.LedgerCandidate{
			{Ref: domain.CandidateRef{Type: domain.CandidateLedgerLine, ID: 8}, Amount: decimal.RequireFromString("1000"), Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Description: "Opening"},
		},
	}

	var sb strings.Builder
	writeDetail(&sb, d, "USD")
	out := sb.String()

	assert.Contains(t, out, "Reconciliation 3: Operating, statement 9 (2024-01-01 to 2024-01-31)")
	assert.Contains(t, out, "$975.00")
	assert.Contains(t, out, "-$175.00")
	assert.Contains(t, out, "vendor_payment/4")
	assert.Contains(t, out, "SERVICE FEE")
	assert.Contains(t, out, "Open ledger items (1)")
	assert.Contains(t, out, "ledger_line/8")
	assert.Contains(t, out, "$1,000.00")
}

func TestWriteList(t *testing.T) {
	var sb strings.Builder
	writeList(&sb, []domain.Reconciliation{
		{ID: 1, StatementID: 7, Status: domain.StatusFinalized, Difference: decimal.RequireFromString("0.25"), UpdatedAt: time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)},
	}, "EUR")
	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	assert.Equal(t, 2, len(lines))
	assert.Contains(t, lines[1], "finalized")
	assert.Contains(t, lines[1], "2024-02-01 10:00")
	assert.Contains(t, lines[1], "0,25")
}
