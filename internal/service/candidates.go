package service

import (
	"context"

	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/punchamoorthee/bankrecon/internal/store"
)

// candidates gathers everything on the books that could settle against the bank's cash
// account: posted ledger lines on the account, then customer payments, then vendor
// payments. There is no date filter, so older items stay available for manual matching.
//
// A source that fails to load is skipped and the rest are still returned. Results are
// never cached; new ledger activity can land between two calls.
func (s *Service) candidates(ctx context.Context, tx store.Tx, orgID, cashAccountID int64) []domain.LedgerCandidate {
	var out []domain.LedgerCandidate

	if lines, err := tx.PostedLedgerLines(ctx, orgID, cashAccountID); err != nil {
		s.sourceFailed(ctx, "ledger_lines", err)
	} else {
		for _, l := range lines {
			out = append(out, domain.CandidateFromLedgerLine(l))
		}
	}

	if payments, err := tx.CustomerPayments(ctx, orgID); err != nil {
		s.sourceFailed(ctx, "customer_payments", err)
	} else {
		for _, p := range payments {
			out = append(out, domain.CandidateFromCustomerPayment(p))
		}
	}

	if payments, err := tx.VendorPayments(ctx, orgID); err != nil {
		s.sourceFailed(ctx, "vendor_payments", err)
	} else {
		for _, p := range payments {
			out = append(out, domain.CandidateFromVendorPayment(p))
		}
	}

	return out
}

func (s *Service) sourceFailed(ctx context.Context, source string, err error) {
	candidateSourceFailures.WithLabelValues(source).Inc()
	s.log.WarnContext(ctx, "ledger candidate source unavailable, continuing without it", "source", source, "error", err)
}

func findCandidate(cands []domain.LedgerCandidate, ref domain.CandidateRef) (domain.LedgerCandidate, bool) {
	for _, c := range cands {
		if c.Ref == ref {
			return c, true
		}
	}
	return domain.LedgerCandidate{}, false
}

// unmatchedCandidates is candidates minus the items already claimed by matches. It never
// returns nil.
func (s *Service) unmatchedCandidates(ctx context.Context, tx store.Tx, orgID, cashAccountID int64, matches []domain.Match) []domain.LedgerCandidate {
	claimed := make(map[domain.CandidateRef]struct{}, len(matches))
	for _, m := range matches {
		claimed[m.Candidate] = struct{}{}
	}
	out := []domain.LedgerCandidate{}
	for _, c := range s.candidates(ctx, tx, orgID, cashAccountID) {
		if _, ok := claimed[c.Ref]; !ok {
			out = append(out, c)
		}
	}
	return out
}
