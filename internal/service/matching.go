package service

import (
	"context"
	"errors"
	"time"

	"github.com/punchamoorthee/bankrecon/internal/auth"
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/punchamoorthee/bankrecon/internal/store"
	"github.com/shopspring/decimal"
)

// closest returns the index of the item within the amount and date tolerances of
// (amount, date) with the smallest day distance, or -1. On equal distance the earlier
// item wins.
func closest[T any](items []T, amount decimal.Decimal, date time.Time, skip func(T) bool, key func(T) (decimal.Decimal, time.Time)) int {
	best, bestDays := -1, 0
	for i, it := range items {
		if skip(it) {
			continue
		}
		a, d := key(it)
		if !domain.WithinMatchWindow(a, amount, d, date) {
			continue
		}
		if days := domain.DaysBetween(d, date); best < 0 || days < bestDays {
			best, bestDays = i, days
		}
	}
	return best
}

// planSmartMatch pairs unmatched lines with unclaimed candidates in one greedy pass over
// the lines in statement order. A candidate claimed by an earlier line is gone for the
// rest of the pass.
func planSmartMatch(lines []domain.StatementLine, cands []domain.LedgerCandidate, existing []domain.Match) []domain.Match {
	matchedLines := make(map[int64]struct{}, len(existing))
	claimed := make(map[domain.CandidateRef]struct{}, len(existing))
	for _, m := range existing {
		matchedLines[m.StatementLineID] = struct{}{}
		claimed[m.Candidate] = struct{}{}
	}

	isClaimed := func(c domain.LedgerCandidate) bool {
		_, ok := claimed[c.Ref]
		return ok
	}
	candKey := func(c domain.LedgerCandidate) (decimal.Decimal, time.Time) { return c.Amount, c.Date }

	var planned []domain.Match
	for _, line := range lines {
		if _, ok := matchedLines[line.ID]; ok || line.MatchedRef != nil {
			continue
		}
		i := closest(cands, line.Amount, line.Date, isClaimed, candKey)
		if i < 0 {
			continue
		}
		ref := cands[i].Ref
		matchedLines[line.ID] = struct{}{}
		claimed[ref] = struct{}{}
		planned = append(planned, domain.Match{StatementLineID: line.ID, Candidate: ref, AutoMatched: true})
	}
	return planned
}

// applyMatches stores ms against the reconciliation and marks each line cleared with a
// pointer to its candidate.
func (s *Service) applyMatches(ctx context.Context, tx store.Tx, actor auth.Actor, reconciliationID int64, ms []domain.Match) error {
	for i := range ms {
		ms[i].ReconciliationID = reconciliationID
		ms[i].CreatedBy = actor.ID
	}
	if err := tx.InsertMatches(ctx, ms); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return newError(ErrStateConflict, "statement line or ledger item is already matched")
		}
		return err
	}
	for _, m := range ms {
		ref := m.Candidate
		if err := tx.SetLineCleared(ctx, m.StatementLineID, true, &ref); err != nil {
			return lookupErr(err, "statement line")
		}
	}
	return nil
}

// SmartMatch automatically matches every unmatched statement line it can and returns how
// many matches it made.
func (s *Service) SmartMatch(ctx context.Context, actor auth.Actor, reconciliationID int64) (n int, err error) {
	defer s.observe(ctx, "smart_match", time.Now(), &err)
	if err := s.authorize(actor); err != nil {
		return 0, err
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		sess, err := s.lockDraft(ctx, tx, actor, reconciliationID)
		if err != nil {
			return err
		}
		lines, err := tx.StatementLines(ctx, sess.statement.ID)
		if err != nil {
			return err
		}
		existing, err := tx.Matches(ctx, reconciliationID)
		if err != nil {
			return err
		}
		cands := s.candidates(ctx, tx, actor.OrganizationID, sess.bank.CashAccountID)

		planned := planSmartMatch(lines, cands, existing)
		if err := s.applyMatches(ctx, tx, actor, reconciliationID, planned); err != nil {
			return err
		}
		n = len(planned)
		_, err = s.recompute(ctx, tx, sess)
		return err
	})
	if err != nil {
		return 0, err
	}

	matchesCreated.WithLabelValues("smart").Add(float64(n))
	s.record(ctx, actor, "smart_match", reconciliationID, map[string]any{"matched": n})
	return n, nil
}

// MatchRequest names one statement line and one ledger candidate.
type MatchRequest struct {
	ReconciliationID int64
	StatementLineID  int64
	Candidate        domain.CandidateRef
}

func (r MatchRequest) validate() error {
	if r.StatementLineID <= 0 {
		return newError(ErrValidation, "statement line is required")
	}
	if !r.Candidate.Type.Valid() {
		return newError(ErrValidation, "unknown ledger item type %q", r.Candidate.Type)
	}
	if r.Candidate.ID <= 0 {
		return newError(ErrValidation, "ledger item is required")
	}
	return nil
}

// ManualMatch matches the operator's chosen statement line to the chosen ledger item.
func (s *Service) ManualMatch(ctx context.Context, actor auth.Actor, req MatchRequest) (match *domain.Match, err error) {
	defer s.observe(ctx, "manual_match", time.Now(), &err)
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if err := req.validate(); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		sess, err := s.lockDraft(ctx, tx, actor, req.ReconciliationID)
		if err != nil {
			return err
		}
		line, err := tx.GetStatementLine(ctx, actor.OrganizationID, req.StatementLineID)
		if err != nil {
			return lookupErr(err, "statement line")
		}
		if line.StatementID != sess.statement.ID {
			return newError(ErrValidation, "statement line %d is not on this reconciliation's statement", line.ID)
		}

		existing, err := tx.Matches(ctx, req.ReconciliationID)
		if err != nil {
			return err
		}
		if line.MatchedRef != nil {
			return newError(ErrStateConflict, "statement line is already matched")
		}
		for _, m := range existing {
			if m.StatementLineID == line.ID {
				return newError(ErrStateConflict, "statement line is already matched")
			}
			if m.Candidate == req.Candidate {
				return newError(ErrStateConflict, "ledger item %s is already matched to another line", req.Candidate)
			}
		}

		cands := s.candidates(ctx, tx, actor.OrganizationID, sess.bank.CashAccountID)
		if _, ok := findCandidate(cands, req.Candidate); !ok {
			return notFound("ledger item " + req.Candidate.String())
		}

		ms := []domain.Match{{StatementLineID: line.ID, Candidate: req.Candidate, AutoMatched: false}}
		if err := s.applyMatches(ctx, tx, actor, req.ReconciliationID, ms); err != nil {
			return err
		}
		match = &ms[0]
		_, err = s.recompute(ctx, tx, sess)
		return err
	})
	if err != nil {
		return nil, err
	}

	matchesCreated.WithLabelValues("manual").Inc()
	s.record(ctx, actor, "manual_match", req.ReconciliationID, map[string]any{
		"statement_line_id": req.StatementLineID,
		"candidate":         req.Candidate.String(),
	})
	return match, nil
}

// Unmatch removes the match between the line and the ledger item and un-clears the line.
// Any match may be removed while the reconciliation is a draft.
func (s *Service) Unmatch(ctx context.Context, actor auth.Actor, req MatchRequest) (err error) {
	defer s.observe(ctx, "unmatch", time.Now(), &err)
	if err := s.authorize(actor); err != nil {
		return err
	}
	if err := req.validate(); err != nil {
		return err
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		sess, err := s.lockDraft(ctx, tx, actor, req.ReconciliationID)
		if err != nil {
			return err
		}
		n, err := tx.DeleteMatch(ctx, req.ReconciliationID, req.StatementLineID, req.Candidate)
		if err != nil {
			return err
		}
		if n == 0 {
			return notFound("match")
		}
		if err := tx.SetLineCleared(ctx, req.StatementLineID, false, nil); err != nil {
			return lookupErr(err, "statement line")
		}
		_, err = s.recompute(ctx, tx, sess)
		return err
	})
	if err != nil {
		return err
	}

	s.record(ctx, actor, "unmatch", req.ReconciliationID, map[string]any{
		"statement_line_id": req.StatementLineID,
		"candidate":         req.Candidate.String(),
	})
	return nil
}
