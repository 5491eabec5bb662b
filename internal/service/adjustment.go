package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/punchamoorthee/bankrecon/internal/auth"
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/punchamoorthee/bankrecon/internal/store"
	"github.com/shopspring/decimal"
)

type AdjustmentType string

const (
	AdjustmentFee      AdjustmentType = "fee"
	AdjustmentInterest AdjustmentType = "interest"
)

// AdjustmentRequest books a bank-only event (a fee or interest) found on the statement.
type AdjustmentRequest struct {
	ReconciliationID int64
	Type             AdjustmentType
	Amount           decimal.Decimal
	Date             time.Time
	Memo             string
}

func (r AdjustmentRequest) validate() error {
	if r.Type != AdjustmentFee && r.Type != AdjustmentInterest {
		return newError(ErrValidation, "adjustment type must be fee or interest, got %q", r.Type)
	}
	if !r.Amount.IsPositive() {
		return newError(ErrValidation, "adjustment amount must be positive")
	}
	if !r.Amount.Equal(r.Amount.Round(2)) {
		return newError(ErrValidation, "adjustment amount %s has more than two decimal places", r.Amount)
	}
	if r.Date.IsZero() {
		return newError(ErrValidation, "adjustment date is required")
	}
	return nil
}

// AdjustmentResult reports the posted entry and, if one was found, the statement line
// it was matched to.
type AdjustmentResult struct {
	JournalEntryID int64                 `json:"journal_entry_id"`
	CashLedgerLine int64                 `json:"cash_ledger_line_id"`
	CashEffect     decimal.Decimal       `json:"cash_effect"`
	MatchedLineID  *int64                `json:"matched_statement_line_id,omitempty"`
	Reconciliation domain.Reconciliation `json:"reconciliation"`
}

const adjustmentSource = "bank_reconciliation"

// adjustmentAccounts resolves the fee expense and interest income accounts. A missing
// account is an operator problem, not something a retry fixes.
func (s *Service) adjustmentAccounts(ctx context.Context, tx store.Tx, orgID int64) (fee, interest *domain.Account, err error) {
	fee, err = tx.AccountByCode(ctx, orgID, s.cfg.FeeAccountCode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, newError(ErrConfiguration, "bank fee expense account %q is not set up", s.cfg.FeeAccountCode)
	} else if err != nil {
		return nil, nil, err
	}
	interest, err = tx.AccountByCode(ctx, orgID, s.cfg.InterestAccountCode)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, newError(ErrConfiguration, "interest income account %q is not set up", s.cfg.InterestAccountCode)
	} else if err != nil {
		return nil, nil, err
	}
	return fee, interest, nil
}

// adjustmentEntry builds the two-line entry for req and returns it with the index of
// its cash line and that line's signed effect on cash.
func adjustmentEntry(req AdjustmentRequest, actor auth.Actor, cashAccountID, feeAccountID, interestAccountID int64) (je *domain.JournalEntry, cashIdx int, effect decimal.Decimal) {
	memo := strings.TrimSpace(req.Memo)
	if memo == "" {
		memo = fmt.Sprintf("Bank %s", req.Type)
	}
	je = &domain.JournalEntry{
		OrganizationID: actor.OrganizationID,
		Date:           domain.Day(req.Date),
		Memo:           memo,
		Status:         domain.EntryPosted,
		Source:         adjustmentSource,
		CreatedBy:      actor.ID,
	}

	amt := req.Amount
	switch req.Type {
	case AdjustmentFee:
		je.Lines = []domain.JournalEntryLine{
			{AccountID: feeAccountID, Debit: amt, Credit: decimal.Zero, Description: memo},
			{AccountID: cashAccountID, Debit: decimal.Zero, Credit: amt, Description: memo},
		}
		return je, 1, amt.Neg()
	default:
		je.Lines = []domain.JournalEntryLine{
			{AccountID: cashAccountID, Debit: amt, Credit: decimal.Zero, Description: memo},
			{AccountID: interestAccountID, Debit: decimal.Zero, Credit: amt, Description: memo},
		}
		return je, 0, amt
	}
}

// PostAdjustment posts a balanced journal entry for a bank fee or interest credit,
// matches its cash line to the corresponding unmatched statement line when there is
// one, and recomputes. Adjustments are posted immediately, never left as drafts.
func (s *Service) PostAdjustment(ctx context.Context, actor auth.Actor, req AdjustmentRequest) (res *AdjustmentResult, err error) {
	defer s.observe(ctx, "post_adjustment", time.Now(), &err)
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
		fee, interest, err := s.adjustmentAccounts(ctx, tx, actor.OrganizationID)
		if err != nil {
			return err
		}

		je, cashIdx, effect := adjustmentEntry(req, actor, sess.bank.CashAccountID, fee.ID, interest.ID)
		if err := je.Validate(); err != nil {
			return fmt.Errorf("adjustment entry: %w", err)
		}
		if err := tx.InsertJournalEntry(ctx, je); err != nil {
			return err
		}
		cashRef := domain.CandidateRef{Type: domain.CandidateLedgerLine, ID: je.Lines[cashIdx].ID}
		res = &AdjustmentResult{JournalEntryID: je.ID, CashEffect: effect, CashLedgerLine: cashRef.ID}

		lines, err := tx.StatementLines(ctx, sess.statement.ID)
		if err != nil {
			return err
		}
		existing, err := tx.Matches(ctx, req.ReconciliationID)
		if err != nil {
			return err
		}
		matched := make(map[int64]struct{}, len(existing))
		for _, m := range existing {
			matched[m.StatementLineID] = struct{}{}
		}
		i := closest(lines, effect, je.Date,
			func(l domain.StatementLine) bool {
				_, ok := matched[l.ID]
				return ok || l.MatchedRef != nil
			},
			func(l domain.StatementLine) (decimal.Decimal, time.Time) { return l.Amount, l.Date })
		if i >= 0 {
			ms := []domain.Match{{StatementLineID: lines[i].ID, Candidate: cashRef, AutoMatched: true}}
			if err := s.applyMatches(ctx, tx, actor, req.ReconciliationID, ms); err != nil {
				return err
			}
			res.MatchedLineID = &lines[i].ID
		}

		if _, err := s.recompute(ctx, tx, sess); err != nil {
			return err
		}
		res.Reconciliation = *sess.rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.MatchedLineID != nil {
		matchesCreated.WithLabelValues("adjustment").Inc()
	}
	s.record(ctx, actor, "post_adjustment", req.ReconciliationID, map[string]any{
		"journal_entry_id": res.JournalEntryID,
		"type":             string(req.Type),
		"amount":           req.Amount.StringFixed(2),
	})
	return res, nil
}
