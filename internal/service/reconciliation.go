package service

import (
	"context"
	"errors"
	"time"

	"github.com/punchamoorthee/bankrecon/internal/auth"
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/punchamoorthee/bankrecon/internal/store"
)

// recompute derives the books balance and difference from current data and saves them.
// With no change in between, two calls give the same numbers.
func (s *Service) recompute(ctx context.Context, tx store.Tx, sess *session) (domain.Balances, error) {
	books, err := tx.BooksBalance(ctx, sess.rec.OrganizationID, sess.bank.CashAccountID, sess.statement.PeriodEnd)
	if err != nil {
		return domain.Balances{}, err
	}
	lines, err := tx.StatementLines(ctx, sess.statement.ID)
	if err != nil {
		return domain.Balances{}, err
	}

	out := Outstanding(lines)
	diff := Difference(sess.rec.EndingBalancePerBank, books, out)
	now := s.now()
	if err := tx.SaveBalances(ctx, sess.rec.ID, books, diff, now); err != nil {
		return domain.Balances{}, lookupErr(err, "reconciliation")
	}

	sess.rec.EndingBalancePerBooks = books
	sess.rec.Difference = diff
	sess.rec.UpdatedAt = now
	return domain.Balances{
		EndingBalancePerBank:  sess.rec.EndingBalancePerBank,
		EndingBalancePerBooks: books,
		Outstanding:           out,
		Difference:            diff,
	}, nil
}

// CreateReconciliation opens the reconciliation for a statement. A statement gets at
// most one.
func (s *Service) CreateReconciliation(ctx context.Context, actor auth.Actor, statementID int64) (rec *domain.Reconciliation, err error) {
	defer s.observe(ctx, "create_reconciliation", time.Now(), &err)
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if statementID <= 0 {
		return nil, newError(ErrValidation, "statement is required")
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		st, err := tx.LockStatement(ctx, actor.OrganizationID, statementID)
		if err != nil {
			return lookupErr(err, "bank statement")
		}
		if _, err := tx.ReconciliationByStatement(ctx, actor.OrganizationID, statementID); err == nil {
			return newError(ErrStateConflict, "statement %d already has a reconciliation", statementID)
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		bank, err := tx.GetBankAccount(ctx, actor.OrganizationID, st.BankAccountID)
		if err != nil {
			return lookupErr(err, "bank account")
		}

		rec = &domain.Reconciliation{
			OrganizationID:       actor.OrganizationID,
			StatementID:          st.ID,
			Status:               domain.StatusDraft,
			EndingBalancePerBank: st.EndingBalance,
			CreatedBy:            actor.ID,
		}
		if err := tx.CreateReconciliation(ctx, rec); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return newError(ErrStateConflict, "statement %d already has a reconciliation", statementID)
			}
			return err
		}
		_, err = s.recompute(ctx, tx, &session{rec: rec, statement: st, bank: bank})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, actor, "create", rec.ID, map[string]any{"statement_id": statementID})
	return rec, nil
}

// Recalc recomputes the books balance and difference on a draft reconciliation.
func (s *Service) Recalc(ctx context.Context, actor auth.Actor, reconciliationID int64) (bal domain.Balances, err error) {
	defer s.observe(ctx, "recalc", time.Now(), &err)
	if err := s.authorize(actor); err != nil {
		return domain.Balances{}, err
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		sess, err := s.lockDraft(ctx, tx, actor, reconciliationID)
		if err != nil {
			return err
		}
		bal, err = s.recompute(ctx, tx, sess)
		return err
	})
	if err != nil {
		return domain.Balances{}, err
	}
	return bal, nil
}

// ClearResult is the line after a clear toggle and, when the statement is being
// reconciled, the recomputed reconciliation.
type ClearResult struct {
	Line           domain.StatementLine   `json:"line"`
	Reconciliation *domain.Reconciliation `json:"reconciliation,omitempty"`
}

// MarkCleared sets a statement line's cleared flag by hand. A matched line cannot be
// un-cleared this way; unmatch it instead.
func (s *Service) MarkCleared(ctx context.Context, actor auth.Actor, lineID int64, cleared bool) (res *ClearResult, err error) {
	defer s.observe(ctx, "mark_cleared", time.Now(), &err)
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if lineID <= 0 {
		return nil, newError(ErrValidation, "statement line is required")
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		line, err := tx.GetStatementLine(ctx, actor.OrganizationID, lineID)
		if err != nil {
			return lookupErr(err, "statement line")
		}

		// The statement lock orders this against CreateReconciliation.
		if _, err := tx.LockStatement(ctx, actor.OrganizationID, line.StatementID); err != nil {
			return lookupErr(err, "bank statement")
		}
		var sess *session
		rec, err := tx.ReconciliationByStatement(ctx, actor.OrganizationID, line.StatementID)
		switch {
		case err == nil:
			if sess, err = s.lockDraft(ctx, tx, actor, rec.ID); err != nil {
				return err
			}
			// Re-read under the lock.
			if line, err = tx.GetStatementLine(ctx, actor.OrganizationID, lineID); err != nil {
				return lookupErr(err, "statement line")
			}
		case !errors.Is(err, store.ErrNotFound):
			return err
		}

		if !cleared && line.MatchedRef != nil {
			return newError(ErrBusinessRule, "statement line is matched to %s; unmatch it instead of un-clearing", line.MatchedRef)
		}
		if err := tx.SetLineCleared(ctx, line.ID, cleared, line.MatchedRef); err != nil {
			return lookupErr(err, "statement line")
		}
		line.Cleared = cleared
		res = &ClearResult{Line: *line}

		if sess != nil {
			if _, err := s.recompute(ctx, tx, sess); err != nil {
				return err
			}
			res.Reconciliation = sess.rec
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if res.Reconciliation != nil {
		s.record(ctx, actor, "mark_cleared", res.Reconciliation.ID, map[string]any{
			"statement_line_id": lineID,
			"cleared":           cleared,
		})
	}
	return res, nil
}

// Detail is everything needed to work a reconciliation.
type Detail struct {
	Reconciliation      domain.Reconciliation    `json:"reconciliation"`
	Statement           domain.BankStatement     `json:"statement"`
	BankAccount         domain.BankAccount       `json:"bank_account"`
	Lines               []domain.StatementLine   `json:"lines"`
	Matches             []domain.Match           `json:"matches"`
	Outstanding         domain.Outstanding       `json:"outstanding"`
	UnmatchedCandidates []domain.LedgerCandidate `json:"unmatched_candidates"`
}

// Get loads a reconciliation with its statement lines, matches and the ledger items
// still available for matching. It takes no locks.
func (s *Service) Get(ctx context.Context, actor auth.Actor, reconciliationID int64) (d *Detail, err error) {
	defer s.observe(ctx, "get", time.Now(), &err)
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	err = s.store.ReadTx(ctx, func(tx store.Tx) error {
		rec, err := tx.GetReconciliation(ctx, actor.OrganizationID, reconciliationID)
		if err != nil {
			return lookupErr(err, "reconciliation")
		}
		sess, err := s.loadSession(ctx, tx, actor.OrganizationID, rec)
		if err != nil {
			return err
		}
		lines, err := tx.StatementLines(ctx, sess.statement.ID)
		if err != nil {
			return err
		}
		matches, err := tx.Matches(ctx, rec.ID)
		if err != nil {
			return err
		}

		d = &Detail{
			Reconciliation:      *rec,
			Statement:           *sess.statement,
			BankAccount:         *sess.bank,
			Lines:               lines,
			Matches:             matches,
			Outstanding:         Outstanding(lines),
			UnmatchedCandidates: s.unmatchedCandidates(ctx, tx, actor.OrganizationID, sess.bank.CashAccountID, matches),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Candidates lists the ledger items not yet matched on the reconciliation, the same
// set the detail view shows.
func (s *Service) Candidates(ctx context.Context, actor auth.Actor, reconciliationID int64) (cands []domain.LedgerCandidate, err error) {
	defer s.observe(ctx, "candidates", time.Now(), &err)
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	err = s.store.ReadTx(ctx, func(tx store.Tx) error {
		rec, err := tx.GetReconciliation(ctx, actor.OrganizationID, reconciliationID)
		if err != nil {
			return lookupErr(err, "reconciliation")
		}
		sess, err := s.loadSession(ctx, tx, actor.OrganizationID, rec)
		if err != nil {
			return err
		}
		matches, err := tx.Matches(ctx, rec.ID)
		if err != nil {
			return err
		}
		cands = s.unmatchedCandidates(ctx, tx, actor.OrganizationID, sess.bank.CashAccountID, matches)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cands, nil
}

// List returns the organization's reconciliations, newest first.
func (s *Service) List(ctx context.Context, actor auth.Actor) (recs []domain.Reconciliation, err error) {
	defer s.observe(ctx, "list", time.Now(), &err)
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	err = s.store.ReadTx(ctx, func(tx store.Tx) error {
		recs, err = tx.ListReconciliations(ctx, actor.OrganizationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if recs == nil {
		recs = []domain.Reconciliation{}
	}
	return recs, nil
}
