package service

import (
	"context"
	"time"

	"github.com/punchamoorthee/bankrecon/internal/auth"
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/punchamoorthee/bankrecon/internal/store"
)

// Finalize closes a draft reconciliation whose recomputed difference is within
// domain.FinalizeTolerance. There is no way back to draft.
func (s *Service) Finalize(ctx context.Context, actor auth.Actor, reconciliationID int64) (rec *domain.Reconciliation, err error) {
	defer s.observe(ctx, "finalize", time.Now(), &err)
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	err = s.store.InTx(ctx, func(tx store.Tx) error {
		sess, err := s.lockDraft(ctx, tx, actor, reconciliationID)
		if err != nil {
			return err
		}
		bal, err := s.recompute(ctx, tx, sess)
		if err != nil {
			return err
		}
		if bal.Difference.Abs().GreaterThan(domain.FinalizeTolerance) {
			return newError(ErrBusinessRule, "difference of %s exceeds the %s allowed to finalize",
				bal.Difference.StringFixed(2), domain.FinalizeTolerance.StringFixed(2))
		}

		at := s.now()
		if err := tx.MarkFinalized(ctx, sess.rec.ID, actor.ID, at); err != nil {
			return lookupErr(err, "draft reconciliation")
		}
		sess.rec.Status = domain.StatusFinalized
		sess.rec.FinalizedBy = &actor.ID
		sess.rec.FinalizedAt = &at
		sess.rec.UpdatedAt = at
		rec = sess.rec
		return nil
	})
	if err != nil {
		return nil, err
	}

	reconciliationsFinalized.Inc()
	s.record(ctx, actor, "finalize", rec.ID, map[string]any{"difference": rec.Difference.StringFixed(2)})
	return rec, nil
}
