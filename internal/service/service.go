// Package service implements bank reconciliation: matching statement lines to ledger
// activity, keeping derived balances current, posting bank-only adjustments and
// finalizing.
//
// Every mutating operation runs in one store transaction that first locks the
// reconciliation row, so operations on the same reconciliation never interleave and a
// failure anywhere leaves no partial writes. Each one ends with a recompute of the
// books balance and difference.
package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/punchamoorthee/bankrecon/internal/audit"
	"github.com/punchamoorthee/bankrecon/internal/auth"
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/punchamoorthee/bankrecon/internal/store"
)

// Config holds the ledger accounts adjustments post to, by account code.
type Config struct {
	FeeAccountCode      string
	InterestAccountCode string
}

type Service struct {
	store store.Store
	audit audit.Logger
	log   *slog.Logger
	cfg   Config
	now   func() time.Time
}

func New(st store.Store, al audit.Logger, log *slog.Logger, cfg Config) *Service {
	if al == nil {
		al = audit.Discard
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Service{
		store: st,
		audit: al,
		log:   log,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) authorize(actor auth.Actor) error {
	if !actor.CanReconcile() {
		return newError(ErrUnauthorized, "finance or admin role required")
	}
	return nil
}

// observe records the outcome of op. Use as: defer s.observe(ctx, "op", time.Now(), &err).
func (s *Service) observe(ctx context.Context, op string, start time.Time, errp *error) {
	operationDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if *errp == nil {
		operationsTotal.WithLabelValues(op, "ok").Inc()
		return
	}
	kind := KindOf(*errp)
	operationsTotal.WithLabelValues(op, kind).Inc()
	if kind == "internal" || kind == "configuration" {
		s.log.ErrorContext(ctx, "operation failed", "op", op, "error", *errp)
	} else {
		s.log.DebugContext(ctx, "operation rejected", "op", op, "kind", kind, "error", *errp)
	}
}

func (s *Service) record(ctx context.Context, actor auth.Actor, action string, reconciliationID int64, details map[string]any) {
	s.audit.Record(ctx, audit.Event{
		OrganizationID: actor.OrganizationID,
		ActorID:        actor.ID,
		Action:         action,
		Entity:         "reconciliation",
		EntityID:       reconciliationID,
		Details:        details,
		At:             s.now(),
	})
}

// session is the reconciliation together with what its operations need to look up.
type session struct {
	rec       *domain.Reconciliation
	statement *domain.BankStatement
	bank      *domain.BankAccount
}

func (s *Service) loadSession(ctx context.Context, tx store.Tx, orgID int64, rec *domain.Reconciliation) (*session, error) {
	st, err := tx.GetStatement(ctx, orgID, rec.StatementID)
	if err != nil {
		return nil, lookupErr(err, "bank statement")
	}
	bank, err := tx.GetBankAccount(ctx, orgID, st.BankAccountID)
	if err != nil {
		return nil, lookupErr(err, "bank account")
	}
	return &session{rec: rec, statement: st, bank: bank}, nil
}

// lockDraft locks the reconciliation for the rest of the transaction and refuses
// anything but a draft.
func (s *Service) lockDraft(ctx context.Context, tx store.Tx, actor auth.Actor, id int64) (*session, error) {
	rec, err := tx.LockReconciliation(ctx, actor.OrganizationID, id)
	if err != nil {
		return nil, lookupErr(err, "reconciliation")
	}
	if !rec.IsDraft() {
		return nil, finalized()
	}
	return s.loadSession(ctx, tx, actor.OrganizationID, rec)
}
