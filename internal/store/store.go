package store

import (
	"context"
	"errors"
	"time"

	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
	ErrReadOnly  = errors.New("write attempted in read-only transaction")
)

// Store hands out transactions. Everything an operation reads and writes goes through
// one Tx so the operation commits or rolls back as a unit.
type Store interface {
	// InTx runs fn in a read-write transaction. A non-nil error from fn rolls back.
	InTx(ctx context.Context, fn func(Tx) error) error
	// ReadTx runs fn in a read-only transaction.
	ReadTx(ctx context.Context, fn func(Tx) error) error
}

// Tx is the set of reads and writes the reconciliation core performs. Every lookup keyed
// by an externally supplied id is scoped to an organization.
type Tx interface {
	// LockReconciliation loads the reconciliation and holds a write lock on it until the
	// transaction ends.
	LockReconciliation(ctx context.Context, orgID, id int64) (*domain.Reconciliation, error)
	GetReconciliation(ctx context.Context, orgID, id int64) (*domain.Reconciliation, error)
	ReconciliationByStatement(ctx context.Context, orgID, statementID int64) (*domain.Reconciliation, error)
	ListReconciliations(ctx context.Context, orgID int64) ([]domain.Reconciliation, error)
	CreateReconciliation(ctx context.Context, r *domain.Reconciliation) error
	SaveBalances(ctx context.Context, id int64, books, difference decimal.Decimal, at time.Time) error
	MarkFinalized(ctx context.Context, id, actorID int64, at time.Time) error

	// LockStatement loads the statement and holds a write lock on it.
	LockStatement(ctx context.Context, orgID, id int64) (*domain.BankStatement, error)
	GetStatement(ctx context.Context, orgID, id int64) (*domain.BankStatement, error)
	GetBankAccount(ctx context.Context, orgID, id int64) (*domain.BankAccount, error)
	// StatementLines returns the statement's lines in statement order (date, id).
	StatementLines(ctx context.Context, statementID int64) ([]domain.StatementLine, error)
	GetStatementLine(ctx context.Context, orgID, id int64) (*domain.StatementLine, error)
	SetLineCleared(ctx context.Context, id int64, cleared bool, ref *domain.CandidateRef) error

	Matches(ctx context.Context, reconciliationID int64) ([]domain.Match, error)
	// InsertMatches writes all matches or none. IDs and timestamps are filled in.
	InsertMatches(ctx context.Context, ms []domain.Match) error
	// DeleteMatch removes the exact (reconciliation, line, candidate) triple and reports
	// how many rows went.
	DeleteMatch(ctx context.Context, reconciliationID, lineID int64, ref domain.CandidateRef) (int64, error)

	// PostedLedgerLines returns posted lines on the account, ordered by date then id.
	PostedLedgerLines(ctx context.Context, orgID, accountID int64) ([]domain.LedgerLine, error)
	CustomerPayments(ctx context.Context, orgID int64) ([]domain.CustomerPayment, error)
	VendorPayments(ctx context.Context, orgID int64) ([]domain.VendorPayment, error)
	// BooksBalance sums debit - credit over posted lines on the account dated on or
	// before asOf.
	BooksBalance(ctx context.Context, orgID, accountID int64, asOf time.Time) (decimal.Decimal, error)

	AccountByCode(ctx context.Context, orgID int64, code string) (*domain.Account, error)
	// InsertJournalEntry writes the header and lines, filling in all IDs.
	InsertJournalEntry(ctx context.Context, je *domain.JournalEntry) error
}
