package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/shopspring/decimal"
)

//go:embed schema.sql
var schema string

// Postgres is the pgx-backed Store.
type Postgres struct {
	Db  *pgxpool.Pool
	log *slog.Logger
}

func NewPostgres(ctx context.Context, connString string, log *slog.Logger) (*Postgres, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &Postgres{Db: pool, log: log}, nil
}

func (s *Postgres) Close() {
	s.Db.Close()
}

// Migrate creates any missing tables and indexes.
func (s *Postgres) Migrate(ctx context.Context) error {
	if _, err := s.Db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("schema migration failed: %w", err)
	}
	return nil
}

// InTx uses READ COMMITTED: writers serialize on the reconciliation row lock taken as
// the first statement, and every read after the lock sees the previous writer's commit.
func (s *Postgres) InTx(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, fn)
}

func (s *Postgres) ReadTx(ctx context.Context, fn func(Tx) error) error {
	return s.run(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadOnly}, fn)
}

func (s *Postgres) run(ctx context.Context, opts pgx.TxOptions, fn func(Tx) error) error {
	tx, err := s.Db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("tx begin failed: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&pgTx{tx: tx, log: s.log}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("tx commit failed: %w", err)
	}
	return nil
}

type pgTx struct {
	tx  pgx.Tx
	log *slog.Logger
}

// mapErr turns driver errors the core cares about into store sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}

// savepoint runs fn in a nested transaction so a failed read can be discarded without
// aborting the outer transaction.
func (t *pgTx) savepoint(ctx context.Context, fn func(pgx.Tx) error) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(sp); err != nil {
		if rbErr := sp.Rollback(ctx); rbErr != nil {
			t.log.Warn("savepoint rollback failed", "error", rbErr)
		}
		return err
	}
	return sp.Commit(ctx)
}

const reconColumns = `id, organization_id, statement_id, status, ending_balance_per_bank,
	ending_balance_per_books, difference, created_by, created_at, updated_at, finalized_by, finalized_at`

func scanReconciliation(row pgx.Row) (*domain.Reconciliation, error) {
	var r domain.Reconciliation
	var status string
	err := row.Scan(&r.ID, &r.OrganizationID, &r.StatementID, &status, &r.EndingBalancePerBank,
		&r.EndingBalancePerBooks, &r.Difference, &r.CreatedBy, &r.CreatedAt, &r.UpdatedAt,
		&r.FinalizedBy, &r.FinalizedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	r.Status = domain.ReconciliationStatus(status)
	return &r, nil
}

func (t *pgTx) LockReconciliation(ctx context.Context, orgID, id int64) (*domain.Reconciliation, error) {
	return scanReconciliation(t.tx.QueryRow(ctx,
		"SELECT "+reconColumns+" FROM reconciliations WHERE id = $1 AND organization_id = $2 FOR UPDATE",
		id, orgID))
}

func (t *pgTx) GetReconciliation(ctx context.Context, orgID, id int64) (*domain.Reconciliation, error) {
	return scanReconciliation(t.tx.QueryRow(ctx,
		"SELECT "+reconColumns+" FROM reconciliations WHERE id = $1 AND organization_id = $2",
		id, orgID))
}

func (t *pgTx) ReconciliationByStatement(ctx context.Context, orgID, statementID int64) (*domain.Reconciliation, error) {
	return scanReconciliation(t.tx.QueryRow(ctx,
		"SELECT "+reconColumns+" FROM reconciliations WHERE statement_id = $1 AND organization_id = $2",
		statementID, orgID))
}

func (t *pgTx) ListReconciliations(ctx context.Context, orgID int64) ([]domain.Reconciliation, error) {
	rows, err := t.tx.Query(ctx,
		"SELECT "+reconColumns+" FROM reconciliations WHERE organization_id = $1 ORDER BY created_at DESC, id DESC",
		orgID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Reconciliation, error) {
		r, err := scanReconciliation(row)
		if err != nil {
			return domain.Reconciliation{}, err
		}
		return *r, nil
	})
}

func (t *pgTx) CreateReconciliation(ctx context.Context, r *domain.Reconciliation) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO reconciliations
			(organization_id, statement_id, status, ending_balance_per_bank, ending_balance_per_books, difference, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		r.OrganizationID, r.StatementID, string(r.Status), r.EndingBalancePerBank,
		r.EndingBalancePerBooks, r.Difference, r.CreatedBy,
	).Scan(&r.ID, &r.CreatedAt, &r.UpdatedAt)
	return mapErr(err)
}

func (t *pgTx) SaveBalances(ctx context.Context, id int64, books, difference decimal.Decimal, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		"UPDATE reconciliations SET ending_balance_per_books = $2, difference = $3, updated_at = $4 WHERE id = $1",
		id, books, difference, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) MarkFinalized(ctx context.Context, id, actorID int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE reconciliations SET status = 'finalized', finalized_by = $2, finalized_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'draft'`,
		id, actorID, at)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const statementColumns = `id, organization_id, bank_account_id, period_start, period_end,
	starting_balance, ending_balance, imported_at, imported_by`

func (t *pgTx) queryStatement(ctx context.Context, sql string, args ...any) (*domain.BankStatement, error) {
	rows, err := t.tx.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	st, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[domain.BankStatement])
	if err != nil {
		return nil, mapErr(err)
	}
	return &st, nil
}

func (t *pgTx) LockStatement(ctx context.Context, orgID, id int64) (*domain.BankStatement, error) {
	return t.queryStatement(ctx,
		"SELECT "+statementColumns+" FROM bank_statements WHERE id = $1 AND organization_id = $2 FOR UPDATE",
		id, orgID)
}

func (t *pgTx) GetStatement(ctx context.Context, orgID, id int64) (*domain.BankStatement, error) {
	return t.queryStatement(ctx,
		"SELECT "+statementColumns+" FROM bank_statements WHERE id = $1 AND organization_id = $2",
		id, orgID)
}

func (t *pgTx) GetBankAccount(ctx context.Context, orgID, id int64) (*domain.BankAccount, error) {
	rows, err := t.tx.Query(ctx,
		"SELECT id, organization_id, name, cash_account_id FROM bank_accounts WHERE id = $1 AND organization_id = $2",
		id, orgID)
	if err != nil {
		return nil, err
	}
	ba, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[domain.BankAccount])
	if err != nil {
		return nil, mapErr(err)
	}
	return &ba, nil
}

const lineColumns = `l.id, l.statement_id, l.line_date, l.amount, l.description, l.txn_type,
	l.reference, l.cleared, l.note, l.matched_type, l.matched_id`

func scanLine(row pgx.Row) (domain.StatementLine, error) {
	var l domain.StatementLine
	var matchedType *string
	var matchedID *int64
	err := row.Scan(&l.ID, &l.StatementID, &l.Date, &l.Amount, &l.Description, &l.Type,
		&l.Reference, &l.Cleared, &l.Note, &matchedType, &matchedID)
	if err != nil {
		return l, mapErr(err)
	}
	if matchedType != nil && matchedID != nil {
		l.MatchedRef = &domain.CandidateRef{Type: domain.CandidateType(*matchedType), ID: *matchedID}
	}
	return l, nil
}

func (t *pgTx) StatementLines(ctx context.Context, statementID int64) ([]domain.StatementLine, error) {
	rows, err := t.tx.Query(ctx,
		"SELECT "+lineColumns+" FROM bank_statement_lines l WHERE l.statement_id = $1 ORDER BY l.line_date, l.id",
		statementID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.StatementLine, error) {
		return scanLine(row)
	})
}

func (t *pgTx) GetStatementLine(ctx context.Context, orgID, id int64) (*domain.StatementLine, error) {
	l, err := scanLine(t.tx.QueryRow(ctx,
		`SELECT `+lineColumns+` FROM bank_statement_lines l
		JOIN bank_statements s ON s.id = l.statement_id
		WHERE l.id = $1 AND s.organization_id = $2`,
		id, orgID))
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *pgTx) SetLineCleared(ctx context.Context, id int64, cleared bool, ref *domain.CandidateRef) error {
	var matchedType *string
	var matchedID *int64
	if ref != nil {
		typ := string(ref.Type)
		matchedType, matchedID = &typ, &ref.ID
	}
	tag, err := t.tx.Exec(ctx,
		"UPDATE bank_statement_lines SET cleared = $2, matched_type = $3, matched_id = $4 WHERE id = $1",
		id, cleared, matchedType, matchedID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) Matches(ctx context.Context, reconciliationID int64) ([]domain.Match, error) {
	rows, err := t.tx.Query(ctx,
		`SELECT id, reconciliation_id, statement_line_id, candidate_type, candidate_id, auto_matched, created_by, created_at
		FROM reconciliation_lines WHERE reconciliation_id = $1 ORDER BY id`,
		reconciliationID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Match, error) {
		var m domain.Match
		var typ string
		err := row.Scan(&m.ID, &m.ReconciliationID, &m.StatementLineID, &typ, &m.Candidate.ID,
			&m.AutoMatched, &m.CreatedBy, &m.CreatedAt)
		m.Candidate.Type = domain.CandidateType(typ)
		return m, err
	})
}

func (t *pgTx) InsertMatches(ctx context.Context, ms []domain.Match) error {
	if len(ms) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, m := range ms {
		batch.Queue(
			`INSERT INTO reconciliation_lines
				(reconciliation_id, statement_line_id, candidate_type, candidate_id, auto_matched, created_by)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, created_at`,
			m.ReconciliationID, m.StatementLineID, string(m.Candidate.Type), m.Candidate.ID, m.AutoMatched, m.CreatedBy)
	}

	br := t.tx.SendBatch(ctx, batch)
	defer br.Close()
	for i := range ms {
		if err := br.QueryRow().Scan(&ms[i].ID, &ms[i].CreatedAt); err != nil {
			return fmt.Errorf("match insert failed: %w", mapErr(err))
		}
	}
	return br.Close()
}

func (t *pgTx) DeleteMatch(ctx context.Context, reconciliationID, lineID int64, ref domain.CandidateRef) (int64, error) {
	tag, err := t.tx.Exec(ctx,
		`DELETE FROM reconciliation_lines
		WHERE reconciliation_id = $1 AND statement_line_id = $2 AND candidate_type = $3 AND candidate_id = $4`,
		reconciliationID, lineID, string(ref.Type), ref.ID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (t *pgTx) PostedLedgerLines(ctx context.Context, orgID, accountID int64) ([]domain.LedgerLine, error) {
	var out []domain.LedgerLine
	err := t.savepoint(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT l.id, l.entry_id, l.account_id, e.entry_date, l.debit, l.credit,
				COALESCE(NULLIF(l.description, ''), e.memo)
			FROM journal_entry_lines l
			JOIN journal_entries e ON e.id = l.entry_id
			WHERE e.organization_id = $1 AND l.account_id = $2 AND e.status = 'posted'
			ORDER BY e.entry_date, l.id`,
			orgID, accountID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.LedgerLine, error) {
			var l domain.LedgerLine
			err := row.Scan(&l.ID, &l.EntryID, &l.AccountID, &l.Date, &l.Debit, &l.Credit, &l.Description)
			l.Reference = fmt.Sprintf("JE-%d", l.EntryID)
			return l, err
		})
		return err
	})
	return out, err
}

func (t *pgTx) CustomerPayments(ctx context.Context, orgID int64) ([]domain.CustomerPayment, error) {
	var out []domain.CustomerPayment
	err := t.savepoint(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, payment_date, amount, customer_name, reference
			FROM customer_payments WHERE organization_id = $1 ORDER BY payment_date, id`,
			orgID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByPos[domain.CustomerPayment])
		return err
	})
	return out, err
}

func (t *pgTx) VendorPayments(ctx context.Context, orgID int64) ([]domain.VendorPayment, error) {
	var out []domain.VendorPayment
	err := t.savepoint(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, payment_date, amount, vendor_name, reference
			FROM vendor_payments WHERE organization_id = $1 ORDER BY payment_date, id`,
			orgID)
		if err != nil {
			return err
		}
		out, err = pgx.CollectRows(rows, pgx.RowToStructByPos[domain.VendorPayment])
		return err
	})
	return out, err
}

func (t *pgTx) BooksBalance(ctx context.Context, orgID, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := t.tx.QueryRow(ctx,
		`SELECT COALESCE(SUM(l.debit - l.credit), 0)
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.organization_id = $1 AND l.account_id = $2 AND e.status = 'posted' AND e.entry_date <= $3`,
		orgID, accountID, asOf,
	).Scan(&balance)
	return balance, err
}

func (t *pgTx) AccountByCode(ctx context.Context, orgID int64, code string) (*domain.Account, error) {
	rows, err := t.tx.Query(ctx,
		"SELECT id, organization_id, code, name FROM accounts WHERE organization_id = $1 AND code = $2",
		orgID, code)
	if err != nil {
		return nil, err
	}
	acc, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByPos[domain.Account])
	if err != nil {
		return nil, mapErr(err)
	}
	return &acc, nil
}

func (t *pgTx) InsertJournalEntry(ctx context.Context, je *domain.JournalEntry) error {
	err := t.tx.QueryRow(ctx,
		`INSERT INTO journal_entries (organization_id, entry_date, memo, status, source, created_by)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		je.OrganizationID, je.Date, je.Memo, string(je.Status), je.Source, je.CreatedBy,
	).Scan(&je.ID)
	if err != nil {
		return fmt.Errorf("journal entry insert failed: %w", err)
	}

	for i := range je.Lines {
		l := &je.Lines[i]
		err := t.tx.QueryRow(ctx,
			`INSERT INTO journal_entry_lines (entry_id, account_id, debit, credit, description)
			VALUES ($1, $2, $3, $4, $5) RETURNING id`,
			je.ID, l.AccountID, l.Debit, l.Credit, l.Description,
		).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("journal line insert failed: %w", err)
		}
	}
	return nil
}
