//go:build integration

package store

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alecthomas/assert/v2"
	"github.com/punchamoorthee/bankrecon/internal/domain"
)

// Run with: BANKRECON_TEST_DB=postgres://... go test -tags integration ./internal/store
func openTestPostgres(t *testing.T) (*Postgres, int64, int64) {
	t.Helper()
	dsn := os.Getenv("BANKRECON_TEST_DB")
	if dsn == "" {
		t.Skip("BANKRECON_TEST_DB not set")
	}
	ctx := context.Background()
	db, err := NewPostgres(ctx, dsn, slog.New(slog.DiscardHandler))
	assert.NoError(t, err)
	t.Cleanup(db.Close)
	assert.NoError(t, db.Migrate(ctx))

	// A fresh organization per run keeps runs independent.
	org := time.Now().UnixNano()
	var cashID, bankID, stmtID int64
	assert.NoError(t, db.Db.QueryRow(ctx,
		`INSERT INTO accounts (organization_id, code, name) VALUES ($1, '1010', 'Cash') RETURNING id`, org).Scan(&cashID))
	assert.NoError(t, db.Db.QueryRow(ctx,
		`INSERT INTO bank_accounts (organization_id, name, cash_account_id) VALUES ($1, 'Operating', $2) RETURNING id`,
		org, cashID).Scan(&bankID))
	assert.NoError(t, db.Db.QueryRow(ctx,
		`INSERT INTO bank_statements (organization_id, bank_account_id, period_start, period_end, starting_balance, ending_balance, imported_by)
		VALUES ($1, $2, '2024-01-01', '2024-01-31', 0, 100, 1) RETURNING id`, org, bankID).Scan(&stmtID))
	_, err = db.Db.Exec(ctx,
		`INSERT INTO customer_payments (organization_id, payment_date, amount, customer_name) VALUES ($1, '2024-01-10', 100, 'Acme')`, org)
	assert.NoError(t, err)
	return db, org, stmtID
}

func TestPostgresDuplicateReconciliation(t *testing.T) {
	db, org, stmtID := openTestPostgres(t)
	ctx := context.Background()
	create := func() error {
		return db.InTx(ctx, func(tx Tx) error {
			return tx.CreateReconciliation(ctx, &domain.Reconciliation{
				OrganizationID: org,
				StatementID:    stmtID,
				Status:         domain.StatusDraft,
				CreatedBy:      1,
			})
		})
	}
	assert.NoError(t, create())
	assert.IsError(t, create(), ErrDuplicate)
}

func TestPostgresFailedSourceKeepsTransaction(t *testing.T) {
	db, org, _ := openTestPostgres(t)
	ctx := context.Background()
	rollback := errors.New("rollback")

	err := db.InTx(ctx, func(tx Tx) error {
		pt := tx.(*pgTx)
		// Hide the table for this transaction only; the rename rolls back with it.
		if _, err := pt.tx.Exec(ctx, `ALTER TABLE vendor_payments RENAME TO vendor_payments_hidden`); err != nil {
			return err
		}
		_, err := tx.VendorPayments(ctx, org)
		assert.Error(t, err)

		payments, err := tx.CustomerPayments(ctx, org)
		assert.NoError(t, err)
		assert.Equal(t, 1, len(payments))
		assert.Equal(t, "100.00", payments[0].Amount.StringFixed(2))
		return rollback
	})
	assert.IsError(t, err, rollback)

	assert.NoError(t, db.ReadTx(ctx, func(tx Tx) error {
		_, err := tx.VendorPayments(ctx, org)
		return err
	}))
}
