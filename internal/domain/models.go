package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a general-ledger account. Only the fields reconciliation needs are mapped.
type Account struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Code           string `json:"code"`
	Name           string `json:"name"`
}

// BankAccount links a bank to the general-ledger cash account it settles into.
type BankAccount struct {
	ID             int64  `json:"id"`
	OrganizationID int64  `json:"organization_id"`
	Name           string `json:"name"`
	CashAccountID  int64  `json:"cash_account_id"`
}

// BankStatement is one imported statement for a bank account.
type BankStatement struct {
	ID              int64           `json:"id"`
	OrganizationID  int64           `json:"organization_id"`
	BankAccountID   int64           `json:"bank_account_id"`
	PeriodStart     time.Time       `json:"period_start"`
	PeriodEnd       time.Time       `json:"period_end"`
	StartingBalance decimal.Decimal `json:"starting_balance"`
	EndingBalance   decimal.Decimal `json:"ending_balance"`
	ImportedAt      time.Time       `json:"imported_at"`
	ImportedBy      int64           `json:"imported_by"`
}

// StatementLine is a single bank-reported movement. Amount is signed: deposits are
// positive, withdrawals negative.
type StatementLine struct {
	ID          int64           `json:"id"`
	StatementID int64           `json:"statement_id"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
	Type        string          `json:"type"`
	Reference   string          `json:"reference"`
	Cleared     bool            `json:"cleared"`
	Note        string          `json:"note,omitempty"`
	// MatchedRef mirrors the line's Match row, if any.
	MatchedRef *CandidateRef `json:"matched_ref,omitempty"`
}

type ReconciliationStatus string

const (
	StatusDraft     ReconciliationStatus = "draft"
	StatusFinalized ReconciliationStatus = "finalized"
)

// Reconciliation is the per-statement reconciliation record. The books balance and
// difference are derived and only ever written by a recompute.
type Reconciliation struct {
	ID                    int64                `json:"id"`
	OrganizationID        int64                `json:"organization_id"`
	StatementID           int64                `json:"statement_id"`
	Status                ReconciliationStatus `json:"status"`
	EndingBalancePerBank  decimal.Decimal      `json:"ending_balance_per_bank"`
	EndingBalancePerBooks decimal.Decimal      `json:"ending_balance_per_books"`
	Difference            decimal.Decimal      `json:"difference"`
	CreatedBy             int64                `json:"created_by"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
	FinalizedBy           *int64               `json:"finalized_by,omitempty"`
	FinalizedAt           *time.Time           `json:"finalized_at,omitempty"`
}

func (r *Reconciliation) IsDraft() bool { return r.Status == StatusDraft }

// Match ties one statement line to one ledger candidate within a reconciliation.
type Match struct {
	ID               int64        `json:"id"`
	ReconciliationID int64        `json:"reconciliation_id"`
	StatementLineID  int64        `json:"statement_line_id"`
	Candidate        CandidateRef `json:"candidate"`
	AutoMatched      bool         `json:"auto_matched"`
	CreatedBy        int64        `json:"created_by"`
	CreatedAt        time.Time    `json:"created_at"`
}

// Balances is the derived state written by a recompute.
type Balances struct {
	EndingBalancePerBank  decimal.Decimal `json:"ending_balance_per_bank"`
	EndingBalancePerBooks decimal.Decimal `json:"ending_balance_per_books"`
	Outstanding           Outstanding     `json:"outstanding"`
	Difference            decimal.Decimal `json:"difference"`
}

// Outstanding holds the uncleared statement totals. OutstandingChecks is negative or zero.
type Outstanding struct {
	DepositsInTransit decimal.Decimal `json:"deposits_in_transit"`
	OutstandingChecks decimal.Decimal `json:"outstanding_checks"`
}

// CustomerPayment is cash received from a customer.
type CustomerPayment struct {
	ID        int64
	Date      time.Time
	Amount    decimal.Decimal
	Customer  string
	Reference string
}

// VendorPayment is cash paid to a vendor. Amount is stored positive.
type VendorPayment struct {
	ID        int64
	Date      time.Time
	Amount    decimal.Decimal
	Vendor    string
	Reference string
}

// LedgerLine is a posted general-ledger line together with its entry's header fields.
type LedgerLine struct {
	ID          int64
	EntryID     int64
	AccountID   int64
	Date        time.Time
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	Reference   string
}
