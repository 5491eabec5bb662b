package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type CandidateType string

const (
	CandidateLedgerLine      CandidateType = "ledger_line"
	CandidateCustomerPayment CandidateType = "customer_payment"
	CandidateVendorPayment   CandidateType = "vendor_payment"
)

func (t CandidateType) Valid() bool {
	switch t {
	case CandidateLedgerLine, CandidateCustomerPayment, CandidateVendorPayment:
		return true
	}
	return false
}

// CandidateRef identifies a ledger candidate. Ids are only unique within a type, so
// the pair is the key.
type CandidateRef struct {
	Type CandidateType `json:"type"`
	ID   int64         `json:"id"`
}

func (r CandidateRef) String() string { return fmt.Sprintf("%s/%d", r.Type, r.ID) }

// LedgerCandidate is the common projection of anything on the books that can settle
// against a bank line. Amount follows the cash sign: positive in, negative out.
type LedgerCandidate struct {
	Ref         CandidateRef    `json:"ref"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description"`
	Reference   string          `json:"reference"`
}

func CandidateFromLedgerLine(l LedgerLine) LedgerCandidate {
	return LedgerCandidate{
		Ref:         CandidateRef{Type: CandidateLedgerLine, ID: l.ID},
		Amount:      l.Debit.Sub(l.Credit),
		Date:        l.Date,
		Description: l.Description,
		Reference:   l.Reference,
	}
}

func CandidateFromCustomerPayment(p CustomerPayment) LedgerCandidate {
	return LedgerCandidate{
		Ref:         CandidateRef{Type: CandidateCustomerPayment, ID: p.ID},
		Amount:      p.Amount.Abs(),
		Date:        p.Date,
		Description: "Payment from " + p.Customer,
		Reference:   p.Reference,
	}
}

func CandidateFromVendorPayment(p VendorPayment) LedgerCandidate {
	return LedgerCandidate{
		Ref:         CandidateRef{Type: CandidateVendorPayment, ID: p.ID},
		Amount:      p.Amount.Abs().Neg(),
		Date:        p.Date,
		Description: "Payment to " + p.Vendor,
		Reference:   p.Reference,
	}
}
