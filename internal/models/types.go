// Package models holds the JSON bodies of the HTTP API.
package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

const DateLayout = "2006-01-02"

// Date is a calendar day encoded as "2006-01-02".
type Date struct{ time.Time }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(DateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		d.Time = time.Time{}
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date must be a string in %s form", DateLayout)
	}
	t, err := time.Parse(DateLayout, s[1:len(s)-1])
	if err != nil {
		return fmt.Errorf("date must be in %s form: %w", DateLayout, err)
	}
	d.Time = t
	return nil
}

// CreateReconciliationRequest opens a reconciliation for a statement.
type CreateReconciliationRequest struct {
	StatementID int64 `json:"statement_id"`
}

type MatchAction string

const (
	ActionMatch   MatchAction = "match"
	ActionUnmatch MatchAction = "unmatch"
)

// MatchRequest matches or unmatches a statement line and a ledger item.
type MatchRequest struct {
	Action          MatchAction `json:"action"`
	StatementLineID int64       `json:"statement_line_id"`
	CandidateType   string      `json:"candidate_type"`
	CandidateID     int64       `json:"candidate_id"`
}

type ClearedRequest struct {
	Cleared *bool `json:"cleared"`
}

// AdjustmentRequest posts a bank fee or interest entry. Amount is a decimal string or
// number, always positive.
type AdjustmentRequest struct {
	Type   string          `json:"type"`
	Amount decimal.Decimal `json:"amount"`
	Date   Date            `json:"date"`
	Memo   string          `json:"memo,omitempty"`
}

type SmartMatchResponse struct {
	Matched int `json:"matched"`
}

// SummaryResponse is the reconciliation worksheet with amounts formatted in the
// organization's currency.
type SummaryResponse struct {
	ReconciliationID      int64  `json:"reconciliation_id"`
	Status                string `json:"status"`
	Currency              string `json:"currency"`
	EndingBalancePerBank  string `json:"ending_balance_per_bank"`
	DepositsInTransit     string `json:"deposits_in_transit"`
	OutstandingChecks     string `json:"outstanding_checks"`
	EndingBalancePerBooks string `json:"ending_balance_per_books"`
	Difference            string `json:"difference"`
}

// Response is the envelope of every API response. Exactly one of Data and Error is set.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Kind    string `json:"kind,omitempty"`
}
