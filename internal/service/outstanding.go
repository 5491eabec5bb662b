package service

import (
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/shopspring/decimal"
)

// Outstanding splits the uncleared statement lines into deposits in transit (positive
// lines) and outstanding checks (negative lines).
func Outstanding(lines []domain.StatementLine) domain.Outstanding {
	dit, oc := decimal.Zero, decimal.Zero
	for _, l := range lines {
		if l.Cleared {
			continue
		}
		switch {
		case l.Amount.IsPositive():
			dit = dit.Add(l.Amount)
		case l.Amount.IsNegative():
			oc = oc.Add(l.Amount)
		}
	}
	return domain.Outstanding{DepositsInTransit: dit, OutstandingChecks: oc}
}

// Difference is (bank + deposits in transit + outstanding checks) - books.
func Difference(bank, books decimal.Decimal, o domain.Outstanding) decimal.Decimal {
	return bank.Add(o.DepositsInTransit).Add(o.OutstandingChecks).Sub(books)
}
