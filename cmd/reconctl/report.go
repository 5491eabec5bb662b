package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/punchamoorthee/bankrecon/internal/service"
)

func writeReconciliation(w io.Writer, rec *domain.Reconciliation, currency string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Status\t%s\t\n", rec.Status)
	fmt.Fprintf(tw, "Ending balance per bank\t%s\t\n", domain.FormatAmount(rec.EndingBalancePerBank, currency))
	fmt.Fprintf(tw, "Ending balance per books\t%s\t\n", domain.FormatAmount(rec.EndingBalancePerBooks, currency))
	fmt.Fprintf(tw, "Difference\t%s\t\n", domain.FormatAmount(rec.Difference, currency))
	tw.Flush()
}

func writeBalances(w io.Writer, bal domain.Balances, currency string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "Ending balance per bank\t%s\t\n", domain.FormatAmount(bal.EndingBalancePerBank, currency))
	fmt.Fprintf(tw, "Deposits in transit\t%s\t\n", domain.FormatAmount(bal.Outstanding.DepositsInTransit, currency))
	fmt.Fprintf(tw, "Outstanding checks\t%s\t\n", domain.FormatAmount(bal.Outstanding.OutstandingChecks, currency))
	fmt.Fprintf(tw, "Ending balance per books\t%s\t\n", domain.FormatAmount(bal.EndingBalancePerBooks, currency))
	fmt.Fprintf(tw, "Difference\t%s\t\n", domain.FormatAmount(bal.Difference, currency))
	tw.Flush()
}

func writeDetail(w io.Writer, d *service.Detail, currency string) {
	fmt.Fprintf(w, "Reconciliation %d: %s, statement %d (%s to %s)\n", d.Reconciliation.ID, d.BankAccount.Name,
		d.Statement.ID, d.Statement.PeriodStart.Format("2006-01-02"), d.Statement.PeriodEnd.Format("2006-01-02"))
	writeBalances(w, domain.Balances{
		EndingBalancePerBank:  d.Reconciliation.EndingBalancePerBank,
		EndingBalancePerBooks: d.Reconciliation.EndingBalancePerBooks,
		Outstanding:           d.Outstanding,
		Difference:            d.Reconciliation.Difference,
	}, currency)

	fmt.Fprintln(w, "\nStatement lines")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tCLEARED\tMATCHED\tDESCRIPTION")
	for _, l := range d.Lines {
		matched := "-"
		if l.MatchedRef != nil {
			matched = l.MatchedRef.String()
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\t%s\n", l.ID, l.Date.Format("2006-01-02"),
			domain.FormatAmount(l.Amount, currency), l.Cleared, matched, l.Description)
	}
	tw.Flush()

	fmt.Fprintf(w, "\nOpen ledger items (%d)\n", len(d.UnmatchedCandidates))
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "REF\tDATE\tAMOUNT\tDESCRIPTION")
	for _, c := range d.UnmatchedCandidates {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Ref, c.Date.Format("2006-01-02"),
			domain.FormatAmount(c.Amount, currency), c.Description)
	}
	tw.Flush()
}

func writeList(w io.Writer, recs []domain.Reconciliation, currency string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATEMENT\tSTATUS\tDIFFERENCE\tUPDATED")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\t%s\n", r.ID, r.StatementID, r.Status,
			domain.FormatAmount(r.Difference, currency), r.UpdatedAt.Format("2006-01-02 15:04"))
	}
	tw.Flush()
}
