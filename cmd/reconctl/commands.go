package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"
	"github.com/punchamoorthee/bankrecon/internal/audit"
	"github.com/punchamoorthee/bankrecon/internal/auth"
	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/punchamoorthee/bankrecon/internal/service"
	"github.com/punchamoorthee/bankrecon/internal/store"
	"github.com/shopspring/decimal"
)

// Globals defines global flags available to all commands.
type Globals struct {
	DB              string        `help:"Postgres connection string." env:"DB_SOURCE" required:""`
	Actor           int64         `help:"Acting user ID." env:"RECON_ACTOR_ID" required:""`
	Org             int64         `help:"Organization ID." env:"RECON_ORGANIZATION_ID" required:""`
	Role            string        `help:"Acting user's role." env:"RECON_ROLE" default:"finance" enum:"admin,finance,viewer"`
	FeeAccount      string        `help:"Bank fee expense account code." env:"FEE_ACCOUNT_CODE" default:"6150"`
	InterestAccount string        `help:"Interest income account code." env:"INTEREST_ACCOUNT_CODE" default:"4800"`
	Currency        string        `help:"Currency used to print amounts." env:"CURRENCY" default:"USD"`
	Timeout         time.Duration `help:"Deadline for the whole command." default:"30s"`
	Verbose         bool          `help:"Log debug output to stderr." short:"v"`
}

func (g *Globals) actor() auth.Actor {
	return auth.Actor{ID: g.Actor, OrganizationID: g.Org, Role: auth.Role(g.Role)}
}

// session opens the store and a service over it. Call the returned func when done.
func (g *Globals) session() (context.Context, *service.Service, func(), error) {
	level := slog.LevelWarn
	if g.Verbose {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, cancel := context.WithTimeout(context.Background(), g.Timeout)
	db, err := store.NewPostgres(ctx, g.DB, log)
	if err != nil {
		cancel()
		return nil, nil, nil, err
	}
	al := audit.NewPostgresLogger(db.Db, log)
	svc := service.New(db, al, log, service.Config{
		FeeAccountCode:      g.FeeAccount,
		InterestAccountCode: g.InterestAccount,
	})
	return ctx, svc, func() {
		al.Wait()
		db.Close()
		cancel()
	}, nil
}

type CreateCmd struct {
	Statement int64 `help:"Bank statement ID." arg:""`
}

func (cmd *CreateCmd) Run(ctx *kong.Context, g *Globals) error {
	c, svc, done, err := g.session()
	if err != nil {
		return err
	}
	defer done()
	rec, err := svc.CreateReconciliation(c, g.actor(), cmd.Statement)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Created reconciliation %d for statement %d.\n", rec.ID, rec.StatementID)
	writeReconciliation(ctx.Stdout, rec, g.Currency)
	return nil
}

type SmartMatchCmd struct {
	Reconciliation int64 `help:"Reconciliation ID." arg:""`
}

func (cmd *SmartMatchCmd) Run(ctx *kong.Context, g *Globals) error {
	c, svc, done, err := g.session()
	if err != nil {
		return err
	}
	defer done()
	n, err := svc.SmartMatch(c, g.actor(), cmd.Reconciliation)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Matched %d statement lines.\n", n)
	return nil
}

type MatchArgs struct {
	Reconciliation int64  `help:"Reconciliation ID." arg:""`
	Line           int64  `help:"Statement line ID." arg:""`
	Type           string `help:"Ledger item type." arg:"" enum:"ledger_line,customer_payment,vendor_payment"`
	ID             int64  `help:"Ledger item ID." arg:""`
}

func (a MatchArgs) request() service.MatchRequest {
	return service.MatchRequest{
		ReconciliationID: a.Reconciliation,
		StatementLineID:  a.Line,
		Candidate:        domain.CandidateRef{Type: domain.CandidateType(a.Type), ID: a.ID},
	}
}

type MatchCmd struct {
	MatchArgs
}

func (cmd *MatchCmd) Run(ctx *kong.Context, g *Globals) error {
	c, svc, done, err := g.session()
	if err != nil {
		return err
	}
	defer done()
	m, err := svc.ManualMatch(c, g.actor(), cmd.request())
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Matched statement line %d to %s.\n", m.StatementLineID, m.Candidate)
	return nil
}

type UnmatchCmd struct {
	MatchArgs
}

func (cmd *UnmatchCmd) Run(ctx *kong.Context, g *Globals) error {
	c, svc, done, err := g.session()
	if err != nil {
		return err
	}
	defer done()
	if err := svc.Unmatch(c, g.actor(), cmd.request()); err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Unmatched statement line %d from %s/%d.\n", cmd.Line, cmd.Type, cmd.ID)
	return nil
}

type ClearCmd struct {
	Line      int64 `help:"Statement line ID." arg:""`
	Uncleared bool  `help:"Mark the line uncleared instead."`
}

func (cmd *ClearCmd) Run(ctx *kong.Context, g *Globals) error {
	c, svc, done, err := g.session()
	if err != nil {
		return err
	}
	defer done()
	res, err := svc.MarkCleared(c, g.actor(), cmd.Line, !cmd.Uncleared)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Statement line %d cleared: %t.\n", res.Line.ID, res.Line.Cleared)
	if res.Reconciliation != nil {
		writeReconciliation(ctx.Stdout, res.Reconciliation, g.Currency)
	}
	return nil
}

type AdjustCmd struct {
	Reconciliation int64           `help:"Reconciliation ID." arg:""`
	Type           string          `help:"Adjustment type." enum:"fee,interest" required:""`
	Amount         decimal.Decimal `help:"Positive amount." required:""`
	Date           time.Time       `help:"Entry date (YYYY-MM-DD)." format:"2006-01-02" required:""`
	Memo           string          `help:"Entry memo."`
}

func (cmd *AdjustCmd) Run(ctx *kong.Context, g *Globals) error {
	c, svc, done, err := g.session()
	if err != nil {
		return err
	}
	defer done()
	res, err := svc.PostAdjustment(c, g.actor(), service.AdjustmentRequest{
		ReconciliationID: cmd.Reconciliation,
		Type:             service.AdjustmentType(cmd.Type),
		Amount:           cmd.Amount,
		Date:             cmd.Date,
		Memo:             cmd.Memo,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Posted journal entry %d (cash %s).\n", res.JournalEntryID, domain.FormatAmount(res.CashEffect, g.Currency))
	if res.MatchedLineID != nil {
		fmt.Fprintf(ctx.Stdout, "Matched to statement line %d.\n", *res.MatchedLineID)
	}
	writeReconciliation(ctx.Stdout, &res.Reconciliation, g.Currency)
	return nil
}

type RecalcCmd struct {
	Reconciliation int64 `help:"Reconciliation ID." arg:""`
}

func (cmd *RecalcCmd) Run(ctx *kong.Context, g *Globals) error {
	c, svc, done, err := g.session()
	if err != nil {
		return err
	}
	defer done()
	bal, err := svc.Recalc(c, g.actor(), cmd.Reconciliation)
	if err != nil {
		return err
	}
	writeBalances(ctx.Stdout, bal, g.Currency)
	return nil
}

type FinalizeCmd struct {
	Reconciliation int64 `help:"Reconciliation ID." arg:""`
}

func (cmd *FinalizeCmd) Run(ctx *kong.Context, g *Globals) error {
	c, svc, done, err := g.session()
	if err != nil {
		return err
	}
	defer done()
	rec, err := svc.Finalize(c, g.actor(), cmd.Reconciliation)
	if err != nil {
		return err
	}
	fmt.Fprintf(ctx.Stdout, "Finalized reconciliation %d.\n", rec.ID)
	writeReconciliation(ctx.Stdout, rec, g.Currency)
	return nil
}

type ShowCmd struct {
	Reconciliation int64 `help:"Reconciliation ID." arg:""`
}

func (cmd *ShowCmd) Run(ctx *kong.Context, g *Globals) error {
	c, svc, done, err := g.session()
	if err != nil {
		return err
	}
	defer done()
	d, err := svc.Get(c, g.actor(), cmd.Reconciliation)
	if err != nil {
		return err
	}
	writeDetail(ctx.Stdout, d, g.Currency)
	return nil
}

type ListCmd struct{}

func (cmd *ListCmd) Run(ctx *kong.Context, g *Globals) error {
	c, svc, done, err := g.session()
	if err != nil {
		return err
	}
	defer done()
	recs, err := svc.List(c, g.actor())
	if err != nil {
		return err
	}
	writeList(ctx.Stdout, recs, g.Currency)
	return nil
}

type Commands struct {
	Globals

	Create     CreateCmd     `cmd:"" help:"Open a reconciliation for a bank statement."`
	SmartMatch SmartMatchCmd `cmd:"" help:"Automatically match statement lines to ledger items."`
	Match      MatchCmd      `cmd:"" help:"Match a statement line to a ledger item."`
	Unmatch    UnmatchCmd    `cmd:"" help:"Remove a match."`
	Clear      ClearCmd      `cmd:"" help:"Mark a statement line cleared or uncleared."`
	Adjust     AdjustCmd     `cmd:"" help:"Post a bank fee or interest entry."`
	Recalc     RecalcCmd     `cmd:"" help:"Recompute books balance and difference."`
	Finalize   FinalizeCmd   `cmd:"" help:"Finalize a reconciliation."`
	Show       ShowCmd       `cmd:"" help:"Show a reconciliation with lines and open ledger items."`
	List       ListCmd       `cmd:"" help:"List reconciliations."`
}
