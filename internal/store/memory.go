package store

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/punchamoorthee/bankrecon/internal/domain"
	"github.com/shopspring/decimal"
)

// Memory is an in-process Store. A write transaction works on a copy of the data and
// swaps it in on success, so a failed operation leaves nothing behind. One writer runs
// at a time.
type Memory struct {
	mu    sync.RWMutex
	data  *memData
	fails map[string]error
}

type memData struct {
	seq              map[string]int64
	accounts         map[int64]domain.Account
	bankAccounts     map[int64]domain.BankAccount
	statements       map[int64]domain.BankStatement
	lines            map[int64]domain.StatementLine
	recons           map[int64]domain.Reconciliation
	matches          map[int64]domain.Match
	entries          map[int64]domain.JournalEntry
	customerPayments map[int64]domain.CustomerPayment
	vendorPayments   map[int64]domain.VendorPayment
	// owning organization of each payment, keyed by payment id
	customerOrgs map[int64]int64
	vendorOrgs   map[int64]int64
}

func NewMemory() *Memory {
	return &Memory{
		data: &memData{
			seq:              map[string]int64{},
			accounts:         map[int64]domain.Account{},
			bankAccounts:     map[int64]domain.BankAccount{},
			statements:       map[int64]domain.BankStatement{},
			lines:            map[int64]domain.StatementLine{},
			recons:           map[int64]domain.Reconciliation{},
			matches:          map[int64]domain.Match{},
			entries:          map[int64]domain.JournalEntry{},
			customerPayments: map[int64]domain.CustomerPayment{},
			vendorPayments:   map[int64]domain.VendorPayment{},
			customerOrgs:     map[int64]int64{},
			vendorOrgs:       map[int64]int64{},
		},
		fails: map[string]error{},
	}
}

func (d *memData) clone() *memData {
	c := &memData{
		seq:              maps.Clone(d.seq),
		accounts:         maps.Clone(d.accounts),
		bankAccounts:     maps.Clone(d.bankAccounts),
		statements:       maps.Clone(d.statements),
		lines:            maps.Clone(d.lines),
		recons:           maps.Clone(d.recons),
		matches:          maps.Clone(d.matches),
		entries:          make(map[int64]domain.JournalEntry, len(d.entries)),
		customerPayments: maps.Clone(d.customerPayments),
		vendorPayments:   maps.Clone(d.vendorPayments),
		customerOrgs:     maps.Clone(d.customerOrgs),
		vendorOrgs:       maps.Clone(d.vendorOrgs),
	}
	for id, e := range d.entries {
		e.Lines = slices.Clone(e.Lines)
		c.entries[id] = e
	}
	return c
}

func (d *memData) next(table string) int64 {
	d.seq[table]++
	return d.seq[table]
}

// assign keeps a caller-chosen id and moves the sequence past it, or draws the next one.
func (d *memData) assign(table string, id int64) int64 {
	if id <= 0 {
		return d.next(table)
	}
	d.seq[table] = max(d.seq[table], id)
	return id
}

func (m *Memory) InTx(ctx context.Context, fn func(Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	work := m.data.clone()
	if err := fn(&memTx{d: work, fails: m.fails}); err != nil {
		return err
	}
	m.data = work
	return nil
}

func (m *Memory) ReadTx(ctx context.Context, fn func(Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&memTx{d: m.data, fails: m.fails, readOnly: true})
}

// FailReads makes the named read ("ledger_lines", "customer_payments",
// "vendor_payments") return err. A nil err clears it.
func (m *Memory) FailReads(source string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.fails, source)
		return
	}
	m.fails[source] = err
}

// Seeding helpers. They write directly, outside any transaction.

func (m *Memory) AddAccount(a domain.Account) domain.Account {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.data.next("accounts")
	m.data.accounts[a.ID] = a
	return a
}

func (m *Memory) AddBankAccount(b domain.BankAccount) domain.BankAccount {
	m.mu.Lock()
	defer m.mu.Unlock()
	b.ID = m.data.next("bank_accounts")
	m.data.bankAccounts[b.ID] = b
	return b
}

func (m *Memory) AddStatement(s domain.BankStatement) domain.BankStatement {
	m.mu.Lock()
	defer m.mu.Unlock()
	s.ID = m.data.next("bank_statements")
	m.data.statements[s.ID] = s
	return s
}

// AddStatementLine stores l. A non-zero l.ID is kept, as for lines imported with their
// bank-side ids.
func (m *Memory) AddStatementLine(l domain.StatementLine) domain.StatementLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	l.ID = m.data.assign("bank_statement_lines", l.ID)
	m.data.lines[l.ID] = l
	return l
}

func (m *Memory) AddCustomerPayment(orgID int64, p domain.CustomerPayment) domain.CustomerPayment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.data.assign("customer_payments", p.ID)
	m.data.customerPayments[p.ID] = p
	m.data.customerOrgs[p.ID] = orgID
	return p
}

func (m *Memory) AddVendorPayment(orgID int64, p domain.VendorPayment) domain.VendorPayment {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.data.assign("vendor_payments", p.ID)
	m.data.vendorPayments[p.ID] = p
	m.data.vendorOrgs[p.ID] = orgID
	return p
}

func (m *Memory) AddJournalEntry(je domain.JournalEntry) domain.JournalEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	(&memTx{d: m.data}).insertEntry(&je)
	return je
}

// JournalEntries returns every stored entry ordered by id.
func (m *Memory) JournalEntries() []domain.JournalEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := slices.Collect(maps.Values(m.data.entries))
	slices.SortFunc(out, func(a, b domain.JournalEntry) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

type memTx struct {
	d        *memData
	fails    map[string]error
	readOnly bool
}

func (t *memTx) write() error {
	if t.readOnly {
		return ErrReadOnly
	}
	return nil
}

func (t *memTx) recon(orgID, id int64) (*domain.Reconciliation, error) {
	r, ok := t.d.recons[id]
	if !ok || r.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return &r, nil
}

func (t *memTx) LockReconciliation(ctx context.Context, orgID, id int64) (*domain.Reconciliation, error) {
	if err := t.write(); err != nil {
		return nil, err
	}
	return t.recon(orgID, id)
}

func (t *memTx) GetReconciliation(ctx context.Context, orgID, id int64) (*domain.Reconciliation, error) {
	return t.recon(orgID, id)
}

func (t *memTx) ReconciliationByStatement(ctx context.Context, orgID, statementID int64) (*domain.Reconciliation, error) {
	for _, r := range t.d.recons {
		if r.StatementID == statementID && r.OrganizationID == orgID {
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) ListReconciliations(ctx context.Context, orgID int64) ([]domain.Reconciliation, error) {
	var out []domain.Reconciliation
	for _, r := range t.d.recons {
		if r.OrganizationID == orgID {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b domain.Reconciliation) int { return cmp.Compare(b.ID, a.ID) })
	return out, nil
}

func (t *memTx) CreateReconciliation(ctx context.Context, r *domain.Reconciliation) error {
	if err := t.write(); err != nil {
		return err
	}
	for _, existing := range t.d.recons {
		if existing.StatementID == r.StatementID {
			return fmt.Errorf("%w: idx_reconciliations_statement", ErrDuplicate)
		}
	}
	r.ID = t.d.next("reconciliations")
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	t.d.recons[r.ID] = *r
	return nil
}

func (t *memTx) SaveBalances(ctx context.Context, id int64, books, difference decimal.Decimal, at time.Time) error {
	if err := t.write(); err != nil {
		return err
	}
	r, ok := t.d.recons[id]
	if !ok {
		return ErrNotFound
	}
	r.EndingBalancePerBooks = books
	r.Difference = difference
	r.UpdatedAt = at
	t.d.recons[id] = r
	return nil
}

func (t *memTx) MarkFinalized(ctx context.Context, id, actorID int64, at time.Time) error {
	if err := t.write(); err != nil {
		return err
	}
	r, ok := t.d.recons[id]
	if !ok || r.Status != domain.StatusDraft {
		return ErrNotFound
	}
	r.Status = domain.StatusFinalized
	r.FinalizedBy = &actorID
	r.FinalizedAt = &at
	r.UpdatedAt = at
	t.d.recons[id] = r
	return nil
}

func (t *memTx) statement(orgID, id int64) (*domain.BankStatement, error) {
	s, ok := t.d.statements[id]
	if !ok || s.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (t *memTx) LockStatement(ctx context.Context, orgID, id int64) (*domain.BankStatement, error) {
	if err := t.write(); err != nil {
		return nil, err
	}
	return t.statement(orgID, id)
}

func (t *memTx) GetStatement(ctx context.Context, orgID, id int64) (*domain.BankStatement, error) {
	return t.statement(orgID, id)
}

func (t *memTx) GetBankAccount(ctx context.Context, orgID, id int64) (*domain.BankAccount, error) {
	b, ok := t.d.bankAccounts[id]
	if !ok || b.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (t *memTx) StatementLines(ctx context.Context, statementID int64) ([]domain.StatementLine, error) {
	var out []domain.StatementLine
	for _, l := range t.d.lines {
		if l.StatementID == statementID {
			out = append(out, l)
		}
	}
	slices.SortFunc(out, func(a, b domain.StatementLine) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (t *memTx) GetStatementLine(ctx context.Context, orgID, id int64) (*domain.StatementLine, error) {
	l, ok := t.d.lines[id]
	if !ok {
		return nil, ErrNotFound
	}
	if _, err := t.statement(orgID, l.StatementID); err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *memTx) SetLineCleared(ctx context.Context, id int64, cleared bool, ref *domain.CandidateRef) error {
	if err := t.write(); err != nil {
		return err
	}
	l, ok := t.d.lines[id]
	if !ok {
		return ErrNotFound
	}
	l.Cleared = cleared
	l.MatchedRef = nil
	if ref != nil {
		r := *ref
		l.MatchedRef = &r
	}
	t.d.lines[id] = l
	return nil
}

func (t *memTx) Matches(ctx context.Context, reconciliationID int64) ([]domain.Match, error) {
	var out []domain.Match
	for _, m := range t.d.matches {
		if m.ReconciliationID == reconciliationID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b domain.Match) int { return cmp.Compare(a.ID, b.ID) })
	return out, nil
}

func (t *memTx) InsertMatches(ctx context.Context, ms []domain.Match) error {
	if err := t.write(); err != nil {
		return err
	}
	// Same guarantees as the unique indexes on reconciliation_lines.
	lines := map[[2]int64]bool{}
	refs := map[int64]map[domain.CandidateRef]bool{}
	claim := func(m domain.Match) error {
		if lines[[2]int64{m.ReconciliationID, m.StatementLineID}] {
			return fmt.Errorf("%w: idx_recon_lines_statement_line", ErrDuplicate)
		}
		if refs[m.ReconciliationID] == nil {
			refs[m.ReconciliationID] = map[domain.CandidateRef]bool{}
		}
		if refs[m.ReconciliationID][m.Candidate] {
			return fmt.Errorf("%w: idx_recon_lines_candidate", ErrDuplicate)
		}
		lines[[2]int64{m.ReconciliationID, m.StatementLineID}] = true
		refs[m.ReconciliationID][m.Candidate] = true
		return nil
	}
	for _, m := range t.d.matches {
		if err := claim(m); err != nil {
			return err
		}
	}
	now := time.Now().UTC()
	for i := range ms {
		if err := claim(ms[i]); err != nil {
			return err
		}
		ms[i].ID = t.d.next("reconciliation_lines")
		ms[i].CreatedAt = now
		t.d.matches[ms[i].ID] = ms[i]
	}
	return nil
}

func (t *memTx) DeleteMatch(ctx context.Context, reconciliationID, lineID int64, ref domain.CandidateRef) (int64, error) {
	if err := t.write(); err != nil {
		return 0, err
	}
	var n int64
	for id, m := range t.d.matches {
		if m.ReconciliationID == reconciliationID && m.StatementLineID == lineID && m.Candidate == ref {
			delete(t.d.matches, id)
			n++
		}
	}
	return n, nil
}

func (t *memTx) postedLines(orgID, accountID int64, include func(domain.JournalEntry) bool) []domain.LedgerLine {
	var out []domain.LedgerLine
	for _, e := range t.d.entries {
		if e.OrganizationID != orgID || e.Status != domain.EntryPosted || !include(e) {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountID != accountID {
				continue
			}
			desc := l.Description
			if desc == "" {
				desc = e.Memo
			}
			out = append(out, domain.LedgerLine{
				ID:          l.ID,
				EntryID:     e.ID,
				AccountID:   l.AccountID,
				Date:        e.Date,
				Debit:       l.Debit,
				Credit:      l.Credit,
				Description: desc,
				Reference:   fmt.Sprintf("JE-%d", e.ID),
			})
		}
	}
	slices.SortFunc(out, func(a, b domain.LedgerLine) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

func (t *memTx) PostedLedgerLines(ctx context.Context, orgID, accountID int64) ([]domain.LedgerLine, error) {
	if err := t.fails["ledger_lines"]; err != nil {
		return nil, err
	}
	return t.postedLines(orgID, accountID, func(domain.JournalEntry) bool { return true }), nil
}

func (t *memTx) CustomerPayments(ctx context.Context, orgID int64) ([]domain.CustomerPayment, error) {
	if err := t.fails["customer_payments"]; err != nil {
		return nil, err
	}
	var out []domain.CustomerPayment
	for _, p := range t.d.customerPayments {
		if t.d.customerOrgs[p.ID] == orgID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.CustomerPayment) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (t *memTx) VendorPayments(ctx context.Context, orgID int64) ([]domain.VendorPayment, error) {
	if err := t.fails["vendor_payments"]; err != nil {
		return nil, err
	}
	var out []domain.VendorPayment
	for _, p := range t.d.vendorPayments {
		if t.d.vendorOrgs[p.ID] == orgID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.VendorPayment) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

func (t *memTx) BooksBalance(ctx context.Context, orgID, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	balance := decimal.Zero
	lines := t.postedLines(orgID, accountID, func(e domain.JournalEntry) bool { return !e.Date.After(asOf) })
	for _, l := range lines {
		balance = balance.Add(l.Debit).Sub(l.Credit)
	}
	return balance, nil
}

func (t *memTx) AccountByCode(ctx context.Context, orgID int64, code string) (*domain.Account, error) {
	for _, a := range t.d.accounts {
		if a.OrganizationID == orgID && a.Code == code {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) InsertJournalEntry(ctx context.Context, je *domain.JournalEntry) error {
	if err := t.write(); err != nil {
		return err
	}
	t.insertEntry(je)
	return nil
}

func (t *memTx) insertEntry(je *domain.JournalEntry) {
	je.ID = t.d.next("journal_entries")
	for i := range je.Lines {
		je.Lines[i].ID = t.d.next("journal_entry_lines")
	}
	e := *je
	e.Lines = slices.Clone(je.Lines)
	t.d.entries[e.ID] = e
}
