package project

import (
	"github.com/shopspring/decimal"
)

// LedgerTotals holds column sums over a set of ledger rows
type LedgerTotals struct {
	Budget             decimal.Decimal `json:"budget"`
	ContractValue      decimal.Decimal `json:"contract_value"`
	Disbursed          decimal.Decimal `json:"disbursed"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
}

func zeroTotals() LedgerTotals {
	return LedgerTotals{
		Budget:             decimal.Zero,
		ContractValue:      decimal.Zero,
		Disbursed:          decimal.Zero,
		OutstandingBalance: decimal.Zero,
	}
}

// CategoryLedger is the ordered collection of category rows of one project.
// It is not safe for concurrent use; the owning controller serialises access.
type CategoryLedger struct {
	rows   []Category
	policy *CategoryPolicy
}

// NewCategoryLedger creates a ledger from existing rows. Memberships of the
// rows are re-resolved from their names through the policy.
func NewCategoryLedger(policy *CategoryPolicy, rows ...Category) *CategoryLedger {
	if policy == nil {
		policy = DefaultPolicy()
	}
	l := &CategoryLedger{
		rows:   make([]Category, 0, len(rows)),
		policy: policy,
	}
	for _, r := range rows {
		l.Append(r)
	}
	return l
}

// NewDefaultLedger creates a ledger seeded with DefaultCategoryNames, ids 1..N
func NewDefaultLedger(policy *CategoryPolicy) *CategoryLedger {
	l := NewCategoryLedger(policy)
	for _, name := range DefaultCategoryNames {
		l.Add(name)
	}
	return l
}

// Policy returns the membership policy of the ledger
func (l *CategoryLedger) Policy() *CategoryPolicy {
	return l.policy
}

// Len returns the number of rows
func (l *CategoryLedger) Len() int {
	return len(l.rows)
}

// Categories returns a copy of the rows in display order
func (l *CategoryLedger) Categories() []Category {
	out := make([]Category, len(l.rows))
	copy(out, l.rows)
	return out
}

// Clone returns an independent copy of the ledger
func (l *CategoryLedger) Clone() *CategoryLedger {
	return &CategoryLedger{
		rows:   l.Categories(),
		policy: l.policy,
	}
}

func (l *CategoryLedger) indexOf(id int) int {
	for i := range l.rows {
		if l.rows[i].ID == id {
			return i
		}
	}
	return -1
}

// Get returns the row with the given id
func (l *CategoryLedger) Get(id int) (Category, bool) {
	i := l.indexOf(id)
	if i < 0 {
		return Category{}, false
	}
	return l.rows[i], true
}

// Has reports whether a row with the given id exists
func (l *CategoryLedger) Has(id int) bool {
	return l.indexOf(id) >= 0
}

// Upsert applies a patch to an existing row. It returns false when no row
// has the id; rows are only created through Add or Append.
func (l *CategoryLedger) Upsert(id int, patch CategoryPatch) bool {
	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	row := &l.rows[i]
	if patch.Name != nil {
		row.Name = *patch.Name
		row.Membership = l.policy.Classify(row.Name)
	}
	if patch.Budget != nil {
		row.Budget = *patch.Budget
	}
	if patch.ContractValue != nil {
		row.ContractValue = *patch.ContractValue
	}
	if patch.Disbursed != nil {
		row.Disbursed = *patch.Disbursed
	}
	if patch.OutstandingBalance != nil {
		row.OutstandingBalance = *patch.OutstandingBalance
	}
	return true
}

// Set assigns one monetary field of a row
func (l *CategoryLedger) Set(id int, field CategoryField, v decimal.Decimal) bool {
	i := l.indexOf(id)
	if i < 0 {
		return false
	}
	return l.rows[i].set(field, v)
}

// Rename changes the display name of a row and re-resolves its memberships
func (l *CategoryLedger) Rename(id int, name string) bool {
	return l.Upsert(id, CategoryPatch{Name: &name})
}

// NextID returns max existing id + 1
func (l *CategoryLedger) NextID() int {
	next := 1
	for _, r := range l.rows {
		if r.ID >= next {
			next = r.ID + 1
		}
	}
	return next
}

// Add appends a zeroed row with a fresh id
func (l *CategoryLedger) Add(name string) Category {
	c := NewCategory(l.NextID(), name, l.policy)
	l.rows = append(l.rows, c)
	return c
}

// Append adds a row that already carries an id, typically one received from
// the store. It returns false when the id is not positive or already taken.
func (l *CategoryLedger) Append(c Category) bool {
	if c.ID <= ProjectScope || l.Has(c.ID) {
		return false
	}
	c.Membership = l.policy.Classify(c.Name)
	l.rows = append(l.rows, c)
	return true
}

// Totals sums budget, contract value and disbursed over every row, and the
// outstanding balance over contract-based rows only. This is the footer row
// of the grid.
func (l *CategoryLedger) Totals() LedgerTotals {
	t := zeroTotals()
	for _, r := range l.rows {
		t.Budget = t.Budget.Add(r.Budget)
		t.ContractValue = t.ContractValue.Add(r.ContractValue)
		t.Disbursed = t.Disbursed.Add(r.Disbursed)
		if r.ContractBased {
			t.OutstandingBalance = t.OutstandingBalance.Add(r.OutstandingBalance)
		}
	}
	return t
}

// TotalsExcludingFlagged sums budget, contract value and disbursed over rows
// that are not contract-based. Contract-based rows already represent
// committed spend and would be counted twice in the project-level figures.
func (l *CategoryLedger) TotalsExcludingFlagged() LedgerTotals {
	t := zeroTotals()
	for _, r := range l.rows {
		if r.ContractBased {
			continue
		}
		t.Budget = t.Budget.Add(r.Budget)
		t.ContractValue = t.ContractValue.Add(r.ContractValue)
		t.Disbursed = t.Disbursed.Add(r.Disbursed)
	}
	return t
}

// sumWhere adds one field over the rows accepted by the predicate
func (l *CategoryLedger) sumWhere(field CategoryField, keep func(Category) bool) decimal.Decimal {
	total := decimal.Zero
	for _, r := range l.rows {
		if keep(r) {
			total = total.Add(r.Value(field))
		}
	}
	return total
}

// applyOutstandingRules rewrites the outstanding balance of every row that
// has a derived rule. Manual rows are untouched.
func (l *CategoryLedger) applyOutstandingRules() {
	for i := range l.rows {
		r := &l.rows[i]
		switch r.OutstandingRule() {
		case OutstandingFromContract:
			r.OutstandingBalance = r.ContractValue.Sub(r.Disbursed)
		case OutstandingFromBudget:
			r.OutstandingBalance = r.Budget.Sub(r.Disbursed)
		}
	}
}
