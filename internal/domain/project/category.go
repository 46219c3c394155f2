package project

import (
	"github.com/shopspring/decimal"
)

// OutstandingRule selects how a row's outstanding balance is derived
type OutstandingRule int

const (
	// OutstandingManual leaves the outstanding balance as last set
	OutstandingManual OutstandingRule = iota
	// OutstandingFromContract derives contract value - disbursed
	OutstandingFromContract
	// OutstandingFromBudget derives budget - disbursed
	OutstandingFromBudget
)

func (r OutstandingRule) String() string {
	switch r {
	case OutstandingFromContract:
		return "contract"
	case OutstandingFromBudget:
		return "budget"
	default:
		return "manual"
	}
}

// Category is one row of a project's ledger. Rows are addressed by ID only;
// two rows may share a display name.
type Category struct {
	ID                 int             `json:"id"`
	Name               string          `json:"name"`
	Budget             decimal.Decimal `json:"budget"`
	ContractValue      decimal.Decimal `json:"contract_value"`
	Disbursed          decimal.Decimal `json:"disbursed"`
	OutstandingBalance decimal.Decimal `json:"outstanding_balance"`
	Membership
}

// NewCategory creates a zeroed row whose memberships are resolved by the policy
func NewCategory(id int, name string, policy *CategoryPolicy) Category {
	return Category{
		ID:                 id,
		Name:               name,
		Budget:             decimal.Zero,
		ContractValue:      decimal.Zero,
		Disbursed:          decimal.Zero,
		OutstandingBalance: decimal.Zero,
		Membership:         policy.Classify(name),
	}
}

// Value returns the value of a monetary field
func (c Category) Value(field CategoryField) decimal.Decimal {
	switch field {
	case CategoryBudget:
		return c.Budget
	case CategoryContractValue:
		return c.ContractValue
	case CategoryDisbursed:
		return c.Disbursed
	case CategoryOutstandingBalance:
		return c.OutstandingBalance
	}
	return decimal.Zero
}

// set assigns a monetary field, reporting false for unknown fields
func (c *Category) set(field CategoryField, v decimal.Decimal) bool {
	switch field {
	case CategoryBudget:
		c.Budget = v
	case CategoryContractValue:
		c.ContractValue = v
	case CategoryDisbursed:
		c.Disbursed = v
	case CategoryOutstandingBalance:
		c.OutstandingBalance = v
	default:
		return false
	}
	return true
}

// OutstandingRule returns the formula that governs this row's outstanding balance
func (c Category) OutstandingRule() OutstandingRule {
	if c.ContractBased {
		return OutstandingFromContract
	}
	if c.Budget.IsPositive() {
		return OutstandingFromBudget
	}
	return OutstandingManual
}

// CategoryPatch is a partial update of a category row. Nil fields are left alone.
type CategoryPatch struct {
	Name               *string          `json:"name,omitempty"`
	Budget             *decimal.Decimal `json:"budget,omitempty"`
	ContractValue      *decimal.Decimal `json:"contract_value,omitempty"`
	Disbursed          *decimal.Decimal `json:"disbursed,omitempty"`
	OutstandingBalance *decimal.Decimal `json:"outstanding_balance,omitempty"`
}

// FullCategoryPatch returns a patch carrying every field of the row
func FullCategoryPatch(c Category) CategoryPatch {
	name := c.Name
	budget := c.Budget
	contract := c.ContractValue
	disbursed := c.Disbursed
	outstanding := c.OutstandingBalance
	return CategoryPatch{
		Name:               &name,
		Budget:             &budget,
		ContractValue:      &contract,
		Disbursed:          &disbursed,
		OutstandingBalance: &outstanding,
	}
}

// FieldPatch returns a patch that sets a single monetary field
func FieldPatch(field CategoryField, v decimal.Decimal) CategoryPatch {
	var p CategoryPatch
	switch field {
	case CategoryBudget:
		p.Budget = &v
	case CategoryContractValue:
		p.ContractValue = &v
	case CategoryDisbursed:
		p.Disbursed = &v
	case CategoryOutstandingBalance:
		p.OutstandingBalance = &v
	}
	return p
}

// IsEmpty reports whether the patch changes nothing
func (p CategoryPatch) IsEmpty() bool {
	return p.Name == nil && p.Budget == nil && p.ContractValue == nil &&
		p.Disbursed == nil && p.OutstandingBalance == nil
}
