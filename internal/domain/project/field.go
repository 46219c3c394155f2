package project

import "fmt"

// ProjectField names an editable top-level monetary input of a project
type ProjectField string

const (
	FieldContractAmount   ProjectField = "contract_amount"
	FieldAdvancesReceived ProjectField = "advances_received"
	FieldBudget           ProjectField = "budget"
)

// ProjectFields lists every editable top-level monetary input
var ProjectFields = []ProjectField{FieldContractAmount, FieldAdvancesReceived, FieldBudget}

// IsValid checks if the field is a known project input
func (f ProjectField) IsValid() bool {
	switch f {
	case FieldContractAmount, FieldAdvancesReceived, FieldBudget:
		return true
	}
	return false
}

// CategoryField names one of the four mutable monetary fields of a category row
type CategoryField string

const (
	CategoryBudget             CategoryField = "budget"
	CategoryContractValue      CategoryField = "contract_value"
	CategoryDisbursed          CategoryField = "disbursed"
	CategoryOutstandingBalance CategoryField = "outstanding_balance"
)

// CategoryFields lists the mutable monetary fields of a category row
var CategoryFields = []CategoryField{
	CategoryBudget,
	CategoryContractValue,
	CategoryDisbursed,
	CategoryOutstandingBalance,
}

// IsValid checks if the field is a known category field
func (f CategoryField) IsValid() bool {
	switch f {
	case CategoryBudget, CategoryContractValue, CategoryDisbursed, CategoryOutstandingBalance:
		return true
	}
	return false
}

// ProjectScope is the category id used to address top-level project fields.
// Real category ids start at 1.
const ProjectScope = 0

// FieldKey addresses one editable cell: a top-level field (CategoryID ==
// ProjectScope) or a field of one category row.
type FieldKey struct {
	CategoryID int    `json:"category_id"`
	Field      string `json:"field"`
}

// ProjectKey returns the key of a top-level project field
func ProjectKey(f ProjectField) FieldKey {
	return FieldKey{CategoryID: ProjectScope, Field: string(f)}
}

// CategoryKey returns the key of a category field
func CategoryKey(categoryID int, f CategoryField) FieldKey {
	return FieldKey{CategoryID: categoryID, Field: string(f)}
}

// IsProjectField reports whether the key addresses a top-level field
func (k FieldKey) IsProjectField() bool {
	return k.CategoryID == ProjectScope
}

func (k FieldKey) String() string {
	if k.IsProjectField() {
		return k.Field
	}
	return fmt.Sprintf("category[%d].%s", k.CategoryID, k.Field)
}
