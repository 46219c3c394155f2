package project

import (
	"strings"

	"github.com/obras/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Domain errors of the project aggregate
var (
	ErrUnknownField     = shared.NewDomainError("UNKNOWN_FIELD", "Unknown monetary field")
	ErrProjectNotFound  = shared.NewDomainError("PROJECT_NOT_FOUND", "Project not found")
	ErrCategoryNotFound = shared.NewDomainError("CATEGORY_NOT_FOUND", "Category not found")

	ErrDuplicateProjectNumber = shared.NewDomainError("ALREADY_EXISTS", "Project number already exists")
)

var _ shared.AggregateRoot = (*Project)(nil)

// Figures are the derived monetary fields of a project. They are rewritten
// as a whole by Recompute and never edited directly.
type Figures struct {
	TotalBudget      decimal.Decimal `json:"total_budget"`
	TotalContract    decimal.Decimal `json:"total_contract"`
	TotalDisbursed   decimal.Decimal `json:"total_disbursed"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`

	EstimatedProfitNoInvoice decimal.Decimal `json:"estimated_profit_no_invoice"`
	RealProfitNoInvoice      decimal.Decimal `json:"real_profit_no_invoice"`
	BalanceProfitNoInvoice   decimal.Decimal `json:"balance_profit_no_invoice"`

	VAT                    decimal.Decimal `json:"vat"`
	EstimatedVATCreditBase decimal.Decimal `json:"estimated_vat_credit_base"`
	EstimatedVATCredit     decimal.Decimal `json:"estimated_vat_credit"`
	EstimatedTax           decimal.Decimal `json:"estimated_tax"`
	RealVATCreditBase      decimal.Decimal `json:"real_vat_credit_base"`
	RealVATCredit          decimal.Decimal `json:"real_vat_credit"`
	RealTax                decimal.Decimal `json:"real_tax"`

	EstimatedProfitWithInvoice decimal.Decimal `json:"estimated_profit_with_invoice"`
	RealProfitWithInvoice      decimal.Decimal `json:"real_profit_with_invoice"`
	BalanceProfitWithInvoice   decimal.Decimal `json:"balance_profit_with_invoice"`

	ReceivableBalance decimal.Decimal `json:"receivable_balance"`
	PurchasesBalance  decimal.Decimal `json:"purchases_balance"`
	BudgetBalance     decimal.Decimal `json:"budget_balance"`
}

// ZeroFigures returns figures with every field set to zero
func ZeroFigures() Figures {
	z := decimal.Zero
	return Figures{
		TotalBudget: z, TotalContract: z, TotalDisbursed: z, TotalOutstanding: z,
		EstimatedProfitNoInvoice: z, RealProfitNoInvoice: z, BalanceProfitNoInvoice: z,
		VAT: z, EstimatedVATCreditBase: z, EstimatedVATCredit: z, EstimatedTax: z,
		RealVATCreditBase: z, RealVATCredit: z, RealTax: z,
		EstimatedProfitWithInvoice: z, RealProfitWithInvoice: z, BalanceProfitWithInvoice: z,
		ReceivableBalance: z, PurchasesBalance: z, BudgetBalance: z,
	}
}

// Equal reports whether every derived field matches
func (f Figures) Equal(o Figures) bool {
	a, b := f.Fields(), o.Fields()
	for name, v := range a {
		if !v.Equal(b[name]) {
			return false
		}
	}
	return true
}

// Fields returns the figures keyed by their JSON names
func (f Figures) Fields() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		"total_budget":                  f.TotalBudget,
		"total_contract":                f.TotalContract,
		"total_disbursed":               f.TotalDisbursed,
		"total_outstanding":             f.TotalOutstanding,
		"estimated_profit_no_invoice":   f.EstimatedProfitNoInvoice,
		"real_profit_no_invoice":        f.RealProfitNoInvoice,
		"balance_profit_no_invoice":     f.BalanceProfitNoInvoice,
		"vat":                           f.VAT,
		"estimated_vat_credit_base":     f.EstimatedVATCreditBase,
		"estimated_vat_credit":          f.EstimatedVATCredit,
		"estimated_tax":                 f.EstimatedTax,
		"real_vat_credit_base":          f.RealVATCreditBase,
		"real_vat_credit":               f.RealVATCredit,
		"real_tax":                      f.RealTax,
		"estimated_profit_with_invoice": f.EstimatedProfitWithInvoice,
		"real_profit_with_invoice":      f.RealProfitWithInvoice,
		"balance_profit_with_invoice":   f.BalanceProfitWithInvoice,
		"receivable_balance":            f.ReceivableBalance,
		"purchases_balance":             f.PurchasesBalance,
		"budget_balance":                f.BudgetBalance,
	}
}

// Project is the aggregate root of one contracted job
type Project struct {
	shared.BaseAggregateRoot
	ProjectNumber    string          `json:"project_number"`
	Name             string          `json:"name"`
	Client           string          `json:"client"`
	ContractAmount   decimal.Decimal `json:"contract_amount"`
	AdvancesReceived decimal.Decimal `json:"advances_received"`
	Budget           decimal.Decimal `json:"budget"`
	Figures          Figures         `json:"figures"`
}

// NewProject creates a project with zero inputs and zero figures
func NewProject(number, name, client string) (*Project, error) {
	number = strings.TrimSpace(number)
	if err := validateProjectNumber(number); err != nil {
		return nil, err
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Project name cannot exceed 200 characters")
	}

	p := &Project{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		ProjectNumber:     number,
		Name:              strings.TrimSpace(name),
		Client:            strings.TrimSpace(client),
		ContractAmount:    decimal.Zero,
		AdvancesReceived:  decimal.Zero,
		Budget:            decimal.Zero,
		Figures:           ZeroFigures(),
	}
	p.AddDomainEvent(NewProjectCreatedEvent(p))
	return p, nil
}

func validateProjectNumber(number string) error {
	if number == "" {
		return shared.NewDomainError("INVALID_NUMBER", "Project number cannot be empty")
	}
	if len(number) > 50 {
		return shared.NewDomainError("INVALID_NUMBER", "Project number cannot exceed 50 characters")
	}
	return nil
}

// Input returns a top-level monetary input
func (p *Project) Input(field ProjectField) (decimal.Decimal, error) {
	switch field {
	case FieldContractAmount:
		return p.ContractAmount, nil
	case FieldAdvancesReceived:
		return p.AdvancesReceived, nil
	case FieldBudget:
		return p.Budget, nil
	}
	return decimal.Zero, ErrUnknownField
}

// SetInput assigns a top-level monetary input. Derived figures are left
// stale until the next Recompute.
func (p *Project) SetInput(field ProjectField, v decimal.Decimal) error {
	switch field {
	case FieldContractAmount:
		p.ContractAmount = v
	case FieldAdvancesReceived:
		p.AdvancesReceived = v
	case FieldBudget:
		p.Budget = v
	default:
		return ErrUnknownField
	}
	p.Touch()
	return nil
}

// Clone returns a copy that shares no mutable state with p. Pending domain
// events are not carried over.
func (p Project) Clone() Project {
	c := p
	c.ClearDomainEvents()
	return c
}
