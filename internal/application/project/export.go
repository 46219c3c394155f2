package project

import (
	"github.com/obras/backend/internal/domain/project"
	"github.com/obras/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// DisplayRow is one grid row with every amount formatted for display
type DisplayRow struct {
	ID                 int    `json:"id"`
	Name               string `json:"name"`
	Budget             string `json:"budget"`
	ContractValue      string `json:"contract_value"`
	Disbursed          string `json:"disbursed"`
	OutstandingBalance string `json:"outstanding_balance"`
	ContractBased      bool   `json:"contract_based"`
	Invoice            bool   `json:"invoice"`
}

// DisplayView is the formatted form of a project consumed by export and
// printing subsystems
type DisplayView struct {
	ProjectNumber string            `json:"project_number"`
	Name          string            `json:"name"`
	Client        string            `json:"client"`
	Currency      string            `json:"currency"`
	Inputs        map[string]string `json:"inputs"`
	Figures       map[string]string `json:"figures"`
	Rows          []DisplayRow      `json:"rows"`
	Footer        DisplayRow        `json:"footer"`
}

// BuildDisplayView formats a controller view in the given currency
func BuildDisplayView(v View, currency valueobject.Currency) DisplayView {
	format := func(d decimal.Decimal) string {
		return valueobject.FormatAmountIn(d, currency)
	}
	p := v.Project

	out := DisplayView{
		ProjectNumber: p.ProjectNumber,
		Name:          p.Name,
		Client:        p.Client,
		Currency:      string(currency),
		Inputs: map[string]string{
			string(project.FieldContractAmount):   format(p.ContractAmount),
			string(project.FieldAdvancesReceived): format(p.AdvancesReceived),
			string(project.FieldBudget):           format(p.Budget),
		},
		Figures: make(map[string]string, 20),
		Rows:    make([]DisplayRow, 0, len(v.Categories)),
	}
	for name, value := range p.Figures.Fields() {
		out.Figures[name] = format(value)
	}
	for _, c := range v.Categories {
		out.Rows = append(out.Rows, DisplayRow{
			ID:                 c.ID,
			Name:               c.Name,
			Budget:             format(c.Budget),
			ContractValue:      format(c.ContractValue),
			Disbursed:          format(c.Disbursed),
			OutstandingBalance: format(c.OutstandingBalance),
			ContractBased:      c.ContractBased,
			Invoice:            c.InvoiceFlag,
		})
	}
	out.Footer = DisplayRow{
		Name:               "Total",
		Budget:             format(p.Figures.TotalBudget),
		ContractValue:      format(p.Figures.TotalContract),
		Disbursed:          format(p.Figures.TotalDisbursed),
		OutstandingBalance: format(p.Figures.TotalOutstanding),
	}
	return out
}
