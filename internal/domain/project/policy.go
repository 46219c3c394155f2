package project

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CanonicalName normalises a category display name for membership lookups:
// accents are removed, letters are lower-cased and runs of whitespace are
// collapsed to a single space.
func CanonicalName(name string) string {
	stripAccents := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(stripAccents, name)
	if err != nil {
		s = name
	}
	s = cases.Lower(language.Spanish).String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Membership holds the fixed-set memberships of a category, resolved once
// from its name and stored on the row.
type Membership struct {
	// ContractBased rows always use contract - disbursed as outstanding balance
	// and are left out of the project-level budget and disbursement figures.
	ContractBased bool `json:"contract_based"`
	// InvoiceFlag rows feed the VAT credit bases ("F" rows).
	InvoiceFlag bool `json:"invoice_flag"`
	// PurchaseBudget rows contribute their budget to the purchases balance.
	PurchaseBudget bool `json:"purchase_budget"`
	// PurchaseContract rows contribute their contract value to the purchases balance.
	PurchaseContract bool `json:"purchase_contract"`
}

// CategoryPolicy is the authoritative table of category memberships,
// keyed by canonical name.
type CategoryPolicy struct {
	contractBased    map[string]struct{}
	invoice          map[string]struct{}
	purchaseBudget   map[string]struct{}
	purchaseContract map[string]struct{}
}

// NewCategoryPolicy builds a policy from display-name lists. Names are
// canonicalised, so accent and spacing variants collapse to one entry.
func NewCategoryPolicy(contractBased, invoice, purchaseBudget, purchaseContract []string) *CategoryPolicy {
	return &CategoryPolicy{
		contractBased:    nameSet(contractBased),
		invoice:          nameSet(invoice),
		purchaseBudget:   nameSet(purchaseBudget),
		purchaseContract: nameSet(purchaseContract),
	}
}

func nameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if c := CanonicalName(n); c != "" {
			set[c] = struct{}{}
		}
	}
	return set
}

// Classify resolves the memberships of a category name
func (p *CategoryPolicy) Classify(name string) Membership {
	if p == nil {
		return Membership{}
	}
	c := CanonicalName(name)
	_, contractBased := p.contractBased[c]
	_, invoice := p.invoice[c]
	_, purchaseBudget := p.purchaseBudget[c]
	_, purchaseContract := p.purchaseContract[c]
	return Membership{
		ContractBased:    contractBased,
		InvoiceFlag:      invoice,
		PurchaseBudget:   purchaseBudget,
		PurchaseContract: purchaseContract,
	}
}

// Category name lists of the reference grid.
var (
	ContractBasedCategories = []string{
		"Despecie",
		"Mano de Obra",
		"OF - ESCP",
		"Granito y/o Cuarzo",
		"Tercialización 1 Facturada",
		"Tercialización 1 No Facturada",
		"Tercialización 2 Facturada",
		"Tercialización 2 No Facturada",
		"GyC Facturada",
		"GyC No Facturada",
		"Extras y/o Eventos GyC",
		"Extras y/o Eventos Tercialización",
	}

	InvoiceCategories = []string{
		"Melamina y Servicios",
		"Melamina High Gloss",
		"Accesorios y Ferretería",
		"Puertas y Marcos",
		"Vidrios y Espejos",
		"Iluminación",
		"Tercialización 1 Facturada",
		"Tercialización 2 Facturada",
		"GyC Facturada",
		"Granito y/o Cuarzo",
	}

	PurchaseBudgetCategories = []string{
		"Melamina y Servicios",
		"Melamina High Gloss",
		"Accesorios y Ferretería",
		"Puertas y Marcos",
		"Tableros",
		"Vidrios y Espejos",
		"Iluminación",
	}

	PurchaseContractCategories = []string{
		"Tercialización 1 Facturada",
		"Tercialización 1 No Facturada",
		"Tercialización 2 Facturada",
		"Tercialización 2 No Facturada",
		"GyC Facturada",
		"GyC No Facturada",
		"Granito y/o Cuarzo",
	}

	// DefaultCategoryNames is the row template seeded into every new project
	DefaultCategoryNames = []string{
		"Melamina y Servicios",
		"Melamina High Gloss",
		"Accesorios y Ferretería",
		"Puertas y Marcos",
		"Tableros",
		"Vidrios y Espejos",
		"Iluminación",
		"Granito y/o Cuarzo",
		"Tercialización 1 Facturada",
		"Tercialización 1 No Facturada",
		"Tercialización 2 Facturada",
		"Tercialización 2 No Facturada",
		"GyC Facturada",
		"GyC No Facturada",
		"Extras y/o Eventos GyC",
		"Extras y/o Eventos Tercialización",
		"Despecie",
		"Mano de Obra",
		"OF - ESCP",
		"Transporte",
		"Instalación",
		"Viáticos",
		"Caja Chica",
		"Otros Gastos",
	}
)

var defaultPolicy = NewCategoryPolicy(
	ContractBasedCategories,
	InvoiceCategories,
	PurchaseBudgetCategories,
	PurchaseContractCategories,
)

// DefaultPolicy returns the membership policy of the reference grid
func DefaultPolicy() *CategoryPolicy {
	return defaultPolicy
}
