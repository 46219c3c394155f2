package project

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lower-cases", "Mano de Obra", "mano de obra"},
		{"strips accents", "Tercialización 1 Facturada", "tercializacion 1 facturada"},
		{"collapses whitespace", "  GyC   No\tFacturada ", "gyc no facturada"},
		{"keeps punctuation", "OF - ESCP", "of - escp"},
		{"empty", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalName(tt.input))
		})
	}
}

func TestCategoryPolicy_Classify(t *testing.T) {
	policy := DefaultPolicy()

	t.Run("flagged and invoice row", func(t *testing.T) {
		m := policy.Classify("Tercialización 1 Facturada")
		assert.True(t, m.ContractBased)
		assert.True(t, m.InvoiceFlag)
		assert.True(t, m.PurchaseContract)
		assert.False(t, m.PurchaseBudget)
	})

	t.Run("accent variants resolve to the same membership", func(t *testing.T) {
		assert.Equal(t, policy.Classify("Tercialización 2 No Facturada"), policy.Classify("tercializacion 2 no facturada"))
		assert.Equal(t, policy.Classify("Iluminación"), policy.Classify("ILUMINACION"))
	})

	t.Run("invoice purchase row is not flagged", func(t *testing.T) {
		m := policy.Classify("Melamina y Servicios")
		assert.False(t, m.ContractBased)
		assert.True(t, m.InvoiceFlag)
		assert.True(t, m.PurchaseBudget)
	})

	t.Run("unknown name has no membership", func(t *testing.T) {
		assert.Equal(t, Membership{}, policy.Classify("Caja Chica"))
		assert.Equal(t, Membership{}, policy.Classify(""))
	})

	t.Run("nil policy classifies nothing", func(t *testing.T) {
		var p *CategoryPolicy
		assert.Equal(t, Membership{}, p.Classify("Despecie"))
	})

	t.Run("custom policy", func(t *testing.T) {
		p := NewCategoryPolicy([]string{"Pintura"}, nil, nil, []string{"Pintura"})
		m := p.Classify(" pintura ")
		assert.True(t, m.ContractBased)
		assert.True(t, m.PurchaseContract)
		assert.False(t, m.InvoiceFlag)
	})
}

func TestDefaultCategoryNames(t *testing.T) {
	assert.Len(t, DefaultCategoryNames, 24)

	seen := make(map[string]bool)
	for _, name := range DefaultCategoryNames {
		c := CanonicalName(name)
		assert.False(t, seen[c], "duplicate default category %q", name)
		seen[c] = true
	}
	for _, name := range ContractBasedCategories {
		assert.True(t, seen[CanonicalName(name)], "flagged category %q missing from template", name)
	}
}
