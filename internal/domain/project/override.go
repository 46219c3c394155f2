package project

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"
)

// OverrideTracker remembers the values a user committed during the session.
// A recorded value wins over anything the store sends back for that field.
type OverrideTracker struct {
	values map[FieldKey]decimal.Decimal
}

// NewOverrideTracker creates an empty tracker
func NewOverrideTracker() *OverrideTracker {
	return &OverrideTracker{values: make(map[FieldKey]decimal.Decimal)}
}

// Record stores a committed value. Later commits replace earlier ones.
func (t *OverrideTracker) Record(key FieldKey, v decimal.Decimal) {
	t.values[key] = v
}

// Lookup returns the recorded value of a field
func (t *OverrideTracker) Lookup(key FieldKey) (decimal.Decimal, bool) {
	v, ok := t.values[key]
	return v, ok
}

// Resolve picks the value a field takes when an incoming value arrives from
// the store: the recorded override, else a positive previous local value,
// else the incoming value.
func (t *OverrideTracker) Resolve(key FieldKey, incoming, previous decimal.Decimal) decimal.Decimal {
	if v, ok := t.values[key]; ok {
		return v
	}
	if previous.IsPositive() {
		return previous
	}
	return incoming
}

// Len returns the number of recorded overrides
func (t *OverrideTracker) Len() int {
	return len(t.values)
}

// Keys returns the recorded keys, project fields first, then by category id and field
func (t *OverrideTracker) Keys() []FieldKey {
	keys := make([]FieldKey, 0, len(t.values))
	for k := range t.values {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b FieldKey) int {
		if c := cmp.Compare(a.CategoryID, b.CategoryID); c != 0 {
			return c
		}
		return cmp.Compare(a.Field, b.Field)
	})
	return keys
}
