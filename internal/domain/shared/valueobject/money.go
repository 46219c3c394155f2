package valueobject

import (
	"encoding/json"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency represents a currency code (ISO 4217)
type Currency string

const (
	PEN Currency = "PEN" // Peruvian Sol (default)
	USD Currency = "USD" // US Dollar
)

// DefaultCurrency is the default currency for the system
const DefaultCurrency = PEN

// AmountScale is the number of decimal places kept for stored inputs
const AmountScale = 2

// Symbol returns the display prefix token for the currency
func (c Currency) Symbol() string {
	switch c {
	case USD:
		return "US$"
	case PEN:
		return "S/"
	default:
		return string(c)
	}
}

// ParseInput parses an input amount and rounds it half away from zero to
// AmountScale places, the precision the store keeps.
func ParseInput(input any) decimal.Decimal {
	return ParseAmount(input).Round(AmountScale)
}

// ParseAmount converts user or store input into an exact decimal amount.
//
// Strings are cleaned of currency symbols, letters and spaces. When both "."
// and "," appear, the right-most one is the decimal marker and the other one
// groups thousands. When only one of them appears exactly once, it is a
// decimal marker if at most three digits follow it, otherwise it groups
// thousands. A separator repeated more than once always groups thousands.
// A leading "-" or an opening parenthesis makes the amount negative.
//
// Input that cannot be read as a number yields zero; ParseAmount never fails.
func ParseAmount(input any) decimal.Decimal {
	switch v := input.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return v
	case *decimal.Decimal:
		if v == nil {
			return decimal.Zero
		}
		return *v
	case string:
		return parseAmountString(v)
	case json.Number:
		// JSON numbers are already in canonical form
		d, err := decimal.NewFromString(string(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	case []byte:
		return parseAmountString(string(v))
	case int:
		return decimal.NewFromInt(int64(v))
	case int8:
		return decimal.NewFromInt(int64(v))
	case int16:
		return decimal.NewFromInt(int64(v))
	case int32:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case uint:
		return fromUint64(uint64(v))
	case uint8:
		return fromUint64(uint64(v))
	case uint16:
		return fromUint64(uint64(v))
	case uint32:
		return fromUint64(uint64(v))
	case uint64:
		return fromUint64(v)
	case float32:
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat32(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return decimal.Zero
		}
		return decimal.NewFromFloat(v)
	default:
		return decimal.Zero
	}
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}

func parseAmountString(s string) decimal.Decimal {
	negative := false
	seenDigit := false
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			seenDigit = true
		case r == '.' || r == ',':
			// separators ahead of the first digit belong to symbols like "S/."
			if seenDigit {
				b.WriteRune(r)
			}
		case r == '-' || r == '(':
			if !seenDigit {
				negative = true
			}
		}
	}

	cleaned := strings.TrimRight(b.String(), ".,")
	if cleaned == "" {
		return decimal.Zero
	}

	intPart, fracPart := splitDecimalMarker(cleaned)
	number := intPart
	if fracPart != "" {
		number += "." + fracPart
	}

	d, err := decimal.NewFromString(number)
	if err != nil {
		return decimal.Zero
	}
	if negative {
		d = d.Neg()
	}
	return d
}

// splitDecimalMarker returns the integer digits and fractional digits of a
// cleaned amount made only of digits, "." and ",".
func splitDecimalMarker(s string) (string, string) {
	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	marker := -1
	switch {
	case lastDot >= 0 && lastComma >= 0:
		marker = max(lastDot, lastComma)
	case lastDot >= 0:
		marker = singleSeparatorMarker(s, '.', lastDot)
	case lastComma >= 0:
		marker = singleSeparatorMarker(s, ',', lastComma)
	}

	if marker < 0 {
		return stripSeparators(s), ""
	}
	return stripSeparators(s[:marker]), s[marker+1:]
}

func singleSeparatorMarker(s string, sep byte, last int) int {
	if strings.Count(s, string(sep)) > 1 {
		return -1
	}
	if len(s)-last-1 <= 3 {
		return last
	}
	return -1
}

func stripSeparators(s string) string {
	return strings.NewReplacer(".", "", ",", "").Replace(s)
}

// FormatAmount renders an amount as a Peruvian Sol display string such as
// "S/ 20,000.00".
func FormatAmount(d decimal.Decimal) string {
	return FormatAmountIn(d, DefaultCurrency)
}

// FormatAmountIn renders an amount with the prefix token of the given currency
func FormatAmountIn(d decimal.Decimal, currency Currency) string {
	return currency.Symbol() + " " + FormatPlain(d)
}

// FormatPlain renders an amount with two decimals and thousands separators,
// without a currency prefix.
func FormatPlain(d decimal.Decimal) string {
	s := d.StringFixed(2)
	negative := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, fracPart, _ := strings.Cut(s, ".")
	out := groupThousands(intPart) + "." + fracPart
	if negative && out != "0.00" {
		return "-" + out
	}
	return out
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

