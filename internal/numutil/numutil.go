// Package numutil extracts numeric values from the loosely-typed payloads the
// game and wallet APIs return. Fields documented as numbers routinely arrive
// as strings, formatted strings ("1,234.5") or nested inside other text.
package numutil

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var numberRe = regexp.MustCompile(`-?\d+[\d,]*\.?\d*`)

// Parse extracts a float64 from v. It accepts Go numeric types, json.Number,
// and strings containing a number anywhere in the text. Thousands separators
// are tolerated. The second return is false when no number can be found.
func Parse(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f, true
		}
		return parseString(n.String())
	case bool:
		return 0, false
	case string:
		return parseString(n)
	default:
		return 0, false
	}
}

// ParseInt extracts an integer, truncating any fractional part.
func ParseInt(v any) (int, bool) {
	f, ok := Parse(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// ParseDecimal extracts a decimal amount for money paths, where float
// round-tripping would lose precision.
func ParseDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case string:
		tok, ok := findToken(n)
		if !ok {
			return decimal.Zero, false
		}
		d, err := decimal.NewFromString(tok)
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	case json.Number:
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return decimal.Zero, false
		}
		return d, true
	default:
		f, ok := Parse(v)
		if !ok {
			return decimal.Zero, false
		}
		return decimal.NewFromFloat(f), true
	}
}

func parseString(s string) (float64, bool) {
	tok, ok := findToken(s)
	if !ok {
		return 0, false
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func findToken(s string) (string, bool) {
	m := numberRe.FindString(s)
	if m == "" {
		return "", false
	}
	return strings.ReplaceAll(m, ",", ""), true
}
