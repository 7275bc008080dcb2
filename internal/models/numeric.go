package models

import (
	"strings"

	"github.com/shopspring/decimal"
)

var amountStripper = strings.NewReplacer(
	",", "",
	"₹", "",
	"$", "",
	"€", "",
	"%", "",
	" ", "",
)

// ParseAmount converts an extracted monetary or quantity string to a
// decimal. Thousands separators, currency symbols and percent signs
// are stripped first. Returns ok=false for values that are empty after
// stripping or not numeric; it never fails hard, callers leave the
// field unset.
func ParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := amountStripper.Replace(strings.TrimSpace(s))
	cleaned = strings.TrimPrefix(cleaned, "Rs.")
	cleaned = strings.TrimPrefix(cleaned, "Rs")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseAmountPtr is ParseAmount returning a pointer, nil when the
// value does not parse.
func ParseAmountPtr(s string) *decimal.Decimal {
	d, ok := ParseAmount(s)
	if !ok {
		return nil
	}
	return &d
}
