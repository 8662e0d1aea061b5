// Package core holds the domain model shared by the pipeline components.
//
// This file contains monetary helpers. Amounts travel through the pipeline as
// arbitrary-precision decimals and are only rounded to two places at
// presentation time, never before aggregation.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into an amount. It accepts both dot
// and comma decimal separators and rejects negative values.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, ErrEmptyAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, ErrNegativeAmount
	}
	return d, nil
}

// AmountFromCents converts an integer cent value (the storage representation)
// into a decimal amount.
func AmountFromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// CentsFromAmount converts an amount to integer cents for storage, rounding
// half-up on the third decimal place.
func CentsFromAmount(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FormatAmount renders an amount with exactly two decimal places. This is the
// single presentation-time rounding point for monetary values.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
