// Package core provides money parsing and handling utilities.
//
// This file contains the Amount type used for every monetary value and the
// parser that turns user input into it.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amounts carry at most maxAmountDigits significant digits and an exponent
// within ±maxAmountExponent, which keeps their decimal rendering short.
const (
	maxAmountDigits   = 20
	maxAmountExponent = 20
)

// Amount is a decimal monetary value. It encodes as a bare JSON number.
type Amount struct {
	decimal.Decimal
}

func inRange(d decimal.Decimal) bool {
	exp := d.Exponent()
	return exp >= -maxAmountExponent && exp <= maxAmountExponent && d.NumDigits() <= maxAmountDigits
}

// NewAmount builds an Amount from a float, for tests and fixtures.
func NewAmount(f float64) Amount {
	return Amount{Decimal: decimal.NewFromFloat(f)}
}

// ParseAmount converts a user supplied decimal string to an Amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. The
// result must be strictly positive and within the digit and exponent
// bounds; empty, malformed, zero, negative and oversized inputs return
// ErrInvalidAmount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> ErrInvalidAmount
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil || !inRange(d) {
		return Amount{}, ErrInvalidAmount
	}
	a := Amount{Decimal: d}
	if err := a.Validate(); err != nil {
		return Amount{}, err
	}
	return a, nil
}

// Validate reports ErrInvalidAmount for zero or negative values.
func (a Amount) Validate() error {
	if !a.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{Decimal: a.Decimal.Add(b.Decimal)}
}

// MarshalJSON writes the amount as a JSON number, not a quoted string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.Decimal.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. Anything else
// (null, booleans, garbage strings, oversized numbers) decodes as zero so
// that one bad row in a hand-edited document does not invalidate the whole
// snapshot.
func (a *Amount) UnmarshalJSON(data []byte) error {
	a.Decimal = decimal.Zero
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	}
	if d, err := decimal.NewFromString(raw); err == nil && inRange(d) {
		a.Decimal = d
	}
	return nil
}
