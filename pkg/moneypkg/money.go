// Package moneypkg represents currency amounts as an integer count of minor units.
//
// Decimal strings are accepted and produced only at the application boundary.
// Everything inside the ledger works with Money.
package moneypkg

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount indicates that the amount is not representable in minor units.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrAmountOverflow indicates that the amount does not fit into the minor units range.
	ErrAmountOverflow = errors.New("amount overflow")
)

// Money is an amount of money in minor currency units (e.g. cents).
type Money int64

// FromDecimal parses a decimal string into Money with the given number of fractional digits.
//
// "10.5" with 2 digits gives 1050. Inputs with more fractional digits than
// allowed are rejected rather than rounded.
func FromDecimal(s string, digits int32) (Money, error) {
	s = strings.TrimSpace(s)
	if len(s) > maxInputLength {
		return 0, ErrInvalidAmount
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}

	return FromDecimalValue(d, digits)
}

const (
	// maxInt64Digits is the number of decimal digits of math.MaxInt64.
	maxInt64Digits = 19
	// maxInputLength bounds decimal strings accepted from clients.
	maxInputLength = 64
)

// FromDecimalValue converts an already parsed decimal into Money.
//
// The exponent is checked before any big number arithmetic, so values like
// "1e2000000000" are rejected without materializing 10^exp.
func FromDecimalValue(d decimal.Decimal, digits int32) (Money, error) {
	if d.IsZero() {
		return 0, nil
	}

	coefDigits := int64(len(d.Coefficient().Text(10)))
	if d.Sign() < 0 {
		coefDigits-- // minus sign
	}

	exp := int64(d.Exponent()) + int64(digits)

	switch {
	case exp > 0 && coefDigits+exp > maxInt64Digits:
		return 0, ErrAmountOverflow
	case exp < 0 && -exp > coefDigits:
		// The coefficient is shorter than the fraction, so a non-zero
		// value always keeps a fractional part.
		return 0, ErrInvalidAmount
	}

	minor := d.Shift(digits)
	if !minor.IsInteger() {
		return 0, ErrInvalidAmount
	}

	n := minor.BigInt()
	if !n.IsInt64() {
		return 0, ErrAmountOverflow
	}

	return Money(n.Int64()), nil
}

// ParsePositive parses a decimal string and requires the result to be greater than zero.
func ParsePositive(s string, digits int32) (Money, error) {
	m, err := FromDecimal(s, digits)
	if err != nil {
		return 0, err
	}

	if !m.IsPositive() {
		return 0, ErrInvalidAmount
	}

	return m, nil
}

// ParseNonNegative parses a decimal string and requires the result to be zero or greater.
func ParseNonNegative(s string, digits int32) (Money, error) {
	m, err := FromDecimal(s, digits)
	if err != nil {
		return 0, err
	}

	if m.IsNegative() {
		return 0, ErrInvalidAmount
	}

	return m, nil
}

// Decimal returns m as a decimal in major units.
func (m Money) Decimal(digits int32) decimal.Decimal {
	return decimal.New(int64(m), -digits)
}

// StringFixed renders m in major units with exactly digits fractional digits.
func (m Money) StringFixed(digits int32) string {
	return m.Decimal(digits).StringFixed(digits)
}

// Add returns m+o or ErrAmountOverflow.
func (m Money) Add(o Money) (Money, error) {
	s := m + o
	if (o > 0 && s < m) || (o < 0 && s > m) {
		return 0, ErrAmountOverflow
	}

	return s, nil
}

// Sub returns m-o or ErrAmountOverflow.
func (m Money) Sub(o Money) (Money, error) {
	s := m - o
	if (o > 0 && s > m) || (o < 0 && s < m) {
		return 0, ErrAmountOverflow
	}

	return s, nil
}

// IsPositive reports whether m > 0.
func (m Money) IsPositive() bool { return m > 0 }

// IsNegative reports whether m < 0.
func (m Money) IsNegative() bool { return m < 0 }

// Neg returns -m. Callers pass amounts that are already validated, so
// math.MinInt64 never reaches it.
func (m Money) Neg() Money { return -m }
