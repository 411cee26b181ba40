// Package money holds the fixed-point helpers used at every ledger boundary.
//
// Amounts are shopspring decimals carrying at most two fractional digits.
// Values are converted here, at the transport edge, and the ledger never sees
// a float.
package money

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Places is the number of fractional digits every amount is kept at.
const Places int32 = 2

var (
	// ErrInvalidAmount is returned when a string is not a plain decimal number.
	ErrInvalidAmount = errors.New("money: invalid amount")
	// ErrTooPrecise is returned when an amount has more than two fractional digits.
	ErrTooPrecise = errors.New("money: amount has more than 2 decimal places")
	// ErrNotPositive is returned by ParsePositive for zero or negative amounts.
	ErrNotPositive = errors.New("money: amount must be positive")
)

// Cent is the smallest representable amount.
var Cent = decimal.New(1, -Places)

var hundred = decimal.NewFromInt(100)

// Plain fixed-point only; exponent forms never reach decimal.
var (
	amountPattern  = regexp.MustCompile(`^-?\d{1,15}(\.\d{1,15})?$`)
	percentPattern = regexp.MustCompile(`^-?\d{1,3}(\.\d{1,15})?$`)
)

// Parse converts a decimal string such as "12.50" into an amount.
// Strings with more than two fractional digits are rejected, not rounded.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}
	if !amountPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if !IsExact(d) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrTooPrecise, s)
	}
	return d, nil
}

// ParsePercent converts a percentage such as "33.333" into a decimal. Unlike
// Parse it keeps extra fractional digits; the split rounds the shares.
func ParsePercent(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if !percentPattern.MatchString(s) {
		return decimal.Zero, fmt.Errorf("%w: percentage %q", ErrInvalidAmount, s)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: percentage %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParsePositive is Parse plus a strictly-positive check.
func ParsePositive(s string) (decimal.Decimal, error) {
	d, err := Parse(s)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrNotPositive, Format(d))
	}
	return d, nil
}

// IsExact reports whether d is representable with two fractional digits.
func IsExact(d decimal.Decimal) bool {
	return d.Equal(d.Round(Places))
}

// Round rounds half away from zero to two places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// Percent returns pct percent of total, rounded to two places.
func Percent(total, pct decimal.Decimal) decimal.Decimal {
	return Round(total.Mul(pct).Div(hundred))
}

// Sum adds amounts.
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// Format renders d with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// MustParse is like Parse but panics on error. Use for literals in tests and fixtures.
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}
