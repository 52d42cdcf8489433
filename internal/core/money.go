// Package core holds the domain model: categories, rules, learned patterns,
// linked items, accounts and ledger transactions, plus the pure matching and
// normalization logic the categorization resolver is built on.
package core

import "math"

// Money is a signed amount in cents. Negative cents are money out (expense),
// positive cents are money in (income). The external provider uses the
// opposite sign convention; ingestion inverts it before anything touches core.
type Money struct {
	Cents int64
}

// CentsFromFloat converts a decimal amount (as decoded from provider JSON)
// to cents with half-away-from-zero rounding.
func CentsFromFloat(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Abs returns the magnitude in cents. Rule amount ranges match on magnitude.
func (m Money) Abs() int64 {
	if m.Cents < 0 {
		return -m.Cents
	}
	return m.Cents
}

// IsInflow reports whether the amount is money in under the internal sign
// convention.
func (m Money) IsInflow() bool {
	return m.Cents > 0
}

// Dollars returns the decimal value for display purposes. Use cents for
// calculations to avoid floating-point precision issues.
func (m Money) Dollars() float64 {
	return float64(m.Cents) / 100.0
}
