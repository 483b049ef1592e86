// Package decimalx holds small shopspring/decimal helpers shared by the
// risk validator and the decision pipeline. Prices, leverage caps, and
// logged confidence all cross trust boundaries as fixed-precision decimals
// rather than binary floats, so position-value comparisons stay exact.
package decimalx

import "github.com/shopspring/decimal"

// Zero is the shared zero value, avoiding repeated decimal.NewFromInt(0).
var Zero = decimal.Zero

// FromFloat is a thin wrapper kept for call-site readability at adapter
// boundaries where an incoming value is still a float64 (e.g. exchange
// REST responses before they are repackaged as decimals).
func FromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// IsPositive reports whether d is strictly greater than zero.
func IsPositive(d decimal.Decimal) bool {
	return d.Sign() > 0
}

// NormalizeConfidence maps a confidence value expressed on either a 0-1 or
// a 0-100 scale onto 0-1: values greater than 1 are divided by 100.
func NormalizeConfidence(d decimal.Decimal) decimal.Decimal {
	if d.GreaterThan(decimal.NewFromInt(1)) {
		return d.Div(decimal.NewFromInt(100))
	}
	return d
}

// Div100 returns d/100, converting a percentage to a plain decimal.
func Div100(d decimal.Decimal) decimal.Decimal {
	return d.Div(decimal.NewFromInt(100))
}
