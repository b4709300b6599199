// Package money holds the float arithmetic shared by pricing, FIFO costing and
// settlement. Amounts stay unrounded through intermediate steps; Round2 and
// Round4 are for presentation and for the weighted price quote only.
package money

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SumSafe adds values, counting NaN terms as zero.
func SumSafe(values ...float64) float64 {
	var total float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		total += v
	}
	return total
}

// ClampNonNegative returns max(x, 0). NaN clamps to zero.
func ClampNonNegative(x float64) float64 {
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	return x
}

// Percent returns base * pct / 100.
func Percent(base, pct float64) float64 {
	if !IsFinite(base) || !IsFinite(pct) {
		return 0
	}
	return base * pct / 100
}

// PercentOf returns the percentage amount represents of base, or 0 when base is 0.
func PercentOf(amount, base float64) float64 {
	if !IsFinite(amount) || !IsFinite(base) || base == 0 {
		return 0
	}
	return amount * 100 / base
}

// Round rounds half away from zero to the given number of decimal places.
func Round(x float64, places int32) float64 {
	if !IsFinite(x) {
		return 0
	}
	f, _ := decimal.NewFromFloat(x).Round(places).Float64()
	return f
}

func Round2(x float64) float64 { return Round(x, 2) }

func Round4(x float64) float64 { return Round(x, 4) }

// Format renders x with two decimals for human-readable messages.
func Format(x float64) string {
	if !IsFinite(x) {
		return "0.00"
	}
	return decimal.NewFromFloat(x).StringFixed(2)
}

// Parse reads a user-entered amount. Unparsable input yields NaN so that the
// value drops out of SumSafe instead of failing the whole calculation.
func Parse(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ToDecimal converts x for wire payloads that need exact cents.
func ToDecimal(x float64) decimal.Decimal {
	if !IsFinite(x) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(x)
}

// PercentDecimal is the decimal twin of Percent, rounded to four places.
func PercentDecimal(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).DivRound(hundred, 4)
}
