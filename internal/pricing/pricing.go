// Package pricing holds the pure money arithmetic shared by the voucher
// validator, the line aggregators and the recalculation engine.
package pricing

import (
	"errors"
	"math"
	"strings"
)

// PricingMode decides whether quantity multiplies the unit price.
type PricingMode string

const (
	PerPerson PricingMode = "per_person"
	PerGroup  PricingMode = "per_group"
)

var ErrInvalidPricingMode = errors.New("invalid_pricing_mode")

// ParsePricingMode normalizes a stored mode. Empty means per_person.
func ParsePricingMode(raw string) (PricingMode, error) {
	switch PricingMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PerPerson:
		return PerPerson, nil
	case PerGroup:
		return PerGroup, nil
	default:
		return "", ErrInvalidPricingMode
	}
}

// LineAmount returns the contribution of one priced line. A per_group line
// is a fixed package price, quantity is informational only.
func LineAmount(quantity, unitPrice int64, mode PricingMode) int64 {
	if mode == PerGroup {
		return unitPrice
	}
	return quantity * unitPrice
}

// RoundCurrency rounds half away from zero to whole minor units.
func RoundCurrency(value float64) int64 {
	return int64(math.Round(value))
}

// PercentOf returns round(amount * percent / 100).
func PercentOf(amount int64, percent float64) int64 {
	if amount <= 0 || percent <= 0 {
		return 0
	}
	return RoundCurrency(float64(amount) * percent / 100)
}

// ComputeTaxExclusive returns tax added on top of base for a fractional rate (0.1 = 10%).
func ComputeTaxExclusive(base int64, rate float64) int64 {
	if base <= 0 || rate <= 0 {
		return 0
	}
	return RoundCurrency(float64(base) * rate)
}

func MaxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func MinInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
