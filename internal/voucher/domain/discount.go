package domain

import "github.com/smallbiznis/campstay/internal/pricing"

// ComputeDiscount returns the discount for total. Percentages are
// total*value/100, fixed values are taken as-is; both are capped by
// maxAmount (when set) and by total itself.
func ComputeDiscount(discountType DiscountType, value float64, maxAmount *int64, total int64) int64 {
	if total <= 0 || value <= 0 {
		return 0
	}

	var amount int64
	switch discountType {
	case DiscountPercentage:
		amount = pricing.PercentOf(total, value)
	case DiscountFixed:
		amount = pricing.RoundCurrency(value)
	default:
		return 0
	}

	if maxAmount != nil && *maxAmount >= 0 {
		amount = pricing.MinInt64(amount, *maxAmount)
	}
	return pricing.MinInt64(amount, total)
}
