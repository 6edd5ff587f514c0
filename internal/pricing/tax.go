package pricing

import (
	"fmt"
	"strings"
)

// ApplicationMethod is how a voucher discount interacts with tax.
type ApplicationMethod string

const (
	PerBookingBeforeTax ApplicationMethod = "per_booking_before_tax"
	AfterTax            ApplicationMethod = "after_tax"
	PerItem             ApplicationMethod = "per_item"
)

// ParseApplicationMethod normalizes a stored method. Empty means per_booking_before_tax.
func ParseApplicationMethod(raw string) (ApplicationMethod, error) {
	switch ApplicationMethod(strings.ToLower(strings.TrimSpace(raw))) {
	case "", PerBookingBeforeTax:
		return PerBookingBeforeTax, nil
	case AfterTax:
		return AfterTax, nil
	case PerItem:
		return PerItem, nil
	default:
		return "", fmt.Errorf("invalid application method %q", raw)
	}
}

// DiscountsBeforeTax reports whether the discount reduces the taxable amount.
func (m ApplicationMethod) DiscountsBeforeTax() bool {
	return m != AfterTax
}

// TaxPolicy selects how booking tax is composed from its lines.
type TaxPolicy string

const (
	// TaxPolicyAuto taxes the aggregate when all discounted lines agree on a
	// method and falls back to per-line composition when they differ.
	TaxPolicyAuto TaxPolicy = "auto"
	// TaxPolicyAggregate taxes subtotal minus discount once, ignoring line methods.
	TaxPolicyAggregate TaxPolicy = "aggregate"
	// TaxPolicyPerLine taxes and rounds every line separately.
	TaxPolicyPerLine TaxPolicy = "per_line"
)

func ParseTaxPolicy(raw string) (TaxPolicy, error) {
	switch TaxPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TaxPolicyAuto:
		return TaxPolicyAuto, nil
	case TaxPolicyAggregate:
		return TaxPolicyAggregate, nil
	case TaxPolicyPerLine:
		return TaxPolicyPerLine, nil
	default:
		return "", fmt.Errorf("invalid tax policy %q", raw)
	}
}

// TaxLine is one priced line as seen by tax composition.
type TaxLine struct {
	Amount   int64
	Discount int64
	// Method is empty when the line carries no voucher.
	Method ApplicationMethod
}

func (l TaxLine) taxableAmount() int64 {
	if l.Method == AfterTax {
		return MaxInt64(0, l.Amount)
	}
	return MaxInt64(0, l.Amount-l.Discount)
}

// ComposeTax returns the booking tax for lines under policy at rate.
// taxableBase is subtotal minus discount after clamping.
func ComposeTax(policy TaxPolicy, rate float64, taxableBase int64, lines []TaxLine) int64 {
	switch policy {
	case TaxPolicyAggregate:
		return ComputeTaxExclusive(taxableBase, rate)
	case TaxPolicyPerLine:
		return perLineTax(rate, lines)
	}

	method, uniform := uniformMethod(lines)
	if !uniform {
		return perLineTax(rate, lines)
	}
	if method == AfterTax {
		var gross int64
		for _, line := range lines {
			gross += line.Amount
		}
		return ComputeTaxExclusive(MaxInt64(0, gross), rate)
	}
	return ComputeTaxExclusive(taxableBase, rate)
}

func perLineTax(rate float64, lines []TaxLine) int64 {
	var total int64
	for _, line := range lines {
		total += ComputeTaxExclusive(line.taxableAmount(), rate)
	}
	return total
}

// uniformMethod returns the single method shared by all discounted lines.
// before-tax and per-item are the same for tax purposes.
func uniformMethod(lines []TaxLine) (ApplicationMethod, bool) {
	var seen ApplicationMethod
	for _, line := range lines {
		if line.Method == "" || line.Discount == 0 {
			continue
		}
		method := line.Method
		if method == PerItem {
			method = PerBookingBeforeTax
		}
		if seen == "" {
			seen = method
			continue
		}
		if seen != method {
			return "", false
		}
	}
	if seen == "" {
		seen = PerBookingBeforeTax
	}
	return seen, true
}
