package pricing

// DiscountRule computes a promotional discount from the cart subtotal.
// Rules must be pure; the calculator clamps whatever they return into
// the [0, subtotal] range.
type DiscountRule interface {
	Apply(subtotal float64) float64
}

// ThresholdPercent grants Percent off the whole subtotal once it
// strictly exceeds Threshold.
type ThresholdPercent struct {
	Threshold float64
	Percent   float64
}

// Apply implements DiscountRule.
func (r ThresholdPercent) Apply(subtotal float64) float64 {
	if subtotal <= r.Threshold {
		return 0
	}
	return subtotal * r.Percent / 100
}

// NoDiscount never grants a discount.
type NoDiscount struct{}

// Apply implements DiscountRule.
func (NoDiscount) Apply(float64) float64 { return 0 }

// DefaultDiscountRule returns the legacy storewide promotion: 10% off
// carts over 1000.
func DefaultDiscountRule() DiscountRule {
	return ThresholdPercent{Threshold: 1000, Percent: 10}
}
