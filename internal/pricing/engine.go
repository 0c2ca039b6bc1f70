package pricing

import (
	"math"
	"strings"
)

// LineItem describes one cart row as consumed by the calculator.
type LineItem struct {
	ProductID      int64
	UnitPrice      float64
	Quantity       int
	ShippingMethod string
	CategoryID     *int64
}

// ShippingRate is one rate record from the shipping rate service.
// Types other than "free" and "basic" are ignored.
type ShippingRate struct {
	Type     string
	Active   bool
	MinOrder *float64
	Price    float64
}

// Policy carries the store-level pricing parameters.
type Policy struct {
	TaxRatePercent             float64
	ExcludedShippingCategories map[int64]struct{}
}

// DefaultPolicy returns the built-in policy used when the settings
// service is unreachable or returned nothing usable.
func DefaultPolicy() Policy {
	return Policy{TaxRatePercent: 5}
}

// Result aggregates the computed pricing components. All values are
// non-negative given sanitised inputs; rounding happens only at the
// presentation boundary.
type Result struct {
	Subtotal         float64
	EligibleSubtotal float64
	ShippingCost     float64
	Discount         float64
	Tax              float64
	Total            float64
	// Sanitized counts inputs that were clamped because they arrived
	// non-finite or negative from upstream. Callers surface it as a
	// data-quality warning.
	Sanitized int
}

// FallbackTier is the legacy shipping tier applied when no usable rate
// records exist: free above FreeOver, otherwise a flat FlatFee.
type FallbackTier struct {
	FreeOver float64
	FlatFee  float64
}

// DefaultFallbackTier preserves the constants that predate the shipping
// rate service.
func DefaultFallbackTier() FallbackTier {
	return FallbackTier{FreeOver: 500, FlatFee: 50}
}

// Calculator computes cart totals. Build one with New so policy and
// rule defaults are in place.
type Calculator struct {
	Policy   Policy
	Discount DiscountRule
	Fallback FallbackTier
}

// New constructs a calculator with the provided policy, the legacy
// threshold discount rule and the legacy fallback shipping tier.
func New(policy Policy) Calculator {
	if !isFinite(policy.TaxRatePercent) || policy.TaxRatePercent < 0 {
		policy.TaxRatePercent = DefaultPolicy().TaxRatePercent
	}
	return Calculator{
		Policy:   policy,
		Discount: DefaultDiscountRule(),
		Fallback: DefaultFallbackTier(),
	}
}

// Compute runs the full pricing pipeline over the provided lines and
// rate records. Pure and deterministic: identical inputs yield
// identical output.
func (c Calculator) Compute(lines []LineItem, rates []ShippingRate) Result {
	var res Result

	units := 0
	for _, ln := range lines {
		unit := c.sanitize(ln.UnitPrice, &res)
		qty := ln.Quantity
		if qty < 0 {
			qty = 0
			res.Sanitized++
		}
		units += qty
		ext := unit * float64(qty)
		res.Subtotal += ext
		if !c.excluded(ln.CategoryID) {
			res.EligibleSubtotal += ext
		}
	}

	// Nothing sellable means nothing to ship, discount or tax.
	if units == 0 {
		return res
	}

	res.ShippingCost = c.shippingCost(lines, rates, res.Subtotal, res.EligibleSubtotal, &res)

	rule := c.Discount
	if rule == nil {
		rule = DefaultDiscountRule()
	}
	res.Discount = c.sanitize(rule.Apply(res.Subtotal), &res)
	if res.Discount > res.Subtotal {
		res.Discount = res.Subtotal
	}

	taxable := res.Subtotal - res.Discount
	res.Tax = taxable * (c.taxRatePercent() / 100)
	res.Total = res.Subtotal + res.ShippingCost - res.Discount + res.Tax
	return res
}

func (c Calculator) shippingCost(lines []LineItem, rates []ShippingRate, subtotal, eligible float64, res *Result) float64 {
	// A single free-shipping item overrides every rate rule.
	for _, ln := range lines {
		if strings.EqualFold(strings.TrimSpace(ln.ShippingMethod), "free") {
			return 0
		}
	}

	freeRate, hasFree := firstActive(rates, "free")
	basicRate, hasBasic := firstActive(rates, "basic")

	if hasFree {
		if freeRate.MinOrder == nil {
			return 0
		}
		min := c.sanitize(*freeRate.MinOrder, res)
		if eligible >= min {
			return 0
		}
		// Threshold not met: fall through to the basic rate.
	}
	if hasBasic {
		return c.sanitize(basicRate.Price, res)
	}
	if subtotal > c.fallback().FreeOver {
		return 0
	}
	return c.fallback().FlatFee
}

func firstActive(rates []ShippingRate, kind string) (ShippingRate, bool) {
	for _, r := range rates {
		if r.Active && strings.EqualFold(strings.TrimSpace(r.Type), kind) {
			return r, true
		}
	}
	return ShippingRate{}, false
}

func (c Calculator) excluded(categoryID *int64) bool {
	if categoryID == nil || len(c.Policy.ExcludedShippingCategories) == 0 {
		return false
	}
	_, ok := c.Policy.ExcludedShippingCategories[*categoryID]
	return ok
}

func (c Calculator) taxRatePercent() float64 {
	if !isFinite(c.Policy.TaxRatePercent) || c.Policy.TaxRatePercent < 0 {
		return DefaultPolicy().TaxRatePercent
	}
	return c.Policy.TaxRatePercent
}

func (c Calculator) fallback() FallbackTier {
	if c.Fallback.FlatFee == 0 && c.Fallback.FreeOver == 0 {
		return DefaultFallbackTier()
	}
	return c.Fallback
}

// sanitize clamps non-finite or negative values to zero and records the
// occurrence on the result.
func (c Calculator) sanitize(v float64, res *Result) float64 {
	if !isFinite(v) || v < 0 {
		res.Sanitized++
		return 0
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Round2 rounds a monetary value to two decimals. Used only when
// rendering or serialising amounts, never mid-pipeline.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
