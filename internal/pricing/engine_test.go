package pricing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptrFloat(v float64) *float64 { return &v }

func ptrInt(v int64) *int64 { return &v }

func TestComputeFallbackTier(t *testing.T) {
	calc := New(DefaultPolicy())

	small := calc.Compute([]LineItem{{ProductID: 1, UnitPrice: 100, Quantity: 2}}, nil)
	assert.Equal(t, float64(200), small.Subtotal)
	assert.Equal(t, float64(50), small.ShippingCost, "below fallback threshold pays the flat fee")
	assert.Equal(t, float64(0), small.Discount)
	assert.InDelta(t, 200*0.05, small.Tax, 1e-9)
	assert.InDelta(t, 200+50+10, small.Total, 1e-9)

	large := calc.Compute([]LineItem{{ProductID: 1, UnitPrice: 600, Quantity: 1}}, nil)
	assert.Equal(t, float64(0), large.ShippingCost, "above fallback threshold ships free")
}

func TestComputeEmptyCartCostsNothing(t *testing.T) {
	calc := New(DefaultPolicy())

	empty := calc.Compute(nil, nil)
	assert.Equal(t, Result{}, empty)

	zeroQty := calc.Compute([]LineItem{{ProductID: 1, UnitPrice: 100, Quantity: 0}}, nil)
	assert.Equal(t, float64(0), zeroQty.ShippingCost, "no sellable units means nothing to ship")
	assert.Equal(t, float64(0), zeroQty.Total)
}

func TestComputeDiscountThreshold(t *testing.T) {
	calc := New(DefaultPolicy())

	at := calc.Compute([]LineItem{{ProductID: 1, UnitPrice: 1000, Quantity: 1}}, nil)
	assert.Equal(t, float64(0), at.Discount, "discount requires strictly more than 1000")

	over := calc.Compute([]LineItem{{ProductID: 1, UnitPrice: 1001, Quantity: 1}}, nil)
	assert.InDelta(t, 100.1, over.Discount, 1e-9)
}

func TestComputeIdempotent(t *testing.T) {
	calc := New(Policy{TaxRatePercent: 7, ExcludedShippingCategories: map[int64]struct{}{3: {}}})
	lines := []LineItem{
		{ProductID: 1, UnitPrice: 19.99, Quantity: 3, CategoryID: ptrInt(3)},
		{ProductID: 2, UnitPrice: 5.25, Quantity: 1},
	}
	rates := []ShippingRate{{Type: "free", Active: true, MinOrder: ptrFloat(80)}, {Type: "basic", Active: true, Price: 12}}

	first := calc.Compute(lines, rates)
	second := calc.Compute(lines, rates)
	assert.Equal(t, first, second)
}

func TestComputeQuantityMonotonic(t *testing.T) {
	calc := New(DefaultPolicy())
	lines := []LineItem{
		{ProductID: 1, UnitPrice: 42, Quantity: 2},
		{ProductID: 2, UnitPrice: 9.5, Quantity: 5},
	}
	rates := []ShippingRate{{Type: "basic", Active: true, Price: 15}}
	base := calc.Compute(lines, rates)

	for i := range lines {
		bumped := make([]LineItem, len(lines))
		copy(bumped, lines)
		bumped[i].Quantity++
		res := calc.Compute(bumped, rates)
		assert.GreaterOrEqual(t, res.Subtotal, base.Subtotal)
		assert.GreaterOrEqual(t, res.Total, base.Total)
	}
}

func TestComputeFreeItemOverride(t *testing.T) {
	calc := New(DefaultPolicy())
	lines := []LineItem{
		{ProductID: 1, UnitPrice: 10, Quantity: 1, ShippingMethod: "FREE"},
		{ProductID: 2, UnitPrice: 20, Quantity: 1},
	}
	// Rates that would otherwise charge for shipping.
	rates := []ShippingRate{
		{Type: "free", Active: true, MinOrder: ptrFloat(1_000_000)},
		{Type: "basic", Active: true, Price: 99},
	}
	res := calc.Compute(lines, rates)
	assert.Equal(t, float64(0), res.ShippingCost)
}

func TestComputeThresholdBoundaryInclusive(t *testing.T) {
	calc := New(DefaultPolicy())
	lines := []LineItem{{ProductID: 1, UnitPrice: 50, Quantity: 2}}
	rates := []ShippingRate{
		{Type: "free", Active: true, MinOrder: ptrFloat(100)},
		{Type: "basic", Active: true, Price: 10},
	}
	res := calc.Compute(lines, rates)
	require.Equal(t, float64(100), res.EligibleSubtotal)
	assert.Equal(t, float64(0), res.ShippingCost, "eligible subtotal equal to min order ships free")
}

func TestComputeBelowThresholdUsesBasicRate(t *testing.T) {
	calc := New(DefaultPolicy())
	lines := []LineItem{{ProductID: 1, UnitPrice: 40, Quantity: 2}}
	rates := []ShippingRate{
		{Type: "free", Active: true, MinOrder: ptrFloat(100)},
		{Type: "basic", Active: true, Price: 10},
	}
	res := calc.Compute(lines, rates)
	assert.Equal(t, float64(10), res.ShippingCost)
}

func TestComputeFreeRateWithoutThreshold(t *testing.T) {
	calc := New(DefaultPolicy())
	res := calc.Compute(
		[]LineItem{{ProductID: 1, UnitPrice: 1, Quantity: 1}},
		[]ShippingRate{{Type: "free", Active: true}},
	)
	assert.Equal(t, float64(0), res.ShippingCost)
}

func TestComputeInactiveRatesIgnored(t *testing.T) {
	calc := New(DefaultPolicy())
	res := calc.Compute(
		[]LineItem{{ProductID: 1, UnitPrice: 10, Quantity: 1}},
		[]ShippingRate{
			{Type: "free", Active: false},
			{Type: "basic", Active: false, Price: 7},
		},
	)
	assert.Equal(t, float64(50), res.ShippingCost, "inactive rates fall through to the legacy tier")
}

func TestComputeFirstActiveRateWins(t *testing.T) {
	calc := New(DefaultPolicy())
	res := calc.Compute(
		[]LineItem{{ProductID: 1, UnitPrice: 10, Quantity: 1}},
		[]ShippingRate{
			{Type: "basic", Active: true, Price: 7},
			{Type: "basic", Active: true, Price: 70},
		},
	)
	assert.Equal(t, float64(7), res.ShippingCost)
}

func TestComputeCategoryExclusion(t *testing.T) {
	excluded := int64(9)
	calc := New(Policy{
		TaxRatePercent:             5,
		ExcludedShippingCategories: map[int64]struct{}{excluded: {}},
	})
	lines := []LineItem{
		{ProductID: 1, UnitPrice: 30, Quantity: 1, CategoryID: &excluded},
		{ProductID: 2, UnitPrice: 20, Quantity: 1, CategoryID: ptrInt(2)},
	}
	res := calc.Compute(lines, nil)
	assert.Equal(t, float64(50), res.Subtotal, "excluded categories still count toward the subtotal")
	assert.Equal(t, float64(20), res.EligibleSubtotal)
}

func TestComputeSanitizesMalformedInputs(t *testing.T) {
	calc := New(DefaultPolicy())
	lines := []LineItem{
		{ProductID: 1, UnitPrice: math.NaN(), Quantity: 2},
		{ProductID: 2, UnitPrice: math.Inf(1), Quantity: 1},
		{ProductID: 3, UnitPrice: -10, Quantity: 1},
		{ProductID: 4, UnitPrice: 25, Quantity: 1},
	}
	res := calc.Compute(lines, nil)
	assert.Equal(t, float64(25), res.Subtotal)
	assert.Equal(t, 3, res.Sanitized)
	assert.False(t, math.IsNaN(res.Total))
}

// Worked scenario: two lines, one excluded category, a free rate whose
// threshold is met exactly on the eligible subtotal, and a subtotal
// large enough to trigger the storewide discount.
func TestComputeWorkedScenario(t *testing.T) {
	catA := int64(1)
	catB := int64(2)
	calc := New(Policy{
		TaxRatePercent:             5,
		ExcludedShippingCategories: map[int64]struct{}{catA: {}},
	})
	lines := []LineItem{
		{ProductID: 10, UnitPrice: 100, Quantity: 2, CategoryID: &catA},
		{ProductID: 11, UnitPrice: 300, Quantity: 3, CategoryID: &catB},
	}
	rates := []ShippingRate{{Type: "free", Active: true, MinOrder: ptrFloat(900)}}

	res := calc.Compute(lines, rates)
	require.Equal(t, float64(1100), res.Subtotal)
	require.Equal(t, float64(900), res.EligibleSubtotal)
	assert.Equal(t, float64(0), res.ShippingCost)
	assert.InDelta(t, 110, res.Discount, 1e-9)
	assert.InDelta(t, 49.5, res.Tax, 1e-9)
	assert.InDelta(t, 1039.5, res.Total, 1e-9)
}

func TestComputeCustomDiscountRule(t *testing.T) {
	calc := New(DefaultPolicy())
	calc.Discount = NoDiscount{}
	res := calc.Compute([]LineItem{{ProductID: 1, UnitPrice: 2000, Quantity: 1}}, nil)
	assert.Equal(t, float64(0), res.Discount)
}

func TestFreeShippingProgress(t *testing.T) {
	calc := New(DefaultPolicy())
	rates := []ShippingRate{
		{Type: "free", Active: true, MinOrder: ptrFloat(200)},
		{Type: "basic", Active: true, Price: 10},
	}

	progress, ok := calc.FreeShippingProgress(
		[]LineItem{{ProductID: 1, UnitPrice: 50, Quantity: 1}}, rates)
	require.True(t, ok)
	assert.Equal(t, float64(150), progress.Remaining)
	assert.InDelta(t, 25, progress.Percent, 1e-9)

	// Threshold met: shipping is already free, no bar to render.
	_, ok = calc.FreeShippingProgress(
		[]LineItem{{ProductID: 1, UnitPrice: 250, Quantity: 1}}, rates)
	assert.False(t, ok)

	// No thresholded free rate at all.
	_, ok = calc.FreeShippingProgress(
		[]LineItem{{ProductID: 1, UnitPrice: 50, Quantity: 1}},
		[]ShippingRate{{Type: "basic", Active: true, Price: 10}})
	assert.False(t, ok)
}

func TestThresholdPercentRule(t *testing.T) {
	rule := ThresholdPercent{Threshold: 1000, Percent: 10}
	assert.Equal(t, float64(0), rule.Apply(1000))
	assert.InDelta(t, 110, rule.Apply(1100), 1e-9)
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 49.5, Round2(49.5))
	assert.Equal(t, 10.35, Round2(10.345000001))
}
