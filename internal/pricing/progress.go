package pricing

// Progress describes how far the cart is from the free-shipping
// threshold. Rendered as a progress bar by the storefront.
type Progress struct {
	Threshold float64
	Remaining float64
	Percent   float64
}

// FreeShippingProgress derives the threshold progress for the provided
// cart. The second return value reports whether the progress is
// meaningful: a thresholded free rate must exist and shipping must
// currently be non-zero.
func (c Calculator) FreeShippingProgress(lines []LineItem, rates []ShippingRate) (Progress, bool) {
	freeRate, ok := firstActive(rates, "free")
	if !ok || freeRate.MinOrder == nil {
		return Progress{}, false
	}
	res := c.Compute(lines, rates)
	if res.ShippingCost == 0 {
		return Progress{}, false
	}
	min := *freeRate.MinOrder
	if !isFinite(min) || min <= 0 {
		return Progress{}, false
	}
	remaining := min - res.EligibleSubtotal
	if remaining < 0 {
		remaining = 0
	}
	percent := res.EligibleSubtotal / min * 100
	if percent > 100 {
		percent = 100
	}
	return Progress{Threshold: min, Remaining: remaining, Percent: percent}, true
}
