package cart

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/freshmart/storefront/internal/obs"
	"github.com/freshmart/storefront/internal/pricing"
)

// PricingSource supplies the policy and shipping rates needed to price
// a cart, degrading to defaults internally on upstream failure.
type PricingSource interface {
	PricingInputs(ctx context.Context) (pricing.Policy, []pricing.ShippingRate)
}

// Viewer assembles the priced cart view. The cart page and the
// checkout summary share one Viewer so their numbers can never drift.
type Viewer struct {
	Store      *Store
	Reconciler Reconciler
	Pricing    PricingSource
	Discount   pricing.DiscountRule
	Fallback   pricing.FallbackTier
	Log        zerolog.Logger
}

// Summary is the serialised pricing result, rounded for presentation.
type Summary struct {
	Subtotal         float64 `json:"subtotal"`
	EligibleSubtotal float64 `json:"eligibleSubtotal"`
	ShippingCost     float64 `json:"shippingCost"`
	Discount         float64 `json:"discount"`
	Tax              float64 `json:"tax"`
	Total            float64 `json:"total"`
}

// ProgressView is the serialised free-shipping progress bar state.
type ProgressView struct {
	Threshold float64 `json:"threshold"`
	Remaining float64 `json:"remaining"`
	Percent   float64 `json:"percent"`
}

// View is the priced cart payload: reconciled lines plus totals.
type View struct {
	Items                []Line        `json:"items"`
	Summary              Summary       `json:"summary"`
	FreeShippingProgress *ProgressView `json:"freeShippingProgress,omitempty"`
}

// ViewSession loads, reconciles and prices the session's cart.
func (v *Viewer) ViewSession(ctx context.Context, sessionID string) (View, error) {
	lines, err := v.Store.Lines(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return v.Price(ctx, lines), nil
}

// Price reconciles the lines against live product data and runs the
// pricing pipeline over the result.
func (v *Viewer) Price(ctx context.Context, lines []Line) View {
	lines = v.Reconciler.Reconcile(ctx, lines)

	policy, rates := pricing.DefaultPolicy(), []pricing.ShippingRate(nil)
	if v.Pricing != nil {
		policy, rates = v.Pricing.PricingInputs(ctx)
	}
	calc := pricing.New(policy)
	if v.Discount != nil {
		calc.Discount = v.Discount
	}
	if v.Fallback != (pricing.FallbackTier{}) {
		calc.Fallback = v.Fallback
	}

	items := PricingItems(lines)
	res := calc.Compute(items, rates)
	if res.Sanitized > 0 {
		v.Log.Warn().Int("clamped_inputs", res.Sanitized).Msg("malformed pricing inputs clamped to zero")
		if obs.PricingSanitizedTotal != nil {
			obs.PricingSanitizedTotal.Add(float64(res.Sanitized))
		}
	}

	view := View{
		Items: lines,
		Summary: Summary{
			Subtotal:         pricing.Round2(res.Subtotal),
			EligibleSubtotal: pricing.Round2(res.EligibleSubtotal),
			ShippingCost:     pricing.Round2(res.ShippingCost),
			Discount:         pricing.Round2(res.Discount),
			Tax:              pricing.Round2(res.Tax),
			Total:            pricing.Round2(res.Total),
		},
	}
	if progress, ok := calc.FreeShippingProgress(items, rates); ok {
		view.FreeShippingProgress = &ProgressView{
			Threshold: pricing.Round2(progress.Threshold),
			Remaining: pricing.Round2(progress.Remaining),
			Percent:   pricing.Round2(progress.Percent),
		}
	}
	return view
}
