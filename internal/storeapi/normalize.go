package storeapi

import (
	"math"

	"github.com/freshmart/storefront/internal/pricing"
)

// The store backend is loose about field names and optionality. Every
// alias resolution lives in this file; the rest of the codebase only
// sees the canonical shapes.

type rawProduct struct {
	ID             int64    `json:"id"`
	Name           string   `json:"name"`
	Title          string   `json:"title"`
	Price          *float64 `json:"price"`
	SalePrice      *float64 `json:"sale_price"`
	OriginalPrice  *float64 `json:"original_price"`
	ImageURL       string   `json:"image_url"`
	Image          string   `json:"image"`
	InStock        *bool    `json:"in_stock"`
	StockQuantity  *int     `json:"stock_quantity"`
	ShippingMethod *string  `json:"shipping_method"`
	CategoryID     *int64   `json:"category_id"`
}

type rawShippingRate struct {
	Type     string   `json:"type"`
	Active   bool     `json:"active"`
	MinOrder *float64 `json:"min_order"`
	Price    *float64 `json:"price"`
}

type rawSettings struct {
	TaxRate            *float64 `json:"tax_rate"`
	ExcludedCategories []int64  `json:"excluded_free_shipping_category_ids"`
}

// Product is the canonical product record used by the storefront.
// Price is the charge price with the sale price already resolved over
// the list price; nil means the backend supplied no usable price.
type Product struct {
	ID             int64
	Name           string
	Price          *float64
	OriginalPrice  *float64
	ImageURL       string
	InStock        *bool
	StockQuantity  *int
	ShippingMethod *string
	CategoryID     *int64
}

func normalizeProduct(raw rawProduct) Product {
	p := Product{
		ID:             raw.ID,
		Name:           raw.Name,
		ImageURL:       raw.ImageURL,
		InStock:        raw.InStock,
		StockQuantity:  raw.StockQuantity,
		ShippingMethod: raw.ShippingMethod,
		CategoryID:     raw.CategoryID,
	}
	if p.Name == "" {
		p.Name = raw.Title
	}
	if p.ImageURL == "" {
		p.ImageURL = raw.Image
	}

	// Sale price wins over list price when usable.
	if v := usable(raw.SalePrice); v != nil {
		p.Price = v
		if orig := usable(raw.OriginalPrice); orig != nil {
			p.OriginalPrice = orig
		} else if list := usable(raw.Price); list != nil && *list > *v {
			p.OriginalPrice = list
		}
	} else if v := usable(raw.Price); v != nil {
		p.Price = v
		p.OriginalPrice = usable(raw.OriginalPrice)
	}

	// Stock quantity implies availability when the flag is absent.
	if p.InStock == nil && raw.StockQuantity != nil {
		avail := *raw.StockQuantity > 0
		p.InStock = &avail
	}
	return p
}

func normalizeShippingRates(raws []rawShippingRate) []pricing.ShippingRate {
	out := make([]pricing.ShippingRate, 0, len(raws))
	for _, r := range raws {
		rate := pricing.ShippingRate{Type: r.Type, Active: r.Active}
		if v := usable(r.MinOrder); v != nil {
			rate.MinOrder = v
		}
		if v := usable(r.Price); v != nil {
			rate.Price = *v
		}
		out = append(out, rate)
	}
	return out
}

func normalizeSettings(raw rawSettings) pricing.Policy {
	policy := pricing.DefaultPolicy()
	if v := usable(raw.TaxRate); v != nil {
		policy.TaxRatePercent = *v
	}
	if len(raw.ExcludedCategories) > 0 {
		policy.ExcludedShippingCategories = make(map[int64]struct{}, len(raw.ExcludedCategories))
		for _, id := range raw.ExcludedCategories {
			policy.ExcludedShippingCategories[id] = struct{}{}
		}
	}
	return policy
}

// usable filters out absent, non-finite and negative numeric values so
// malformed upstream data never enters the pricing pipeline.
func usable(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return nil
	}
	return v
}
