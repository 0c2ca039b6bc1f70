package storeapi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fptr(v float64) *float64 { return &v }

func TestNormalizeProductSalePriceWins(t *testing.T) {
	p := normalizeProduct(rawProduct{
		ID:        7,
		Name:      "Oat Milk",
		Price:     fptr(4.50),
		SalePrice: fptr(3.25),
	})
	require.NotNil(t, p.Price)
	assert.Equal(t, 3.25, *p.Price)
	require.NotNil(t, p.OriginalPrice, "list price becomes the struck-through price")
	assert.Equal(t, 4.50, *p.OriginalPrice)
}

func TestNormalizeProductAliases(t *testing.T) {
	p := normalizeProduct(rawProduct{
		ID:    3,
		Title: "Bananas",
		Image: "https://cdn.example/bananas.jpg",
		Price: fptr(1.99),
	})
	assert.Equal(t, "Bananas", p.Name)
	assert.Equal(t, "https://cdn.example/bananas.jpg", p.ImageURL)
	require.NotNil(t, p.Price)
	assert.Equal(t, 1.99, *p.Price)
	assert.Nil(t, p.OriginalPrice)
}

func TestNormalizeProductStockQuantityImpliesAvailability(t *testing.T) {
	qty := 0
	p := normalizeProduct(rawProduct{ID: 1, StockQuantity: &qty})
	require.NotNil(t, p.InStock)
	assert.False(t, *p.InStock)
}

func TestNormalizeProductRejectsMalformedPrices(t *testing.T) {
	p := normalizeProduct(rawProduct{
		ID:        1,
		Price:     fptr(math.NaN()),
		SalePrice: fptr(-2),
	})
	assert.Nil(t, p.Price, "non-finite and negative prices are unusable")
}

func TestNormalizeShippingRates(t *testing.T) {
	rates := normalizeShippingRates([]rawShippingRate{
		{Type: "free", Active: true, MinOrder: fptr(100)},
		{Type: "basic", Active: true, Price: fptr(12.5)},
		{Type: "basic", Active: false, Price: fptr(math.Inf(1))},
	})
	require.Len(t, rates, 3)
	require.NotNil(t, rates[0].MinOrder)
	assert.Equal(t, float64(100), *rates[0].MinOrder)
	assert.Equal(t, 12.5, rates[1].Price)
	assert.Equal(t, float64(0), rates[2].Price, "non-finite rate price collapses to zero")
}

func TestNormalizeSettings(t *testing.T) {
	policy := normalizeSettings(rawSettings{
		TaxRate:            fptr(8),
		ExcludedCategories: []int64{4, 9},
	})
	assert.Equal(t, float64(8), policy.TaxRatePercent)
	assert.Contains(t, policy.ExcludedShippingCategories, int64(4))
	assert.Contains(t, policy.ExcludedShippingCategories, int64(9))
}

func TestNormalizeSettingsDefaults(t *testing.T) {
	policy := normalizeSettings(rawSettings{})
	assert.Equal(t, float64(5), policy.TaxRatePercent)
	assert.Empty(t, policy.ExcludedShippingCategories)

	policy = normalizeSettings(rawSettings{TaxRate: fptr(math.NaN())})
	assert.Equal(t, float64(5), policy.TaxRatePercent, "non-finite tax rate falls back to the default")
}
