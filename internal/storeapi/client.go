package storeapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/freshmart/storefront/internal/cart"
	"github.com/freshmart/storefront/internal/obs"
	"github.com/freshmart/storefront/internal/pricing"
	"github.com/freshmart/storefront/internal/resilience"
)

// ErrNotFound indicates the upstream resource does not exist.
var ErrNotFound = errors.New("storeapi: not found")

// ErrUnavailable indicates the store API could not serve the request.
var ErrUnavailable = errors.New("storeapi: upstream unavailable")

// Client is the typed client for the remote store API. Reads go
// through a short-TTL cache with in-flight deduplication; all calls
// inherit the caller's context so teardown cancels them.
type Client struct {
	BaseURL string
	HTTP    resilience.HTTPClient
	Cache   *Cache
	Log     zerolog.Logger

	group singleflight.Group
}

// Product fetches and normalises one product record.
func (c *Client) Product(ctx context.Context, id int64) (Product, error) {
	data, err := c.cachedGet(ctx, fmt.Sprintf("product:id:%d", id), fmt.Sprintf("/v1/products/%d", id), "product")
	if err != nil {
		return Product{}, err
	}
	var raw rawProduct
	if err := json.Unmarshal(data, &raw); err != nil {
		return Product{}, fmt.Errorf("decode product %d: %w", id, err)
	}
	return normalizeProduct(raw), nil
}

// ProductSnapshot implements cart.SnapshotFetcher.
func (c *Client) ProductSnapshot(ctx context.Context, id int64) (cart.Snapshot, error) {
	p, err := c.Product(ctx, id)
	if err != nil {
		return cart.Snapshot{}, err
	}
	return cart.Snapshot{
		ProductID:      p.ID,
		Name:           p.Name,
		Price:          p.Price,
		OriginalPrice:  p.OriginalPrice,
		ImageURL:       p.ImageURL,
		InStock:        p.InStock,
		ShippingMethod: p.ShippingMethod,
		CategoryID:     p.CategoryID,
	}, nil
}

// ShippingRates fetches the configured shipping rate records.
func (c *Client) ShippingRates(ctx context.Context) ([]pricing.ShippingRate, error) {
	data, err := c.cachedGet(ctx, "shipping:rates", "/v1/shipping-rates", "shipping_rates")
	if err != nil {
		return nil, err
	}
	var raws []rawShippingRate
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode shipping rates: %w", err)
	}
	return normalizeShippingRates(raws), nil
}

// Settings fetches the store pricing policy.
func (c *Client) Settings(ctx context.Context) (pricing.Policy, error) {
	data, err := c.cachedGet(ctx, "store:settings", "/v1/settings", "settings")
	if err != nil {
		return pricing.Policy{}, err
	}
	var raw rawSettings
	if err := json.Unmarshal(data, &raw); err != nil {
		return pricing.Policy{}, fmt.Errorf("decode settings: %w", err)
	}
	return normalizeSettings(raw), nil
}

// PricingInputs loads the policy and shipping rates, degrading to the
// built-in defaults when either read fails. Pricing must never become
// uncomputable because of a transient upstream failure.
func (c *Client) PricingInputs(ctx context.Context) (pricing.Policy, []pricing.ShippingRate) {
	policy, err := c.Settings(ctx)
	if err != nil {
		c.Log.Warn().Err(err).Msg("settings unavailable, using default policy")
		if obs.PricingDegradedTotal != nil {
			obs.PricingDegradedTotal.WithLabelValues("settings").Inc()
		}
		policy = pricing.DefaultPolicy()
	}
	rates, err := c.ShippingRates(ctx)
	if err != nil {
		c.Log.Warn().Err(err).Msg("shipping rates unavailable, using fallback tier")
		if obs.PricingDegradedTotal != nil {
			obs.PricingDegradedTotal.WithLabelValues("shipping_rates").Inc()
		}
		rates = nil
	}
	return policy, rates
}

// SubmitOrder posts the order payload. The idempotency key makes a
// retried submission safe against double placement upstream.
func (c *Client) SubmitOrder(ctx context.Context, order Order) (OrderAck, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return OrderAck{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/v1/orders"), bytes.NewReader(body))
	if err != nil {
		return OrderAck{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if order.IdempotencyKey != "" {
		req.Header.Set("Idempotency-Key", order.IdempotencyKey)
	}

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		count(obs.OrderSubmitTotal, "error")
		return OrderAck{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		count(obs.OrderSubmitTotal, "rejected")
		return OrderAck{}, fmt.Errorf("%w: submit order status %d", ErrUnavailable, resp.StatusCode)
	}
	var ack OrderAck
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		count(obs.OrderSubmitTotal, "error")
		return OrderAck{}, fmt.Errorf("decode order ack: %w", err)
	}
	count(obs.OrderSubmitTotal, "accepted")
	return ack, nil
}

// cachedGet resolves a read through the TTL cache and deduplicates
// concurrent fetches for the same key.
func (c *Client) cachedGet(ctx context.Context, key, path, resource string) ([]byte, error) {
	if data, ok := c.Cache.Get(ctx, key, resource); ok {
		return data, nil
	}
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Re-check: another flight may have filled the cache.
		if data, ok := c.Cache.Get(ctx, key, resource); ok {
			return data, nil
		}
		data, err := c.get(ctx, path, resource)
		if err != nil {
			return nil, err
		}
		c.Cache.Set(ctx, key, data)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) get(ctx context.Context, path, resource string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url(path), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTP.Do(ctx, req)
	if err != nil {
		count(obs.UpstreamRequestsTotal, resource, "error")
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		count(obs.UpstreamRequestsTotal, resource, "not_found")
		return nil, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		count(obs.UpstreamRequestsTotal, resource, "error")
		return nil, fmt.Errorf("%w: %s status %d", ErrUnavailable, resource, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		count(obs.UpstreamRequestsTotal, resource, "error")
		return nil, err
	}
	count(obs.UpstreamRequestsTotal, resource, "ok")
	return data, nil
}

func (c *Client) url(path string) string {
	return strings.TrimRight(c.BaseURL, "/") + path
}

func count(vec *prometheus.CounterVec, labels ...string) {
	if vec == nil {
		return
	}
	vec.WithLabelValues(labels...).Inc()
}
