package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// UpstreamRequestsTotal counts store API calls by resource and outcome.
	UpstreamRequestsTotal *prometheus.CounterVec
	// UpstreamCacheTotal counts read-through cache lookups by resource and hit/miss.
	UpstreamCacheTotal *prometheus.CounterVec
	// PricingDegradedTotal counts pricing runs that fell back to built-in
	// defaults because an upstream input was unavailable.
	PricingDegradedTotal *prometheus.CounterVec
	// PricingSanitizedTotal counts malformed numeric inputs clamped to zero.
	PricingSanitizedTotal prometheus.Counter
	// CartMutationsTotal counts cart mutations by operation.
	CartMutationsTotal *prometheus.CounterVec
	// OrderSubmitTotal counts order submissions by outcome.
	OrderSubmitTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers storefront domain
// collectors. Safe to call more than once.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Store API requests by resource and outcome.",
		}, []string{"resource", "result"})
		UpstreamCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_cache_total",
			Help:      "Read-through cache lookups by resource and result.",
		}, []string{"resource", "result"})
		PricingDegradedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_degraded_total",
			Help:      "Pricing computations that used built-in defaults for an input.",
		}, []string{"input"})
		PricingSanitizedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_sanitized_inputs_total",
			Help:      "Non-finite or negative numeric inputs clamped before pricing.",
		})
		CartMutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_mutations_total",
			Help:      "Cart mutations by operation.",
		}, []string{"op"})
		OrderSubmitTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_submit_total",
			Help:      "Order submissions by outcome.",
		}, []string{"result"})

		mustRegisterCollector(reg, UpstreamRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				UpstreamRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, UpstreamCacheTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				UpstreamCacheTotal = v
			}
		})
		mustRegisterCollector(reg, PricingDegradedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				PricingDegradedTotal = v
			}
		})
		mustRegisterCollector(reg, PricingSanitizedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PricingSanitizedTotal = v
			}
		})
		mustRegisterCollector(reg, CartMutationsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartMutationsTotal = v
			}
		})
		mustRegisterCollector(reg, OrderSubmitTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				OrderSubmitTotal = v
			}
		})
	})
}
