// Package metrics exposes the Prometheus counters enumerated in spec.md §6
// on a private registry (not the global DefaultRegisterer), matching the
// original implementation's explicit prometheus::Registry::new() pattern.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CacheOutcome labels the method_call_total metric's "cache" dimension.
type CacheOutcome string

const (
	OutcomeHit         CacheOutcome = "hit"
	OutcomeMiss        CacheOutcome = "miss"
	OutcomeExpired     CacheOutcome = "expired"
	OutcomeUncacheable CacheOutcome = "uncacheable"
	OutcomeError       CacheOutcome = "error"
)

// Metrics bundles every counter this proxy emits, registered on a private
// Prometheus registry constructed in New.
type Metrics struct {
	registry *prometheus.Registry

	cacheHitTotal         prometheus.Counter
	cacheMissTotal        prometheus.Counter
	cacheExpiredMissTotal prometheus.Counter
	cacheUncacheableTotal prometheus.Counter
	errorTotal            prometheus.Counter
	methodCallTotal       *prometheus.CounterVec
}

// New builds a Metrics instance with the given metric name prefix (spec.md
// §6: "Metrics (prefixed by a configurable string)").
func New(prefix string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		cacheHitTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "cache_hit_total",
			Help: "Number of cache-served requests.",
		}),
		cacheMissTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "cache_miss_total",
			Help: "Number of requests that missed the cache and were forwarded upstream.",
		}),
		cacheExpiredMissTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "cache_expired_miss_total",
			Help: "Subset of misses where a stale/expired entry existed.",
		}),
		cacheUncacheableTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "cache_uncacheable_total",
			Help: "Number of requests whose method/params were never cacheable.",
		}),
		errorTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: prefix + "error_total",
			Help: "Number of handled errors of any kind.",
		}),
		methodCallTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "method_call_total",
			Help: "Number of JSON-RPC calls by chain, method and cache outcome.",
		}, []string{"chain", "method", "cache"}),
	}

	registry.MustRegister(
		m.cacheHitTotal,
		m.cacheMissTotal,
		m.cacheExpiredMissTotal,
		m.cacheUncacheableTotal,
		m.errorTotal,
		m.methodCallTotal,
	)

	return m
}

// Handler returns the /metrics HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RecordCall increments method_call_total for the given chain/method/outcome
// and rolls the outcome up into the relevant top-level counter.
func (m *Metrics) RecordCall(chain, method string, outcome CacheOutcome) {
	m.methodCallTotal.WithLabelValues(chain, method, string(outcome)).Inc()

	switch outcome {
	case OutcomeHit:
		m.cacheHitTotal.Inc()
	case OutcomeMiss:
		m.cacheMissTotal.Inc()
	case OutcomeExpired:
		m.cacheExpiredMissTotal.Inc()
		m.cacheMissTotal.Inc()
	case OutcomeUncacheable:
		m.cacheUncacheableTotal.Inc()
	case OutcomeError:
		m.errorTotal.Inc()
	}
}

// RecordError increments the top-level error counter independent of any
// per-method call outcome (e.g. a panic recovered by the HTTP middleware).
func (m *Metrics) RecordError() {
	m.errorTotal.Inc()
}
