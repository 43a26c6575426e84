package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector owns a private registry so tests can build as many as they like.
// All methods are safe on a nil *Collector.
type Collector struct {
	registry         *prometheus.Registry
	transfersPosted  *prometheus.CounterVec
	transferReplays  *prometheus.CounterVec
	transferFailures *prometheus.CounterVec
	platformFees     *prometheus.CounterVec
	feeFallbacks     *prometheus.CounterVec
	unbalancedRefs   prometheus.Gauge
	httpLatency      *prometheus.HistogramVec
}

// NewCollector creates a new collector on a private registry
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		transfersPosted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transfers_posted_total",
			Help: "Balanced transfers committed to the ledger",
		}, []string{"ref_type", "currency"}),
		transferReplays: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transfer_replays_total",
			Help: "Transfers answered from an existing idempotency key",
		}, []string{"ref_type"}),
		transferFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_transfer_failures_total",
			Help: "Transfers rejected or failed before commit",
		}, []string{"reason"}),
		platformFees: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_platform_fees_cents_total",
			Help: "Platform fees credited, in minor units",
		}, []string{"currency"}),
		feeFallbacks: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ledger_fee_fallbacks_total",
			Help: "Fee calculations that used the flat rate",
		}, []string{"reason"}),
		unbalancedRefs: factory.NewGauge(prometheus.GaugeOpts{
			Name: "ledger_unbalanced_refs",
			Help: "Refs found breaking conservation on the last integrity check",
		}),
		httpLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_requests_latency_seconds",
			Help:    "Latency of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
	}
}

// TransferPosted counts a committed transfer and its platform fee.
func (c *Collector) TransferPosted(refType, currency string, platformFee int64) {
	if c == nil {
		return
	}
	c.transfersPosted.WithLabelValues(refType, currency).Inc()
	if platformFee > 0 {
		c.platformFees.WithLabelValues(currency).Add(float64(platformFee))
	}
}

// TransferReplayed counts a retry answered from an existing transfer.
func (c *Collector) TransferReplayed(refType string) {
	if c == nil {
		return
	}
	c.transferReplays.WithLabelValues(refType).Inc()
}

// TransferFailed counts a rejected transfer by reason.
func (c *Collector) TransferFailed(reason string) {
	if c == nil {
		return
	}
	c.transferFailures.WithLabelValues(reason).Inc()
}

// FeeFallback counts a fee priced at the flat rate.
func (c *Collector) FeeFallback(reason string) {
	if c == nil {
		return
	}
	c.feeFallbacks.WithLabelValues(reason).Inc()
}

// SetUnbalancedRefs records the latest integrity result.
func (c *Collector) SetUnbalancedRefs(n int) {
	if c == nil {
		return
	}
	c.unbalancedRefs.Set(float64(n))
}

// ObserveHTTP records one request duration.
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.httpLatency.WithLabelValues(method, route, status).Observe(d.Seconds())
}

// Registry returns the registry the collectors live on.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
