package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MarketMetrics tracks request outcomes and marketplace activity.
type MarketMetrics struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	events       *prometheus.CounterVec
	units        *prometheus.CounterVec
	rateLimited  *prometheus.CounterVec
	epochsClosed prometheus.Counter
}

var (
	marketOnce     sync.Once
	marketRegistry *MarketMetrics
)

// Market returns the process wide marketplace metrics registry.
func Market() *MarketMetrics {
	marketOnce.Do(func() {
		marketRegistry = &MarketMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "justfriends",
				Name:      "requests_total",
				Help:      "Count of applied requests by method and outcome.",
			}, []string{"method", "outcome"}),
			latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "justfriends",
				Name:      "request_duration_seconds",
				Help:      "Time spent applying a request, including commit.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"method"}),
			events: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "justfriends",
				Name:      "events_total",
				Help:      "Count of committed events by type.",
			}, []string{"type"}),
			units: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "justfriends",
				Name:      "access_units_total",
				Help:      "Access units moved along the curve by side.",
			}, []string{"side"}),
			rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "justfriends",
				Subsystem: "rpc",
				Name:      "rate_limited_total",
				Help:      "Requests rejected by the per caller rate limiter.",
			}, []string{"method"}),
			epochsClosed: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "justfriends",
				Name:      "epochs_closed_total",
				Help:      "Loyalty epochs closed since start.",
			}),
		}
		prometheus.MustRegister(
			marketRegistry.requests,
			marketRegistry.latency,
			marketRegistry.events,
			marketRegistry.units,
			marketRegistry.rateLimited,
			marketRegistry.epochsClosed,
		)
	})
	return marketRegistry
}

// ObserveRequest records one applied request.
func (m *MarketMetrics) ObserveRequest(method, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.requests.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(elapsed.Seconds())
}

// ObserveEvent counts a committed event.
func (m *MarketMetrics) ObserveEvent(eventType string) {
	if m == nil || eventType == "" {
		return
	}
	m.events.WithLabelValues(eventType).Inc()
}

// ObserveUnits counts units bought ("buy") or sold ("sell").
func (m *MarketMetrics) ObserveUnits(side string, amount uint64) {
	if m == nil || amount == 0 {
		return
	}
	m.units.WithLabelValues(side).Add(float64(amount))
}

// ObserveEpochClosed counts a closed loyalty epoch.
func (m *MarketMetrics) ObserveEpochClosed() {
	if m == nil {
		return
	}
	m.epochsClosed.Inc()
}

// IncRateLimited counts a throttled RPC call.
func (m *MarketMetrics) IncRateLimited(method string) {
	if m == nil {
		return
	}
	if method == "" {
		method = "unknown"
	}
	m.rateLimited.WithLabelValues(method).Inc()
}
