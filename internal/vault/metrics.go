package vault

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains token lifecycle metrics.
type Metrics struct {
	registerer prometheus.Registerer

	// storeRequestTotal counts secret-store requests.
	storeRequestTotal *prometheus.CounterVec

	// storeRequestDuration measures secret-store request duration.
	storeRequestDuration *prometheus.HistogramVec

	// loginTotal counts login attempts by method.
	loginTotal *prometheus.CounterVec

	// unwrapTotal counts wrapping-token exchanges by kind.
	unwrapTotal *prometheus.CounterVec

	// unwrapCacheHits counts unwrap cache hits.
	unwrapCacheHits prometheus.Counter

	// tokenExpiry tracks the cached token expiry time.
	tokenExpiry prometheus.Gauge
}

// Metric status label values.
const (
	statusSuccess = "success"
	statusError   = "error"
)

// NewMetrics creates new token lifecycle metrics registered with
// prometheus.DefaultRegisterer.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWithRegisterer(namespace, prometheus.DefaultRegisterer)
}

// NewMetricsWithRegisterer creates a new Metrics instance with a custom
// registerer. Useful for tests and for applications with their own registry.
func NewMetricsWithRegisterer(namespace string, registerer prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "vaultauth"
	}

	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		registerer: registerer,
	}

	m.storeRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "requests_total",
			Help:      "Total number of secret store requests",
		},
		[]string{"operation", "status"},
	)

	m.storeRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "request_duration_seconds",
			Help:      "Secret store request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	m.loginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logins_total",
			Help:      "Total number of login attempts",
		},
		[]string{"method", "status"},
	)

	m.unwrapTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unwraps_total",
			Help:      "Total number of wrapping token exchanges",
		},
		[]string{"kind", "status"},
	)

	m.unwrapCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unwrap_cache_hits_total",
			Help:      "Total number of unwrap cache hits",
		},
	)

	m.tokenExpiry = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "token_expiry_timestamp_seconds",
			Help:      "Unix timestamp when the cached login token expires",
		},
	)

	// Register all metrics with the provided registerer, ignoring duplicates.
	collectors := []prometheus.Collector{
		m.storeRequestTotal,
		m.storeRequestDuration,
		m.loginTotal,
		m.unwrapTotal,
		m.unwrapCacheHits,
		m.tokenExpiry,
	}
	for _, c := range collectors {
		_ = registerer.Register(c)
	}

	return m
}

// RecordStoreRequest records a secret-store request.
func (m *Metrics) RecordStoreRequest(operation string, err error, duration time.Duration) {
	if m == nil || m.storeRequestTotal == nil {
		return
	}
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.storeRequestTotal.WithLabelValues(operation, status).Inc()
	m.storeRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordLogin records a login attempt.
func (m *Metrics) RecordLogin(method AuthMethod, err error) {
	if m == nil || m.loginTotal == nil {
		return
	}
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.loginTotal.WithLabelValues(method.String(), status).Inc()
}

// RecordUnwrap records a wrapping-token exchange.
func (m *Metrics) RecordUnwrap(kind string, err error) {
	if m == nil || m.unwrapTotal == nil {
		return
	}
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.unwrapTotal.WithLabelValues(kind, status).Inc()
}

// RecordUnwrapCacheHit records an unwrap cache hit.
func (m *Metrics) RecordUnwrapCacheHit() {
	if m == nil || m.unwrapCacheHits == nil {
		return
	}
	m.unwrapCacheHits.Inc()
}

// SetTokenExpiry updates the cached token expiry gauge.
func (m *Metrics) SetTokenExpiry(expiry time.Time) {
	if m == nil || m.tokenExpiry == nil {
		return
	}
	if expiry.IsZero() {
		m.tokenExpiry.Set(0)
		return
	}
	m.tokenExpiry.Set(float64(expiry.Unix()))
}
