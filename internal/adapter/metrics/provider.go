package metrics

import "github.com/prometheus/client_golang/prometheus"

// ProviderMetrics tracks outbound calls to AI, payment, auth and mail providers.
type ProviderMetrics struct {
	Calls        *prometheus.CounterVec
	Duration     *prometheus.HistogramVec
	BreakerState *prometheus.GaugeVec
}

func NewProviderMetrics(reg prometheus.Registerer) *ProviderMetrics {
	m := &ProviderMetrics{
		Calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "calls_total",
			Help:      "Total number of provider calls, by provider, operation and outcome.",
		}, []string{"provider", "operation", "outcome"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "call_duration_seconds",
			Help:      "Duration of provider calls in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"provider", "operation"}),
		BreakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "provider",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state per provider (0=closed, 1=half-open, 2=open).",
		}, []string{"provider"}),
	}

	reg.MustRegister(m.Calls, m.Duration, m.BreakerState)
	return m
}
