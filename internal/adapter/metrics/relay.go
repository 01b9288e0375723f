package metrics

import "github.com/prometheus/client_golang/prometheus"

// RelayMetrics tracks websocket voice relay connections.
type RelayMetrics struct {
	Active   prometheus.Gauge
	Rejected *prometheus.CounterVec
}

func NewRelayMetrics(reg prometheus.Registerer) *RelayMetrics {
	m := &RelayMetrics{
		Active: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "active_connections",
			Help:      "Number of open voice relay connections.",
		}),
		Rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "rejected_total",
			Help:      "Voice relay connections rejected by reason (rate_limit/per_ip_limit/global_limit).",
		}, []string{"reason"}),
	}

	reg.MustRegister(m.Active, m.Rejected)
	return m
}
