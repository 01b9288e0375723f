package metrics

import "github.com/prometheus/client_golang/prometheus"

// DemoMetrics tracks the anonymous demo chat.
type DemoMetrics struct {
	ActiveSessions prometheus.Gauge
	Messages       prometheus.Counter
}

func NewDemoMetrics(reg prometheus.Registerer) *DemoMetrics {
	m := &DemoMetrics{
		ActiveSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "demo",
			Name:      "active_sessions",
			Help:      "Number of unexpired demo sessions held in memory.",
		}),
		Messages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "demo",
			Name:      "messages_total",
			Help:      "Total number of demo chat messages answered.",
		}),
	}

	reg.MustRegister(m.ActiveSessions, m.Messages)
	return m
}
