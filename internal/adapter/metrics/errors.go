package metrics

import "github.com/prometheus/client_golang/prometheus"

// ErrorMetrics counts error responses by structured error type.
type ErrorMetrics struct {
	HTTPErrors *prometheus.CounterVec
}

func NewErrorMetrics(reg prometheus.Registerer) *ErrorMetrics {
	m := &ErrorMetrics{
		HTTPErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "Total number of HTTP error responses by error type.",
		}, []string{"type"}),
	}

	reg.MustRegister(m.HTTPErrors)
	return m
}
