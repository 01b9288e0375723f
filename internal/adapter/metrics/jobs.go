package metrics

import "github.com/prometheus/client_golang/prometheus"

// JobMetrics tracks background summary generation.
type JobMetrics struct {
	Processed *prometheus.CounterVec
	Enqueued  *prometheus.CounterVec
	Duration  *prometheus.HistogramVec
}

func NewJobMetrics(reg prometheus.Registerer) *JobMetrics {
	m := &JobMetrics{
		Processed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "processed_total",
			Help:      "Total number of processed tasks, by task type and outcome.",
		}, []string{"task", "outcome"}),
		Enqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "enqueued_total",
			Help:      "Total number of enqueued tasks, by task type.",
		}, []string{"task"}),
		Duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "duration_seconds",
			Help:      "Duration of task processing in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"task"}),
	}

	reg.MustRegister(m.Processed, m.Enqueued, m.Duration)
	return m
}
