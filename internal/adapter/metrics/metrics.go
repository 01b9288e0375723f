package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "coachpulse"

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Set bundles every collector group the server wires into its components.
type Set struct {
	HTTP     *HTTPMetrics
	Cache    *CacheMetrics
	Provider *ProviderMetrics
	Jobs     *JobMetrics
	DB       *DBMetrics
	Demo     *DemoMetrics
	Relay    *RelayMetrics
	Errors   *ErrorMetrics
}

// NewSet registers all collector groups on reg.
func NewSet(reg prometheus.Registerer) *Set {
	return &Set{
		HTTP:     NewHTTPMetrics(reg),
		Cache:    NewCacheMetrics(reg),
		Provider: NewProviderMetrics(reg),
		Jobs:     NewJobMetrics(reg),
		DB:       NewDBMetrics(reg),
		Demo:     NewDemoMetrics(reg),
		Relay:    NewRelayMetrics(reg),
		Errors:   NewErrorMetrics(reg),
	}
}
