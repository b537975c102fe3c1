package metrics

import (
	"fmt"
	"net/http"

	"github.com/grussorusso/faasrunner/internal/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

var Enabled bool
var registry = prometheus.NewRegistry()

var (
	invocations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "faasrunner_invocations_total",
		Help: "Function invocations by platform and outcome",
	}, []string{"platform", "outcome"})
	roundTrip = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "faasrunner_round_trip_ms",
		Help:    "Round trip time of function invocations in milliseconds",
		Buckets: prometheus.ExponentialBuckets(10, 2, 14),
	}, []string{"platform"})
	collected = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "faasrunner_runs_collected_total",
		Help: "Runs appended to the result set, by experiment",
	}, []string{"experiment"})
)

func init() {
	registry.MustRegister(invocations, roundTrip, collected)
}

// Init exposes the registry over HTTP when metrics are enabled. It blocks.
func Init() {
	if config.GetBool(config.METRICS_ENABLED, false) {
		logrus.Info("Metrics enabled.")
		Enabled = true
	} else {
		logrus.Debug("Metrics disabled.")
		Enabled = false
		return
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true})
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	port := config.GetInt(config.METRICS_PORT, 2112)
	if err := http.ListenAndServe(fmt.Sprintf(":%d", port), mux); err != nil {
		logrus.Errorf("Metrics server stopped: %v", err)
	}
}

// ObserveInvocation records the outcome of one call.
func ObserveInvocation(platform string, ok bool, elapsedMs float64) {
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	invocations.WithLabelValues(platform, outcome).Inc()
	if ok {
		roundTrip.WithLabelValues(platform).Observe(elapsedMs)
	}
}

// ObserveCollected counts a run appended to the result set of an experiment.
func ObserveCollected(experiment string) {
	collected.WithLabelValues(experiment).Inc()
}

// Registry gives access to the collectors, mostly for tests.
func Registry() *prometheus.Registry {
	return registry
}
