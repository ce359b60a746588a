package tlefit

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	propagationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "tlefit",
		Subsystem: "propagation",
		Name:      "total",
		Help:      "Completed propagation calls.",
	})
	propagationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tlefit",
		Subsystem: "propagation",
		Name:      "errors_total",
		Help:      "Propagation calls rejected by decay or model limits.",
	}, []string{"reason"})
	fitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tlefit",
		Subsystem: "fit",
		Name:      "total",
		Help:      "Completed element fits by algorithm.",
	}, []string{"algorithm"})
	fitIterations = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tlefit",
		Subsystem: "fit",
		Name:      "iterations",
		Help:      "Iterations used per fit.",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
	})
)

func init() {
	prometheus.MustRegister(propagationsTotal, propagationErrors, fitsTotal, fitIterations)
}

// MetricsHandler exposes the package counters for scraping when the library
// is embedded in a service.
func MetricsHandler() http.Handler { return promhttp.Handler() }
