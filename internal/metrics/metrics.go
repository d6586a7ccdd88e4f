// Package metrics exposes Prometheus instrumentation for the capture loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	cyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "allskyd_cycles_total",
			Help: "Capture cycles by final state.",
		},
		[]string{"result"},
	)

	plannedExposureSeconds = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "allskyd_planned_exposure_seconds",
			Help: "Exposure duration selected by the curve, per sensor.",
		},
		[]string{"sensor"},
	)

	solarAltitudeDegrees = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "allskyd_solar_altitude_degrees",
			Help: "Solar altitude at the last planning step.",
		},
	)

	captureSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "allskyd_capture_duration_seconds",
			Help:    "Wall time of driver capture calls, dark frames included.",
			Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
		},
	)

	darkCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "allskyd_dark_cache_hits_total",
			Help: "Dark-frame corrections served from cache.",
		},
	)

	darkCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "allskyd_dark_cache_misses_total",
			Help: "Dark-frame corrections that required a fresh dark capture.",
		},
	)

	degradedCaptures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "allskyd_degraded_captures_total",
			Help: "Images delivered uncorrected because no dark frame was available.",
		},
	)

	sinkErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "allskyd_sink_errors_total",
			Help: "Persistence failures after a successful capture.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		cyclesTotal,
		plannedExposureSeconds,
		solarAltitudeDegrees,
		captureSeconds,
		darkCacheHits,
		darkCacheMisses,
		degradedCaptures,
		sinkErrors,
	)
}

// Cycle results.
const (
	ResultDelivered = "delivered"
	ResultFaulted   = "faulted"
)

// ObserveCycle records a completed cycle.
func ObserveCycle(result string) {
	cyclesTotal.WithLabelValues(result).Inc()
}

// SetPlan records the plan chosen for the current cycle.
func SetPlan(sensor string, exposureSeconds, solarAltDeg float64) {
	plannedExposureSeconds.WithLabelValues(sensor).Set(exposureSeconds)
	solarAltitudeDegrees.Set(solarAltDeg)
}

// ObserveCapture records the wall time of one driver capture call.
func ObserveCapture(seconds float64) {
	captureSeconds.Observe(seconds)
}

// DarkCacheHit records a correction served from the dark-frame cache.
func DarkCacheHit() { darkCacheHits.Inc() }

// DarkCacheMiss records a correction that captured a fresh dark frame.
func DarkCacheMiss() { darkCacheMisses.Inc() }

// DegradedCapture records an image delivered without dark correction.
func DegradedCapture() { degradedCaptures.Inc() }

// SinkError records a persistence failure.
func SinkError() { sinkErrors.Inc() }

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
