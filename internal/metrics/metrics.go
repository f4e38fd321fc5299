package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Estimate sources.
const (
	SourceHTTP = "http"
	SourceWS   = "ws"
	SourceCLI  = "cli"
)

// Collector holds the quoting metrics.
type Collector struct {
	estimates        *prometheus.CounterVec
	estimateFailures *prometheus.CounterVec
	warnings         prometheus.Counter
	marginFallbacks  prometheus.Counter
	quotesSaved      prometheus.Counter
	duration         prometheus.Histogram
}

// NewCollector creates the collector and registers it on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		estimates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "costeo_estimates_total",
			Help: "Total number of cost estimates computed",
		}, []string{"source"}),
		estimateFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "costeo_estimate_failures_total",
			Help: "Total number of estimate requests that failed",
		}, []string{"source"}),
		warnings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "costeo_estimate_warnings_total",
			Help: "Total number of warnings attached to estimates, such as unresolved depreciation rates",
		}),
		marginFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "costeo_margin_fallbacks_total",
			Help: "Total number of estimates priced with the 2x fallback for margins of 100% or more",
		}),
		quotesSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "costeo_quotes_saved_total",
			Help: "Total number of quote snapshots saved",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "costeo_estimate_duration_seconds",
			Help:    "Time spent producing an estimate, including settings lookup",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.estimates,
		c.estimateFailures,
		c.warnings,
		c.marginFallbacks,
		c.quotesSaved,
		c.duration,
	)

	return c
}

// RecordEstimate records a successful estimate.
func (c *Collector) RecordEstimate(source string, seconds float64, warnings int, fallback bool) {
	c.estimates.WithLabelValues(source).Inc()
	c.duration.Observe(seconds)
	if warnings > 0 {
		c.warnings.Add(float64(warnings))
	}
	if fallback {
		c.marginFallbacks.Inc()
	}
}

// RecordFailure records an estimate that could not be produced.
func (c *Collector) RecordFailure(source string) {
	c.estimateFailures.WithLabelValues(source).Inc()
}

// RecordQuoteSaved records a persisted quote snapshot.
func (c *Collector) RecordQuoteSaved() {
	c.quotesSaved.Inc()
}
