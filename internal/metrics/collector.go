// Package metrics exposes Prometheus collectors for the refinement loop and
// the external validator. A nil *Collector is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crucible"

// Collector groups every metric the loop records.
type Collector struct {
	iterations     *prometheus.CounterVec
	decisions      *prometheus.CounterVec
	finalScore     *prometheus.GaugeVec
	redFlags       *prometheus.GaugeVec
	stepDuration   *prometheus.HistogramVec
	degradedSteps  *prometheus.CounterVec
	validations    *prometheus.CounterVec
	cacheLookups   *prometheus.CounterVec
	sourceRequests *prometheus.CounterVec
	sourceRetries  *prometheus.CounterVec
}

// New creates a Collector and registers it with reg.
func New(reg prometheus.Registerer) (*Collector, error) {
	c := &Collector{
		iterations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "iterations_total",
			Help:      "Completed loop iterations by phase",
		}, []string{"phase"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "decisions_total",
			Help:      "Loop decisions by phase, action and reason",
		}, []string{"phase", "action", "reason"}),
		finalScore: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "final_score",
			Help:      "Most recent composite final score by phase",
		}, []string{"phase"}),
		redFlags: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "red_flags",
			Help:      "Red flags raised by the most recent score, by phase",
		}, []string{"phase"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "step_duration_seconds",
			Help:      "Pipeline step duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"step"}),
		degradedSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "loop",
			Name:      "degraded_steps_total",
			Help:      "Pipeline steps that failed and were replaced by a neutral substitute",
		}, []string{"step"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "esv",
			Name:      "validations_total",
			Help:      "Validation results by status",
		}, []string{"status"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "esv",
			Name:      "cache_lookups_total",
			Help:      "Validation cache lookups by result",
		}, []string{"result"}),
		sourceRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "esv",
			Name:      "source_requests_total",
			Help:      "Source searches by source and outcome",
		}, []string{"source", "outcome"}),
		sourceRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "esv",
			Name:      "source_retries_total",
			Help:      "Retries after a source reported it was still preparing",
		}, []string{"source"}),
	}

	for _, col := range []prometheus.Collector{
		c.iterations, c.decisions, c.finalScore, c.redFlags, c.stepDuration,
		c.degradedSteps, c.validations, c.cacheLookups, c.sourceRequests, c.sourceRetries,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// ObserveIteration records a scored and decided iteration.
func (c *Collector) ObserveIteration(phase, action, reason string, finalScore float64, redFlags int) {
	if c == nil {
		return
	}
	c.iterations.WithLabelValues(phase).Inc()
	c.decisions.WithLabelValues(phase, action, reason).Inc()
	c.finalScore.WithLabelValues(phase).Set(finalScore)
	c.redFlags.WithLabelValues(phase).Set(float64(redFlags))
}

// ObserveStep records how long a pipeline step took.
func (c *Collector) ObserveStep(step string, d time.Duration) {
	if c == nil {
		return
	}
	c.stepDuration.WithLabelValues(step).Observe(d.Seconds())
}

// StepDegraded counts a degraded pipeline step.
func (c *Collector) StepDegraded(step string) {
	if c == nil {
		return
	}
	c.degradedSteps.WithLabelValues(step).Inc()
}

// ObserveValidation counts a validation result by status.
func (c *Collector) ObserveValidation(status string) {
	if c == nil {
		return
	}
	c.validations.WithLabelValues(status).Inc()
}

// CacheLookup counts a cache hit or miss.
func (c *Collector) CacheLookup(hit bool) {
	if c == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	c.cacheLookups.WithLabelValues(result).Inc()
}

// SourceRequest counts a source search by outcome (ok, error, timeout, still_preparing).
func (c *Collector) SourceRequest(source, outcome string) {
	if c == nil {
		return
	}
	c.sourceRequests.WithLabelValues(source, outcome).Inc()
}

// SourceRetry counts a retry against source.
func (c *Collector) SourceRetry(source string) {
	if c == nil {
		return
	}
	c.sourceRetries.WithLabelValues(source).Inc()
}
