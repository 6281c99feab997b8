package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_Records(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := New(reg)
	require.NoError(t, err)

	c.ObserveIteration("analysis_loop", "continue", "improving", 6.5, 2)
	c.ObserveIteration("analysis_loop", "stop", "quality_achieved", 9.2, 0)
	c.ObserveStep("generate", 120*time.Millisecond)
	c.StepDegraded("critique")
	c.ObserveValidation("partial")
	c.CacheLookup(true)
	c.CacheLookup(false)
	c.CacheLookup(false)
	c.SourceRequest("duckduckgo", "ok")
	c.SourceRetry("duckduckgo")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.iterations.WithLabelValues("analysis_loop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.decisions.WithLabelValues("analysis_loop", "stop", "quality_achieved")))
	assert.Equal(t, 9.2, testutil.ToFloat64(c.finalScore.WithLabelValues("analysis_loop")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.redFlags.WithLabelValues("analysis_loop")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.degradedSteps.WithLabelValues("critique")))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sourceRetries.WithLabelValues("duckduckgo")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.stepDuration))
}

func TestCollector_DoubleRegistrationFails(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector
	assert.NotPanics(t, func() {
		c.ObserveIteration("p", "a", "r", 1, 1)
		c.ObserveStep("s", time.Second)
		c.StepDegraded("s")
		c.ObserveValidation("confirmed")
		c.CacheLookup(true)
		c.SourceRequest("s", "ok")
		c.SourceRetry("s")
	})
}
