package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordEstimate(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordEstimate(SourceHTTP, 0.002, 0, false)
	c.RecordEstimate(SourceHTTP, 0.003, 2, true)
	c.RecordEstimate(SourceCLI, 0.001, 1, false)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.estimates.WithLabelValues(SourceHTTP)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.estimates.WithLabelValues(SourceCLI)))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.warnings))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.marginFallbacks))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestRecordFailureAndQuoteSaved(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordFailure(SourceWS)
	c.RecordQuoteSaved()
	c.RecordQuoteSaved()

	assert.Equal(t, 1.0, testutil.ToFloat64(c.estimateFailures.WithLabelValues(SourceWS)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.quotesSaved))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNewCollectorPanicsOnDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	assert.Panics(t, func() { NewCollector(reg) })
}
