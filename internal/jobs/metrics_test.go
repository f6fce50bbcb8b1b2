package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	assert.NoError(t, m.Track("ledger:backfill_timestamps").End(nil))
	boom := errors.New("boom")
	assert.ErrorIs(t, m.Track("ledger:backfill_timestamps").End(boom), boom)
	m.AddRepaired("ledger:backfill_timestamps", 3)
	m.AddRepaired("ledger:backfill_timestamps", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("ledger:backfill_timestamps", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("ledger:backfill_timestamps")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.repaired.WithLabelValues("ledger:backfill_timestamps")))
	assert.Greater(t, testutil.ToFloat64(m.lastOK.WithLabelValues("ledger:backfill_timestamps")), 0.0)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.lastOK.WithLabelValues("ledger:normalize_sort")))
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	assert.NoError(t, m.Track("x").End(nil))
	m.AddRepaired("x", 1)
}
