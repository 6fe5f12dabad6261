package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(nil)

	m.Acquired(3)
	m.Acquired(0)
	m.Released()
	m.Fired()
	m.Fired()
	m.FireSkipped("not_acquired")
	m.FireSkipped("not_acquired")
	m.FireSkipped("missing")
	m.Misfire(MisfireRescheduled)
	m.Completed("delete_trigger")
	m.Recovered(4)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.acquired))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.released))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fired))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.fireSkipped.WithLabelValues("not_acquired")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fireSkipped.WithLabelValues("missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.misfires.WithLabelValues(MisfireRescheduled)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.completions.WithLabelValues("delete_trigger")))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.recovered))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.Acquired(1)
	m.Released()
	m.Fired()
	m.FireSkipped("missing")
	m.Misfire(MisfireCompleted)
	m.Completed("noop")
	m.Recovered(1)
}

func TestMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.FireSkipped("job_missing")

	expected := `
# HELP jobstore_fire_skipped_total Triggers omitted by TriggersFired, by reason.
# TYPE jobstore_fire_skipped_total counter
jobstore_fire_skipped_total{reason="job_missing"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "jobstore_fire_skipped_total"))

	assert.Panics(t, func() { New(reg) })
}
