package jobstore

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-jobstore/pkg/calendar"
	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/metrics"
)

func TestSchedulerStarted_FirstStart(t *testing.T) {
	f := newFixture(t)

	state, err := f.store.SchedulerState(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, core.SchedulerStarted, state)

	at, err := f.store.LastCheckinTime(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, base, at.UTC())
}

func TestSchedulerStarted_RecoversInterruptedWork(t *testing.T) {
	f := newFixture(t)
	f.job(t, "plain", durable)
	f.job(t, "exclusive", durable, nonConcurrent)
	f.job(t, "rec", durable, recoverable)

	f.trigger(t, newTrigger("p1", "plain", base.Add(time.Second)))
	f.trigger(t, newTrigger("x1", "exclusive", base.Add(2*time.Second)))
	f.trigger(t, newTrigger("x2", "exclusive", base.Add(time.Hour)))
	f.trigger(t, groupTrigger("x3", "held", "exclusive", base.Add(2*time.Hour)))
	f.trigger(t, newTrigger("r1", "rec", base.Add(3*time.Second)))
	done := newTrigger("done", "plain", base)
	done.NextFireTime = nil
	done.PreviousFireTime = core.TimePtr(base.Add(-time.Minute))
	f.trigger(t, done)
	require.NoError(t, f.store.PauseTrigger(f.ctx, core.NewTriggerKey("x3", "held")))

	acquired := acquireAll(t, f)
	require.ElementsMatch(t, []string{"p1", "x1", "r1"}, keysOf(acquired))
	var toFire []*core.Trigger
	for _, a := range acquired {
		if a.Key.Name != "p1" {
			toFire = append(toFire, a)
		}
	}
	bundles, err := f.store.TriggersFired(f.ctx, toFire)
	require.NoError(t, err)
	require.Len(t, bundles, 2)

	require.Equal(t, core.StateAcquired, f.state(t, "p1"))
	require.Equal(t, core.StateBlocked, f.state(t, "x1"))
	require.Equal(t, core.StateBlocked, f.state(t, "x2"))
	require.Equal(t, core.StatePausedAndBlocked, f.groupState(t, "x3", "held"))

	// The process dies here. A new one starts on the same storage.
	reg := prometheus.NewRegistry()
	restarted := newFixtureOn(t, f.storage, WithMetrics(metrics.New(reg)))

	assert.Equal(t, core.StateWaiting, restarted.state(t, "p1"))
	assert.Equal(t, core.StateWaiting, restarted.state(t, "x1"))
	assert.Equal(t, core.StateWaiting, restarted.state(t, "x2"))
	assert.Equal(t, core.StatePaused, restarted.groupState(t, "x3", "held"))

	p1, err := restarted.store.RetrieveTrigger(restarted.ctx, core.NewTriggerKey("p1", ""))
	require.NoError(t, err)
	assert.Empty(t, p1.FireInstanceID)

	// Recoverable triggers restart from their first fire time.
	r1, err := restarted.store.RetrieveTrigger(restarted.ctx, core.NewTriggerKey("r1", ""))
	require.NoError(t, err)
	assert.Equal(t, core.StateWaiting, r1.State)
	assert.Equal(t, base.Add(3*time.Second), r1.NextFireTime.UTC())

	exists, err := restarted.store.CheckTriggerExists(restarted.ctx, done.Key)
	require.NoError(t, err)
	assert.False(t, exists, "complete triggers are purged")

	// The job is no longer blocked.
	restarted.trigger(t, newTrigger("x4", "exclusive", base.Add(time.Hour)))
	assert.Equal(t, core.StateWaiting, restarted.state(t, "x4"))

	state, err := restarted.store.SchedulerState(restarted.ctx)
	require.NoError(t, err)
	assert.Equal(t, core.SchedulerStarted, state)

	// p1, x1, x2 and x3 reset; r1 recomputed.
	expected := `
# HELP jobstore_recovered_total Triggers reset or recomputed by startup recovery.
# TYPE jobstore_recovered_total counter
jobstore_recovered_total 5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "jobstore_recovered_total"))
}

func TestSchedulerStarted_NothingToRecover(t *testing.T) {
	f := newFixture(t)
	f.job(t, "j1", durable)
	f.trigger(t, newTrigger("t1", "j1", base.Add(time.Hour)))

	restarted := newFixtureOn(t, f.storage)
	assert.Equal(t, core.StateWaiting, restarted.state(t, "t1"))
	assert.Empty(t, restarted.sig.errors)
}

func TestSchedulerStarted_RecoveryFailure(t *testing.T) {
	f := newFixture(t)
	f.job(t, "rec", durable, recoverable)
	require.NoError(t, f.store.StoreCalendar(f.ctx, "broken", calendar.NewWeekendCalendar(""), false, false))
	trig := newTrigger("r1", "rec", base.Add(time.Hour))
	trig.CalendarName = "broken"
	f.trigger(t, trig)
	f.job(t, "plain", durable)
	f.trigger(t, newTrigger("p1", "plain", base.Add(time.Second)))
	require.Len(t, acquireAll(t, f), 1)

	// Corrupt the stored calendar so it can no longer be decoded.
	require.NoError(t, f.storage.Write(f.ctx, "TestScheduler", func(tx core.Tx) error {
		sched, err := tx.GetScheduler()
		if err != nil {
			return err
		}
		sched.Calendars["broken"] = core.EncodedCalendar{Kind: "retired\x00", Data: json.RawMessage(`{}`)}
		return tx.SaveScheduler(sched)
	}))

	sig := &recordingSignaler{}
	var logs bytes.Buffer
	store, err := New(f.storage,
		WithInstanceName("TestScheduler"),
		WithClock(f.clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(&logs, nil))))
	require.NoError(t, err)
	require.NoError(t, store.Initialize(f.ctx, calendar.NewRegistry(), sig))

	err = store.SchedulerStarted(f.ctx)
	require.Error(t, err)
	var cfgErr *core.SchedulerConfigError
	assert.ErrorAs(t, err, &cfgErr)
	assert.ErrorIs(t, err, core.ErrRecoveryFailed)
	assert.ErrorIs(t, err, core.ErrUnknownCalendarKind)
	assert.Equal(t, []string{"failure occurred during job recovery"}, sig.errors)

	// Control characters from stored data never reach the log.
	assert.Contains(t, logs.String(), "scheduler recovery failed")
	assert.Contains(t, logs.String(), "retired")
	assert.NotContains(t, logs.String(), `\x00`)

	// The failed unit rolled back.
	assert.Equal(t, core.StateAcquired, f.state(t, "p1"))
}
