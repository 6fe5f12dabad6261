package jobstore

import (
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

func acquireAll(t *testing.T, f *fixture) []*core.Trigger {
	t.Helper()
	got, err := f.store.AcquireNextTriggers(f.ctx, f.clock.Now().Add(time.Minute), 100, 0)
	require.NoError(t, err)
	return got
}

// ────────────────────────────────────────────────────────────────────────────
// TriggersFired
// ────────────────────────────────────────────────────────────────────────────

func TestTriggersFired_BuildsBundleAndReschedules(t *testing.T) {
	f := newFixture(t)
	f.job(t, "j1", durable, func(j *core.JobDetail) { j.JobData = core.JobDataMap{"k": "v"} })
	f.trigger(t, newTrigger("t1", "j1", base.Add(time.Second)))

	acquired := acquireAll(t, f)
	require.Len(t, acquired, 1)

	bundles, err := f.store.TriggersFired(f.ctx, acquired)
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	b := bundles[0]
	assert.Equal(t, "j1", b.JobDetail.Key.Name)
	assert.Equal(t, "v", b.JobDetail.JobData["k"])
	assert.Equal(t, base, b.FireTime)
	assert.Equal(t, base.Add(time.Second), b.ScheduledFireTime.UTC())
	assert.Nil(t, b.PrevFireTime)
	assert.Equal(t, base.Add(time.Second+time.Minute), b.NextFireTime.UTC())
	assert.Equal(t, acquired[0].FireInstanceID, b.Trigger.FireInstanceID)
	assert.False(t, b.Recovering)

	stored, err := f.store.RetrieveTrigger(f.ctx, acquired[0].Key)
	require.NoError(t, err)
	assert.Equal(t, core.StateWaiting, stored.State)
	assert.Equal(t, base.Add(time.Second+time.Minute), stored.NextFireTime.UTC())
	assert.Equal(t, base.Add(time.Second), stored.PreviousFireTime.UTC())
	assert.Equal(t, 1, stored.Schedule.(*core.SimpleSchedule).TimesTriggered)
}

func TestTriggersFired_ExhaustedScheduleCompletes(t *testing.T) {
	f := newFixture(t)
	f.job(t, "j1", durable)
	trig := newTrigger("once", "j1", base.Add(time.Second))
	trig.Schedule = &core.SimpleSchedule{}
	f.trigger(t, trig)

	bundles, err := f.store.TriggersFired(f.ctx, acquireAll(t, f))
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Nil(t, bundles[0].NextFireTime)
	assert.Equal(t, core.StateComplete, f.state(t, "once"))
}

func TestTriggersFired_SkipsStaleTriggers(t *testing.T) {
	reg := prometheus.NewRegistry()
	f := newFixture(t, WithMetrics(metrics.New(reg)))
	f.job(t, "j1", durable)
	f.job(t, "j2", durable)
	require.NoError(t, f.store.StoreCalendar(f.ctx, "weekends", calendar.NewWeekendCalendar(""), false, false))

	f.trigger(t, newTrigger("deleted", "j1", base.Add(time.Second)))
	f.trigger(t, newTrigger("paused", "j1", base.Add(2*time.Second)))
	withCal := newTrigger("calendar", "j1", base.Add(3*time.Second))
	withCal.CalendarName = "weekends"
	f.trigger(t, withCal)
	f.trigger(t, newTrigger("orphan", "j2", base.Add(4*time.Second)))
	f.trigger(t, newTrigger("ok", "j1", base.Add(5*time.Second)))

	acquired := acquireAll(t, f)
	require.Len(t, acquired, 5)

	_, err := f.store.RemoveTrigger(f.ctx, core.NewTriggerKey("deleted", ""))
	require.NoError(t, err)
	require.NoError(t, f.store.PauseTrigger(f.ctx, core.NewTriggerKey("paused", "")))
	_, err = f.store.RemoveCalendar(f.ctx, "weekends")
	require.NoError(t, err)
	// Drop the job row directly, leaving the trigger dangling.
	require.NoError(t, f.storage.Write(f.ctx, "TestScheduler", func(tx core.Tx) error {
		_, err := tx.DeleteJob(core.NewJobKey("j2", ""))
		return err
	}))

	bundles, err := f.store.TriggersFired(f.ctx, acquired)
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	assert.Equal(t, "ok", bundles[0].Trigger.Key.Name)

	assert.Equal(t, []skipRecord{
		{Key: core.NewTriggerKey("deleted", ""), Reason: core.SkipMissing},
		{Key: core.NewTriggerKey("paused", ""), Reason: core.SkipNotAcquired},
		{Key: core.NewTriggerKey("calendar", ""), Reason: core.SkipCalendarMissing},
		{Key: core.NewTriggerKey("orphan", ""), Reason: core.SkipJobMissing},
	}, f.sig.skipped)
	assert.Equal(t, core.StateError, f.state(t, "orphan"))
	assert.Equal(t, core.StateAcquired, f.state(t, "calendar"))

	expected := `
# HELP jobstore_fire_skipped_total Triggers omitted by TriggersFired, by reason.
# TYPE jobstore_fire_skipped_total counter
jobstore_fire_skipped_total{reason="calendar_missing"} 1
jobstore_fire_skipped_total{reason="job_missing"} 1
jobstore_fire_skipped_total{reason="missing"} 1
jobstore_fire_skipped_total{reason="not_acquired"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "jobstore_fire_skipped_total"))
}

func TestTriggersFired_UsesCalendar(t *testing.T) {
	f := newFixture(t)
	f.job(t, "j1", durable)
	// 2026-01-02 is a Friday; the next minute-step lands on Saturday.
	friday := time.Date(2026, 1, 2, 23, 59, 30, 0, time.UTC)
	f.clock.Set(friday)
	require.NoError(t, f.store.StoreCalendar(f.ctx, "weekends", calendar.NewWeekendCalendar(""), false, false))
	trig := newTrigger("t1", "j1", friday.Add(time.Second))
	trig.CalendarName = "weekends"
	f.trigger(t, trig)

	bundles, err := f.store.TriggersFired(f.ctx, acquireAll(t, f))
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	require.NotNil(t, bundles[0].Calendar)
	assert.Equal(t, time.Monday, bundles[0].NextFireTime.UTC().Weekday())
}

// ────────────────────────────────────────────────────────────────────────────
// Non-concurrent jobs
// ────────────────────────────────────────────────────────────────────────────

func TestNonConcurrentJob_FiringBlocksSiblingsAndCompletionUnblocks(t *testing.T) {
	f := newFixture(t)
	job := f.job(t, "exclusive", durable, nonConcurrent)
	f.trigger(t, newTrigger("t1", "exclusive", base.Add(time.Second)))
	f.trigger(t, newTrigger("t2", "exclusive", base.Add(time.Hour)))
	// t3 sits in its own group: pausing it pauses that group as a whole.
	f.trigger(t, groupTrigger("t3", "held", "exclusive", base.Add(2*time.Hour)))
	require.NoError(t, f.store.PauseTrigger(f.ctx, core.NewTriggerKey("t3", "held")))

	bundles, err := f.store.TriggersFired(f.ctx, acquireAll(t, f))
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	assert.Equal(t, core.StateBlocked, f.state(t, "t1"))
	assert.Equal(t, core.StateBlocked, f.state(t, "t2"))
	assert.Equal(t, core.StatePausedAndBlocked, f.groupState(t, "t3", "held"))
	state, err := f.store.GetTriggerState(f.ctx, core.NewTriggerKey("t2", ""))
	require.NoError(t, err)
	assert.Equal(t, core.ExternalBlocked, state)

	// A blocked job's triggers are never acquired.
	f.clock.Advance(2 * time.Hour)
	assert.Empty(t, acquireAll(t, f))

	// Triggers stored while the job runs are born blocked.
	f.trigger(t, newTrigger("t4", "exclusive", base.Add(3*time.Hour)))
	assert.Equal(t, core.StateBlocked, f.state(t, "t4"))

	changes := f.sig.changeCount()
	require.NoError(t, f.store.TriggeredJobComplete(f.ctx, bundles[0].Trigger, job, core.InstructionNoop))
	assert.Greater(t, f.sig.changeCount(), changes)

	assert.Equal(t, core.StateWaiting, f.state(t, "t1"))
	assert.Equal(t, core.StateWaiting, f.state(t, "t2"))
	assert.Equal(t, core.StatePaused, f.groupState(t, "t3", "held"))
	assert.Equal(t, core.StateWaiting, f.state(t, "t4"))
}

func TestNonConcurrentJob_BlockedJobClearedWhenJobDeleted(t *testing.T) {
	f := newFixture(t)
	job := f.job(t, "exclusive", durable, nonConcurrent)
	f.trigger(t, newTrigger("t1", "exclusive", base.Add(time.Second)))

	bundles, err := f.store.TriggersFired(f.ctx, acquireAll(t, f))
	require.NoError(t, err)
	require.Len(t, bundles, 1)

	_, err = f.store.RemoveJob(f.ctx, job.Key)
	require.NoError(t, err)
	require.NoError(t, f.store.TriggeredJobComplete(f.ctx, bundles[0].Trigger, job, core.InstructionDeleteTrigger))

	// A new job under the same key is not blocked.
	f.job(t, "exclusive", durable, nonConcurrent)
	f.trigger(t, newTrigger("t2", "exclusive", base.Add(time.Second)))
	assert.Equal(t, core.StateWaiting, f.state(t, "t2"))
}

// ────────────────────────────────────────────────────────────────────────────
// TriggeredJobComplete
// ────────────────────────────────────────────────────────────────────────────

func fireOne(t *testing.T, f *fixture) *core.FireBundle {
	t.Helper()
	bundles, err := f.store.TriggersFired(f.ctx, acquireAll(t, f))
	require.NoError(t, err)
	require.Len(t, bundles, 1)
	return bundles[0]
}

func TestComplete_PersistsJobData(t *testing.T) {
	f := newFixture(t)
	f.job(t, "j1", durable, func(j *core.JobDetail) {
		j.PersistJobDataAfterExecution = true
		j.JobData = core.JobDataMap{"runs": "0"}
	})
	f.trigger(t, newTrigger("t1", "j1", base.Add(time.Second)))

	b := fireOne(t, f)
	executed := b.JobDetail.Clone()
	executed.JobData["runs"] = "1"
	require.NoError(t, f.store.TriggeredJobComplete(f.ctx, b.Trigger, executed, core.InstructionNoop))

	stored, err := f.store.RetrieveJob(f.ctx, executed.Key)
	require.NoError(t, err)
	assert.Equal(t, "1", stored.JobData["runs"])
}

func TestComplete_DoesNotPersistJobDataByDefault(t *testing.T) {
	f := newFixture(t)
	f.job(t, "j1", durable, func(j *core.JobDetail) { j.JobData = core.JobDataMap{"runs": "0"} })
	f.trigger(t, newTrigger("t1", "j1", base.Add(time.Second)))

	b := fireOne(t, f)
	executed := b.JobDetail.Clone()
	executed.JobData["runs"] = "1"
	require.NoError(t, f.store.TriggeredJobComplete(f.ctx, b.Trigger, executed, core.InstructionNoop))

	stored, err := f.store.RetrieveJob(f.ctx, executed.Key)
	require.NoError(t, err)
	assert.Equal(t, "0", stored.JobData["runs"])
}

func TestComplete_SetTriggerStates(t *testing.T) {
	cases := []struct {
		instr core.CompletionInstruction
		want  core.TriggerState
	}{
		{core.InstructionSetTriggerComplete, core.StateComplete},
		{core.InstructionSetTriggerError, core.StateError},
	}
	for _, tc := range cases {
		t.Run(tc.instr.String(), func(t *testing.T) {
			f := newFixture(t)
			job := f.job(t, "j1", durable)
			f.trigger(t, newTrigger("t1", "j1", base.Add(time.Second)))
			f.trigger(t, newTrigger("t2", "j1", base.Add(time.Hour)))

			b := fireOne(t, f)
			changes := f.sig.changeCount()
			require.NoError(t, f.store.TriggeredJobComplete(f.ctx, b.Trigger, job, tc.instr))

			assert.Equal(t, tc.want, f.state(t, "t1"))
			assert.Equal(t, core.StateWaiting, f.state(t, "t2"))
			assert.Equal(t, changes+1, f.sig.changeCount())
		})
	}
}

func TestComplete_SetAllJobTriggerStates(t *testing.T) {
	cases := []struct {
		instr core.CompletionInstruction
		want  core.TriggerState
	}{
		{core.InstructionSetAllJobTriggersComplete, core.StateComplete},
		{core.InstructionSetAllJobTriggersError, core.StateError},
	}
	for _, tc := range cases {
		t.Run(tc.instr.String(), func(t *testing.T) {
			f := newFixture(t)
			job := f.job(t, "j1", durable)
			f.job(t, "other", durable)
			f.trigger(t, newTrigger("t1", "j1", base.Add(time.Second)))
			f.trigger(t, newTrigger("t2", "j1", base.Add(time.Hour)))
			f.trigger(t, newTrigger("o1", "other", base.Add(time.Hour)))

			b := fireOne(t, f)
			require.NoError(t, f.store.TriggeredJobComplete(f.ctx, b.Trigger, job, tc.instr))

			assert.Equal(t, tc.want, f.state(t, "t1"))
			assert.Equal(t, tc.want, f.state(t, "t2"))
			assert.Equal(t, core.StateWaiting, f.state(t, "o1"))
		})
	}
}

func TestComplete_ErrorStateResets(t *testing.T) {
	f := newFixture(t)
	job := f.job(t, "j1", durable)
	f.trigger(t, newTrigger("t1", "j1", base.Add(time.Second)))

	b := fireOne(t, f)
	require.NoError(t, f.store.TriggeredJobComplete(f.ctx, b.Trigger, job, core.InstructionSetTriggerError))
	state, err := f.store.GetTriggerState(f.ctx, b.Trigger.Key)
	require.NoError(t, err)
	assert.Equal(t, core.ExternalError, state)

	require.NoError(t, f.store.ResetTriggerFromErrorState(f.ctx, b.Trigger.Key))
	assert.Equal(t, core.StateWaiting, f.state(t, "t1"))
}

func TestComplete_DeleteTriggerRemovesTriggerAndNonDurableJob(t *testing.T) {
	f := newFixture(t)
	job := f.job(t, "j1")
	trig := newTrigger("once", "j1", base.Add(time.Second))
	trig.Schedule = &core.SimpleSchedule{}
	require.NoError(t, f.store.StoreTrigger(f.ctx, trig, false))

	b := fireOne(t, f)
	require.Nil(t, b.Trigger.NextFireTime)
	require.NoError(t, f.store.TriggeredJobComplete(f.ctx, b.Trigger, job, core.InstructionDeleteTrigger))

	exists, err := f.store.CheckTriggerExists(f.ctx, trig.Key)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = f.store.CheckJobExists(f.ctx, job.Key)
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, []core.JobKey{job.Key}, f.sig.jobsDeleted)
}

func TestComplete_RescheduleDuringExecutionDefeatsDeletion(t *testing.T) {
	f := newFixture(t)
	job := f.job(t, "j1", durable)
	trig := newTrigger("once", "j1", base.Add(time.Second))
	trig.Schedule = &core.SimpleSchedule{}
	f.trigger(t, trig)

	b := fireOne(t, f)
	require.Nil(t, b.Trigger.NextFireTime)

	// The job reschedules its own trigger while running.
	replacement := newTrigger("once", "j1", base.Add(time.Hour))
	replaced, err := f.store.ReplaceTrigger(f.ctx, trig.Key, replacement)
	require.NoError(t, err)
	require.True(t, replaced)

	require.NoError(t, f.store.TriggeredJobComplete(f.ctx, b.Trigger, job, core.InstructionDeleteTrigger))
	exists, err := f.store.CheckTriggerExists(f.ctx, trig.Key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestComplete_DeleteTriggerWithFutureFireTime(t *testing.T) {
	f := newFixture(t)
	job := f.job(t, "j1", durable)
	f.trigger(t, newTrigger("t1", "j1", base.Add(time.Second)))

	b := fireOne(t, f)
	require.NotNil(t, b.Trigger.NextFireTime)
	require.NoError(t, f.store.TriggeredJobComplete(f.ctx, b.Trigger, job, core.InstructionDeleteTrigger))

	exists, err := f.store.CheckTriggerExists(f.ctx, b.Trigger.Key)
	require.NoError(t, err)
	assert.False(t, exists)
	exists, err = f.store.CheckJobExists(f.ctx, job.Key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestComplete_ToleratesDeletedTrigger(t *testing.T) {
	f := newFixture(t)
	job := f.job(t, "j1", durable)
	f.trigger(t, newTrigger("t1", "j1", base.Add(time.Second)))

	b := fireOne(t, f)
	_, err := f.store.RemoveTrigger(f.ctx, b.Trigger.Key)
	require.NoError(t, err)

	for _, instr := range []core.CompletionInstruction{
		core.InstructionNoop, core.InstructionSetTriggerComplete, core.InstructionDeleteTrigger,
	} {
		assert.NoError(t, f.store.TriggeredJobComplete(f.ctx, b.Trigger, job, instr), instr.String())
	}
}

func TestComplete_ToleratesNilTriggerAndJob(t *testing.T) {
	f := newFixture(t)
	job := f.job(t, "exclusive", durable, nonConcurrent)
	f.trigger(t, newTrigger("t1", "exclusive", base.Add(time.Second)))
	f.trigger(t, newTrigger("t2", "exclusive", base.Add(time.Hour)))
	b := fireOne(t, f)
	require.Equal(t, core.StateBlocked, f.state(t, "t2"))

	instructions := []core.CompletionInstruction{
		core.InstructionDeleteTrigger,
		core.InstructionSetTriggerComplete,
		core.InstructionSetAllJobTriggersError,
	}
	for _, instr := range instructions {
		require.NotPanics(t, func() {
			require.NoError(t, f.store.TriggeredJobComplete(f.ctx, nil, job, instr))
		}, instr.String())
	}
	// The job bookkeeping still ran: the job is unblocked.
	assert.Equal(t, core.StateWaiting, f.state(t, "t1"))
	assert.Equal(t, core.StateWaiting, f.state(t, "t2"))

	require.NoError(t, f.store.TriggeredJobComplete(f.ctx, b.Trigger, nil, core.InstructionSetTriggerError))
	assert.Equal(t, core.StateError, f.state(t, "t1"))
}
