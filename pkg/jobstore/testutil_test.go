package jobstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jdziat/simple-durable-jobstore/pkg/calendar"
	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/storage"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// openTestDB opens PostgreSQL when TEST_DATABASE_URL is set and a fresh
// in-memory SQLite database otherwise.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if dsn := os.Getenv("TEST_DATABASE_URL"); dsn != "" {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		require.NoError(t, err, "open postgres test db")
		sqlDB, err := db.DB()
		require.NoError(t, err)
		sqlDB.SetMaxOpenConns(2)

		cleanup := func() {
			for _, tbl := range []string{"jobstore_triggers", "jobstore_jobs", "jobstore_schedulers"} {
				db.Exec("DELETE FROM " + tbl)
			}
		}
		cleanup()
		t.Cleanup(func() {
			cleanup()
			_ = sqlDB.Close()
		})
		return db
	}
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "open in-memory sqlite")
	require.NoError(t, storage.ConfigurePool(db))
	return db
}

// testClock is a settable clock.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type skipRecord struct {
	Key    core.TriggerKey
	Reason core.SkipReason
}

// recordingSignaler keeps every notification.
type recordingSignaler struct {
	mu          sync.Mutex
	misfired    []core.TriggerKey
	finalized   []core.TriggerKey
	jobsDeleted []core.JobKey
	changes     int
	errors      []string
	skipped     []skipRecord
}

func (r *recordingSignaler) NotifyTriggerListenersMisfired(_ context.Context, t *core.Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.misfired = append(r.misfired, t.Key)
}

func (r *recordingSignaler) NotifySchedulerListenersFinalized(_ context.Context, t *core.Trigger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finalized = append(r.finalized, t.Key)
}

func (r *recordingSignaler) NotifySchedulerListenersJobDeleted(_ context.Context, key core.JobKey) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobsDeleted = append(r.jobsDeleted, key)
}

func (r *recordingSignaler) SignalSchedulingChange(context.Context, *time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes++
}

func (r *recordingSignaler) NotifySchedulerListenersError(_ context.Context, message string, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, message)
}

func (r *recordingSignaler) NotifyTriggerFireSkipped(_ context.Context, key core.TriggerKey, reason core.SkipReason) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skipped = append(r.skipped, skipRecord{Key: key, Reason: reason})
}

func (r *recordingSignaler) changeCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.changes
}

type fixture struct {
	ctx     context.Context
	storage *storage.GormStorage
	store   *JobStore
	clock   *testClock
	sig     *recordingSignaler
}

// newFixture returns an initialized, started store on a fresh database.
func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	return newFixtureOn(t, storage.NewGormStorage(openTestDB(t)), opts...)
}

// newFixtureOn starts a store on existing storage, as a restarted process would.
func newFixtureOn(t *testing.T, st *storage.GormStorage, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		ctx:     context.Background(),
		storage: st,
		clock:   &testClock{now: base},
		sig:     &recordingSignaler{},
	}
	all := append([]Option{
		WithInstanceName("TestScheduler"),
		WithClock(f.clock.Now),
		WithFireIDGenerator(NewFireIDCounter(0)),
	}, opts...)
	store, err := New(st, all...)
	require.NoError(t, err)
	require.NoError(t, store.Initialize(f.ctx, calendar.NewRegistry(), f.sig))
	require.NoError(t, store.SchedulerStarted(f.ctx))
	f.store = store
	return f
}

func (f *fixture) job(t *testing.T, name string, mods ...func(*core.JobDetail)) *core.JobDetail {
	t.Helper()
	job := &core.JobDetail{Key: core.NewJobKey(name, ""), JobType: "test.job"}
	for _, mod := range mods {
		mod(job)
	}
	require.NoError(t, f.store.StoreJob(f.ctx, job, false))
	return job
}

func durable(j *core.JobDetail)       { j.Durable = true }
func nonConcurrent(j *core.JobDetail) { j.ConcurrentExecutionDisallowed = true }
func recoverable(j *core.JobDetail)   { j.RequestsRecovery = true }

// newTrigger returns a trigger that repeats every minute from next.
func newTrigger(name, job string, next time.Time) *core.Trigger {
	return &core.Trigger{
		Key:          core.NewTriggerKey(name, ""),
		JobKey:       core.NewJobKey(job, ""),
		Priority:     core.DefaultPriority,
		StartTime:    next,
		NextFireTime: core.TimePtr(next),
		Schedule:     &core.SimpleSchedule{RepeatCount: core.RepeatIndefinitely, RepeatInterval: time.Minute},
	}
}

func (f *fixture) trigger(t *testing.T, trig *core.Trigger) *core.Trigger {
	t.Helper()
	require.NoError(t, f.store.StoreTrigger(f.ctx, trig, false))
	return trig
}

func (f *fixture) state(t *testing.T, name string) core.TriggerState {
	t.Helper()
	got, err := f.store.RetrieveTrigger(f.ctx, core.NewTriggerKey(name, ""))
	require.NoError(t, err)
	require.NotNil(t, got, "trigger %s", name)
	return got.State
}

func keysOf(triggers []*core.Trigger) []string {
	out := make([]string, len(triggers))
	for i, t := range triggers {
		out[i] = t.Key.Name
	}
	return out
}
