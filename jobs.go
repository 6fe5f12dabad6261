// Package jobstore provides a durable trigger store for a scheduler engine
// that fires jobs from triggers.
//
// This is the main package users should import. It re-exports the public
// types from the pkg/ packages for a clean API surface.
//
// Basic usage:
//
//	db, _ := jobstore.Open("sqlite", "scheduler.db")
//	store, _ := jobstore.New(jobstore.NewGormStorage(db))
//	store.Initialize(ctx, nil, nil)
//	store.SchedulerStarted(ctx)
//
//	store.StoreJob(ctx, &jobstore.JobDetail{Key: jobstore.NewJobKey("report", "billing"), Durable: true}, false)
//	trig, _ := jobstore.NewTrigger("nightly", "billing").
//	    ForJob(jobstore.NewJobKey("report", "billing")).
//	    WithCron("0 0 2 * * *", "UTC").
//	    Build()
//	store.StoreTrigger(ctx, trig, false)
//
//	// Engine loop
//	due, _ := store.AcquireNextTriggers(ctx, time.Now().Add(30*time.Second), 10, 0)
//	bundles, _ := store.TriggersFired(ctx, due)
//	for _, b := range bundles {
//	    run(b)
//	    store.TriggeredJobComplete(ctx, b.Trigger, b.JobDetail, jobstore.InstructionNoop)
//	}
package jobstore

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/jdziat/simple-durable-jobstore/pkg/calendar"
	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/jobstore"
	"github.com/jdziat/simple-durable-jobstore/pkg/metrics"
	"github.com/jdziat/simple-durable-jobstore/pkg/security"
	"github.com/jdziat/simple-durable-jobstore/pkg/signal"
	"github.com/jdziat/simple-durable-jobstore/pkg/storage"
)

// Type aliases
type (
	// JobStore persists scheduling data for one scheduler instance.
	JobStore = jobstore.JobStore

	// Option modifies Options.
	Option = jobstore.Option

	// Options holds configuration for a JobStore.
	Options = jobstore.Options

	// JobAndTriggers pairs a job with the triggers stored alongside it.
	JobAndTriggers = jobstore.JobAndTriggers

	// FireIDGenerator produces fire instance ids.
	FireIDGenerator = jobstore.FireIDGenerator

	// JobKey identifies a job.
	JobKey = core.JobKey

	// TriggerKey identifies a trigger.
	TriggerKey = core.TriggerKey

	// JobDetail is a stored job definition.
	JobDetail = core.JobDetail

	// JobDataMap holds job and trigger parameters.
	JobDataMap = core.JobDataMap

	// Trigger binds a schedule to a job.
	Trigger = core.Trigger

	// TriggerState is the internal state of a stored trigger.
	TriggerState = core.TriggerState

	// ExternalState is the trigger state reported to callers.
	ExternalState = core.ExternalState

	// FireBundle describes one confirmed firing.
	FireBundle = core.FireBundle

	// CompletionInstruction tells TriggeredJobComplete what to do next.
	CompletionInstruction = core.CompletionInstruction

	// MisfireInstruction selects how a misfired trigger is rescheduled.
	MisfireInstruction = core.MisfireInstruction

	// GroupMatcher selects keys by group.
	GroupMatcher = core.GroupMatcher

	// Calendar excludes time ranges from trigger schedules.
	Calendar = core.Calendar

	// Signaler receives store notifications.
	Signaler = core.Signaler

	// TypeLoader converts calendars to and from their persisted form.
	TypeLoader = core.TypeLoader

	// Storage is the persistence layer for the store.
	Storage = core.Storage

	// SchedulerState is the recorded lifecycle state of an instance.
	SchedulerState = core.SchedulerState

	// Event is the interface for all store events.
	Event = core.Event

	// TriggerMisfired is emitted when a misfire instruction is applied.
	TriggerMisfired = core.TriggerMisfired

	// TriggerFinalized is emitted when a trigger will never fire again.
	TriggerFinalized = core.TriggerFinalized

	// JobDeleted is emitted when removing a trigger deletes its job.
	JobDeleted = core.JobDeleted

	// SchedulingChanged asks the engine to re-poll for triggers.
	SchedulingChanged = core.SchedulingChanged

	// SchedulerError is emitted for failures the store absorbs or escalates.
	SchedulerError = core.SchedulerError

	// TriggerFireSkipped is emitted when TriggersFired omits a trigger.
	TriggerFireSkipped = core.TriggerFireSkipped

	// GormStorage implements Storage using GORM.
	GormStorage = storage.GormStorage

	// PoolOption adjusts the connection pool chosen by Open.
	PoolOption = storage.PoolOption

	// EventBus broadcasts store notifications as events.
	EventBus = signal.Bus

	// Metrics holds the store's Prometheus counters.
	Metrics = metrics.Metrics

	// CalendarRegistry is the default TypeLoader.
	CalendarRegistry = calendar.Registry
)

// Trigger state constants
const (
	StateWaiting          = core.StateWaiting
	StateAcquired         = core.StateAcquired
	StatePaused           = core.StatePaused
	StatePausedAndBlocked = core.StatePausedAndBlocked
	StateBlocked          = core.StateBlocked
	StateComplete         = core.StateComplete
	StateError            = core.StateError
)

// Reported state constants
const (
	ExternalNone     = core.ExternalNone
	ExternalNormal   = core.ExternalNormal
	ExternalPaused   = core.ExternalPaused
	ExternalComplete = core.ExternalComplete
	ExternalError    = core.ExternalError
	ExternalBlocked  = core.ExternalBlocked
)

// Completion instruction constants
const (
	InstructionNoop                      = core.InstructionNoop
	InstructionReExecuteJob              = core.InstructionReExecuteJob
	InstructionSetTriggerComplete        = core.InstructionSetTriggerComplete
	InstructionDeleteTrigger             = core.InstructionDeleteTrigger
	InstructionSetAllJobTriggersComplete = core.InstructionSetAllJobTriggersComplete
	InstructionSetTriggerError           = core.InstructionSetTriggerError
	InstructionSetAllJobTriggersError    = core.InstructionSetAllJobTriggersError
)

// Misfire instruction constants
const (
	MisfireIgnorePolicy                          = core.MisfireIgnorePolicy
	MisfireSmartPolicy                           = core.MisfireSmartPolicy
	MisfireFireNow                               = core.MisfireFireNow
	MisfireRescheduleNowWithExistingRepeatCount  = core.MisfireRescheduleNowWithExistingRepeatCount
	MisfireRescheduleNowWithRemainingRepeatCount = core.MisfireRescheduleNowWithRemainingRepeatCount
	MisfireRescheduleNextWithRemainingCount      = core.MisfireRescheduleNextWithRemainingCount
	MisfireRescheduleNextWithExistingCount       = core.MisfireRescheduleNextWithExistingCount
	MisfireFireOnceNow                           = core.MisfireFireOnceNow
	MisfireDoNothing                             = core.MisfireDoNothing
)

// Scheduler lifecycle constants
const (
	SchedulerUnknown  = core.SchedulerUnknown
	SchedulerStarted  = core.SchedulerStarted
	SchedulerPaused   = core.SchedulerPaused
	SchedulerResumed  = core.SchedulerResumed
	SchedulerShutdown = core.SchedulerShutdown
)

// Defaults
const (
	DefaultGroup            = core.DefaultGroup
	DefaultPriority         = core.DefaultPriority
	DefaultInstanceName     = jobstore.DefaultInstanceName
	DefaultMisfireThreshold = jobstore.DefaultMisfireThreshold
	MinMisfireThreshold     = jobstore.MinMisfireThreshold
)

// Security limits
const (
	MaxKeyPartLength      = security.MaxKeyPartLength
	MaxCalendarNameLength = security.MaxCalendarNameLength
	MaxJobTypeLength      = security.MaxJobTypeLength
)

// New creates a JobStore on storage. Initialize must be called before use.
func New(s Storage, opts ...Option) (*JobStore, error) {
	return jobstore.New(s, opts...)
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return jobstore.NewOptions()
}

// Open connects to a "sqlite" or "postgres" database with a silent logger.
// SQLite gets a single connection; opts adjust the pool.
func Open(dialect, dsn string, opts ...PoolOption) (*gorm.DB, error) {
	return storage.Open(dialect, dsn, nil, opts...)
}

// MaxOpenConns caps the open connections of a pool.
func MaxOpenConns(n int) PoolOption { return storage.MaxOpenConns(n) }

// NewGormStorage creates a new GORM-backed storage.
func NewGormStorage(db *gorm.DB) *GormStorage {
	return storage.NewGormStorage(db)
}

// NewEventBus returns a Signaler that broadcasts events to subscribers.
func NewEventBus() *EventBus {
	return signal.NewBus()
}

// NewMetrics registers the store counters with reg. A nil reg leaves them
// unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	return metrics.New(reg)
}

// NewCalendarRegistry returns a TypeLoader knowing the built-in calendars.
func NewCalendarRegistry() *CalendarRegistry {
	return calendar.NewRegistry()
}

// NewJobKey returns a JobKey, using DefaultGroup when group is empty.
func NewJobKey(name, group string) JobKey {
	return core.NewJobKey(name, group)
}

// NewTriggerKey returns a TriggerKey, using DefaultGroup when group is empty.
func NewTriggerKey(name, group string) TriggerKey {
	return core.NewTriggerKey(name, group)
}

// SanitizeErrorMessage truncates and sanitizes error messages.
func SanitizeErrorMessage(msg string) string {
	return security.SanitizeErrorMessage(msg)
}

// Store option functions

// WithInstanceName sets the scheduler instance whose records the store owns.
func WithInstanceName(name string) Option {
	return jobstore.WithInstanceName(name)
}

// WithInstanceID sets the instance id.
func WithInstanceID(id string) Option {
	return jobstore.WithInstanceID(id)
}

// WithMisfireThreshold sets how late a trigger may fire before it misfires.
func WithMisfireThreshold(d time.Duration) Option {
	return jobstore.WithMisfireThreshold(d)
}

// WithLogger sets the store logger.
func WithLogger(l *slog.Logger) Option {
	return jobstore.WithLogger(l)
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return jobstore.WithClock(now)
}

// WithFireIDGenerator sets the source of fire instance ids.
func WithFireIDGenerator(g FireIDGenerator) Option {
	return jobstore.WithFireIDGenerator(g)
}

// WithMetrics records store activity on m.
func WithMetrics(m *Metrics) Option {
	return jobstore.WithMetrics(m)
}
