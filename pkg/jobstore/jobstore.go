// Package jobstore implements the durable trigger store: CRUD of jobs,
// triggers and calendars, the acquire, fire and complete protocol, misfire
// handling, group pause bookkeeping and startup recovery.
package jobstore

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/calendar"
	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/metrics"
	"github.com/jdziat/simple-durable-jobstore/pkg/security"
	"github.com/jdziat/simple-durable-jobstore/pkg/signal"
)

// JobStore persists scheduling data for one scheduler instance.
type JobStore struct {
	storage    core.Storage
	name       string
	id         string
	logger     *slog.Logger
	now        func() time.Time
	fireIDs    FireIDGenerator
	evaluator  core.ScheduleEvaluator
	metrics    *metrics.Metrics
	typeLoader core.TypeLoader
	signaler   core.Signaler

	mu               sync.RWMutex
	misfireThreshold time.Duration

	initialized atomic.Bool
}

// New creates a JobStore on storage. Initialize must be called before use.
func New(storage core.Storage, opts ...Option) (*JobStore, error) {
	o := NewOptions()
	for _, opt := range opts {
		opt.Apply(o)
	}
	if o.MisfireThreshold < MinMisfireThreshold {
		return nil, core.ErrInvalidMisfireThreshold
	}
	return &JobStore{
		storage:          storage,
		name:             o.InstanceName,
		id:               o.InstanceID,
		logger:           o.Logger,
		now:              o.Clock,
		fireIDs:          o.FireIDs,
		evaluator:        o.Evaluator,
		metrics:          o.Metrics,
		misfireThreshold: o.MisfireThreshold,
	}, nil
}

// Initialize migrates the backing storage and wires the collaborators. A nil
// typeLoader uses calendar.NewRegistry; a nil signaler discards notifications.
func (s *JobStore) Initialize(ctx context.Context, typeLoader core.TypeLoader, signaler core.Signaler) error {
	if typeLoader == nil {
		typeLoader = calendar.NewRegistry()
	}
	if signaler == nil {
		signaler = signal.Nop{}
	}
	s.typeLoader = typeLoader
	s.signaler = signaler

	if err := s.storage.Migrate(ctx); err != nil {
		return fmt.Errorf("jobstore: migrate: %w", err)
	}
	s.initialized.Store(true)
	return nil
}

// InstanceName returns the scheduler instance name.
func (s *JobStore) InstanceName() string { return s.name }

// InstanceID returns the scheduler instance id.
func (s *JobStore) InstanceID() string { return s.id }

// SupportsPersistence reports that data survives restarts.
func (s *JobStore) SupportsPersistence() bool { return true }

// Clustered reports that the store has a single logical writer.
func (s *JobStore) Clustered() bool { return false }

// EstimatedTimeToReleaseAndAcquireTrigger returns EstimatedReleaseAndAcquireTime.
func (s *JobStore) EstimatedTimeToReleaseAndAcquireTrigger() time.Duration {
	return EstimatedReleaseAndAcquireTime
}

// MisfireThreshold returns the current misfire threshold.
func (s *JobStore) MisfireThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.misfireThreshold
}

// SetMisfireThreshold changes the misfire threshold.
func (s *JobStore) SetMisfireThreshold(d time.Duration) error {
	if d < MinMisfireThreshold {
		return core.ErrInvalidMisfireThreshold
	}
	s.mu.Lock()
	s.misfireThreshold = d
	s.mu.Unlock()
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Units of work
// ──────────────────────────────────────────────────────────────────────────────

// unit is the state of one Read or Write against the storage.
type unit struct {
	s          *JobStore
	tx         core.Tx
	now        time.Time
	sched      *core.SchedulerInstance
	schedDirty bool
	calendars  map[string]core.Calendar
	after      []func(ctx context.Context)
}

// scheduler loads the instance record, or a fresh one when absent.
func (u *unit) scheduler() (*core.SchedulerInstance, error) {
	if u.sched != nil {
		return u.sched, nil
	}
	sched, err := u.tx.GetScheduler()
	if err != nil {
		return nil, err
	}
	if sched == nil {
		sched = core.NewSchedulerInstance(u.s.name)
	}
	u.sched = sched
	return sched, nil
}

// touchScheduler marks the instance record for saving at commit.
func (u *unit) touchScheduler() {
	u.schedDirty = true
}

// calendar resolves a calendar by name. An empty name resolves to nil.
func (u *unit) calendar(name string) (core.Calendar, bool, error) {
	if name == "" {
		return nil, true, nil
	}
	if cal, ok := u.calendars[name]; ok {
		return cal, true, nil
	}
	sched, err := u.scheduler()
	if err != nil {
		return nil, false, err
	}
	enc, ok := sched.Calendars[name]
	if !ok {
		return nil, false, nil
	}
	cal, err := u.s.typeLoader.DecodeCalendar(enc)
	if err != nil {
		return nil, false, fmt.Errorf("jobstore: calendar %q: %w", name, err)
	}
	if u.calendars == nil {
		u.calendars = make(map[string]core.Calendar)
	}
	u.calendars[name] = cal
	return cal, true, nil
}

// onCommit queues fn to run after the unit commits.
func (u *unit) onCommit(fn func(ctx context.Context)) {
	u.after = append(u.after, fn)
}

func (u *unit) signalSchedulingChange(candidate *time.Time) {
	sig := u.s.signaler
	u.onCommit(func(ctx context.Context) { sig.SignalSchedulingChange(ctx, candidate) })
}

func (s *JobStore) read(ctx context.Context, fn func(u *unit) error) error {
	if !s.initialized.Load() {
		return core.ErrNotInitialized
	}
	return s.storage.Read(ctx, s.name, func(tx core.Tx) error {
		return fn(&unit{s: s, tx: tx, now: s.now()})
	})
}

// write runs fn in one transaction. Notifications queued by fn are delivered
// only once the transaction has committed.
func (s *JobStore) write(ctx context.Context, fn func(u *unit) error) error {
	if !s.initialized.Load() {
		return core.ErrNotInitialized
	}
	var after []func(ctx context.Context)
	err := s.storage.Write(ctx, s.name, func(tx core.Tx) error {
		u := &unit{s: s, tx: tx, now: s.now()}
		if err := fn(u); err != nil {
			return err
		}
		if u.schedDirty {
			if err := tx.SaveScheduler(u.sched); err != nil {
				return err
			}
		}
		after = u.after
		return nil
	})
	if err != nil {
		return err
	}
	for _, fn := range after {
		fn(ctx)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler lifecycle
// ──────────────────────────────────────────────────────────────────────────────

// SchedulerStarted creates the instance record on first start and runs
// recovery on every later start. A record that has never been started counts
// as a first start.
func (s *JobStore) SchedulerStarted(ctx context.Context) error {
	if !s.initialized.Load() {
		return core.ErrNotInitialized
	}
	var stats recoveryStats
	err := s.write(ctx, func(u *unit) error {
		existing, err := u.tx.GetScheduler()
		if err != nil {
			return err
		}
		// A record saved before the first start (calendars, paused job
		// groups) is adopted as is; there is no earlier run to recover.
		if existing == nil || existing.State == core.SchedulerUnknown {
			if existing == nil {
				existing = core.NewSchedulerInstance(s.name)
			}
			u.sched = existing
			u.sched.State = core.SchedulerStarted
			u.sched.LastCheckinTime = u.now
			u.touchScheduler()
			return nil
		}
		u.sched = existing
		stats, err = s.recover(u)
		return err
	})
	if err != nil {
		s.logger.Error("scheduler recovery failed",
			"instance", s.name,
			"error", security.SanitizeErrorMessage(err.Error()))
		s.signaler.NotifySchedulerListenersError(ctx, "failure occurred during job recovery", err)
		return &core.SchedulerConfigError{Err: fmt.Errorf("%w: %w", core.ErrRecoveryFailed, err)}
	}
	if stats.any() {
		s.logger.Info("scheduler recovered",
			"instance", s.name,
			"reset", stats.reset,
			"recovered", stats.recovered,
			"purged", stats.purged)
		s.metrics.Recovered(stats.reset + stats.recovered)
	}
	return nil
}

// SchedulerPaused records the paused lifecycle state.
func (s *JobStore) SchedulerPaused(ctx context.Context) error {
	return s.setSchedulerState(ctx, core.SchedulerPaused)
}

// SchedulerResumed records the resumed lifecycle state.
func (s *JobStore) SchedulerResumed(ctx context.Context) error {
	return s.setSchedulerState(ctx, core.SchedulerResumed)
}

// Shutdown records the shutdown lifecycle state.
func (s *JobStore) Shutdown(ctx context.Context) error {
	return s.setSchedulerState(ctx, core.SchedulerShutdown)
}

func (s *JobStore) setSchedulerState(ctx context.Context, state core.SchedulerState) error {
	return s.write(ctx, func(u *unit) error {
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		sched.State = state
		sched.LastCheckinTime = u.now
		u.touchScheduler()
		return nil
	})
}

// SchedulerState returns the recorded lifecycle state, or SchedulerUnknown
// before the first start.
func (s *JobStore) SchedulerState(ctx context.Context) (core.SchedulerState, error) {
	var state core.SchedulerState
	err := s.read(ctx, func(u *unit) error {
		sched, err := u.tx.GetScheduler()
		if err != nil || sched == nil {
			return err
		}
		state = sched.State
		return nil
	})
	return state, err
}

// LastCheckinTime returns when a lifecycle hook last touched the instance
// record. The zero time means never.
func (s *JobStore) LastCheckinTime(ctx context.Context) (time.Time, error) {
	var at time.Time
	err := s.read(ctx, func(u *unit) error {
		sched, err := u.tx.GetScheduler()
		if err != nil || sched == nil {
			return err
		}
		at = sched.LastCheckinTime
		return nil
	})
	return at, err
}

// ClearAllSchedulingData deletes every job, trigger and calendar of the
// instance and clears its pause and block bookkeeping.
func (s *JobStore) ClearAllSchedulingData(ctx context.Context) error {
	return s.write(ctx, func(u *unit) error {
		if err := u.tx.DeleteAll(); err != nil {
			return err
		}
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		sched.Calendars = make(map[string]core.EncodedCalendar)
		sched.PausedJobGroups = core.NewKeySet()
		sched.BlockedJobs = core.NewKeySet()
		u.touchScheduler()
		return nil
	})
}
