package core

import (
	"context"
	"encoding/json"
	"time"
)

// Calendar excludes time ranges from a trigger's schedule.
type Calendar interface {
	IsTimeIncluded(t time.Time) bool
	// NextIncludedTime returns the first included instant after t.
	NextIncludedTime(t time.Time) time.Time
	Description() string
}

// EncodedCalendar is the persisted form of a Calendar.
type EncodedCalendar struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// TypeLoader converts calendars to and from their persisted form.
type TypeLoader interface {
	EncodeCalendar(cal Calendar) (EncodedCalendar, error)
	DecodeCalendar(enc EncodedCalendar) (Calendar, error)
}

// ScheduleEvaluator computes fire times for the Schedule variants. The store
// only calls it; it never interprets a schedule itself.
type ScheduleEvaluator interface {
	// ComputeFirstFireTime sets and returns the trigger's first fire time.
	ComputeFirstFireTime(t *Trigger, cal Calendar) *time.Time
	// Triggered advances the trigger past its current fire time.
	Triggered(t *Trigger, cal Calendar)
	// UpdateAfterMisfire applies the trigger's misfire instruction.
	UpdateAfterMisfire(t *Trigger, cal Calendar, now time.Time)
	// UpdateWithNewCalendar recomputes the next fire time against a replaced calendar.
	UpdateWithNewCalendar(t *Trigger, cal Calendar, misfireThreshold time.Duration, now time.Time)
}

// Signaler receives notifications from the store. Calls are fire-and-forget.
type Signaler interface {
	NotifyTriggerListenersMisfired(ctx context.Context, t *Trigger)
	NotifySchedulerListenersFinalized(ctx context.Context, t *Trigger)
	NotifySchedulerListenersJobDeleted(ctx context.Context, key JobKey)
	SignalSchedulingChange(ctx context.Context, candidateNewNextFireTime *time.Time)
	NotifySchedulerListenersError(ctx context.Context, message string, err error)
}

// SkipReason explains why TriggersFired omitted a trigger.
type SkipReason string

const (
	SkipMissing         SkipReason = "missing"
	SkipNotAcquired     SkipReason = "not_acquired"
	SkipCalendarMissing SkipReason = "calendar_missing"
	SkipJobMissing      SkipReason = "job_missing"
)

// FireSkipObserver is an optional Signaler extension notified for every
// trigger TriggersFired omits.
type FireSkipObserver interface {
	NotifyTriggerFireSkipped(ctx context.Context, key TriggerKey, reason SkipReason)
}
