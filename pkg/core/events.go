package core

import "time"

// Event is the interface for all store events.
type Event interface {
	eventMarker()
}

// TriggerMisfired is emitted when a trigger's misfire instruction is applied.
type TriggerMisfired struct {
	Trigger   *Trigger
	Timestamp time.Time
}

func (*TriggerMisfired) eventMarker() {}

// TriggerFinalized is emitted when a trigger will never fire again.
type TriggerFinalized struct {
	Trigger   *Trigger
	Timestamp time.Time
}

func (*TriggerFinalized) eventMarker() {}

// JobDeleted is emitted when a job is removed as a side effect of removing
// its last trigger.
type JobDeleted struct {
	Key       JobKey
	Timestamp time.Time
}

func (*JobDeleted) eventMarker() {}

// SchedulingChanged asks the engine to re-poll for triggers.
type SchedulingChanged struct {
	CandidateNextFireTime *time.Time
	Timestamp             time.Time
}

func (*SchedulingChanged) eventMarker() {}

// SchedulerError is emitted for failures the store absorbs or escalates.
type SchedulerError struct {
	Message   string
	Error     error
	Timestamp time.Time
}

func (*SchedulerError) eventMarker() {}

// TriggerFireSkipped is emitted when TriggersFired omits a trigger.
type TriggerFireSkipped struct {
	Key       TriggerKey
	Reason    SkipReason
	Timestamp time.Time
}

func (*TriggerFireSkipped) eventMarker() {}
