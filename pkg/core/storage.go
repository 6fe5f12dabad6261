package core

import (
	"context"
	"time"
)

// Storage defines the persistence layer for the trigger store. A Write unit
// commits atomically and is serialized against every other Write.
type Storage interface {
	// Migrate creates the necessary database tables.
	Migrate(ctx context.Context) error

	// Read runs fn against the records of the named scheduler instance.
	Read(ctx context.Context, instance string, fn func(tx Tx) error) error
	// Write runs fn in one transaction; an error from fn rolls it back.
	Write(ctx context.Context, instance string, fn func(tx Tx) error) error
}

// Tx is a set of record operations bound to one scheduler instance and one
// transaction. Lookups of absent records return nil or false without error.
type Tx interface {
	// Jobs
	GetJob(key JobKey) (*JobDetail, error)
	JobExists(key JobKey) (bool, error)
	SaveJob(job *JobDetail) error
	DeleteJob(key JobKey) (bool, error)
	JobKeys(m GroupMatcher) ([]JobKey, error)
	JobGroupNames() ([]string, error)
	JobsRequestingRecovery() ([]*JobDetail, error)
	CountJobs() (int64, error)

	// Triggers
	GetTrigger(key TriggerKey) (*Trigger, error)
	TriggerExists(key TriggerKey) (bool, error)
	SaveTrigger(t *Trigger) error
	DeleteTrigger(key TriggerKey) (bool, error)
	TriggerKeys(m GroupMatcher) ([]TriggerKey, error)
	TriggerGroupNames() ([]string, error)
	TriggersForJob(key JobKey) ([]*Trigger, error)
	TriggersForCalendar(name string) ([]*Trigger, error)
	TriggersInStates(states ...TriggerState) ([]*Trigger, error)
	// DueTriggers returns waiting triggers with a next fire time at or before
	// noLaterThan, earliest first and higher priority first on ties.
	DueTriggers(noLaterThan time.Time) ([]*Trigger, error)
	// TriggerGroupHasState reports whether any trigger of group is in one of states.
	TriggerGroupHasState(group string, states ...TriggerState) (bool, error)
	TriggerGroupsInStates(states ...TriggerState) ([]string, error)
	CountTriggersForJob(key JobKey) (int64, error)
	DeleteTriggersInState(state TriggerState) (int64, error)
	CountTriggers() (int64, error)

	// Scheduler
	GetScheduler() (*SchedulerInstance, error)
	SaveScheduler(s *SchedulerInstance) error

	// DeleteAll removes every job and trigger of the instance.
	DeleteAll() error
}
