package jobstore

import (
	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// ObjectAlreadyExistsError reports a store without replace on an existing key.
type ObjectAlreadyExistsError = core.ObjectAlreadyExistsError

// JobPersistenceError wraps a failure to persist or resolve a record.
type JobPersistenceError = core.JobPersistenceError

// SchedulerConfigError is fatal to scheduler initialization.
type SchedulerConfigError = core.SchedulerConfigError

// Error variables
var (
	ErrInvalidKey              = core.ErrInvalidKey
	ErrKeyTooLong              = core.ErrKeyTooLong
	ErrInvalidCalendarName     = core.ErrInvalidCalendarName
	ErrInvalidMisfireThreshold = core.ErrInvalidMisfireThreshold
	ErrMissingSchedule         = core.ErrMissingSchedule
	ErrInvalidJobType          = core.ErrInvalidJobType
	ErrObjectAlreadyExists     = core.ErrObjectAlreadyExists
	ErrJobReferenceMissing     = core.ErrJobReferenceMissing
	ErrRecoveryFailed          = core.ErrRecoveryFailed
	ErrNotInitialized          = core.ErrNotInitialized
	ErrUnknownCalendarKind     = core.ErrUnknownCalendarKind
	ErrCalendarNotFound        = core.ErrCalendarNotFound
	ErrTriggerNeverFires       = core.ErrTriggerNeverFires
	ErrJobMismatch             = core.ErrJobMismatch
)
