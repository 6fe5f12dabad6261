package core

import (
	"errors"
	"fmt"
)

// Validation errors
var (
	ErrInvalidKey              = errors.New("jobstore: invalid key name or group")
	ErrKeyTooLong              = errors.New("jobstore: key name or group too long")
	ErrInvalidCalendarName     = errors.New("jobstore: invalid calendar name")
	ErrInvalidMisfireThreshold = errors.New("jobstore: misfire threshold must be at least 1ms")
	ErrMissingSchedule         = errors.New("jobstore: trigger has no schedule")
	ErrInvalidJobType          = errors.New("jobstore: invalid job type (must be alphanumeric, start with letter)")
)

// Store errors
var (
	ErrObjectAlreadyExists = errors.New("jobstore: object already exists")
	ErrJobReferenceMissing = errors.New("jobstore: referenced job does not exist")
	ErrRecoveryFailed      = errors.New("jobstore: scheduler recovery failed")
	ErrNotInitialized      = errors.New("jobstore: store not initialized")
	ErrUnknownCalendarKind = errors.New("jobstore: unknown calendar kind")
	ErrCalendarNotFound    = errors.New("jobstore: calendar not found")
	ErrTriggerNeverFires   = errors.New("jobstore: trigger will never fire")
	ErrJobMismatch         = errors.New("jobstore: replacement trigger references a different job")
)

// ObjectAlreadyExistsError reports a store without replace on an existing key.
type ObjectAlreadyExistsError struct {
	Kind string
	Key  string
}

func (e *ObjectAlreadyExistsError) Error() string {
	return fmt.Sprintf("jobstore: %s %q already exists", e.Kind, e.Key)
}

// Is matches ErrObjectAlreadyExists.
func (e *ObjectAlreadyExistsError) Is(target error) bool {
	return target == ErrObjectAlreadyExists
}

// AlreadyExists returns an ObjectAlreadyExistsError.
func AlreadyExists(kind, key string) error {
	return &ObjectAlreadyExistsError{Kind: kind, Key: key}
}

// JobPersistenceError wraps a failure to persist or resolve a record.
type JobPersistenceError struct {
	Op  string
	Err error
}

func (e *JobPersistenceError) Error() string {
	return fmt.Sprintf("jobstore: %s: %v", e.Op, e.Err)
}

func (e *JobPersistenceError) Unwrap() error {
	return e.Err
}

// Persistence wraps err with the failing operation.
func Persistence(op string, err error) error {
	return &JobPersistenceError{Op: op, Err: err}
}

// SchedulerConfigError is fatal to scheduler initialization.
type SchedulerConfigError struct {
	Err error
}

func (e *SchedulerConfigError) Error() string {
	return fmt.Sprintf("jobstore: scheduler configuration: %v", e.Err)
}

func (e *SchedulerConfigError) Unwrap() error {
	return e.Err
}
