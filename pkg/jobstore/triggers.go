package jobstore

import (
	"context"
	"fmt"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/security"
)

var pausedStates = []core.TriggerState{core.StatePaused, core.StatePausedAndBlocked}

// triggerValidator is implemented by evaluators that can reject schedules.
type triggerValidator interface {
	Validate(t *core.Trigger) error
}

func (s *JobStore) validateTrigger(t *core.Trigger) error {
	if err := security.ValidateTriggerKey(t.Key); err != nil {
		return err
	}
	if err := security.ValidateJobKey(t.JobKey); err != nil {
		return err
	}
	if t.CalendarName != "" {
		if err := security.ValidateCalendarName(t.CalendarName); err != nil {
			return err
		}
	}
	if t.Schedule == nil {
		return core.ErrMissingSchedule
	}
	if v, ok := s.evaluator.(triggerValidator); ok {
		return v.Validate(t)
	}
	return nil
}

// placementState derives the state of a trigger being stored from the pause
// state of its groups and the block state of its job.
func (u *unit) placementState(t *core.Trigger) (core.TriggerState, error) {
	if t.NextFireTime == nil {
		return core.StateComplete, nil
	}
	sched, err := u.scheduler()
	if err != nil {
		return "", err
	}
	groupPaused := sched.PausedJobGroups.Has(t.JobKey.Group)
	if !groupPaused {
		groupPaused, err = u.tx.TriggerGroupHasState(t.Key.Group, pausedStates...)
		if err != nil {
			return "", err
		}
	}
	return core.InitialState(groupPaused, sched.IsJobBlocked(t.JobKey)), nil
}

// storeTrigger saves a copy of t in its derived state.
func (u *unit) storeTrigger(t *core.Trigger, replace bool) error {
	if !replace {
		exists, err := u.tx.TriggerExists(t.Key)
		if err != nil {
			return err
		}
		if exists {
			return core.AlreadyExists("trigger", t.Key.String())
		}
	}
	exists, err := u.tx.JobExists(t.JobKey)
	if err != nil {
		return err
	}
	if !exists {
		return jobMissing(t.JobKey)
	}

	stored := t.Clone()
	stored.FireInstanceID = ""
	if stored.State, err = u.placementState(stored); err != nil {
		return err
	}
	return u.tx.SaveTrigger(stored)
}

// storeNewTrigger validates t and computes its first fire time when it has
// never been scheduled.
func (u *unit) storeNewTrigger(t *core.Trigger, replace bool) error {
	if err := u.s.validateTrigger(t); err != nil {
		return err
	}
	if t.NextFireTime == nil && t.PreviousFireTime == nil {
		cal, ok, err := u.calendar(t.CalendarName)
		if err != nil {
			return err
		}
		if !ok {
			return core.Persistence("store trigger", fmt.Errorf("%w: %s", core.ErrCalendarNotFound, t.CalendarName))
		}
		t = t.Clone()
		if u.s.evaluator.ComputeFirstFireTime(t, cal) == nil {
			return fmt.Errorf("%w: %s", core.ErrTriggerNeverFires, t.Key)
		}
	}
	return u.storeTrigger(t, replace)
}

// StoreTrigger saves t. A trigger with no fire times gets its first fire
// time computed. Without replace an existing trigger with the same key is an
// ObjectAlreadyExistsError; a trigger whose job does not exist is a
// JobPersistenceError.
func (s *JobStore) StoreTrigger(ctx context.Context, t *core.Trigger, replace bool) error {
	return s.write(ctx, func(u *unit) error {
		return u.storeNewTrigger(t, replace)
	})
}

// removeTrigger deletes the trigger, and its job when the job is not durable
// and has no other trigger.
func (u *unit) removeTrigger(key core.TriggerKey) (bool, error) {
	t, err := u.tx.GetTrigger(key)
	if err != nil || t == nil {
		return false, err
	}
	if _, err := u.tx.DeleteTrigger(key); err != nil {
		return false, err
	}

	job, err := u.tx.GetJob(t.JobKey)
	if err != nil {
		return false, err
	}
	if job == nil || job.Durable {
		return true, nil
	}
	remaining, err := u.tx.CountTriggersForJob(job.Key)
	if err != nil {
		return false, err
	}
	if remaining > 0 {
		return true, nil
	}
	if _, err := u.tx.DeleteJob(job.Key); err != nil {
		return false, err
	}
	sig, jobKey := u.s.signaler, job.Key
	u.onCommit(func(ctx context.Context) { sig.NotifySchedulerListenersJobDeleted(ctx, jobKey) })
	return true, nil
}

// RemoveTrigger deletes the trigger. A non-durable job left without triggers
// is deleted too.
func (s *JobStore) RemoveTrigger(ctx context.Context, key core.TriggerKey) (bool, error) {
	var removed bool
	err := s.write(ctx, func(u *unit) error {
		var err error
		removed, err = u.removeTrigger(key)
		return err
	})
	return removed, err
}

// RemoveTriggers deletes each trigger. It reports whether every trigger existed.
func (s *JobStore) RemoveTriggers(ctx context.Context, keys []core.TriggerKey) (bool, error) {
	all := true
	err := s.write(ctx, func(u *unit) error {
		all = true
		for _, key := range keys {
			removed, err := u.removeTrigger(key)
			if err != nil {
				return err
			}
			all = all && removed
		}
		return nil
	})
	return all && err == nil, err
}

// ReplaceTrigger swaps the trigger stored under key for t, which must
// reference the same job. The job is kept even when it is not durable.
func (s *JobStore) ReplaceTrigger(ctx context.Context, key core.TriggerKey, t *core.Trigger) (bool, error) {
	var replaced bool
	err := s.write(ctx, func(u *unit) error {
		old, err := u.tx.GetTrigger(key)
		if err != nil || old == nil {
			return err
		}
		if old.JobKey != t.JobKey {
			return fmt.Errorf("%w: %s references %s, not %s", core.ErrJobMismatch, t.Key, t.JobKey, old.JobKey)
		}
		if _, err := u.tx.DeleteTrigger(key); err != nil {
			return err
		}
		if err := u.storeNewTrigger(t, true); err != nil {
			return err
		}
		replaced = true
		return nil
	})
	return replaced, err
}

// RetrieveTrigger returns the trigger, or nil when it does not exist.
func (s *JobStore) RetrieveTrigger(ctx context.Context, key core.TriggerKey) (*core.Trigger, error) {
	var t *core.Trigger
	err := s.read(ctx, func(u *unit) error {
		var err error
		t, err = u.tx.GetTrigger(key)
		return err
	})
	return t, err
}

// CheckTriggerExists reports whether a trigger with key exists.
func (s *JobStore) CheckTriggerExists(ctx context.Context, key core.TriggerKey) (bool, error) {
	var exists bool
	err := s.read(ctx, func(u *unit) error {
		var err error
		exists, err = u.tx.TriggerExists(key)
		return err
	})
	return exists, err
}

// GetTriggerKeys returns the keys of triggers whose group matches m.
func (s *JobStore) GetTriggerKeys(ctx context.Context, m core.GroupMatcher) ([]core.TriggerKey, error) {
	var keys []core.TriggerKey
	err := s.read(ctx, func(u *unit) error {
		var err error
		keys, err = u.tx.TriggerKeys(m)
		return err
	})
	return keys, err
}

// GetTriggerGroupNames returns the distinct trigger groups.
func (s *JobStore) GetTriggerGroupNames(ctx context.Context) ([]string, error) {
	var groups []string
	err := s.read(ctx, func(u *unit) error {
		var err error
		groups, err = u.tx.TriggerGroupNames()
		return err
	})
	return groups, err
}

// GetTriggersForJob returns every trigger referencing the job.
func (s *JobStore) GetTriggersForJob(ctx context.Context, key core.JobKey) ([]*core.Trigger, error) {
	var triggers []*core.Trigger
	err := s.read(ctx, func(u *unit) error {
		var err error
		triggers, err = u.tx.TriggersForJob(key)
		return err
	})
	return triggers, err
}

// GetNumberOfTriggers counts the instance's triggers.
func (s *JobStore) GetNumberOfTriggers(ctx context.Context) (int, error) {
	var n int64
	err := s.read(ctx, func(u *unit) error {
		var err error
		n, err = u.tx.CountTriggers()
		return err
	})
	return int(n), err
}

// GetTriggerState returns the reported state of the trigger, or ExternalNone
// when it does not exist.
func (s *JobStore) GetTriggerState(ctx context.Context, key core.TriggerKey) (core.ExternalState, error) {
	state := core.ExternalNone
	err := s.read(ctx, func(u *unit) error {
		t, err := u.tx.GetTrigger(key)
		if err != nil || t == nil {
			return err
		}
		state = t.State.External()
		return nil
	})
	return state, err
}

// ResetTriggerFromErrorState returns an errored trigger to Waiting, or to
// Paused when its trigger group or job group is paused.
func (s *JobStore) ResetTriggerFromErrorState(ctx context.Context, key core.TriggerKey) error {
	return s.write(ctx, func(u *unit) error {
		t, err := u.tx.GetTrigger(key)
		if err != nil || t == nil || t.State != core.StateError {
			return err
		}
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		paused := sched.PausedJobGroups.Has(t.JobKey.Group)
		if !paused {
			if paused, err = u.tx.TriggerGroupHasState(t.Key.Group, pausedStates...); err != nil {
				return err
			}
		}
		t.State = core.StateWaiting
		if paused {
			t.State = core.StatePaused
		}
		if err := u.tx.SaveTrigger(t); err != nil {
			return err
		}
		u.signalSchedulingChange(nil)
		return nil
	})
}
