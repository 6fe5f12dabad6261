package jobstore

import (
	"context"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

func (u *unit) pauseTrigger(key core.TriggerKey) error {
	t, err := u.tx.GetTrigger(key)
	if err != nil || t == nil {
		return err
	}
	next := t.State.Pause()
	if next == t.State {
		return nil
	}
	t.State = next
	return u.tx.SaveTrigger(t)
}

// resumeTrigger moves a paused trigger back to Waiting, or Blocked when its
// job is running, then re-checks it for a misfire.
func (u *unit) resumeTrigger(key core.TriggerKey) error {
	t, err := u.tx.GetTrigger(key)
	if err != nil || t == nil {
		return err
	}
	sched, err := u.scheduler()
	if err != nil {
		return err
	}
	next, ok := t.State.Resume(sched.IsJobBlocked(t.JobKey))
	if !ok {
		return nil
	}
	t.State = next
	if _, err := u.applyMisfire(t); err != nil {
		return err
	}
	return u.tx.SaveTrigger(t)
}

func (u *unit) pauseJob(key core.JobKey) error {
	triggers, err := u.tx.TriggersForJob(key)
	if err != nil {
		return err
	}
	for _, t := range triggers {
		if err := u.pauseTrigger(t.Key); err != nil {
			return err
		}
	}
	return nil
}

func (u *unit) resumeJob(key core.JobKey) error {
	triggers, err := u.tx.TriggersForJob(key)
	if err != nil {
		return err
	}
	for _, t := range triggers {
		if err := u.resumeTrigger(t.Key); err != nil {
			return err
		}
	}
	return nil
}

func triggerGroups(keys []core.TriggerKey) []string {
	set := core.NewKeySet()
	for _, k := range keys {
		set.Add(k.Group)
	}
	return set.Sorted()
}

func jobGroups(keys []core.JobKey) []string {
	set := core.NewKeySet()
	for _, k := range keys {
		set.Add(k.Group)
	}
	return set.Sorted()
}

// PauseTrigger pauses the trigger. Complete triggers stay complete.
func (s *JobStore) PauseTrigger(ctx context.Context, key core.TriggerKey) error {
	return s.write(ctx, func(u *unit) error {
		return u.pauseTrigger(key)
	})
}

// PauseTriggers pauses every trigger whose group matches m and returns the
// affected groups.
func (s *JobStore) PauseTriggers(ctx context.Context, m core.GroupMatcher) ([]string, error) {
	var groups []string
	err := s.write(ctx, func(u *unit) error {
		keys, err := u.tx.TriggerKeys(m)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := u.pauseTrigger(k); err != nil {
				return err
			}
		}
		groups = triggerGroups(keys)
		return nil
	})
	return groups, err
}

// PauseJob pauses every trigger of the job.
func (s *JobStore) PauseJob(ctx context.Context, key core.JobKey) error {
	return s.write(ctx, func(u *unit) error {
		return u.pauseJob(key)
	})
}

// PauseJobs pauses the triggers of every job whose group matches m and
// records the groups as paused, so triggers stored for them later start
// paused. An exact matcher records its group even when it has no jobs yet.
func (s *JobStore) PauseJobs(ctx context.Context, m core.GroupMatcher) ([]string, error) {
	var groups []string
	err := s.write(ctx, func(u *unit) error {
		keys, err := u.tx.JobKeys(m)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := u.pauseJob(k); err != nil {
				return err
			}
		}
		groups = jobGroups(keys)
		if m.IsExact() && len(groups) == 0 {
			groups = []string{m.Value}
		}

		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		for _, g := range groups {
			sched.PausedJobGroups.Add(g)
		}
		u.touchScheduler()
		return nil
	})
	return groups, err
}

// ResumeTrigger resumes a paused trigger.
func (s *JobStore) ResumeTrigger(ctx context.Context, key core.TriggerKey) error {
	return s.write(ctx, func(u *unit) error {
		return u.resumeTrigger(key)
	})
}

// ResumeTriggers resumes every trigger whose group matches m and returns the
// affected groups.
func (s *JobStore) ResumeTriggers(ctx context.Context, m core.GroupMatcher) ([]string, error) {
	var groups []string
	err := s.write(ctx, func(u *unit) error {
		keys, err := u.tx.TriggerKeys(m)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := u.resumeTrigger(k); err != nil {
				return err
			}
		}
		groups = triggerGroups(keys)
		return nil
	})
	return groups, err
}

// ResumeJob resumes every trigger of the job.
func (s *JobStore) ResumeJob(ctx context.Context, key core.JobKey) error {
	return s.write(ctx, func(u *unit) error {
		return u.resumeJob(key)
	})
}

// ResumeJobs clears the paused job groups matching m, resumes the triggers of
// every matching job and returns the groups that were recorded as paused.
func (s *JobStore) ResumeJobs(ctx context.Context, m core.GroupMatcher) ([]string, error) {
	var resumed []string
	err := s.write(ctx, func(u *unit) error {
		resumed = nil
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		for _, g := range sched.PausedJobGroups.Sorted() {
			if m.Matches(g) {
				sched.PausedJobGroups.Remove(g)
				resumed = append(resumed, g)
			}
		}
		u.touchScheduler()

		keys, err := u.tx.JobKeys(m)
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := u.resumeJob(k); err != nil {
				return err
			}
		}
		return nil
	})
	return resumed, err
}

// PauseAll pauses every trigger group.
func (s *JobStore) PauseAll(ctx context.Context) error {
	_, err := s.PauseTriggers(ctx, core.AnyGroup())
	return err
}

// ResumeAll clears every paused job group and resumes every trigger.
func (s *JobStore) ResumeAll(ctx context.Context) error {
	return s.write(ctx, func(u *unit) error {
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		sched.PausedJobGroups = core.NewKeySet()
		u.touchScheduler()

		keys, err := u.tx.TriggerKeys(core.AnyGroup())
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := u.resumeTrigger(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetPausedTriggerGroups returns the groups holding at least one paused trigger.
func (s *JobStore) GetPausedTriggerGroups(ctx context.Context) ([]string, error) {
	var groups []string
	err := s.read(ctx, func(u *unit) error {
		var err error
		groups, err = u.tx.TriggerGroupsInStates(pausedStates...)
		return err
	})
	return groups, err
}

// IsTriggerGroupPaused reports whether any trigger of group is paused.
func (s *JobStore) IsTriggerGroupPaused(ctx context.Context, group string) (bool, error) {
	var paused bool
	err := s.read(ctx, func(u *unit) error {
		var err error
		paused, err = u.tx.TriggerGroupHasState(group, pausedStates...)
		return err
	})
	return paused, err
}

// IsJobGroupPaused reports whether group is recorded as paused.
func (s *JobStore) IsJobGroupPaused(ctx context.Context, group string) (bool, error) {
	var paused bool
	err := s.read(ctx, func(u *unit) error {
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		paused = sched.PausedJobGroups.Has(group)
		return nil
	})
	return paused, err
}
