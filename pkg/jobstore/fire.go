package jobstore

import (
	"context"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/security"
)

// skipFire records a trigger TriggersFired omits.
func (u *unit) skipFire(key core.TriggerKey, reason core.SkipReason) {
	s := u.s
	u.onCommit(func(ctx context.Context) {
		s.logger.Debug("trigger fire skipped",
			"trigger", security.SanitizeErrorMessage(key.String()),
			"reason", string(reason))
		s.metrics.FireSkipped(string(reason))
		if obs, ok := s.signaler.(core.FireSkipObserver); ok {
			obs.NotifyTriggerFireSkipped(ctx, key, reason)
		}
	})
}

// TriggersFired confirms the firing of acquired triggers and returns a bundle
// for each one still Acquired. Triggers deleted, paused or completed since
// acquisition are omitted, so callers must match bundles to inputs by key.
func (s *JobStore) TriggersFired(ctx context.Context, triggers []*core.Trigger) ([]*core.FireBundle, error) {
	var bundles []*core.FireBundle
	err := s.write(ctx, func(u *unit) error {
		bundles = nil
		for _, in := range triggers {
			bundle, err := u.fire(in.Key)
			if err != nil {
				return err
			}
			if bundle != nil {
				bundles = append(bundles, bundle)
			}
		}
		fired := len(bundles)
		u.onCommit(func(context.Context) {
			for range fired {
				s.metrics.Fired()
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bundles, nil
}

func (u *unit) fire(key core.TriggerKey) (*core.FireBundle, error) {
	s := u.s
	t, err := u.tx.GetTrigger(key)
	if err != nil {
		return nil, err
	}
	if t == nil {
		u.skipFire(key, core.SkipMissing)
		return nil, nil
	}
	if t.State != core.StateAcquired {
		u.skipFire(key, core.SkipNotAcquired)
		return nil, nil
	}
	cal, ok, err := u.calendar(t.CalendarName)
	if err != nil {
		return nil, err
	}
	if !ok {
		u.skipFire(key, core.SkipCalendarMissing)
		return nil, nil
	}
	job, err := u.tx.GetJob(t.JobKey)
	if err != nil {
		return nil, err
	}
	if job == nil {
		t.State = core.StateError
		if err := u.tx.SaveTrigger(t); err != nil {
			return nil, err
		}
		u.skipFire(key, core.SkipJobMissing)
		return nil, nil
	}

	prev := t.PreviousFireTime
	s.evaluator.Triggered(t, cal)

	t.State = core.StateWaiting
	if !t.MayFireAgain() {
		t.State = core.StateComplete
	}
	if job.ConcurrentExecutionDisallowed {
		t.State = t.State.Block()
		if err := u.blockJob(job.Key, key); err != nil {
			return nil, err
		}
	}
	if err := u.tx.SaveTrigger(t); err != nil {
		return nil, err
	}

	fired := t.Clone()
	return &core.FireBundle{
		JobDetail:         job,
		Trigger:           fired,
		Calendar:          cal,
		FireTime:          u.now,
		ScheduledFireTime: fired.PreviousFireTime,
		PrevFireTime:      prev,
		NextFireTime:      fired.NextFireTime,
	}, nil
}

// blockJob blocks every trigger of a non-concurrent job except the one being
// fired and records the job as running.
func (u *unit) blockJob(job core.JobKey, firing core.TriggerKey) error {
	siblings, err := u.tx.TriggersForJob(job)
	if err != nil {
		return err
	}
	for _, t := range siblings {
		if t.Key == firing {
			continue
		}
		if next := t.State.Block(); next != t.State {
			t.State = next
			if err := u.tx.SaveTrigger(t); err != nil {
				return err
			}
		}
	}
	sched, err := u.scheduler()
	if err != nil {
		return err
	}
	sched.BlockedJobs.Add(job.String())
	u.touchScheduler()
	return nil
}
