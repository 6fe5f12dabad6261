package jobstore

import (
	"cmp"
	"context"
	"slices"
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/security"
)

// compareCandidates orders triggers by next fire time, then by descending
// priority. Key order breaks the remaining ties so batches are stable.
func compareCandidates(a, b *core.Trigger) int {
	switch {
	case a.NextFireTime == nil && b.NextFireTime == nil:
	case a.NextFireTime == nil:
		return 1
	case b.NextFireTime == nil:
		return -1
	default:
		if c := a.NextFireTime.Compare(*b.NextFireTime); c != 0 {
			return c
		}
	}
	if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
		return c
	}
	return cmp.Compare(a.Key.String(), b.Key.String())
}

func insertCandidate(candidates []*core.Trigger, t *core.Trigger) []*core.Trigger {
	i, _ := slices.BinarySearchFunc(candidates, t, compareCandidates)
	return slices.Insert(candidates, i, t)
}

// AcquireNextTriggers reserves up to maxCount waiting triggers due no later
// than noLaterThan plus timeWindow, earliest first. Each returned trigger is
// Acquired and carries a fresh fire instance id. Misfired candidates are
// corrected and persisted whether or not they are acquired.
func (s *JobStore) AcquireNextTriggers(ctx context.Context, noLaterThan time.Time, maxCount int, timeWindow time.Duration) ([]*core.Trigger, error) {
	if maxCount <= 0 {
		return nil, nil
	}
	maxCount = security.ClampAcquireBatch(maxCount)
	limit := noLaterThan.Add(timeWindow)

	var acquired []*core.Trigger
	err := s.write(ctx, func(u *unit) error {
		acquired = nil
		candidates, err := u.tx.DueTriggers(limit)
		if err != nil {
			return err
		}
		slices.SortStableFunc(candidates, compareCandidates)

		jobs := make(map[core.JobKey]*core.JobDetail)
		exclusive := make(map[core.JobKey]bool)
		corrected := make(map[core.TriggerKey]bool)

		for len(candidates) > 0 && len(acquired) < maxCount {
			t := candidates[0]
			candidates = candidates[1:]
			if t.NextFireTime == nil {
				continue
			}

			if !corrected[t.Key] {
				changed, err := u.applyMisfire(t)
				if err != nil {
					return err
				}
				if changed {
					corrected[t.Key] = true
					if err := u.tx.SaveTrigger(t); err != nil {
						return err
					}
					if t.State == core.StateWaiting && t.NextFireTime != nil {
						candidates = insertCandidate(candidates, t)
					}
					continue
				}
			}

			if t.NextFireTime.After(limit) {
				break
			}

			job, seen := jobs[t.JobKey]
			if !seen {
				if job, err = u.tx.GetJob(t.JobKey); err != nil {
					return err
				}
				jobs[t.JobKey] = job
			}
			if job == nil {
				s.logger.Warn("trigger references missing job",
					"trigger", t.Key.String(),
					"job", t.JobKey.String())
				continue
			}
			if job.ConcurrentExecutionDisallowed {
				if exclusive[job.Key] {
					continue
				}
				exclusive[job.Key] = true
			}

			t.State = core.StateAcquired
			t.FireInstanceID = s.fireIDs.NextFireID()
			if err := u.tx.SaveTrigger(t); err != nil {
				return err
			}
			acquired = append(acquired, t.Clone())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Acquired(len(acquired))
	return acquired, nil
}

// ReleaseAcquiredTrigger returns an Acquired trigger to Waiting. Triggers in
// any other state are left alone.
func (s *JobStore) ReleaseAcquiredTrigger(ctx context.Context, t *core.Trigger) error {
	var released bool
	err := s.write(ctx, func(u *unit) error {
		released = false
		stored, err := u.tx.GetTrigger(t.Key)
		if err != nil || stored == nil || stored.State != core.StateAcquired {
			return err
		}
		stored.State = core.StateWaiting
		stored.FireInstanceID = ""
		if err := u.tx.SaveTrigger(stored); err != nil {
			return err
		}
		released = true
		return nil
	})
	if err == nil && released {
		s.metrics.Released()
	}
	return err
}
