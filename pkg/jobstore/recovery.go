package jobstore

import (
	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

type recoveryStats struct {
	reset     int
	recovered int
	purged    int
}

func (r recoveryStats) any() bool {
	return r.reset > 0 || r.recovered > 0 || r.purged > 0
}

var inFlightStates = []core.TriggerState{core.StateAcquired, core.StateBlocked, core.StatePausedAndBlocked}

// recover repairs state left by a process that stopped without completing
// its fired triggers. No job can still be running, so every reservation and
// block is released.
func (s *JobStore) recover(u *unit) (recoveryStats, error) {
	var stats recoveryStats

	inFlight, err := u.tx.TriggersInStates(inFlightStates...)
	if err != nil {
		return stats, err
	}
	for _, t := range inFlight {
		t.State = t.State.Recover()
		t.FireInstanceID = ""
		if err := u.tx.SaveTrigger(t); err != nil {
			return stats, err
		}
		stats.reset++
	}
	u.sched.BlockedJobs = core.NewKeySet()
	u.touchScheduler()

	jobs, err := u.tx.JobsRequestingRecovery()
	if err != nil {
		return stats, err
	}
	for _, job := range jobs {
		triggers, err := u.tx.TriggersForJob(job.Key)
		if err != nil {
			return stats, err
		}
		for _, t := range triggers {
			cal, ok, err := u.calendar(t.CalendarName)
			if err != nil {
				return stats, err
			}
			if !ok {
				s.logger.Warn("recovering trigger without its calendar",
					"trigger", t.Key.String(),
					"calendar", t.CalendarName)
			}
			s.evaluator.ComputeFirstFireTime(t, cal)
			if err := u.storeTrigger(t, true); err != nil {
				return stats, err
			}
			stats.recovered++
		}
	}

	purged, err := u.tx.DeleteTriggersInState(core.StateComplete)
	if err != nil {
		return stats, err
	}
	stats.purged = int(purged)

	u.sched.State = core.SchedulerStarted
	u.sched.LastCheckinTime = u.now
	return stats, nil
}
