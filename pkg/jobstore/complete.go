package jobstore

import (
	"context"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// TriggeredJobComplete records the end of a job run started by TriggersFired
// and applies instr. The job or trigger may have been deleted while the job
// ran; the blocked-jobs bookkeeping is still cleaned up using the supplied keys.
// A nil job skips the job bookkeeping and a nil trigger skips instr.
func (s *JobStore) TriggeredJobComplete(ctx context.Context, t *core.Trigger, job *core.JobDetail, instr core.CompletionInstruction) error {
	err := s.write(ctx, func(u *unit) error {
		if err := u.completeJob(job); err != nil {
			return err
		}
		return u.applyInstruction(t, instr)
	})
	if err == nil {
		s.metrics.Completed(instr.String())
	}
	return err
}

func (u *unit) completeJob(job *core.JobDetail) error {
	if job == nil {
		return nil
	}
	sched, err := u.scheduler()
	if err != nil {
		return err
	}
	stored, err := u.tx.GetJob(job.Key)
	if err != nil {
		return err
	}
	if stored == nil {
		if sched.BlockedJobs.Has(job.Key.String()) {
			sched.BlockedJobs.Remove(job.Key.String())
			u.touchScheduler()
		}
		return nil
	}

	if job.PersistJobDataAfterExecution {
		stored.JobData = job.JobData.Clone()
		if err := u.tx.SaveJob(stored); err != nil {
			return err
		}
	}
	if !stored.ConcurrentExecutionDisallowed {
		return nil
	}

	sched.BlockedJobs.Remove(stored.Key.String())
	u.touchScheduler()
	triggers, err := u.tx.TriggersForJob(stored.Key)
	if err != nil {
		return err
	}
	for _, tr := range triggers {
		if next := tr.State.Unblock(); next != tr.State {
			tr.State = next
			if err := u.tx.SaveTrigger(tr); err != nil {
				return err
			}
		}
	}
	u.signalSchedulingChange(nil)
	return nil
}

func (u *unit) applyInstruction(t *core.Trigger, instr core.CompletionInstruction) error {
	if t == nil {
		return nil
	}
	switch instr {
	case core.InstructionDeleteTrigger:
		return u.deleteCompletedTrigger(t)
	case core.InstructionSetTriggerComplete:
		return u.setTriggerState(t.Key, core.StateComplete)
	case core.InstructionSetTriggerError:
		return u.setTriggerState(t.Key, core.StateError)
	case core.InstructionSetAllJobTriggersComplete:
		return u.setJobTriggersState(t.JobKey, core.StateComplete)
	case core.InstructionSetAllJobTriggersError:
		return u.setJobTriggersState(t.JobKey, core.StateError)
	}
	return nil
}

// deleteCompletedTrigger removes the trigger unless it was rescheduled while
// its job ran.
func (u *unit) deleteCompletedTrigger(t *core.Trigger) error {
	if !t.MayFireAgain() {
		stored, err := u.tx.GetTrigger(t.Key)
		if err != nil || stored == nil || stored.MayFireAgain() {
			return err
		}
		_, err = u.removeTrigger(t.Key)
		return err
	}
	removed, err := u.removeTrigger(t.Key)
	if err == nil && removed {
		u.signalSchedulingChange(nil)
	}
	return err
}

func (u *unit) setTriggerState(key core.TriggerKey, state core.TriggerState) error {
	stored, err := u.tx.GetTrigger(key)
	if err != nil || stored == nil {
		return err
	}
	stored.State = state
	if err := u.tx.SaveTrigger(stored); err != nil {
		return err
	}
	u.signalSchedulingChange(nil)
	return nil
}

func (u *unit) setJobTriggersState(key core.JobKey, state core.TriggerState) error {
	triggers, err := u.tx.TriggersForJob(key)
	if err != nil {
		return err
	}
	for _, tr := range triggers {
		tr.State = state
		if err := u.tx.SaveTrigger(tr); err != nil {
			return err
		}
	}
	u.signalSchedulingChange(nil)
	return nil
}
