package jobstore

import (
	"context"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/metrics"
)

func (u *unit) notifyFinalized(t *core.Trigger) {
	sig, snapshot := u.s.signaler, t.Clone()
	u.onCommit(func(ctx context.Context) { sig.NotifySchedulerListenersFinalized(ctx, snapshot) })
}

// applyMisfire corrects t in place when it has misfired. It reports whether
// the correction changed the next fire time; the caller persists t.
func (u *unit) applyMisfire(t *core.Trigger) (bool, error) {
	s := u.s
	if !t.Misfired(u.now, s.MisfireThreshold()) {
		return false, nil
	}
	cal, _, err := u.calendar(t.CalendarName)
	if err != nil {
		return false, err
	}

	original := t.NextFireTime
	sig, snapshot := s.signaler, t.Clone()
	u.onCommit(func(ctx context.Context) { sig.NotifyTriggerListenersMisfired(ctx, snapshot) })
	s.evaluator.UpdateAfterMisfire(t, cal, u.now)

	outcome := metrics.MisfireRescheduled
	switch {
	case t.NextFireTime == nil:
		outcome = metrics.MisfireCompleted
		t.State = core.StateComplete
		u.notifyFinalized(t)
		s.logger.Info("misfired trigger completed", "trigger", t.Key.String(), "scheduled", *original)
	case core.SameTime(original, t.NextFireTime):
		outcome = metrics.MisfireUnchanged
	default:
		s.logger.Info("misfired trigger rescheduled",
			"trigger", t.Key.String(),
			"scheduled", *original,
			"next", *t.NextFireTime)
	}
	u.onCommit(func(context.Context) { s.metrics.Misfire(outcome) })
	return outcome != metrics.MisfireUnchanged, nil
}
