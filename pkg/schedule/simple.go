package schedule

import (
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

func simpleFireTimeAfter(t *core.Trigger, s *core.SimpleSchedule, after time.Time) *time.Time {
	if s.RepeatCount != core.RepeatIndefinitely && s.TimesTriggered > s.RepeatCount {
		return nil
	}
	if s.RepeatCount == 0 && !after.Before(t.StartTime) {
		return nil
	}
	if after.Before(t.StartTime) {
		return core.TimePtr(t.StartTime)
	}
	if t.EndTime != nil && !after.Before(*t.EndTime) {
		return nil
	}
	if s.RepeatInterval <= 0 {
		return nil
	}

	executed := int(after.Sub(t.StartTime)/s.RepeatInterval) + 1
	if s.RepeatCount != core.RepeatIndefinitely && executed > s.RepeatCount {
		return nil
	}
	next := t.StartTime.Add(time.Duration(executed) * s.RepeatInterval)
	if t.EndTime != nil && !next.Before(*t.EndTime) {
		return nil
	}
	return &next
}

// timesFiredBetween counts whole intervals between start and end.
func timesFiredBetween(s *core.SimpleSchedule, start, end time.Time) int {
	if s.RepeatInterval <= 0 || end.Before(start) {
		return 0
	}
	return int(end.Sub(start) / s.RepeatInterval)
}

func (e *Evaluator) simpleMisfire(t *core.Trigger, s *core.SimpleSchedule, cal core.Calendar, now time.Time) {
	instr := t.MisfireInstruction
	switch {
	case instr == core.MisfireSmartPolicy && s.RepeatCount == 0:
		instr = core.MisfireFireNow
	case instr == core.MisfireSmartPolicy && s.RepeatCount == core.RepeatIndefinitely:
		instr = core.MisfireRescheduleNextWithRemainingCount
	case instr == core.MisfireSmartPolicy:
		instr = core.MisfireRescheduleNowWithExistingRepeatCount
	case instr == core.MisfireFireNow && s.RepeatCount != 0:
		instr = core.MisfireRescheduleNowWithRemainingRepeatCount
	}

	switch instr {
	case core.MisfireFireNow:
		t.NextFireTime = core.TimePtr(now)

	case core.MisfireRescheduleNextWithExistingCount:
		t.NextFireTime = e.includedFrom(t, e.FireTimeAfter(t, now), cal)

	case core.MisfireRescheduleNextWithRemainingCount:
		next := e.includedFrom(t, e.FireTimeAfter(t, now), cal)
		if next != nil && t.NextFireTime != nil {
			s.TimesTriggered += timesFiredBetween(s, *t.NextFireTime, *next)
		}
		t.NextFireTime = next

	case core.MisfireRescheduleNowWithExistingRepeatCount:
		if s.RepeatCount != 0 && s.RepeatCount != core.RepeatIndefinitely {
			s.RepeatCount -= s.TimesTriggered
			s.TimesTriggered = 0
		}
		rescheduleNow(t, now)

	case core.MisfireRescheduleNowWithRemainingRepeatCount:
		missed := 0
		if t.NextFireTime != nil {
			missed = timesFiredBetween(s, *t.NextFireTime, now)
		}
		if s.RepeatCount != 0 && s.RepeatCount != core.RepeatIndefinitely {
			s.RepeatCount = max(s.RepeatCount-(s.TimesTriggered+missed), 0)
			s.TimesTriggered = 0
		}
		rescheduleNow(t, now)
	}
}

// rescheduleNow restarts the schedule at now, unless now is past the end time.
func rescheduleNow(t *core.Trigger, now time.Time) {
	if t.EndTime != nil && t.EndTime.Before(now) {
		t.NextFireTime = nil
		return
	}
	t.StartTime = now
	t.NextFireTime = core.TimePtr(now)
}
