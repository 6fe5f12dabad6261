package schedule

import (
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

func (e *Evaluator) cronFireTimeAfter(t *core.Trigger, s *core.CronSchedule, after time.Time) *time.Time {
	spec, err := e.cronSpec(s.Expression)
	if err != nil {
		return nil
	}
	if t.StartTime.After(after) {
		after = t.StartTime.Add(-time.Nanosecond)
	}
	if t.EndTime != nil && !after.Before(*t.EndTime) {
		return nil
	}

	next := spec.Next(after.In(core.LoadLocation(s.TimeZone)))
	if next.IsZero() {
		return nil
	}
	if t.EndTime != nil && next.After(*t.EndTime) {
		return nil
	}
	next = next.UTC()
	return &next
}
