package schedule

import (
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

func dailyFireTimeAfter(t *core.Trigger, s *core.DailyTimeIntervalSchedule, after time.Time) *time.Time {
	if s.RepeatCount != core.RepeatIndefinitely && s.TimesTriggered > s.RepeatCount {
		return nil
	}
	unit, ok := unitDuration(s.Unit)
	if !ok || s.Interval < 1 || unit < time.Second {
		return nil
	}
	step := time.Duration(s.Interval) * unit

	if after.Before(t.StartTime) {
		after = t.StartTime.Add(-time.Nanosecond)
	}
	if t.EndTime != nil && !after.Before(*t.EndTime) {
		return nil
	}

	loc := core.LoadLocation(s.TimeZone)
	local := after.In(loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)

	// Every included weekday shows up within a week, and a fresh day always
	// yields its window start.
	for range 8 {
		if s.IncludesDay(day.Weekday()) {
			winStart := s.StartTimeOfDay.On(day)
			winEnd := s.EndTimeOfDay.On(day)

			next := winStart
			if !after.Before(winStart) {
				jumps := after.Sub(winStart)/step + 1
				next = winStart.Add(jumps * step)
			}
			if !next.After(winEnd) {
				if t.EndTime != nil && next.After(*t.EndTime) {
					return nil
				}
				next = next.UTC()
				return &next
			}
		}
		day = day.AddDate(0, 0, 1)
	}
	return nil
}
