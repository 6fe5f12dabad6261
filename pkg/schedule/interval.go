package schedule

import (
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// unitDuration returns the fixed length of sub-day units.
func unitDuration(u core.IntervalUnit) (time.Duration, bool) {
	switch u {
	case core.UnitMillisecond:
		return time.Millisecond, true
	case core.UnitSecond:
		return time.Second, true
	case core.UnitMinute:
		return time.Minute, true
	case core.UnitHour:
		return time.Hour, true
	default:
		return 0, false
	}
}

func calendarUnit(u core.IntervalUnit) bool {
	switch u {
	case core.UnitDay, core.UnitWeek, core.UnitMonth, core.UnitYear:
		return true
	default:
		return false
	}
}

// addMonths adds n months keeping the day of month, clamped to the last day
// of the target month.
func addMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(n), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(d, last)-1)
}

// calendarStep returns start advanced by n intervals of s.
func calendarStep(s *core.CalendarIntervalSchedule, start time.Time, n int) time.Time {
	k := n * s.Interval
	switch s.Unit {
	case core.UnitDay:
		if !s.PreserveHourOfDayAcrossDaylightSavings {
			return start.Add(time.Duration(k) * 24 * time.Hour)
		}
		return start.AddDate(0, 0, k)
	case core.UnitWeek:
		if !s.PreserveHourOfDayAcrossDaylightSavings {
			return start.Add(time.Duration(k) * 7 * 24 * time.Hour)
		}
		return start.AddDate(0, 0, 7*k)
	case core.UnitMonth:
		return addMonths(start, k)
	case core.UnitYear:
		return addMonths(start, 12*k)
	default:
		d, _ := unitDuration(s.Unit)
		return start.Add(time.Duration(k) * d)
	}
}

// approxStep is a lower bound of one interval, used to skip ahead.
func approxStep(s *core.CalendarIntervalSchedule) time.Duration {
	switch s.Unit {
	case core.UnitDay:
		return time.Duration(s.Interval) * 23 * time.Hour
	case core.UnitWeek:
		return time.Duration(s.Interval) * (7*24 - 1) * time.Hour
	case core.UnitMonth:
		return time.Duration(s.Interval) * 28 * 24 * time.Hour
	case core.UnitYear:
		return time.Duration(s.Interval) * 365 * 24 * time.Hour
	default:
		d, _ := unitDuration(s.Unit)
		return time.Duration(s.Interval) * d
	}
}

// wallClockStep reports whether the schedule steps by calendar fields, keeping
// the wall-clock hour of the start time.
func wallClockStep(s *core.CalendarIntervalSchedule) bool {
	switch s.Unit {
	case core.UnitMonth, core.UnitYear:
		return true
	case core.UnitDay, core.UnitWeek:
		return s.PreserveHourOfDayAcrossDaylightSavings
	default:
		return false
	}
}

func calendarIntervalFireTimeAfter(t *core.Trigger, s *core.CalendarIntervalSchedule, after time.Time) *time.Time {
	if s.Interval < 1 {
		return nil
	}
	if _, ok := unitDuration(s.Unit); !ok && !calendarUnit(s.Unit) {
		return nil
	}
	if t.EndTime != nil && !after.Before(*t.EndTime) {
		return nil
	}
	start := t.StartTime.In(core.LoadLocation(s.TimeZone))
	if after.Before(start) {
		return core.TimePtr(t.StartTime)
	}

	// A missing hour is resolved by time.Date shifting it, so a changed
	// hour means the day had no such wall-clock time.
	checkHour := s.SkipDayIfHourDoesNotExist && wallClockStep(s)
	n := max(int(after.Sub(start)/approxStep(s))-1, 0)
	var next time.Time
	for {
		next = calendarStep(s, start, n)
		if next.Year() > maxFireYear {
			return nil
		}
		if next.After(after) && (!checkHour || next.Hour() == start.Hour()) {
			break
		}
		n++
	}

	if t.EndTime != nil && !next.Before(*t.EndTime) {
		return nil
	}
	next = next.UTC()
	return &next
}
