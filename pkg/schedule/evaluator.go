package schedule

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// maxFireYear is the last year a fire time may fall in; fire times are
// persisted as unix nanoseconds.
const maxFireYear = 2261

// maxCalendarSkips bounds the search for a fire time a calendar includes.
const maxCalendarSkips = 100000

// ErrInvalidSchedule is returned by Validate for schedules that can never fire.
var ErrInvalidSchedule = errors.New("jobstore: invalid schedule")

// Evaluator implements core.ScheduleEvaluator for all schedule variants.
type Evaluator struct {
	parser cron.Parser

	mu    sync.Mutex
	specs map[string]cron.Schedule
}

// NewEvaluator returns an Evaluator with the default cron parser.
func NewEvaluator() *Evaluator {
	return &Evaluator{
		parser: cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		specs:  make(map[string]cron.Schedule),
	}
}

var defaultEvaluator = NewEvaluator()

// Default returns the process-wide Evaluator.
func Default() *Evaluator {
	return defaultEvaluator
}

func (e *Evaluator) cronSpec(expr string) (cron.Schedule, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if s, ok := e.specs[expr]; ok {
		return s, nil
	}
	s, err := e.parser.Parse(expr)
	if err != nil {
		return nil, err
	}
	e.specs[expr] = s
	return s, nil
}

// Validate reports whether the trigger's schedule is well formed.
func (e *Evaluator) Validate(t *core.Trigger) error {
	switch s := t.Schedule.(type) {
	case nil:
		return core.ErrMissingSchedule
	case *core.SimpleSchedule:
		if s.RepeatCount < core.RepeatIndefinitely {
			return fmt.Errorf("%w: repeat count %d", ErrInvalidSchedule, s.RepeatCount)
		}
		if s.RepeatCount != 0 && s.RepeatInterval <= 0 {
			return fmt.Errorf("%w: repeating schedule needs a positive interval", ErrInvalidSchedule)
		}
	case *core.CronSchedule:
		if _, err := e.cronSpec(s.Expression); err != nil {
			return fmt.Errorf("%w: cron %q: %v", ErrInvalidSchedule, s.Expression, err)
		}
	case *core.CalendarIntervalSchedule:
		if s.Interval < 1 {
			return fmt.Errorf("%w: interval must be at least 1", ErrInvalidSchedule)
		}
		if _, ok := unitDuration(s.Unit); !ok && !calendarUnit(s.Unit) {
			return fmt.Errorf("%w: unit %q", ErrInvalidSchedule, s.Unit)
		}
	case *core.DailyTimeIntervalSchedule:
		if s.Interval < 1 {
			return fmt.Errorf("%w: interval must be at least 1", ErrInvalidSchedule)
		}
		if s.Unit != core.UnitSecond && s.Unit != core.UnitMinute && s.Unit != core.UnitHour {
			return fmt.Errorf("%w: daily intervals use second, minute or hour units", ErrInvalidSchedule)
		}
		if s.EndTimeOfDay.Seconds() < s.StartTimeOfDay.Seconds() {
			return fmt.Errorf("%w: end time of day before start time of day", ErrInvalidSchedule)
		}
	}
	if t.EndTime != nil && t.EndTime.Before(t.StartTime) {
		return fmt.Errorf("%w: end time before start time", ErrInvalidSchedule)
	}
	return nil
}

// FireTimeAfter returns the first fire time strictly after after, ignoring
// calendars, or nil when the schedule is exhausted.
func (e *Evaluator) FireTimeAfter(t *core.Trigger, after time.Time) *time.Time {
	var next *time.Time
	switch s := t.Schedule.(type) {
	case *core.SimpleSchedule:
		next = simpleFireTimeAfter(t, s, after)
	case *core.CronSchedule:
		next = e.cronFireTimeAfter(t, s, after)
	case *core.CalendarIntervalSchedule:
		next = calendarIntervalFireTimeAfter(t, s, after)
	case *core.DailyTimeIntervalSchedule:
		next = dailyFireTimeAfter(t, s, after)
	}
	if next != nil && next.Year() > maxFireYear {
		return nil
	}
	return next
}

// includedFrom walks forward from next until cal includes it, jumping over
// excluded ranges with the calendar's next included time.
func (e *Evaluator) includedFrom(t *core.Trigger, next *time.Time, cal core.Calendar) *time.Time {
	if cal == nil {
		return next
	}
	for i := 0; next != nil && !cal.IsTimeIncluded(*next); i++ {
		if i >= maxCalendarSkips {
			return nil
		}
		after := *next
		if inc := cal.NextIncludedTime(after); inc.After(after) {
			after = inc.Add(-time.Nanosecond)
		}
		next = e.FireTimeAfter(t, after)
	}
	return next
}

// ComputeFirstFireTime implements core.ScheduleEvaluator.
func (e *Evaluator) ComputeFirstFireTime(t *core.Trigger, cal core.Calendar) *time.Time {
	var first *time.Time
	switch t.Schedule.(type) {
	case *core.CronSchedule, *core.DailyTimeIntervalSchedule:
		first = e.FireTimeAfter(t, t.StartTime.Add(-time.Nanosecond))
	default:
		if !t.StartTime.IsZero() && (t.EndTime == nil || !t.StartTime.After(*t.EndTime)) {
			first = core.TimePtr(t.StartTime)
		}
	}
	t.NextFireTime = e.includedFrom(t, first, cal)
	return t.NextFireTime
}

// Triggered implements core.ScheduleEvaluator.
func (e *Evaluator) Triggered(t *core.Trigger, cal core.Calendar) {
	switch s := t.Schedule.(type) {
	case *core.SimpleSchedule:
		s.TimesTriggered++
	case *core.CalendarIntervalSchedule:
		s.TimesTriggered++
	case *core.DailyTimeIntervalSchedule:
		s.TimesTriggered++
	}
	t.PreviousFireTime = t.NextFireTime
	if t.NextFireTime == nil {
		return
	}
	t.NextFireTime = e.includedFrom(t, e.FireTimeAfter(t, *t.NextFireTime), cal)
}

// UpdateAfterMisfire implements core.ScheduleEvaluator.
func (e *Evaluator) UpdateAfterMisfire(t *core.Trigger, cal core.Calendar, now time.Time) {
	if t.MisfireInstruction == core.MisfireIgnorePolicy {
		return
	}
	if s, ok := t.Schedule.(*core.SimpleSchedule); ok {
		e.simpleMisfire(t, s, cal, now)
		return
	}

	switch t.MisfireInstruction {
	case core.MisfireDoNothing:
		t.NextFireTime = e.includedFrom(t, e.FireTimeAfter(t, now), cal)
	default:
		// Smart policy and fire-once-now both fire immediately.
		t.NextFireTime = core.TimePtr(now)
	}
}

// UpdateWithNewCalendar implements core.ScheduleEvaluator.
func (e *Evaluator) UpdateWithNewCalendar(t *core.Trigger, cal core.Calendar, misfireThreshold time.Duration, now time.Time) {
	after := now
	if t.PreviousFireTime != nil {
		after = *t.PreviousFireTime
	}
	next := e.FireTimeAfter(t, after)
	if next == nil || cal == nil {
		t.NextFireTime = next
		return
	}
	for i := 0; next != nil && !cal.IsTimeIncluded(*next); i++ {
		if i >= maxCalendarSkips {
			next = nil
			break
		}
		next = e.FireTimeAfter(t, *next)
		if next != nil && next.Before(now) && now.Sub(*next) >= misfireThreshold {
			next = e.FireTimeAfter(t, *next)
		}
	}
	t.NextFireTime = next
}

var _ core.ScheduleEvaluator = (*Evaluator)(nil)
