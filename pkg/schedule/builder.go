package schedule

import (
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// Builder assembles a trigger.
//
// Example:
//
//	trig, err := schedule.NewTrigger("nightly", "reports").
//	    ForJob(core.NewJobKey("build-report", "reports")).
//	    WithCron("0 0 2 * * *", "Europe/Berlin").
//	    Build()
type Builder struct {
	trig      *core.Trigger
	evaluator *Evaluator
}

// NewTrigger starts a trigger that starts now with the default priority.
func NewTrigger(name, group string) *Builder {
	return &Builder{
		trig: &core.Trigger{
			Key:       core.NewTriggerKey(name, group),
			Priority:  core.DefaultPriority,
			StartTime: time.Now().UTC(),
		},
		evaluator: Default(),
	}
}

// ForJob sets the job the trigger fires.
func (b *Builder) ForJob(key core.JobKey) *Builder {
	b.trig.JobKey = key
	return b
}

// Describe sets the description.
func (b *Builder) Describe(desc string) *Builder {
	b.trig.Description = desc
	return b
}

// WithPriority sets the tie-break priority; higher fires first.
func (b *Builder) WithPriority(p int) *Builder {
	b.trig.Priority = p
	return b
}

// ModifiedByCalendar sets the calendar that excludes fire times.
func (b *Builder) ModifiedByCalendar(name string) *Builder {
	b.trig.CalendarName = name
	return b
}

// UsingJobData adds an entry to the trigger's data map.
func (b *Builder) UsingJobData(key string, value any) *Builder {
	if b.trig.JobData == nil {
		b.trig.JobData = make(core.JobDataMap)
	}
	b.trig.JobData[key] = value
	return b
}

// StartAt sets the start time.
func (b *Builder) StartAt(t time.Time) *Builder {
	b.trig.StartTime = t
	return b
}

// EndAt sets the end time.
func (b *Builder) EndAt(t time.Time) *Builder {
	b.trig.EndTime = &t
	return b
}

// WithMisfireInstruction sets the misfire instruction.
func (b *Builder) WithMisfireInstruction(instr core.MisfireInstruction) *Builder {
	b.trig.MisfireInstruction = instr
	return b
}

// WithEvaluator uses e instead of the default evaluator in Build.
func (b *Builder) WithEvaluator(e *Evaluator) *Builder {
	b.evaluator = e
	return b
}

// Once fires the trigger a single time at its start time.
func (b *Builder) Once() *Builder {
	b.trig.Schedule = &core.SimpleSchedule{}
	return b
}

// Every fires the trigger every interval, repeatCount more times after the
// first firing. Use core.RepeatIndefinitely to repeat forever.
func (b *Builder) Every(interval time.Duration, repeatCount int) *Builder {
	b.trig.Schedule = &core.SimpleSchedule{RepeatInterval: interval, RepeatCount: repeatCount}
	return b
}

// WithCron fires the trigger on a cron expression in the named time zone.
func (b *Builder) WithCron(expr, timeZone string) *Builder {
	b.trig.Schedule = &core.CronSchedule{Expression: expr, TimeZone: timeZone}
	return b
}

// WithCalendarInterval fires the trigger every interval units.
func (b *Builder) WithCalendarInterval(interval int, unit core.IntervalUnit) *Builder {
	b.trig.Schedule = &core.CalendarIntervalSchedule{Interval: interval, Unit: unit}
	return b
}

// DailyBetween fires the trigger every interval units between from and to on
// the given weekdays, or every day when none are given.
func (b *Builder) DailyBetween(from, to core.TimeOfDay, interval int, unit core.IntervalUnit, days ...time.Weekday) *Builder {
	b.trig.Schedule = &core.DailyTimeIntervalSchedule{
		RepeatCount:    core.RepeatIndefinitely,
		Interval:       interval,
		Unit:           unit,
		StartTimeOfDay: from,
		EndTimeOfDay:   to,
		DaysOfWeek:     days,
	}
	return b
}

// WithSchedule sets any schedule variant.
func (b *Builder) WithSchedule(s core.Schedule) *Builder {
	b.trig.Schedule = s
	return b
}

// Build validates the trigger and computes its first fire time without a calendar.
func (b *Builder) Build() (*core.Trigger, error) {
	if b.trig.Schedule == nil {
		b.trig.Schedule = &core.SimpleSchedule{}
	}
	if err := b.evaluator.Validate(b.trig); err != nil {
		return nil, err
	}
	t := b.trig.Clone()
	b.evaluator.ComputeFirstFireTime(t, nil)
	return t, nil
}
