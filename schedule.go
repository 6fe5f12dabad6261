package jobstore

import (
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/calendar"
	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/jobstore"
	"github.com/jdziat/simple-durable-jobstore/pkg/schedule"
)

type (
	// TriggerBuilder assembles a trigger.
	TriggerBuilder = schedule.Builder

	// Evaluator computes fire times for every schedule variant.
	Evaluator = schedule.Evaluator

	// SimpleSchedule fires at a fixed interval a number of times.
	SimpleSchedule = core.SimpleSchedule

	// CronSchedule fires on a cron expression.
	CronSchedule = core.CronSchedule

	// CalendarIntervalSchedule fires every N calendar units.
	CalendarIntervalSchedule = core.CalendarIntervalSchedule

	// DailyTimeIntervalSchedule fires at an interval inside a daily window.
	DailyTimeIntervalSchedule = core.DailyTimeIntervalSchedule

	// TimeOfDay is a wall-clock time without a date.
	TimeOfDay = core.TimeOfDay

	// HolidayCalendar excludes whole dates.
	HolidayCalendar = calendar.Holiday

	// WeeklyCalendar excludes days of the week.
	WeeklyCalendar = calendar.Weekly

	// DailyCalendar excludes a time range of every day.
	DailyCalendar = calendar.Daily

	// CronCalendar excludes the instants a cron expression matches.
	CronCalendar = calendar.Cron
)

// RepeatIndefinitely makes a simple schedule repeat forever.
const RepeatIndefinitely = core.RepeatIndefinitely

// NewTrigger starts building a trigger that starts now.
func NewTrigger(name, group string) *TriggerBuilder {
	return schedule.NewTrigger(name, group)
}

// NewEvaluator returns an Evaluator with its own cron parser cache.
func NewEvaluator() *Evaluator {
	return schedule.NewEvaluator()
}

// WithEvaluator replaces the schedule evaluator.
func WithEvaluator(e core.ScheduleEvaluator) Option {
	return jobstore.WithEvaluator(e)
}

// NewHolidayCalendar excludes the given dates in timeZone.
func NewHolidayCalendar(timeZone string, days ...time.Time) *HolidayCalendar {
	return calendar.NewHoliday(timeZone, days...)
}

// NewWeekendCalendar excludes Saturdays and Sundays in timeZone.
func NewWeekendCalendar(timeZone string) *WeeklyCalendar {
	return calendar.NewWeekendCalendar(timeZone)
}

// NewCronCalendar excludes the instants expr matches in timeZone.
func NewCronCalendar(expr, timeZone string) (*CronCalendar, error) {
	return calendar.NewCron(expr, timeZone)
}
