package core

import (
	"slices"
	"time"
)

// ScheduleKind discriminates the Schedule variants.
type ScheduleKind string

const (
	KindSimple            ScheduleKind = "simple"
	KindCron              ScheduleKind = "cron"
	KindCalendarInterval  ScheduleKind = "calendar_interval"
	KindDailyTimeInterval ScheduleKind = "daily_time_interval"
)

// Schedule is the sealed union of schedule variants a trigger may carry:
// *SimpleSchedule, *CronSchedule, *CalendarIntervalSchedule and
// *DailyTimeIntervalSchedule.
type Schedule interface {
	Kind() ScheduleKind
	cloneSchedule() Schedule
}

// RepeatIndefinitely makes a simple or daily schedule repeat without limit.
const RepeatIndefinitely = -1

// SimpleSchedule fires at StartTime and then every RepeatInterval,
// RepeatCount more times.
type SimpleSchedule struct {
	RepeatCount    int           `json:"repeat_count"`
	RepeatInterval time.Duration `json:"repeat_interval"`
	TimesTriggered int           `json:"times_triggered"`
}

func (*SimpleSchedule) Kind() ScheduleKind { return KindSimple }

func (s *SimpleSchedule) cloneSchedule() Schedule {
	c := *s
	return &c
}

// CronSchedule fires on a cron expression evaluated in TimeZone.
type CronSchedule struct {
	Expression string `json:"expression"`
	TimeZone   string `json:"time_zone,omitempty"`
}

func (*CronSchedule) Kind() ScheduleKind { return KindCron }

func (s *CronSchedule) cloneSchedule() Schedule {
	c := *s
	return &c
}

// IntervalUnit is the unit of an interval-based schedule.
type IntervalUnit string

const (
	UnitMillisecond IntervalUnit = "millisecond"
	UnitSecond      IntervalUnit = "second"
	UnitMinute      IntervalUnit = "minute"
	UnitHour        IntervalUnit = "hour"
	UnitDay         IntervalUnit = "day"
	UnitWeek        IntervalUnit = "week"
	UnitMonth       IntervalUnit = "month"
	UnitYear        IntervalUnit = "year"
)

// CalendarIntervalSchedule fires every Interval Units, stepping by calendar
// fields so that months and years keep their day of month.
type CalendarIntervalSchedule struct {
	Interval       int          `json:"interval"`
	Unit           IntervalUnit `json:"unit"`
	TimesTriggered int          `json:"times_triggered"`
	TimeZone       string       `json:"time_zone,omitempty"`

	PreserveHourOfDayAcrossDaylightSavings bool `json:"preserve_hour_of_day_across_daylight_savings,omitempty"`
	SkipDayIfHourDoesNotExist              bool `json:"skip_day_if_hour_does_not_exist,omitempty"`
}

func (*CalendarIntervalSchedule) Kind() ScheduleKind { return KindCalendarInterval }

func (s *CalendarIntervalSchedule) cloneSchedule() Schedule {
	c := *s
	return &c
}

// TimeOfDay is a wall-clock time within a day.
type TimeOfDay struct {
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// On returns the instant this time of day falls on the day of d, in d's location.
func (t TimeOfDay) On(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), t.Hour, t.Minute, t.Second, 0, d.Location())
}

// Seconds returns the number of seconds since midnight.
func (t TimeOfDay) Seconds() int {
	return t.Hour*3600 + t.Minute*60 + t.Second
}

// DailyTimeIntervalSchedule fires every Interval Units between StartTimeOfDay
// and EndTimeOfDay on the listed days of the week.
type DailyTimeIntervalSchedule struct {
	RepeatCount    int            `json:"repeat_count"`
	Interval       int            `json:"interval"`
	Unit           IntervalUnit   `json:"unit"`
	StartTimeOfDay TimeOfDay      `json:"start_time_of_day"`
	EndTimeOfDay   TimeOfDay      `json:"end_time_of_day"`
	DaysOfWeek     []time.Weekday `json:"days_of_week,omitempty"`
	TimesTriggered int            `json:"times_triggered"`
	TimeZone       string         `json:"time_zone,omitempty"`
}

func (*DailyTimeIntervalSchedule) Kind() ScheduleKind { return KindDailyTimeInterval }

func (s *DailyTimeIntervalSchedule) cloneSchedule() Schedule {
	c := *s
	c.DaysOfWeek = slices.Clone(s.DaysOfWeek)
	return &c
}

// IncludesDay reports whether the schedule fires on weekday d. An empty
// DaysOfWeek means every day.
func (s *DailyTimeIntervalSchedule) IncludesDay(d time.Weekday) bool {
	return len(s.DaysOfWeek) == 0 || slices.Contains(s.DaysOfWeek, d)
}

// LoadLocation resolves a time zone name, falling back to UTC for empty or
// unknown names.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}
