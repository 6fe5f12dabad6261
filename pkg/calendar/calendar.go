package calendar

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// Calendar kinds understood by the default Registry.
const (
	KindHoliday = "holiday"
	KindWeekly  = "weekly"
	KindDaily   = "daily"
	KindCron    = "cron"
)

const dateLayout = "2006-01-02"

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// ──────────────────────────────────────────────────────────────────────────────
// Holiday
// ──────────────────────────────────────────────────────────────────────────────

// Holiday excludes whole dates, evaluated in TimeZone.
type Holiday struct {
	Desc     string   `json:"description,omitempty"`
	TimeZone string   `json:"time_zone,omitempty"`
	Dates    []string `json:"dates"`
}

// NewHoliday returns a Holiday calendar excluding the dates of days.
func NewHoliday(timeZone string, days ...time.Time) *Holiday {
	h := &Holiday{TimeZone: timeZone}
	for _, d := range days {
		h.AddExcludedDate(d)
	}
	return h
}

// AddExcludedDate excludes the date of d (in the calendar's time zone).
func (h *Holiday) AddExcludedDate(d time.Time) {
	date := d.In(core.LoadLocation(h.TimeZone)).Format(dateLayout)
	if !slices.Contains(h.Dates, date) {
		h.Dates = append(h.Dates, date)
		slices.Sort(h.Dates)
	}
}

func (*Holiday) CalendarKind() string { return KindHoliday }

func (h *Holiday) Description() string { return h.Desc }

func (h *Holiday) IsTimeIncluded(t time.Time) bool {
	date := t.In(core.LoadLocation(h.TimeZone)).Format(dateLayout)
	_, found := slices.BinarySearch(h.Dates, date)
	return !found
}

func (h *Holiday) NextIncludedTime(t time.Time) time.Time {
	next := t.Add(time.Nanosecond).In(core.LoadLocation(h.TimeZone))
	for i := 0; i <= len(h.Dates); i++ {
		if h.IsTimeIncluded(next) {
			return next
		}
		next = startOfDay(next).AddDate(0, 0, 1)
	}
	return next
}

// ──────────────────────────────────────────────────────────────────────────────
// Weekly
// ──────────────────────────────────────────────────────────────────────────────

// Weekly excludes days of the week, evaluated in TimeZone.
type Weekly struct {
	Desc         string         `json:"description,omitempty"`
	TimeZone     string         `json:"time_zone,omitempty"`
	ExcludedDays []time.Weekday `json:"excluded_days"`
}

// NewWeekendCalendar excludes Saturdays and Sundays.
func NewWeekendCalendar(timeZone string) *Weekly {
	return &Weekly{TimeZone: timeZone, ExcludedDays: []time.Weekday{time.Saturday, time.Sunday}}
}

func (*Weekly) CalendarKind() string { return KindWeekly }

func (w *Weekly) Description() string { return w.Desc }

func (w *Weekly) IsTimeIncluded(t time.Time) bool {
	return !slices.Contains(w.ExcludedDays, t.In(core.LoadLocation(w.TimeZone)).Weekday())
}

// NextIncludedTime returns the zero time when every day is excluded.
func (w *Weekly) NextIncludedTime(t time.Time) time.Time {
	next := t.Add(time.Nanosecond).In(core.LoadLocation(w.TimeZone))
	for range 7 {
		if w.IsTimeIncluded(next) {
			return next
		}
		next = startOfDay(next).AddDate(0, 0, 1)
	}
	return time.Time{}
}

// ──────────────────────────────────────────────────────────────────────────────
// Daily
// ──────────────────────────────────────────────────────────────────────────────

// Daily excludes the range [RangeStart, RangeEnd) of every day, or everything
// outside it when Invert is set.
type Daily struct {
	Desc       string         `json:"description,omitempty"`
	TimeZone   string         `json:"time_zone,omitempty"`
	RangeStart core.TimeOfDay `json:"range_start"`
	RangeEnd   core.TimeOfDay `json:"range_end"`
	Invert     bool           `json:"invert,omitempty"`
}

func (*Daily) CalendarKind() string { return KindDaily }

func (d *Daily) Description() string { return d.Desc }

func (d *Daily) inRange(t time.Time) bool {
	return !t.Before(d.RangeStart.On(t)) && t.Before(d.RangeEnd.On(t))
}

func (d *Daily) IsTimeIncluded(t time.Time) bool {
	local := t.In(core.LoadLocation(d.TimeZone))
	return d.inRange(local) == d.Invert
}

func (d *Daily) NextIncludedTime(t time.Time) time.Time {
	next := t.Add(time.Nanosecond).In(core.LoadLocation(d.TimeZone))
	if d.IsTimeIncluded(next) {
		return next
	}
	if !d.Invert {
		return d.RangeEnd.On(next)
	}
	if next.Before(d.RangeStart.On(next)) {
		return d.RangeStart.On(next)
	}
	return d.RangeStart.On(startOfDay(next).AddDate(0, 0, 1))
}

// ──────────────────────────────────────────────────────────────────────────────
// Cron
// ──────────────────────────────────────────────────────────────────────────────

// maxCronScan bounds NextIncludedTime to a week of seconds.
const maxCronScan = 7 * 24 * 60 * 60

var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Cron excludes every second matched by Expression, evaluated in TimeZone.
type Cron struct {
	Desc       string `json:"description,omitempty"`
	Expression string `json:"expression"`
	TimeZone   string `json:"time_zone,omitempty"`

	once sync.Once
	spec cron.Schedule
	err  error
}

// NewCron returns a Cron calendar, validating the expression.
func NewCron(expr, timeZone string) (*Cron, error) {
	c := &Cron{Expression: expr, TimeZone: timeZone}
	if err := c.prepare(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cron) prepare() error {
	c.once.Do(func() {
		c.spec, c.err = cronParser.Parse(c.Expression)
		if c.err != nil {
			c.err = fmt.Errorf("calendar: cron %q: %w", c.Expression, c.err)
		}
	})
	return c.err
}

func (*Cron) CalendarKind() string { return KindCron }

func (c *Cron) Description() string { return c.Desc }

func (c *Cron) matches(t time.Time) bool {
	if c.prepare() != nil {
		return false
	}
	sec := t.Truncate(time.Second).In(core.LoadLocation(c.TimeZone))
	return c.spec.Next(sec.Add(-time.Nanosecond)).Equal(sec)
}

func (c *Cron) IsTimeIncluded(t time.Time) bool {
	return !c.matches(t)
}

func (c *Cron) NextIncludedTime(t time.Time) time.Time {
	next := t.Add(time.Nanosecond)
	for range maxCronScan {
		if !c.matches(next) {
			return next
		}
		next = next.Truncate(time.Second).Add(time.Second)
	}
	return time.Time{}
}

// MarshalJSON omits the parsed state.
func (c *Cron) MarshalJSON() ([]byte, error) {
	type plain struct {
		Desc       string `json:"description,omitempty"`
		Expression string `json:"expression"`
		TimeZone   string `json:"time_zone,omitempty"`
	}
	return json.Marshal(plain{Desc: c.Desc, Expression: c.Expression, TimeZone: c.TimeZone})
}

var (
	_ core.Calendar = (*Holiday)(nil)
	_ core.Calendar = (*Weekly)(nil)
	_ core.Calendar = (*Daily)(nil)
	_ core.Calendar = (*Cron)(nil)
)
