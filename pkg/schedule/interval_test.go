package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

func intervalTrigger(start time.Time, s *core.CalendarIntervalSchedule) *core.Trigger {
	return &core.Trigger{
		Key:       core.NewTriggerKey("interval", ""),
		StartTime: start,
		Schedule:  s,
	}
}

func TestCalendarInterval_Hours(t *testing.T) {
	e := NewEvaluator()
	trig := intervalTrigger(base, &core.CalendarIntervalSchedule{Interval: 2, Unit: core.UnitHour})

	at(t, base, e.ComputeFirstFireTime(trig, nil))
	at(t, base.Add(2*time.Hour), e.FireTimeAfter(trig, base))
	at(t, base.Add(2*time.Hour), e.FireTimeAfter(trig, base.Add(119*time.Minute)))
	at(t, base.Add(4*time.Hour), e.FireTimeAfter(trig, base.Add(2*time.Hour)))
}

func TestCalendarInterval_MonthsClampToMonthEnd(t *testing.T) {
	e := NewEvaluator()
	start := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)
	trig := intervalTrigger(start, &core.CalendarIntervalSchedule{Interval: 1, Unit: core.UnitMonth})

	feb := time.Date(2026, 2, 28, 10, 0, 0, 0, time.UTC)
	at(t, feb, e.FireTimeAfter(trig, start))
	at(t, time.Date(2026, 3, 31, 10, 0, 0, 0, time.UTC), e.FireTimeAfter(trig, feb))
}

func TestCalendarInterval_Years(t *testing.T) {
	e := NewEvaluator()
	start := time.Date(2024, 2, 29, 8, 0, 0, 0, time.UTC)
	trig := intervalTrigger(start, &core.CalendarIntervalSchedule{Interval: 1, Unit: core.UnitYear})

	at(t, time.Date(2025, 2, 28, 8, 0, 0, 0, time.UTC), e.FireTimeAfter(trig, start))
}

func TestCalendarInterval_DaylightSavings(t *testing.T) {
	e := NewEvaluator()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Daylight saving time starts on 2026-03-08 in New York.
	start := time.Date(2026, 3, 7, 9, 0, 0, 0, ny)

	preserve := intervalTrigger(start, &core.CalendarIntervalSchedule{
		Interval: 1, Unit: core.UnitDay, TimeZone: "America/New_York",
		PreserveHourOfDayAcrossDaylightSavings: true,
	})
	at(t, time.Date(2026, 3, 8, 9, 0, 0, 0, ny), e.FireTimeAfter(preserve, start))

	fixed := intervalTrigger(start, &core.CalendarIntervalSchedule{
		Interval: 1, Unit: core.UnitDay, TimeZone: "America/New_York",
	})
	at(t, time.Date(2026, 3, 8, 10, 0, 0, 0, ny), e.FireTimeAfter(fixed, start))
}

func TestCalendarInterval_SkipDayIfHourDoesNotExist(t *testing.T) {
	e := NewEvaluator()
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	start := time.Date(2026, 3, 7, 2, 30, 0, 0, ny)

	trig := intervalTrigger(start, &core.CalendarIntervalSchedule{
		Interval: 1, Unit: core.UnitDay, TimeZone: "America/New_York",
		PreserveHourOfDayAcrossDaylightSavings: true,
		SkipDayIfHourDoesNotExist:              true,
	})
	at(t, time.Date(2026, 3, 9, 2, 30, 0, 0, ny), e.FireTimeAfter(trig, start))
}

func TestCalendarInterval_TriggeredCountsAndMisfire(t *testing.T) {
	e := NewEvaluator()
	trig := intervalTrigger(base, &core.CalendarIntervalSchedule{Interval: 1, Unit: core.UnitDay})
	e.ComputeFirstFireTime(trig, nil)
	e.Triggered(trig, nil)

	assert.Equal(t, 1, trig.Schedule.(*core.CalendarIntervalSchedule).TimesTriggered)
	at(t, base.Add(24*time.Hour), trig.NextFireTime)

	now := base.Add(50 * time.Hour)
	trig.MisfireInstruction = core.MisfireDoNothing
	e.UpdateAfterMisfire(trig, nil, now)
	at(t, base.Add(72*time.Hour), trig.NextFireTime)

	trig.MisfireInstruction = core.MisfireFireOnceNow
	e.UpdateAfterMisfire(trig, nil, now)
	at(t, now, trig.NextFireTime)
}
