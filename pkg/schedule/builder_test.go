package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

func TestBuilder_Defaults(t *testing.T) {
	before := time.Now()
	trig, err := NewTrigger("t1", "").ForJob(core.NewJobKey("j1", "")).Build()
	require.NoError(t, err)

	assert.Equal(t, core.NewTriggerKey("t1", core.DefaultGroup), trig.Key)
	assert.Equal(t, core.DefaultPriority, trig.Priority)
	assert.Equal(t, core.KindSimple, trig.Schedule.Kind())
	require.NotNil(t, trig.NextFireTime)
	assert.False(t, trig.NextFireTime.Before(before.Add(-time.Second)))
}

func TestBuilder_AllFields(t *testing.T) {
	end := base.Add(24 * time.Hour)
	trig, err := NewTrigger("t1", "reports").
		ForJob(core.NewJobKey("j1", "reports")).
		Describe("every five minutes").
		WithPriority(9).
		ModifiedByCalendar("holidays").
		UsingJobData("region", "eu").
		StartAt(base).
		EndAt(end).
		WithMisfireInstruction(core.MisfireDoNothing).
		WithCron("0 */5 * * * *", "").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "every five minutes", trig.Description)
	assert.Equal(t, 9, trig.Priority)
	assert.Equal(t, "holidays", trig.CalendarName)
	assert.Equal(t, core.JobDataMap{"region": "eu"}, trig.JobData)
	assert.Equal(t, core.MisfireDoNothing, trig.MisfireInstruction)
	at(t, end, trig.EndTime)
	at(t, base, trig.NextFireTime)
}

func TestBuilder_Variants(t *testing.T) {
	trig, err := NewTrigger("a", "").StartAt(base).Every(time.Minute, core.RepeatIndefinitely).Build()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, trig.Schedule.(*core.SimpleSchedule).RepeatInterval)

	trig, err = NewTrigger("b", "").StartAt(base).WithCalendarInterval(1, core.UnitWeek).Build()
	require.NoError(t, err)
	assert.Equal(t, core.KindCalendarInterval, trig.Schedule.Kind())

	trig, err = NewTrigger("c", "").StartAt(base).
		DailyBetween(core.TimeOfDay{Hour: 13}, core.TimeOfDay{Hour: 14}, 30, core.UnitMinute).
		Build()
	require.NoError(t, err)
	at(t, base.Add(time.Hour), trig.NextFireTime)

	trig, err = NewTrigger("d", "").StartAt(base).Once().Build()
	require.NoError(t, err)
	at(t, base, trig.NextFireTime)
}

func TestBuilder_InvalidSchedule(t *testing.T) {
	_, err := NewTrigger("t1", "").WithCron("nope", "").Build()
	assert.ErrorIs(t, err, ErrInvalidSchedule)

	_, err = NewTrigger("t1", "").Every(0, 3).Build()
	assert.ErrorIs(t, err, ErrInvalidSchedule)
}

func TestBuilder_BuildReturnsCopy(t *testing.T) {
	b := NewTrigger("t1", "").StartAt(base).UsingJobData("k", "v")
	first, err := b.Build()
	require.NoError(t, err)

	b.UsingJobData("k", "changed")
	assert.Equal(t, "v", first.JobData["k"])
}
