package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

func cronTrigger(expr, tz string, start time.Time) *core.Trigger {
	return &core.Trigger{
		Key:       core.NewTriggerKey("cron", ""),
		StartTime: start,
		Schedule:  &core.CronSchedule{Expression: expr, TimeZone: tz},
	}
}

func TestCron_FirstAndNext(t *testing.T) {
	e := NewEvaluator()
	trig := cronTrigger("0 */15 * * * *", "", base.Add(7*time.Minute))

	at(t, base.Add(15*time.Minute), e.ComputeFirstFireTime(trig, nil))
	e.Triggered(trig, nil)
	at(t, base.Add(15*time.Minute), trig.PreviousFireTime)
	at(t, base.Add(30*time.Minute), trig.NextFireTime)
}

func TestCron_StartOnScheduleFiresAtStart(t *testing.T) {
	e := NewEvaluator()
	trig := cronTrigger("0 0 * * * *", "", base)
	at(t, base, e.ComputeFirstFireTime(trig, nil))
}

func TestCron_TimeZone(t *testing.T) {
	e := NewEvaluator()
	start := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	trig := cronTrigger("30 9 * * *", "America/New_York", start)

	// 09:30 EST is 14:30 UTC.
	at(t, time.Date(2026, 1, 5, 14, 30, 0, 0, time.UTC), e.ComputeFirstFireTime(trig, nil))
}

func TestCron_Descriptor(t *testing.T) {
	e := NewEvaluator()
	trig := cronTrigger("@hourly", "", base.Add(7*time.Minute))
	at(t, base.Add(time.Hour), e.ComputeFirstFireTime(trig, nil))
}

func TestCron_EndTime(t *testing.T) {
	e := NewEvaluator()
	trig := cronTrigger("0 */15 * * * *", "", base.Add(7*time.Minute))
	trig.EndTime = core.TimePtr(base.Add(20 * time.Minute))

	e.ComputeFirstFireTime(trig, nil)
	e.Triggered(trig, nil)
	assert.Nil(t, trig.NextFireTime)
}

func TestCron_InvalidExpression(t *testing.T) {
	e := NewEvaluator()
	trig := cronTrigger("every tuesday", "", base)
	assert.Nil(t, e.ComputeFirstFireTime(trig, nil))
}

func TestCron_Misfire(t *testing.T) {
	e := NewEvaluator()
	now := base.Add(time.Hour + 5*time.Minute)

	smart := cronTrigger("0 */15 * * * *", "", base)
	smart.NextFireTime = core.TimePtr(base)
	e.UpdateAfterMisfire(smart, nil, now)
	at(t, now, smart.NextFireTime)

	nothing := cronTrigger("0 */15 * * * *", "", base)
	nothing.MisfireInstruction = core.MisfireDoNothing
	nothing.NextFireTime = core.TimePtr(base)
	e.UpdateAfterMisfire(nothing, nil, now)
	at(t, base.Add(time.Hour+15*time.Minute), nothing.NextFireTime)
}
