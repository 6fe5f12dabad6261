package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

func TestSimple_FireTimeAfter(t *testing.T) {
	e := NewEvaluator()
	trig := simpleTrigger(3, time.Minute)

	at(t, base, e.FireTimeAfter(trig, base.Add(-time.Second)))
	at(t, base.Add(time.Minute), e.FireTimeAfter(trig, base))
	at(t, base.Add(time.Minute), e.FireTimeAfter(trig, base.Add(30*time.Second)))
	at(t, base.Add(3*time.Minute), e.FireTimeAfter(trig, base.Add(2*time.Minute)))
	assert.Nil(t, e.FireTimeAfter(trig, base.Add(3*time.Minute)), "repeat count exhausted")
}

func TestSimple_EndTime(t *testing.T) {
	e := NewEvaluator()
	trig := simpleTrigger(core.RepeatIndefinitely, time.Minute)
	trig.EndTime = core.TimePtr(base.Add(2 * time.Minute))

	at(t, base.Add(time.Minute), e.FireTimeAfter(trig, base))
	assert.Nil(t, e.FireTimeAfter(trig, base.Add(time.Minute)), "end time is exclusive")
}

func TestSimple_TriggeredUntilComplete(t *testing.T) {
	e := NewEvaluator()
	trig := simpleTrigger(2, time.Minute)
	e.ComputeFirstFireTime(trig, nil)

	var fired []time.Time
	for trig.NextFireTime != nil {
		fired = append(fired, *trig.NextFireTime)
		e.Triggered(trig, nil)
		if len(fired) > 10 {
			t.Fatal("schedule never completed")
		}
	}
	assert.Equal(t, []time.Time{base, base.Add(time.Minute), base.Add(2 * time.Minute)}, fired)
	assert.Equal(t, 3, trig.Schedule.(*core.SimpleSchedule).TimesTriggered)
}

func TestSimple_OneShot(t *testing.T) {
	e := NewEvaluator()
	trig := simpleTrigger(0, 0)
	at(t, base, e.ComputeFirstFireTime(trig, nil))

	e.Triggered(trig, nil)
	assert.Nil(t, trig.NextFireTime)
	at(t, base, trig.PreviousFireTime)
}

func TestSimple_Misfire(t *testing.T) {
	e := NewEvaluator()
	now := base.Add(10*time.Minute + 30*time.Second)

	t.Run("smart one shot fires now", func(t *testing.T) {
		trig := simpleTrigger(0, 0)
		trig.NextFireTime = core.TimePtr(base)
		e.UpdateAfterMisfire(trig, nil, now)
		at(t, now, trig.NextFireTime)
	})

	t.Run("smart indefinite reschedules next with remaining count", func(t *testing.T) {
		trig := simpleTrigger(core.RepeatIndefinitely, time.Minute)
		trig.NextFireTime = core.TimePtr(base)
		e.UpdateAfterMisfire(trig, nil, now)
		at(t, base.Add(11*time.Minute), trig.NextFireTime)
		assert.Equal(t, 11, trig.Schedule.(*core.SimpleSchedule).TimesTriggered)
	})

	t.Run("smart bounded reschedules now with existing count", func(t *testing.T) {
		trig := simpleTrigger(5, time.Minute)
		trig.Schedule.(*core.SimpleSchedule).TimesTriggered = 2
		trig.NextFireTime = core.TimePtr(base.Add(2 * time.Minute))
		e.UpdateAfterMisfire(trig, nil, now)

		s := trig.Schedule.(*core.SimpleSchedule)
		at(t, now, trig.NextFireTime)
		assert.True(t, now.Equal(trig.StartTime))
		assert.Equal(t, 3, s.RepeatCount)
		assert.Equal(t, 0, s.TimesTriggered)
	})

	t.Run("fire now on repeating becomes now with remaining count", func(t *testing.T) {
		trig := simpleTrigger(5, time.Minute)
		trig.MisfireInstruction = core.MisfireFireNow
		trig.Schedule.(*core.SimpleSchedule).TimesTriggered = 2
		trig.NextFireTime = core.TimePtr(base.Add(2 * time.Minute))
		e.UpdateAfterMisfire(trig, nil, now)

		s := trig.Schedule.(*core.SimpleSchedule)
		at(t, now, trig.NextFireTime)
		assert.Equal(t, 0, s.RepeatCount, "missed firings consume the remaining count")
	})

	t.Run("reschedule next with existing count", func(t *testing.T) {
		trig := simpleTrigger(core.RepeatIndefinitely, time.Minute)
		trig.MisfireInstruction = core.MisfireRescheduleNextWithExistingCount
		trig.NextFireTime = core.TimePtr(base)
		e.UpdateAfterMisfire(trig, nil, now)
		at(t, base.Add(11*time.Minute), trig.NextFireTime)
		assert.Equal(t, 0, trig.Schedule.(*core.SimpleSchedule).TimesTriggered)
	})

	t.Run("reschedule now past end time completes", func(t *testing.T) {
		trig := simpleTrigger(5, time.Minute)
		trig.MisfireInstruction = core.MisfireRescheduleNowWithExistingRepeatCount
		trig.EndTime = core.TimePtr(base.Add(5 * time.Minute))
		trig.NextFireTime = core.TimePtr(base)
		e.UpdateAfterMisfire(trig, nil, now)
		assert.Nil(t, trig.NextFireTime)
	})

	t.Run("ignore policy leaves trigger alone", func(t *testing.T) {
		trig := simpleTrigger(core.RepeatIndefinitely, time.Minute)
		trig.MisfireInstruction = core.MisfireIgnorePolicy
		trig.NextFireTime = core.TimePtr(base)
		e.UpdateAfterMisfire(trig, nil, now)
		at(t, base, trig.NextFireTime)
	})
}
