package core

import "time"

// DefaultPriority is the priority given to triggers that do not set one.
const DefaultPriority = 5

// MisfireInstruction selects how a misfired trigger is rescheduled. Values
// above zero are interpreted by the trigger's schedule type.
type MisfireInstruction int

const (
	MisfireIgnorePolicy MisfireInstruction = -1
	MisfireSmartPolicy  MisfireInstruction = 0
)

// Simple schedule instructions.
const (
	MisfireFireNow MisfireInstruction = iota + 1
	MisfireRescheduleNowWithExistingRepeatCount
	MisfireRescheduleNowWithRemainingRepeatCount
	MisfireRescheduleNextWithRemainingCount
	MisfireRescheduleNextWithExistingCount
)

// Cron, calendar-interval and daily-time-interval instructions.
const (
	MisfireFireOnceNow MisfireInstruction = iota + 1
	MisfireDoNothing
)

// Trigger binds a schedule to a job.
type Trigger struct {
	Key          TriggerKey
	JobKey       JobKey
	Description  string
	CalendarName string
	JobData      JobDataMap

	MisfireInstruction MisfireInstruction
	Priority           int

	StartTime        time.Time
	EndTime          *time.Time
	NextFireTime     *time.Time
	PreviousFireTime *time.Time

	// FireInstanceID is stamped when the trigger is acquired.
	FireInstanceID string
	// State is owned by the store; values set by callers are ignored on store.
	State TriggerState

	Schedule Schedule
}

// Clone returns a deep copy of the trigger.
func (t *Trigger) Clone() *Trigger {
	if t == nil {
		return nil
	}
	c := *t
	c.JobData = t.JobData.Clone()
	c.EndTime = cloneTime(t.EndTime)
	c.NextFireTime = cloneTime(t.NextFireTime)
	c.PreviousFireTime = cloneTime(t.PreviousFireTime)
	if t.Schedule != nil {
		c.Schedule = t.Schedule.cloneSchedule()
	}
	return &c
}

// MayFireAgain reports whether the trigger has a next fire time.
func (t *Trigger) MayFireAgain() bool {
	return t.NextFireTime != nil
}

// Misfired reports whether the trigger's next fire time is older than
// now minus threshold. Triggers with the ignore policy never misfire.
func (t *Trigger) Misfired(now time.Time, threshold time.Duration) bool {
	if t.NextFireTime == nil || t.MisfireInstruction == MisfireIgnorePolicy {
		return false
	}
	return t.NextFireTime.Before(now.Add(-threshold))
}

// TimePtr returns a pointer to t.
func TimePtr(t time.Time) *time.Time {
	return &t
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// SameTime reports whether a and b are both nil or both the same instant.
func SameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
