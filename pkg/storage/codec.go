package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

func toUnixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}

func toUnixNanoPtr(t *time.Time) *int64 {
	if t == nil {
		return nil
	}
	n := t.UnixNano()
	return &n
}

func fromUnixNanoPtr(n *int64) *time.Time {
	if n == nil {
		return nil
	}
	t := time.Unix(0, *n).UTC()
	return &t
}

func jobToRecord(scheduler string, j *core.JobDetail) *JobRecord {
	return &JobRecord{
		SchedulerName:                 scheduler,
		GroupName:                     j.Key.Group,
		Name:                          j.Key.Name,
		Description:                   j.Description,
		JobType:                       j.JobType,
		Durable:                       j.Durable,
		ConcurrentExecutionDisallowed: j.ConcurrentExecutionDisallowed,
		PersistJobDataAfterExecution:  j.PersistJobDataAfterExecution,
		RequestsRecovery:              j.RequestsRecovery,
		JobData:                       j.JobData,
	}
}

func recordToJob(r *JobRecord) *core.JobDetail {
	return &core.JobDetail{
		Key:                           core.JobKey{Name: r.Name, Group: r.GroupName},
		Description:                   r.Description,
		JobType:                       r.JobType,
		Durable:                       r.Durable,
		ConcurrentExecutionDisallowed: r.ConcurrentExecutionDisallowed,
		PersistJobDataAfterExecution:  r.PersistJobDataAfterExecution,
		RequestsRecovery:              r.RequestsRecovery,
		JobData:                       r.JobData,
	}
}

func triggerToRecord(scheduler string, t *core.Trigger) (*TriggerRecord, error) {
	if t.Schedule == nil {
		return nil, core.ErrMissingSchedule
	}
	data, err := json.Marshal(t.Schedule)
	if err != nil {
		return nil, fmt.Errorf("encode %s schedule: %w", t.Schedule.Kind(), err)
	}
	return &TriggerRecord{
		SchedulerName:      scheduler,
		GroupName:          t.Key.Group,
		Name:               t.Key.Name,
		JobGroup:           t.JobKey.Group,
		JobName:            t.JobKey.Name,
		State:              t.State,
		NextFireTime:       toUnixNanoPtr(t.NextFireTime),
		Priority:           t.Priority,
		Description:        t.Description,
		CalendarName:       t.CalendarName,
		JobData:            t.JobData,
		MisfireInstruction: int(t.MisfireInstruction),
		StartTime:          toUnixNano(t.StartTime),
		EndTime:            toUnixNanoPtr(t.EndTime),
		PreviousFireTime:   toUnixNanoPtr(t.PreviousFireTime),
		FireInstanceID:     t.FireInstanceID,
		ScheduleKind:       t.Schedule.Kind(),
		ScheduleData:       string(data),
	}, nil
}

func decodeSchedule(kind core.ScheduleKind, data string) (core.Schedule, error) {
	var s core.Schedule
	switch kind {
	case core.KindSimple:
		s = &core.SimpleSchedule{}
	case core.KindCron:
		s = &core.CronSchedule{}
	case core.KindCalendarInterval:
		s = &core.CalendarIntervalSchedule{}
	case core.KindDailyTimeInterval:
		s = &core.DailyTimeIntervalSchedule{}
	default:
		return nil, fmt.Errorf("unknown schedule kind %q", kind)
	}
	if err := json.Unmarshal([]byte(data), s); err != nil {
		return nil, fmt.Errorf("decode %s schedule: %w", kind, err)
	}
	return s, nil
}

func recordToTrigger(r *TriggerRecord) (*core.Trigger, error) {
	sched, err := decodeSchedule(r.ScheduleKind, r.ScheduleData)
	if err != nil {
		return nil, fmt.Errorf("trigger %s/%s: %w", r.Name, r.GroupName, err)
	}
	return &core.Trigger{
		Key:                core.TriggerKey{Name: r.Name, Group: r.GroupName},
		JobKey:             core.JobKey{Name: r.JobName, Group: r.JobGroup},
		Description:        r.Description,
		CalendarName:       r.CalendarName,
		JobData:            r.JobData,
		MisfireInstruction: core.MisfireInstruction(r.MisfireInstruction),
		Priority:           r.Priority,
		StartTime:          fromUnixNano(r.StartTime),
		EndTime:            fromUnixNanoPtr(r.EndTime),
		NextFireTime:       fromUnixNanoPtr(r.NextFireTime),
		PreviousFireTime:   fromUnixNanoPtr(r.PreviousFireTime),
		FireInstanceID:     r.FireInstanceID,
		State:              r.State,
		Schedule:           sched,
	}, nil
}

func recordsToTriggers(recs []TriggerRecord) ([]*core.Trigger, error) {
	out := make([]*core.Trigger, 0, len(recs))
	for i := range recs {
		t, err := recordToTrigger(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func schedulerToRecord(s *core.SchedulerInstance) *SchedulerRecord {
	return &SchedulerRecord{
		InstanceName:    s.InstanceName,
		State:           s.State,
		LastCheckinTime: toUnixNano(s.LastCheckinTime),
		CheckinInterval: int64(s.CheckinInterval),
		Calendars:       s.Calendars,
		PausedJobGroups: s.PausedJobGroups.Sorted(),
		BlockedJobs:     s.BlockedJobs.Sorted(),
	}
}

func recordToScheduler(r *SchedulerRecord) *core.SchedulerInstance {
	s := &core.SchedulerInstance{
		InstanceName:    r.InstanceName,
		State:           r.State,
		LastCheckinTime: fromUnixNano(r.LastCheckinTime),
		CheckinInterval: time.Duration(r.CheckinInterval),
		Calendars:       r.Calendars,
		PausedJobGroups: core.NewKeySet(r.PausedJobGroups...),
		BlockedJobs:     core.NewKeySet(r.BlockedJobs...),
	}
	if s.Calendars == nil {
		s.Calendars = make(map[string]core.EncodedCalendar)
	}
	return s
}
