package core

import (
	"maps"
	"time"
)

// JobDataMap carries opaque, string-keyed job or trigger data. Values must be
// JSON-encodable to survive persistence. Strings, bools, numbers, times and
// durations keep their Go type; other values come back as generic JSON.
type JobDataMap map[string]any

// Clone returns a shallow copy of the map, or nil for a nil map.
func (m JobDataMap) Clone() JobDataMap {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// JobDetail describes a stored job.
type JobDetail struct {
	Key         JobKey
	Description string
	// JobType identifies the code the engine runs for this job.
	JobType string

	// Durable jobs remain stored when they have no triggers.
	Durable                       bool
	ConcurrentExecutionDisallowed bool
	PersistJobDataAfterExecution  bool
	RequestsRecovery              bool

	JobData JobDataMap
}

// Clone returns a copy of the job detail with its own data map.
func (j *JobDetail) Clone() *JobDetail {
	if j == nil {
		return nil
	}
	c := *j
	c.JobData = j.JobData.Clone()
	return &c
}

// CompletionInstruction tells TriggeredJobComplete what to do with the trigger
// (or all of the job's triggers) once the job has run.
type CompletionInstruction int

const (
	InstructionNoop CompletionInstruction = iota
	InstructionReExecuteJob
	InstructionSetTriggerComplete
	InstructionDeleteTrigger
	InstructionSetAllJobTriggersComplete
	InstructionSetTriggerError
	InstructionSetAllJobTriggersError
)

func (i CompletionInstruction) String() string {
	switch i {
	case InstructionNoop:
		return "noop"
	case InstructionReExecuteJob:
		return "re_execute_job"
	case InstructionSetTriggerComplete:
		return "set_trigger_complete"
	case InstructionDeleteTrigger:
		return "delete_trigger"
	case InstructionSetAllJobTriggersComplete:
		return "set_all_job_triggers_complete"
	case InstructionSetTriggerError:
		return "set_trigger_error"
	case InstructionSetAllJobTriggersError:
		return "set_all_job_triggers_error"
	default:
		return "unknown"
	}
}

// FireBundle is returned by TriggersFired for every trigger that actually fired.
type FireBundle struct {
	JobDetail *JobDetail
	Trigger   *Trigger
	Calendar  Calendar
	// Recovering is set when the firing replays work interrupted by a crash.
	Recovering        bool
	FireTime          time.Time
	ScheduledFireTime *time.Time
	PrevFireTime      *time.Time
	NextFireTime      *time.Time
}
