package storage

import (
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// JobRecord is the persisted form of a core.JobDetail.
type JobRecord struct {
	SchedulerName string `gorm:"primaryKey;size:255"`
	GroupName     string `gorm:"primaryKey;size:255"`
	Name          string `gorm:"primaryKey;size:255"`

	Description                   string `gorm:"type:text"`
	JobType                       string `gorm:"size:255"`
	Durable                       bool
	ConcurrentExecutionDisallowed bool
	PersistJobDataAfterExecution  bool
	RequestsRecovery              bool            `gorm:"index"`
	JobData                       core.JobDataMap `gorm:"type:text;serializer:jobdata"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the table name.
func (JobRecord) TableName() string { return "jobstore_jobs" }

// TriggerRecord is the persisted form of a core.Trigger. Fire times are unix
// nanoseconds; NextFireTime doubles as the acquisition sort key.
type TriggerRecord struct {
	SchedulerName string `gorm:"primaryKey;size:255;index:idx_jobstore_trigger_group_state,priority:1;index:idx_jobstore_trigger_due,priority:1;index:idx_jobstore_trigger_job,priority:1"`
	GroupName     string `gorm:"primaryKey;size:255;index:idx_jobstore_trigger_group_state,priority:2"`
	Name          string `gorm:"primaryKey;size:255"`

	JobGroup string `gorm:"size:255;not null;index:idx_jobstore_trigger_job,priority:2"`
	JobName  string `gorm:"size:255;not null;index:idx_jobstore_trigger_job,priority:3"`

	State        core.TriggerState `gorm:"size:20;not null;index:idx_jobstore_trigger_group_state,priority:3;index:idx_jobstore_trigger_due,priority:2"`
	NextFireTime *int64            `gorm:"index:idx_jobstore_trigger_due,priority:3"`
	Priority     int

	Description        string          `gorm:"type:text"`
	CalendarName       string          `gorm:"size:255;index"`
	JobData            core.JobDataMap `gorm:"type:text;serializer:jobdata"`
	MisfireInstruction int
	StartTime          int64
	EndTime            *int64
	PreviousFireTime   *int64
	FireInstanceID     string `gorm:"size:64"`

	// ScheduleKind discriminates the variant encoded in ScheduleData.
	ScheduleKind core.ScheduleKind `gorm:"size:32;not null"`
	ScheduleData string            `gorm:"type:text;not null"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the table name.
func (TriggerRecord) TableName() string { return "jobstore_triggers" }

// SchedulerRecord is the persisted form of a core.SchedulerInstance.
// Calendars live inside this row.
type SchedulerRecord struct {
	InstanceName    string              `gorm:"primaryKey;size:255"`
	State           core.SchedulerState `gorm:"size:20"`
	LastCheckinTime int64
	CheckinInterval int64

	Calendars       map[string]core.EncodedCalendar `gorm:"type:text;serializer:json"`
	PausedJobGroups []string                        `gorm:"type:text;serializer:json"`
	BlockedJobs     []string                        `gorm:"type:text;serializer:json"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// TableName overrides the table name.
func (SchedulerRecord) TableName() string { return "jobstore_schedulers" }
