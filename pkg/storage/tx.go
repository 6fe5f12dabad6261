package storage

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// gormTx implements core.Tx for one scheduler instance.
type gormTx struct {
	db        *gorm.DB
	scheduler string
}

func (t *gormTx) jobs() *gorm.DB {
	return t.db.Model(&JobRecord{}).Where("scheduler_name = ?", t.scheduler)
}

func (t *gormTx) triggers() *gorm.DB {
	return t.db.Model(&TriggerRecord{}).Where("scheduler_name = ?", t.scheduler)
}

func upsert(db *gorm.DB, value any) error {
	return db.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

// ──────────────────────────────────────────────────────────────────────────────
// Jobs
// ──────────────────────────────────────────────────────────────────────────────

func (t *gormTx) GetJob(key core.JobKey) (*core.JobDetail, error) {
	var rec JobRecord
	err := t.jobs().
		Where("group_name = ? AND name = ?", key.Group, key.Name).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return recordToJob(&rec), nil
}

func (t *gormTx) JobExists(key core.JobKey) (bool, error) {
	var count int64
	err := t.jobs().
		Where("group_name = ? AND name = ?", key.Group, key.Name).
		Count(&count).Error
	return count > 0, err
}

func (t *gormTx) SaveJob(job *core.JobDetail) error {
	return upsert(t.db, jobToRecord(t.scheduler, job))
}

func (t *gormTx) DeleteJob(key core.JobKey) (bool, error) {
	result := t.db.
		Where("scheduler_name = ? AND group_name = ? AND name = ?", t.scheduler, key.Group, key.Name).
		Delete(&JobRecord{})
	return result.RowsAffected > 0, result.Error
}

type keyRow struct {
	Name      string
	GroupName string
}

// matchKeys narrows exact matchers in SQL and filters the rest in memory,
// which keeps matching case sensitive on every dialect.
func matchKeys(q *gorm.DB, m core.GroupMatcher) ([]keyRow, error) {
	if m.IsExact() {
		q = q.Where("group_name = ?", m.Value)
	}
	var rows []keyRow
	if err := q.Select("name", "group_name").Order("group_name, name").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := rows[:0]
	for _, r := range rows {
		if m.Matches(r.GroupName) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (t *gormTx) JobKeys(m core.GroupMatcher) ([]core.JobKey, error) {
	rows, err := matchKeys(t.jobs(), m)
	if err != nil {
		return nil, err
	}
	keys := make([]core.JobKey, len(rows))
	for i, r := range rows {
		keys[i] = core.JobKey{Name: r.Name, Group: r.GroupName}
	}
	return keys, nil
}

func (t *gormTx) JobGroupNames() ([]string, error) {
	var groups []string
	err := t.jobs().Distinct("group_name").Order("group_name").Pluck("group_name", &groups).Error
	return groups, err
}

func (t *gormTx) JobsRequestingRecovery() ([]*core.JobDetail, error) {
	var recs []JobRecord
	if err := t.jobs().Where("requests_recovery = ?", true).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]*core.JobDetail, len(recs))
	for i := range recs {
		out[i] = recordToJob(&recs[i])
	}
	return out, nil
}

func (t *gormTx) CountJobs() (int64, error) {
	var count int64
	err := t.jobs().Count(&count).Error
	return count, err
}

// ──────────────────────────────────────────────────────────────────────────────
// Triggers
// ──────────────────────────────────────────────────────────────────────────────

func (t *gormTx) GetTrigger(key core.TriggerKey) (*core.Trigger, error) {
	var rec TriggerRecord
	err := t.triggers().
		Where("group_name = ? AND name = ?", key.Group, key.Name).
		Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return recordToTrigger(&rec)
}

func (t *gormTx) TriggerExists(key core.TriggerKey) (bool, error) {
	var count int64
	err := t.triggers().
		Where("group_name = ? AND name = ?", key.Group, key.Name).
		Count(&count).Error
	return count > 0, err
}

func (t *gormTx) SaveTrigger(trig *core.Trigger) error {
	rec, err := triggerToRecord(t.scheduler, trig)
	if err != nil {
		return err
	}
	return upsert(t.db, rec)
}

func (t *gormTx) DeleteTrigger(key core.TriggerKey) (bool, error) {
	result := t.db.
		Where("scheduler_name = ? AND group_name = ? AND name = ?", t.scheduler, key.Group, key.Name).
		Delete(&TriggerRecord{})
	return result.RowsAffected > 0, result.Error
}

func (t *gormTx) TriggerKeys(m core.GroupMatcher) ([]core.TriggerKey, error) {
	rows, err := matchKeys(t.triggers(), m)
	if err != nil {
		return nil, err
	}
	keys := make([]core.TriggerKey, len(rows))
	for i, r := range rows {
		keys[i] = core.TriggerKey{Name: r.Name, Group: r.GroupName}
	}
	return keys, nil
}

func (t *gormTx) TriggerGroupNames() ([]string, error) {
	var groups []string
	err := t.triggers().Distinct("group_name").Order("group_name").Pluck("group_name", &groups).Error
	return groups, err
}

func (t *gormTx) findTriggers(q *gorm.DB) ([]*core.Trigger, error) {
	var recs []TriggerRecord
	if err := q.Find(&recs).Error; err != nil {
		return nil, err
	}
	return recordsToTriggers(recs)
}

func (t *gormTx) TriggersForJob(key core.JobKey) ([]*core.Trigger, error) {
	return t.findTriggers(t.triggers().
		Where("job_group = ? AND job_name = ?", key.Group, key.Name).
		Order("group_name, name"))
}

func (t *gormTx) TriggersForCalendar(name string) ([]*core.Trigger, error) {
	return t.findTriggers(t.triggers().Where("calendar_name = ?", name))
}

func (t *gormTx) TriggersInStates(states ...core.TriggerState) ([]*core.Trigger, error) {
	return t.findTriggers(t.triggers().Where("state IN ?", states))
}

func (t *gormTx) DueTriggers(noLaterThan time.Time) ([]*core.Trigger, error) {
	return t.findTriggers(t.triggers().
		Where("state = ?", core.StateWaiting).
		Where("next_fire_time IS NOT NULL AND next_fire_time <= ?", noLaterThan.UnixNano()).
		Order("next_fire_time ASC, priority DESC"))
}

func (t *gormTx) TriggerGroupHasState(group string, states ...core.TriggerState) (bool, error) {
	var count int64
	err := t.triggers().
		Where("group_name = ? AND state IN ?", group, states).
		Count(&count).Error
	return count > 0, err
}

func (t *gormTx) TriggerGroupsInStates(states ...core.TriggerState) ([]string, error) {
	var groups []string
	err := t.triggers().
		Where("state IN ?", states).
		Distinct("group_name").
		Order("group_name").
		Pluck("group_name", &groups).Error
	return groups, err
}

func (t *gormTx) CountTriggersForJob(key core.JobKey) (int64, error) {
	var count int64
	err := t.triggers().
		Where("job_group = ? AND job_name = ?", key.Group, key.Name).
		Count(&count).Error
	return count, err
}

func (t *gormTx) DeleteTriggersInState(state core.TriggerState) (int64, error) {
	result := t.db.
		Where("scheduler_name = ? AND state = ?", t.scheduler, state).
		Delete(&TriggerRecord{})
	return result.RowsAffected, result.Error
}

func (t *gormTx) CountTriggers() (int64, error) {
	var count int64
	err := t.triggers().Count(&count).Error
	return count, err
}

// ──────────────────────────────────────────────────────────────────────────────
// Scheduler
// ──────────────────────────────────────────────────────────────────────────────

func (t *gormTx) GetScheduler() (*core.SchedulerInstance, error) {
	var rec SchedulerRecord
	err := t.db.Where("instance_name = ?", t.scheduler).Take(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return recordToScheduler(&rec), nil
}

func (t *gormTx) SaveScheduler(s *core.SchedulerInstance) error {
	return upsert(t.db, schedulerToRecord(s))
}

func (t *gormTx) DeleteAll() error {
	if err := t.db.Where("scheduler_name = ?", t.scheduler).Delete(&TriggerRecord{}).Error; err != nil {
		return err
	}
	return t.db.Where("scheduler_name = ?", t.scheduler).Delete(&JobRecord{}).Error
}

var _ core.Tx = (*gormTx)(nil)
