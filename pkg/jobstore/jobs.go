package jobstore

import (
	"context"
	"fmt"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/security"
)

// JobAndTriggers pairs a job with the triggers stored alongside it.
type JobAndTriggers struct {
	Job      *core.JobDetail
	Triggers []*core.Trigger
}

func validateJob(job *core.JobDetail) error {
	if err := security.ValidateJobKey(job.Key); err != nil {
		return err
	}
	return security.ValidateJobType(job.JobType)
}

func (u *unit) storeJob(job *core.JobDetail, replace bool) error {
	if err := validateJob(job); err != nil {
		return err
	}
	if !replace {
		exists, err := u.tx.JobExists(job.Key)
		if err != nil {
			return err
		}
		if exists {
			return core.AlreadyExists("job", job.Key.String())
		}
	}
	return u.tx.SaveJob(job.Clone())
}

// StoreJob saves job. Without replace an existing job with the same key is
// an ObjectAlreadyExistsError.
func (s *JobStore) StoreJob(ctx context.Context, job *core.JobDetail, replace bool) error {
	return s.write(ctx, func(u *unit) error {
		return u.storeJob(job, replace)
	})
}

// StoreJobs saves several jobs in one unit.
func (s *JobStore) StoreJobs(ctx context.Context, jobs []*core.JobDetail, replace bool) error {
	return s.write(ctx, func(u *unit) error {
		for _, job := range jobs {
			if err := u.storeJob(job, replace); err != nil {
				return err
			}
		}
		return nil
	})
}

// StoreJobAndTrigger saves job and trigger, replacing existing records.
func (s *JobStore) StoreJobAndTrigger(ctx context.Context, job *core.JobDetail, trigger *core.Trigger) error {
	return s.StoreJobsAndTriggers(ctx, []JobAndTriggers{{Job: job, Triggers: []*core.Trigger{trigger}}}, true)
}

// StoreJobsAndTriggers saves every job with its triggers. Nothing is written
// when any record fails.
func (s *JobStore) StoreJobsAndTriggers(ctx context.Context, items []JobAndTriggers, replace bool) error {
	return s.write(ctx, func(u *unit) error {
		for _, item := range items {
			if err := u.storeJob(item.Job, replace); err != nil {
				return err
			}
			for _, t := range item.Triggers {
				if err := u.storeNewTrigger(t, replace); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// removeJob deletes the job and every trigger referencing it.
func (u *unit) removeJob(key core.JobKey) (bool, error) {
	triggers, err := u.tx.TriggersForJob(key)
	if err != nil {
		return false, err
	}
	for _, t := range triggers {
		if _, err := u.tx.DeleteTrigger(t.Key); err != nil {
			return false, err
		}
	}
	return u.tx.DeleteJob(key)
}

// RemoveJob deletes the job and its triggers. It reports whether the job existed.
func (s *JobStore) RemoveJob(ctx context.Context, key core.JobKey) (bool, error) {
	var removed bool
	err := s.write(ctx, func(u *unit) error {
		var err error
		removed, err = u.removeJob(key)
		return err
	})
	return removed, err
}

// RemoveJobs deletes each job and its triggers. It reports whether every job
// existed.
func (s *JobStore) RemoveJobs(ctx context.Context, keys []core.JobKey) (bool, error) {
	all := true
	err := s.write(ctx, func(u *unit) error {
		all = true
		for _, key := range keys {
			removed, err := u.removeJob(key)
			if err != nil {
				return err
			}
			all = all && removed
		}
		return nil
	})
	return all && err == nil, err
}

// RetrieveJob returns the job, or nil when it does not exist.
func (s *JobStore) RetrieveJob(ctx context.Context, key core.JobKey) (*core.JobDetail, error) {
	var job *core.JobDetail
	err := s.read(ctx, func(u *unit) error {
		var err error
		job, err = u.tx.GetJob(key)
		return err
	})
	return job, err
}

// CheckJobExists reports whether a job with key exists.
func (s *JobStore) CheckJobExists(ctx context.Context, key core.JobKey) (bool, error) {
	var exists bool
	err := s.read(ctx, func(u *unit) error {
		var err error
		exists, err = u.tx.JobExists(key)
		return err
	})
	return exists, err
}

// GetJobKeys returns the keys of jobs whose group matches m.
func (s *JobStore) GetJobKeys(ctx context.Context, m core.GroupMatcher) ([]core.JobKey, error) {
	var keys []core.JobKey
	err := s.read(ctx, func(u *unit) error {
		var err error
		keys, err = u.tx.JobKeys(m)
		return err
	})
	return keys, err
}

// GetJobGroupNames returns the distinct job groups.
func (s *JobStore) GetJobGroupNames(ctx context.Context) ([]string, error) {
	var groups []string
	err := s.read(ctx, func(u *unit) error {
		var err error
		groups, err = u.tx.JobGroupNames()
		return err
	})
	return groups, err
}

// GetNumberOfJobs counts the instance's jobs.
func (s *JobStore) GetNumberOfJobs(ctx context.Context) (int, error) {
	var n int64
	err := s.read(ctx, func(u *unit) error {
		var err error
		n, err = u.tx.CountJobs()
		return err
	})
	return int(n), err
}

func jobMissing(key core.JobKey) error {
	return core.Persistence("store trigger", fmt.Errorf("%w: %s", core.ErrJobReferenceMissing, key))
}
