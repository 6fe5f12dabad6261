package jobstore

import (
	"context"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/security"
)

// StoreCalendar saves cal under name. With updateTriggers every trigger using
// the calendar has its next fire time recomputed against it.
func (s *JobStore) StoreCalendar(ctx context.Context, name string, cal core.Calendar, replace, updateTriggers bool) error {
	if !s.initialized.Load() {
		return core.ErrNotInitialized
	}
	if err := security.ValidateCalendarName(name); err != nil {
		return err
	}
	enc, err := s.typeLoader.EncodeCalendar(cal)
	if err != nil {
		return err
	}
	return s.write(ctx, func(u *unit) error {
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		if _, exists := sched.Calendars[name]; exists && !replace {
			return core.AlreadyExists("calendar", name)
		}
		sched.Calendars[name] = enc
		u.touchScheduler()
		if u.calendars != nil {
			delete(u.calendars, name)
		}
		if !updateTriggers {
			return nil
		}

		triggers, err := u.tx.TriggersForCalendar(name)
		if err != nil {
			return err
		}
		threshold := s.MisfireThreshold()
		for _, t := range triggers {
			s.evaluator.UpdateWithNewCalendar(t, cal, threshold, u.now)
			if t.NextFireTime == nil {
				t.State = core.StateComplete
				u.notifyFinalized(t)
			} else if _, err := u.applyMisfire(t); err != nil {
				return err
			}
			if err := u.tx.SaveTrigger(t); err != nil {
				return err
			}
		}
		return nil
	})
}

// RemoveCalendar deletes the calendar. Triggers still referencing it are
// skipped by TriggersFired until it is stored again.
func (s *JobStore) RemoveCalendar(ctx context.Context, name string) (bool, error) {
	var removed bool
	err := s.write(ctx, func(u *unit) error {
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		if _, ok := sched.Calendars[name]; !ok {
			return nil
		}
		delete(sched.Calendars, name)
		u.touchScheduler()
		removed = true
		return nil
	})
	return removed, err
}

// RetrieveCalendar returns the calendar, or nil when it does not exist.
func (s *JobStore) RetrieveCalendar(ctx context.Context, name string) (core.Calendar, error) {
	var cal core.Calendar
	err := s.read(ctx, func(u *unit) error {
		var err error
		cal, _, err = u.calendar(name)
		return err
	})
	return cal, err
}

// CalendarExists reports whether a calendar is stored under name.
func (s *JobStore) CalendarExists(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := s.read(ctx, func(u *unit) error {
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		_, exists = sched.Calendars[name]
		return nil
	})
	return exists, err
}

// GetCalendarNames returns the stored calendar names, sorted.
func (s *JobStore) GetCalendarNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.read(ctx, func(u *unit) error {
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		set := core.NewKeySet()
		for name := range sched.Calendars {
			set.Add(name)
		}
		names = set.Sorted()
		return nil
	})
	return names, err
}

// GetNumberOfCalendars counts the stored calendars.
func (s *JobStore) GetNumberOfCalendars(ctx context.Context) (int, error) {
	var n int
	err := s.read(ctx, func(u *unit) error {
		sched, err := u.scheduler()
		if err != nil {
			return err
		}
		n = len(sched.Calendars)
		return nil
	})
	return n, err
}
