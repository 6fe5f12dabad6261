package core

import (
	"slices"
	"time"
)

// SchedulerState is the lifecycle state held on the scheduler record.
type SchedulerState string

const (
	SchedulerUnknown  SchedulerState = ""
	SchedulerStarted  SchedulerState = "started"
	SchedulerPaused   SchedulerState = "paused"
	SchedulerResumed  SchedulerState = "resumed"
	SchedulerShutdown SchedulerState = "shutdown"
)

// KeySet is a set of strings persisted as a sorted list.
type KeySet map[string]struct{}

// NewKeySet returns a set holding keys.
func NewKeySet(keys ...string) KeySet {
	s := make(KeySet, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

func (s KeySet) Has(k string) bool {
	_, ok := s[k]
	return ok
}

func (s KeySet) Add(k string) {
	s[k] = struct{}{}
}

func (s KeySet) Remove(k string) {
	delete(s, k)
}

// Sorted returns the members in ascending order.
func (s KeySet) Sorted() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// SchedulerInstance is the singleton record of a named scheduler.
type SchedulerInstance struct {
	InstanceName    string
	State           SchedulerState
	LastCheckinTime time.Time
	CheckinInterval time.Duration

	Calendars       map[string]EncodedCalendar
	PausedJobGroups KeySet
	// BlockedJobs holds JobKey strings of running non-concurrent jobs.
	BlockedJobs KeySet
}

// NewSchedulerInstance returns an empty record for name.
func NewSchedulerInstance(name string) *SchedulerInstance {
	return &SchedulerInstance{
		InstanceName:    name,
		Calendars:       make(map[string]EncodedCalendar),
		PausedJobGroups: make(KeySet),
		BlockedJobs:     make(KeySet),
	}
}

// IsJobBlocked reports whether key is in the blocked-jobs set.
func (s *SchedulerInstance) IsJobBlocked(key JobKey) bool {
	return s.BlockedJobs.Has(key.String())
}
