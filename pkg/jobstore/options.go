package jobstore

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/metrics"
	"github.com/jdziat/simple-durable-jobstore/pkg/schedule"
)

const (
	// DefaultInstanceName is the scheduler instance name used when none is set.
	DefaultInstanceName = "DefaultScheduler"
	// DefaultMisfireThreshold is how late a trigger may be before it misfires.
	DefaultMisfireThreshold = 5 * time.Second
	// MinMisfireThreshold is the smallest accepted misfire threshold.
	MinMisfireThreshold = time.Millisecond
	// EstimatedReleaseAndAcquireTime is reported to the engine as the cost of a
	// release followed by an acquisition.
	EstimatedReleaseAndAcquireTime = 100 * time.Millisecond
)

// Options holds configuration for a JobStore.
type Options struct {
	InstanceName     string
	InstanceID       string
	MisfireThreshold time.Duration
	Logger           *slog.Logger
	Clock            func() time.Time
	FireIDs          FireIDGenerator
	Evaluator        core.ScheduleEvaluator
	Metrics          *metrics.Metrics
}

// NewOptions creates Options with defaults.
func NewOptions() *Options {
	return &Options{
		InstanceName:     DefaultInstanceName,
		InstanceID:       uuid.NewString(),
		MisfireThreshold: DefaultMisfireThreshold,
		Logger:           slog.Default(),
		Clock:            time.Now,
		FireIDs:          DefaultFireIDs(),
		Evaluator:        schedule.Default(),
	}
}

// Option modifies Options.
type Option interface {
	Apply(*Options)
}

type optionFunc func(*Options)

func (f optionFunc) Apply(o *Options) { f(o) }

// WithInstanceName sets the scheduler instance whose records the store owns.
func WithInstanceName(name string) Option {
	return optionFunc(func(o *Options) {
		if name != "" {
			o.InstanceName = name
		}
	})
}

// WithInstanceID sets the instance id reported by InstanceID.
func WithInstanceID(id string) Option {
	return optionFunc(func(o *Options) {
		if id != "" {
			o.InstanceID = id
		}
	})
}

// WithMisfireThreshold sets the misfire threshold. New rejects values below
// MinMisfireThreshold.
func WithMisfireThreshold(d time.Duration) Option {
	return optionFunc(func(o *Options) {
		o.MisfireThreshold = d
	})
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	})
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return optionFunc(func(o *Options) {
		if now != nil {
			o.Clock = now
		}
	})
}

// WithFireIDGenerator replaces the process-wide fire instance id counter.
func WithFireIDGenerator(g FireIDGenerator) Option {
	return optionFunc(func(o *Options) {
		if g != nil {
			o.FireIDs = g
		}
	})
}

// WithEvaluator replaces the schedule evaluator.
func WithEvaluator(e core.ScheduleEvaluator) Option {
	return optionFunc(func(o *Options) {
		if e != nil {
			o.Evaluator = e
		}
	})
}

// WithMetrics records firing protocol counters.
func WithMetrics(m *metrics.Metrics) Option {
	return optionFunc(func(o *Options) {
		o.Metrics = m
	})
}
