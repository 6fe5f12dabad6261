// Package metrics exposes Prometheus counters for the firing protocol.
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jobstore"

// Misfire outcomes.
const (
	MisfireRescheduled = "rescheduled"
	MisfireCompleted   = "completed"
	MisfireUnchanged   = "unchanged"
)

// Metrics holds the store's counters.
type Metrics struct {
	acquired    prometheus.Counter
	released    prometheus.Counter
	fired       prometheus.Counter
	fireSkipped *prometheus.CounterVec
	misfires    *prometheus.CounterVec
	completions *prometheus.CounterVec
	recovered   prometheus.Counter
}

// New creates the counters and registers them with reg. A nil reg skips
// registration.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		acquired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquired_total",
			Help:      "Triggers reserved by AcquireNextTriggers.",
		}),
		released: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "released_total",
			Help:      "Acquired triggers returned to waiting without firing.",
		}),
		fired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fired_total",
			Help:      "Triggers confirmed by TriggersFired.",
		}),
		fireSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fire_skipped_total",
			Help:      "Triggers omitted by TriggersFired, by reason.",
		}, []string{"reason"}),
		misfires: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "misfires_total",
			Help:      "Misfire evaluations, by outcome.",
		}, []string{"outcome"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "TriggeredJobComplete calls, by instruction.",
		}, []string{"instruction"}),
		recovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "recovered_total",
			Help:      "Triggers reset or recomputed by startup recovery.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.acquired, m.released, m.fired, m.fireSkipped, m.misfires, m.completions, m.recovered)
	}
	return m
}

func (m *Metrics) Acquired(n int) {
	if m != nil && n > 0 {
		m.acquired.Add(float64(n))
	}
}

func (m *Metrics) Released() {
	if m != nil {
		m.released.Inc()
	}
}

func (m *Metrics) Fired() {
	if m != nil {
		m.fired.Inc()
	}
}

func (m *Metrics) FireSkipped(reason string) {
	if m != nil {
		m.fireSkipped.WithLabelValues(reason).Inc()
	}
}

func (m *Metrics) Misfire(outcome string) {
	if m != nil {
		m.misfires.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Completed(instruction string) {
	if m != nil {
		m.completions.WithLabelValues(instruction).Inc()
	}
}

func (m *Metrics) Recovered(n int) {
	if m != nil && n > 0 {
		m.recovered.Add(float64(n))
	}
}
