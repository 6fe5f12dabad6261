// Package signal delivers store notifications to subscribers.
package signal

import (
	"context"
	"sync"
	"time"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
	"github.com/jdziat/simple-durable-jobstore/pkg/security"
)

// DefaultBuffer is the channel capacity of each subscriber.
const DefaultBuffer = 100

// Bus converts store notifications into core.Event values and broadcasts them
// to subscribers. Slow subscribers lose events rather than block the store.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan core.Event
	buffer int
	now    func() time.Time
}

// NewBus returns a Bus with DefaultBuffer sized subscriber channels.
func NewBus() *Bus {
	return &Bus{buffer: DefaultBuffer, now: time.Now}
}

// Events returns a channel for receiving store events.
// The caller must call Unsubscribe when done to prevent resource leaks.
func (b *Bus) Events() <-chan core.Event {
	ch := make(chan core.Event, b.buffer)
	b.mu.Lock()
	b.subs = append(b.subs, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a channel created by Events. The channel is not closed.
func (b *Bus) Unsubscribe(ch <-chan core.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == ch {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return
		}
	}
}

// Emit sends e to every subscriber without blocking.
func (b *Bus) Emit(e core.Event) {
	b.mu.RLock()
	subs := make([]chan core.Event, len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, ch := range subs {
		select {
		case ch <- e:
		default:
			// full
		}
	}
}

func (b *Bus) NotifyTriggerListenersMisfired(_ context.Context, t *core.Trigger) {
	b.Emit(&core.TriggerMisfired{Trigger: t, Timestamp: b.now()})
}

func (b *Bus) NotifySchedulerListenersFinalized(_ context.Context, t *core.Trigger) {
	b.Emit(&core.TriggerFinalized{Trigger: t, Timestamp: b.now()})
}

func (b *Bus) NotifySchedulerListenersJobDeleted(_ context.Context, key core.JobKey) {
	b.Emit(&core.JobDeleted{Key: key, Timestamp: b.now()})
}

func (b *Bus) SignalSchedulingChange(_ context.Context, candidate *time.Time) {
	b.Emit(&core.SchedulingChanged{CandidateNextFireTime: candidate, Timestamp: b.now()})
}

func (b *Bus) NotifySchedulerListenersError(_ context.Context, message string, err error) {
	b.Emit(&core.SchedulerError{Message: security.SanitizeErrorMessage(message), Error: err, Timestamp: b.now()})
}

func (b *Bus) NotifyTriggerFireSkipped(_ context.Context, key core.TriggerKey, reason core.SkipReason) {
	b.Emit(&core.TriggerFireSkipped{Key: key, Reason: reason, Timestamp: b.now()})
}

// Nop discards every notification.
type Nop struct{}

func (Nop) NotifyTriggerListenersMisfired(context.Context, *core.Trigger)    {}
func (Nop) NotifySchedulerListenersFinalized(context.Context, *core.Trigger) {}
func (Nop) NotifySchedulerListenersJobDeleted(context.Context, core.JobKey)  {}
func (Nop) SignalSchedulingChange(context.Context, *time.Time)               {}
func (Nop) NotifySchedulerListenersError(context.Context, string, error)     {}

var (
	_ core.Signaler         = (*Bus)(nil)
	_ core.FireSkipObserver = (*Bus)(nil)
	_ core.Signaler         = Nop{}
)
