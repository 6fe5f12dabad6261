package calendar

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jdziat/simple-durable-jobstore/pkg/core"
)

// Kinded is implemented by calendars that a Registry can persist.
type Kinded interface {
	core.Calendar
	CalendarKind() string
}

type preparer interface {
	prepare() error
}

// Registry maps calendar kinds to factories and implements core.TypeLoader.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]func() Kinded
}

// NewRegistry returns a Registry with the built-in kinds registered.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]func() Kinded)}
	r.Register(KindHoliday, func() Kinded { return &Holiday{} })
	r.Register(KindWeekly, func() Kinded { return &Weekly{} })
	r.Register(KindDaily, func() Kinded { return &Daily{} })
	r.Register(KindCron, func() Kinded { return &Cron{} })
	return r
}

// Register adds or replaces the factory for kind. The factory must return a
// pointer that json.Unmarshal can fill.
func (r *Registry) Register(kind string, factory func() Kinded) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[kind] = factory
}

// Kinds returns the number of registered kinds.
func (r *Registry) Kinds() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.factories)
}

// EncodeCalendar serializes cal as its kind plus JSON data.
func (r *Registry) EncodeCalendar(cal core.Calendar) (core.EncodedCalendar, error) {
	k, ok := cal.(Kinded)
	if !ok {
		return core.EncodedCalendar{}, fmt.Errorf("%w: %T", core.ErrUnknownCalendarKind, cal)
	}
	r.mu.RLock()
	_, known := r.factories[k.CalendarKind()]
	r.mu.RUnlock()
	if !known {
		return core.EncodedCalendar{}, fmt.Errorf("%w: %s", core.ErrUnknownCalendarKind, k.CalendarKind())
	}
	data, err := json.Marshal(k)
	if err != nil {
		return core.EncodedCalendar{}, fmt.Errorf("calendar: encode %s: %w", k.CalendarKind(), err)
	}
	return core.EncodedCalendar{Kind: k.CalendarKind(), Data: data}, nil
}

// DecodeCalendar rebuilds a calendar from its persisted form.
func (r *Registry) DecodeCalendar(enc core.EncodedCalendar) (core.Calendar, error) {
	r.mu.RLock()
	factory, ok := r.factories[enc.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownCalendarKind, enc.Kind)
	}
	cal := factory()
	if len(enc.Data) > 0 {
		if err := json.Unmarshal(enc.Data, cal); err != nil {
			return nil, fmt.Errorf("calendar: decode %s: %w", enc.Kind, err)
		}
	}
	if p, ok := cal.(preparer); ok {
		if err := p.prepare(); err != nil {
			return nil, err
		}
	}
	return cal, nil
}

var _ core.TypeLoader = (*Registry)(nil)
