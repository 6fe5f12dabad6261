package core

// TriggerState is the internal state of a stored trigger.
type TriggerState string

const (
	StateWaiting          TriggerState = "waiting"
	StateAcquired         TriggerState = "acquired"
	StatePaused           TriggerState = "paused"
	StatePausedAndBlocked TriggerState = "paused_blocked"
	StateBlocked          TriggerState = "blocked"
	StateComplete         TriggerState = "complete"
	StateError            TriggerState = "error"
)

// ExternalState is the trigger state reported to callers.
type ExternalState string

const (
	ExternalNone     ExternalState = "none"
	ExternalNormal   ExternalState = "normal"
	ExternalPaused   ExternalState = "paused"
	ExternalComplete ExternalState = "complete"
	ExternalError    ExternalState = "error"
	ExternalBlocked  ExternalState = "blocked"
)

// External projects an internal state onto the reported state.
func (s TriggerState) External() ExternalState {
	switch s {
	case StateBlocked:
		return ExternalBlocked
	case StatePaused, StatePausedAndBlocked:
		return ExternalPaused
	case StateComplete:
		return ExternalComplete
	case StateError:
		return ExternalError
	default:
		return ExternalNormal
	}
}

// IsPaused reports whether the state counts toward its group being paused.
func (s TriggerState) IsPaused() bool {
	return s == StatePaused || s == StatePausedAndBlocked
}

// IsBlocked reports whether the trigger is held back by a running job.
func (s TriggerState) IsBlocked() bool {
	return s == StateBlocked || s == StatePausedAndBlocked
}

// InitialState derives the state of a newly stored trigger.
func InitialState(groupPaused, jobBlocked bool) TriggerState {
	switch {
	case groupPaused && jobBlocked:
		return StatePausedAndBlocked
	case groupPaused:
		return StatePaused
	case jobBlocked:
		return StateBlocked
	default:
		return StateWaiting
	}
}

// Pause returns the state after a pause request. Complete triggers are
// never paused.
func (s TriggerState) Pause() TriggerState {
	switch s {
	case StateComplete:
		return s
	case StateBlocked:
		return StatePausedAndBlocked
	default:
		return StatePaused
	}
}

// Resume returns the state after a resume request and whether a transition
// happened. Only paused states resume.
func (s TriggerState) Resume(jobBlocked bool) (TriggerState, bool) {
	if !s.IsPaused() {
		return s, false
	}
	if jobBlocked {
		return StateBlocked, true
	}
	return StateWaiting, true
}

// Block returns the state when the trigger's job starts a non-concurrent run.
func (s TriggerState) Block() TriggerState {
	switch s {
	case StateWaiting:
		return StateBlocked
	case StatePaused:
		return StatePausedAndBlocked
	default:
		return s
	}
}

// Unblock returns the state when the trigger's job finishes a non-concurrent run.
func (s TriggerState) Unblock() TriggerState {
	switch s {
	case StateBlocked:
		return StateWaiting
	case StatePausedAndBlocked:
		return StatePaused
	default:
		return s
	}
}

// Recover returns the state a trigger is reset to on startup after a crash.
func (s TriggerState) Recover() TriggerState {
	switch s {
	case StateAcquired, StateBlocked:
		return StateWaiting
	case StatePausedAndBlocked:
		return StatePaused
	default:
		return s
	}
}
