package scheduler

import (
	"time"

	"focusguard/internal/core/model"
)

// State represents the current Scheduler mode.
type State string

const (
	StateFocus      State = "focus"
	StateShortBreak State = "short_break"
	StateLongBreak  State = "long_break"
	StatePaused     State = "paused"
)

// EventType defines the type of Scheduler event.
type EventType string

const (
	EventStateChange EventType = "state_change"
	EventProgress    EventType = "progress"
	EventIdleReset   EventType = "idle_reset"
	EventIdleError   EventType = "idle_error"
)

// Event represents a Scheduler update for observers. Session is set while
// a break is running; its Remaining field is a snapshot at emit time.
type Event struct {
	Type       EventType
	State      State
	Session    model.BreakSession
	Remaining  time.Duration
	Progress   float64
	CycleCount int
	StrictMode bool
	Message    string
	At         time.Time
}
