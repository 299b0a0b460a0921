package lockout

import "time"

// State is the authoritative lockout phase.
type State string

const (
	StateLocked              State = "locked"
	StateEmergencyPinPending State = "emergency_pin_pending"
	StateEmergencyActive     State = "emergency_active"
	StateCompleted           State = "completed"
)

// EventType defines the type of lockout event.
type EventType string

const (
	// EventStateChange reports a transition of the state machine.
	EventStateChange EventType = "state_change"
	// EventWindowTick reports the emergency window counting down.
	EventWindowTick EventType = "window_tick"
	// EventPinRejected reports a failed verification; the PIN field must
	// be cleared and the message shown inline.
	EventPinRejected EventType = "pin_rejected"
)

// Event represents a lockout update for observers.
type Event struct {
	Type      EventType
	State     State
	Remaining time.Duration
	Message   string
	At        time.Time
}
