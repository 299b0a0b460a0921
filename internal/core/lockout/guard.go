// Package lockout implements the strict-mode enforcement state machine:
// the break lock, the bypass audit hooks, and the PIN-gated time-boxed
// emergency override.
package lockout

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"focusguard/internal/audit"
	"focusguard/internal/core/model"
)

// ErrPinEntryNotOpen is returned when SubmitPin is called outside the
// pin-entry state.
var ErrPinEntryNotOpen = errors.New("pin entry not open")

// ErrVerificationInFlight is returned when a submission races an
// outstanding verification call. Callers drop it silently.
var ErrVerificationInFlight = errors.New("pin verification already in flight")

// Backend is the capability surface the lockout consumes. All calls are
// best-effort: a failing backend must never leave the user locked.
type Backend interface {
	// EmergencyExitStrictMode is the strict-mode hotkey escape path.
	EmergencyExitStrictMode() error
	// HideBreakOverlay dismisses the fullscreen overlay at completion.
	HideBreakOverlay() error
}

// VerifyFunc checks an emergency PIN. The lockout treats it as opaque.
type VerifyFunc func(ctx context.Context, pin string) (bool, error)

// Config contains runtime options for the Guard.
type Config struct {
	// WindowDuration is how long a verified override suspends the lock.
	WindowDuration time.Duration
	// TickInterval is the wall-clock length of one countdown tick. Each
	// tick still decrements one second of window time.
	TickInterval time.Duration
}

// Guard is the lockout state machine for one break session at a time.
type Guard struct {
	mu       sync.Mutex
	config   Config
	backend  Backend
	verify   VerifyFunc
	recorder *audit.Recorder
	logger   *slog.Logger

	state           State
	session         model.BreakSession
	onComplete      func()
	completionFired bool
	pinInFlight     bool

	windowRemaining time.Duration
	windowStop      chan struct{}

	events []chan Event
}

// New creates a Guard. recorder may be nil when auditing is disabled.
func New(backend Backend, verify VerifyFunc, recorder *audit.Recorder, config Config, logger *slog.Logger) *Guard {
	if config.WindowDuration <= 0 {
		config.WindowDuration = 45 * time.Second
	}
	if config.TickInterval <= 0 {
		config.TickInterval = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		config:   config,
		backend:  backend,
		verify:   verify,
		recorder: recorder,
		logger:   logger,
		state:    StateCompleted,
	}
}

// SetWindowDuration updates the override window used by future
// emergency activations. A live window keeps its original duration.
func (guard *Guard) SetWindowDuration(duration time.Duration) {
	if duration <= 0 {
		return
	}
	guard.mu.Lock()
	guard.config.WindowDuration = duration
	guard.mu.Unlock()
}

// Subscribe registers a new observer channel.
func (guard *Guard) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	guard.mu.Lock()
	guard.events = append(guard.events, ch)
	guard.mu.Unlock()
	return ch
}

// Begin arms the guard for a new break session. The previous session's
// emergency window, if any, is discarded. onComplete is invoked at most
// once, when the observed break remaining time first reaches zero.
func (guard *Guard) Begin(session model.BreakSession, onComplete func()) {
	guard.mu.Lock()
	guard.stopWindowLocked()
	guard.state = StateLocked
	guard.session = session
	guard.onComplete = onComplete
	guard.completionFired = false
	guard.pinInFlight = false
	if guard.recorder != nil {
		guard.recorder.BeginSession(session.ID)
	}
	guard.emitLocked(Event{Type: EventStateChange, State: StateLocked, At: time.Now()})
	guard.mu.Unlock()
}

// State returns the current lockout state.
func (guard *Guard) State() State {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.state
}

// Session returns the session the guard is enforcing.
func (guard *Guard) Session() model.BreakSession {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.session
}

// WindowRemaining returns the emergency window's remaining time.
func (guard *Guard) WindowRemaining() time.Duration {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	return guard.windowRemaining
}

// ObserveRemaining feeds the externally-owned break countdown into the
// guard. The first observation at or below zero fires the completion
// sequence exactly once: the best-effort backend unlock, then the
// completion callback, unconditionally and in that order.
func (guard *Guard) ObserveRemaining(remaining time.Duration) {
	guard.mu.Lock()
	if remaining < 0 {
		remaining = 0
	}
	guard.session.Remaining = remaining
	if remaining > 0 || guard.completionFired || guard.state == StateCompleted {
		guard.mu.Unlock()
		return
	}
	guard.completionFired = true
	guard.stopWindowLocked()
	guard.state = StateCompleted
	onComplete := guard.onComplete
	guard.emitLocked(Event{Type: EventStateChange, State: StateCompleted, At: time.Now()})
	guard.mu.Unlock()

	if guard.backend != nil {
		if err := guard.backend.HideBreakOverlay(); err != nil {
			guard.logger.Warn("unlock call failed at break completion", "error", err)
		}
	}
	if onComplete != nil {
		onComplete()
	}
}

// RequestPinEntry handles the normal-mode Escape path. It opens pin entry
// only when the session permits an emergency override; otherwise the
// press is recorded as a bypass attempt and nothing changes. The return
// value reports whether pin entry opened.
func (guard *Guard) RequestPinEntry() bool {
	guard.mu.Lock()
	if guard.state != StateLocked {
		guard.mu.Unlock()
		return false
	}
	if !guard.session.AllowEmergency {
		guard.mu.Unlock()
		if guard.recorder != nil {
			guard.recorder.Record(string(methodEscapeKey))
		}
		return false
	}
	guard.state = StateEmergencyPinPending
	guard.emitLocked(Event{Type: EventStateChange, State: StateEmergencyPinPending, At: time.Now()})
	guard.mu.Unlock()
	return true
}

// CancelPinEntry dismisses the pin surface and returns to Locked.
func (guard *Guard) CancelPinEntry() {
	guard.mu.Lock()
	if guard.state != StateEmergencyPinPending {
		guard.mu.Unlock()
		return
	}
	guard.state = StateLocked
	guard.emitLocked(Event{Type: EventStateChange, State: StateLocked, At: time.Now()})
	guard.mu.Unlock()
}

// SubmitPin verifies the PIN and, on success, starts the emergency
// window. Submissions are serialized: a call while one is outstanding
// returns ErrVerificationInFlight and is otherwise ignored.
func (guard *Guard) SubmitPin(ctx context.Context, pin string) error {
	guard.mu.Lock()
	if guard.state != StateEmergencyPinPending {
		guard.mu.Unlock()
		return ErrPinEntryNotOpen
	}
	if guard.pinInFlight {
		guard.mu.Unlock()
		return ErrVerificationInFlight
	}
	guard.pinInFlight = true
	verify := guard.verify
	guard.mu.Unlock()

	ok, err := verify(ctx, pin)

	guard.mu.Lock()
	guard.pinInFlight = false
	if guard.state != StateEmergencyPinPending {
		// Completed pre-empted us while the call was in flight.
		guard.mu.Unlock()
		return nil
	}
	if err != nil || !ok {
		guard.emitLocked(Event{
			Type:    EventPinRejected,
			State:   StateEmergencyPinPending,
			Message: "Incorrect PIN. Try again.",
			At:      time.Now(),
		})
		guard.mu.Unlock()
		if err != nil {
			guard.logger.Warn("pin verification call failed", "error", err)
		}
		if guard.recorder != nil {
			guard.recorder.Submit(string(methodOverrideFailed))
		}
		return nil
	}

	guard.state = StateEmergencyActive
	guard.windowRemaining = guard.config.WindowDuration
	guard.windowStop = make(chan struct{})
	go guard.runWindow(guard.windowStop)
	guard.emitLocked(Event{
		Type:      EventStateChange,
		State:     StateEmergencyActive,
		Remaining: guard.windowRemaining,
		At:        time.Now(),
	})
	guard.mu.Unlock()

	if guard.recorder != nil {
		guard.recorder.Submit(string(methodOverrideSuccess))
	}
	return nil
}

// ResumeNow closes the emergency window early and re-locks.
func (guard *Guard) ResumeNow() {
	guard.mu.Lock()
	if guard.state != StateEmergencyActive {
		guard.mu.Unlock()
		return
	}
	guard.stopWindowLocked()
	guard.state = StateLocked
	guard.emitLocked(Event{Type: EventStateChange, State: StateLocked, At: time.Now()})
	guard.mu.Unlock()
}

// TriggerStrictEmergency is the strict-mode hotkey path: a fire-and-forget
// call to the emergency exit capability. The outcome is logged only; local
// state changes come from whatever the unlock eventually produces.
func (guard *Guard) TriggerStrictEmergency() {
	backend := guard.backend
	if backend == nil {
		return
	}
	go func() {
		if err := backend.EmergencyExitStrictMode(); err != nil {
			guard.logger.Warn("strict-mode emergency exit failed", "error", err)
			return
		}
		guard.logger.Info("strict-mode emergency exit requested")
	}()
}

func (guard *Guard) runWindow(stop chan struct{}) {
	ticker := time.NewTicker(guard.config.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !guard.windowTick() {
				return
			}
		}
	}
}

// windowTick decrements one second of window time. It reports whether the
// window is still running.
func (guard *Guard) windowTick() bool {
	guard.mu.Lock()
	defer guard.mu.Unlock()
	if guard.state != StateEmergencyActive {
		return false
	}

	guard.windowRemaining -= time.Second
	if guard.windowRemaining > 0 {
		guard.emitLocked(Event{
			Type:      EventWindowTick,
			State:     StateEmergencyActive,
			Remaining: guard.windowRemaining,
			At:        time.Now(),
		})
		return true
	}

	// Remaining reaches exactly zero before the window is torn down.
	guard.windowRemaining = 0
	guard.emitLocked(Event{
		Type:      EventWindowTick,
		State:     StateEmergencyActive,
		Remaining: 0,
		At:        time.Now(),
	})
	guard.windowStop = nil
	guard.state = StateLocked
	guard.emitLocked(Event{Type: EventStateChange, State: StateLocked, At: time.Now()})
	return false
}

func (guard *Guard) stopWindowLocked() {
	if guard.windowStop != nil {
		close(guard.windowStop)
		guard.windowStop = nil
	}
	guard.windowRemaining = 0
}

func (guard *Guard) emitLocked(event Event) {
	for _, ch := range guard.events {
		select {
		case ch <- event:
		default:
		}
	}
}

// Audit methods emitted by the guard itself. The interception layer owns
// the rest of the classification table.
const (
	methodEscapeKey       = "escape_key"
	methodOverrideFailed  = "emergency_override_failed"
	methodOverrideSuccess = "emergency_override_success"
)
