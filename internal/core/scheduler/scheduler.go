// Package scheduler drives the focus/break cycle: focus periods of a
// configured length, a short break after each, and a long break after
// every Nth completed cycle. It owns the break countdown; enforcement
// components only observe it.
package scheduler

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"focusguard/internal/core/model"
)

// ErrIdleUnsupported indicates idle detection is not available on this system.
var ErrIdleUnsupported = errors.New("idle detection unsupported")

// IdleChecker reports the duration of user inactivity.
type IdleChecker interface {
	IdleDuration() (time.Duration, error)
}

// Config contains runtime options for the Scheduler.
type Config struct {
	TickInterval time.Duration
}

// Scheduler is a state machine that alternates focus periods and breaks.
type Scheduler struct {
	mu            sync.Mutex
	config        model.SchedulerConfig
	options       Config
	state         State
	previousState State
	session       model.BreakSession
	focusLeft     time.Duration
	cycleCount    int
	idleChecker   IdleChecker
	lastIdleCheck time.Time
	events        []chan Event
	stopCh        chan struct{}
	running       bool
	paused        bool
}

// New creates a Scheduler with the provided configuration.
func New(config model.SchedulerConfig, options Config) *Scheduler {
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	normalizeConfig(&config)

	scheduler := &Scheduler{
		config:        config,
		options:       options,
		state:         StateFocus,
		previousState: StateFocus,
		stopCh:        make(chan struct{}),
	}
	scheduler.focusLeft = config.FocusDuration
	return scheduler
}

func normalizeConfig(config *model.SchedulerConfig) {
	if config.CyclesPerLongBreak <= 0 {
		config.CyclesPerLongBreak = 4
	}
	if config.IdleCheckInterval <= 0 {
		config.IdleCheckInterval = 5 * time.Second
	}
}

// SetIdleChecker injects an idle checker.
func (scheduler *Scheduler) SetIdleChecker(checker IdleChecker) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.idleChecker = checker
}

// Subscribe registers a new observer channel.
func (scheduler *Scheduler) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	scheduler.mu.Lock()
	scheduler.events = append(scheduler.events, ch)
	scheduler.mu.Unlock()
	return ch
}

// Start launches the ticking loop.
func (scheduler *Scheduler) Start() {
	scheduler.mu.Lock()
	if scheduler.running {
		scheduler.mu.Unlock()
		return
	}
	scheduler.running = true
	scheduler.paused = false
	scheduler.state = StateFocus
	scheduler.previousState = StateFocus
	scheduler.focusLeft = scheduler.config.FocusDuration
	scheduler.cycleCount = 0
	scheduler.lastIdleCheck = time.Time{}
	scheduler.emitLocked(Event{Type: EventStateChange, State: StateFocus, At: time.Now()})
	scheduler.mu.Unlock()

	go scheduler.run()
}

// Stop terminates the ticking loop and closes observers.
func (scheduler *Scheduler) Stop() {
	scheduler.mu.Lock()
	if !scheduler.running {
		scheduler.mu.Unlock()
		return
	}
	close(scheduler.stopCh)
	scheduler.running = false
	events := scheduler.events
	scheduler.events = nil
	scheduler.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

// Pause freezes the timer.
func (scheduler *Scheduler) Pause() {
	scheduler.mu.Lock()
	if scheduler.paused {
		scheduler.mu.Unlock()
		return
	}
	scheduler.paused = true
	scheduler.previousState = scheduler.state
	scheduler.state = StatePaused
	scheduler.emitLocked(Event{Type: EventStateChange, State: StatePaused, At: time.Now()})
	scheduler.mu.Unlock()
}

// Resume unfreezes the timer.
func (scheduler *Scheduler) Resume() {
	scheduler.mu.Lock()
	if !scheduler.paused {
		scheduler.mu.Unlock()
		return
	}
	scheduler.paused = false
	scheduler.state = scheduler.previousState
	scheduler.emitLocked(Event{Type: EventStateChange, State: scheduler.state, At: time.Now()})
	scheduler.mu.Unlock()
}

// UpdateConfig updates runtime configuration and restarts the focus timer.
func (scheduler *Scheduler) UpdateConfig(config model.SchedulerConfig) {
	scheduler.mu.Lock()
	normalizeConfig(&config)
	scheduler.config = config
	if scheduler.state == StateFocus {
		scheduler.focusLeft = config.FocusDuration
	}
	scheduler.mu.Unlock()
}

// CycleCount returns the number of completed focus cycles since Start.
func (scheduler *Scheduler) CycleCount() int {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	return scheduler.cycleCount
}

// SkipBreak ends the current break and returns to focus. The UI only
// offers this when strict mode is off.
func (scheduler *Scheduler) SkipBreak() {
	scheduler.mu.Lock()
	if scheduler.state != StateShortBreak && scheduler.state != StateLongBreak {
		scheduler.mu.Unlock()
		return
	}
	scheduler.enterFocusLocked()
	scheduler.mu.Unlock()
}

// ForceBreak triggers an immediate break of the given kind.
func (scheduler *Scheduler) ForceBreak(kind model.BreakKind) {
	scheduler.mu.Lock()
	if !scheduler.running || scheduler.paused || scheduler.state != StateFocus {
		scheduler.mu.Unlock()
		return
	}
	scheduler.enterBreakLocked(kind)
	scheduler.mu.Unlock()
}

// ResetForIdle restarts the current focus period.
func (scheduler *Scheduler) ResetForIdle() {
	scheduler.mu.Lock()
	scheduler.focusLeft = scheduler.config.FocusDuration
	scheduler.mu.Unlock()
}

func (scheduler *Scheduler) run() {
	ticker := time.NewTicker(scheduler.options.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-scheduler.stopCh:
			return
		case tickTime := <-ticker.C:
			scheduler.tick(tickTime)
		}
	}
}

// tick advances one second of schedule time per tick regardless of the
// configured interval, which keeps tests fast and real use accurate.
func (scheduler *Scheduler) tick(tickTime time.Time) {
	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	if !scheduler.running || scheduler.paused {
		return
	}

	switch scheduler.state {
	case StateFocus:
		scheduler.handleIdleCheckLocked(tickTime)
		scheduler.advanceFocusLocked(tickTime)
	case StateShortBreak, StateLongBreak:
		scheduler.advanceBreakLocked(tickTime)
	}
}

func (scheduler *Scheduler) handleIdleCheckLocked(now time.Time) {
	if !scheduler.config.IdleResetEnabled || scheduler.idleChecker == nil {
		return
	}
	if !scheduler.lastIdleCheck.IsZero() && now.Sub(scheduler.lastIdleCheck) < scheduler.config.IdleCheckInterval {
		return
	}
	scheduler.lastIdleCheck = now

	idleDuration, err := scheduler.idleChecker.IdleDuration()
	if err != nil {
		if errors.Is(err, ErrIdleUnsupported) {
			scheduler.config.IdleResetEnabled = false
		}
		scheduler.emitLocked(Event{
			Type:    EventIdleError,
			State:   scheduler.state,
			Message: err.Error(),
			At:      now,
		})
		return
	}
	if idleDuration >= scheduler.config.IdleResetAfter {
		scheduler.focusLeft = scheduler.config.FocusDuration
		scheduler.emitLocked(Event{
			Type:    EventIdleReset,
			State:   scheduler.state,
			Message: "idle reset",
			At:      now,
		})
	}
}

func (scheduler *Scheduler) advanceFocusLocked(now time.Time) {
	scheduler.focusLeft -= time.Second
	if scheduler.focusLeft > 0 {
		scheduler.emitLocked(Event{
			Type:       EventProgress,
			State:      StateFocus,
			Remaining:  scheduler.focusLeft,
			Progress:   scheduler.focusProgressLocked(),
			CycleCount: scheduler.cycleCount,
			At:         now,
		})
		return
	}

	scheduler.cycleCount++
	kind := model.BreakShort
	if scheduler.cycleCount%scheduler.config.CyclesPerLongBreak == 0 {
		kind = model.BreakLong
	}
	scheduler.enterBreakLocked(kind)
}

func (scheduler *Scheduler) advanceBreakLocked(now time.Time) {
	scheduler.session.Remaining -= time.Second
	if scheduler.session.Remaining < 0 {
		scheduler.session.Remaining = 0
	}
	if scheduler.session.Remaining > 0 {
		scheduler.emitLocked(Event{
			Type:       EventProgress,
			State:      scheduler.state,
			Session:    scheduler.session,
			Remaining:  scheduler.session.Remaining,
			Progress:   scheduler.breakProgressLocked(),
			CycleCount: scheduler.cycleCount,
			StrictMode: scheduler.config.StrictMode,
			At:         now,
		})
		return
	}

	// Emit the zero observation before leaving the break so the lockout
	// sees remaining reach zero.
	scheduler.emitLocked(Event{
		Type:       EventProgress,
		State:      scheduler.state,
		Session:    scheduler.session,
		Remaining:  0,
		Progress:   1,
		CycleCount: scheduler.cycleCount,
		StrictMode: scheduler.config.StrictMode,
		At:         now,
	})
	scheduler.enterFocusLocked()
}

func (scheduler *Scheduler) enterBreakLocked(kind model.BreakKind) {
	duration := scheduler.config.ShortBreakDuration
	state := StateShortBreak
	if kind == model.BreakLong {
		duration = scheduler.config.LongBreakDuration
		state = StateLongBreak
	}

	scheduler.state = state
	scheduler.session = model.BreakSession{
		ID:             uuid.NewString(),
		Kind:           kind,
		Duration:       duration,
		Remaining:      duration,
		AllowEmergency: scheduler.config.AllowEmergency,
	}

	scheduler.emitLocked(Event{
		Type:       EventStateChange,
		State:      state,
		Session:    scheduler.session,
		Remaining:  duration,
		CycleCount: scheduler.cycleCount,
		StrictMode: scheduler.config.StrictMode,
		At:         time.Now(),
	})
}

func (scheduler *Scheduler) enterFocusLocked() {
	scheduler.state = StateFocus
	scheduler.session = model.BreakSession{}
	scheduler.focusLeft = scheduler.config.FocusDuration

	scheduler.emitLocked(Event{
		Type:       EventStateChange,
		State:      StateFocus,
		CycleCount: scheduler.cycleCount,
		At:         time.Now(),
	})
}

func (scheduler *Scheduler) focusProgressLocked() float64 {
	total := scheduler.config.FocusDuration
	if total <= 0 {
		return 1
	}
	progress := float64(total-scheduler.focusLeft) / float64(total)
	return clampProgress(progress)
}

func (scheduler *Scheduler) breakProgressLocked() float64 {
	total := scheduler.session.Duration
	if total <= 0 {
		return 1
	}
	progress := float64(total-scheduler.session.Remaining) / float64(total)
	return clampProgress(progress)
}

func clampProgress(progress float64) float64 {
	if progress < 0 {
		return 0
	}
	if progress > 1 {
		return 1
	}
	return progress
}

func (scheduler *Scheduler) emitLocked(event Event) {
	for _, ch := range scheduler.events {
		select {
		case ch <- event:
		default:
		}
	}
}
