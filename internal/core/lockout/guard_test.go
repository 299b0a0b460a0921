package lockout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusguard/internal/audit"
	"focusguard/internal/core/model"
)

type fakeBackend struct {
	mu      sync.Mutex
	calls   []string
	hideErr error
	exitErr error
}

func (backend *fakeBackend) EmergencyExitStrictMode() error {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.calls = append(backend.calls, "emergency_exit")
	return backend.exitErr
}

func (backend *fakeBackend) HideBreakOverlay() error {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	backend.calls = append(backend.calls, "hide_overlay")
	return backend.hideErr
}

func (backend *fakeBackend) callLog() []string {
	backend.mu.Lock()
	defer backend.mu.Unlock()
	return append([]string(nil), backend.calls...)
}

type testHarness struct {
	guard    *Guard
	backend  *fakeBackend
	recorder *audit.Recorder
	sink     *memorySink
}

type memorySink struct {
	mu       sync.Mutex
	attempts []audit.Attempt
}

func (sink *memorySink) LogBypassAttempt(_ context.Context, attempt audit.Attempt) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.attempts = append(sink.attempts, attempt)
	return nil
}

func (sink *memorySink) methods() []string {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	methods := make([]string, len(sink.attempts))
	for i, attempt := range sink.attempts {
		methods[i] = attempt.Method
	}
	return methods
}

func newHarness(t *testing.T, verify VerifyFunc, config Config) *testHarness {
	t.Helper()
	backend := &fakeBackend{}
	sink := &memorySink{}
	recorder := audit.NewRecorder(sink, nil)
	guard := New(backend, verify, recorder, config, nil)
	return &testHarness{guard: guard, backend: backend, recorder: recorder, sink: sink}
}

func strictSession(allowEmergency bool) model.BreakSession {
	return model.BreakSession{
		ID:             "session-1",
		Kind:           model.BreakLong,
		Duration:       5 * time.Minute,
		Remaining:      5 * time.Minute,
		AllowEmergency: allowEmergency,
	}
}

func acceptPin(_ context.Context, _ string) (bool, error) { return true, nil }
func rejectPin(_ context.Context, _ string) (bool, error) { return false, nil }

func waitForState(t *testing.T, guard *Guard, want State) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if guard.State() == want {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("timed out waiting for state %q, still %q", want, guard.State())
		case <-time.After(time.Millisecond):
		}
	}
}

func TestGuard_BeginEntersLocked(t *testing.T) {
	h := newHarness(t, acceptPin, Config{})
	h.guard.Begin(strictSession(true), nil)
	assert.Equal(t, StateLocked, h.guard.State())
	assert.Equal(t, "session-1", h.guard.Session().ID)
}

func TestGuard_PinSuccessActivatesWindow(t *testing.T) {
	h := newHarness(t, acceptPin, Config{WindowDuration: 45 * time.Second})
	h.guard.Begin(strictSession(true), nil)

	require.True(t, h.guard.RequestPinEntry())
	require.Equal(t, StateEmergencyPinPending, h.guard.State())

	require.NoError(t, h.guard.SubmitPin(context.Background(), "1234"))
	assert.Equal(t, StateEmergencyActive, h.guard.State())
	assert.Equal(t, 45*time.Second, h.guard.WindowRemaining())

	h.recorder.Flush()
	assert.Equal(t, []string{"emergency_override_success"}, h.sink.methods())
	assert.Equal(t, 0, h.recorder.Count(), "override outcomes do not count as bypasses")
}

func TestGuard_PinFailureStaysPending(t *testing.T) {
	h := newHarness(t, rejectPin, Config{})
	h.guard.Begin(strictSession(true), nil)
	events := h.guard.Subscribe(16)

	require.True(t, h.guard.RequestPinEntry())
	require.NoError(t, h.guard.SubmitPin(context.Background(), "0000"))

	assert.Equal(t, StateEmergencyPinPending, h.guard.State())

	var rejected bool
	for done := false; !done; {
		select {
		case event := <-events:
			if event.Type == EventPinRejected {
				rejected = true
				assert.NotEmpty(t, event.Message)
				done = true
			}
		case <-time.After(time.Second):
			done = true
		}
	}
	assert.True(t, rejected, "expected a pin_rejected event")

	h.recorder.Flush()
	assert.Equal(t, []string{"emergency_override_failed"}, h.sink.methods())
}

func TestGuard_VerifierErrorTreatedAsFailure(t *testing.T) {
	h := newHarness(t, func(context.Context, string) (bool, error) {
		return false, errors.New("verifier unreachable")
	}, Config{})
	h.guard.Begin(strictSession(true), nil)

	require.True(t, h.guard.RequestPinEntry())
	require.NoError(t, h.guard.SubmitPin(context.Background(), "1234"))
	assert.Equal(t, StateEmergencyPinPending, h.guard.State())

	h.recorder.Flush()
	assert.Equal(t, []string{"emergency_override_failed"}, h.sink.methods())
}

func TestGuard_SubmissionsSerialized(t *testing.T) {
	release := make(chan struct{})
	h := newHarness(t, func(ctx context.Context, _ string) (bool, error) {
		<-release
		return true, nil
	}, Config{})
	h.guard.Begin(strictSession(true), nil)
	require.True(t, h.guard.RequestPinEntry())

	firstDone := make(chan error, 1)
	go func() {
		firstDone <- h.guard.SubmitPin(context.Background(), "1234")
	}()

	// Let the first call reach the verifier.
	time.Sleep(20 * time.Millisecond)
	err := h.guard.SubmitPin(context.Background(), "1234")
	assert.ErrorIs(t, err, ErrVerificationInFlight)

	close(release)
	require.NoError(t, <-firstDone)
	assert.Equal(t, StateEmergencyActive, h.guard.State())
}

func TestGuard_WindowCountsDownToLocked(t *testing.T) {
	h := newHarness(t, acceptPin, Config{
		WindowDuration: 45 * time.Second,
		TickInterval:   time.Millisecond,
	})
	h.guard.Begin(strictSession(true), nil)
	events := h.guard.Subscribe(128)

	require.True(t, h.guard.RequestPinEntry())
	require.NoError(t, h.guard.SubmitPin(context.Background(), "1234"))

	waitForState(t, h.guard, StateLocked)

	var ticks []time.Duration
	var sawLocked bool
	for drained := false; !drained; {
		select {
		case event := <-events:
			switch event.Type {
			case EventWindowTick:
				ticks = append(ticks, event.Remaining)
			case EventStateChange:
				if event.State == StateLocked {
					sawLocked = true
					drained = true
				}
			}
		default:
			drained = true
		}
	}

	require.True(t, sawLocked)
	require.Len(t, ticks, 45, "one tick per window second")
	for i, remaining := range ticks {
		assert.Equal(t, time.Duration(44-i)*time.Second, remaining)
	}
	assert.Equal(t, time.Duration(0), ticks[len(ticks)-1], "window reaches exactly zero")
}

func TestGuard_ResumeNowClosesWindowEarly(t *testing.T) {
	h := newHarness(t, acceptPin, Config{WindowDuration: 45 * time.Second, TickInterval: time.Hour})
	h.guard.Begin(strictSession(true), nil)

	require.True(t, h.guard.RequestPinEntry())
	require.NoError(t, h.guard.SubmitPin(context.Background(), "1234"))
	require.Equal(t, StateEmergencyActive, h.guard.State())

	h.guard.ResumeNow()
	assert.Equal(t, StateLocked, h.guard.State())
	assert.Equal(t, time.Duration(0), h.guard.WindowRemaining())
}

func TestGuard_EscapeDeniedWhenEmergencyDisallowed(t *testing.T) {
	h := newHarness(t, acceptPin, Config{})
	h.guard.Begin(strictSession(false), nil)

	assert.False(t, h.guard.RequestPinEntry())
	assert.Equal(t, StateLocked, h.guard.State(), "no transition occurs")

	h.recorder.Flush()
	assert.Equal(t, []string{"escape_key"}, h.sink.methods())
	assert.Equal(t, 1, h.recorder.Count())
}

func TestGuard_CompletionFiresExactlyOnce(t *testing.T) {
	h := newHarness(t, acceptPin, Config{})
	completions := 0
	h.guard.Begin(strictSession(true), func() { completions++ })

	h.guard.ObserveRemaining(time.Second)
	assert.Equal(t, StateLocked, h.guard.State())
	assert.Equal(t, 0, completions)

	h.guard.ObserveRemaining(0)
	assert.Equal(t, StateCompleted, h.guard.State())
	assert.Equal(t, 1, completions)
	assert.Equal(t, []string{"hide_overlay"}, h.backend.callLog())

	// Further observations are no-ops; completed is terminal.
	h.guard.ObserveRemaining(0)
	h.guard.ObserveRemaining(-5 * time.Second)
	assert.Equal(t, 1, completions)
	assert.Equal(t, []string{"hide_overlay"}, h.backend.callLog())
}

func TestGuard_CompletionProceedsWhenUnlockFails(t *testing.T) {
	h := newHarness(t, acceptPin, Config{})
	h.backend.hideErr = errors.New("rpc failed")
	completions := 0
	h.guard.Begin(strictSession(true), func() { completions++ })

	h.guard.ObserveRemaining(0)

	assert.Equal(t, StateCompleted, h.guard.State())
	assert.Equal(t, 1, completions, "callback runs even when unlock fails")
	assert.Equal(t, []string{"hide_overlay"}, h.backend.callLog())
}

func TestGuard_CompletionDiscardsEmergencyWindow(t *testing.T) {
	h := newHarness(t, acceptPin, Config{WindowDuration: 45 * time.Second, TickInterval: time.Hour})
	h.guard.Begin(strictSession(true), nil)

	require.True(t, h.guard.RequestPinEntry())
	require.NoError(t, h.guard.SubmitPin(context.Background(), "1234"))
	require.Equal(t, StateEmergencyActive, h.guard.State())

	h.guard.ObserveRemaining(0)
	assert.Equal(t, StateCompleted, h.guard.State())
	assert.Equal(t, time.Duration(0), h.guard.WindowRemaining())
}

func TestGuard_CompletedIsTerminalForPinEntry(t *testing.T) {
	h := newHarness(t, acceptPin, Config{})
	h.guard.Begin(strictSession(true), nil)
	h.guard.ObserveRemaining(0)

	assert.False(t, h.guard.RequestPinEntry())
	assert.ErrorIs(t, h.guard.SubmitPin(context.Background(), "1234"), ErrPinEntryNotOpen)
}

func TestGuard_CancelPinEntry(t *testing.T) {
	h := newHarness(t, acceptPin, Config{})
	h.guard.Begin(strictSession(true), nil)

	require.True(t, h.guard.RequestPinEntry())
	h.guard.CancelPinEntry()
	assert.Equal(t, StateLocked, h.guard.State())
}

func TestGuard_TriggerStrictEmergency(t *testing.T) {
	h := newHarness(t, acceptPin, Config{})
	h.guard.Begin(strictSession(true), nil)

	h.guard.TriggerStrictEmergency()

	deadline := time.After(time.Second)
	for len(h.backend.callLog()) == 0 {
		select {
		case <-deadline:
			t.Fatal("emergency exit call never happened")
		case <-time.After(time.Millisecond):
		}
	}
	assert.Equal(t, []string{"emergency_exit"}, h.backend.callLog())
	assert.Equal(t, StateLocked, h.guard.State(), "local state unchanged")
}

func TestGuard_NewSessionResetsCounter(t *testing.T) {
	h := newHarness(t, acceptPin, Config{})
	h.guard.Begin(strictSession(false), nil)
	h.guard.RequestPinEntry()
	require.Equal(t, 1, h.recorder.Count())

	next := strictSession(true)
	next.ID = "session-2"
	h.guard.Begin(next, nil)
	assert.Equal(t, 0, h.recorder.Count())
}
