package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusguard/internal/core/model"
)

func testConfig() model.SchedulerConfig {
	return model.SchedulerConfig{
		FocusDuration:      3 * time.Second,
		ShortBreakDuration: 2 * time.Second,
		LongBreakDuration:  4 * time.Second,
		CyclesPerLongBreak: 2,
		StrictMode:         true,
		AllowEmergency:     true,
	}
}

func collectStateChanges(t *testing.T, events <-chan Event, count int) []Event {
	t.Helper()
	var changes []Event
	deadline := time.After(5 * time.Second)
	for len(changes) < count {
		select {
		case event, ok := <-events:
			if !ok {
				t.Fatalf("event channel closed after %d state changes", len(changes))
			}
			if event.Type == EventStateChange {
				changes = append(changes, event)
			}
		case <-deadline:
			t.Fatalf("timed out after %d state changes, want %d", len(changes), count)
		}
	}
	return changes
}

func TestScheduler_LongBreakEveryNthCycle(t *testing.T) {
	scheduler := New(testConfig(), Config{TickInterval: time.Millisecond})
	events := scheduler.Subscribe(256)
	scheduler.Start()
	defer scheduler.Stop()

	// focus, short(1), focus, long(2), focus
	changes := collectStateChanges(t, events, 5)

	assert.Equal(t, StateFocus, changes[0].State)
	assert.Equal(t, StateShortBreak, changes[1].State)
	assert.Equal(t, 1, changes[1].CycleCount)
	assert.Equal(t, StateFocus, changes[2].State)
	assert.Equal(t, StateLongBreak, changes[3].State)
	assert.Equal(t, 2, changes[3].CycleCount)
	assert.Equal(t, StateFocus, changes[4].State)
}

func TestScheduler_BreakSessionShape(t *testing.T) {
	scheduler := New(testConfig(), Config{TickInterval: time.Millisecond})
	events := scheduler.Subscribe(256)
	scheduler.Start()
	defer scheduler.Stop()

	changes := collectStateChanges(t, events, 4)

	short := changes[1]
	require.Equal(t, StateShortBreak, short.State)
	assert.NotEmpty(t, short.Session.ID)
	assert.Equal(t, model.BreakShort, short.Session.Kind)
	assert.Equal(t, 2*time.Second, short.Session.Duration)
	assert.True(t, short.Session.AllowEmergency)
	assert.True(t, short.StrictMode)

	long := changes[3]
	require.Equal(t, StateLongBreak, long.State)
	assert.Equal(t, model.BreakLong, long.Session.Kind)
	assert.Equal(t, 4*time.Second, long.Session.Duration)
	assert.NotEqual(t, short.Session.ID, long.Session.ID, "each break gets a fresh session")
}

func TestScheduler_BreakRemainingReachesZero(t *testing.T) {
	scheduler := New(testConfig(), Config{TickInterval: time.Millisecond})
	events := scheduler.Subscribe(256)
	scheduler.Start()
	defer scheduler.Stop()

	var sawZero bool
	deadline := time.After(5 * time.Second)
	inBreak := false
	for !sawZero {
		select {
		case event, ok := <-events:
			require.True(t, ok)
			switch event.Type {
			case EventStateChange:
				inBreak = event.State == StateShortBreak || event.State == StateLongBreak
			case EventProgress:
				if inBreak && event.Remaining == 0 {
					sawZero = true
				}
			}
		case <-deadline:
			t.Fatal("never observed break remaining reach zero")
		}
	}
}

func TestScheduler_SkipBreakReturnsToFocus(t *testing.T) {
	scheduler := New(testConfig(), Config{TickInterval: time.Hour})
	scheduler.Start()
	defer scheduler.Stop()

	scheduler.ForceBreak(model.BreakShort)
	// ForceBreak only works from focus; the hour tick never fired so we
	// are still where Start left us.
	scheduler.SkipBreak()
	assert.Equal(t, 0, scheduler.CycleCount())
}

func TestScheduler_PauseBlocksTicks(t *testing.T) {
	scheduler := New(testConfig(), Config{TickInterval: time.Millisecond})
	events := scheduler.Subscribe(64)
	scheduler.Start()
	defer scheduler.Stop()

	scheduler.Pause()

	// Drain whatever was emitted before the pause landed.
	drainDeadline := time.After(50 * time.Millisecond)
drain:
	for {
		select {
		case <-events:
		case <-drainDeadline:
			break drain
		}
	}

	select {
	case event := <-events:
		t.Fatalf("unexpected event while paused: %+v", event)
	case <-time.After(50 * time.Millisecond):
	}

	scheduler.Resume()
	select {
	case event := <-events:
		assert.Equal(t, EventStateChange, event.Type)
	case <-time.After(time.Second):
		t.Fatal("no event after resume")
	}
}

func TestScheduler_DefaultsApplied(t *testing.T) {
	config := model.SchedulerConfig{FocusDuration: time.Minute}
	scheduler := New(config, Config{})
	assert.Equal(t, 4, scheduler.config.CyclesPerLongBreak)
	assert.Equal(t, 5*time.Second, scheduler.config.IdleCheckInterval)
	assert.Equal(t, time.Second, scheduler.options.TickInterval)
}
