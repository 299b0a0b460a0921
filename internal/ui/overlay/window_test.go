package overlay

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusguard/internal/audit"
	"focusguard/internal/core/lockout"
	"focusguard/internal/core/model"
)

type recordingSink struct {
	mu      sync.Mutex
	methods []string
}

func (sink *recordingSink) LogBypassAttempt(_ context.Context, attempt audit.Attempt) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	sink.methods = append(sink.methods, attempt.Method)
	return nil
}

func (sink *recordingSink) all() []string {
	sink.mu.Lock()
	defer sink.mu.Unlock()
	return append([]string(nil), sink.methods...)
}

type overlayHarness struct {
	overlay  *Window
	guard    *lockout.Guard
	recorder *audit.Recorder
	sink     *recordingSink
}

type noopBackend struct{}

func (noopBackend) EmergencyExitStrictMode() error { return nil }
func (noopBackend) HideBreakOverlay() error        { return nil }

func newOverlayHarness(t *testing.T) *overlayHarness {
	t.Helper()
	app := test.NewApp()
	sink := &recordingSink{}
	recorder := audit.NewRecorder(sink, nil)
	guard := lockout.New(noopBackend{}, func(context.Context, string) (bool, error) {
		return true, nil
	}, recorder, lockout.Config{WindowDuration: 45 * time.Second, TickInterval: time.Hour}, nil)

	overlay := New(app, Config{Opacity: 200, Fullscreen: false}, guard, recorder,
		NewMessagePicker(rand.New(rand.NewSource(1))))
	t.Cleanup(overlay.window.Close)

	return &overlayHarness{overlay: overlay, guard: guard, recorder: recorder, sink: sink}
}

func overlaySession() model.BreakSession {
	return model.BreakSession{
		ID:             "session-ui-1",
		Kind:           model.BreakShort,
		Duration:       5 * time.Minute,
		Remaining:      5 * time.Minute,
		AllowEmergency: true,
	}
}

func overlayCombo() model.KeyCombination {
	return model.KeyCombination{
		Modifiers: []model.Modifier{model.ModCmd, model.ModShift},
		Key:       "e",
	}
}

// tapCenter taps the canvas at the object's center, going through the
// canvas hit-test the way a real click does.
func tapCenter(t *testing.T, window fyne.Window, object fyne.CanvasObject) {
	t.Helper()
	position := fyne.CurrentApp().Driver().AbsolutePositionForObject(object)
	size := object.Size()
	test.TapCanvas(window.Canvas(), position.Add(fyne.NewPos(size.Width/2, size.Height/2)))
}

func TestWindow_StrictClickRecorded(t *testing.T) {
	h := newOverlayHarness(t)
	h.guard.Begin(overlaySession(), nil)
	h.overlay.Show(overlaySession(), true, overlayCombo())

	require.True(t, h.overlay.block.Visible(), "strict mode keeps the blocker in the hit-test")
	test.TapCanvas(h.overlay.window.Canvas(), fyne.NewPos(10, 10))

	h.recorder.Flush()
	assert.Equal(t, []string{"mouse_blocked_click"}, h.sink.all())
	assert.Equal(t, 1, h.recorder.Count())
}

func TestWindow_SkipButtonUsableWhenNotStrict(t *testing.T) {
	h := newOverlayHarness(t)
	skipped := false
	h.overlay.SetOnSkip(func() { skipped = true })

	h.guard.Begin(overlaySession(), nil)
	h.overlay.Show(overlaySession(), false, overlayCombo())

	require.False(t, h.overlay.block.Visible(), "inactive blocker must leave the hit-test")
	tapCenter(t, h.overlay.window, h.overlay.skipButton)

	assert.True(t, skipped, "skip tap must reach the button")
	h.recorder.Flush()
	assert.Empty(t, h.sink.all(), "nothing is recorded outside strict enforcement")
}

func TestWindow_ResumeButtonUsableDuringEmergency(t *testing.T) {
	h := newOverlayHarness(t)
	h.guard.Begin(overlaySession(), nil)
	h.overlay.Show(overlaySession(), true, overlayCombo())

	require.True(t, h.guard.RequestPinEntry())
	require.NoError(t, h.guard.SubmitPin(context.Background(), "4812"))
	require.Equal(t, lockout.StateEmergencyActive, h.guard.State())

	// The guard event reaches the overlay asynchronously.
	require.Eventually(t, func() bool {
		return h.overlay.emergencyBox.Visible() && !h.overlay.block.Visible()
	}, 2*time.Second, 5*time.Millisecond, "emergency view never appeared")

	tapCenter(t, h.overlay.window, h.overlay.resumeButton)

	assert.Equal(t, lockout.StateLocked, h.guard.State(), "resume tap must reach the button")
}
