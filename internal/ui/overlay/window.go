package overlay

import (
	"context"
	"fmt"
	"image/color"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"focusguard/internal/audit"
	"focusguard/internal/core/lockout"
	"focusguard/internal/core/model"
	"focusguard/internal/intercept"
)

// Config defines overlay visuals.
type Config struct {
	Opacity    uint8
	Fullscreen bool
}

// Window manages the break overlay: the lock surface in strict mode, the
// PIN modal, and the emergency countdown view.
type Window struct {
	app      fyne.App
	window   fyne.Window
	config   Config
	guard    *lockout.Guard
	recorder *audit.Recorder
	picker   *MessagePicker

	background   *canvas.Rectangle
	titleLabel   *canvas.Text
	messageLabel *canvas.Text
	timerLabel   *canvas.Text
	attemptLabel *canvas.Text
	skipButton   *widget.Button
	resumeButton *widget.Button
	emergencyBox *fyne.Container
	windowLabel  *canvas.Text
	block        *blocker

	pinPopup *widget.PopUp
	pinEntry *widget.Entry
	pinError *widget.Label

	combo       model.KeyCombination
	tracker     *intercept.KeyTracker
	interceptor *intercept.Interceptor
	capture     *inputCapture

	onSkip  func()
	strict  bool
	showing bool
}

const (
	overlayWidthFraction  = float32(0.22)
	overlayHeightFraction = float32(0.16)
)

type splashWindowDriver interface {
	CreateSplashWindow() fyne.Window
}

// New creates the overlay window and subscribes it to the lockout guard.
func New(app fyne.App, config Config, guard *lockout.Guard, recorder *audit.Recorder, picker *MessagePicker) *Window {
	window := app.NewWindow("FocusGuard")
	if driver, ok := app.Driver().(splashWindowDriver); ok {
		// Splash window is undecorated (no native frame/buttons).
		window = driver.CreateSplashWindow()
	}
	window.SetPadded(false)

	overlay := &Window{
		app:      app,
		window:   window,
		config:   config,
		guard:    guard,
		recorder: recorder,
		picker:   picker,
		tracker:  intercept.NewKeyTracker(),
	}

	overlay.background = canvas.NewRectangle(color.NRGBA{A: config.Opacity})

	overlay.titleLabel = canvas.NewText("FocusGuard", color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	overlay.titleLabel.TextStyle = fyne.TextStyle{Bold: true}
	overlay.titleLabel.TextSize = 24
	overlay.titleLabel.Alignment = fyne.TextAlignCenter

	overlay.messageLabel = canvas.NewText("", color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	overlay.messageLabel.TextSize = 16
	overlay.messageLabel.Alignment = fyne.TextAlignCenter

	overlay.timerLabel = canvas.NewText("--:--", color.NRGBA{R: 232, G: 190, B: 66, A: 255})
	overlay.timerLabel.TextStyle = fyne.TextStyle{Bold: true}
	overlay.timerLabel.TextSize = 40
	overlay.timerLabel.Alignment = fyne.TextAlignCenter

	overlay.attemptLabel = canvas.NewText("", color.NRGBA{R: 255, G: 120, B: 120, A: 255})
	overlay.attemptLabel.TextSize = 13
	overlay.attemptLabel.Alignment = fyne.TextAlignCenter

	overlay.windowLabel = canvas.NewText("", color.NRGBA{R: 120, G: 220, B: 120, A: 255})
	overlay.windowLabel.TextStyle = fyne.TextStyle{Bold: true}
	overlay.windowLabel.TextSize = 28
	overlay.windowLabel.Alignment = fyne.TextAlignCenter

	overlay.skipButton = widget.NewButton("Skip break", func() {
		if overlay.onSkip != nil {
			overlay.onSkip()
		}
	})

	overlay.resumeButton = widget.NewButton("Resume break now", func() {
		overlay.guard.ResumeNow()
	})
	emergencyTitle := widget.NewLabel("Emergency override active")
	overlay.emergencyBox = container.NewVBox(emergencyTitle, overlay.windowLabel, overlay.resumeButton)
	overlay.emergencyBox.Hide()

	content := container.NewCenter(container.NewVBox(
		overlay.titleLabel,
		overlay.messageLabel,
		overlay.timerLabel,
		overlay.attemptLabel,
		overlay.emergencyBox,
		overlay.skipButton,
	))

	overlay.block = newBlocker(overlay.handleMouse)
	root := container.NewStack(overlay.background, content, overlay.block)
	window.SetContent(root)

	overlay.capture = newInputCapture(window, overlay.handleKeyDown, overlay.handleKeyUp, overlay.handleCloseAttempt)
	overlay.buildPinModal()

	go overlay.watchGuard(guard.Subscribe(16))

	return overlay
}

// SetOnSkip sets the non-strict skip handler.
func (overlay *Window) SetOnSkip(handler func()) {
	overlay.onSkip = handler
}

// UpdateConfig updates overlay visuals.
func (overlay *Window) UpdateConfig(config Config) {
	overlay.config = config
	overlay.background.FillColor = color.NRGBA{A: config.Opacity}
	canvas.Refresh(overlay.background)
}

// Show starts enforcing for the given session. The key combination is
// fixed for the whole session.
func (overlay *Window) Show(session model.BreakSession, strict bool, combo model.KeyCombination) {
	overlay.strict = strict
	overlay.showing = true
	overlay.combo = combo
	overlay.tracker.Reset()
	overlay.interceptor = intercept.New(combo, overlay.recordBypass, overlay.guard.TriggerStrictEmergency)

	overlay.messageLabel.Text = overlay.picker.Pick(strict)
	overlay.messageLabel.Refresh()
	overlay.setRemaining(session.Remaining)
	overlay.refreshAttempts()
	overlay.emergencyBox.Hide()

	if strict {
		overlay.skipButton.Hide()
		overlay.block.setActive(true)
		overlay.capture.Attach()
	} else {
		overlay.skipButton.Show()
		overlay.block.setActive(false)
		overlay.capture.Detach()
		overlay.window.Canvas().SetOnTypedKey(overlay.handleTypedKeyNormal)
		overlay.window.SetCloseIntercept(func() {
			if overlay.onSkip != nil {
				overlay.onSkip()
			}
		})
	}

	overlay.applyWindowMode(overlay.config.Fullscreen)
	overlay.window.Show()
	overlay.window.RequestFocus()
}

// Hide dismisses the overlay and releases every input hook.
func (overlay *Window) Hide() {
	overlay.showing = false
	overlay.capture.Detach()
	overlay.window.Canvas().SetOnTypedKey(nil)
	overlay.block.setActive(false)
	overlay.hidePinModal()
	if overlay.config.Fullscreen {
		overlay.window.SetFullScreen(false)
	}
	overlay.window.Hide()
}

// SetRemaining updates the break countdown label.
func (overlay *Window) SetRemaining(remaining time.Duration) {
	fyne.Do(func() {
		overlay.setRemaining(remaining)
	})
}

func (overlay *Window) setRemaining(remaining time.Duration) {
	overlay.timerLabel.Text = formatDuration(remaining)
	overlay.timerLabel.Refresh()
}

func (overlay *Window) recordBypass(method intercept.Method) {
	overlay.recorder.Record(string(method))
	fyne.Do(overlay.refreshAttempts)
}

func (overlay *Window) refreshAttempts() {
	count := overlay.recorder.Count()
	if count == 0 {
		overlay.attemptLabel.Text = ""
	} else {
		overlay.attemptLabel.Text = fmt.Sprintf("%d blocked attempt(s) this break", count)
	}
	overlay.attemptLabel.Refresh()
}

func (overlay *Window) handleKeyDown(event *fyne.KeyEvent) {
	if modifier, ok := modifierForKeyName(event.Name); ok {
		overlay.tracker.Press(string(modifier))
	}
	// Keystrokes that belong to PIN entry are not bypass attempts.
	if overlay.guard.State() == lockout.StateEmergencyPinPending {
		return
	}
	overlay.interceptor.KeyDown(overlay.keyEvent(event))
}

func (overlay *Window) handleKeyUp(event *fyne.KeyEvent) {
	if modifier, ok := modifierForKeyName(event.Name); ok {
		overlay.tracker.Release(string(modifier))
	}
	if overlay.guard.State() == lockout.StateEmergencyPinPending {
		return
	}
	overlay.interceptor.KeyUp(overlay.keyEvent(event))
}

func (overlay *Window) keyEvent(event *fyne.KeyEvent) intercept.KeyEvent {
	return intercept.KeyEvent{
		Key:   string(event.Name),
		Cmd:   overlay.tracker.Holds(string(model.ModCmd)),
		Ctrl:  overlay.tracker.Holds(string(model.ModCtrl)),
		Alt:   overlay.tracker.Holds(string(model.ModAlt)),
		Shift: overlay.tracker.Holds(string(model.ModShift)),
	}
}

func (overlay *Window) handleMouse(event intercept.MouseEvent) {
	overlay.interceptor.Mouse(event)
}

func (overlay *Window) handleCloseAttempt() {
	if overlay.interceptor != nil {
		overlay.interceptor.WindowClose()
	}
}

// handleTypedKeyNormal is the non-strict key handler: only Escape is
// meaningful, and only as the emergency entry request.
func (overlay *Window) handleTypedKeyNormal(event *fyne.KeyEvent) {
	if event.Name != fyne.KeyEscape {
		return
	}
	if overlay.guard.RequestPinEntry() {
		return
	}
	// Denied: the guard already recorded the bypass; reflect the counter.
	fyne.Do(overlay.refreshAttempts)
}

func (overlay *Window) buildPinModal() {
	overlay.pinEntry = widget.NewPasswordEntry()
	overlay.pinEntry.SetPlaceHolder("Emergency PIN")
	overlay.pinError = widget.NewLabel("")

	submit := widget.NewButton("Unlock", overlay.submitPin)
	cancelButton := widget.NewButton("Cancel", func() {
		overlay.guard.CancelPinEntry()
	})
	overlay.pinEntry.OnSubmitted = func(string) { overlay.submitPin() }

	content := container.NewVBox(
		widget.NewLabelWithStyle("Emergency override", fyne.TextAlignCenter, fyne.TextStyle{Bold: true}),
		overlay.pinEntry,
		overlay.pinError,
		container.NewHBox(submit, cancelButton),
	)
	overlay.pinPopup = widget.NewModalPopUp(content, overlay.window.Canvas())
}

func (overlay *Window) submitPin() {
	pinValue := overlay.pinEntry.Text
	go func() {
		// In-flight and stale submissions come back as sentinel errors
		// and are dropped; the guard serializes verification calls.
		_ = overlay.guard.SubmitPin(context.Background(), pinValue)
	}()
}

func (overlay *Window) showPinModal() {
	overlay.pinError.SetText("")
	overlay.pinEntry.SetText("")
	overlay.pinPopup.Show()
	overlay.window.Canvas().Focus(overlay.pinEntry)
}

func (overlay *Window) hidePinModal() {
	overlay.pinPopup.Hide()
}

func (overlay *Window) watchGuard(events <-chan lockout.Event) {
	for event := range events {
		overlay.applyGuardEvent(event)
	}
}

func (overlay *Window) applyGuardEvent(event lockout.Event) {
	fyne.Do(func() {
		if !overlay.showing {
			return
		}
		switch event.Type {
		case lockout.EventStateChange:
			overlay.applyStateChange(event)
		case lockout.EventWindowTick:
			overlay.windowLabel.Text = formatDuration(event.Remaining)
			overlay.windowLabel.Refresh()
		case lockout.EventPinRejected:
			overlay.pinEntry.SetText("")
			overlay.pinError.SetText(event.Message)
		}
	})
}

func (overlay *Window) applyStateChange(event lockout.Event) {
	switch event.State {
	case lockout.StateEmergencyPinPending:
		overlay.showPinModal()
	case lockout.StateEmergencyActive:
		overlay.hidePinModal()
		overlay.enterEmergencyView(event.Remaining)
	case lockout.StateLocked:
		overlay.hidePinModal()
		overlay.enterLockedView()
	case lockout.StateCompleted:
		// Teardown happens through the backend unlock call.
	}
}

// enterEmergencyView suspends enforcement: the overlay shrinks to a small
// countdown so the desktop is usable until the window expires.
func (overlay *Window) enterEmergencyView(remaining time.Duration) {
	overlay.capture.Detach()
	overlay.block.setActive(false)
	overlay.windowLabel.Text = formatDuration(remaining)
	overlay.windowLabel.Refresh()
	overlay.emergencyBox.Show()
	overlay.applyWindowMode(false)
}

func (overlay *Window) enterLockedView() {
	overlay.emergencyBox.Hide()
	if overlay.strict {
		overlay.block.setActive(true)
		overlay.capture.Attach()
	}
	overlay.applyWindowMode(overlay.config.Fullscreen)
	overlay.window.RequestFocus()
}

func (overlay *Window) applyWindowMode(fullscreen bool) {
	if fullscreen {
		overlay.window.SetFullScreen(true)
		return
	}
	overlay.window.SetFullScreen(false)
	overlay.resizeToScreenFraction()
}

func (overlay *Window) resizeToScreenFraction() {
	screenSize := fyne.NewSize(1920, 1080)
	canvasSize := overlay.window.Canvas().Size()
	// Canvas size can be reused as a proxy for monitor size when it is
	// clearly screen-like.
	if canvasSize.Width >= 1024 && canvasSize.Height >= 720 {
		screenSize = canvasSize
	}

	width := screenSize.Width * overlayWidthFraction
	height := screenSize.Height * overlayHeightFraction
	minSize := overlay.window.Content().MinSize()
	if width < minSize.Width {
		width = minSize.Width
	}
	if height < minSize.Height {
		height = minSize.Height
	}

	overlay.window.Resize(fyne.NewSize(width, height))
	overlay.window.CenterOnScreen()
}

func modifierForKeyName(name fyne.KeyName) (model.Modifier, bool) {
	switch name {
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		return model.ModCmd, true
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		return model.ModCtrl, true
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return model.ModAlt, true
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		return model.ModShift, true
	}
	return "", false
}

func formatDuration(value time.Duration) string {
	if value < 0 {
		value = 0
	}
	seconds := int(value.Seconds())
	minutes := seconds / 60
	seconds = seconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
