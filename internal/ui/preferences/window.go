package preferences

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/widget"

	"focusguard/internal/intercept"
	"focusguard/internal/pin"
)

// Window handles the preferences UI.
type Window struct {
	window   fyne.Window
	settings Settings
	onSave   func(Settings)

	focusDur   *widget.Entry
	shortDur   *widget.Entry
	longDur    *widget.Entry
	cycles     *widget.Entry
	windowSecs *widget.Entry
	strict     *widget.Check
	emergency  *widget.Check
	idleCheck  *widget.Check
	opacity    *widget.Slider
	fullscreen *widget.Check
	autostart  *widget.Check

	comboLabel    *widget.Label
	captureButton *widget.Button
	capturing     bool
	tracker       *intercept.KeyTracker

	pinEntry *widget.Entry
	pinNote  *widget.Label
}

// New creates a preferences window.
func New(app fyne.App, settings Settings, onSave func(Settings)) *Window {
	window := app.NewWindow("FocusGuard Settings")

	focusDur := widget.NewEntry()
	shortDur := widget.NewEntry()
	longDur := widget.NewEntry()
	cycles := widget.NewEntry()
	windowSecs := widget.NewEntry()

	strict := widget.NewCheck("Strict mode (lock the screen during breaks)", nil)
	strict.SetChecked(settings.StrictMode)

	emergency := widget.NewCheck("Allow PIN-gated emergency override", nil)
	emergency.SetChecked(settings.AllowEmergency)

	idleCheck := widget.NewCheck("Enable idle tracking", nil)
	idleCheck.SetChecked(settings.IdleEnabled)

	opacity := widget.NewSlider(0.5, 1)
	opacity.Value = settings.OverlayOpacity
	opacity.Step = 0.01

	fullscreen := widget.NewCheck("Fullscreen overlay", nil)
	fullscreen.SetChecked(settings.Fullscreen)

	autostart := widget.NewCheck("Launch at login", nil)
	autostart.SetChecked(settings.Autostart)

	comboLabel := widget.NewLabel(comboText(settings))
	captureButton := widget.NewButton("Record combination", nil)

	pinEntry := widget.NewPasswordEntry()
	pinEntry.SetPlaceHolder("New emergency PIN (leave empty to keep)")
	pinNote := widget.NewLabel("")

	form := container.NewVBox(
		widget.NewLabelWithStyle("Cycle", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		container.NewHBox(widget.NewLabel("Focus period"), focusDur, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Short break"), shortDur, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Long break"), longDur, widget.NewLabel("min")),
		container.NewHBox(widget.NewLabel("Long break every"), cycles, widget.NewLabel("cycles")),
		widget.NewLabelWithStyle("Strict mode", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		strict,
		emergency,
		container.NewHBox(widget.NewLabel("Override window"), windowSecs, widget.NewLabel("sec")),
		container.NewHBox(widget.NewLabel("Emergency hotkey:"), comboLabel, captureButton),
		pinEntry,
		pinNote,
		widget.NewLabelWithStyle("Overlay", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		idleCheck,
		widget.NewLabel("Overlay opacity"),
		opacity,
		fullscreen,
		autostart,
	)

	saveButton := widget.NewButton("Save", nil)
	cancelButton := widget.NewButton("Cancel", nil)
	buttons := container.NewHBox(saveButton, layout.NewSpacer(), cancelButton)

	content := container.NewBorder(nil, buttons, nil, nil, form)
	window.SetContent(content)
	window.Resize(fyne.NewSize(460, 560))

	prefs := &Window{
		window:        window,
		settings:      settings,
		onSave:        onSave,
		focusDur:      focusDur,
		shortDur:      shortDur,
		longDur:       longDur,
		cycles:        cycles,
		windowSecs:    windowSecs,
		strict:        strict,
		emergency:     emergency,
		idleCheck:     idleCheck,
		opacity:       opacity,
		fullscreen:    fullscreen,
		autostart:     autostart,
		comboLabel:    comboLabel,
		captureButton: captureButton,
		tracker:       intercept.NewKeyTracker(),
		pinEntry:      pinEntry,
		pinNote:       pinNote,
	}
	prefs.applySettings(settings)

	saveButton.OnTapped = prefs.handleSave
	cancelButton.OnTapped = func() {
		prefs.stopCapture()
		window.Hide()
	}
	captureButton.OnTapped = prefs.toggleCapture

	return prefs
}

// Show displays the preferences window.
func (prefs *Window) Show() {
	prefs.window.Show()
	prefs.window.RequestFocus()
}

// UpdateSettings replaces window values.
func (prefs *Window) UpdateSettings(settings Settings) {
	prefs.settings = settings
	prefs.applySettings(settings)
}

func (prefs *Window) applySettings(settings Settings) {
	prefs.focusDur.SetText(fmt.Sprintf("%d", int(settings.FocusDuration.Minutes())))
	prefs.shortDur.SetText(fmt.Sprintf("%d", int(settings.ShortBreakDuration.Minutes())))
	prefs.longDur.SetText(fmt.Sprintf("%d", int(settings.LongBreakDuration.Minutes())))
	prefs.cycles.SetText(fmt.Sprintf("%d", settings.CyclesPerLongBreak))
	prefs.windowSecs.SetText(fmt.Sprintf("%d", int(settings.EmergencyWindow.Seconds())))
	prefs.strict.SetChecked(settings.StrictMode)
	prefs.emergency.SetChecked(settings.AllowEmergency)
	prefs.idleCheck.SetChecked(settings.IdleEnabled)
	prefs.opacity.Value = settings.OverlayOpacity
	prefs.opacity.Refresh()
	prefs.fullscreen.SetChecked(settings.Fullscreen)
	prefs.autostart.SetChecked(settings.Autostart)
	prefs.comboLabel.SetText(comboText(settings))
}

// toggleCapture starts or stops recording the emergency combination.
// While recording, the window's key events feed the tracker; the held set
// is reset at the start so stale keys never leak into a new combination.
func (prefs *Window) toggleCapture() {
	if prefs.capturing {
		prefs.finishCapture()
		return
	}
	prefs.capturing = true
	prefs.tracker.Reset()
	prefs.captureButton.SetText("Hold keys, then click to confirm")

	canvas := prefs.window.Canvas()
	if deskCanvas, ok := canvas.(interface {
		SetOnKeyDown(func(*fyne.KeyEvent))
		SetOnKeyUp(func(*fyne.KeyEvent))
	}); ok {
		deskCanvas.SetOnKeyDown(func(event *fyne.KeyEvent) {
			prefs.tracker.Press(string(event.Name))
			prefs.comboLabel.SetText(strings.Join(prefs.tracker.Held(), "+"))
		})
		deskCanvas.SetOnKeyUp(func(event *fyne.KeyEvent) {
			// Keep released keys in the label via the pending
			// combination; only live state leaves the tracker.
			prefs.tracker.Release(string(event.Name))
		})
	}
}

func (prefs *Window) finishCapture() {
	combo, ok := prefs.tracker.Combination()
	prefs.stopCapture()
	if !ok {
		prefs.comboLabel.SetText(comboText(prefs.settings))
		prefs.pinNote.SetText("Hold at least one modifier plus a key while confirming.")
		return
	}
	prefs.settings.EmergencyCombo = combo
	prefs.comboLabel.SetText(comboText(prefs.settings))
	prefs.pinNote.SetText("")
}

func (prefs *Window) stopCapture() {
	if !prefs.capturing {
		return
	}
	prefs.capturing = false
	prefs.captureButton.SetText("Record combination")
	canvas := prefs.window.Canvas()
	if deskCanvas, ok := canvas.(interface {
		SetOnKeyDown(func(*fyne.KeyEvent))
		SetOnKeyUp(func(*fyne.KeyEvent))
	}); ok {
		deskCanvas.SetOnKeyDown(nil)
		deskCanvas.SetOnKeyUp(nil)
	}
	prefs.tracker.Reset()
}

func (prefs *Window) handleSave() {
	prefs.stopCapture()
	settings := prefs.settings

	if minutes, ok := parsePositiveInt(prefs.focusDur.Text); ok {
		settings.FocusDuration = time.Duration(minutes) * time.Minute
	}
	if minutes, ok := parsePositiveInt(prefs.shortDur.Text); ok {
		settings.ShortBreakDuration = time.Duration(minutes) * time.Minute
	}
	if minutes, ok := parsePositiveInt(prefs.longDur.Text); ok {
		settings.LongBreakDuration = time.Duration(minutes) * time.Minute
	}
	if count, ok := parsePositiveInt(prefs.cycles.Text); ok {
		settings.CyclesPerLongBreak = count
	}
	if seconds, ok := parsePositiveInt(prefs.windowSecs.Text); ok {
		settings.EmergencyWindow = time.Duration(seconds) * time.Second
	}

	settings.StrictMode = prefs.strict.Checked
	settings.AllowEmergency = prefs.emergency.Checked
	settings.IdleEnabled = prefs.idleCheck.Checked
	settings.OverlayOpacity = prefs.opacity.Value
	settings.Fullscreen = prefs.fullscreen.Checked
	settings.Autostart = prefs.autostart.Checked

	if pinValue := prefs.pinEntry.Text; pinValue != "" {
		credential, err := pin.New(pinValue)
		if err != nil {
			prefs.pinNote.SetText(err.Error())
			return
		}
		settings.PinCredential = credential
		prefs.pinEntry.SetText("")
	}

	if err := settings.Validate(); err != nil {
		prefs.pinNote.SetText(err.Error())
		return
	}

	prefs.settings = settings
	prefs.pinNote.SetText("")
	if prefs.onSave != nil {
		prefs.onSave(settings)
	}
	prefs.window.Hide()
}

func comboText(settings Settings) string {
	combo := settings.EmergencyCombo
	if combo.IsZero() {
		return "not set"
	}
	parts := make([]string, 0, len(combo.Modifiers)+1)
	for _, modifier := range combo.Modifiers {
		parts = append(parts, string(modifier))
	}
	parts = append(parts, combo.Key)
	return strings.Join(parts, "+")
}

func parsePositiveInt(value string) (int, bool) {
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return 0, false
	}
	return parsed, true
}
