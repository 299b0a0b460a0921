package overlay

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
)

// inputCapture owns the window-level key hooks and the close intercept as
// one scoped resource: Attach installs them exactly once, Detach removes
// them on every exit path. At most one active set of hooks exists per
// window, so re-entering strict mode never doubles suppression or logging.
type inputCapture struct {
	window    fyne.Window
	onKeyDown func(*fyne.KeyEvent)
	onKeyUp   func(*fyne.KeyEvent)
	onClose   func()
	attached  bool
}

func newInputCapture(window fyne.Window, onKeyDown, onKeyUp func(*fyne.KeyEvent), onClose func()) *inputCapture {
	return &inputCapture{
		window:    window,
		onKeyDown: onKeyDown,
		onKeyUp:   onKeyUp,
		onClose:   onClose,
	}
}

// Attach installs the hooks. Idempotent.
func (capture *inputCapture) Attach() {
	if capture.attached {
		return
	}
	capture.attached = true

	if deskCanvas, ok := capture.window.Canvas().(desktop.Canvas); ok {
		deskCanvas.SetOnKeyDown(capture.onKeyDown)
		deskCanvas.SetOnKeyUp(capture.onKeyUp)
	}
	// Swallow typed keys too; printable characters would otherwise reach
	// focused widgets.
	capture.window.Canvas().SetOnTypedKey(func(*fyne.KeyEvent) {})
	capture.window.SetCloseIntercept(capture.onClose)
}

// Detach removes the hooks. Idempotent.
func (capture *inputCapture) Detach() {
	if !capture.attached {
		return
	}
	capture.attached = false

	if deskCanvas, ok := capture.window.Canvas().(desktop.Canvas); ok {
		deskCanvas.SetOnKeyDown(nil)
		deskCanvas.SetOnKeyUp(nil)
	}
	capture.window.Canvas().SetOnTypedKey(nil)
	capture.window.SetCloseIntercept(func() {
		capture.window.Hide()
	})
}
