package overlay

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"focusguard/internal/intercept"
)

// blocker is a transparent full-window widget that swallows the click
// family while strict mode is active. Each swallowed event is reported to
// the interception layer; hover movement is deliberately not, so the
// cursor stays live.
type blocker struct {
	widget.BaseWidget
	onEvent func(intercept.MouseEvent)
	active  bool
}

var _ fyne.Tappable = (*blocker)(nil)
var _ fyne.SecondaryTappable = (*blocker)(nil)
var _ fyne.DoubleTappable = (*blocker)(nil)
var _ desktop.Mouseable = (*blocker)(nil)
var _ desktop.Hoverable = (*blocker)(nil)

func newBlocker(onEvent func(intercept.MouseEvent)) *blocker {
	block := &blocker{onEvent: onEvent}
	block.ExtendBaseWidget(block)
	block.Hide()
	return block
}

// setActive toggles enforcement. The widget sits on top of the whole
// stack, so it must leave the hit-test entirely when inactive; otherwise
// it would swallow clicks meant for the overlay's own buttons.
func (block *blocker) setActive(active bool) {
	block.active = active
	if active {
		block.Show()
	} else {
		block.Hide()
	}
}

func (block *blocker) report(event intercept.MouseEvent) {
	if block.active && block.onEvent != nil {
		block.onEvent(event)
	}
}

func (block *blocker) Tapped(*fyne.PointEvent) {
	block.report(intercept.MouseClick)
}

func (block *blocker) TappedSecondary(*fyne.PointEvent) {
	block.report(intercept.MouseContextMenu)
}

func (block *blocker) DoubleTapped(*fyne.PointEvent) {
	block.report(intercept.MouseDoubleClick)
}

func (block *blocker) MouseDown(*desktop.MouseEvent) {
	block.report(intercept.MouseDown)
}

func (block *blocker) MouseUp(*desktop.MouseEvent) {
	block.report(intercept.MouseUp)
}

func (block *blocker) MouseIn(*desktop.MouseEvent)    {}
func (block *blocker) MouseMoved(*desktop.MouseEvent) {}
func (block *blocker) MouseOut()                      {}

func (block *blocker) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(color.Transparent)
	return widget.NewSimpleRenderer(rect)
}
