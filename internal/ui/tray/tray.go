package tray

import (
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"

	"focusguard/internal/core/model"
)

// Callbacks defines tray action handlers.
type Callbacks struct {
	OnPreferences func()
	OnTogglePause func()
	OnSkipBreak   func()
	OnPauseFor    func(time.Duration)
	OnForceBreak  func(model.BreakKind)
	OnQuit        func()
}

// Manager handles system tray state.
type Manager struct {
	app         desktop.App
	statusItem  *fyne.MenuItem
	pauseItem   *fyne.MenuItem
	skipItem    *fyne.MenuItem
	pauseFor    *fyne.MenuItem
	forceBreak  *fyne.MenuItem
	callbacks   Callbacks
	paused      bool
	inBreak     bool
	strictBreak bool
	statusLabel string
}

// New creates a tray manager with the provided callbacks.
func New(app desktop.App, callbacks Callbacks) *Manager {
	manager := &Manager{
		app:       app,
		callbacks: callbacks,
	}

	manager.statusItem = fyne.NewMenuItem("Status: starting...", nil)
	manager.statusItem.Disabled = true

	manager.pauseFor = fyne.NewMenuItem("Disable cycles for...", nil)
	var pauseChildren []*fyne.MenuItem
	for _, minutes := range []int{5, 15, 30, 60} {
		duration := time.Duration(minutes) * time.Minute
		label := fmt.Sprintf("%d minutes", minutes)
		pauseChildren = append(pauseChildren, fyne.NewMenuItem(label, func() {
			if manager.callbacks.OnPauseFor != nil {
				manager.callbacks.OnPauseFor(duration)
			}
		}))
	}
	manager.pauseFor.ChildMenu = fyne.NewMenu("", pauseChildren...)

	manager.forceBreak = fyne.NewMenuItem("Take a break now", nil)
	manager.forceBreak.ChildMenu = fyne.NewMenu("",
		fyne.NewMenuItem("Short break", func() {
			if manager.callbacks.OnForceBreak != nil {
				manager.callbacks.OnForceBreak(model.BreakShort)
			}
		}),
		fyne.NewMenuItem("Long break", func() {
			if manager.callbacks.OnForceBreak != nil {
				manager.callbacks.OnForceBreak(model.BreakLong)
			}
		}),
	)

	manager.pauseItem = fyne.NewMenuItem("Pause", func() {
		if manager.callbacks.OnTogglePause != nil {
			manager.callbacks.OnTogglePause()
		}
	})

	manager.skipItem = fyne.NewMenuItem("Skip break", func() {
		if manager.callbacks.OnSkipBreak != nil {
			manager.callbacks.OnSkipBreak()
		}
	})
	manager.skipItem.Disabled = true

	manager.refreshMenu()

	return manager
}

// SetStatus updates the status label.
func (manager *Manager) SetStatus(status string) {
	manager.statusLabel = status
	manager.refreshStatus()
}

// SetPaused updates pause state.
func (manager *Manager) SetPaused(paused bool) {
	manager.paused = paused
	if paused {
		manager.pauseItem.Label = "Resume"
	} else {
		manager.pauseItem.Label = "Pause"
	}
	manager.refreshStatus()
	manager.refreshMenu()
}

// SetInBreak toggles break-related menu items. A strict break keeps the
// skip entry disabled; the tray is not an escape hatch.
func (manager *Manager) SetInBreak(inBreak, strict bool) {
	manager.inBreak = inBreak
	manager.strictBreak = strict
	manager.skipItem.Disabled = !inBreak || strict
	manager.refreshMenu()
}

func (manager *Manager) refreshStatus() {
	status := manager.statusLabel
	if manager.paused {
		status = fmt.Sprintf("%s (paused)", status)
	}
	manager.statusItem.Label = fmt.Sprintf("Status: %s", status)
	manager.refreshMenu()
}

func (manager *Manager) refreshMenu() {
	if manager.app != nil {
		manager.app.SetSystemTrayMenu(fyne.NewMenu("FocusGuard",
			manager.statusItem,
			fyne.NewMenuItem("Preferences", func() {
				if manager.callbacks.OnPreferences != nil {
					manager.callbacks.OnPreferences()
				}
			}),
			manager.pauseFor,
			manager.forceBreak,
			manager.pauseItem,
			manager.skipItem,
			fyne.NewMenuItem("Quit", func() {
				if manager.callbacks.OnQuit != nil {
					manager.callbacks.OnQuit()
				}
			}),
		))
	}
}
