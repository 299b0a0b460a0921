package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"time"

	"focusguard/internal/audit"
	"focusguard/internal/core/lockout"
	"focusguard/internal/core/model"
	"focusguard/internal/core/scheduler"
	"focusguard/internal/platform"
	"focusguard/internal/storage"
	"focusguard/internal/ui/overlay"
	"focusguard/internal/ui/preferences"
	"focusguard/internal/ui/tray"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"
)

const appName = "FocusGuard"

// appBackend lets the lockout core dismiss the overlay and end the break
// without importing UI packages.
type appBackend struct {
	overlayWindow *overlay.Window
	breaks        *scheduler.Scheduler
}

func (backend *appBackend) EmergencyExitStrictMode() error {
	backend.breaks.SkipBreak()
	fyne.Do(func() {
		backend.overlayWindow.Hide()
	})
	return nil
}

func (backend *appBackend) HideBreakOverlay() error {
	fyne.Do(func() {
		backend.overlayWindow.Hide()
	})
	return nil
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	instance, err := platform.AcquireSingleInstance(appName)
	if err != nil {
		log.Printf("single instance: %v", err)
		return
	}
	defer func() {
		_ = instance.Release()
	}()

	fyneApp := app.NewWithID("com.focusguard.app")
	desktopApp, ok := fyneApp.(desktop.App)
	if !ok {
		log.Printf("system tray unsupported on this platform")
		return
	}

	trayWindow := fyneApp.NewWindow(appName)
	trayWindow.SetContent(widget.NewLabel("FocusGuard is running in the system tray."))
	trayWindow.SetCloseIntercept(func() {
		trayWindow.Hide()
	})
	trayWindow.Hide()
	desktopApp.SetSystemTrayWindow(trayWindow)

	var settingsMu sync.Mutex
	settings, err := storage.LoadSettings(appName)
	if err != nil {
		logger.Warn("loading settings failed, using defaults", "error", err)
	}

	var sink audit.Sink
	dbPath, err := storage.AuditDBPath(appName)
	if err == nil {
		sqliteSink, sinkErr := audit.NewSQLiteSink(dbPath)
		if sinkErr == nil {
			sink = sqliteSink
			defer func() {
				_ = sqliteSink.Close()
			}()
		} else {
			err = sinkErr
		}
	}
	if sink == nil {
		logger.Warn("bypass audit store unavailable, attempts counted only", "error", err)
	}
	recorder := audit.NewRecorder(sink, logger)

	breaks := scheduler.New(settings.SchedulerConfig(), scheduler.Config{TickInterval: time.Second})
	breaks.SetIdleChecker(platform.NewIdleProvider())

	verify := func(ctx context.Context, pinValue string) (bool, error) {
		settingsMu.Lock()
		credential := settings.PinCredential
		settingsMu.Unlock()
		return credential.Verify(pinValue)
	}

	backend := &appBackend{breaks: breaks}
	guard := lockout.New(backend, verify, recorder, lockout.Config{
		WindowDuration: settings.EmergencyWindow,
		TickInterval:   time.Second,
	}, logger)

	picker := overlay.NewMessagePicker(rand.New(rand.NewSource(time.Now().UnixNano())))
	overlayWindow := overlay.New(fyneApp, overlay.Config{
		Opacity:    opacityToAlpha(settings.OverlayOpacity),
		Fullscreen: settings.Fullscreen,
	}, guard, recorder, picker)
	backend.overlayWindow = overlayWindow

	overlayWindow.SetOnSkip(func() {
		breaks.SkipBreak()
	})

	isPaused := false
	var pauseTimer *time.Timer

	started := false
	prefsWindow := preferences.New(fyneApp, settings, func(updated preferences.Settings) {
		settingsMu.Lock()
		settings = updated
		settingsMu.Unlock()
		if saveErr := storage.SaveSettings(appName, updated); saveErr != nil {
			logger.Warn("saving settings failed", "error", saveErr)
		}
		breaks.UpdateConfig(updated.SchedulerConfig())
		guard.SetWindowDuration(updated.EmergencyWindow)
		applyAutostart(updated.Autostart, logger)
		overlayWindow.UpdateConfig(overlay.Config{
			Opacity:    opacityToAlpha(updated.OverlayOpacity),
			Fullscreen: updated.Fullscreen,
		})
		if !started {
			breaks.Start()
			started = true
		}
	})

	var trayManager *tray.Manager
	trayManager = tray.New(desktopApp, tray.Callbacks{
		OnPreferences: func() {
			prefsWindow.Show()
		},
		OnTogglePause: func() {
			if isPaused {
				breaks.Resume()
				isPaused = false
			} else {
				breaks.Pause()
				isPaused = true
			}
			trayManager.SetPaused(isPaused)
		},
		OnSkipBreak: func() {
			breaks.SkipBreak()
		},
		OnPauseFor: func(duration time.Duration) {
			if pauseTimer != nil {
				pauseTimer.Stop()
			}
			breaks.Pause()
			isPaused = true
			trayManager.SetPaused(true)
			pauseTimer = time.AfterFunc(duration, func() {
				breaks.Resume()
				isPaused = false
				fyne.Do(func() {
					trayManager.SetPaused(false)
				})
			})
		},
		OnForceBreak: func(kind model.BreakKind) {
			breaks.ForceBreak(kind)
		},
		OnQuit: func() {
			breaks.Stop()
			recorder.Flush()
			fyneApp.Quit()
		},
	})

	events := breaks.Subscribe(5)
	go func() {
		for event := range events {
			switch event.Type {
			case scheduler.EventStateChange:
				handleStateChange(event, guard, overlayWindow, trayManager, &settingsMu, &settings, logger)
			case scheduler.EventProgress:
				handleProgress(event, guard, overlayWindow, trayManager)
			case scheduler.EventIdleReset:
				logger.Info("focus cycle reset after idle period")
			case scheduler.EventIdleError:
				logger.Warn("idle detection unavailable", "detail", event.Message)
			}
		}
	}()

	prefsWindow.Show()
	fyneApp.Run()
}

func handleStateChange(event scheduler.Event, guard *lockout.Guard, overlayWindow *overlay.Window, trayManager *tray.Manager, settingsMu *sync.Mutex, settings *preferences.Settings, logger *slog.Logger) {
	switch event.State {
	case scheduler.StateShortBreak, scheduler.StateLongBreak:
		settingsMu.Lock()
		combo := settings.EmergencyCombo
		settingsMu.Unlock()
		session := event.Session
		guard.Begin(session, func() {
			logger.Info("break completed",
				"session_id", session.ID,
				"kind", string(session.Kind))
		})
		trayManager.SetInBreak(true, event.StrictMode)
		fyne.Do(func() {
			overlayWindow.Show(session, event.StrictMode, combo)
		})
	case scheduler.StateFocus:
		trayManager.SetInBreak(false, false)
		fyne.Do(func() {
			overlayWindow.Hide()
		})
	case scheduler.StatePaused:
		trayManager.SetPaused(true)
	}
}

func handleProgress(event scheduler.Event, guard *lockout.Guard, overlayWindow *overlay.Window, trayManager *tray.Manager) {
	switch event.State {
	case scheduler.StateShortBreak, scheduler.StateLongBreak:
		overlayWindow.SetRemaining(event.Remaining)
		guard.ObserveRemaining(event.Remaining)
	case scheduler.StateFocus:
		trayManager.SetStatus("next break in " + formatRemaining(event.Remaining))
	}
}

func applyAutostart(enabled bool, logger *slog.Logger) {
	service := platform.NewService()
	if !enabled {
		if err := service.DisableAutostart(appName); err != nil {
			logger.Warn("disabling autostart failed", "error", err)
		}
		return
	}
	execPath, err := os.Executable()
	if err != nil {
		logger.Warn("resolving executable for autostart failed", "error", err)
		return
	}
	if err := service.EnableAutostart(appName, execPath); err != nil {
		logger.Warn("enabling autostart failed", "error", err)
	}
}

func formatRemaining(remaining time.Duration) string {
	if remaining < 0 {
		remaining = 0
	}
	seconds := int(remaining.Seconds())
	minutes := seconds / 60
	seconds = seconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

func opacityToAlpha(opacity float64) uint8 {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}
	return uint8(opacity * 255)
}
