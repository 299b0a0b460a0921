package preferences

import (
	"fmt"
	"time"

	"focusguard/internal/core/model"
	"focusguard/internal/pin"
)

// Settings defines editable user preferences.
type Settings struct {
	FocusDuration      time.Duration
	ShortBreakDuration time.Duration
	LongBreakDuration  time.Duration
	CyclesPerLongBreak int

	StrictMode      bool
	AllowEmergency  bool
	EmergencyWindow time.Duration
	EmergencyCombo  model.KeyCombination
	PinCredential   pin.Credential

	IdleEnabled    bool
	OverlayOpacity float64
	Fullscreen     bool
	Autostart      bool
}

// DefaultSettings returns default settings for FocusGuard.
func DefaultSettings() Settings {
	return Settings{
		FocusDuration:      25 * time.Minute,
		ShortBreakDuration: 5 * time.Minute,
		LongBreakDuration:  15 * time.Minute,
		CyclesPerLongBreak: 4,
		StrictMode:         false,
		AllowEmergency:     true,
		EmergencyWindow:    45 * time.Second,
		EmergencyCombo: model.KeyCombination{
			Modifiers: []model.Modifier{model.ModCmd, model.ModShift},
			Key:       "e",
		},
		IdleEnabled:    true,
		OverlayOpacity: 0.85,
		Fullscreen:     true,
	}
}

// Validate checks settings at the boundary, before they reach the
// scheduler or the lockout.
func (settings Settings) Validate() error {
	if settings.FocusDuration <= 0 {
		return fmt.Errorf("focus duration must be positive, got %s", settings.FocusDuration)
	}
	if settings.ShortBreakDuration <= 0 || settings.LongBreakDuration <= 0 {
		return fmt.Errorf("break durations must be positive")
	}
	if settings.CyclesPerLongBreak < 1 {
		return fmt.Errorf("cycles per long break must be at least 1, got %d", settings.CyclesPerLongBreak)
	}
	if settings.EmergencyWindow <= 0 {
		return fmt.Errorf("emergency window must be positive, got %s", settings.EmergencyWindow)
	}
	if settings.OverlayOpacity < 0 || settings.OverlayOpacity > 1 {
		return fmt.Errorf("overlay opacity must be in [0,1], got %v", settings.OverlayOpacity)
	}
	if settings.StrictMode && settings.EmergencyCombo.IsZero() {
		return fmt.Errorf("strict mode requires an emergency key combination")
	}
	if settings.AllowEmergency && settings.PinCredential.IsZero() {
		return fmt.Errorf("emergency override requires a configured pin")
	}
	return nil
}

// SchedulerConfig converts settings to the scheduler's configuration.
func (settings Settings) SchedulerConfig() model.SchedulerConfig {
	return model.SchedulerConfig{
		FocusDuration:      settings.FocusDuration,
		ShortBreakDuration: settings.ShortBreakDuration,
		LongBreakDuration:  settings.LongBreakDuration,
		CyclesPerLongBreak: settings.CyclesPerLongBreak,
		StrictMode:         settings.StrictMode,
		AllowEmergency:     settings.AllowEmergency,
		IdleResetEnabled:   settings.IdleEnabled,
		IdleResetAfter:     5 * time.Minute,
		IdleCheckInterval:  5 * time.Second,
	}
}
