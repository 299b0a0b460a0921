package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"focusguard/internal/core/model"
	"focusguard/internal/pin"
	"focusguard/internal/ui/preferences"
)

const settingsFileName = "settings.yaml"

type yamlCombo struct {
	Modifiers []string `yaml:"modifiers"`
	Key       string   `yaml:"key"`
}

type yamlSettings struct {
	FocusMinutes           int            `yaml:"focus_minutes"`
	ShortBreakMinutes      int            `yaml:"short_break_minutes"`
	LongBreakMinutes       int            `yaml:"long_break_minutes"`
	CyclesPerLongBreak     int            `yaml:"cycles_per_long_break"`
	StrictMode             bool           `yaml:"strict_mode"`
	AllowEmergency         bool           `yaml:"allow_emergency"`
	EmergencyWindowSeconds int            `yaml:"emergency_window_seconds"`
	EmergencyCombo         yamlCombo      `yaml:"emergency_combo"`
	Pin                    pin.Credential `yaml:"pin,omitempty"`
	IdleEnabled            bool           `yaml:"idle_enabled"`
	OverlayOpacity         float64        `yaml:"overlay_opacity"`
	Fullscreen             bool           `yaml:"fullscreen"`
	Autostart              bool           `yaml:"autostart"`
}

// LoadSettings reads user preferences from YAML.
// If the config file does not exist, default settings are returned.
func LoadSettings(appName string) (preferences.Settings, error) {
	settings := preferences.DefaultSettings()
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return settings, err
	}

	rawData, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return settings, nil
		}
		return settings, fmt.Errorf("read settings file: %w", err)
	}

	var fileData yamlSettings
	if err := yaml.Unmarshal(rawData, &fileData); err != nil {
		return settings, fmt.Errorf("parse settings yaml: %w", err)
	}

	applyYamlSettings(&settings, fileData)
	return settings, nil
}

// SaveSettings writes user preferences to YAML.
func SaveSettings(appName string, settings preferences.Settings) error {
	configPath, err := resolveConfigPath(appName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	combo := yamlCombo{Key: settings.EmergencyCombo.Key}
	for _, modifier := range settings.EmergencyCombo.Modifiers {
		combo.Modifiers = append(combo.Modifiers, string(modifier))
	}

	fileData := yamlSettings{
		FocusMinutes:           int(settings.FocusDuration / time.Minute),
		ShortBreakMinutes:      int(settings.ShortBreakDuration / time.Minute),
		LongBreakMinutes:       int(settings.LongBreakDuration / time.Minute),
		CyclesPerLongBreak:     settings.CyclesPerLongBreak,
		StrictMode:             settings.StrictMode,
		AllowEmergency:         settings.AllowEmergency,
		EmergencyWindowSeconds: int(settings.EmergencyWindow / time.Second),
		EmergencyCombo:         combo,
		Pin:                    settings.PinCredential,
		IdleEnabled:            settings.IdleEnabled,
		OverlayOpacity:         settings.OverlayOpacity,
		Fullscreen:             settings.Fullscreen,
		Autostart:              settings.Autostart,
	}

	serialized, err := yaml.Marshal(fileData)
	if err != nil {
		return fmt.Errorf("marshal settings yaml: %w", err)
	}

	if err := os.WriteFile(configPath, serialized, 0o600); err != nil {
		return fmt.Errorf("write settings file: %w", err)
	}

	return nil
}

// AuditDBPath returns the on-disk location of the bypass audit database,
// creating the enclosing config directory if needed.
func AuditDBPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	appDir := filepath.Join(configDir, appName)
	if err := os.MkdirAll(appDir, 0o755); err != nil {
		return "", fmt.Errorf("create config directory: %w", err)
	}
	return filepath.Join(appDir, "audit.db"), nil
}

func resolveConfigPath(appName string) (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config dir: %w", err)
	}
	return filepath.Join(configDir, appName, settingsFileName), nil
}

func applyYamlSettings(settings *preferences.Settings, fileData yamlSettings) {
	if fileData.FocusMinutes > 0 {
		settings.FocusDuration = time.Duration(fileData.FocusMinutes) * time.Minute
	}
	if fileData.ShortBreakMinutes > 0 {
		settings.ShortBreakDuration = time.Duration(fileData.ShortBreakMinutes) * time.Minute
	}
	if fileData.LongBreakMinutes > 0 {
		settings.LongBreakDuration = time.Duration(fileData.LongBreakMinutes) * time.Minute
	}
	if fileData.CyclesPerLongBreak > 0 {
		settings.CyclesPerLongBreak = fileData.CyclesPerLongBreak
	}
	if fileData.EmergencyWindowSeconds > 0 {
		settings.EmergencyWindow = time.Duration(fileData.EmergencyWindowSeconds) * time.Second
	}
	if fileData.OverlayOpacity >= 0.5 && fileData.OverlayOpacity <= 1 {
		settings.OverlayOpacity = fileData.OverlayOpacity
	}
	if fileData.EmergencyCombo.Key != "" {
		combo := model.KeyCombination{Key: fileData.EmergencyCombo.Key}
		for _, name := range fileData.EmergencyCombo.Modifiers {
			combo.Modifiers = append(combo.Modifiers, model.Modifier(name))
		}
		settings.EmergencyCombo = combo
	}
	if !fileData.Pin.IsZero() {
		settings.PinCredential = fileData.Pin
	}

	settings.StrictMode = fileData.StrictMode
	settings.AllowEmergency = fileData.AllowEmergency
	settings.IdleEnabled = fileData.IdleEnabled
	settings.Fullscreen = fileData.Fullscreen
	settings.Autostart = fileData.Autostart
}
