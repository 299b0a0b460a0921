package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusguard/internal/core/model"
	"focusguard/internal/pin"
	"focusguard/internal/ui/preferences"
)

const testAppName = "FocusGuardTest"

func setConfigHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func TestLoadSettings_MissingFileReturnsDefaults(t *testing.T) {
	setConfigHome(t)

	settings, err := LoadSettings(testAppName)
	require.NoError(t, err)
	assert.Equal(t, preferences.DefaultSettings().FocusDuration, settings.FocusDuration)
}

func TestSaveAndLoadSettings_RoundTrip(t *testing.T) {
	dir := setConfigHome(t)

	credential, err := pin.New("4812")
	require.NoError(t, err)

	settings := preferences.DefaultSettings()
	settings.FocusDuration = 50 * time.Minute
	settings.ShortBreakDuration = 10 * time.Minute
	settings.CyclesPerLongBreak = 3
	settings.StrictMode = true
	settings.EmergencyWindow = 90 * time.Second
	settings.EmergencyCombo = model.KeyCombination{
		Modifiers: []model.Modifier{model.ModCtrl, model.ModAlt},
		Key:       "x",
	}
	settings.PinCredential = credential

	require.NoError(t, SaveSettings(testAppName, settings))

	_, err = os.Stat(filepath.Join(dir, testAppName, settingsFileName))
	require.NoError(t, err)

	loaded, err := LoadSettings(testAppName)
	require.NoError(t, err)

	assert.Equal(t, 50*time.Minute, loaded.FocusDuration)
	assert.Equal(t, 10*time.Minute, loaded.ShortBreakDuration)
	assert.Equal(t, 3, loaded.CyclesPerLongBreak)
	assert.True(t, loaded.StrictMode)
	assert.Equal(t, 90*time.Second, loaded.EmergencyWindow)
	assert.Equal(t, settings.EmergencyCombo, loaded.EmergencyCombo)

	ok, err := loaded.PinCredential.Verify("4812")
	require.NoError(t, err)
	assert.True(t, ok, "pin credential survives the round trip")
}

func TestLoadSettings_BadValuesFallBack(t *testing.T) {
	dir := setConfigHome(t)

	configDir := filepath.Join(dir, testAppName)
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	raw := []byte("focus_minutes: -10\noverlay_opacity: 7.5\nemergency_window_seconds: 0\n")
	require.NoError(t, os.WriteFile(filepath.Join(configDir, settingsFileName), raw, 0o600))

	loaded, err := LoadSettings(testAppName)
	require.NoError(t, err)

	defaults := preferences.DefaultSettings()
	assert.Equal(t, defaults.FocusDuration, loaded.FocusDuration)
	assert.Equal(t, defaults.OverlayOpacity, loaded.OverlayOpacity)
	assert.Equal(t, defaults.EmergencyWindow, loaded.EmergencyWindow)
}
