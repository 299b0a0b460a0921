package platform

import (
	"fmt"
	"os"
	"strings"
)

// bundleID matches the Fyne application id set in cmd/main.go. Launch
// agents derive their identifiers from it so the OS sees one app.
const bundleID = "com.focusguard.app"

// slug normalizes an app name into a filesystem-friendly identifier.
func slug(appName string) string {
	name := strings.ToLower(strings.TrimSpace(appName))
	name = strings.ReplaceAll(name, " ", "-")
	if name == "" {
		name = "focusguard"
	}
	return name
}

// Service defines OS-specific helpers needed by the application.
type Service interface {
	GetConfigDir() (string, error)
	EnableAutostart(appName, execPath string) error
	DisableAutostart(appName string) error
}

type platformService struct{}

// NewService returns a platform-specific implementation.
func NewService() Service {
	return &platformService{}
}

// GetConfigDir returns the OS-standard configuration directory.
func (service *platformService) GetConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err == nil && configDir != "" {
		return configDir, nil
	}

	homeDir, homeErr := os.UserHomeDir()
	if homeErr != nil {
		if err != nil {
			return "", fmt.Errorf("get config dir: %w", err)
		}
		return "", fmt.Errorf("get config dir: %w", homeErr)
	}

	return fallbackConfigDir(homeDir), nil
}
