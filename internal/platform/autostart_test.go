package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name    string
		appName string
		want    string
	}{
		{"plain", "FocusGuard", "focusguard"},
		{"spaces become hyphens", "Focus Guard", "focus-guard"},
		{"surrounding whitespace", "  FocusGuard \n", "focusguard"},
		{"empty falls back", "", "focusguard"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, slug(tt.appName))
		})
	}
}
