package intercept

import (
	"sort"
	"sync"

	"focusguard/internal/core/model"
)

// KeyTracker owns the set of currently-held keys. It is used to build the
// emergency combination during capture in preferences and to track live
// modifier state during enforcement. The set is reset atomically whenever
// capture starts or is cleared; no other component reads it mid-capture.
type KeyTracker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewKeyTracker returns an empty tracker.
func NewKeyTracker() *KeyTracker {
	return &KeyTracker{held: make(map[string]struct{})}
}

// Press records a key going down.
func (tracker *KeyTracker) Press(key string) {
	tracker.mu.Lock()
	tracker.held[normalizeKey(key)] = struct{}{}
	tracker.mu.Unlock()
}

// Release records a key going up.
func (tracker *KeyTracker) Release(key string) {
	tracker.mu.Lock()
	delete(tracker.held, normalizeKey(key))
	tracker.mu.Unlock()
}

// Reset clears the held set.
func (tracker *KeyTracker) Reset() {
	tracker.mu.Lock()
	tracker.held = make(map[string]struct{})
	tracker.mu.Unlock()
}

// Holds reports whether the key is currently held.
func (tracker *KeyTracker) Holds(key string) bool {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	_, ok := tracker.held[normalizeKey(key)]
	return ok
}

// Held returns the held keys in sorted order.
func (tracker *KeyTracker) Held() []string {
	tracker.mu.Lock()
	defer tracker.mu.Unlock()
	keys := make([]string, 0, len(tracker.held))
	for key := range tracker.held {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Combination builds an emergency combination from the held set. It
// requires at least one modifier and exactly one non-modifier key.
func (tracker *KeyTracker) Combination() (model.KeyCombination, bool) {
	var combo model.KeyCombination
	for _, key := range tracker.Held() {
		if modifier, ok := modifierForKey(key); ok {
			combo.Modifiers = append(combo.Modifiers, modifier)
			continue
		}
		if combo.Key != "" {
			return model.KeyCombination{}, false
		}
		combo.Key = key
	}
	if combo.Key == "" || len(combo.Modifiers) == 0 {
		return model.KeyCombination{}, false
	}
	return combo, true
}

func modifierForKey(key string) (model.Modifier, bool) {
	switch normalizeKey(key) {
	case "cmd", "super", "meta", "leftsuper", "rightsuper":
		return model.ModCmd, true
	case "ctrl", "control", "leftcontrol", "rightcontrol":
		return model.ModCtrl, true
	case "alt", "option", "leftalt", "rightalt":
		return model.ModAlt, true
	case "shift", "leftshift", "rightshift":
		return model.ModShift, true
	}
	return "", false
}
