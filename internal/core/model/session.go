package model

import "time"

// BreakKind distinguishes the two break lengths.
type BreakKind string

const (
	BreakShort BreakKind = "short"
	BreakLong  BreakKind = "long"
)

// BreakSession describes one timed break. The scheduler creates a session
// when a break starts and replaces it when the next break starts. Remaining
// is owned by the scheduler and only observed elsewhere.
type BreakSession struct {
	ID             string
	Kind           BreakKind
	Duration       time.Duration
	Remaining      time.Duration
	AllowEmergency bool
}

// Modifier names a keyboard modifier in an emergency key combination.
type Modifier string

const (
	ModCmd   Modifier = "cmd"
	ModCtrl  Modifier = "ctrl"
	ModAlt   Modifier = "alt"
	ModShift Modifier = "shift"
)

// KeyCombination is the emergency hotkey: a set of modifiers plus one
// non-modifier key. Configured once per user and immutable for the
// duration of a session.
type KeyCombination struct {
	Modifiers []Modifier
	Key       string
}

// IsZero reports whether no combination has been configured.
func (combo KeyCombination) IsZero() bool {
	return combo.Key == "" && len(combo.Modifiers) == 0
}
