package intercept

import (
	"focusguard/internal/core/model"
)

// KeyEvent is one keyboard event as observed by the overlay, with the
// modifier state sampled at the moment of the event.
type KeyEvent struct {
	Key    string
	Cmd    bool
	Ctrl   bool
	Alt    bool
	Shift  bool
	Repeat bool
}

func (event KeyEvent) modifierHeld(modifier model.Modifier) bool {
	switch modifier {
	case model.ModCmd:
		return event.Cmd
	case model.ModCtrl:
		return event.Ctrl
	case model.ModAlt:
		return event.Alt
	case model.ModShift:
		return event.Shift
	}
	return false
}

// MatchesCombination reports whether the event is the configured emergency
// combination: every configured modifier must be held and the main key must
// match case-insensitively. Extra modifiers held at the same time do not
// invalidate the match.
func MatchesCombination(combo model.KeyCombination, event KeyEvent) bool {
	if combo.IsZero() {
		return false
	}
	for _, modifier := range combo.Modifiers {
		if !event.modifierHeld(modifier) {
			return false
		}
	}
	return normalizeKey(event.Key) == normalizeKey(combo.Key)
}
