package overlay

import "math/rand"

// Break messages shown on the overlay. Selection takes an injected
// randomness source so it stays deterministic under test.

var breakMessages = []string{
	"Step away from the screen for a bit.",
	"Stand up, stretch, breathe.",
	"Rest your eyes. The work will wait.",
	"Shake out your shoulders and look far away.",
	"A short pause now beats a burnout later.",
}

var strictMessages = []string{
	"This break is locked. See you when it ends.",
	"Strict mode is on. Time to actually rest.",
	"The screen is taking a break too.",
}

// MessagePicker selects overlay messages.
type MessagePicker struct {
	rng *rand.Rand
}

// NewMessagePicker creates a picker backed by the given source.
func NewMessagePicker(rng *rand.Rand) *MessagePicker {
	return &MessagePicker{rng: rng}
}

// Pick returns a message appropriate for the session's strictness.
func (picker *MessagePicker) Pick(strict bool) string {
	pool := breakMessages
	if strict {
		pool = strictMessages
	}
	return pool[picker.rng.Intn(len(pool))]
}
