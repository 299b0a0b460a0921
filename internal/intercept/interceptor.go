// Package intercept classifies user input during a strict-mode break and
// decides, per event, whether it is suppressed, passed through, or
// forwarded as an emergency trigger.
package intercept

import (
	"sync"

	"focusguard/internal/core/model"
)

// Decision is the outcome for one intercepted event.
type Decision int

const (
	// DecisionPass lets the event through unmodified.
	DecisionPass Decision = iota
	// DecisionBlock suppresses the event.
	DecisionBlock
	// DecisionEmergency forwards the event to the emergency override
	// path instead of blocking it.
	DecisionEmergency
)

// Interceptor applies the strict-mode input contract: everything except
// the emergency combination and mouse movement is suppressed, and each
// physical blocked event is recorded exactly once.
type Interceptor struct {
	mu        sync.Mutex
	combo     model.KeyCombination
	record    func(Method)
	emergency func()
	down      map[string]struct{}
}

// New creates an interceptor. record receives one audit method per
// classified bypass; emergency is invoked when the configured combination
// is seen.
func New(combo model.KeyCombination, record func(Method), emergency func()) *Interceptor {
	return &Interceptor{
		combo:     combo,
		record:    record,
		emergency: emergency,
		down:      make(map[string]struct{}),
	}
}

// KeyDown handles one key-down event. Auto-repeat is detected both from
// the event flag and from the held set, so a held key is logged once but
// suppressed on every repeat.
func (interceptor *Interceptor) KeyDown(event KeyEvent) Decision {
	if MatchesCombination(interceptor.combo, event) {
		if interceptor.emergency != nil {
			interceptor.emergency()
		}
		return DecisionEmergency
	}

	key := normalizeKey(event.Key)
	interceptor.mu.Lock()
	_, repeated := interceptor.down[key]
	interceptor.down[key] = struct{}{}
	interceptor.mu.Unlock()

	if !repeated && !event.Repeat && interceptor.record != nil {
		interceptor.record(ClassifyKey(event))
	}
	return DecisionBlock
}

// KeyUp handles one key-up event. Releases are suppressed but never
// logged; the press already accounted for the physical event.
func (interceptor *Interceptor) KeyUp(event KeyEvent) Decision {
	interceptor.mu.Lock()
	delete(interceptor.down, normalizeKey(event.Key))
	interceptor.mu.Unlock()
	return DecisionBlock
}

// Mouse handles one mouse event. Movement passes through so the cursor
// stays visibly live; the click family is suppressed and recorded.
func (interceptor *Interceptor) Mouse(event MouseEvent) Decision {
	if event == MouseMove {
		return DecisionPass
	}
	if interceptor.record != nil {
		interceptor.record(ClassifyMouse(event))
	}
	return DecisionBlock
}

// WindowClose records a close attempt. The platform cannot fully suppress
// window close, so this only observes and classifies.
func (interceptor *Interceptor) WindowClose() {
	if interceptor.record != nil {
		interceptor.record(MethodWindowCloseBlocked)
	}
}

// VisibilityChange records a tab/window visibility change. Like close,
// it can only be observed after the fact.
func (interceptor *Interceptor) VisibilityChange() {
	if interceptor.record != nil {
		interceptor.record(MethodVisibilityChange)
	}
}
