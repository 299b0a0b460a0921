package platform

import (
	"time"

	"focusguard/internal/core/scheduler"
)

type idleProvider struct{}

func newIdleProvider() IdleProvider {
	return &idleProvider{}
}

func (provider *idleProvider) IdleDuration() (time.Duration, error) {
	return 0, scheduler.ErrIdleUnsupported
}
