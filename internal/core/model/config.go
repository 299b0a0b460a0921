package model

import "time"

// SchedulerConfig contains runtime settings for the cycle scheduler.
type SchedulerConfig struct {
	FocusDuration      time.Duration
	ShortBreakDuration time.Duration
	LongBreakDuration  time.Duration
	CyclesPerLongBreak int

	StrictMode     bool
	AllowEmergency bool

	IdleResetEnabled  bool
	IdleResetAfter    time.Duration
	IdleCheckInterval time.Duration
}
