package domain

import (
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source for run stamping. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// NewRun starts a refresh run with a random ID and the current time in UTC.
func NewRun() Run {
	return Run{
		ID:        uuid.NewString(),
		StartedAt: clock.Now().UTC(),
	}
}
