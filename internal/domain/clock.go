package domain

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock stamps snapshots and trend dates. Tests freeze it with SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the domain time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Now returns the current domain time.
func Now() time.Time {
	return clock.Now()
}
