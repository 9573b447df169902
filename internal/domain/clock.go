package domain

import (
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
)

type clockHolder struct{ clockwork.Clock }

// clock backs Now. Handlers read it from fetch goroutines while tests swap
// it, so access is atomic.
var clock atomic.Pointer[clockHolder]

func init() {
	clock.Store(&clockHolder{clockwork.NewRealClock()})
}

// SetClock replaces the time source behind Now and default start dates.
// Pass nil to restore the real clock.
func SetClock(c clockwork.Clock) {
	if c == nil {
		c = clockwork.NewRealClock()
	}
	clock.Store(&clockHolder{c})
}

// Now is the current time according to the installed clock.
func Now() time.Time {
	return clock.Load().Now()
}
