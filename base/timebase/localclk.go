package timebase

import (
	"time"
)

// LocalClock is the clock that drives reference-event ticks and
// timestamps incoming deviation samples.
type LocalClock interface {
	Now() time.Time
	Sleep(duration time.Duration)
}
