package loader

import "time"

// Clock yields timestamps for measuring loads.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock. Times it returns carry a monotonic
// reading, so differences are immune to wall clock adjustments.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Timer starts stopwatches on a clock.
type Timer struct {
	Clock Clock
}

// NewTimer returns a Timer on the system clock.
func NewTimer() *Timer {
	return &Timer{Clock: SystemClock{}}
}

// Start records the current time.
func (t *Timer) Start() Stopwatch {
	return Stopwatch{clock: t.Clock, start: t.Clock.Now()}
}

// Stopwatch measures the time elapsed since it was started.
type Stopwatch struct {
	clock Clock
	start time.Time
}

// Elapsed returns the time since the stopwatch was started.
func (s Stopwatch) Elapsed() time.Duration {
	return s.clock.Now().Sub(s.start)
}
