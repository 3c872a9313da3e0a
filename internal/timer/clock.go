package timer

import "time"

// Stopper is the part of a runtime timer the port needs to abort a request.
// Stop reports whether the call prevented the timer from firing.
type Stopper interface {
	Stop() bool
}

// Clock is the timer facility a Port issues one-shot requests against.
// AfterFunc must run f on its own goroutine (or synchronously from a test
// driver) exactly once, unless Stop returns true first.
type Clock interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Stopper
}

// RealClock is backed by the Go runtime timers.
type RealClock struct{}

func (RealClock) Now() time.Time {
	return time.Now()
}

func (RealClock) AfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

var _ Clock = RealClock{}
