// Package clock schedules delayed callbacks behind an interface so that
// timed narration sequences can be driven by a fake clock in tests.
package clock

import "time"

// Timer is a pending callback that can be stopped before it fires.
type Timer interface {
	// Stop prevents the callback from firing. Returns false if it already fired
	// or was already stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// Real schedules callbacks on the runtime timer wheel.
type Real struct{}

// AfterFunc calls f in its own goroutine after d.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Now returns the wall-clock time.
func (Real) Now() time.Time {
	return time.Now()
}

var _ Scheduler = Real{}
