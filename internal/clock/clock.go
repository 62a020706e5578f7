// Package clock abstracts time so the client's autonomous-move timer and
// reconnect backoff can be driven deterministically in tests.
package clock

import "time"

type Clock interface {
	Now() time.Time

	// After returns a channel that receives the time once d has elapsed.
	After(d time.Duration) <-chan time.Time

	// AfterFunc calls f once d has elapsed. The returned Timer cancels the
	// call if it has not happened yet.
	AfterFunc(d time.Duration, f func()) *Timer
}

type Timer struct {
	stop func() bool
}

// Stop reports whether it prevented the call.
func (t *Timer) Stop() bool {
	if t == nil || t.stop == nil {
		return false
	}
	return t.stop()
}

func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (realClock) AfterFunc(d time.Duration, f func()) *Timer {
	t := time.AfterFunc(d, f)
	return &Timer{stop: t.Stop}
}
