package nchannels

import "time"

// After returns a channel that delivers the current time once d has
// elapsed, then closes. It composes with [Select] the way time.After
// composes with a native select statement, letting a case on the result
// of After act as a timeout.
func After(d time.Duration) *Channel[time.Time] {
	ch, _ := NewChannel[time.Time](1) // capacity 1 is always valid.
	time.AfterFunc(d, func() {
		ch.TrySend(time.Now())
		ch.Close()
	})
	return ch
}
