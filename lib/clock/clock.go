// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts the time operations used by the transport.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time once d
	// has elapsed. If d <= 0 the channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTimer returns a Timer that fires once after d. Callers that
	// may abandon the wait (for example on context cancellation)
	// should use NewTimer and Stop it rather than After.
	NewTimer(d time.Duration) *Timer
}

// Timer is a single scheduled event. Read the fire time from C.
type Timer struct {
	// C receives the fire time. Buffered with capacity 1.
	C <-chan time.Time

	stopFunc func() bool
}

// Stop prevents the Timer from firing. Returns true if the call
// stopped a pending timer, false if it had already fired or been
// stopped.
func (t *Timer) Stop() bool { return t.stopFunc() }
