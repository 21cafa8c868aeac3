// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"context"
	"time"

	"github.com/bureau-foundation/canvassync/lib/clock"
)

const (
	reconnectBase = time.Second
	reconnectMax  = 30 * time.Second
)

// ReconnectDelay returns the wait before the reconnect attempt that
// follows the given number of consecutive failures:
// min(1s * 2^failures, 30s). Both channels use it.
func ReconnectDelay(failures int) time.Duration {
	if failures < 0 {
		failures = 0
	}
	// 2^5 seconds already exceeds the cap; stop shifting before the
	// duration overflows.
	if failures >= 5 {
		return reconnectMax
	}
	return min(reconnectBase<<failures, reconnectMax)
}

// sleep waits for d on clk, returning false if ctx is cancelled first.
// The timer is stopped on cancellation so a fake clock does not keep
// a stale waiter.
func sleep(ctx context.Context, clk clock.Clock, d time.Duration) bool {
	timer := clk.NewTimer(d)
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		timer.Stop()
		return false
	}
}
