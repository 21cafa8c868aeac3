// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides an injectable time source so that reconnect
// backoff and other timed behavior can be tested without sleeping.
//
// Components hold a Clock field. Production code uses Real(); tests
// use Fake() and drive time explicitly:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	stream := canvas.NewPushStream(..., fake)
//	// ... the stream fails and schedules a reconnect ...
//	fake.WaitForTimers(1)      // the backoff timer is registered
//	fake.Advance(time.Second)  // the reconnect attempt fires
//
// WaitForTimers removes the race between a goroutine registering a
// timer and the test advancing past its deadline.
package clock
