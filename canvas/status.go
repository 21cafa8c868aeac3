// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import "sync"

// Status is the connection state of one channel. Each channel tracks
// its own; there is no combined status.
type Status string

const (
	StatusDisconnected Status = "disconnected"
	StatusConnecting   Status = "connecting"
	StatusConnected    Status = "connected"
)

// channelState is the mutable state a channel goroutine shares with
// callers: status and the consecutive-failure counter.
type channelState struct {
	mu       sync.Mutex
	status   Status
	failures int
}

func newChannelState() *channelState {
	return &channelState{status: StatusDisconnected}
}

func (s *channelState) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *channelState) setStatus(status Status) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
}

// connected records a successful open: status connected and the
// failure counter reset to zero.
func (s *channelState) connected() {
	s.mu.Lock()
	s.status = StatusConnected
	s.failures = 0
	s.mu.Unlock()
}

// failed records a failure and returns the number of consecutive
// failures that preceded it, which is the ReconnectDelay input.
func (s *channelState) failed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = StatusDisconnected
	failures := s.failures
	s.failures++
	return failures
}

// reset returns the state to disconnected with no failures recorded.
func (s *channelState) reset() {
	s.mu.Lock()
	s.status = StatusDisconnected
	s.failures = 0
	s.mu.Unlock()
}
