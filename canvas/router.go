// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"sync"
	"time"

	"github.com/bureau-foundation/canvassync/lib/clock"
)

// Handler receives every routed event. Handlers run synchronously on
// the delivering channel's goroutine and must not block for long or
// call Transport.Disconnect.
type Handler func(Event)

// SafetyDecisionSummary is the latest safety verdict seen for one
// logical stream.
type SafetyDecisionSummary struct {
	Action     string       `json:"action"`
	Result     SafetyResult `json:"result"`
	Reason     string       `json:"reason,omitempty"`
	Gate       string       `json:"gate,omitempty"`
	RecordedAt time.Time    `json:"recorded_at"`
}

// Router fans events from both channels out to subscribers and keeps
// the latest safety decision per stream key.
//
// Router is safe for concurrent use.
type Router struct {
	clock clock.Clock

	mu          sync.Mutex
	nextID      uint64
	subscribers []subscriber
	decisions   map[string]SafetyDecisionSummary
}

type subscriber struct {
	id      uint64
	handler Handler
}

// NewRouter returns an empty Router. If clk is nil, clock.Real() is
// used for decision timestamps.
func NewRouter(clk clock.Clock) *Router {
	if clk == nil {
		clk = clock.Real()
	}
	return &Router{
		clock:     clk,
		decisions: make(map[string]SafetyDecisionSummary),
	}
}

// Subscribe registers handler and returns a function that removes it.
// Handlers are called in registration order. Calling the returned
// function more than once is harmless.
func (r *Router) Subscribe(handler Handler) (unsubscribe func()) {
	r.mu.Lock()
	r.nextID++
	id := r.nextID
	r.subscribers = append(r.subscribers, subscriber{id: id, handler: handler})
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for index, existing := range r.subscribers {
			if existing.id == id {
				r.subscribers = append(r.subscribers[:index:index], r.subscribers[index+1:]...)
				return
			}
		}
	}
}

// Process routes one event. A safety decision is recorded under its
// routing key first (last write wins; dropped when the event has
// neither a canvas nor a thread id). The event is then delivered to a
// snapshot of the current subscribers.
func (r *Router) Process(event Event) {
	if event == nil {
		return
	}

	r.mu.Lock()
	if decision, ok := event.(*SafetyDecisionEvent); ok {
		if key := decision.Routing.Key(); key != "" {
			r.decisions[key] = SafetyDecisionSummary{
				Action:     decision.Action,
				Result:     decision.Result,
				Reason:     decision.Reason,
				Gate:       decision.Gate,
				RecordedAt: r.clock.Now(),
			}
		}
	}
	snapshot := make([]Handler, len(r.subscribers))
	for index, existing := range r.subscribers {
		snapshot[index] = existing.handler
	}
	r.mu.Unlock()

	for _, handler := range snapshot {
		handler(event)
	}
}

// SafetyDecision returns the latest decision for a stream key.
func (r *Router) SafetyDecision(key string) (SafetyDecisionSummary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	decision, ok := r.decisions[key]
	return decision, ok
}

// SafetyDecisions returns a copy of every cached decision keyed by
// stream key.
func (r *Router) SafetyDecisions() map[string]SafetyDecisionSummary {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := make(map[string]SafetyDecisionSummary, len(r.decisions))
	for key, decision := range r.decisions {
		result[key] = decision
	}
	return result
}
