// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package canvas

import (
	"testing"
	"time"

	"github.com/bureau-foundation/canvassync/lib/clock"
)

func safetyDecision(routing Routing, result SafetyResult, reason string) *SafetyDecisionEvent {
	return &SafetyDecisionEvent{
		Meta:   Meta{Routing: routing},
		Action: "publish",
		Result: result,
		Reason: reason,
		Gate:   "content",
	}
}

func TestRouterSafetyDecisionLastWriteWins(t *testing.T) {
	fakeClock := clock.Fake(epoch)
	router := NewRouter(fakeClock)

	router.Process(safetyDecision(Routing{CanvasID: "X"}, SafetyPass, "first"))
	fakeClock.Advance(time.Minute)
	router.Process(safetyDecision(Routing{CanvasID: "X"}, SafetyBlock, "second"))

	decisions := router.SafetyDecisions()
	if len(decisions) != 1 {
		t.Fatalf("SafetyDecisions has %d entries, want 1: %v", len(decisions), decisions)
	}
	decision, ok := router.SafetyDecision("X")
	if !ok {
		t.Fatal("no decision cached for X")
	}
	if decision.Result != SafetyBlock || decision.Reason != "second" {
		t.Errorf("decision = %+v, want the second event's values", decision)
	}
	if !decision.RecordedAt.Equal(epoch.Add(time.Minute)) {
		t.Errorf("RecordedAt = %v, want %v", decision.RecordedAt, epoch.Add(time.Minute))
	}
}

func TestRouterSafetyDecisionKeying(t *testing.T) {
	router := NewRouter(clock.Fake(epoch))
	router.Process(safetyDecision(Routing{ThreadID: "thread-1"}, SafetyPass, ""))
	router.Process(safetyDecision(Routing{CanvasID: "canvas-1", ThreadID: "thread-2"}, SafetyPass, ""))
	router.Process(safetyDecision(Routing{}, SafetyBlock, "unindexable"))

	decisions := router.SafetyDecisions()
	if len(decisions) != 2 {
		t.Fatalf("SafetyDecisions = %v, want thread-1 and canvas-1", decisions)
	}
	if _, ok := decisions["thread-1"]; !ok {
		t.Error("thread id fallback not used")
	}
	if _, ok := decisions["canvas-1"]; !ok {
		t.Error("canvas id not preferred over thread id")
	}
	if _, ok := decisions["thread-2"]; ok {
		t.Error("thread id used although a canvas id was present")
	}
}

func TestRouterSafetyDecisionsReturnsCopy(t *testing.T) {
	router := NewRouter(clock.Fake(epoch))
	router.Process(safetyDecision(Routing{CanvasID: "X"}, SafetyPass, ""))

	decisions := router.SafetyDecisions()
	delete(decisions, "X")
	if _, ok := router.SafetyDecision("X"); !ok {
		t.Error("mutating the returned map changed the cache")
	}
}

func TestRouterDeliversInRegistrationOrder(t *testing.T) {
	router := NewRouter(clock.Fake(epoch))
	var order []string
	router.Subscribe(func(Event) { order = append(order, "first") })
	router.Subscribe(func(Event) { order = append(order, "second") })
	router.Subscribe(func(Event) { order = append(order, "third") })

	router.Process(systemEvent(SystemConnected, "c1"))

	want := []string{"first", "second", "third"}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for index := range want {
		if order[index] != want[index] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestRouterDeliversSafetyDecisionsToSubscribers(t *testing.T) {
	router := NewRouter(clock.Fake(epoch))
	var seen []EventType
	router.Subscribe(func(event Event) { seen = append(seen, event.EventType()) })

	router.Process(safetyDecision(Routing{}, SafetyBlock, "unindexable"))
	if len(seen) != 1 || seen[0] != EventSafetyDecision {
		t.Errorf("seen = %v, want the unindexable decision delivered anyway", seen)
	}
}

func TestRouterUnsubscribe(t *testing.T) {
	router := NewRouter(clock.Fake(epoch))
	var firstCount, secondCount int
	unsubscribeFirst := router.Subscribe(func(Event) { firstCount++ })
	router.Subscribe(func(Event) { secondCount++ })

	router.Process(systemEvent(SystemConnected, "c1"))
	unsubscribeFirst()
	unsubscribeFirst()
	router.Process(systemEvent(SystemConnected, "c1"))

	if firstCount != 1 {
		t.Errorf("first handler called %d times, want 1", firstCount)
	}
	if secondCount != 2 {
		t.Errorf("second handler called %d times, want 2", secondCount)
	}
}

func TestRouterSnapshotDuringDispatch(t *testing.T) {
	router := NewRouter(clock.Fake(epoch))
	var lateCalls int
	router.Subscribe(func(Event) {
		router.Subscribe(func(Event) { lateCalls++ })
	})

	router.Process(systemEvent(SystemConnected, "c1"))
	if lateCalls != 0 {
		t.Errorf("handler added during dispatch was called %d times for that dispatch", lateCalls)
	}
	router.Process(systemEvent(SystemConnected, "c1"))
	if lateCalls != 1 {
		t.Errorf("lateCalls = %d after second dispatch, want 1", lateCalls)
	}
}
