// Package testutil provides testing utilities for Untethered tests.
package testutil

import (
	"sync"
	"testing"
	"time"

	"github.com/reifying/untethered/internal/event"
	"github.com/reifying/untethered/internal/transport"
)

// ScriptedSender is a transport.Sender for tests. Each sent request is
// recorded; if a Responder is set it is invoked on its own goroutine,
// the way real acknowledgments arrive.
type ScriptedSender struct {
	mu       sync.Mutex
	requests []transport.UploadRequest

	// Responder, when non-nil, is called with every sent request.
	Responder func(transport.UploadRequest)

	// Err, when non-nil, is returned from Send without recording.
	Err error
}

// Send implements transport.Sender.
func (s *ScriptedSender) Send(req transport.UploadRequest) error {
	s.mu.Lock()
	if s.Err != nil {
		err := s.Err
		s.mu.Unlock()
		return err
	}
	s.requests = append(s.requests, req)
	responder := s.Responder
	s.mu.Unlock()

	if responder != nil {
		go responder(req)
	}
	return nil
}

// Requests returns a copy of all recorded requests.
func (s *ScriptedSender) Requests() []transport.UploadRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]transport.UploadRequest, len(s.requests))
	copy(out, s.requests)
	return out
}

// EventRecorder captures events published on a bus for later
// assertions.
type EventRecorder struct {
	mu     sync.Mutex
	events []event.Event
}

// RecordEvents subscribes a recorder to all events on the bus.
func RecordEvents(bus *event.Bus) *EventRecorder {
	r := &EventRecorder{}
	bus.SubscribeAll(func(e event.Event) {
		r.mu.Lock()
		r.events = append(r.events, e)
		r.mu.Unlock()
	})
	return r
}

// Events returns a copy of all recorded events.
func (r *EventRecorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]event.Event, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events with the given type.
func (r *EventRecorder) OfType(eventType string) []event.Event {
	var out []event.Event
	for _, e := range r.Events() {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor polls cond until it returns true or the timeout elapses.
func WaitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}
