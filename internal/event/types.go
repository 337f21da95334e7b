// Package event defines the event bus and event types that decouple the
// coordination components from the presentation layer. The registry,
// queue manager, and ack coordinator publish here; windows and
// indicators subscribe.
package event

import "time"

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "upload.resolved", "queue.changed")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Upload Events
// -----------------------------------------------------------------------------

// UploadResolvedEvent is emitted when a pending upload resolves, whether
// by acknowledgment, timeout, or transport failure.
type UploadResolvedEvent struct {
	baseEvent
	RequestID string // Generated id assigned at dispatch time
	Key       string // Upload key (resource filename)
	Outcome   string // "success", "failure", "timeout", "transport_failure"
}

// NewUploadResolvedEvent creates an UploadResolvedEvent.
func NewUploadResolvedEvent(requestID, key, outcome string) UploadResolvedEvent {
	return UploadResolvedEvent{
		baseEvent: newBaseEvent("upload.resolved"),
		RequestID: requestID,
		Key:       key,
		Outcome:   outcome,
	}
}

// UploadFallbackMatchedEvent is emitted when an acknowledgment whose key
// matched no pending upload was resolved against the single oldest
// pending entry instead (the backend renames resources on collision).
type UploadFallbackMatchedEvent struct {
	baseEvent
	RequestID   string // Pending request that absorbed the response
	PendingKey  string // Key the request was registered under
	ResponseKey string // Key the response actually carried
}

// NewUploadFallbackMatchedEvent creates an UploadFallbackMatchedEvent.
func NewUploadFallbackMatchedEvent(requestID, pendingKey, responseKey string) UploadFallbackMatchedEvent {
	return UploadFallbackMatchedEvent{
		baseEvent:   newBaseEvent("upload.fallback_matched"),
		RequestID:   requestID,
		PendingKey:  pendingKey,
		ResponseKey: responseKey,
	}
}

// -----------------------------------------------------------------------------
// Window Claim Events
// -----------------------------------------------------------------------------

// SessionClaimedEvent is emitted when a window successfully claims a
// session for display. Re-claims by the holding window do not emit.
type SessionClaimedEvent struct {
	baseEvent
	SessionID string
	WindowID  string
}

// NewSessionClaimedEvent creates a SessionClaimedEvent.
func NewSessionClaimedEvent(sessionID, windowID string) SessionClaimedEvent {
	return SessionClaimedEvent{
		baseEvent: newBaseEvent("session.claimed"),
		SessionID: sessionID,
		WindowID:  windowID,
	}
}

// SessionReleasedEvent is emitted when a claim is released, either
// explicitly or because the holding window closed.
type SessionReleasedEvent struct {
	baseEvent
	SessionID string
	WindowID  string
}

// NewSessionReleasedEvent creates a SessionReleasedEvent.
func NewSessionReleasedEvent(sessionID, windowID string) SessionReleasedEvent {
	return SessionReleasedEvent{
		baseEvent: newBaseEvent("session.released"),
		SessionID: sessionID,
		WindowID:  windowID,
	}
}

// MainWindowChangedEvent is emitted when the designated main window
// changes or is cleared. Subscribers re-evaluate detached indicators.
type MainWindowChangedEvent struct {
	baseEvent
	WindowID string // Empty when the designation was cleared
}

// NewMainWindowChangedEvent creates a MainWindowChangedEvent.
func NewMainWindowChangedEvent(windowID string) MainWindowChangedEvent {
	return MainWindowChangedEvent{
		baseEvent: newBaseEvent("window.main_changed"),
		WindowID:  windowID,
	}
}

// -----------------------------------------------------------------------------
// Queue Events
// -----------------------------------------------------------------------------

// Kinds of queue change carried by QueueChangedEvent.
const (
	QueueChangeAdded    = "added"
	QueueChangeRemoved  = "removed"
	QueueChangeMoved    = "moved"
	QueueChangePriority = "priority"
	QueueChangeReloaded = "reloaded"
)

// QueueChangedEvent is emitted whenever the queue's membership or order
// changes: an entry was added, removed, moved, or changed bucket.
// Subscribers re-render from a fresh snapshot.
type QueueChangedEvent struct {
	baseEvent
	SessionID string // Entry that changed; empty for bulk reloads
	Change    string // One of the QueueChange constants
}

// NewQueueChangedEvent creates a QueueChangedEvent.
func NewQueueChangedEvent(sessionID, change string) QueueChangedEvent {
	return QueueChangedEvent{
		baseEvent: newBaseEvent("queue.changed"),
		SessionID: sessionID,
		Change:    change,
	}
}

// QueueRenormalizedEvent is emitted after the order keys of the whole
// queue were rewritten to restore midpoint-insertion headroom.
type QueueRenormalizedEvent struct {
	baseEvent
	EntryCount int
}

// NewQueueRenormalizedEvent creates a QueueRenormalizedEvent.
func NewQueueRenormalizedEvent(entryCount int) QueueRenormalizedEvent {
	return QueueRenormalizedEvent{
		baseEvent:  newBaseEvent("queue.renormalized"),
		EntryCount: entryCount,
	}
}
