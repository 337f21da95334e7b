package queue

import (
	"fmt"
	"sort"
)

// Priority is the bucket an entry sorts into before its order key is
// consulted. Lower values sort first.
type Priority int

// Priority buckets, highest first.
const (
	PriorityHigh Priority = iota
	PriorityMedium
	PriorityLow
)

// String returns the human-readable name for the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// ParsePriority converts a priority name to its Priority value.
func ParsePriority(name string) (Priority, error) {
	switch name {
	case "high":
		return PriorityHigh, nil
	case "medium":
		return PriorityMedium, nil
	case "low":
		return PriorityLow, nil
	default:
		return 0, fmt.Errorf("unknown priority %q (valid: high, medium, low)", name)
	}
}

// Entry is a session participating in the reorderable priority queue.
// The session's own identifier doubles as the stable tie-break, so the
// sort over (Priority, OrderKey, SessionID) is a strict total order
// even when order keys collide under floating-point pressure.
type Entry struct {
	SessionID string   `json:"sessionId"`
	Priority  Priority `json:"priority"`
	OrderKey  float64  `json:"orderKey"`
}

// Less reports whether e sorts before other under the queue's total
// order.
func (e Entry) Less(other Entry) bool {
	if e.Priority != other.Priority {
		return e.Priority < other.Priority
	}
	if e.OrderKey != other.OrderKey {
		return e.OrderKey < other.OrderKey
	}
	return e.SessionID < other.SessionID
}

// sortEntries sorts entries in place under the queue's total order.
func sortEntries(entries []Entry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Less(entries[j])
	})
}

// Store is the persistence collaborator. The queue writes through
// synchronously within its serialization boundary, so in-memory and
// persisted order never diverge under concurrent readers.
type Store interface {
	// FetchEntries returns all persisted entries in any order.
	FetchEntries() ([]Entry, error)

	// WriteEntry persists a single entry, replacing any existing entry
	// for the same session.
	WriteEntry(entry Entry) error

	// WriteEntries persists a batch atomically. Used by renormalization,
	// the only O(n) write path.
	WriteEntries(entries []Entry) error

	// DeleteEntry removes the entry for the session, if present.
	DeleteEntry(sessionID string) error
}
