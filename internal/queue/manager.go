// Package queue implements the reorderable priority queue of sessions.
// Entries live in priority buckets and carry fractional order keys so
// a drag-and-drop move touches exactly one entry; when repeated
// midpoint insertion exhausts the float gap, the affected bucket is
// renormalized back to evenly spaced keys. All mutation runs behind a
// single mutex with synchronous write-through to the store, so the
// persisted order can never drift from the in-memory one.
package queue

import (
	"fmt"
	"sync"

	"github.com/reifying/untethered/internal/errors"
	"github.com/reifying/untethered/internal/event"
	"github.com/reifying/untethered/internal/logging"
	"github.com/reifying/untethered/internal/orderkey"
)

// Manager owns the queue state and is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	entries map[string]Entry
	store   Store
	bus     *event.Bus
	logger  *logging.Logger
}

// NewManager loads the persisted queue from the store and returns a
// manager over it. The bus may be nil when nothing observes changes.
func NewManager(store Store, bus *event.Bus, logger *logging.Logger) (*Manager, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}
	m := &Manager{
		entries: make(map[string]Entry),
		store:   store,
		bus:     bus,
		logger:  logger.WithComponent("queue"),
	}
	persisted, err := store.FetchEntries()
	if err != nil {
		return nil, errors.Wrap(err, "loading queue state")
	}
	for _, e := range persisted {
		m.entries[e.SessionID] = e
	}
	m.logger.Debug("queue loaded", "entries", len(m.entries))
	return m, nil
}

// Entries returns a snapshot of all entries in queue order.
func (m *Manager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// Get returns the entry for the session, if present.
func (m *Manager) Get(sessionID string) (Entry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[sessionID]
	return e, ok
}

// Len returns the number of queued sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Add appends the session at the tail of the given priority bucket.
// Adding a session that is already queued fails with ErrEntryExists.
func (m *Manager) Add(sessionID string, priority Priority) error {
	if sessionID == "" {
		return errors.NewValidationError("session id is required")
	}
	m.mu.Lock()
	if _, ok := m.entries[sessionID]; ok {
		m.mu.Unlock()
		return errors.Wrapf(errors.ErrEntryExists, "session %s already queued", sessionID)
	}
	key := m.tailKeyLocked(priority)
	entry := Entry{SessionID: sessionID, Priority: priority, OrderKey: key}
	if err := m.store.WriteEntry(entry); err != nil {
		m.mu.Unlock()
		return errors.NewQueueError("persisting queue entry", errors.Join(errors.ErrStoreWrite, err)).WithSessionID(sessionID)
	}
	m.entries[sessionID] = entry
	events := m.maybeRenormalizeLocked(priority)
	m.mu.Unlock()

	m.logger.Info("session queued", "session", sessionID, "priority", priority.String(), "orderKey", key)
	m.publish(event.NewQueueChangedEvent(sessionID, event.QueueChangeAdded))
	m.publish(events...)
	return nil
}

// Remove drops the session from the queue. Removing an unqueued
// session fails with ErrEntryNotFound.
func (m *Manager) Remove(sessionID string) error {
	m.mu.Lock()
	prev, ok := m.entries[sessionID]
	if !ok {
		m.mu.Unlock()
		return errors.Wrapf(errors.ErrEntryNotFound, "session %s is not queued", sessionID)
	}
	if err := m.store.DeleteEntry(sessionID); err != nil {
		m.mu.Unlock()
		return errors.NewQueueError("deleting queue entry", errors.Join(errors.ErrStoreWrite, err)).WithSessionID(sessionID)
	}
	delete(m.entries, sessionID)
	m.mu.Unlock()

	m.logger.Info("session dequeued", "session", sessionID, "priority", prev.Priority.String())
	m.publish(event.NewQueueChangedEvent(sessionID, event.QueueChangeRemoved))
	return nil
}

// Reorder moves the session to targetIndex within its priority bucket
// (0 is the head). Moving an entry to the slot it already occupies is
// a no-op: no store write, no change notification. Only the moving
// entry's order key is rewritten; on store failure the in-memory key
// rolls back so memory and disk stay consistent.
func (m *Manager) Reorder(sessionID string, targetIndex int) error {
	m.mu.Lock()
	moving, ok := m.entries[sessionID]
	if !ok {
		m.mu.Unlock()
		return errors.Wrapf(errors.ErrEntryNotFound, "session %s is not queued", sessionID)
	}
	bucket := m.bucketLocked(moving.Priority)
	if targetIndex < 0 || targetIndex >= len(bucket) {
		m.mu.Unlock()
		return errors.NewValidationError(fmt.Sprintf("target index %d out of range [0, %d)", targetIndex, len(bucket)))
	}
	currentIndex := indexOf(bucket, sessionID)
	if targetIndex == currentIndex {
		m.mu.Unlock()
		return nil
	}

	rest := withoutSession(bucket, sessionID)
	var above, below *float64
	if targetIndex > 0 {
		above = &rest[targetIndex-1].OrderKey
	}
	if targetIndex < len(rest) {
		below = &rest[targetIndex].OrderKey
	}
	updated := moving
	updated.OrderKey = orderkey.ComputeInsertionKey(above, below)
	if err := m.store.WriteEntry(updated); err != nil {
		m.mu.Unlock()
		return errors.NewQueueError("persisting queue move", errors.Join(errors.ErrStoreWrite, err)).WithSessionID(sessionID)
	}
	m.entries[sessionID] = updated
	events := m.maybeRenormalizeLocked(moving.Priority)
	m.mu.Unlock()

	m.logger.Info("session moved", "session", sessionID, "from", currentIndex, "to", targetIndex, "orderKey", updated.OrderKey)
	m.publish(event.NewQueueChangedEvent(sessionID, event.QueueChangeMoved))
	m.publish(events...)
	return nil
}

// SetPriority moves the session to the tail of the given bucket.
// Setting the priority an entry already has is a no-op.
func (m *Manager) SetPriority(sessionID string, priority Priority) error {
	m.mu.Lock()
	moving, ok := m.entries[sessionID]
	if !ok {
		m.mu.Unlock()
		return errors.Wrapf(errors.ErrEntryNotFound, "session %s is not queued", sessionID)
	}
	if moving.Priority == priority {
		m.mu.Unlock()
		return nil
	}
	updated := moving
	updated.Priority = priority
	updated.OrderKey = m.tailKeyLocked(priority)
	if err := m.store.WriteEntry(updated); err != nil {
		m.mu.Unlock()
		return errors.NewQueueError("persisting priority change", errors.Join(errors.ErrStoreWrite, err)).WithSessionID(sessionID)
	}
	m.entries[sessionID] = updated
	events := m.maybeRenormalizeLocked(priority)
	m.mu.Unlock()

	m.logger.Info("session priority changed", "session", sessionID,
		"from", moving.Priority.String(), "to", priority.String())
	m.publish(event.NewQueueChangedEvent(sessionID, event.QueueChangePriority))
	m.publish(events...)
	return nil
}

// Reload replaces the in-memory queue with the store's current
// contents. Used when the state file changes underneath the process.
func (m *Manager) Reload() error {
	persisted, err := m.store.FetchEntries()
	if err != nil {
		return errors.Wrap(err, "reloading queue state")
	}
	m.mu.Lock()
	m.entries = make(map[string]Entry, len(persisted))
	for _, e := range persisted {
		m.entries[e.SessionID] = e
	}
	m.mu.Unlock()

	m.logger.Debug("queue reloaded", "entries", len(persisted))
	m.publish(event.NewQueueChangedEvent("", event.QueueChangeReloaded))
	return nil
}

// snapshotLocked copies all entries out in queue order.
func (m *Manager) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e)
	}
	sortEntries(out)
	return out
}

// bucketLocked returns the sorted entries of one priority bucket.
func (m *Manager) bucketLocked(priority Priority) []Entry {
	var out []Entry
	for _, e := range m.entries {
		if e.Priority == priority {
			out = append(out, e)
		}
	}
	sortEntries(out)
	return out
}

// tailKeyLocked computes the order key for appending to a bucket.
func (m *Manager) tailKeyLocked(priority Priority) float64 {
	bucket := m.bucketLocked(priority)
	if len(bucket) == 0 {
		return orderkey.ComputeInsertionKey(nil, nil)
	}
	last := bucket[len(bucket)-1].OrderKey
	return orderkey.ComputeInsertionKey(&last, nil)
}

// maybeRenormalizeLocked checks the bucket's key gaps and, when any
// adjacent pair has collapsed below the minimum, reassigns evenly
// spaced keys to the whole bucket with a single batch write. Returns
// the events to publish once the lock is released. On store failure
// the in-memory keys are left untouched; the collision is caught again
// on the next move.
func (m *Manager) maybeRenormalizeLocked(priority Priority) []event.Event {
	bucket := m.bucketLocked(priority)
	keys := make([]float64, len(bucket))
	for i, e := range bucket {
		keys[i] = e.OrderKey
	}
	if !orderkey.NeedsRenormalization(keys) {
		return nil
	}
	fresh := orderkey.Renormalized(len(bucket))
	updated := make([]Entry, len(bucket))
	for i, e := range bucket {
		e.OrderKey = fresh[i]
		updated[i] = e
	}
	if err := m.store.WriteEntries(updated); err != nil {
		m.logger.Error("renormalization write failed", "priority", priority.String(), "error", err)
		return nil
	}
	for _, e := range updated {
		m.entries[e.SessionID] = e
	}
	m.logger.Info("bucket renormalized", "priority", priority.String(), "entries", len(updated))
	return []event.Event{event.NewQueueRenormalizedEvent(len(updated))}
}

// publish emits events on the bus, outside the manager's lock.
func (m *Manager) publish(events ...event.Event) {
	if m.bus == nil {
		return
	}
	for _, e := range events {
		m.bus.Publish(e)
	}
}

// indexOf returns the position of the session in the sorted bucket,
// or -1 when absent.
func indexOf(bucket []Entry, sessionID string) int {
	for i, e := range bucket {
		if e.SessionID == sessionID {
			return i
		}
	}
	return -1
}

// withoutSession returns the bucket with the session's entry removed.
func withoutSession(bucket []Entry, sessionID string) []Entry {
	out := make([]Entry, 0, len(bucket)-1)
	for _, e := range bucket {
		if e.SessionID != sessionID {
			out = append(out, e)
		}
	}
	return out
}
