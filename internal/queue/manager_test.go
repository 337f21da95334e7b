package queue

import (
	"fmt"
	"testing"

	"github.com/reifying/untethered/internal/errors"
	"github.com/reifying/untethered/internal/event"
	"github.com/reifying/untethered/internal/orderkey"
)

// fakeStore counts writes and can be told to fail.
type fakeStore struct {
	entries       map[string]Entry
	writes        int
	batchWrites   int
	deletes       int
	failNextWrite bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string]Entry)}
}

func (s *fakeStore) FetchEntries() ([]Entry, error) {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	return out, nil
}

func (s *fakeStore) WriteEntry(entry Entry) error {
	if s.failNextWrite {
		s.failNextWrite = false
		return fmt.Errorf("disk full")
	}
	s.writes++
	s.entries[entry.SessionID] = entry
	return nil
}

func (s *fakeStore) WriteEntries(entries []Entry) error {
	if s.failNextWrite {
		s.failNextWrite = false
		return fmt.Errorf("disk full")
	}
	s.batchWrites++
	for _, e := range entries {
		s.entries[e.SessionID] = e
	}
	return nil
}

func (s *fakeStore) DeleteEntry(sessionID string) error {
	s.deletes++
	delete(s.entries, sessionID)
	return nil
}

func newTestManager(t *testing.T) (*Manager, *fakeStore, *event.Bus) {
	t.Helper()
	store := newFakeStore()
	bus := event.NewBus()
	m, err := NewManager(store, bus, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m, store, bus
}

func sessionIDs(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.SessionID
	}
	return out
}

func assertOrder(t *testing.T, m *Manager, want ...string) {
	t.Helper()
	got := sessionIDs(m.Entries())
	if len(got) != len(want) {
		t.Fatalf("queue order = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("queue order = %v, want %v", got, want)
		}
	}
}

func TestAdd_AppendsAtBucketTail(t *testing.T) {
	m, _, _ := newTestManager(t)

	for _, id := range []string{"a", "b", "c"} {
		if err := m.Add(id, PriorityMedium); err != nil {
			t.Fatalf("Add(%s): %v", id, err)
		}
	}
	if err := m.Add("urgent", PriorityHigh); err != nil {
		t.Fatalf("Add(urgent): %v", err)
	}

	assertOrder(t, m, "urgent", "a", "b", "c")
}

func TestAdd_DuplicateSession(t *testing.T) {
	m, store, _ := newTestManager(t)

	if err := m.Add("a", PriorityMedium); err != nil {
		t.Fatalf("Add: %v", err)
	}
	writes := store.writes

	err := m.Add("a", PriorityHigh)
	if !errors.Is(err, errors.ErrEntryExists) {
		t.Errorf("duplicate Add error = %v, want ErrEntryExists", err)
	}
	if store.writes != writes {
		t.Errorf("duplicate Add wrote to store")
	}
}

func TestAdd_EmptySessionID(t *testing.T) {
	m, _, _ := newTestManager(t)
	if err := m.Add("", PriorityMedium); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Add(\"\") error = %v, want ErrInvalidInput", err)
	}
}

func TestRemove(t *testing.T) {
	m, store, _ := newTestManager(t)

	m.Add("a", PriorityMedium)
	m.Add("b", PriorityMedium)

	if err := m.Remove("a"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	assertOrder(t, m, "b")
	if store.deletes != 1 {
		t.Errorf("deletes = %d, want 1", store.deletes)
	}

	if err := m.Remove("a"); !errors.Is(err, errors.ErrEntryNotFound) {
		t.Errorf("Remove(missing) error = %v, want ErrEntryNotFound", err)
	}
}

func TestReorder_MovesWithinBucket(t *testing.T) {
	m, store, _ := newTestManager(t)

	for _, id := range []string{"a", "b", "c", "d"} {
		m.Add(id, PriorityMedium)
	}
	writes := store.writes

	if err := m.Reorder("d", 0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	assertOrder(t, m, "d", "a", "b", "c")
	if got := store.writes - writes; got != 1 {
		t.Errorf("move wrote %d entries, want 1", got)
	}

	if err := m.Reorder("a", 3); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	assertOrder(t, m, "d", "b", "c", "a")

	if err := m.Reorder("c", 1); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	assertOrder(t, m, "d", "c", "b", "a")
}

func TestReorder_SameSlotIsNoOp(t *testing.T) {
	m, store, bus := newTestManager(t)

	m.Add("a", PriorityMedium)
	m.Add("b", PriorityMedium)

	var changes int
	bus.Subscribe("queue.changed", func(event.Event) { changes++ })
	writes := store.writes

	if err := m.Reorder("b", 1); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	if store.writes != writes {
		t.Errorf("no-op move wrote to store")
	}
	if changes != 0 {
		t.Errorf("no-op move published %d change events", changes)
	}
	assertOrder(t, m, "a", "b")
}

func TestReorder_TargetOutOfRange(t *testing.T) {
	m, _, _ := newTestManager(t)
	m.Add("a", PriorityMedium)

	for _, idx := range []int{-1, 1, 5} {
		if err := m.Reorder("a", idx); !errors.Is(err, errors.ErrInvalidInput) {
			t.Errorf("Reorder(a, %d) error = %v, want ErrInvalidInput", idx, err)
		}
	}
	if err := m.Reorder("ghost", 0); !errors.Is(err, errors.ErrEntryNotFound) {
		t.Errorf("Reorder(ghost) error = %v, want ErrEntryNotFound", err)
	}
}

func TestReorder_StoreFailureKeepsOrder(t *testing.T) {
	m, store, _ := newTestManager(t)

	m.Add("a", PriorityMedium)
	m.Add("b", PriorityMedium)
	store.failNextWrite = true

	err := m.Reorder("b", 0)
	if !errors.Is(err, errors.ErrStoreWrite) {
		t.Fatalf("Reorder error = %v, want ErrStoreWrite", err)
	}
	// In-memory order must still match what the store holds.
	assertOrder(t, m, "a", "b")
	keyInStore := store.entries["b"].OrderKey
	got, _ := m.Get("b")
	if got.OrderKey != keyInStore {
		t.Errorf("in-memory key %v diverged from stored key %v", got.OrderKey, keyInStore)
	}
}

func TestReorder_IgnoresOtherBuckets(t *testing.T) {
	m, _, _ := newTestManager(t)

	m.Add("hi", PriorityHigh)
	m.Add("a", PriorityMedium)
	m.Add("b", PriorityMedium)
	m.Add("lo", PriorityLow)

	// Index 0 is the head of b's own bucket, not the global head.
	if err := m.Reorder("b", 0); err != nil {
		t.Fatalf("Reorder: %v", err)
	}
	assertOrder(t, m, "hi", "b", "a", "lo")
}

func TestSetPriority(t *testing.T) {
	m, store, _ := newTestManager(t)

	m.Add("a", PriorityMedium)
	m.Add("b", PriorityMedium)
	m.Add("hi", PriorityHigh)

	if err := m.SetPriority("a", PriorityHigh); err != nil {
		t.Fatalf("SetPriority: %v", err)
	}
	// Promoted entries join the tail of the new bucket.
	assertOrder(t, m, "hi", "a", "b")

	writes := store.writes
	if err := m.SetPriority("a", PriorityHigh); err != nil {
		t.Fatalf("SetPriority same bucket: %v", err)
	}
	if store.writes != writes {
		t.Errorf("same-bucket SetPriority wrote to store")
	}

	if err := m.SetPriority("ghost", PriorityLow); !errors.Is(err, errors.ErrEntryNotFound) {
		t.Errorf("SetPriority(ghost) error = %v, want ErrEntryNotFound", err)
	}
}

func TestEntries_TotalOrderWithCollidingKeys(t *testing.T) {
	store := newFakeStore()
	// Identical order keys within a bucket: the session id breaks the
	// tie, so iteration order is still deterministic.
	store.entries["zeta"] = Entry{SessionID: "zeta", Priority: PriorityMedium, OrderKey: 1000}
	store.entries["alpha"] = Entry{SessionID: "alpha", Priority: PriorityMedium, OrderKey: 1000}
	store.entries["mid"] = Entry{SessionID: "mid", Priority: PriorityMedium, OrderKey: 500}

	m, err := NewManager(store, nil, nil)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	assertOrder(t, m, "mid", "alpha", "zeta")
}

func TestRenormalization_RestoresGaps(t *testing.T) {
	m, store, bus := newTestManager(t)

	var renorms int
	bus.Subscribe("queue.renormalized", func(event.Event) { renorms++ })

	for _, id := range []string{"a", "b", "c"} {
		m.Add(id, PriorityMedium)
	}

	// Moving the tail entry between the first two halves the gap each
	// time; the collision must be caught before keys collide.
	for i := 0; i < 80 && renorms == 0; i++ {
		tail := m.Entries()[2].SessionID
		if err := m.Reorder(tail, 1); err != nil {
			t.Fatalf("Reorder #%d: %v", i, err)
		}
	}
	if renorms == 0 {
		t.Fatal("renormalization never triggered")
	}
	if store.batchWrites == 0 {
		t.Error("renormalization did not batch-write the bucket")
	}

	entries := m.Entries()
	for i := 1; i < len(entries); i++ {
		gap := entries[i].OrderKey - entries[i-1].OrderKey
		if gap < orderkey.UnitStep {
			t.Errorf("gap after renormalization = %v, want >= %v", gap, orderkey.UnitStep)
		}
	}
}

func TestReload(t *testing.T) {
	m, store, bus := newTestManager(t)
	m.Add("a", PriorityMedium)

	var reloads int
	bus.Subscribe("queue.changed", func(e event.Event) {
		if e.(event.QueueChangedEvent).Change == event.QueueChangeReloaded {
			reloads++
		}
	})

	// Another process rewrote the state file.
	store.entries["b"] = Entry{SessionID: "b", Priority: PriorityHigh, OrderKey: 1000}
	delete(store.entries, "a")

	if err := m.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	assertOrder(t, m, "b")
	if reloads != 1 {
		t.Errorf("reload events = %d, want 1", reloads)
	}
}

func TestPriorityString(t *testing.T) {
	cases := map[Priority]string{
		PriorityHigh:   "high",
		PriorityMedium: "medium",
		PriorityLow:    "low",
		Priority(99):   "unknown",
	}
	for p, want := range cases {
		if got := p.String(); got != want {
			t.Errorf("Priority(%d).String() = %q, want %q", p, got, want)
		}
	}
}
