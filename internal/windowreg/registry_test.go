package windowreg

import (
	"fmt"
	"sync"
	"testing"

	"github.com/reifying/untethered/internal/event"
)

// stubWindow is a test double for a presentation-layer window handle.
type stubWindow struct{ id string }

func (w *stubWindow) ID() string { return w.id }

func newRegistryForTest() (*Registry, *event.Bus) {
	bus := event.NewBus()
	return NewRegistry(bus, nil), bus
}

func TestClaim_Unclaimed(t *testing.T) {
	r, _ := newRegistryForTest()
	winA := &stubWindow{id: "A"}

	result, err := r.Claim("sess-1", winA)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if !result.Granted {
		t.Fatal("claim of unclaimed session not granted")
	}
	if result.Holder.ID() != "A" {
		t.Errorf("Holder = %s, want A", result.Holder.ID())
	}

	holder, ok := r.Holder("sess-1")
	if !ok || holder.ID() != "A" {
		t.Errorf("Holder(sess-1) = %v, %v; want A, true", holder, ok)
	}
}

func TestClaim_RefreshBySameWindow(t *testing.T) {
	r, bus := newRegistryForTest()
	winA := &stubWindow{id: "A"}

	var claimed int
	bus.Subscribe("session.claimed", func(event.Event) { claimed++ })

	r.Claim("sess-1", winA)
	result, err := r.Claim("sess-1", winA)
	if err != nil {
		t.Fatalf("re-claim: %v", err)
	}
	if !result.Granted {
		t.Error("re-claim by holding window not granted")
	}
	if claimed != 1 {
		t.Errorf("claim events = %d, want 1 (refresh emits nothing)", claimed)
	}
}

func TestClaim_ConflictRedirects(t *testing.T) {
	r, _ := newRegistryForTest()
	winA := &stubWindow{id: "A"}
	winB := &stubWindow{id: "B"}

	r.Claim("sess-1", winA)

	result, err := r.Claim("sess-1", winB)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if result.Granted {
		t.Fatal("conflicting claim was granted")
	}
	if result.Holder.ID() != "A" {
		t.Errorf("redirect Holder = %s, want A", result.Holder.ID())
	}

	// A's claim is unaffected by the rejected attempt.
	holder, _ := r.Holder("sess-1")
	if holder.ID() != "A" {
		t.Errorf("Holder after rejected claim = %s, want A", holder.ID())
	}
}

func TestClaim_NilWindow(t *testing.T) {
	r, _ := newRegistryForTest()
	if _, err := r.Claim("sess-1", nil); err != ErrNoWindow {
		t.Errorf("Claim(nil) error = %v, want ErrNoWindow", err)
	}
}

func TestRelease(t *testing.T) {
	r, bus := newRegistryForTest()
	winA := &stubWindow{id: "A"}

	var released int
	bus.Subscribe("session.released", func(event.Event) { released++ })

	r.Claim("sess-1", winA)
	r.Release("sess-1")

	if _, ok := r.Holder("sess-1"); ok {
		t.Error("session still claimed after Release")
	}
	if released != 1 {
		t.Errorf("release events = %d, want 1", released)
	}

	// Releasing an unclaimed session is a no-op.
	r.Release("sess-1")
	if released != 1 {
		t.Errorf("release events after no-op = %d, want 1", released)
	}

	// The session can be claimed by another window afterwards.
	winB := &stubWindow{id: "B"}
	if result, _ := r.Claim("sess-1", winB); !result.Granted {
		t.Error("claim after release not granted")
	}
}

func TestReleaseAll(t *testing.T) {
	r, bus := newRegistryForTest()
	winA := &stubWindow{id: "A"}
	winB := &stubWindow{id: "B"}

	var mainChanged []string
	bus.Subscribe("window.main_changed", func(e event.Event) {
		mainChanged = append(mainChanged, e.(event.MainWindowChangedEvent).WindowID)
	})

	r.SetMainWindow(winA)
	r.Claim("sess-1", winA)
	r.Claim("sess-2", winA)
	r.Claim("sess-3", winB)

	r.ReleaseAll(winA)

	if _, ok := r.Holder("sess-1"); ok {
		t.Error("sess-1 still claimed after ReleaseAll(A)")
	}
	if _, ok := r.Holder("sess-2"); ok {
		t.Error("sess-2 still claimed after ReleaseAll(A)")
	}
	if holder, ok := r.Holder("sess-3"); !ok || holder.ID() != "B" {
		t.Error("ReleaseAll(A) disturbed B's claim")
	}

	// Closing the main window clears the designation.
	if r.MainWindow() != nil {
		t.Error("main window designation survived ReleaseAll of main")
	}
	if len(mainChanged) != 2 || mainChanged[1] != "" {
		t.Errorf("main_changed events = %v, want [A \"\"]", mainChanged)
	}
}

func TestIsDetached(t *testing.T) {
	r, _ := newRegistryForTest()
	main := &stubWindow{id: "main"}
	aux := &stubWindow{id: "aux"}

	r.SetMainWindow(main)
	r.Claim("in-main", main)
	r.Claim("in-aux", aux)

	if r.IsDetached("in-main") {
		t.Error("session in main window reported detached")
	}
	if !r.IsDetached("in-aux") {
		t.Error("session in aux window not reported detached")
	}
	if r.IsDetached("unclaimed") {
		t.Error("unclaimed session reported detached")
	}

	got := r.DetachedSessions()
	if len(got) != 1 || got[0] != "in-aux" {
		t.Errorf("DetachedSessions() = %v, want [in-aux]", got)
	}

	// Re-designating main flips the indicator.
	r.SetMainWindow(aux)
	if r.IsDetached("in-aux") {
		t.Error("session in new main window reported detached")
	}
	if !r.IsDetached("in-main") {
		t.Error("session in old main window not reported detached")
	}
}

func TestSetMainWindow_Idempotent(t *testing.T) {
	r, bus := newRegistryForTest()
	main := &stubWindow{id: "main"}

	var changes int
	bus.Subscribe("window.main_changed", func(event.Event) { changes++ })

	r.SetMainWindow(main)
	r.SetMainWindow(main)
	r.SetMainWindow(main)

	if changes != 1 {
		t.Errorf("main_changed events = %d, want 1", changes)
	}
}

func TestWatchClaims(t *testing.T) {
	r, _ := newRegistryForTest()
	winA := &stubWindow{id: "A"}

	var seen []Claim
	r.WatchClaims(func(c Claim) {
		seen = append(seen, c)
		// Handlers may call read methods without deadlocking.
		r.Holder(c.SessionID)
	})

	r.Claim("sess-1", winA)
	r.Claim("sess-1", winA) // refresh, no notification

	if len(seen) != 1 {
		t.Fatalf("watch handler called %d times, want 1", len(seen))
	}
	if seen[0].SessionID != "sess-1" || seen[0].Window.ID() != "A" {
		t.Errorf("unexpected claim notification: %+v", seen[0])
	}
}

// Claim exclusivity: for concurrent claims on one session, exactly one
// window wins and every loser is redirected to the actual holder.
func TestClaim_ConcurrentExclusivity(t *testing.T) {
	r, _ := newRegistryForTest()

	const claimers = 32
	results := make([]ClaimResult, claimers)

	var wg sync.WaitGroup
	for i := 0; i < claimers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			win := &stubWindow{id: fmt.Sprintf("win-%d", i)}
			result, err := r.Claim("contested", win)
			if err != nil {
				t.Errorf("Claim: %v", err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	holder, ok := r.Holder("contested")
	if !ok {
		t.Fatal("no holder after concurrent claims")
	}

	granted := 0
	for i, result := range results {
		if result.Granted {
			granted++
			if result.Holder.ID() != holder.ID() {
				t.Errorf("winner %d holds %s but registry says %s", i, result.Holder.ID(), holder.ID())
			}
		} else if result.Holder.ID() != holder.ID() {
			t.Errorf("loser %d redirected to %s, actual holder %s", i, result.Holder.ID(), holder.ID())
		}
	}
	if granted != 1 {
		t.Errorf("%d claims granted, want exactly 1", granted)
	}
}
