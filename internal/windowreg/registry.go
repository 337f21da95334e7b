// Package windowreg enforces that a logical session is rendered and
// edited in at most one window at a time. A claim attempt either grants
// exclusive ownership or redirects the caller to the window that
// already holds the session; a losing claimer never silently overwrites
// the winner. Claims live for the process only and are never persisted.
package windowreg

import (
	"sort"
	"sync"
	"time"

	"github.com/reifying/untethered/internal/event"
	"github.com/reifying/untethered/internal/logging"
)

// Registry owns the session-to-window mapping and the "main window"
// designation that detached indicators are computed against. All
// mutation goes through one write lock; events and watch handlers fire
// outside it so they may safely call back into read methods.
type Registry struct {
	mu         sync.RWMutex
	claims     map[string]Claim // sessionID -> claim
	mainWindow Window
	handlers   []func(Claim)

	bus    *event.Bus
	logger *logging.Logger
}

// NewRegistry creates a Registry publishing on the given bus. A nil bus
// disables event publishing; a nil logger uses a no-op logger.
func NewRegistry(bus *event.Bus, logger *logging.Logger) *Registry {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Registry{
		claims: make(map[string]Claim),
		bus:    bus,
		logger: logger.WithComponent("windowreg"),
	}
}

// Claim attempts to associate the session with the window. If the
// session is unclaimed, the claim is recorded. If the requesting window
// already holds it, the claim is refreshed. If another window holds it,
// the result redirects to that holder and state is unchanged.
func (r *Registry) Claim(sessionID string, win Window) (ClaimResult, error) {
	if win == nil {
		return ClaimResult{}, ErrNoWindow
	}

	r.mu.Lock()
	existing, held := r.claims[sessionID]
	if held && existing.Window.ID() != win.ID() {
		r.mu.Unlock()
		r.logger.Debug("claim redirected",
			"session_id", sessionID,
			"window_id", win.ID(),
			"holder_id", existing.Window.ID(),
		)
		return ClaimResult{Granted: false, Holder: existing.Window}, nil
	}

	claim := Claim{SessionID: sessionID, Window: win, ClaimedAt: time.Now()}
	r.claims[sessionID] = claim
	refresh := held
	r.mu.Unlock()

	// A refresh by the holding window changes nothing observable.
	if !refresh {
		r.logger.Debug("session claimed", "session_id", sessionID, "window_id", win.ID())
		if r.bus != nil {
			r.bus.Publish(event.NewSessionClaimedEvent(sessionID, win.ID()))
		}
		r.notifyHandlers(claim)
	}

	return ClaimResult{Granted: true, Holder: win}, nil
}

// Release removes the session's claim unconditionally. Used when a
// window navigates away from a session. A release of an unclaimed
// session is a no-op.
func (r *Registry) Release(sessionID string) {
	r.mu.Lock()
	claim, held := r.claims[sessionID]
	if held {
		delete(r.claims, sessionID)
	}
	r.mu.Unlock()

	if held {
		r.logger.Debug("session released", "session_id", sessionID, "window_id", claim.Window.ID())
		if r.bus != nil {
			r.bus.Publish(event.NewSessionReleasedEvent(sessionID, claim.Window.ID()))
		}
	}
}

// ReleaseAll removes every claim held by the window. Used on window
// close. If the closing window was the designated main window, the
// designation is cleared.
func (r *Registry) ReleaseAll(win Window) {
	if win == nil {
		return
	}

	r.mu.Lock()
	var released []string
	for sessionID, claim := range r.claims {
		if claim.Window.ID() == win.ID() {
			released = append(released, sessionID)
			delete(r.claims, sessionID)
		}
	}
	sort.Strings(released)

	mainCleared := false
	if r.mainWindow != nil && r.mainWindow.ID() == win.ID() {
		r.mainWindow = nil
		mainCleared = true
	}
	r.mu.Unlock()

	for _, sessionID := range released {
		if r.bus != nil {
			r.bus.Publish(event.NewSessionReleasedEvent(sessionID, win.ID()))
		}
	}
	if mainCleared {
		r.logger.Info("main window closed", "window_id", win.ID())
		if r.bus != nil {
			r.bus.Publish(event.NewMainWindowChangedEvent(""))
		}
	}
}

// SetMainWindow designates the reference window that "detached" is
// computed against. Idempotent; re-designating the same window emits
// nothing.
func (r *Registry) SetMainWindow(win Window) {
	r.mu.Lock()
	same := r.mainWindow != nil && win != nil && r.mainWindow.ID() == win.ID()
	if !same {
		r.mainWindow = win
	}
	r.mu.Unlock()

	if same {
		return
	}

	id := ""
	if win != nil {
		id = win.ID()
	}
	r.logger.Debug("main window designated", "window_id", id)
	if r.bus != nil {
		r.bus.Publish(event.NewMainWindowChangedEvent(id))
	}
}

// MainWindow returns the designated main window, or nil.
func (r *Registry) MainWindow() Window {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.mainWindow
}

// Holder returns the window currently displaying the session and true,
// or (nil, false) if the session is unclaimed.
func (r *Registry) Holder(sessionID string) (Window, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	claim, ok := r.claims[sessionID]
	if !ok {
		return nil, false
	}
	return claim.Window, true
}

// IsDetached reports whether the session is claimed by any window other
// than the designated main window. Drives an indicator in the session
// list, not a correctness invariant.
func (r *Registry) IsDetached(sessionID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	claim, ok := r.claims[sessionID]
	if !ok {
		return false
	}
	if r.mainWindow == nil {
		return true
	}
	return claim.Window.ID() != r.mainWindow.ID()
}

// DetachedSessions returns the sessions currently claimed by non-main
// windows, sorted for deterministic output.
func (r *Registry) DetachedSessions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var detached []string
	for sessionID, claim := range r.claims {
		if r.mainWindow == nil || claim.Window.ID() != r.mainWindow.ID() {
			detached = append(detached, sessionID)
		}
	}
	sort.Strings(detached)
	return detached
}

// WatchClaims registers a handler called whenever a new claim is
// established. Handlers run outside the registry's lock; they may
// safely call read methods without deadlocking.
func (r *Registry) WatchClaims(handler func(Claim)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

// notifyHandlers calls all registered claim handlers outside the write
// lock.
func (r *Registry) notifyHandlers(claim Claim) {
	r.mu.RLock()
	handlers := make([]func(Claim), len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	for _, h := range handlers {
		h(claim)
	}
}
