package windowreg

import (
	"time"

	"github.com/reifying/untethered/internal/errors"
)

// Window is the opaque handle the presentation layer passes in when
// claiming a session. The registry holds it as a non-owning reference;
// window lifetime belongs to the presentation layer, which must call
// ReleaseAll when a window closes.
type Window interface {
	// ID returns a stable identifier for the window, unique for the
	// life of the process.
	ID() string
}

// Claim records that a session is currently displayed in a window.
type Claim struct {
	SessionID string
	Window    Window
	ClaimedAt time.Time
}

// ClaimResult is the outcome of a claim attempt. A rejected claim is
// not an error: the caller is expected to bring Holder forward instead
// of proceeding with its own display.
type ClaimResult struct {
	// Granted is true when the session was unclaimed or already held
	// by the requesting window.
	Granted bool

	// Holder is the window that actually holds the claim. On a grant
	// this is the requesting window; on a redirect it names the
	// conflicting holder.
	Holder Window
}

// ErrNoWindow indicates a claim attempt with a nil window handle.
var ErrNoWindow = errors.New("window handle is nil")
