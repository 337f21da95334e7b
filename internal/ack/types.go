package ack

// Outcome is the terminal state of a pending upload.
type Outcome int

const (
	// OutcomeSuccess means the backend acknowledged the upload.
	OutcomeSuccess Outcome = iota

	// OutcomeFailure means the backend acknowledged with success=false.
	OutcomeFailure

	// OutcomeTimeout means no acknowledgment arrived within the
	// configured window. Terminal; the caller owns retry policy.
	OutcomeTimeout

	// OutcomeTransportFailure means the message never left the client.
	OutcomeTransportFailure
)

// String returns the human-readable name for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeTransportFailure:
		return "transport_failure"
	default:
		return "unknown"
	}
}

// Result is delivered exactly once on the channel returned by
// BeginRequest, whichever of acknowledgment, timeout, or send failure
// wins the race.
type Result struct {
	// RequestID is the generated id assigned at dispatch time.
	RequestID string

	// Key is the key the request was registered under.
	Key string

	// Outcome is the terminal state.
	Outcome Outcome

	// MatchedKey is set when the resolution came through the fallback
	// path: it carries the key the response actually named, which
	// differs from Key when the backend renamed the resource.
	MatchedKey string
}
