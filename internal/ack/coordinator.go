// Package ack turns the "send a request, later receive a keyed
// acknowledgment, or time out" pattern into a single awaitable result.
// Each outbound request registers a pending completion; an inbound
// acknowledgment and the timeout race on the same entry, and a single
// atomic check-and-remove guarantees exactly one of them resolves the
// caller's channel. The loser observes an already-removed entry and
// takes no action.
//
// Pendings are keyed internally by a generated request id rather than
// the upload filename: the backend renames resources on name collision,
// so the filename is only a correlation hint. A filename index serves
// exact matches; ResolveByFallbackMatch handles renamed responses.
package ack

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/reifying/untethered/internal/errors"
	"github.com/reifying/untethered/internal/event"
	"github.com/reifying/untethered/internal/logging"
	"github.com/reifying/untethered/internal/transport"
)

// pendingCompletion is one outstanding request awaiting an out-of-band
// response. Owned exclusively by the Coordinator for its lifetime:
// created at dispatch, destroyed by whichever of resolve/timeout wins.
type pendingCompletion struct {
	requestID string
	key       string
	timer     *time.Timer

	// done is buffered so resolution never blocks and an abandoned
	// awaitable drains instead of leaking the resolver.
	done chan Result
}

// Coordinator owns the table of outstanding request completions.
// All mutation goes through one mutex; the timeout handler and Resolve
// share takeByID as the single removal primitive.
type Coordinator struct {
	mu      sync.Mutex
	pending map[string]*pendingCompletion // requestID -> pending
	byKey   map[string]string             // key -> requestID

	sender transport.Sender
	bus    *event.Bus
	logger *logging.Logger
}

// NewCoordinator creates a Coordinator that dispatches through sender
// and publishes resolution events on bus. A nil logger uses a no-op
// logger; a nil bus disables event publishing.
func NewCoordinator(sender transport.Sender, bus *event.Bus, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Coordinator{
		pending: make(map[string]*pendingCompletion),
		byKey:   make(map[string]string),
		sender:  sender,
		bus:     bus,
		logger:  logger.WithComponent("ack"),
	}
}

// BeginRequest registers a pending completion under key, hands the
// payload to the transport, and starts the timeout clock. The returned
// channel delivers exactly one Result: acknowledgment, timeout, or
// transport failure, whichever wins.
//
// Returns errors.ErrDuplicateUploadKey if a request is already pending
// under the same key. Callers serialize requests per key; two live
// requests for one key would make acknowledgment matching ambiguous.
//
// The caller may abandon the channel at any time; the entry stays
// registered and drains through the normal timeout path, preserving the
// single-removal invariant.
func (c *Coordinator) BeginRequest(key string, content []byte, storageLocation string, timeout time.Duration) (<-chan Result, error) {
	c.mu.Lock()
	if _, exists := c.byKey[key]; exists {
		c.mu.Unlock()
		return nil, errors.Wrapf(errors.ErrDuplicateUploadKey, "begin request %q", key)
	}

	p := &pendingCompletion{
		requestID: uuid.NewString(),
		key:       key,
		done:      make(chan Result, 1),
	}
	c.pending[p.requestID] = p
	c.byKey[key] = p.requestID

	requestID := p.requestID
	p.timer = time.AfterFunc(timeout, func() {
		c.expire(requestID)
	})
	c.mu.Unlock()

	c.logger.Debug("request registered",
		"request_id", p.requestID,
		"key", key,
		"timeout", timeout.String(),
	)

	err := c.sender.Send(transport.UploadRequest{
		RequestID:       p.requestID,
		Filename:        key,
		Content:         content,
		StorageLocation: storageLocation,
	})
	if err != nil {
		// The send failed synchronously; resolve through the same
		// removal primitive the other paths use. The timeout may have
		// already fired for a pathological zero duration, in which
		// case this is a no-op.
		if taken := c.takeByID(p.requestID); taken != nil {
			c.logger.Warn("transport send failed",
				"request_id", taken.requestID,
				"key", taken.key,
				"error", err.Error(),
			)
			c.deliver(taken, Result{
				RequestID: taken.requestID,
				Key:       taken.key,
				Outcome:   OutcomeTransportFailure,
			})
		}
	}

	return p.done, nil
}

// Resolve consumes an inbound acknowledgment whose key matches a
// pending request verbatim. If no entry is pending under the key
// (already resolved by timeout, or never existed), this is a silent
// no-op; late responses are expected under races and never an error.
func (c *Coordinator) Resolve(key string, success bool) {
	c.mu.Lock()
	requestID, ok := c.byKey[key]
	var p *pendingCompletion
	if ok {
		p = c.takeLocked(requestID)
	}
	c.mu.Unlock()

	if p == nil {
		c.logger.Debug("acknowledgment for unknown key dropped", "key", key)
		return
	}

	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	c.deliver(p, Result{
		RequestID: p.requestID,
		Key:       p.key,
		Outcome:   outcome,
	})
}

// ResolveByFallbackMatch consumes an acknowledgment whose key matched
// no pending request verbatim. If exactly one request is pending, it is
// resolved against that entry and the mismatch is logged; with zero or
// multiple pending entries the response is ambiguous and dropped.
func (c *Coordinator) ResolveByFallbackMatch(responseKey string, success bool) {
	c.mu.Lock()
	var p *pendingCompletion
	if len(c.pending) == 1 {
		for id := range c.pending {
			p = c.takeLocked(id)
		}
	}
	pendingCount := len(c.pending)
	c.mu.Unlock()

	if p == nil {
		c.logger.Warn("unmatched acknowledgment dropped",
			"response_key", responseKey,
			"pending_count", pendingCount,
		)
		return
	}

	c.logger.Warn("acknowledgment key mismatch, resolved by fallback",
		"request_id", p.requestID,
		"pending_key", p.key,
		"response_key", responseKey,
	)
	if c.bus != nil {
		c.bus.Publish(event.NewUploadFallbackMatchedEvent(p.requestID, p.key, responseKey))
	}

	outcome := OutcomeSuccess
	if !success {
		outcome = OutcomeFailure
	}
	c.deliver(p, Result{
		RequestID:  p.requestID,
		Key:        p.key,
		Outcome:    outcome,
		MatchedKey: responseKey,
	})
}

// HandleResponse routes an inbound transport response: request id match
// first, then verbatim key match, then the fallback path.
func (c *Coordinator) HandleResponse(resp transport.UploadResponse) {
	if resp.RequestID != "" {
		if p := c.takeByID(resp.RequestID); p != nil {
			outcome := OutcomeSuccess
			if !resp.Success {
				outcome = OutcomeFailure
			}
			c.deliver(p, Result{RequestID: p.requestID, Key: p.key, Outcome: outcome})
			return
		}
		c.logger.Debug("acknowledgment for unknown request id dropped", "request_id", resp.RequestID)
		return
	}

	c.mu.Lock()
	_, known := c.byKey[resp.Filename]
	c.mu.Unlock()

	if known {
		c.Resolve(resp.Filename, resp.Success)
	} else {
		c.ResolveByFallbackMatch(resp.Filename, resp.Success)
	}
}

// Outstanding returns the number of requests still pending.
func (c *Coordinator) Outstanding() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// expire is the timeout arm of the race. Whichever of expire and
// Resolve wins takeByID is the only one that delivers.
func (c *Coordinator) expire(requestID string) {
	p := c.takeByID(requestID)
	if p == nil {
		return // acknowledgment won
	}

	c.logger.Warn("request timed out", "request_id", p.requestID, "key", p.key)
	c.deliver(p, Result{
		RequestID: p.requestID,
		Key:       p.key,
		Outcome:   OutcomeTimeout,
	})
}

// takeByID atomically removes and returns the pending entry, or nil if
// it was already taken. This is the single removal primitive shared by
// the acknowledgment, fallback, timeout, and send-failure paths.
func (c *Coordinator) takeByID(requestID string) *pendingCompletion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.takeLocked(requestID)
}

// takeLocked removes the entry while the caller holds the mutex.
func (c *Coordinator) takeLocked(requestID string) *pendingCompletion {
	p, ok := c.pending[requestID]
	if !ok {
		return nil
	}
	delete(c.pending, requestID)
	delete(c.byKey, p.key)
	if p.timer != nil {
		p.timer.Stop()
	}
	return p
}

// deliver sends the result on the buffered channel and publishes the
// resolution event. Called at most once per entry, outside the mutex.
func (c *Coordinator) deliver(p *pendingCompletion, result Result) {
	p.done <- result
	if c.bus != nil {
		c.bus.Publish(event.NewUploadResolvedEvent(result.RequestID, result.Key, result.Outcome.String()))
	}
}

// Await blocks until the result channel delivers or ctx is done. On
// cancellation the pending entry is left registered; it drains through
// the timeout path.
func Await(ctx context.Context, ch <-chan Result) (Result, error) {
	select {
	case result := <-ch:
		return result, nil
	case <-ctx.Done():
		return Result{}, errors.Wrap(ctx.Err(), "awaiting acknowledgment")
	}
}
