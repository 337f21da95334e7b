package coordination

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/reifying/untethered/internal/ack"
	"github.com/reifying/untethered/internal/errors"
	"github.com/reifying/untethered/internal/event"
	"github.com/reifying/untethered/internal/logging"
	"github.com/reifying/untethered/internal/queue"
	"github.com/reifying/untethered/internal/store"
	"github.com/reifying/untethered/internal/transport"
	"github.com/reifying/untethered/internal/windowreg"
)

// Config holds required dependencies for creating a Hub.
type Config struct {
	Bus      *event.Bus
	Sender   transport.Sender
	StateDir string
	Logger   *logging.Logger
}

// Hub wires the coordination components together for a single process:
// the upload acknowledgment coordinator, the window session registry,
// and the persistent priority queue. It owns the lifecycle of the
// state-file watcher.
type Hub struct {
	mu      sync.RWMutex
	started bool

	uploadTimeout   time.Duration
	probeTimeout    time.Duration
	maxPayloadBytes int64
	defaultPriority queue.Priority

	logger  *logging.Logger
	bus     *event.Bus
	acks    *ack.Coordinator
	windows *windowreg.Registry
	queue   *queue.Manager
	watcher *store.Watcher
}

// NewHub creates a Hub wiring all coordination components over the
// given state directory.
func NewHub(cfg Config, opts ...Option) (*Hub, error) {
	if cfg.Bus == nil {
		return nil, errors.New("coordination: Bus is required")
	}
	if cfg.Sender == nil {
		return nil, errors.New("coordination: Sender is required")
	}

	hc := defaultHubConfig()
	for _, opt := range opts {
		opt(hc)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}

	qstore := hc.store
	var fileStore *store.FileStore
	if qstore == nil {
		if cfg.StateDir == "" {
			return nil, errors.New("coordination: StateDir is required")
		}
		fs, err := store.NewFileStore(cfg.StateDir, logger)
		if err != nil {
			return nil, errors.Wrap(err, "opening state store")
		}
		fileStore = fs
		qstore = fs
	}

	manager, err := queue.NewManager(qstore, cfg.Bus, logger)
	if err != nil {
		return nil, err
	}

	h := &Hub{
		uploadTimeout:   hc.uploadTimeout,
		probeTimeout:    hc.probeTimeout,
		maxPayloadBytes: hc.maxPayloadBytes,
		defaultPriority: hc.defaultPriority,
		logger:          logger.WithComponent("hub"),
		bus:             cfg.Bus,
		acks:            ack.NewCoordinator(cfg.Sender, cfg.Bus, logger),
		windows:         windowreg.NewRegistry(cfg.Bus, logger),
		queue:           manager,
	}

	// Watch the state file so external rewrites reload the queue.
	if fileStore != nil && hc.watchStateFile {
		w, err := store.NewWatcher(fileStore, func() {
			if err := manager.Reload(); err != nil {
				h.logger.Warn("queue reload failed", "error", err)
			}
		}, logger)
		if err != nil {
			return nil, errors.Wrap(err, "watching state file")
		}
		h.watcher = w
	}

	return h, nil
}

// Acks returns the upload acknowledgment coordinator.
func (h *Hub) Acks() *ack.Coordinator { return h.acks }

// Windows returns the window session registry.
func (h *Hub) Windows() *windowreg.Registry { return h.windows }

// Queue returns the priority queue manager.
func (h *Hub) Queue() *queue.Manager { return h.queue }

// Bus returns the event bus shared by all components.
func (h *Hub) Bus() *event.Bus { return h.bus }

// Start begins background work. Returns an error if the hub is
// already started.
func (h *Hub) Start(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.started {
		return errors.New("coordination: hub already started")
	}
	h.started = true

	if h.watcher != nil {
		h.watcher.Start()
	}
	h.logger.Debug("hub started")
	return nil
}

// Stop stops background work. It is idempotent.
func (h *Hub) Stop() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.started {
		return nil
	}
	if h.watcher != nil {
		h.watcher.Stop()
	}
	h.started = false
	h.logger.Debug("hub stopped")
	return nil
}

// Running returns whether the hub is currently started.
func (h *Hub) Running() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.started
}

// Upload reads the file at path and uploads it, blocking until the
// acknowledgment arrives, the upload times out, or ctx is canceled.
func (h *Hub) Upload(ctx context.Context, path, storageLocation string) (ack.Result, error) {
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return ack.Result{}, errors.Wrapf(errors.ErrPayloadMissing, "reading %s", path)
	}
	if err != nil {
		return ack.Result{}, errors.Wrapf(err, "reading %s", path)
	}
	return h.UploadContent(ctx, filepath.Base(path), content, storageLocation)
}

// UploadContent uploads an in-memory payload under the given filename.
// Payloads over the configured size cap are rejected before anything
// is sent.
func (h *Hub) UploadContent(ctx context.Context, filename string, content []byte, storageLocation string) (ack.Result, error) {
	if filename == "" {
		return ack.Result{}, errors.NewValidationError("filename is required")
	}
	if len(content) == 0 {
		return ack.Result{}, errors.Wrapf(errors.ErrPayloadMissing, "upload %s has no content", filename)
	}
	if int64(len(content)) > h.maxPayloadBytes {
		return ack.Result{}, errors.Wrapf(errors.ErrPayloadTooLarge,
			"upload %s is %d bytes (limit %d)", filename, len(content), h.maxPayloadBytes)
	}

	ch, err := h.acks.BeginRequest(filename, content, storageLocation, h.uploadTimeout)
	if err != nil {
		return ack.Result{}, err
	}
	return ack.Await(ctx, ch)
}

// HandleUploadResponse routes an acknowledgment from the transport to
// the coordinator.
func (h *Hub) HandleUploadResponse(resp transport.UploadResponse) {
	h.acks.HandleResponse(resp)
}

// TestConnection sends a small probe payload and waits for its
// acknowledgment under the probe timeout. A nil return means the
// transport round-trips.
func (h *Hub) TestConnection(ctx context.Context) error {
	name := fmt.Sprintf("connection-test-%d", time.Now().UnixNano())
	ch, err := h.acks.BeginRequest(name, []byte("ping"), "", h.probeTimeout)
	if err != nil {
		return err
	}
	result, err := ack.Await(ctx, ch)
	if err != nil {
		return err
	}
	switch result.Outcome {
	case ack.OutcomeSuccess:
		return nil
	case ack.OutcomeTimeout:
		return errors.NewTimeoutError("connection test", h.probeTimeout)
	default:
		return errors.Wrapf(errors.ErrTransportFailure, "connection test %s", result.Outcome)
	}
}

// Enqueue adds a session to the queue, using the hub's default
// priority when the name is empty.
func (h *Hub) Enqueue(sessionID, priorityName string) error {
	priority := h.defaultPriority
	if priorityName != "" {
		p, err := queue.ParsePriority(priorityName)
		if err != nil {
			return errors.NewValidationError(err.Error())
		}
		priority = p
	}
	return h.queue.Add(sessionID, priority)
}
