package coordination

import (
	"time"

	"github.com/reifying/untethered/internal/queue"
)

// hubConfig holds optional configuration for a Hub.
type hubConfig struct {
	uploadTimeout   time.Duration
	probeTimeout    time.Duration
	maxPayloadBytes int64
	defaultPriority queue.Priority
	store           queue.Store
	watchStateFile  bool
}

func defaultHubConfig() *hubConfig {
	return &hubConfig{
		uploadTimeout:   30 * time.Second,
		probeTimeout:    5 * time.Second,
		maxPayloadBytes: 100 * 1024 * 1024,
		defaultPriority: queue.PriorityMedium,
		watchStateFile:  true,
	}
}

// Option configures a Hub.
type Option func(*hubConfig)

// WithUploadTimeout sets how long uploads wait for an acknowledgment.
func WithUploadTimeout(d time.Duration) Option {
	return func(c *hubConfig) {
		if d > 0 {
			c.uploadTimeout = d
		}
	}
}

// WithConnectionTestTimeout sets the deadline for connectivity probes.
func WithConnectionTestTimeout(d time.Duration) Option {
	return func(c *hubConfig) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// WithMaxPayloadBytes sets the largest payload accepted for upload.
func WithMaxPayloadBytes(n int64) Option {
	return func(c *hubConfig) {
		if n > 0 {
			c.maxPayloadBytes = n
		}
	}
}

// WithDefaultPriority sets the bucket for sessions enqueued without an
// explicit priority.
func WithDefaultPriority(p queue.Priority) Option {
	return func(c *hubConfig) { c.defaultPriority = p }
}

// WithStore overrides the file-backed queue store. When set, StateDir
// is not used and no state-file watcher is created.
func WithStore(s queue.Store) Option {
	return func(c *hubConfig) { c.store = s }
}

// WithoutStateFileWatcher disables reloading the queue when the state
// file changes on disk.
func WithoutStateFileWatcher() Option {
	return func(c *hubConfig) { c.watchStateFile = false }
}
