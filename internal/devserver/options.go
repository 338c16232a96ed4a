package devserver

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/sablewing/agent-console/internal/storage"
	"github.com/sablewing/agent-console/internal/storage/memory"
	"github.com/sablewing/agent-console/internal/storage/sqlite"
)

// Option is a functional option for configuring a Backend.
type Option func(*Backend) error

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(b *Backend) error {
		b.addr = addr
		return nil
	}
}

// WithMemory uses the in-memory event store (default).
func WithMemory() Option {
	return func(b *Backend) error {
		b.store = memory.NewStore()
		return nil
	}
}

// WithSQLite uses SQLite-backed event storage at path.
func WithSQLite(path string) Option {
	return func(b *Backend) error {
		store, err := sqlite.New(path)
		if err != nil {
			return fmt.Errorf("create sqlite storage: %w", err)
		}
		b.store = store
		return nil
	}
}

// WithEventStore sets a custom event store adapter.
func WithEventStore(store storage.EventStore) Option {
	return func(b *Backend) error {
		b.store = store
		return nil
	}
}

// WithAPIKey requires the given bearer token on every request.
func WithAPIKey(key string) Option {
	return func(b *Backend) error {
		b.apiKey = key
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Backend) error {
		b.logger = logger
		return nil
	}
}

// WithSeed writes a scripted history for agentID spanning days at startup.
func WithSeed(agentID string, days int) Option {
	return func(b *Backend) error {
		if agentID == "" {
			return fmt.Errorf("seed agent id is required")
		}
		b.seedAgent = agentID
		b.seedDays = days
		return nil
	}
}

// WithSimulator emits a scripted live run for agentID every interval while
// the backend is running.
func WithSimulator(agentID string, interval time.Duration) Option {
	return func(b *Backend) error {
		if agentID == "" {
			return fmt.Errorf("simulator agent id is required")
		}
		b.simAgent = agentID
		b.simInterval = interval
		return nil
	}
}
