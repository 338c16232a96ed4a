package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sablewing/agent-console/internal/storage"
	"github.com/sablewing/agent-console/internal/storage/memory"
)

// Backend bundles the dev server with its storage, push hub, and fixture
// generators. It can be embedded in larger programs or run standalone by the
// serve command.
type Backend struct {
	addr   string
	apiKey string
	logger *slog.Logger
	store  storage.EventStore

	seedAgent string
	seedDays  int

	simAgent    string
	simInterval time.Duration

	hub *Hub
	srv *Server

	ctx    context.Context
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewBackend creates a backend with the given options.
func NewBackend(opts ...Option) (*Backend, error) {
	b := &Backend{
		addr:   ":8640",
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, fmt.Errorf("apply option: %w", err)
		}
	}

	if b.store == nil {
		b.logger.Info("no event store specified, using in-memory storage")
		b.store = memory.NewStore()
	}
	b.hub = NewHub(b.logger)

	return b, nil
}

// Start seeds fixture history if requested, launches the simulator, and
// starts the HTTP server in the background.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.ctx, b.cancel = context.WithCancel(ctx)

	if b.seedAgent != "" {
		seeder, err := NewSeeder(b.store)
		if err != nil {
			return fmt.Errorf("create seeder: %w", err)
		}
		n, err := seeder.Seed(b.ctx, b.seedAgent, b.seedDays)
		if err != nil {
			return fmt.Errorf("seed history: %w", err)
		}
		b.logger.Info("seeded fixture history",
			slog.String("agent_id", b.seedAgent),
			slog.Int("events", n),
			slog.Int("days", b.seedDays))
	}

	if b.simAgent != "" {
		sim, err := NewSimulator(b.store, b.hub, b.logger, b.simInterval)
		if err != nil {
			return fmt.Errorf("create simulator: %w", err)
		}
		go func() {
			if err := sim.Run(b.ctx, []string{b.simAgent}); err != nil && !errors.Is(err, context.Canceled) {
				b.logger.Error("simulator stopped", slog.String("error", err.Error()))
			}
		}()
		b.logger.Info("simulator started",
			slog.String("agent_id", b.simAgent),
			slog.Duration("interval", b.simInterval))
	}

	b.srv = New(b.addr, b.store, b.hub, b.apiKey, b.logger)
	go func() {
		if err := b.srv.Start(); err != nil {
			b.logger.Error("server error", slog.String("error", err.Error()))
		}
	}()

	b.logger.Info("dev backend started",
		slog.String("addr", b.addr),
		slog.Bool("auth", b.apiKey != ""))

	return nil
}

// Shutdown gracefully stops the backend and closes its storage.
func (b *Backend) Shutdown(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.cancel != nil {
		b.cancel()
	}

	if b.srv != nil {
		if err := b.srv.Shutdown(ctx); err != nil {
			b.logger.Error("failed to shutdown server", slog.String("error", err.Error()))
			return err
		}
	}

	if err := b.store.Close(); err != nil {
		b.logger.Error("failed to close storage", slog.String("error", err.Error()))
	}

	b.logger.Info("dev backend shutdown complete")
	return nil
}
