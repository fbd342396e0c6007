package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/handwave/relay/internal/journal"
	"github.com/handwave/relay/internal/registry"
)

// Config holds sweeper configuration.
type Config struct {
	Interval       time.Duration // Sweep interval (default: 5m)
	StaleThreshold time.Duration // Inactivity before eviction (default: 1h)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:       5 * time.Minute,
		StaleThreshold: time.Hour,
	}
}

// Sweeper periodically evicts registry records with no recent activity.
type Sweeper struct {
	cfg     Config
	store   registry.Store
	journal *journal.Writer
	logger  *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	cycles  int64
	evicted int64
}

// Stats holds sweeper counters.
type Stats struct {
	Cycles  int64
	Evicted int64
}

// New creates a new Sweeper. The journal may be nil to disable eviction
// journaling.
func New(cfg Config, store registry.Store, jw *journal.Writer, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		cfg:     cfg,
		store:   store,
		journal: jw,
		logger:  logger,
	}
}

// Start begins the sweep loop.
func (s *Sweeper) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.run()

	s.logger.Info("lifecycle sweeper started",
		"interval", s.cfg.Interval,
		"stale_threshold", s.cfg.StaleThreshold,
	)

	return nil
}

// Stop gracefully shuts down the sweeper.
func (s *Sweeper) Stop(ctx context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("lifecycle sweeper stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns current sweep counters.
func (s *Sweeper) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{Cycles: s.cycles, Evicted: s.evicted}
}

// run is the main sweep loop.
func (s *Sweeper) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep evicts every record whose last activity predates the cutoff.
func (s *Sweeper) sweep() {
	start := time.Now()
	cutoff := start.Add(-s.cfg.StaleThreshold)

	stale, err := s.store.ListStale(s.ctx, cutoff)
	if err != nil {
		s.logger.Error("list stale connections failed", "error", err)
		return
	}

	evicted := 0
	for _, connID := range stale {
		if err := s.store.Remove(s.ctx, connID); err != nil {
			s.logger.Warn("evict connection failed", "conn_id", connID, "error", err)
			continue
		}

		s.journal.Record(journal.Event{
			Kind:   journal.KindEvict,
			ConnID: connID,
			At:     start,
		})

		evicted++
		s.logger.Debug("stale connection evicted", "conn_id", connID)
	}

	s.mu.Lock()
	s.cycles++
	s.evicted += int64(evicted)
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Info("sweep cycle complete",
			"stale", len(stale),
			"evicted", evicted,
			"cutoff", cutoff,
			"duration", time.Since(start),
		)
	}
}
