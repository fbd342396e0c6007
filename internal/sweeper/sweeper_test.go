package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/handwave/relay/internal/model"
	"github.com/handwave/relay/internal/registry"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Interval != 5*time.Minute {
		t.Errorf("Interval = %v, want 5m", cfg.Interval)
	}
	if cfg.StaleThreshold != time.Hour {
		t.Errorf("StaleThreshold = %v, want 1h", cfg.StaleThreshold)
	}
}

func register(t *testing.T, store registry.Store, connID, userID string, lastActivity time.Time) {
	t.Helper()

	err := store.Register(context.Background(), model.Connection{
		ID:           connID,
		UserID:       userID,
		Status:       model.StatusActive,
		ConnectedAt:  lastActivity,
		LastActivity: lastActivity,
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", connID, err)
	}
}

func TestSweeper_EvictsStaleConnections(t *testing.T) {
	store := registry.NewMemory()
	now := time.Now().UTC()

	register(t, store, "old", "u1", now.Add(-2*time.Hour))
	register(t, store, "fresh", "u2", now)

	cfg := Config{Interval: time.Hour, StaleThreshold: time.Hour}
	s := New(cfg, store, nil, nil)

	// Run one cycle directly.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.ctx = ctx

	s.sweep()

	if _, found, _ := store.Lookup(ctx, "old"); found {
		t.Error("stale connection still registered after sweep")
	}
	if _, found, _ := store.Lookup(ctx, "fresh"); !found {
		t.Error("fresh connection was evicted")
	}

	stats := s.Stats()
	if stats.Cycles != 1 {
		t.Errorf("Cycles = %d, want 1", stats.Cycles)
	}
	if stats.Evicted != 1 {
		t.Errorf("Evicted = %d, want 1", stats.Evicted)
	}
}

func TestSweeper_EmptyRegistry(t *testing.T) {
	store := registry.NewMemory()
	s := New(DefaultConfig(), store, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.ctx = ctx

	s.sweep()

	stats := s.Stats()
	if stats.Evicted != 0 {
		t.Errorf("Evicted = %d, want 0", stats.Evicted)
	}
}

func TestSweeper_RepeatedSweepIsIdempotent(t *testing.T) {
	store := registry.NewMemory()
	register(t, store, "old", "u1", time.Now().UTC().Add(-2*time.Hour))

	s := New(Config{Interval: time.Hour, StaleThreshold: time.Hour}, store, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.ctx = ctx

	s.sweep()
	s.sweep()

	stats := s.Stats()
	if stats.Cycles != 2 {
		t.Errorf("Cycles = %d, want 2", stats.Cycles)
	}
	if stats.Evicted != 1 {
		t.Errorf("Evicted = %d, want 1 (second sweep finds nothing)", stats.Evicted)
	}
}

func TestSweeper_StartStop(t *testing.T) {
	store := registry.NewMemory()
	register(t, store, "old", "u1", time.Now().UTC().Add(-2*time.Hour))

	cfg := Config{Interval: 20 * time.Millisecond, StaleThreshold: time.Hour}
	s := New(cfg, store, nil, nil)

	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Wait for at least one sweep.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if s.Stats().Evicted == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := s.Stats().Evicted; got != 1 {
		t.Errorf("Evicted = %d, want 1", got)
	}
	if _, found, _ := store.Lookup(context.Background(), "old"); found {
		t.Error("stale connection still registered after sweeps")
	}
}
