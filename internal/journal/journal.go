package journal

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Event kinds.
const (
	KindConnect    = "connect"
	KindDisconnect = "disconnect"
	KindEvict      = "evict"
)

// Event is one connection lifecycle occurrence.
type Event struct {
	Kind      string
	ConnID    string
	UserID    string
	SessionID string
	At        time.Time
}

// Config contains configuration for the journal writer.
type Config struct {
	// BatchSize is the number of events to accumulate before flushing.
	BatchSize int

	// FlushInterval is the maximum time between flushes.
	FlushInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:     200,
		FlushInterval: 5 * time.Second,
	}
}

// Metrics holds journal writer metrics.
type Metrics struct {
	Recorded int64
	Inserts  int64
	Errors   int64
	Flushes  int64
	Pending  int
}

// Writer accumulates lifecycle events and writes them in batches.
type Writer struct {
	cfg    Config
	logger *slog.Logger

	db *pgxpool.Pool

	// Batching
	batch       []Event
	batchMu     sync.Mutex
	flushTicker *time.Ticker

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// Metrics
	metrics Metrics
}

// NewWriter creates a journal writer.
func NewWriter(cfg Config, db *pgxpool.Pool, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		cfg:    cfg,
		db:     db,
		logger: logger,
		batch:  make([]Event, 0, cfg.BatchSize),
	}
}

// EnsureSchema creates the connection_events table if it does not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS connection_events (
			id            BIGSERIAL PRIMARY KEY,
			kind          TEXT NOT NULL,
			connection_id TEXT NOT NULL,
			user_id       TEXT NOT NULL,
			session_id    TEXT NOT NULL DEFAULT '',
			at            TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create connection_events table: %w", err)
	}
	return nil
}

// Start begins periodic flushing.
func (w *Writer) Start(ctx context.Context) error {
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.flushTicker = time.NewTicker(w.cfg.FlushInterval)

	w.wg.Add(1)
	go w.flushLoop()

	w.logger.Info("journal writer started",
		"batch_size", w.cfg.BatchSize,
		"flush_interval", w.cfg.FlushInterval,
	)
	return nil
}

// Stop gracefully shuts down the writer.
func (w *Writer) Stop(ctx context.Context) error {
	w.logger.Info("stopping journal writer")

	if w.cancel != nil {
		w.cancel()
	}

	if w.flushTicker != nil {
		w.flushTicker.Stop()
	}

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("journal writer stopped")
	case <-ctx.Done():
		w.logger.Warn("journal writer stop timed out")
	}

	// Final flush on the caller's context; the run context is gone.
	w.flush(ctx)

	return nil
}

// Record adds one event to the batch. Safe to call on a nil writer, which
// is how a disabled journal is represented.
func (w *Writer) Record(ev Event) {
	if w == nil {
		return
	}

	w.batchMu.Lock()
	w.batch = append(w.batch, ev)
	w.metrics.Recorded++
	shouldFlush := len(w.batch) >= w.cfg.BatchSize
	w.batchMu.Unlock()

	if shouldFlush {
		w.flush(w.ctx)
	}
}

// Stats returns current metrics.
func (w *Writer) Stats() Metrics {
	w.batchMu.Lock()
	defer w.batchMu.Unlock()
	m := w.metrics
	m.Pending = len(w.batch)
	return m
}

// flushLoop periodically flushes the batch.
func (w *Writer) flushLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-w.flushTicker.C:
			w.flush(w.ctx)
		}
	}
}

// flush writes the current batch to the database.
func (w *Writer) flush(ctx context.Context) {
	w.batchMu.Lock()
	if len(w.batch) == 0 {
		w.batchMu.Unlock()
		return
	}

	// Take ownership of current batch
	batch := w.batch
	w.batch = make([]Event, 0, w.cfg.BatchSize)
	w.batchMu.Unlock()

	start := time.Now()

	if err := w.batchInsert(ctx, batch); err != nil {
		w.logger.Error("journal insert failed", "error", err, "count", len(batch))
		w.batchMu.Lock()
		w.metrics.Errors++
		w.batchMu.Unlock()
		return
	}

	w.batchMu.Lock()
	w.metrics.Inserts += int64(len(batch))
	w.metrics.Flushes++
	w.batchMu.Unlock()

	w.logger.Debug("flushed journal events",
		"count", len(batch),
		"duration", time.Since(start),
	)
}

// batchInsert inserts events using pgx.Batch.
func (w *Writer) batchInsert(ctx context.Context, events []Event) error {
	batch := &pgx.Batch{}
	for _, ev := range events {
		batch.Queue(`
			INSERT INTO connection_events (kind, connection_id, user_id, session_id, at)
			VALUES ($1, $2, $3, $4, $5)
		`, ev.Kind, ev.ConnID, ev.UserID, ev.SessionID, ev.At)
	}

	if ctx == nil {
		ctx = context.Background()
	}

	results := w.db.SendBatch(ctx, batch)
	defer results.Close()

	for range events {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}

	return nil
}
