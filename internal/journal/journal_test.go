package journal

import (
	"context"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BatchSize != 200 {
		t.Errorf("BatchSize = %d, want 200", cfg.BatchSize)
	}
	if cfg.FlushInterval != 5*time.Second {
		t.Errorf("FlushInterval = %v, want 5s", cfg.FlushInterval)
	}
}

func TestWriter_RecordAccumulates(t *testing.T) {
	// Large batch size so nothing flushes; no database needed.
	w := NewWriter(Config{BatchSize: 1000, FlushInterval: time.Hour}, nil, nil)

	now := time.Now().UTC()
	w.Record(Event{Kind: KindConnect, ConnID: "c1", UserID: "u1", At: now})
	w.Record(Event{Kind: KindDisconnect, ConnID: "c1", UserID: "u1", At: now})
	w.Record(Event{Kind: KindEvict, ConnID: "c2", UserID: "u2", At: now})

	stats := w.Stats()
	if stats.Recorded != 3 {
		t.Errorf("Recorded = %d, want 3", stats.Recorded)
	}
	if stats.Pending != 3 {
		t.Errorf("Pending = %d, want 3", stats.Pending)
	}
	if stats.Flushes != 0 {
		t.Errorf("Flushes = %d, want 0", stats.Flushes)
	}
}

func TestWriter_Lifecycle(t *testing.T) {
	w := NewWriter(Config{BatchSize: 10, FlushInterval: 50 * time.Millisecond}, nil, nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// Nothing recorded, so the ticker flushes find an empty batch and
	// never touch the database.
	time.Sleep(120 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}

	if got := w.Stats().Flushes; got != 0 {
		t.Errorf("Flushes = %d, want 0 for empty batches", got)
	}
}

func TestWriter_NilIsDisabled(t *testing.T) {
	var w *Writer

	// Must not panic.
	w.Record(Event{Kind: KindConnect, ConnID: "c1"})
}

func TestWriter_EventKinds(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{KindConnect, "connect"},
		{KindDisconnect, "disconnect"},
		{KindEvict, "evict"},
	}

	for _, tt := range tests {
		if tt.kind != tt.want {
			t.Errorf("kind = %q, want %q", tt.kind, tt.want)
		}
	}
}
