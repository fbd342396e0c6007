package router

import (
	"context"
	"time"
)

// Processor computes a reply for one user message. Calls may take
// arbitrarily long; the router bounds each one with ProcessTimeout and
// never holds a lock across it.
type Processor interface {
	Process(ctx context.Context, userID, message string) (string, error)
}

// Sender delivers frames to connections. Implemented by the transport
// server.
type Sender interface {
	Send(connID string, data []byte) error
}

// RouterConfig holds configuration for the Message Router.
type RouterConfig struct {
	// Workers is the number of concurrent message handlers.
	Workers int

	// ProcessTimeout bounds one backend compute call.
	ProcessTimeout time.Duration

	// DeliveryRetries is the number of extra delivery attempts after a
	// transient send failure. A gone connection is never retried.
	DeliveryRetries int

	// DeliveryBackoff is the initial wait before a delivery retry; it
	// doubles on each subsequent attempt.
	DeliveryBackoff time.Duration
}

// DefaultRouterConfig returns default configuration.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		Workers:         16,
		ProcessTimeout:  30 * time.Second,
		DeliveryRetries: 2,
		DeliveryBackoff: 100 * time.Millisecond,
	}
}

// RouterStats contains runtime statistics.
type RouterStats struct {
	Connects       int64
	Disconnects    int64
	MessagesSeen   int64
	Processed      int64
	DecodeErrors   int64
	UnknownConns   int64
	UserMismatches int64
	RateLimited    int64
	ProcessErrors  int64
	Delivered      int64
	DeliveryGone   int64
	DeliveryFailed int64
}
