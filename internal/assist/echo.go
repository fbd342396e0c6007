package assist

import (
	"context"
	"time"
)

// Echo is a local processor that mirrors messages back. It stands in for
// the assistant backend in development and smoke tests.
type Echo struct {
	// Delay simulates backend latency. Zero means reply immediately.
	Delay time.Duration
}

// Process returns the message prefixed with "echo: " after the
// configured delay.
func (e *Echo) Process(ctx context.Context, userID, message string) (string, error) {
	if e.Delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(e.Delay):
		}
	}
	return "echo: " + message, nil
}
