package registry

import (
	"context"
	"errors"
	"time"

	"github.com/handwave/relay/internal/model"
)

// Errors
var (
	ErrDuplicateConnection = errors.New("duplicate connection id")
	ErrUnknownConnection   = errors.New("unknown connection id")
)

// Store is the store-agnostic Connection Registry contract. All mutating
// operations are safe under concurrent invocation from many
// connection-handling goroutines.
type Store interface {
	// Register records a new connection. Fails with ErrDuplicateConnection
	// if the id is already present.
	Register(ctx context.Context, conn model.Connection) error

	// Lookup returns the connection record for an id, reporting absence
	// through the bool. A removed id reports absence, never a stale record.
	Lookup(ctx context.Context, connID string) (model.Connection, bool, error)

	// Touch updates LastActivity for a live connection. Fails with
	// ErrUnknownConnection if the id is absent; callers racing the sweeper
	// may treat that as benign.
	Touch(ctx context.Context, connID string, at time.Time) error

	// Remove deletes a connection record. Idempotent: removing an absent id
	// is not an error.
	Remove(ctx context.Context, connID string) error

	// ListStale returns the ids of connections whose LastActivity is
	// strictly before the cutoff. The result is a finite snapshot evaluated
	// at call time, not a live view; matched records are marked stale.
	ListStale(ctx context.Context, cutoff time.Time) ([]string, error)

	// List returns a snapshot of all connection records.
	List(ctx context.Context) ([]model.Connection, error)
}
