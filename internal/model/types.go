package model

import "time"

// ConnStatus describes the lifecycle state of a connection record.
type ConnStatus string

const (
	// StatusActive means the connection is live and receiving traffic.
	StatusActive ConnStatus = "active"

	// StatusStale means the connection has been idle past the staleness
	// cutoff and is pending eviction by the sweeper.
	StatusStale ConnStatus = "stale"

	// StatusClosed means the connection has been removed. Closed records
	// are deleted from the registry; the status only appears on advisory
	// copies handed out before removal.
	StatusClosed ConnStatus = "closed"
)

// Connection represents one live duplex channel to one client process.
type Connection struct {
	ID           string     // Assigned by the transport on connect; never reused
	UserID       string     // Logical owner (asserted by the client)
	SessionID    string     // Client session; a user may hold several over time
	ConnectedAt  time.Time  // When the transport accepted the connection
	LastActivity time.Time  // Updated on every inbound message
	Status       ConnStatus // active, stale, or closed
}

// IdleBefore reports whether the connection was last active strictly before
// the cutoff. A connection whose LastActivity equals the cutoff is not idle.
func (c Connection) IdleBefore(cutoff time.Time) bool {
	return c.LastActivity.Before(cutoff)
}
