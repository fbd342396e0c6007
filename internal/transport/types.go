package transport

import (
	"errors"
	"time"
)

// Errors
var (
	// ErrConnectionGone reports that the delivery target no longer exists.
	// Callers must not retry a gone connection; there is nothing to retry to.
	ErrConnectionGone = errors.New("connection gone")
)

// EventKind discriminates transport events.
type EventKind int

const (
	// EventConnect is emitted once when a socket is accepted.
	EventConnect EventKind = iota

	// EventMessage carries one inbound frame.
	EventMessage

	// EventDisconnect is emitted once when a socket goes away, whatever
	// the cause.
	EventDisconnect
)

// String returns the kind name for logs.
func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventMessage:
		return "message"
	case EventDisconnect:
		return "disconnect"
	default:
		return "unknown"
	}
}

// Event is one transport occurrence delivered to the router. Events from
// a single connection arrive in socket order: connect, then messages,
// then disconnect.
type Event struct {
	Kind       EventKind
	ConnID     string
	UserID     string
	SessionID  string
	Data       []byte    // frame payload; nil for connect/disconnect
	ReceivedAt time.Time // local timestamp when the frame was read
}

// ServerConfig configures the WebSocket server.
type ServerConfig struct {
	ReadTimeout     time.Duration // max quiet time on a socket; pongs reset it
	PingInterval    time.Duration // keepalive ping period, below ReadTimeout
	WriteTimeout    time.Duration // write deadline for outbound frames
	EventBufferSize int           // initial capacity of the inbound event queue
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		ReadTimeout:     60 * time.Second,
		PingInterval:    54 * time.Second,
		WriteTimeout:    5 * time.Second,
		EventBufferSize: 1024,
	}
}
