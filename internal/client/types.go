package client

import (
	"errors"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrTimeout         = errors.New("request timed out")
	ErrConnectionLost  = errors.New("connection lost")
)

// SocketConfig configures a single WebSocket connection to the relay.
type SocketConfig struct {
	URL          string        // Fully built endpoint, identity query included
	PingTimeout  time.Duration // Max silence between server pings before stale
	WriteTimeout time.Duration // Write deadline for sends
	BufferSize   int           // Inbound frame channel capacity
}

// DefaultSocketConfig returns sensible defaults. The relay pings sockets
// just under once a minute, so the stale cutoff covers a missed ping.
func DefaultSocketConfig() SocketConfig {
	return SocketConfig{
		PingTimeout:  90 * time.Second,
		WriteTimeout: 5 * time.Second,
		BufferSize:   256,
	}
}

// Config configures a relay Client.
type Config struct {
	URL       string // Relay endpoint, e.g. ws://127.0.0.1:8080/ws
	UserID    string // Identity presented on connect
	SessionID string // Optional session discriminator

	RequestTimeout time.Duration // Per-request response deadline

	PingTimeout  time.Duration
	WriteTimeout time.Duration
	BufferSize   int

	ReconnectBaseWait time.Duration // Base wait before a reconnect attempt
	ReconnectMaxWait  time.Duration // Cap on the doubled reconnect wait
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	sock := DefaultSocketConfig()
	return Config{
		RequestTimeout:    30 * time.Second,
		PingTimeout:       sock.PingTimeout,
		WriteTimeout:      sock.WriteTimeout,
		BufferSize:        sock.BufferSize,
		ReconnectBaseWait: time.Second,
		ReconnectMaxWait:  30 * time.Second,
	}
}
