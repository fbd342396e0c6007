package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/handwave/relay/internal/protocol"
)

// Client is a relay client: it holds one connection to the relay and
// correlates every reply back to the call that issued its request.
type Client interface {
	// Connect dials the relay and starts the receive loop.
	Connect(ctx context.Context) error

	// SendMessage issues one request and blocks until its tagged response
	// arrives, the request times out, or the connection is lost.
	SendMessage(ctx context.Context, message string) (protocol.Response, error)

	// Pending returns the number of requests still awaiting a response.
	Pending() int

	// IsConnected reports whether the underlying socket is up.
	IsConnected() bool

	// Close shuts the client down, failing any pending requests.
	Close() error
}

// relayClient implements the Client interface.
type relayClient struct {
	cfg    Config
	logger *slog.Logger

	corr *Correlator

	mu     sync.RWMutex
	sock   Socket
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a relay client.
func New(cfg Config, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}

	return &relayClient{
		cfg:    cfg,
		logger: logger,
		corr:   NewCorrelator(cfg.RequestTimeout),
	}
}

// Connect dials the relay and starts the receive loop.
func (c *relayClient) Connect(ctx context.Context) error {
	if c.cfg.URL == "" {
		return errors.New("relay url is required")
	}
	if c.cfg.UserID == "" {
		return errors.New("user id is required")
	}

	dialURL, err := c.dialURL()
	if err != nil {
		return fmt.Errorf("build dial url: %w", err)
	}

	c.ctx, c.cancel = context.WithCancel(ctx)

	sock := NewSocket(c.socketConfig(dialURL), c.logger)
	if err := sock.Connect(ctx); err != nil {
		c.cancel()
		return err
	}

	c.mu.Lock()
	c.sock = sock
	c.mu.Unlock()

	c.wg.Add(1)
	go c.run()

	c.logger.Info("connected to relay", "url", c.cfg.URL, "user_id", c.cfg.UserID)

	return nil
}

// dialURL appends the identity query parameters to the configured endpoint.
func (c *relayClient) dialURL() (string, error) {
	u, err := url.Parse(c.cfg.URL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("user_id", c.cfg.UserID)
	if c.cfg.SessionID != "" {
		q.Set("session_id", c.cfg.SessionID)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

func (c *relayClient) socketConfig(dialURL string) SocketConfig {
	return SocketConfig{
		URL:          dialURL,
		PingTimeout:  c.cfg.PingTimeout,
		WriteTimeout: c.cfg.WriteTimeout,
		BufferSize:   c.cfg.BufferSize,
	}
}

// SendMessage issues one request and blocks for its tagged response.
func (c *relayClient) SendMessage(ctx context.Context, message string) (protocol.Response, error) {
	sock := c.socket()
	if sock == nil || !sock.IsConnected() {
		return protocol.Response{}, ErrNotConnected
	}

	id, outcome := c.corr.Issue()

	data, err := json.Marshal(protocol.NewRequest(id, c.cfg.UserID, message))
	if err != nil {
		c.corr.Cancel(id, err)
		return protocol.Response{}, fmt.Errorf("marshal request: %w", err)
	}

	if err := sock.Send(data); err != nil {
		c.corr.Cancel(id, err)
		return protocol.Response{}, fmt.Errorf("send request: %w", err)
	}

	select {
	case <-ctx.Done():
		c.corr.Cancel(id, ctx.Err())
		return protocol.Response{}, ctx.Err()
	case out := <-outcome:
		if out.err != nil {
			return protocol.Response{}, out.err
		}
		return out.resp, nil
	}
}

// Pending returns the number of requests still awaiting a response.
func (c *relayClient) Pending() int {
	return c.corr.Pending()
}

// IsConnected reports whether the underlying socket is up.
func (c *relayClient) IsConnected() bool {
	sock := c.socket()
	return sock != nil && sock.IsConnected()
}

// Close shuts the client down, failing any pending requests.
func (c *relayClient) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	if c.cancel != nil {
		c.cancel()
	}
	c.wg.Wait()

	// The receive loop has stopped, so the current socket is final.
	var err error
	if sock := c.socket(); sock != nil {
		err = sock.Close()
	}

	if n := c.corr.FailAll(ErrConnectionLost); n > 0 {
		c.logger.Debug("failed pending requests on close", "count", n)
	}

	return err
}

func (c *relayClient) socket() Socket {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sock
}

// run consumes the socket until the client is closed, failing pending
// requests and reconnecting when the connection drops.
func (c *relayClient) run() {
	defer c.wg.Done()

	for {
		sock := c.socket()

		select {
		case <-c.ctx.Done():
			return
		case frame := <-sock.Frames():
			c.handleFrame(frame)
		case err := <-sock.Errors():
			failed := c.corr.FailAll(ErrConnectionLost)
			c.logger.Warn("connection lost",
				"error", err,
				"failed_requests", failed,
			)
			if !c.reconnect() {
				return
			}
		}
	}
}

// handleFrame matches one inbound response to its waiter.
func (c *relayClient) handleFrame(frame []byte) {
	resp, err := protocol.DecodeResponse(frame)
	if err != nil {
		c.logger.Warn("undecodable frame from relay", "error", err)
		return
	}

	if !c.corr.Resolve(resp) {
		// Late or duplicate delivery after the waiter was resolved.
		c.logger.Debug("unmatched response discarded", "request_id", resp.RequestID)
	}
}

// reconnect dials the relay with doubled backoff until it succeeds or the
// client is closed. Pending requests were already failed; they are not
// resent.
func (c *relayClient) reconnect() bool {
	c.socket().Close()

	dialURL, err := c.dialURL()
	if err != nil {
		c.logger.Error("build dial url failed", "error", err)
		return false
	}

	wait := c.cfg.ReconnectBaseWait
	for {
		select {
		case <-c.ctx.Done():
			return false
		case <-time.After(wait):
		}

		c.logger.Info("attempting reconnection", "wait", wait)

		sock := NewSocket(c.socketConfig(dialURL), c.logger)
		if err := sock.Connect(c.ctx); err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			wait *= 2
			if wait > c.cfg.ReconnectMaxWait {
				wait = c.cfg.ReconnectMaxWait
			}
			continue
		}

		c.mu.Lock()
		c.sock = sock
		c.mu.Unlock()

		c.logger.Info("reconnected to relay")
		return true
	}
}
