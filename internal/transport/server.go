package transport

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Server owns all client WebSocket connections.
type Server interface {
	// Start begins forwarding transport events.
	Start(ctx context.Context) error

	// Stop closes every socket and drains pending events.
	Stop(ctx context.Context) error

	// RegisterRoutes mounts the upgrade endpoint on the given router.
	RegisterRoutes(r chi.Router)

	// Send writes one frame to the identified connection. Returns
	// ErrConnectionGone when the connection no longer exists.
	Send(connID string, data []byte) error

	// Events returns the ordered stream of transport events. The channel
	// is closed after Stop once buffered events have been drained.
	Events() <-chan Event

	// Stats returns current server statistics.
	Stats() ServerStats
}

// ServerStats contains runtime statistics.
type ServerStats struct {
	ActiveConnections int
	TotalConnects     int64
	TotalDisconnects  int64
	Queue             BufferStats
}

// forwardChanSize bounds the handoff channel between the event queue and
// the router; the elastic queue in front of it absorbs bursts.
const forwardChanSize = 256

// session is one accepted socket.
type session struct {
	id        string
	userID    string
	sessionID string
	conn      *websocket.Conn

	writeMu sync.Mutex
	done    chan struct{}
}

// server is the internal implementation.
type server struct {
	cfg      ServerConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader

	queue  *GrowableBuffer[Event]
	events chan Event

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // read pumps and ping loops
	fwdWg  sync.WaitGroup // event forwarder

	mu          sync.RWMutex
	sessions    map[string]*session
	started     bool
	connects    int64
	disconnects int64
}

// NewServer creates a WebSocket server.
func NewServer(cfg ServerConfig, logger *slog.Logger) Server {
	if logger == nil {
		logger = slog.Default()
	}

	return &server{
		cfg:    cfg,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		queue:    NewGrowableBuffer[Event](cfg.EventBufferSize),
		events:   make(chan Event, forwardChanSize),
		sessions: make(map[string]*session),
	}
}

// Start begins forwarding transport events.
func (s *server) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.mu.Lock()
	s.started = true
	s.mu.Unlock()

	s.fwdWg.Add(1)
	go s.forward()

	s.logger.Info("transport server started",
		"read_timeout", s.cfg.ReadTimeout,
		"ping_interval", s.cfg.PingInterval,
		"event_buffer", s.cfg.EventBufferSize,
	)

	return nil
}

// Stop closes every socket, waits for the pumps, then drains the queue.
func (s *server) Stop(ctx context.Context) error {
	s.logger.Info("stopping transport server")

	s.mu.Lock()
	s.started = false
	sessions := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	for _, sess := range sessions {
		sess.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second),
		)
		sess.conn.Close()
	}

	// Wait for pumps to emit their disconnect events
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("transport server stop timed out waiting for pumps")
	}

	// Close the queue; the forwarder drains what is left, then closes
	// the events channel so the consumer sees a clean end of stream.
	s.queue.Close()

	fdone := make(chan struct{})
	go func() {
		s.fwdWg.Wait()
		close(fdone)
	}()

	select {
	case <-fdone:
		s.logger.Info("transport server stopped")
	case <-ctx.Done():
		s.logger.Warn("transport server stop timed out draining events")
	}

	return nil
}

// RegisterRoutes mounts the upgrade endpoint.
func (s *server) RegisterRoutes(r chi.Router) {
	r.Get("/ws", s.handleWS)
}

// Events returns the event stream.
func (s *server) Events() <-chan Event {
	return s.events
}

// Send writes one frame to the identified connection.
func (s *server) Send(connID string, data []byte) error {
	s.mu.RLock()
	sess, ok := s.sessions[connID]
	s.mu.RUnlock()

	if !ok {
		return ErrConnectionGone
	}

	sess.writeMu.Lock()
	defer sess.writeMu.Unlock()

	sess.conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	if err := sess.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write to connection %s: %w", connID, err)
	}
	return nil
}

// Stats returns current statistics.
func (s *server) Stats() ServerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ServerStats{
		ActiveConnections: len(s.sessions),
		TotalConnects:     s.connects,
		TotalDisconnects:  s.disconnects,
		Queue:             s.queue.Stats(),
	}
}

// handleWS upgrades one request and runs its read pump until the socket
// goes away.
func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	sessionID := r.URL.Query().Get("session_id")

	s.mu.RLock()
	accepting := s.started
	s.mu.RUnlock()
	if !accepting {
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := &session{
		id:        uuid.NewString(),
		userID:    userID,
		sessionID: sessionID,
		conn:      conn,
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.connects++
	s.mu.Unlock()

	s.logger.Info("connection accepted",
		"conn_id", sess.id,
		"user_id", sess.userID,
		"session_id", sess.sessionID,
	)

	s.queue.Send(Event{
		Kind:       EventConnect,
		ConnID:     sess.id,
		UserID:     sess.userID,
		SessionID:  sess.sessionID,
		ReceivedAt: time.Now(),
	})

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	s.wg.Add(1)
	go s.pingLoop(sess)

	s.wg.Add(1)
	s.readPump(sess)
}

// readPump reads frames until the socket errors or closes, then emits
// the disconnect event. Runs on the HTTP handler goroutine.
func (s *server) readPump(sess *session) {
	defer s.wg.Done()
	defer s.closeSession(sess)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-sess.done:
			return
		default:
		}

		_, data, err := sess.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				s.logger.Warn("websocket read error", "conn_id", sess.id, "error", err)
			}
			return
		}

		sess.conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		s.queue.Send(Event{
			Kind:       EventMessage,
			ConnID:     sess.id,
			UserID:     sess.userID,
			SessionID:  sess.sessionID,
			Data:       data,
			ReceivedAt: receivedAt,
		})
	}
}

// closeSession tears one session down exactly once and emits its
// disconnect event.
func (s *server) closeSession(sess *session) {
	s.mu.Lock()
	if _, ok := s.sessions[sess.id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.sessions, sess.id)
	s.disconnects++
	s.mu.Unlock()

	close(sess.done)
	sess.conn.Close()

	s.logger.Info("connection closed", "conn_id", sess.id, "user_id", sess.userID)

	s.queue.Send(Event{
		Kind:       EventDisconnect,
		ConnID:     sess.id,
		UserID:     sess.userID,
		SessionID:  sess.sessionID,
		ReceivedAt: time.Now(),
	})
}

// pingLoop keeps one socket alive until it goes away.
func (s *server) pingLoop(sess *session) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-sess.done:
			return
		case <-ticker.C:
			deadline := time.Now().Add(s.cfg.WriteTimeout)
			if err := sess.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

// forward moves events from the elastic queue to the consumer channel.
func (s *server) forward() {
	defer s.fwdWg.Done()
	defer close(s.events)

	for {
		ev, ok := s.queue.Receive()
		if !ok {
			return
		}
		s.events <- ev
	}
}
