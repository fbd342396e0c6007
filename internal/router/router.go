package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/handwave/relay/internal/journal"
	"github.com/handwave/relay/internal/model"
	"github.com/handwave/relay/internal/protocol"
	"github.com/handwave/relay/internal/ratelimit"
	"github.com/handwave/relay/internal/registry"
	"github.com/handwave/relay/internal/transport"
)

// Router consumes transport events, keeps the connection registry in step
// with connect/disconnect notifications, and shuttles each request through
// the processing backend back to the connection that carried it.
type Router interface {
	// Start begins consuming transport events.
	Start(ctx context.Context) error

	// Stop gracefully shuts down the router, letting in-flight work drain.
	Stop(ctx context.Context) error

	// Stats returns current router statistics.
	Stats() RouterStats
}

// router is the internal implementation.
type router struct {
	cfg    RouterConfig
	logger *slog.Logger

	// Input from the transport server
	events <-chan transport.Event

	// Collaborators
	store   registry.Store
	limiter *ratelimit.Limiter
	proc    Processor
	sender  Sender
	journal *journal.Writer

	// Message fan-out to workers
	jobs chan transport.Event

	// Lifecycle
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	stats RouterStats
}

// NewRouter creates a Message Router. The journal may be nil to disable
// lifecycle journaling.
func NewRouter(
	cfg RouterConfig,
	events <-chan transport.Event,
	store registry.Store,
	limiter *ratelimit.Limiter,
	proc Processor,
	sender Sender,
	jw *journal.Writer,
	logger *slog.Logger,
) Router {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	return &router{
		cfg:     cfg,
		logger:  logger,
		events:  events,
		store:   store,
		limiter: limiter,
		proc:    proc,
		sender:  sender,
		journal: jw,
		jobs:    make(chan transport.Event, cfg.Workers),
	}
}

// Start begins consuming transport events.
func (r *router) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go r.routeLoop()

	for i := 0; i < r.cfg.Workers; i++ {
		r.wg.Add(1)
		go r.worker()
	}

	r.logger.Info("message router started",
		"workers", r.cfg.Workers,
		"process_timeout", r.cfg.ProcessTimeout,
		"delivery_retries", r.cfg.DeliveryRetries,
	)

	return nil
}

// Stop gracefully shuts down the router.
func (r *router) Stop(ctx context.Context) error {
	r.logger.Info("stopping message router")

	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("message router stopped")
	case <-ctx.Done():
		r.logger.Warn("message router stop timed out")
	}

	return nil
}

// Stats returns current statistics.
func (r *router) Stats() RouterStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// routeLoop is the single goroutine that consumes transport events.
// Registry registration and removal happen here, in event order, so a
// connect is always applied before the messages that follow it.
func (r *router) routeLoop() {
	defer r.wg.Done()
	defer close(r.jobs)

	for {
		select {
		case <-r.ctx.Done():
			return
		case ev, ok := <-r.events:
			if !ok {
				r.logger.Info("event stream closed")
				return
			}
			r.handleEvent(ev)
		}
	}
}

// handleEvent applies one transport event.
func (r *router) handleEvent(ev transport.Event) {
	switch ev.Kind {
	case transport.EventConnect:
		r.handleConnect(ev)
	case transport.EventDisconnect:
		r.handleDisconnect(ev)
	case transport.EventMessage:
		select {
		case r.jobs <- ev:
		case <-r.ctx.Done():
		}
	default:
		r.logger.Warn("unknown event kind", "kind", ev.Kind)
	}
}

// handleConnect registers the new connection.
func (r *router) handleConnect(ev transport.Event) {
	conn := model.Connection{
		ID:           ev.ConnID,
		UserID:       ev.UserID,
		SessionID:    ev.SessionID,
		ConnectedAt:  ev.ReceivedAt,
		LastActivity: ev.ReceivedAt,
	}

	if err := r.store.Register(r.ctx, conn); err != nil {
		r.logger.Warn("register connection failed", "conn_id", ev.ConnID, "error", err)
		return
	}

	r.journal.Record(journal.Event{
		Kind:      journal.KindConnect,
		ConnID:    ev.ConnID,
		UserID:    ev.UserID,
		SessionID: ev.SessionID,
		At:        ev.ReceivedAt,
	})

	r.mu.Lock()
	r.stats.Connects++
	r.mu.Unlock()

	r.logger.Debug("connection registered", "conn_id", ev.ConnID, "user_id", ev.UserID)
}

// handleDisconnect removes the connection record. Removal is idempotent,
// so a disconnect racing the sweeper is harmless.
func (r *router) handleDisconnect(ev transport.Event) {
	if err := r.store.Remove(r.ctx, ev.ConnID); err != nil {
		r.logger.Warn("remove connection failed", "conn_id", ev.ConnID, "error", err)
		return
	}

	r.journal.Record(journal.Event{
		Kind:      journal.KindDisconnect,
		ConnID:    ev.ConnID,
		UserID:    ev.UserID,
		SessionID: ev.SessionID,
		At:        ev.ReceivedAt,
	})

	r.mu.Lock()
	r.stats.Disconnects++
	r.mu.Unlock()

	r.logger.Debug("connection removed", "conn_id", ev.ConnID)
}

// worker drains the jobs channel until it is closed.
func (r *router) worker() {
	defer r.wg.Done()

	for ev := range r.jobs {
		r.handleMessage(ev)
	}
}

// handleMessage runs one request through decode, admission, processing,
// and delivery.
func (r *router) handleMessage(ev transport.Event) {
	r.mu.Lock()
	r.stats.MessagesSeen++
	r.mu.Unlock()

	req, err := protocol.DecodeRequest(ev.Data)
	if err != nil {
		r.mu.Lock()
		r.stats.DecodeErrors++
		r.mu.Unlock()
		r.logger.Warn("malformed envelope", "conn_id", ev.ConnID, "error", err)
		// Report back when a request id survived parsing; an untagged
		// error reply is discarded by the client correlator anyway.
		r.deliver(ev.ConnID, protocol.NewErrorResponse(req.RequestID, "malformed envelope"))
		return
	}

	conn, found, err := r.store.Lookup(r.ctx, ev.ConnID)
	if err != nil {
		r.logger.Error("registry lookup failed", "conn_id", ev.ConnID, "error", err)
		return
	}
	if !found {
		// Swept or never registered. Rejected without processing.
		r.mu.Lock()
		r.stats.UnknownConns++
		r.mu.Unlock()
		r.logger.Warn("message from unknown connection", "conn_id", ev.ConnID)
		r.deliver(ev.ConnID, protocol.NewErrorResponse(req.RequestID, "unknown connection"))
		return
	}

	if req.UserID != conn.UserID {
		r.mu.Lock()
		r.stats.UserMismatches++
		r.mu.Unlock()
		r.logger.Warn("envelope user does not match connection",
			"conn_id", ev.ConnID,
			"envelope_user", req.UserID,
			"connection_user", conn.UserID,
		)
		r.deliver(ev.ConnID, protocol.NewErrorResponse(req.RequestID, "user mismatch"))
		return
	}

	if err := r.store.Touch(r.ctx, ev.ConnID, ev.ReceivedAt); err != nil {
		if errors.Is(err, registry.ErrUnknownConnection) {
			r.mu.Lock()
			r.stats.UnknownConns++
			r.mu.Unlock()
			r.deliver(ev.ConnID, protocol.NewErrorResponse(req.RequestID, "unknown connection"))
			return
		}
		r.logger.Warn("touch connection failed", "conn_id", ev.ConnID, "error", err)
	}

	if !r.limiter.Allow(conn.UserID) {
		r.mu.Lock()
		r.stats.RateLimited++
		r.mu.Unlock()
		r.logger.Debug("rate limit exceeded", "user_id", conn.UserID, "request_id", req.RequestID)
		r.deliver(ev.ConnID, protocol.NewErrorResponse(req.RequestID, "rate limit exceeded"))
		return
	}

	// The backend call runs with no locks held and a hard deadline.
	pctx, cancel := context.WithTimeout(r.ctx, r.cfg.ProcessTimeout)
	reply, err := r.proc.Process(pctx, conn.UserID, req.Message)
	cancel()

	var resp protocol.Response
	if err != nil {
		r.mu.Lock()
		r.stats.ProcessErrors++
		r.mu.Unlock()
		r.logger.Warn("processing failed",
			"request_id", req.RequestID,
			"user_id", conn.UserID,
			"error", err,
		)
		resp = protocol.NewErrorResponse(req.RequestID, "processing failed")
	} else {
		r.mu.Lock()
		r.stats.Processed++
		r.mu.Unlock()
		resp = protocol.NewResponse(req.RequestID, reply)
	}

	r.deliver(ev.ConnID, resp)
}

// deliver sends a response envelope to its connection. A gone connection
// ends delivery immediately and cleans up the registry; transient send
// failures are retried a bounded number of times with backoff.
func (r *router) deliver(connID string, resp protocol.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		r.logger.Error("marshal response failed", "request_id", resp.RequestID, "error", err)
		return
	}

	backoff := r.cfg.DeliveryBackoff
	var lastErr error

	for attempt := 0; attempt <= r.cfg.DeliveryRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-r.ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		err := r.sender.Send(connID, data)
		if err == nil {
			r.mu.Lock()
			r.stats.Delivered++
			r.mu.Unlock()
			return
		}

		if errors.Is(err, transport.ErrConnectionGone) {
			// The requester is gone: discard the response and clean up.
			r.mu.Lock()
			r.stats.DeliveryGone++
			r.mu.Unlock()
			if rerr := r.store.Remove(r.ctx, connID); rerr != nil {
				r.logger.Warn("remove gone connection failed", "conn_id", connID, "error", rerr)
			}
			r.logger.Debug("response discarded, connection gone",
				"conn_id", connID,
				"request_id", resp.RequestID,
			)
			return
		}

		lastErr = err
	}

	r.mu.Lock()
	r.stats.DeliveryFailed++
	r.mu.Unlock()
	r.logger.Warn("delivery failed after retries",
		"conn_id", connID,
		"request_id", resp.RequestID,
		"attempts", r.cfg.DeliveryRetries+1,
		"error", lastErr,
	)
}
