package client

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/handwave/relay/internal/protocol"
)

// outcome is the single value a waiter receives: a tagged response or the
// reason it will never get one.
type outcome struct {
	resp protocol.Response
	err  error
}

// waiter is one pending request. The channel is buffered so the resolving
// side never blocks on a caller that already gave up.
type waiter struct {
	ch    chan outcome
	timer *time.Timer
}

// Correlator owns the pending-request table for one client connection.
// Every entry is resolved exactly once: the resolution paths (matching
// response, timeout, cancel, connection loss) all remove the entry under
// the same mutex, so whichever path takes it first wins and the others
// find nothing.
type Correlator struct {
	timeout time.Duration

	mu      sync.Mutex
	pending map[string]*waiter
}

// NewCorrelator creates a correlator whose requests time out after the
// given deadline.
func NewCorrelator(timeout time.Duration) *Correlator {
	return &Correlator{
		timeout: timeout,
		pending: make(map[string]*waiter),
	}
}

// Issue registers a pending waiter under a fresh request id and arms its
// timeout timer. The returned channel yields exactly one outcome.
func (c *Correlator) Issue() (string, <-chan outcome) {
	id := uuid.NewString()
	w := &waiter{ch: make(chan outcome, 1)}

	// The timer is armed before the waiter is published, so no other
	// path can observe a half-built entry.
	c.mu.Lock()
	w.timer = time.AfterFunc(c.timeout, func() {
		c.Cancel(id, ErrTimeout)
	})
	c.pending[id] = w
	c.mu.Unlock()

	return id, w.ch
}

// take removes and returns the waiter for id, stopping its timer.
func (c *Correlator) take(id string) (*waiter, bool) {
	c.mu.Lock()
	w, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if ok && w.timer != nil {
		w.timer.Stop()
	}
	return w, ok
}

// Resolve completes the waiter matching the response's request id. Returns
// false when no waiter matched; such responses (late or duplicate delivery)
// are simply discarded by the caller.
func (c *Correlator) Resolve(resp protocol.Response) bool {
	w, ok := c.take(resp.RequestID)
	if !ok {
		return false
	}
	w.ch <- outcome{resp: resp}
	return true
}

// Cancel fails the waiter for id with the given reason, if still pending.
func (c *Correlator) Cancel(id string, reason error) bool {
	w, ok := c.take(id)
	if !ok {
		return false
	}
	w.ch <- outcome{err: reason}
	return true
}

// FailAll cancels every pending request with the given reason and returns
// how many were failed. Called when the connection is lost.
func (c *Correlator) FailAll(reason error) int {
	c.mu.Lock()
	taken := c.pending
	c.pending = make(map[string]*waiter)
	c.mu.Unlock()

	for _, w := range taken {
		if w.timer != nil {
			w.timer.Stop()
		}
		w.ch <- outcome{err: reason}
	}
	return len(taken)
}

// Pending returns the number of outstanding requests.
func (c *Correlator) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
