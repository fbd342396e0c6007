package registry

import (
	"context"
	"sync"
	"time"

	"github.com/handwave/relay/internal/model"
)

// Memory is the in-process Store for single-instance deployments.
type Memory struct {
	mu    sync.RWMutex
	conns map[string]*model.Connection
}

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{
		conns: make(map[string]*model.Connection),
	}
}

// Register records a new connection.
func (s *Memory) Register(_ context.Context, conn model.Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conns[conn.ID]; ok {
		return ErrDuplicateConnection
	}

	c := conn
	c.Status = model.StatusActive
	s.conns[c.ID] = &c
	return nil
}

// Lookup returns a copy of the connection record.
func (s *Memory) Lookup(_ context.Context, connID string) (model.Connection, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conns[connID]
	if !ok {
		return model.Connection{}, false, nil
	}
	return *c, true, nil
}

// Touch updates LastActivity and restores active status.
func (s *Memory) Touch(_ context.Context, connID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.conns[connID]
	if !ok {
		return ErrUnknownConnection
	}

	c.LastActivity = at
	c.Status = model.StatusActive
	return nil
}

// Remove deletes the record. Removing an absent id is a no-op.
func (s *Memory) Remove(_ context.Context, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conns, connID)
	return nil
}

// ListStale snapshots ids idle strictly before the cutoff and marks them stale.
func (s *Memory) ListStale(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []string
	for id, c := range s.conns {
		if c.LastActivity.Before(cutoff) {
			c.Status = model.StatusStale
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// List returns copies of all records.
func (s *Memory) List(_ context.Context) ([]model.Connection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Connection, 0, len(s.conns))
	for _, c := range s.conns {
		result = append(result, *c)
	}
	return result, nil
}

// Len returns the number of live records.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}
