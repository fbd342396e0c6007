package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/handwave/relay/internal/model"
)

// Postgres is the pgx-backed Store for multi-instance deployments, where
// several relay processes share one registry.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a registry backed by the given pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// EnsureSchema creates the connections table if it does not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS connections (
			connection_id TEXT PRIMARY KEY,
			user_id       TEXT NOT NULL,
			session_id    TEXT NOT NULL DEFAULT '',
			connected_at  TIMESTAMPTZ NOT NULL,
			last_activity TIMESTAMPTZ NOT NULL,
			status        TEXT NOT NULL DEFAULT 'active'
		)
	`)
	if err != nil {
		return fmt.Errorf("create connections table: %w", err)
	}
	return nil
}

// Register inserts the record; a conflicting id means a duplicate.
func (s *Postgres) Register(ctx context.Context, conn model.Connection) error {
	ct, err := s.pool.Exec(ctx, `
		INSERT INTO connections (connection_id, user_id, session_id, connected_at, last_activity, status)
		VALUES ($1, $2, $3, $4, $5, 'active')
		ON CONFLICT (connection_id) DO NOTHING
	`, conn.ID, conn.UserID, conn.SessionID, conn.ConnectedAt, conn.LastActivity)
	if err != nil {
		return fmt.Errorf("register connection: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrDuplicateConnection
	}
	return nil
}

// Lookup fetches one record by id.
func (s *Postgres) Lookup(ctx context.Context, connID string) (model.Connection, bool, error) {
	var c model.Connection
	err := s.pool.QueryRow(ctx, `
		SELECT connection_id, user_id, session_id, connected_at, last_activity, status
		FROM connections
		WHERE connection_id = $1
	`, connID).Scan(&c.ID, &c.UserID, &c.SessionID, &c.ConnectedAt, &c.LastActivity, &c.Status)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Connection{}, false, nil
	}
	if err != nil {
		return model.Connection{}, false, fmt.Errorf("lookup connection: %w", err)
	}
	return c, true, nil
}

// Touch updates LastActivity for a live record.
func (s *Postgres) Touch(ctx context.Context, connID string, at time.Time) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE connections
		SET last_activity = $2, status = 'active'
		WHERE connection_id = $1
	`, connID, at)
	if err != nil {
		return fmt.Errorf("touch connection: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return ErrUnknownConnection
	}
	return nil
}

// Remove deletes the record. Deleting an absent id affects zero rows and is
// not an error.
func (s *Postgres) Remove(ctx context.Context, connID string) error {
	if _, err := s.pool.Exec(ctx, `
		DELETE FROM connections WHERE connection_id = $1
	`, connID); err != nil {
		return fmt.Errorf("remove connection: %w", err)
	}
	return nil
}

// ListStale marks idle records stale and returns their ids in one statement.
// Strict inequality: a record last active exactly at the cutoff survives.
func (s *Postgres) ListStale(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		UPDATE connections
		SET status = 'stale'
		WHERE last_activity < $1
		RETURNING connection_id
	`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list stale connections: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stale id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stale ids: %w", err)
	}
	return ids, nil
}

// List returns all records ordered by connect time.
func (s *Postgres) List(ctx context.Context) ([]model.Connection, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT connection_id, user_id, session_id, connected_at, last_activity, status
		FROM connections
		ORDER BY connected_at
	`)
	if err != nil {
		return nil, fmt.Errorf("list connections: %w", err)
	}
	defer rows.Close()

	var result []model.Connection
	for rows.Next() {
		var c model.Connection
		if err := rows.Scan(&c.ID, &c.UserID, &c.SessionID, &c.ConnectedAt, &c.LastActivity, &c.Status); err != nil {
			return nil, fmt.Errorf("scan connection: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate connections: %w", err)
	}
	return result, nil
}
