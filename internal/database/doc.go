// Package database provides the PostgreSQL connection pool for the relay.
//
// One database holds both durable relay tables:
//   - connections: the connection registry (postgres backend)
//   - connection_events: the lifecycle journal
package database
