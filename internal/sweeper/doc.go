// Package sweeper implements the Lifecycle Sweeper component.
//
// The Lifecycle Sweeper:
//   - Periodically scans the registry for connections with no recent activity
//   - Evicts stale records so the registry tracks only live connections
//   - Records evictions to the connection journal when one is configured
//
// Eviction is registry-side bookkeeping only: no frame is sent to the peer.
// A client whose record was evicted learns about it when its next request is
// rejected as an unknown connection.
package sweeper
