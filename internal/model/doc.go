// Package model defines shared data types used across the relay.
//
// Conventions:
//   - Connection identifiers: opaque strings, assigned by the transport (UUIDs)
//   - Timestamps: time.Time, UTC
//   - Identity fields (user, session) are asserted by clients, never verified
package model
