// Package journal implements the batched writer for connection lifecycle
// events.
//
// Connect, disconnect, and evict events are accumulated in memory and
// flushed to the connection_events table when the batch fills or the
// flush interval elapses. The journal is append-only operational history
// for debugging client churn; it never stores message payloads.
//
// A nil *Writer is a valid disabled journal: Record on nil is a no-op.
package journal
