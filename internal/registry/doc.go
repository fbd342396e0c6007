// Package registry implements the Connection Registry component.
//
// The Connection Registry:
//   - Tracks live connection records (owner, session, liveness timestamps)
//   - Serves lookups for response routing and liveness sweeps
//   - Guarantees closed connection ids resolve to absence, never stale records
//   - Ships two stores behind one contract: in-memory (single instance) and
//     Postgres (multi-instance deployments)
package registry
