// Package client implements the desktop-side relay client.
//
// Three pieces:
//   - Socket: one WebSocket connection to the relay, with ping tracking and
//     an inbound frame channel
//   - Correlator: the pending-request table that matches tagged responses
//     back to their waiting callers
//   - Client: composes the two, so a caller can SendMessage and block until
//     the reply tagged with that request's id arrives
//
// Requests resolve exactly once: by a matching response, by the per-request
// timeout, or by connection loss failing everything pending. Responses with
// no pending waiter (late or duplicate delivery) are discarded.
package client
