// Package transport implements the WebSocket edge of the relay.
//
// The server owns every client socket:
//   - upgrades GET /ws requests and assigns each socket a connection id
//   - runs one read pump and one ping loop per socket
//   - funnels connect, message, and disconnect events through an elastic
//     buffer into a single ordered event stream for the router
//   - serializes writes per socket and reports a gone condition when a
//     delivery target no longer exists
//
// The transport knows nothing about envelopes or users beyond the
// identity query parameters captured at upgrade time. Decoding and
// policy live in the router.
package transport
