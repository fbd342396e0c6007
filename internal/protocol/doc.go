// Package protocol defines the envelope wire format spoken between desktop
// clients and the relay.
//
// Envelopes:
//   - Request (client → server): action "sendMessage", tagged with a
//     client-generated request id
//   - Response (server → client): action "messageResponse", tagged with the
//     originating request id and a completed/error status
//
// The request id tag is what lets one connection carry many overlapping
// requests and still match every reply to its caller.
package protocol
