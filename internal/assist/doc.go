// Package assist provides the client for the assistant backend that
// computes message responses.
//
// The backend exposes one endpoint:
//   - POST /v1/messages with {userId, message}, returning {reply}
//
// Calls are retried with exponential backoff on 5xx and 429; any other
// failure is surfaced to the router as a processing error. The package
// also ships an Echo processor for local runs without a backend.
package assist
