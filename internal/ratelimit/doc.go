// Package ratelimit implements per-user message admission control.
//
// The limiter keeps a sliding window of attempt timestamps per user:
//   - Allow prunes entries older than the window, then admits the attempt
//     only when the remaining count is below the quota
//   - a sliding count cannot be defeated by bursts at window boundaries,
//     unlike a fixed window that resets
//   - idle users are swept from the table periodically so the map does not
//     grow with departed clients
package ratelimit
