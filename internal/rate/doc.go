// Package rate implements the fixed-window admission policy behind the
// request rate limiter.
//
// # Window semantics
//
// The first admitted hit of a key starts the window and sets its TTL; later
// hits in the same window never extend it. A key whose count has reached the
// maximum is rejected without being incremented, so the count never exceeds
// the maximum and resets only when the key expires. Bursts at window edges
// are accepted.
//
// # What this package must NOT do
//
//   - Render HTTP responses (the root package owns content negotiation).
//   - Read or write counters with separate GET and SET calls.
package rate
