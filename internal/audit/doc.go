// Package audit delivers guard decisions to pluggable sinks off the request path.
//
// # Components
//
//   - [Sink]: event consumer (channel, JSON lines, slog, no-op).
//   - [Dispatcher]: buffered async relay that either drops or blocks when full.
//   - [Event]: one rejection or store failure, stamped with a UUID and UTC time.
//
// # Architecture boundaries
//
// This package owns buffering and delivery. Which decisions are worth an event
// is decided by the guards in the root package.
package audit
