// Package core is the application layer between the transports (HTTP server,
// CLI) and the sermon import engine.
//
// [Service] wraps a [sermonimport.Engine] and adds what a running service
// needs around it:
//
//   - batch size limits (IMPORT_MAX_ROWS) and a per-call timeout
//   - an [ImportLimiter] so imports over overlapping ranges do not race
//   - read operations for persisted events and the iCalendar feed
//   - a store health check
//
// # Error Handling
//
// Row-level problems never surface as Go errors; they are row statuses.
// Request-level failures are returned as wrapped errors and translated for
// people by [MapError]:
//
//   - REQ001-REQ006: request problems (empty batch, bad body, too many rows)
//   - IMP001-IMP003: import run problems (busy, cancelled, timed out)
//   - DB001-DB005: storage problems
//   - RATE001: throttled
//   - ERR000: anything else
package core
