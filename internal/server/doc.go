// Package server implements the HTTP side of the hookbox webhook receiver.
//
// This package provides:
//   - The webhook endpoint, authenticated with the HMAC-SHA1 X-Hub-Signature header
//   - Rule matching and background dispatch of every matching handler
//   - /ping, /health and /status endpoints for monitoring
//   - Per-IP rate limiting and structured logging of all HTTP requests
//
// A delivery ends in one of three ways: 200 {"ok":true} once it is
// authenticated and parsed (whether or not a rule matched), 403 when the
// signature does not verify, or 400 when required headers are missing or the
// body cannot be parsed. Transport guards add 413 and 429.
//
// The server integrates with other packages:
//   - internal/rule: rule definitions and matching
//   - internal/dispatch: asynchronous, panic-isolated handler execution
//   - internal/history: SQLite audit log of handler runs
package server
