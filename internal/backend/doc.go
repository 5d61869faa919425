// Package backend is the HTTP client for the irrigation controller's REST API.
//
// This package is internal to irriboard and owns the wire representation of
// the controller's endpoints plus the error taxonomy the rest of the module
// branches on:
//
//   - [Client]: pooled HTTP client with typed methods per endpoint
//   - [State]: decoded execution-state snapshot (GET /get_program_state)
//   - [TransportError], [MalformedError], [RejectionError]: failure classes
//
// Callers decide retry behavior from the error class: transport failures are
// retryable, malformed payloads and backend rejections are definitive.
//
// Users of the irriboard library should not need to interact with this
// package directly; the root package wraps it with public types.
package backend
