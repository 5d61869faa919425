// Package server is irriboard's headless relay surface.
//
// This package is internal to irriboard. It re-exposes the latest polled
// execution state over three read-only routes: a JSON endpoint, a
// Server-Sent Events stream, and a websocket stream. There is no HTML and
// no write path; control commands go through the backend client, never
// through the relay.
//
// Users of the irriboard library should not need to interact with this
// package directly; the relay is enabled through the main irriboard package.
package server
