// Package history persists program run events for irriboard.
//
// This package is internal to irriboard. Rising and falling edges of the
// backend's running flag are recorded as started/ended rows in a local
// sqlite database, so the history survives restarts of the console. The
// history CLI command reads it back with [Repository.Recent].
package history
