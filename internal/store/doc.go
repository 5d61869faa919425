// Package store holds the latest execution-state snapshot for irriboard.
//
// This package is internal to irriboard. The controller writes every poll
// result here; the relay server and the watch command read from it. It
// implements a publish-subscribe pattern so connected relay clients receive
// updates in real time.
//
// The main components are:
//
//   - [Store]: interface defining storage and subscription operations
//   - [MemoryStore]: in-memory implementation of Store with pub/sub
//   - [Snapshot]: storage representation of the execution state
//
// Subscribers receive updates via buffered channels with non-blocking sends;
// slow subscribers miss updates rather than blocking the poll path.
//
// Users of the irriboard library should not need to interact with this
// package directly.
package store
