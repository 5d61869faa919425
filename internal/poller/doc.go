// Package poller implements the adaptive polling loop for irriboard.
//
// This package is internal to irriboard and owns the two-speed polling state
// machine over the backend's execution state:
//
//   - [Controller]: repeating poll of the state endpoint with Normal and
//     Accelerated cadences
//   - [Mode]: the controller's current cadence
//   - [Sink]: the outward interface every poll result is forwarded to
//
// The controller accelerates on a rising edge of the running flag (or when
// told that a start command succeeded) and restores the normal cadence on a
// falling edge or after a fixed window. Poll failures are logged and skipped;
// the next tick is the retry.
//
// Users of the irriboard library should not need to interact with this
// package directly. Configuration is done through the main irriboard package.
package poller
