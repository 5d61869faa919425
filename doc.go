// Package irriboard is a headless dashboard controller for an irrigation
// backend: it polls the backend's program execution state at an adaptive
// cadence, drives a pluggable renderer, and issues guarded control commands
// (start/stop/delete/toggle-automation) with bounded retry.
//
// # Quick Start
//
// Create a console and start it with graceful shutdown:
//
//	console, _ := irriboard.New("http://sprinkler.local:8080",
//	    irriboard.WithRenderer(myRenderer),
//	)
//
//	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer stop()
//
//	console.Start(ctx) // blocks until context is cancelled
//
// # Polling
//
// The console polls GET /get_program_state every 5 seconds. When a program
// starts running (or a start command succeeds), polling accelerates to once
// per second for a 15-second window, then falls back. These cadences are a
// fixed contract of the backend, not configuration.
//
// # Commands
//
// Control commands are issued through the console:
//
//	err := console.StartProgram(ctx, "3")
//
// One command runs at a time; an overlapping call returns [ErrBusy].
// Transport failures are retried up to 3 times with a linearly increasing
// delay. A backend rejection ({"success": false}) is definitive: use
// [IsRejection] and [RejectionMessage] to surface the server's reason.
//
// # Rendering
//
// The console pushes every snapshot outward through the [Renderer]
// interface. Embed [NopRenderer] to implement only the methods you need, or
// use [LogRenderer] for a line-per-snapshot log surface. An optional
// [Notifier] receives user-facing messages (command results, run
// transitions).
//
// # Architecture
//
// irriboard consists of several internal packages (under internal/):
//
//   - internal/backend: HTTP client for the irrigation REST API
//   - internal/poller: adaptive two-speed polling state machine
//   - internal/action: guarded command invocation with bounded retry
//   - internal/store: latest-snapshot storage with pub/sub
//   - internal/server: optional read-only relay (JSON, SSE, websocket)
//   - internal/history: optional sqlite log of program run events
//
// The internal packages are not part of the public API and may change
// without notice.
package irriboard
