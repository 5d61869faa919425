package irriboard

import (
	"errors"
	"log/slog"
	"time"
)

// consoleConfig holds mutable state during Console construction.
type consoleConfig struct {
	requestTimeout time.Duration
	renderer       Renderer
	notifier       Notifier
	logger         *slog.Logger
	callbacks      []func(Snapshot)
	relayPort      int
	relayEnabled   bool
	historyPath    string
}

// Option is a function that configures a [Console] instance during
// construction.
//
// Option implements the functional options pattern, allowing optional
// configuration to be passed to [New] in a type-safe, extensible way.
// Options return an error if validation fails.
//
// Built-in options: [WithRequestTimeout], [WithRenderer], [WithNotifier],
// [WithLogger], [WithSnapshotCallback], [WithRelay], [WithHistory].
type Option func(*consoleConfig) error

// WithRequestTimeout sets the per-request timeout for every backend call.
// Defaults to 10 seconds.
//
// Returns an error if the duration is zero or negative.
func WithRequestTimeout(d time.Duration) Option {
	return func(cfg *consoleConfig) error {
		if d <= 0 {
			return errors.New("request timeout must be positive")
		}
		cfg.requestTimeout = d
		return nil
	}
}

// WithRenderer sets the display surface the console drives. Defaults to
// [NopRenderer] if not specified.
func WithRenderer(r Renderer) Option {
	return func(cfg *consoleConfig) error {
		if r == nil {
			return errors.New("renderer must not be nil")
		}
		cfg.renderer = r
		return nil
	}
}

// WithNotifier sets the optional notification capability. Without it,
// user-facing messages are dropped.
func WithNotifier(n Notifier) Option {
	return func(cfg *consoleConfig) error {
		cfg.notifier = n
		return nil
	}
}

// WithLogger sets the logger for console events. Defaults to
// [slog.Default] if not specified.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *consoleConfig) error {
		if logger == nil {
			return errors.New("logger must not be nil")
		}
		cfg.logger = logger
		return nil
	}
}

// WithSnapshotCallback registers a function invoked for every well-formed
// snapshot, after the renderer. Can be called multiple times to register
// multiple callbacks. Panics in callbacks are recovered and logged.
func WithSnapshotCallback(cb func(Snapshot)) Option {
	return func(cfg *consoleConfig) error {
		if cb == nil {
			return errors.New("snapshot callback must not be nil")
		}
		cfg.callbacks = append(cfg.callbacks, cb)
		return nil
	}
}

// WithRelay enables the read-only relay server on the given port. The relay
// re-exposes the latest snapshot as JSON, SSE, and websocket streams.
func WithRelay(port int) Option {
	return func(cfg *consoleConfig) error {
		if port < 1 || port > 65535 {
			return errors.New("relay port must be between 1 and 65535")
		}
		cfg.relayPort = port
		cfg.relayEnabled = true
		return nil
	}
}

// WithHistory enables the sqlite run-history log at the given path. Rising
// and falling edges of the running flag are recorded as started/ended
// events.
func WithHistory(path string) Option {
	return func(cfg *consoleConfig) error {
		if path == "" {
			return errors.New("history path must not be empty")
		}
		cfg.historyPath = path
		return nil
	}
}
