package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/filippods/irriboard/internal/backend"
)

// Retry policy for transport failures. The delay before attempt n+1 is
// retryStep * n, so three attempts wait 500ms and then 1s.
const (
	maxAttempts = 3
	retryStep   = 500 * time.Millisecond
)

// ErrBusy is returned when Invoke is called while another command is still
// in flight. The backend is not contacted.
var ErrBusy = errors.New("another command is in flight")

// ControlSink disables and re-enables the control that triggered a command.
// The irriboard Renderer satisfies it.
type ControlSink interface {
	SetControlEnabled(control string, enabled bool)
}

// Invoker runs state-changing backend commands, one at a time.
//
// A process-wide busy flag guards the whole call-chain of an invocation,
// retries included; an overlapping call returns [ErrBusy] without touching
// the backend. The triggering control is disabled for the duration of the
// invocation and re-enabled on every exit path.
//
// Only transport failures are retried. A [backend.RejectionError] is a
// definitive refusal and a [backend.MalformedError] cannot be told apart
// from a partially applied command, so neither is retried.
type Invoker struct {
	sink   ControlSink
	logger *slog.Logger
	busy   atomic.Bool
}

// NewInvoker creates an [Invoker] reporting control state to sink.
func NewInvoker(sink ControlSink, logger *slog.Logger) *Invoker {
	return &Invoker{sink: sink, logger: logger}
}

// Busy reports whether a command is currently in flight.
func (inv *Invoker) Busy() bool {
	return inv.busy.Load()
}

// Invoke runs call under the busy guard and retry policy.
//
// The control string names the affordance that triggered the command (one of
// the irriboard Control* constants); it is disabled while the invocation is
// in flight. Returns nil on success, [ErrBusy] if another invocation is
// outstanding, the context error if cancelled mid-retry, and otherwise the
// last error from call.
func (inv *Invoker) Invoke(ctx context.Context, control string, call func(context.Context) error) error {
	if !inv.busy.CompareAndSwap(false, true) {
		inv.logger.Debug("command dropped, another in flight", "control", control)
		return ErrBusy
	}
	defer inv.busy.Store(false)

	inv.sink.SetControlEnabled(control, false)
	defer inv.sink.SetControlEnabled(control, true)

	// one correlation id across all attempts of this invocation
	id := uuid.NewString()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := call(ctx)
		if err == nil {
			inv.logger.Info("command succeeded",
				"control", control, "correlation_id", id, "attempt", attempt)
			return nil
		}

		var transport *backend.TransportError
		if !errors.As(err, &transport) {
			// rejection or malformed reply: definitive, surface as-is
			inv.logger.Warn("command refused",
				"control", control, "correlation_id", id, "error", err)
			return err
		}

		lastErr = err
		if attempt == maxAttempts {
			break
		}

		delay := retryStep * time.Duration(attempt)
		inv.logger.Warn("command transport failure, retrying",
			"control", control, "correlation_id", id,
			"attempt", attempt, "retry_in", delay.String(), "error", err)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	inv.logger.Error("command failed",
		"control", control, "correlation_id", id, "attempts", maxAttempts, "error", lastErr)
	return fmt.Errorf("%s failed after %d attempts: %w", control, maxAttempts, lastErr)
}
