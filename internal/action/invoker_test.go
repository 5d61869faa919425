package action

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/filippods/irriboard/internal/backend"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordControls records SetControlEnabled calls in order.
type recordControls struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordControls) SetControlEnabled(control string, enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, fmt.Sprintf("%s=%t", control, enabled))
}

func transportErr() error {
	return &backend.TransportError{Op: "start_program", Err: errors.New("connection refused")}
}

// TestInvoker_SuccessFirstAttempt verifies the plain success path: one call,
// control disabled then re-enabled, busy clear afterward.
func TestInvoker_SuccessFirstAttempt(t *testing.T) {
	controls := &recordControls{}
	inv := NewInvoker(controls, testLogger())

	var calls atomic.Int32
	err := inv.Invoke(context.Background(), "start", func(ctx context.Context) error {
		calls.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("backend called %d times, want 1", calls.Load())
	}
	if inv.Busy() {
		t.Error("busy flag still set after invocation settled")
	}

	controls.mu.Lock()
	defer controls.mu.Unlock()
	want := []string{"start=false", "start=true"}
	if len(controls.calls) != 2 || controls.calls[0] != want[0] || controls.calls[1] != want[1] {
		t.Errorf("control calls = %v, want %v", controls.calls, want)
	}
}

// TestInvoker_RetriesTransportThenSucceeds verifies the retry policy: two
// transport failures then success means three calls, a total elapsed time of
// at least 1500ms (500 + 1000), and a nil error.
func TestInvoker_RetriesTransportThenSucceeds(t *testing.T) {
	inv := NewInvoker(&recordControls{}, testLogger())

	var calls atomic.Int32
	start := time.Now()
	err := inv.Invoke(context.Background(), "start", func(ctx context.Context) error {
		if calls.Add(1) <= 2 {
			return transportErr()
		}
		return nil
	})
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Invoke() error = %v, want success on 3rd attempt", err)
	}
	if calls.Load() != 3 {
		t.Errorf("backend called %d times, want 3", calls.Load())
	}
	if elapsed < 1500*time.Millisecond {
		t.Errorf("elapsed = %s, want >= 1.5s (500ms + 1000ms delays)", elapsed)
	}
	if inv.Busy() {
		t.Error("busy flag still set after invocation settled")
	}
}

// TestInvoker_GivesUpAfterThreeAttempts verifies that a fourth attempt is
// never made and the last transport error surfaces.
func TestInvoker_GivesUpAfterThreeAttempts(t *testing.T) {
	inv := NewInvoker(&recordControls{}, testLogger())

	var calls atomic.Int32
	err := inv.Invoke(context.Background(), "stop", func(ctx context.Context) error {
		calls.Add(1)
		return transportErr()
	})

	if err == nil {
		t.Fatal("Invoke() error = nil, want transport failure")
	}
	var transport *backend.TransportError
	if !errors.As(err, &transport) {
		t.Errorf("Invoke() error = %v, want wrapped TransportError", err)
	}
	if calls.Load() != 3 {
		t.Errorf("backend called %d times, want exactly 3", calls.Load())
	}
	if inv.Busy() {
		t.Error("busy flag still set after terminal failure")
	}
}

// TestInvoker_RejectionNotRetried verifies that a backend rejection settles
// within a single round-trip, carrying the server message.
func TestInvoker_RejectionNotRetried(t *testing.T) {
	inv := NewInvoker(&recordControls{}, testLogger())

	var calls atomic.Int32
	start := time.Now()
	err := inv.Invoke(context.Background(), "start", func(ctx context.Context) error {
		calls.Add(1)
		return &backend.RejectionError{Op: "start_program", Message: "zone busy"}
	})
	elapsed := time.Since(start)

	var rejection *backend.RejectionError
	if !errors.As(err, &rejection) {
		t.Fatalf("Invoke() error = %v, want RejectionError", err)
	}
	if rejection.Message != "zone busy" {
		t.Errorf("Message = %q, want %q", rejection.Message, "zone busy")
	}
	if calls.Load() != 1 {
		t.Errorf("backend called %d times, want 1 (no retry on rejection)", calls.Load())
	}
	if elapsed >= retryStep {
		t.Errorf("elapsed = %s, want settled without any retry delay", elapsed)
	}
}

// TestInvoker_BusyGuard verifies that a second invocation started while the
// first is in flight returns ErrBusy without calling the backend.
func TestInvoker_BusyGuard(t *testing.T) {
	inv := NewInvoker(&recordControls{}, testLogger())

	firstEntered := make(chan struct{})
	release := make(chan struct{})
	var firstErr error
	done := make(chan struct{})

	go func() {
		defer close(done)
		firstErr = inv.Invoke(context.Background(), "start", func(ctx context.Context) error {
			close(firstEntered)
			<-release
			return nil
		})
	}()

	<-firstEntered

	var secondCalls atomic.Int32
	err := inv.Invoke(context.Background(), "start", func(ctx context.Context) error {
		secondCalls.Add(1)
		return nil
	})
	if !errors.Is(err, ErrBusy) {
		t.Errorf("overlapping Invoke() error = %v, want ErrBusy", err)
	}
	if secondCalls.Load() != 0 {
		t.Errorf("overlapping invocation reached the backend %d times, want 0", secondCalls.Load())
	}

	close(release)
	<-done
	if firstErr != nil {
		t.Errorf("first Invoke() error = %v", firstErr)
	}

	// settled: a new invocation must pass the guard again
	if err := inv.Invoke(context.Background(), "start", func(ctx context.Context) error {
		return nil
	}); err != nil {
		t.Errorf("Invoke() after settle error = %v", err)
	}
}

// TestInvoker_BusyForWholeCallChain verifies the busy flag stays set across
// retries, not just across a single attempt.
func TestInvoker_BusyForWholeCallChain(t *testing.T) {
	inv := NewInvoker(&recordControls{}, testLogger())

	var calls atomic.Int32
	var sawIdle atomic.Bool
	done := make(chan struct{})

	go func() {
		defer close(done)
		_ = inv.Invoke(context.Background(), "start", func(ctx context.Context) error {
			if calls.Add(1) < 3 {
				return transportErr()
			}
			return nil
		})
	}()

	// sample the flag while the retry chain is running
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		if calls.Load() >= 1 && !inv.Busy() {
			sawIdle.Store(true)
		}
		time.Sleep(10 * time.Millisecond)
	}
	<-done

	if sawIdle.Load() {
		t.Error("busy flag dropped between retry attempts")
	}
}

// TestInvoker_ContextCancelledDuringBackoff verifies that cancellation cuts
// the retry wait short and surfaces the context error.
func TestInvoker_ContextCancelledDuringBackoff(t *testing.T) {
	inv := NewInvoker(&recordControls{}, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var calls atomic.Int32
	err := inv.Invoke(ctx, "start", func(ctx context.Context) error {
		calls.Add(1)
		return transportErr()
	})

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Invoke() error = %v, want context.DeadlineExceeded", err)
	}
	if calls.Load() != 1 {
		t.Errorf("backend called %d times, want 1 (cancelled during first backoff)", calls.Load())
	}
	if inv.Busy() {
		t.Error("busy flag still set after cancellation")
	}
}
