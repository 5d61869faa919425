package poller

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/filippods/irriboard/internal/backend"
)

// testLogger returns a logger that discards all output for clean test output.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// sourceFunc adapts a function to the StateSource interface.
type sourceFunc func(ctx context.Context) (backend.State, error)

func (f sourceFunc) ProgramState(ctx context.Context) (backend.State, error) {
	return f(ctx)
}

// recordSink records every sink call for later assertions.
type recordSink struct {
	mu        sync.Mutex
	snapshots []backend.State
	details   []string
	idles     int
	started   []string
	ended     []string
}

func (s *recordSink) HandleSnapshot(st backend.State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshots = append(s.snapshots, st)
}

func (s *recordSink) HandleRunningDetail(programID string, zone backend.Zone) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.details = append(s.details, programID)
}

func (s *recordSink) HandleIdle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.idles++
}

func (s *recordSink) HandleRunStarted(programID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = append(s.started, programID)
}

func (s *recordSink) HandleRunEnded(programID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ended = append(s.ended, programID)
}

func (s *recordSink) snapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.snapshots)
}

// newTestController builds a controller with tight test timings.
func newTestController(source StateSource, sink Sink) *Controller {
	c := NewController(source, sink, testLogger())
	c.normalInterval = 30 * time.Millisecond
	c.fastInterval = 10 * time.Millisecond
	c.fastWindow = 120 * time.Millisecond
	return c
}

// waitFor polls cond until it is true or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timeout waiting for %s", msg)
}

func idleState() backend.State {
	return backend.State{ProgramRunning: false}
}

func runningState(programID string) backend.State {
	return backend.State{
		ProgramRunning:   true,
		CurrentProgramID: programID,
		ActiveZone:       &backend.Zone{ID: 1, Name: "Lawn", RemainingSeconds: 90},
	}
}

// TestController_RisingEdgeAccelerates verifies the Normal->Accelerated
// transition on a false->true flip of the running flag, and that the run
// start is reported with the new program id.
func TestController_RisingEdgeAccelerates(t *testing.T) {
	var calls atomic.Int32
	source := sourceFunc(func(ctx context.Context) (backend.State, error) {
		if calls.Add(1) == 1 {
			return idleState(), nil
		}
		return runningState("3"), nil
	})

	sink := &recordSink{}
	c := newTestController(source, sink)
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, 2*time.Second, func() bool { return c.Mode() == ModeAccelerated },
		"controller to accelerate on rising edge")

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.started) != 1 || sink.started[0] != "3" {
		t.Errorf("started = %v, want [3]", sink.started)
	}
	if len(sink.details) == 0 {
		t.Error("expected running detail to be forwarded while a zone is active")
	}
}

// TestController_FirstSnapshotRunningAccelerates verifies that a first-ever
// snapshot with the program already running counts as a rising edge (there
// is no previous snapshot to compare against).
func TestController_FirstSnapshotRunningAccelerates(t *testing.T) {
	source := sourceFunc(func(ctx context.Context) (backend.State, error) {
		return runningState("1"), nil
	})

	sink := &recordSink{}
	c := newTestController(source, sink)
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, 2*time.Second, func() bool { return c.Mode() == ModeAccelerated },
		"controller to accelerate on initial running snapshot")
}

// TestController_FallingEdgeRestores verifies the Accelerated->Normal
// transition on a true->false flip, and that the run end carries the program
// id from the previous snapshot.
func TestController_FallingEdgeRestores(t *testing.T) {
	var calls atomic.Int32
	source := sourceFunc(func(ctx context.Context) (backend.State, error) {
		if calls.Add(1) <= 2 {
			return runningState("7"), nil
		}
		return idleState(), nil
	})

	sink := &recordSink{}
	c := newTestController(source, sink)
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, 2*time.Second, func() bool { return c.Mode() == ModeAccelerated },
		"controller to accelerate first")
	waitFor(t, 2*time.Second, func() bool {
		sink.mu.Lock()
		defer sink.mu.Unlock()
		return len(sink.ended) > 0
	}, "falling edge to be reported")

	if got := c.Mode(); got != ModeNormal {
		t.Errorf("Mode() = %q after falling edge, want %q", got, ModeNormal)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if sink.ended[0] != "7" {
		t.Errorf("ended[0] = %q, want %q", sink.ended[0], "7")
	}
	if sink.idles == 0 {
		t.Error("expected indicators to be cleared once the program stopped")
	}
}

// TestController_WindowElapsedRestores verifies that the accelerated window
// is bounded: with the program still running (no falling edge), the deadline
// alone forces the return to the normal cadence, and steady running
// snapshots do not re-trigger acceleration.
func TestController_WindowElapsedRestores(t *testing.T) {
	source := sourceFunc(func(ctx context.Context) (backend.State, error) {
		return runningState("2"), nil
	})

	sink := &recordSink{}
	c := newTestController(source, sink)
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, 2*time.Second, func() bool { return c.Mode() == ModeAccelerated },
		"controller to accelerate")
	waitFor(t, 2*time.Second, func() bool { return c.Mode() == ModeNormal },
		"window deadline to restore normal cadence")

	// steady-state running is not a rising edge; mode must stay normal
	time.Sleep(3 * c.normalInterval)
	if got := c.Mode(); got != ModeNormal {
		t.Errorf("Mode() = %q after window elapsed, want %q", got, ModeNormal)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.started) != 1 {
		t.Errorf("started %d times, want exactly 1", len(sink.started))
	}
}

// TestController_ExternalAccelerate verifies that Accelerate() enters the
// fast cadence without any edge, and that the window still bounds it.
func TestController_ExternalAccelerate(t *testing.T) {
	source := sourceFunc(func(ctx context.Context) (backend.State, error) {
		return idleState(), nil
	})

	sink := &recordSink{}
	c := newTestController(source, sink)
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, 2*time.Second, func() bool { return sink.snapshotCount() > 0 },
		"first poll to complete")

	c.Accelerate()
	waitFor(t, 2*time.Second, func() bool { return c.Mode() == ModeAccelerated },
		"external accelerate to take effect")

	// redundant accelerate while accelerated must be a harmless no-op
	c.Accelerate()
	c.Accelerate()

	waitFor(t, 2*time.Second, func() bool { return c.Mode() == ModeNormal },
		"window deadline to restore normal cadence")
}

// TestController_OverlappingTicksDropped verifies the poll busy guard: with
// a source slower than the tick interval, at most one fetch is ever in
// flight.
func TestController_OverlappingTicksDropped(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	source := sourceFunc(func(ctx context.Context) (backend.State, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			prev := maxInFlight.Load()
			if n <= prev || maxInFlight.CompareAndSwap(prev, n) {
				break
			}
		}
		select {
		case <-time.After(100 * time.Millisecond): // slower than the tick
		case <-ctx.Done():
		}
		return idleState(), nil
	})

	sink := &recordSink{}
	c := newTestController(source, sink)
	c.normalInterval = 10 * time.Millisecond
	c.Start(context.Background())

	time.Sleep(350 * time.Millisecond)
	c.Stop()

	if got := maxInFlight.Load(); got != 1 {
		t.Errorf("max concurrent fetches = %d, want 1", got)
	}
}

// TestController_PollFailureIsSilent verifies that transport failures reach
// neither the sink nor the mode machine; the loop keeps ticking.
func TestController_PollFailureIsSilent(t *testing.T) {
	var calls atomic.Int32
	source := sourceFunc(func(ctx context.Context) (backend.State, error) {
		calls.Add(1)
		return backend.State{}, &backend.TransportError{Op: "get_program_state", Err: context.DeadlineExceeded}
	})

	sink := &recordSink{}
	c := newTestController(source, sink)
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 3 },
		"controller to keep retrying on the next tick")

	if got := sink.snapshotCount(); got != 0 {
		t.Errorf("sink received %d snapshots from failed polls, want 0", got)
	}
	if got := c.Mode(); got != ModeNormal {
		t.Errorf("Mode() = %q after failures, want %q", got, ModeNormal)
	}
}

// TestController_Refresh verifies that Refresh triggers an out-of-cycle poll
// well before the next normal tick.
func TestController_Refresh(t *testing.T) {
	var calls atomic.Int32
	source := sourceFunc(func(ctx context.Context) (backend.State, error) {
		calls.Add(1)
		return idleState(), nil
	})

	sink := &recordSink{}
	c := newTestController(source, sink)
	c.normalInterval = 5 * time.Second // next scheduled tick is far away
	c.Start(context.Background())
	defer c.Stop()

	waitFor(t, 2*time.Second, func() bool { return calls.Load() == 1 },
		"initial poll")

	c.Refresh()
	waitFor(t, 2*time.Second, func() bool { return calls.Load() >= 2 },
		"refresh to poll immediately")
}

// TestController_StopBeforeStart verifies that Stop on a never-started
// controller is a safe no-op.
func TestController_StopBeforeStart(t *testing.T) {
	c := newTestController(sourceFunc(func(ctx context.Context) (backend.State, error) {
		return idleState(), nil
	}), &recordSink{})

	// must not panic or block
	c.Stop()

	// Start after Stop is a no-op
	c.Start(context.Background())
	time.Sleep(50 * time.Millisecond)
	if got := c.Mode(); got != ModeNormal {
		t.Errorf("Mode() = %q, want %q", got, ModeNormal)
	}
}

// TestController_StopTwice verifies that Stop is idempotent.
func TestController_StopTwice(t *testing.T) {
	c := newTestController(sourceFunc(func(ctx context.Context) (backend.State, error) {
		return idleState(), nil
	}), &recordSink{})

	c.Start(context.Background())
	time.Sleep(20 * time.Millisecond)

	c.Stop()
	c.Stop()
}
