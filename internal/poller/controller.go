package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/filippods/irriboard/internal/backend"
)

// Mode is the controller's polling cadence.
type Mode string

const (
	// ModeNormal is the relaxed cadence used while nothing is running.
	ModeNormal Mode = "normal"

	// ModeAccelerated is the fast cadence used for a bounded window after
	// a program starts running.
	ModeAccelerated Mode = "accelerated"
)

// Fixed timing contract. The cadence is not configurable at runtime.
const (
	NormalInterval = 5 * time.Second
	FastInterval   = 1 * time.Second
	FastWindow     = 15 * time.Second
)

// StateSource provides execution-state snapshots. *backend.Client satisfies it.
type StateSource interface {
	ProgramState(ctx context.Context) (backend.State, error)
}

// Sink receives everything the controller learns from a poll.
//
// All methods are called from the controller's run goroutine, in order:
// HandleSnapshot first, then exactly one of HandleRunningDetail/HandleIdle,
// then HandleRunStarted or HandleRunEnded when the poll crossed an edge.
// Implementations must not block.
type Sink interface {
	// HandleSnapshot is called for every well-formed poll result.
	HandleSnapshot(st backend.State)

	// HandleRunningDetail is called when the snapshot has an active zone.
	HandleRunningDetail(programID string, zone backend.Zone)

	// HandleIdle is called when the snapshot has no active zone.
	HandleIdle()

	// HandleRunStarted is called on a rising edge of the running flag.
	HandleRunStarted(programID string)

	// HandleRunEnded is called on a falling edge of the running flag,
	// with the program id from the previous snapshot.
	HandleRunEnded(programID string)
}

// fetchResult carries one completed state fetch back into the run loop.
type fetchResult struct {
	state backend.State
	err   error
}

// Controller polls the backend's execution state at a two-speed cadence.
//
// The controller starts in [ModeNormal]. A rising edge of the running flag,
// or an external [Controller.Accelerate] call, switches it to
// [ModeAccelerated] for at most [FastWindow]; a falling edge or the window
// deadline switches it back. Re-entering the current mode is a no-op and
// never extends the window.
//
// The run goroutine owns the only poll timer and the only window deadline;
// mode changes reset them in place, so no sequence of transitions can leave
// two timers live. A tick that fires while a fetch is still outstanding is
// dropped, not queued, so at most one state request is ever in flight and a
// stale response can never overwrite a fresher one.
//
// All lifecycle methods (Start, Stop) are safe for concurrent use.
type Controller struct {
	source StateSource
	sink   Sink
	logger *slog.Logger

	// cadence, initialized from the package constants; narrowed by tests
	normalInterval time.Duration
	fastInterval   time.Duration
	fastWindow     time.Duration

	busy      atomic.Bool
	accelCh   chan struct{}
	refreshCh chan struct{}

	mu      sync.Mutex
	mode    Mode
	started bool
	stopped bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// run-loop state, touched only by the run goroutine
	last *backend.State
}

// NewController creates a [Controller] over the given state source.
//
// The controller must be started with [Controller.Start] and stopped with
// [Controller.Stop]. Results are forwarded to sink; poll failures are logged
// to logger and otherwise ignored (the next tick is the retry).
func NewController(source StateSource, sink Sink, logger *slog.Logger) *Controller {
	return &Controller{
		source:         source,
		sink:           sink,
		logger:         logger,
		normalInterval: NormalInterval,
		fastInterval:   FastInterval,
		fastWindow:     FastWindow,
		accelCh:        make(chan struct{}, 1),
		refreshCh:      make(chan struct{}, 1),
		mode:           ModeNormal,
	}
}

// Mode returns the controller's current polling cadence.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// Accelerate requests a switch to the fast cadence, as after a successful
// start command. Non-blocking; redundant calls while already accelerated are
// no-ops and do not extend the window.
func (c *Controller) Accelerate() {
	select {
	case c.accelCh <- struct{}{}:
	default:
	}
}

// Refresh requests an immediate out-of-cycle poll. Non-blocking; dropped if
// a fetch is already outstanding.
func (c *Controller) Refresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// Start begins the polling loop in a background goroutine.
//
// Start is non-blocking. The controller polls once immediately, then at the
// cadence of the current mode until the context is cancelled or
// [Controller.Stop] is called. Start is idempotent; calling it after Stop is
// a no-op.
func (c *Controller) Start(ctx context.Context) {
	c.mu.Lock()
	if c.started || c.stopped {
		c.mu.Unlock()
		return
	}
	c.started = true

	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		c.run(runCtx)
	}()
}

// Stop halts the controller and waits for the loop and any in-flight fetch
// goroutine to finish. Idempotent; safe to call before Start.
func (c *Controller) Stop() {
	c.mu.Lock()
	if !c.stopped {
		c.stopped = true
		if c.cancel != nil {
			c.cancel()
		}
	}
	c.mu.Unlock()

	c.wg.Wait()
}

// run is the controller's single event loop. It owns the poll timer and the
// window deadline outright; every transition reuses them via Reset.
func (c *Controller) run(ctx context.Context) {
	timer := time.NewTimer(0) // first poll immediately
	defer timer.Stop()

	// armed only while accelerated
	deadline := time.NewTimer(time.Hour)
	stopTimer(deadline)
	defer deadline.Stop()

	results := make(chan fetchResult, 1)

	for {
		select {
		case <-ctx.Done():
			return

		case <-timer.C:
			c.beginFetch(ctx, results)
			timer.Reset(c.interval())

		case r := <-results:
			c.handleResult(r, timer, deadline)

		case <-deadline.C:
			c.restore(timer, deadline, "window elapsed")

		case <-c.accelCh:
			c.accelerate(timer, deadline, "start reported")

		case <-c.refreshCh:
			resetTimer(timer, 0)
		}
	}
}

// beginFetch launches one state fetch unless one is already outstanding, in
// which case the tick is dropped.
func (c *Controller) beginFetch(ctx context.Context, results chan<- fetchResult) {
	if !c.busy.CompareAndSwap(false, true) {
		c.logger.Debug("poll tick dropped, fetch in flight")
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.busy.Store(false)

		st, err := c.source.ProgramState(ctx)
		select {
		case results <- fetchResult{state: st, err: err}:
		case <-ctx.Done():
		}
	}()
}

// handleResult stores a completed fetch, forwards it to the sink, and applies
// the edge-transition rule.
func (c *Controller) handleResult(r fetchResult, timer, deadline *time.Timer) {
	if r.err != nil {
		// fail silent toward the display: the previous state stays
		// rendered and the next tick is the retry
		c.logger.Warn("state poll failed", "error", r.err)
		return
	}

	st := r.state
	prevRunning := false
	prevProgram := ""
	if c.last != nil {
		prevRunning = c.last.ProgramRunning
		prevProgram = c.last.CurrentProgramID
	}
	c.last = &st

	c.sink.HandleSnapshot(st)
	if st.ProgramRunning && st.ActiveZone != nil {
		c.sink.HandleRunningDetail(st.CurrentProgramID, *st.ActiveZone)
	} else {
		c.sink.HandleIdle()
	}

	switch {
	case st.ProgramRunning && !prevRunning:
		c.sink.HandleRunStarted(st.CurrentProgramID)
		c.accelerate(timer, deadline, "rising edge")
	case !st.ProgramRunning && prevRunning:
		c.sink.HandleRunEnded(prevProgram)
		c.restore(timer, deadline, "falling edge")
	}
}

// accelerate enters the fast cadence. No-op if already accelerated.
func (c *Controller) accelerate(timer, deadline *time.Timer, reason string) {
	c.mu.Lock()
	if c.mode == ModeAccelerated {
		c.mu.Unlock()
		return
	}
	c.mode = ModeAccelerated
	c.mu.Unlock()

	resetTimer(timer, c.fastInterval)
	resetTimer(deadline, c.fastWindow)
	c.logger.Info("polling accelerated", "reason", reason, "window", c.fastWindow.String())
}

// restore re-enters the normal cadence and disarms the deadline. No-op if
// already normal.
func (c *Controller) restore(timer, deadline *time.Timer, reason string) {
	c.mu.Lock()
	if c.mode == ModeNormal {
		c.mu.Unlock()
		return
	}
	c.mode = ModeNormal
	c.mu.Unlock()

	resetTimer(timer, c.normalInterval)
	stopTimer(deadline)
	c.logger.Info("polling restored", "reason", reason)
}

// interval returns the tick interval for the current mode.
func (c *Controller) interval() time.Duration {
	if c.Mode() == ModeAccelerated {
		return c.fastInterval
	}
	return c.normalInterval
}

// stopTimer stops a loop-owned timer and drains a pending fire. Safe only
// from the goroutine that also receives from t.C.
func stopTimer(t *time.Timer) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
}

// resetTimer stops, drains, and re-arms a loop-owned timer.
func resetTimer(t *time.Timer, d time.Duration) {
	stopTimer(t)
	t.Reset(d)
}
