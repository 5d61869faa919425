package irriboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/filippods/irriboard/internal/action"
	"github.com/filippods/irriboard/internal/backend"
	"github.com/filippods/irriboard/internal/history"
	"github.com/filippods/irriboard/internal/poller"
	"github.com/filippods/irriboard/internal/server"
	"github.com/filippods/irriboard/internal/store"
)

const (
	defaultRequestTimeout = 10 * time.Second

	// bound on recording a run event outside the polling hot path
	historyWriteTimeout = 5 * time.Second
)

// Console is the main orchestrator: adaptive polling of the irrigation
// backend's execution state plus guarded control commands.
//
// Console is created with [New] and started with [Console.Start]. The
// typical lifecycle is:
//
//	console, err := irriboard.New("http://sprinkler.local:8080",
//	    irriboard.WithRenderer(r),
//	)
//	if err != nil {
//	    slog.Error("failed to create console", "error", err)
//	    os.Exit(1)
//	}
//
//	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
//	defer cancel()
//
//	console.Start(ctx) // blocks until context cancelled
//
// The polling guard and the command guard are independent: a poll may run
// while a command is pending. Only same-kind overlap is prevented.
type Console struct {
	baseURL   string
	renderer  Renderer
	notifier  Notifier
	logger    *slog.Logger
	callbacks []func(Snapshot)

	relayPort    int
	relayEnabled bool
	historyPath  string

	client     *backend.Client
	controller *poller.Controller
	invoker    *action.Invoker
	store      *store.MemoryStore

	// set during Start when a history path is configured
	history *history.Repository
}

// New creates a [Console] for the irrigation backend at baseURL.
//
// baseURL must be a valid http or https URL. Options have sensible
// defaults: a 10-second request timeout, a [NopRenderer], no notifier, no
// relay, no history.
func New(baseURL string, opts ...Option) (*Console, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("base URL must use http or https, got %q", baseURL)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("base URL must include a host, got %q", baseURL)
	}

	cfg := &consoleConfig{
		requestTimeout: defaultRequestTimeout,
	}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}

	renderer := cfg.renderer
	if renderer == nil {
		renderer = NopRenderer{}
	}
	logger := cfg.logger
	if logger == nil {
		logger = slog.Default()
	}

	c := &Console{
		baseURL:      baseURL,
		renderer:     renderer,
		notifier:     cfg.notifier,
		logger:       logger,
		callbacks:    cfg.callbacks,
		relayPort:    cfg.relayPort,
		relayEnabled: cfg.relayEnabled,
		historyPath:  cfg.historyPath,
		client:       backend.NewClient(baseURL, cfg.requestTimeout),
		store:        store.NewMemoryStore(),
	}
	c.invoker = action.NewInvoker(renderControls{renderer}, logger)
	c.controller = poller.NewController(c.client, &consoleSink{c}, logger)
	return c, nil
}

// Start begins polling and, when configured, serving the relay.
//
// Start is a blocking call that runs until the provided context is
// cancelled, then shuts everything down: the poll timer is cancelled exactly
// once, in-flight work is awaited, and the history database is closed.
//
// Returns nil on graceful shutdown, or an error if the relay fails to bind
// or the history database cannot be opened.
func (c *Console) Start(ctx context.Context) error {
	c.logger.Info("console starting", "backend", c.baseURL)

	if ctx.Err() != nil {
		return nil
	}

	if c.historyPath != "" {
		repo, err := history.Open(c.historyPath)
		if err != nil {
			return fmt.Errorf("failed to open run history: %w", err)
		}
		c.history = repo
		defer func() {
			if err := c.history.Close(); err != nil {
				c.logger.Error("failed to close run history", "error", err)
			}
		}()
		c.logger.Info("run history enabled", "path", c.historyPath)
	}

	if c.relayEnabled {
		relay := server.NewServer(c.store, c.relayPort, c.logger)
		if err := relay.Start(ctx); err != nil {
			return fmt.Errorf("failed to start relay: %w", err)
		}
		c.logger.Info("relay available", "url", fmt.Sprintf("http://localhost:%d/api/state", c.relayPort))
	}

	c.controller.Start(ctx)

	<-ctx.Done()
	c.controller.Stop()
	c.client.Close()
	c.logger.Info("console stopped")
	return nil
}

// Mode returns the current polling cadence ("normal" or "accelerated").
func (c *Console) Mode() string {
	return string(c.controller.Mode())
}

// CurrentState fetches one execution-state snapshot outside the polling
// loop. Useful for one-shot status queries.
func (c *Console) CurrentState(ctx context.Context) (Snapshot, error) {
	st, err := c.client.ProgramState(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	return snapshotFromState(st), nil
}

// Programs fetches the backend's program list, sorted by ID.
func (c *Console) Programs(ctx context.Context) ([]Program, error) {
	list, err := c.client.Programs(ctx)
	if err != nil {
		return nil, err
	}
	programs := make([]Program, len(list))
	for i, p := range list {
		programs[i] = programFromBackend(p)
	}
	return programs, nil
}

// UserSettings fetches the backend's user settings document.
func (c *Console) UserSettings(ctx context.Context) (Settings, error) {
	s, err := c.client.UserSettings(ctx)
	if err != nil {
		return Settings{}, err
	}
	return settingsFromBackend(s), nil
}

// StartProgram starts the given program. On success polling accelerates and
// an immediate refresh is requested, so the UI reflects the run promptly.
//
// Returns [ErrBusy] if another command is in flight.
func (c *Console) StartProgram(ctx context.Context, programID string) error {
	if programID == "" {
		return errors.New("program id must not be empty")
	}
	err := c.invoker.Invoke(ctx, ControlStart, func(ctx context.Context) error {
		return c.client.StartProgram(ctx, programID)
	})
	if err != nil {
		c.notifyCommandError("start program", err)
		return err
	}
	c.controller.Accelerate()
	c.controller.Refresh()
	c.notify(fmt.Sprintf("program %s started", programID), SeverityInfo)
	return nil
}

// StopProgram stops the running program.
//
// Returns [ErrBusy] if another command is in flight.
func (c *Console) StopProgram(ctx context.Context) error {
	err := c.invoker.Invoke(ctx, ControlStop, func(ctx context.Context) error {
		return c.client.StopProgram(ctx)
	})
	if err != nil {
		c.notifyCommandError("stop program", err)
		return err
	}
	c.controller.Refresh()
	c.notify("program stopped", SeverityInfo)
	return nil
}

// DeleteProgram deletes the given program.
//
// Returns [ErrBusy] if another command is in flight.
func (c *Console) DeleteProgram(ctx context.Context, id string) error {
	if id == "" {
		return errors.New("program id must not be empty")
	}
	err := c.invoker.Invoke(ctx, ControlDelete, func(ctx context.Context) error {
		return c.client.DeleteProgram(ctx, id)
	})
	if err != nil {
		c.notifyCommandError("delete program", err)
		return err
	}
	c.controller.Refresh()
	c.notify(fmt.Sprintf("program %s deleted", id), SeverityInfo)
	return nil
}

// SetAutomatic enables or disables automatic scheduling for a program.
//
// Returns [ErrBusy] if another command is in flight.
func (c *Console) SetAutomatic(ctx context.Context, programID string, enable bool) error {
	if programID == "" {
		return errors.New("program id must not be empty")
	}
	err := c.invoker.Invoke(ctx, ControlAutomatic, func(ctx context.Context) error {
		return c.client.ToggleAutomatic(ctx, programID, enable)
	})
	if err != nil {
		c.notifyCommandError("toggle automation", err)
		return err
	}
	c.controller.Refresh()
	state := "disabled"
	if enable {
		state = "enabled"
	}
	c.notify(fmt.Sprintf("automation %s for program %s", state, programID), SeverityInfo)
	return nil
}

// notify forwards a message to the optional notifier.
func (c *Console) notify(message string, severity Severity) {
	if c.notifier == nil {
		return
	}
	c.notifier.Notify(message, severity)
}

// notifyCommandError surfaces a failed command. A backend rejection carries
// the server's own reason; everything else gets a generic message.
func (c *Console) notifyCommandError(what string, err error) {
	if errors.Is(err, ErrBusy) {
		return // the control was already disabled; nothing to surface
	}
	if msg := RejectionMessage(err); msg != "" {
		c.notify(fmt.Sprintf("could not %s: %s", what, msg), SeverityError)
		return
	}
	c.notify(fmt.Sprintf("could not %s: backend unreachable", what), SeverityError)
}

// renderControls adapts the Renderer to the invoker's control sink.
type renderControls struct {
	renderer Renderer
}

func (rc renderControls) SetControlEnabled(control string, enabled bool) {
	rc.renderer.SetControlEnabled(control, enabled)
}

// consoleSink receives everything the polling controller learns and fans it
// out to the store, the renderer, the callbacks, and the history log.
type consoleSink struct {
	c *Console
}

func (s *consoleSink) HandleSnapshot(st backend.State) {
	c := s.c
	snapshot := snapshotFromState(st)

	// store update first, so relay clients see data before callbacks fire
	c.store.Update(storeSnapshot(snapshot, c.controller.Mode()))

	c.renderer.Render(snapshot)

	for _, cb := range c.callbacks {
		invokeCallbackSafe(cb, snapshot, c.logger)
	}
}

func (s *consoleSink) HandleRunningDetail(programID string, zone backend.Zone) {
	s.c.renderer.ShowRunningDetail(programID, zoneFromBackend(zone))
}

func (s *consoleSink) HandleIdle() {
	s.c.renderer.ClearRunningIndicators()
}

func (s *consoleSink) HandleRunStarted(programID string) {
	c := s.c
	c.logger.Info("program run started", "program_id", programID)
	c.notify(fmt.Sprintf("program %s is running", programID), SeverityInfo)
	s.record(func(ctx context.Context) (int64, error) {
		return c.history.RecordStarted(ctx, programID, time.Now())
	})
}

func (s *consoleSink) HandleRunEnded(programID string) {
	c := s.c
	c.logger.Info("program run ended", "program_id", programID)
	c.notify(fmt.Sprintf("program %s finished", programID), SeverityInfo)
	s.record(func(ctx context.Context) (int64, error) {
		return c.history.RecordEnded(ctx, programID, time.Now())
	})
}

// record writes a run event when history is enabled. Failures are logged,
// never propagated: the display path must not depend on the disk.
func (s *consoleSink) record(write func(context.Context) (int64, error)) {
	c := s.c
	if c.history == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()
	if _, err := write(ctx); err != nil {
		c.logger.Error("failed to record run event", "error", err)
	}
}

// storeSnapshot converts the public snapshot to its storage representation.
func storeSnapshot(s Snapshot, mode poller.Mode) store.Snapshot {
	out := store.Snapshot{
		ProgramRunning:   s.ProgramRunning,
		CurrentProgramID: s.CurrentProgramID,
		PollingMode:      string(mode),
		CheckedAt:        s.CheckedAt,
	}
	if s.ActiveZone != nil {
		out.ActiveZone = &store.ZoneStatus{
			ID:               s.ActiveZone.ID,
			Name:             s.ActiveZone.Name,
			RemainingSeconds: s.ActiveZone.RemainingSeconds,
		}
	}
	return out
}

// invokeCallbackSafe calls a snapshot callback with panic recovery.
// Panics are logged but do not propagate into the polling loop.
func invokeCallbackSafe(cb func(Snapshot), s Snapshot, logger *slog.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("snapshot callback panicked", "panic", r)
		}
	}()
	cb(s)
}
