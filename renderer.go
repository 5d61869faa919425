package irriboard

import "log/slog"

// Control names passed to [Renderer.SetControlEnabled] while the matching
// command is in flight.
const (
	ControlStart     = "start_program"
	ControlStop      = "stop_program"
	ControlDelete    = "delete_program"
	ControlAutomatic = "toggle_program_automatic"
)

// Severity classifies a [Notifier] message.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Renderer is the display surface the console drives.
//
// The console calls Render for every snapshot, then exactly one of
// ShowRunningDetail or ClearRunningIndicators depending on whether a zone is
// active. SetControlEnabled brackets every command invocation. Calls are
// made from the console's polling goroutine and must not block.
//
// Embed [NopRenderer] to implement only the methods you need.
type Renderer interface {
	// Render displays a fresh snapshot.
	Render(s Snapshot)

	// ShowRunningDetail displays progress for the active zone of the
	// running program.
	ShowRunningDetail(programID string, zone ZoneStatus)

	// ClearRunningIndicators removes any running-program affordances.
	ClearRunningIndicators()

	// SetControlEnabled enables or disables the control that triggers the
	// named command (one of the Control* constants).
	SetControlEnabled(control string, enabled bool)
}

// Notifier is an optional capability for surfacing user-facing messages
// (command results, run transitions). A nil Notifier is valid and silences
// all notifications.
type Notifier interface {
	Notify(message string, severity Severity)
}

// NopRenderer implements [Renderer] with no-ops. Embed it to implement the
// interface partially.
type NopRenderer struct{}

func (NopRenderer) Render(Snapshot)                      {}
func (NopRenderer) ShowRunningDetail(string, ZoneStatus) {}
func (NopRenderer) ClearRunningIndicators()              {}
func (NopRenderer) SetControlEnabled(string, bool)       {}

// LogRenderer renders snapshots as structured log lines. It is the surface
// used by the CLI's watch and serve commands.
type LogRenderer struct {
	Logger *slog.Logger
}

// NewLogRenderer creates a [LogRenderer] writing to logger.
func NewLogRenderer(logger *slog.Logger) *LogRenderer {
	return &LogRenderer{Logger: logger}
}

func (r *LogRenderer) Render(s Snapshot) {
	r.Logger.Info("state",
		"program_running", s.ProgramRunning,
		"program_id", s.CurrentProgramID,
	)
}

func (r *LogRenderer) ShowRunningDetail(programID string, zone ZoneStatus) {
	r.Logger.Info("watering",
		"program_id", programID,
		"zone_id", zone.ID,
		"zone", zone.Name,
		"remaining_s", zone.RemainingSeconds,
	)
}

func (r *LogRenderer) ClearRunningIndicators() {
	r.Logger.Debug("idle")
}

func (r *LogRenderer) SetControlEnabled(control string, enabled bool) {
	r.Logger.Debug("control", "name", control, "enabled", enabled)
}

// LogNotifier surfaces notifications as log lines.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n *LogNotifier) Notify(message string, severity Severity) {
	switch severity {
	case SeverityError:
		n.Logger.Error(message)
	case SeverityWarning:
		n.Logger.Warn(message)
	default:
		n.Logger.Info(message)
	}
}
