package backend

// State is the decoded shape of GET /get_program_state.
//
// A State is immutable once decoded; each poll supersedes the previous one.
// CurrentProgramID is empty when no program is running (the backend sends
// null, which decodes to the zero value).
type State struct {
	// ProgramRunning reports whether a program is currently executing.
	ProgramRunning bool `json:"program_running"`

	// CurrentProgramID identifies the running program, empty when idle.
	CurrentProgramID string `json:"current_program_id"`

	// ActiveZone describes the zone currently being watered, nil when none.
	ActiveZone *Zone `json:"active_zone"`
}

// Zone describes the zone a running program is currently watering.
type Zone struct {
	// ID is the zone's numeric identifier.
	ID int `json:"id"`

	// Name is the zone's display name.
	Name string `json:"name"`

	// RemainingSeconds is the time left on this zone's step.
	RemainingSeconds int `json:"remaining_time"`
}

// Program is one entry of the bulk program list (GET /data/program.json).
type Program struct {
	// ID is the program identifier used by the control endpoints.
	ID string `json:"id"`

	// Name is the program's display name.
	Name string `json:"name"`

	// Automatic reports whether automatic scheduling is enabled.
	Automatic bool `json:"automatic"`

	// Steps are the zone/duration pairs executed in order.
	Steps []ProgramStep `json:"steps"`
}

// ProgramStep is a single zone activation within a program.
type ProgramStep struct {
	ZoneID          int `json:"zone_id"`
	DurationMinutes int `json:"duration"`
}

// Settings is the decoded shape of GET /data/user_settings.json.
type Settings struct {
	// Zones lists the configured irrigation zones.
	Zones []ZoneConfig `json:"zones"`

	// AutomaticProgramsEnabled is the global automation switch.
	AutomaticProgramsEnabled bool `json:"automatic_programs_enabled"`
}

// ZoneConfig is one configured zone from the user settings.
type ZoneConfig struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// commandResponse is the wire shape of every control endpoint reply.
type commandResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
