package irriboard

import (
	"time"

	"github.com/filippods/irriboard/internal/backend"
)

// Snapshot is one fetched representation of the backend's execution state.
//
// Snapshot is immutable after creation and superseded by the next poll.
type Snapshot struct {
	// ProgramRunning reports whether a program is currently executing.
	ProgramRunning bool

	// CurrentProgramID identifies the running program, empty when idle.
	CurrentProgramID string

	// ActiveZone describes the zone currently being watered, nil when none.
	ActiveZone *ZoneStatus

	// CheckedAt is the timestamp when the poll completed.
	CheckedAt time.Time
}

// ZoneStatus describes the zone a running program is currently watering.
type ZoneStatus struct {
	ID               int
	Name             string
	RemainingSeconds int
}

// Program is one entry of the backend's program list.
type Program struct {
	ID        string
	Name      string
	Automatic bool
	Steps     []ProgramStep
}

// ProgramStep is a single zone activation within a program.
type ProgramStep struct {
	ZoneID          int
	DurationMinutes int
}

// Settings is the backend's user settings document.
type Settings struct {
	Zones                    []ZoneConfig
	AutomaticProgramsEnabled bool
}

// ZoneConfig is one configured irrigation zone.
type ZoneConfig struct {
	ID     int
	Name   string
	Status string
}

// snapshotFromState converts the wire state to the public snapshot type.
func snapshotFromState(st backend.State) Snapshot {
	s := Snapshot{
		ProgramRunning:   st.ProgramRunning,
		CurrentProgramID: st.CurrentProgramID,
		CheckedAt:        time.Now(),
	}
	if st.ActiveZone != nil {
		z := zoneFromBackend(*st.ActiveZone)
		s.ActiveZone = &z
	}
	return s
}

func zoneFromBackend(z backend.Zone) ZoneStatus {
	return ZoneStatus{
		ID:               z.ID,
		Name:             z.Name,
		RemainingSeconds: z.RemainingSeconds,
	}
}

func programFromBackend(p backend.Program) Program {
	steps := make([]ProgramStep, len(p.Steps))
	for i, st := range p.Steps {
		steps[i] = ProgramStep{ZoneID: st.ZoneID, DurationMinutes: st.DurationMinutes}
	}
	return Program{
		ID:        p.ID,
		Name:      p.Name,
		Automatic: p.Automatic,
		Steps:     steps,
	}
}

func settingsFromBackend(s backend.Settings) Settings {
	zones := make([]ZoneConfig, len(s.Zones))
	for i, z := range s.Zones {
		zones[i] = ZoneConfig{ID: z.ID, Name: z.Name, Status: z.Status}
	}
	return Settings{
		Zones:                    zones,
		AutomaticProgramsEnabled: s.AutomaticProgramsEnabled,
	}
}
