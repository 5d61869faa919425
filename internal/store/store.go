package store

import "time"

// Snapshot is the storage representation of the backend's execution state.
//
// Snapshot is optimized for JSON serialization (used by the relay's REST,
// SSE, and websocket surfaces) and is decoupled from the backend wire type
// to allow independent evolution.
type Snapshot struct {
	// ProgramRunning reports whether a program is executing.
	ProgramRunning bool `json:"program_running"`

	// CurrentProgramID identifies the running program, empty when idle.
	CurrentProgramID string `json:"current_program_id,omitempty"`

	// ActiveZone describes the zone currently being watered, nil when none.
	ActiveZone *ZoneStatus `json:"active_zone,omitempty"`

	// PollingMode is the controller cadence when the snapshot was taken.
	PollingMode string `json:"polling_mode"`

	// CheckedAt is the timestamp of the poll that produced the snapshot.
	CheckedAt time.Time `json:"checked_at"`
}

// ZoneStatus is the storage representation of an active zone.
type ZoneStatus struct {
	ID               int    `json:"id"`
	Name             string `json:"name"`
	RemainingSeconds int    `json:"remaining_seconds"`
}

// Store defines storage and subscription for execution-state snapshots.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism pushes every update to connected relay clients (SSE, websocket).
type Store interface {
	// Update stores the newest snapshot and notifies all subscribers.
	// Each update supersedes the previous one.
	Update(s Snapshot)

	// Latest returns the most recent snapshot, and false if no poll has
	// completed yet.
	Latest() (Snapshot, bool)

	// Subscribe returns a channel that receives snapshot updates.
	// The channel is buffered; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan Snapshot

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan Snapshot)
}
