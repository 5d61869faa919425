package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// mockBackend simulates an irrigation controller. It serves the same
// endpoints as the real backend and runs fake programs: starting a program
// walks its steps, counting each zone down in wall-clock seconds.
type mockBackend struct {
	mu sync.Mutex

	programs map[string]mockProgram

	running   bool
	programID string
	stepIdx   int
	stepEnds  time.Time
}

type mockProgram struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Automatic bool       `json:"automatic"`
	Steps     []mockStep `json:"steps"`
}

type mockStep struct {
	ZoneID   int `json:"zone_id"`
	Duration int `json:"duration"`
}

var mockZoneNames = map[int]string{
	1: "Front lawn",
	2: "Back lawn",
	3: "Vegetable patch",
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		programs: map[string]mockProgram{
			"1": {ID: "1", Name: "Morning cycle", Automatic: true, Steps: []mockStep{
				{ZoneID: 1, Duration: 1},
				{ZoneID: 2, Duration: 1},
			}},
			"2": {ID: "2", Name: "Vegetables", Automatic: false, Steps: []mockStep{
				{ZoneID: 3, Duration: 2},
			}},
		},
	}
}

// StartMockBackend runs the mock irrigation controller on addr.
// Call this in a goroutine before creating the console.
func StartMockBackend(addr string) {
	b := newMockBackend()
	if err := http.ListenAndServe(addr, b.handler()); err != nil {
		slog.Error("mock backend error", "error", err)
	}
}

func (b *mockBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/get_program_state", b.handleState)
	mux.HandleFunc("/start_program", b.handleStart)
	mux.HandleFunc("/stop_program", b.handleStop)
	mux.HandleFunc("/delete_program", b.handleDelete)
	mux.HandleFunc("/toggle_program_automatic", b.handleToggle)
	mux.HandleFunc("/data/program.json", b.handlePrograms)
	mux.HandleFunc("/data/user_settings.json", b.handleSettings)
	return mux
}

// advance moves the fake run forward: expired steps roll over to the next
// step, and the run ends after the last one. Callers must hold mu.
func (b *mockBackend) advance() {
	for b.running && time.Now().After(b.stepEnds) {
		prog := b.programs[b.programID]
		b.stepIdx++
		if b.stepIdx >= len(prog.Steps) {
			slog.Info("mock run finished", "program_id", b.programID)
			b.running = false
			b.programID = ""
			b.stepIdx = 0
			return
		}
		b.stepEnds = b.stepEnds.Add(time.Duration(prog.Steps[b.stepIdx].Duration) * time.Minute)
	}
}

func (b *mockBackend) handleState(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.advance()

	resp := map[string]any{
		"program_running":    b.running,
		"current_program_id": b.programID,
		"active_zone":        nil,
	}
	if b.running {
		step := b.programs[b.programID].Steps[b.stepIdx]
		resp["active_zone"] = map[string]any{
			"id":             step.ZoneID,
			"name":           mockZoneNames[step.ZoneID],
			"remaining_time": int(time.Until(b.stepEnds).Seconds()),
		}
	}
	b.mu.Unlock()

	writeJSON(w, resp)
}

func (b *mockBackend) handleStart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProgramID string `json:"program_id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.advance()

	if b.running {
		writeJSON(w, map[string]any{"success": false, "error": "another program is running"})
		return
	}
	prog, ok := b.programs[req.ProgramID]
	if !ok || len(prog.Steps) == 0 {
		writeJSON(w, map[string]any{"success": false, "error": "unknown program"})
		return
	}

	b.running = true
	b.programID = prog.ID
	b.stepIdx = 0
	b.stepEnds = time.Now().Add(time.Duration(prog.Steps[0].Duration) * time.Minute)
	slog.Info("mock run started", "program_id", prog.ID, "name", prog.Name)

	writeJSON(w, map[string]any{"success": true})
}

func (b *mockBackend) handleStop(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		slog.Info("mock run stopped", "program_id", b.programID)
	}
	b.running = false
	b.programID = ""
	b.stepIdx = 0

	writeJSON(w, map[string]any{"success": true})
}

func (b *mockBackend) handleDelete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.programs[req.ID]; !ok {
		writeJSON(w, map[string]any{"success": false, "error": "unknown program"})
		return
	}
	if b.running && b.programID == req.ID {
		writeJSON(w, map[string]any{"success": false, "error": "program is running"})
		return
	}
	delete(b.programs, req.ID)
	writeJSON(w, map[string]any{"success": true})
}

func (b *mockBackend) handleToggle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProgramID string `json:"program_id"`
		Enable    bool   `json:"enable"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	b.mu.Lock()
	defer b.mu.Unlock()

	prog, ok := b.programs[req.ProgramID]
	if !ok {
		writeJSON(w, map[string]any{"success": false, "error": "unknown program"})
		return
	}
	prog.Automatic = req.Enable
	b.programs[req.ProgramID] = prog
	writeJSON(w, map[string]any{"success": true})
}

func (b *mockBackend) handlePrograms(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, b.programs)
}

func (b *mockBackend) handleSettings(w http.ResponseWriter, r *http.Request) {
	zones := make([]map[string]any, 0, len(mockZoneNames))
	for id := 1; id <= len(mockZoneNames); id++ {
		zones = append(zones, map[string]any{
			"id":     id,
			"name":   mockZoneNames[id],
			"status": "active",
		})
	}
	writeJSON(w, map[string]any{
		"zones":                      zones,
		"automatic_programs_enabled": true,
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}
