// Standalone mock irrigation backend for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/irriboard watch -c example/config.yaml
//	go run ./cmd/irriboard run 1 -c example/config.yaml
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

func main() {
	fmt.Println("Mock irrigation backend starting on :9999")
	fmt.Println("Programs: 1 (Morning cycle), 2 (Vegetables)")
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	b := newBackend()
	if err := http.ListenAndServe(":9999", b.handler()); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

// backend mirrors example/mock_server.go as a standalone binary.
type backend struct {
	mu sync.Mutex

	programs map[string]program

	running   bool
	programID string
	stepIdx   int
	stepEnds  time.Time
}

type program struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Automatic bool   `json:"automatic"`
	Steps     []step `json:"steps"`
}

type step struct {
	ZoneID   int `json:"zone_id"`
	Duration int `json:"duration"`
}

var zoneNames = map[int]string{
	1: "Front lawn",
	2: "Back lawn",
	3: "Vegetable patch",
}

func newBackend() *backend {
	return &backend{
		programs: map[string]program{
			"1": {ID: "1", Name: "Morning cycle", Automatic: true, Steps: []step{
				{ZoneID: 1, Duration: 1},
				{ZoneID: 2, Duration: 1},
			}},
			"2": {ID: "2", Name: "Vegetables", Automatic: false, Steps: []step{
				{ZoneID: 3, Duration: 2},
			}},
		},
	}
}

func (b *backend) handler() http.Handler {
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

func (b *backend) advance() {
	for b.running && time.Now().After(b.stepEnds) {
		prog := b.programs[b.programID]
		b.stepIdx++
		if b.stepIdx >= len(prog.Steps) {
			slog.Info("run finished", "program_id", b.programID)
			b.running = false
			b.programID = ""
			b.stepIdx = 0
			return
		}
		b.stepEnds = b.stepEnds.Add(time.Duration(prog.Steps[b.stepIdx].Duration) * time.Minute)
	}
}

func (b *backend) handleState(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	b.advance()

	resp := map[string]any{
		"program_running":    b.running,
		"current_program_id": b.programID,
		"active_zone":        nil,
	}
	if b.running {
		st := b.programs[b.programID].Steps[b.stepIdx]
		resp["active_zone"] = map[string]any{
			"id":             st.ZoneID,
			"name":           zoneNames[st.ZoneID],
			"remaining_time": int(time.Until(b.stepEnds).Seconds()),
		}
	}
	b.mu.Unlock()

	writeJSON(w, resp)
}

func (b *backend) handleStart(w http.ResponseWriter, r *http.Request) {
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
	slog.Info("run started", "program_id", prog.ID, "name", prog.Name)

	writeJSON(w, map[string]any{"success": true})
}

func (b *backend) handleStop(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.running {
		slog.Info("run stopped", "program_id", b.programID)
	}
	b.running = false
	b.programID = ""
	b.stepIdx = 0

	writeJSON(w, map[string]any{"success": true})
}

func (b *backend) handleDelete(w http.ResponseWriter, r *http.Request) {
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

func (b *backend) handleToggle(w http.ResponseWriter, r *http.Request) {
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

func (b *backend) handlePrograms(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeJSON(w, b.programs)
}

func (b *backend) handleSettings(w http.ResponseWriter, r *http.Request) {
	zones := make([]map[string]any, 0, len(zoneNames))
	for id := 1; id <= len(zoneNames); id++ {
		zones = append(zones, map[string]any{
			"id":     id,
			"name":   zoneNames[id],
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
