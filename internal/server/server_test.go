package server

import (
	"bufio"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/filippods/irriboard/internal/store"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRelay(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	relay := NewServer(st, 0, testLogger())
	ts := httptest.NewServer(relay.Handler())
	t.Cleanup(ts.Close)
	return ts, st
}

func runningSnapshot(programID string) store.Snapshot {
	return store.Snapshot{
		ProgramRunning:   true,
		CurrentProgramID: programID,
		ActiveZone:       &store.ZoneStatus{ID: 1, Name: "Lawn", RemainingSeconds: 60},
		PollingMode:      "accelerated",
		CheckedAt:        time.Now(),
	}
}

// TestServer_State_NotFoundBeforeFirstPoll verifies /api/state before any
// snapshot is stored.
func TestServer_State_NotFoundBeforeFirstPoll(t *testing.T) {
	ts, _ := newTestRelay(t)

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusNotFound)
	}
}

// TestServer_State_ReturnsLatest verifies /api/state serves the stored
// snapshot as JSON.
func TestServer_State_ReturnsLatest(t *testing.T) {
	ts, st := newTestRelay(t)
	st.Update(runningSnapshot("3"))

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("GET /api/state error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var got store.Snapshot
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !got.ProgramRunning || got.CurrentProgramID != "3" {
		t.Errorf("snapshot = %+v, want running program 3", got)
	}
	if got.ActiveZone == nil || got.ActiveZone.Name != "Lawn" {
		t.Errorf("ActiveZone = %+v, want Lawn", got.ActiveZone)
	}
}

// TestServer_State_MethodNotAllowed verifies that /api/state rejects writes.
func TestServer_State_MethodNotAllowed(t *testing.T) {
	ts, _ := newTestRelay(t)

	resp, err := http.Post(ts.URL+"/api/state", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("POST /api/state error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusMethodNotAllowed)
	}
}

// TestServer_SSE_StreamsUpdates verifies that an SSE client receives the
// current snapshot immediately and subsequent updates as they happen.
func TestServer_SSE_StreamsUpdates(t *testing.T) {
	ts, st := newTestRelay(t)
	st.Update(runningSnapshot("1"))

	resp, err := http.Get(ts.URL + "/api/sse")
	if err != nil {
		t.Fatalf("GET /api/sse error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q, want text/event-stream", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readEvent := func() store.Snapshot {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read SSE stream: %v", err)
			}
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			var s store.Snapshot
			if err := json.Unmarshal([]byte(strings.TrimPrefix(strings.TrimSpace(line), "data: ")), &s); err != nil {
				t.Fatalf("decode SSE event: %v", err)
			}
			return s
		}
	}

	if got := readEvent(); got.CurrentProgramID != "1" {
		t.Errorf("initial event program = %q, want %q", got.CurrentProgramID, "1")
	}

	st.Update(runningSnapshot("2"))
	if got := readEvent(); got.CurrentProgramID != "2" {
		t.Errorf("update event program = %q, want %q", got.CurrentProgramID, "2")
	}
}

// TestServer_WS_StreamsUpdates verifies the websocket surface: initial state
// envelope, then pushed updates.
func TestServer_WS_StreamsUpdates(t *testing.T) {
	ts, st := newTestRelay(t)
	st.Update(runningSnapshot("5"))

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	defer func() { _ = conn.Close() }()

	readEnvelope := func() wsEnvelope {
		t.Helper()
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var env wsEnvelope
		if err := conn.ReadJSON(&env); err != nil {
			t.Fatalf("read websocket message: %v", err)
		}
		return env
	}

	env := readEnvelope()
	if env.Type != "state" || env.Data.CurrentProgramID != "5" {
		t.Errorf("initial envelope = %+v, want state for program 5", env)
	}

	st.Update(runningSnapshot("6"))
	env = readEnvelope()
	if env.Data.CurrentProgramID != "6" {
		t.Errorf("update envelope program = %q, want %q", env.Data.CurrentProgramID, "6")
	}
}
