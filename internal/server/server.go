package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/filippods/irriboard/internal/store"
)

const (
	// sseWriteTimeout is the maximum time allowed for a single SSE write.
	// This prevents goroutine leaks when clients are slow or disconnected.
	sseWriteTimeout = 5 * time.Second

	// websocket timing and size limits
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
	wsMaxMsgSize = 1 << 12 // 4 KB
)

// wsEnvelope wraps every websocket message sent to a client.
type wsEnvelope struct {
	Type string         `json:"type"`
	Data store.Snapshot `json:"data"`
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server is the headless relay surface for irriboard.
//
// Server re-exposes the latest polled execution state so other local
// consumers (scripts, status bars, home-automation glue) can read it without
// hitting the irrigation controller themselves:
//
//   - GET /api/state: latest snapshot as JSON (404 until the first poll)
//   - GET /api/sse: Server-Sent Events stream of snapshot updates
//   - GET /api/ws: websocket stream of snapshot updates
//
// The server is designed for graceful shutdown via context cancellation.
type Server struct {
	store      store.Store
	port       int
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a relay [Server] over the given store.
//
// The server is not started until [Server.Start] is called.
func NewServer(st store.Store, port int, logger *slog.Logger) *Server {
	return &Server{
		store:  st,
		port:   port,
		logger: logger,
	}
}

// Handler returns the relay's route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/sse", s.handleSSE)
	mux.HandleFunc("/api/ws", s.handleWS)
	return mux
}

// Start begins serving HTTP requests in a background goroutine.
//
// Start is non-blocking and returns immediately after confirming the server
// is listening. The server runs until the context is cancelled, then shuts
// down gracefully with a 5-second timeout.
//
// Returns an error if the server fails to bind to the configured port.
func (s *Server) Start(ctx context.Context) error {
	// create listener first to verify port availability synchronously
	addr := fmt.Sprintf(":%d", s.port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to port %d: %w", s.port, err)
	}

	s.httpServer = &http.Server{
		Handler: s.Handler(),
		// BaseContext derives all request contexts from the server context,
		// so cancellation also ends long-running SSE/websocket handlers.
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("relay server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("relay server shutdown error", "error", err)
		}
	}()

	return nil
}

// handleState returns the latest snapshot as JSON.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot, ok := s.store.Latest()
	if !ok {
		http.Error(w, "No state polled yet", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")

	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		s.logger.Error("failed to encode state response", "error", err)
	}
}

// handleSSE streams snapshot updates via Server-Sent Events.
//
// The handler uses write deadlines to prevent goroutine leaks when clients
// are slow or disconnected: a blocked write would otherwise keep the handler
// from noticing context cancellation or channel closure.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	if _, ok := w.(http.Flusher); !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// ResponseController provides deadline-aware write and flush operations
	rc := http.NewResponseController(w)
	deadlinesSupported := true

	writeAndFlush := func(data []byte) error {
		if deadlinesSupported {
			if err := rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout)); err != nil {
				// deadline not supported by the underlying connection
				deadlinesSupported = false
			}
		}
		if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
			return err
		}
		return rc.Flush()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	updates := s.store.Subscribe()
	defer s.store.Unsubscribe(updates)

	// send the current snapshot first so clients render without waiting
	// for the next poll
	if snapshot, ok := s.store.Latest(); ok {
		if data, err := json.Marshal(snapshot); err == nil {
			if err := writeAndFlush(data); err != nil {
				return
			}
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(snapshot)
			if err != nil {
				s.logger.Error("failed to marshal snapshot for SSE", "error", err)
				continue
			}
			if err := writeAndFlush(data); err != nil {
				return
			}
		}
	}
}

// handleWS streams snapshot updates over a websocket.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() { _ = conn.Close() }()

	clientID := uuid.NewString()
	s.logger.Debug("websocket client connected", "client_id", clientID)

	conn.SetReadLimit(wsMaxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	// reader goroutine handles control frames and detects disconnects
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	updates := s.store.Subscribe()
	defer s.store.Unsubscribe(updates)

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	writeSnapshot := func(snapshot store.Snapshot) error {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		return conn.WriteJSON(wsEnvelope{Type: "state", Data: snapshot})
	}

	// send the current snapshot immediately
	if snapshot, ok := s.store.Latest(); ok {
		if err := writeSnapshot(snapshot); err != nil {
			s.logger.Debug("websocket initial write failed", "client_id", clientID, "error", err)
			return
		}
	}

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.logger.Debug("websocket ping failed", "client_id", clientID, "error", err)
				return
			}
		case snapshot, ok := <-updates:
			if !ok {
				return
			}
			if err := writeSnapshot(snapshot); err != nil {
				s.logger.Debug("websocket write failed", "client_id", clientID, "error", err)
				return
			}
		}
	}
}
