package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

const maxResponseBodySize = 1 << 20 // 1MB

// connection pooling limits to prevent resource exhaustion; the client talks
// to a single host, so the per-host limits are the effective ones
const (
	defaultMaxIdleConns        = 10
	defaultMaxIdleConnsPerHost = 4
	defaultMaxConnsPerHost     = 4
	defaultIdleConnTimeout     = 60 * time.Second
)

// Endpoint paths exposed by the irrigation controller.
const (
	pathProgramState    = "/get_program_state"
	pathStartProgram    = "/start_program"
	pathStopProgram     = "/stop_program"
	pathDeleteProgram   = "/delete_program"
	pathToggleAutomatic = "/toggle_program_automatic"
	pathPrograms        = "/data/program.json"
	pathUserSettings    = "/data/user_settings.json"
)

// Client is an HTTP client for the irrigation controller's REST API.
//
// Client applies a per-request timeout via context rather than a global
// client timeout, and limits response bodies to 1MB. Every method returns
// an error from the package taxonomy: [TransportError] for network/HTTP
// failures, [MalformedError] for undecodable payloads, [RejectionError]
// when the backend answers a command with success=false.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a [Client] for the controller at baseURL.
//
// The timeout applies per request. The underlying transport pools
// connections to the single controller host with keep-alives enabled.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		httpClient: &http.Client{
			// no default timeout - per-request timeouts via context
			Transport: &http.Transport{
				MaxIdleConns:        defaultMaxIdleConns,
				MaxIdleConnsPerHost: defaultMaxIdleConnsPerHost,
				MaxConnsPerHost:     defaultMaxConnsPerHost,
				IdleConnTimeout:     defaultIdleConnTimeout,
				DisableKeepAlives:   false,
			},
		},
	}
}

// BaseURL returns the controller base URL the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// ProgramState fetches the current execution state.
//
// A payload that is not a JSON object (including a bare null) yields a
// [MalformedError]; the caller is expected to keep its previous state.
func (c *Client) ProgramState(ctx context.Context) (State, error) {
	const op = "get_program_state"

	body, err := c.get(ctx, op, pathProgramState)
	if err != nil {
		return State{}, err
	}

	// decode through a pointer so a literal null is distinguishable from
	// an empty object
	var st *State
	if err := json.Unmarshal(body, &st); err != nil {
		return State{}, &MalformedError{Op: op, Err: err}
	}
	if st == nil {
		return State{}, &MalformedError{Op: op, Err: fmt.Errorf("payload is not an object")}
	}
	return *st, nil
}

// StartProgram asks the backend to start the given program.
func (c *Client) StartProgram(ctx context.Context, programID string) error {
	return c.command(ctx, "start_program", pathStartProgram, map[string]string{
		"program_id": programID,
	})
}

// StopProgram asks the backend to stop the running program.
func (c *Client) StopProgram(ctx context.Context) error {
	return c.command(ctx, "stop_program", pathStopProgram, struct{}{})
}

// DeleteProgram asks the backend to delete the given program.
func (c *Client) DeleteProgram(ctx context.Context, id string) error {
	return c.command(ctx, "delete_program", pathDeleteProgram, map[string]string{
		"id": id,
	})
}

// ToggleAutomatic enables or disables automatic scheduling for a program.
func (c *Client) ToggleAutomatic(ctx context.Context, programID string, enable bool) error {
	return c.command(ctx, "toggle_program_automatic", pathToggleAutomatic, map[string]any{
		"program_id": programID,
		"enable":     enable,
	})
}

// Programs fetches the bulk program list, sorted by ID.
//
// The backend serves programs as an object keyed by ID; entries whose ID
// field is empty inherit the map key.
func (c *Client) Programs(ctx context.Context) ([]Program, error) {
	const op = "load_programs"

	body, err := c.get(ctx, op, pathPrograms)
	if err != nil {
		return nil, err
	}

	var byID map[string]Program
	if err := json.Unmarshal(body, &byID); err != nil {
		return nil, &MalformedError{Op: op, Err: err}
	}

	programs := make([]Program, 0, len(byID))
	for id, p := range byID {
		if p.ID == "" {
			p.ID = id
		}
		programs = append(programs, p)
	}
	sort.Slice(programs, func(i, j int) bool { return programs[i].ID < programs[j].ID })
	return programs, nil
}

// UserSettings fetches the bulk user settings document.
func (c *Client) UserSettings(ctx context.Context) (Settings, error) {
	const op = "load_user_settings"

	body, err := c.get(ctx, op, pathUserSettings)
	if err != nil {
		return Settings{}, err
	}

	var s Settings
	if err := json.Unmarshal(body, &s); err != nil {
		return Settings{}, &MalformedError{Op: op, Err: err}
	}
	return s, nil
}

// Close closes all idle connections in the client's connection pool.
//
// Safe to call multiple times. After Close the client remains usable; new
// connections are established as needed.
func (c *Client) Close() {
	if c == nil || c.httpClient == nil {
		return
	}
	if transport, ok := c.httpClient.Transport.(*http.Transport); ok {
		transport.CloseIdleConnections()
	}
}

// get performs a GET and returns the raw body, classifying failures.
func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	return c.do(ctx, op, http.MethodGet, path, nil)
}

// command performs a POST with a JSON body and decodes the standard
// {success, error} reply.
func (c *Client) command(ctx context.Context, op, path string, payload any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return &TransportError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
	}

	body, err := c.do(ctx, op, http.MethodPost, path, encoded)
	if err != nil {
		return err
	}

	var reply *commandResponse
	if err := json.Unmarshal(body, &reply); err != nil {
		return &MalformedError{Op: op, Err: err}
	}
	if reply == nil {
		return &MalformedError{Op: op, Err: fmt.Errorf("payload is not an object")}
	}
	if !reply.Success {
		return &RejectionError{Op: op, Message: reply.Error}
	}
	return nil
}

// do issues a single request and reads the body with the size cap applied.
// Network failures, non-2xx statuses, and body read failures are all
// transport errors.
func (c *Client) do(ctx context.Context, op, method, path string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read response body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("unexpected status %d", resp.StatusCode)}
	}

	return body, nil
}
