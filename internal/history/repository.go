package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Kind classifies a run event.
type Kind string

const (
	// KindStarted marks a rising edge of the running flag.
	KindStarted Kind = "started"

	// KindEnded marks a falling edge of the running flag.
	KindEnded Kind = "ended"
)

// Event is one recorded run transition.
type Event struct {
	ID        int64
	ProgramID string
	Kind      Kind
	At        time.Time
}

const (
	createRunEventsSQL = `CREATE TABLE IF NOT EXISTS run_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		program_id TEXT NOT NULL,
		kind TEXT NOT NULL,
		at TIMESTAMP NOT NULL
	)`
	insertRunEventSQL = `INSERT INTO run_events (program_id, kind, at) VALUES (?, ?, ?)`
	selectRecentSQL   = `SELECT id, program_id, kind, at FROM run_events ORDER BY at DESC, id DESC LIMIT ?`
)

// Repository stores run events in a SQL database.
type Repository struct {
	db *sql.DB
}

// NewRepository wraps an existing database handle. The caller owns the
// handle's lifecycle; [Repository.Init] must still be called once.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Open opens (or creates) the sqlite database at path and initializes the
// schema. The returned repository owns the handle; call [Repository.Close]
// when done.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history database %q: %w", path, err)
	}

	r := NewRepository(db)
	if err := r.Init(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return r, nil
}

// Init creates the run_events table if it does not exist.
func (r *Repository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRunEventsSQL); err != nil {
		return fmt.Errorf("create run_events table: %w", err)
	}
	return nil
}

// RecordStarted inserts a started event and returns its ID.
func (r *Repository) RecordStarted(ctx context.Context, programID string, at time.Time) (int64, error) {
	return r.record(ctx, programID, KindStarted, at)
}

// RecordEnded inserts an ended event and returns its ID.
func (r *Repository) RecordEnded(ctx context.Context, programID string, at time.Time) (int64, error) {
	return r.record(ctx, programID, KindEnded, at)
}

func (r *Repository) record(ctx context.Context, programID string, kind Kind, at time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, insertRunEventSQL, programID, string(kind), at.UTC())
	if err != nil {
		return 0, fmt.Errorf("insert run event for program %q: %w", programID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id for program %q: %w", programID, err)
	}
	return id, nil
}

// Recent returns the most recent events, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx, selectRecentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("select recent run events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var e Event
		var kind string
		if err := rows.Scan(&e.ID, &e.ProgramID, &kind, &e.At); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		e.Kind = Kind(kind)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run events: %w", err)
	}
	return events, nil
}

// Close closes the underlying database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}
