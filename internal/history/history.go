package history

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"reel/internal/config"
	"reel/internal/logging"
	"reel/internal/queue"
)

//go:embed schema.sql
var schemaSQL string

// Store appends job transition events to SQLite. It implements
// queue.Recorder.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

var _ queue.Recorder = (*Store)(nil)

// Open initializes or connects to the history database under the state
// directory.
func Open(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.StateDir, "history.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	return &Store{
		db:     db,
		path:   dbPath,
		logger: logging.WithComponent(logger, "history"),
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Record appends one transition event. Insert failures are logged and
// swallowed so a broken history file never stalls the queue.
func (s *Store) Record(event string, job *queue.Job) {
	if job == nil {
		return
	}
	_, err := s.db.Exec(
		`INSERT INTO job_events (
            job_id, event, status, progress, error,
            operation, input_ref, output_ref, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		event,
		string(job.Status),
		job.Progress,
		nullableString(job.Error),
		job.Operation,
		job.InputRef,
		job.OutputRef,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		s.logger.Warn("record job event failed",
			logging.String(logging.FieldJobID, job.ID),
			logging.String("event", event),
			logging.Error(err))
	}
}

// Event is one recorded job transition.
type Event struct {
	ID         int64
	JobID      string
	Event      string
	Status     string
	Progress   float64
	Error      string
	Operation  string
	InputRef   string
	OutputRef  string
	RecordedAt time.Time
}

// Query filters the read side. A zero value returns the most recent events.
type Query struct {
	JobID string
	Limit int
}

// Events returns recorded transitions, most recent first.
func (s *Store) Events(ctx context.Context, query Query) ([]Event, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = 50
	}

	stmt := `SELECT id, job_id, event, status, progress, error,
            operation, input_ref, output_ref, recorded_at
        FROM job_events`
	args := make([]any, 0, 2)
	if query.JobID != "" {
		stmt += " WHERE job_id = ?"
		args = append(args, query.JobID)
	}
	stmt += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query job events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event      Event
			errText    sql.NullString
			recordedAt string
		)
		if err := rows.Scan(
			&event.ID, &event.JobID, &event.Event, &event.Status, &event.Progress,
			&errText, &event.Operation, &event.InputRef, &event.OutputRef, &recordedAt,
		); err != nil {
			return nil, fmt.Errorf("scan job event: %w", err)
		}
		event.Error = errText.String
		if parsed, parseErr := time.Parse(time.RFC3339Nano, recordedAt); parseErr == nil {
			event.RecordedAt = parsed
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job events: %w", err)
	}
	return events, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
