// Copyright 2026 The dflow Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlite provides a SQLite eventlog.Store for single-node
// deployments, backed by the pure-Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/dflow-run/dflow/internal/dflowerrors"
	"github.com/dflow-run/dflow/internal/eventlog"
)

// Compile-time interface assertions.
var (
	_ eventlog.EventAppender = (*Store)(nil)
	_ eventlog.EventReader   = (*Store)(nil)
	_ eventlog.RunStore      = (*Store)(nil)
	_ eventlog.RunLister     = (*Store)(nil)
	_ eventlog.StepStore     = (*Store)(nil)
	_ eventlog.HookStore     = (*Store)(nil)
	_ eventlog.Store         = (*Store)(nil)
)

// Store is a SQLite-backed eventlog.Store.
type Store struct {
	db *sql.DB
}

// Config holds the connection parameters for Open.
type Config struct {
	// Path is the database file path (":memory:" is valid but only useful
	// for a single-connection test; use memory.New for real in-memory use).
	Path string

	// WAL enables Write-Ahead Logging for concurrent readers alongside the
	// single writer connection.
	WAL bool
}

// Open creates (or reopens) a SQLite-backed store, running migrations if
// needed.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// SQLite serializes writes; a single connection avoids SQLITE_BUSY
	// churn under the appender's own atomic section.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	s := &Store{db: db}
	if err := s.configurePragmas(ctx, cfg.WAL); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring pragmas: %w", err)
	}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *Store) configurePragmas(ctx context.Context, wal bool) error {
	pragmas := []string{
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	if wal {
		pragmas = append(pragmas, "PRAGMA journal_mode=WAL")
	}
	for _, p := range pragmas {
		if _, err := s.db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("executing %s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS events (
			event_id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			type TEXT NOT NULL,
			correlation_id TEXT,
			data BLOB,
			spec_version INTEGER NOT NULL,
			created_at TEXT NOT NULL,
			UNIQUE(run_id, ordinal)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_run_correlation ON events(run_id, correlation_id)`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			workflow_name TEXT NOT NULL,
			status TEXT NOT NULL,
			input BLOB,
			output BLOB,
			error BLOB,
			created_at TEXT NOT NULL,
			started_at TEXT,
			completed_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_workflow ON runs(workflow_name)`,
		`CREATE TABLE IF NOT EXISTS steps (
			run_id TEXT NOT NULL,
			correlation_id TEXT NOT NULL,
			status TEXT NOT NULL,
			attempt INTEGER NOT NULL DEFAULT 1,
			retry_after TEXT,
			last_error TEXT,
			output BLOB,
			started_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			PRIMARY KEY (run_id, correlation_id)
		)`,
		`CREATE TABLE IF NOT EXISTS hooks (
			run_id TEXT NOT NULL,
			correlation_id TEXT NOT NULL,
			hook_id TEXT NOT NULL,
			token TEXT NOT NULL UNIQUE,
			disposed INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			PRIMARY KEY (run_id, correlation_id)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// Append implements eventlog.EventAppender. The event insert and the
// materialized-view update happen in one transaction, so a crash mid-write
// never leaves the log and the views disagreeing.
func (s *Store) Append(ctx context.Context, runID string, in eventlog.NewEvent, opts eventlog.AppendOptions) (*eventlog.AppendResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM runs WHERE run_id = ?`, runID).Scan(&status)
	switch {
	case err == sql.ErrNoRows:
		if in.Type != eventlog.EventRunCreated {
			return nil, &dflowerrors.NotFoundError{Resource: "run", ID: runID}
		}
	case err != nil:
		return nil, fmt.Errorf("looking up run %s: %w", runID, err)
	default:
		if in.Type == eventlog.EventRunCreated {
			return nil, &dflowerrors.ValidationError{Field: "run_id", Message: "run already exists: " + runID}
		}
		if eventlog.RunStatus(status).Terminal() {
			return nil, &dflowerrors.TerminalRunError{RunID: runID, Status: status}
		}
	}

	var count int64
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM events WHERE run_id = ?`, runID).Scan(&count); err != nil {
		return nil, fmt.Errorf("counting events for run %s: %w", runID, err)
	}
	nextOrdinal := count + 1
	if opts.ExpectedOrdinal != 0 && opts.ExpectedOrdinal != nextOrdinal {
		return nil, &dflowerrors.ValidationError{
			Field:   "expected_ordinal",
			Message: "optimistic concurrency conflict on run " + runID,
		}
	}

	now := time.Now().UTC()
	event := eventlog.Event{
		EventID:       uuid.NewString(),
		RunID:         runID,
		Ordinal:       nextOrdinal,
		Type:          in.Type,
		CorrelationID: in.CorrelationID,
		Data:          in.Data,
		SpecVersion:   eventlog.SpecVersion,
		CreatedAt:     now,
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO events (event_id, run_id, ordinal, type, correlation_id, data, spec_version, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		event.EventID, event.RunID, event.Ordinal, string(event.Type), event.CorrelationID,
		event.Data, event.SpecVersion, formatTime(event.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("inserting event: %w", err)
	}

	entity, err := applyEvent(ctx, tx, runID, event, in.Meta, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing append: %w", err)
	}
	return &eventlog.AppendResult{Event: event, Entity: entity}, nil
}

func formatTime(t time.Time) string { return t.Format(time.RFC3339Nano) }

func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	return &t
}

func applyEvent(ctx context.Context, tx *sql.Tx, runID string, event eventlog.Event, meta eventlog.EventMeta, now time.Time) (any, error) {
	switch event.Type {
	case eventlog.EventRunCreated:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (run_id, workflow_name, status, input, created_at) VALUES (?, ?, ?, ?, ?)`,
			runID, meta.WorkflowName, string(eventlog.RunPending), meta.Input, formatTime(now),
		); err != nil {
			return nil, fmt.Errorf("inserting run: %w", err)
		}
		return &eventlog.Run{RunID: runID, WorkflowName: meta.WorkflowName, Status: eventlog.RunPending, Input: meta.Input, CreatedAt: now}, nil

	case eventlog.EventRunStarted:
		if _, err := tx.ExecContext(ctx, `UPDATE runs SET status = ?, started_at = ? WHERE run_id = ?`,
			string(eventlog.RunRunning), formatTime(now), runID); err != nil {
			return nil, fmt.Errorf("updating run: %w", err)
		}
		return getRun(ctx, tx, runID)

	case eventlog.EventRunCompleted:
		if _, err := tx.ExecContext(ctx, `UPDATE runs SET status = ?, output = ?, completed_at = ? WHERE run_id = ?`,
			string(eventlog.RunCompleted), meta.Output, formatTime(now), runID); err != nil {
			return nil, fmt.Errorf("updating run: %w", err)
		}
		return getRun(ctx, tx, runID)

	case eventlog.EventRunFailed:
		if _, err := tx.ExecContext(ctx, `UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE run_id = ?`,
			string(eventlog.RunFailed), []byte(meta.ErrorMessage), formatTime(now), runID); err != nil {
			return nil, fmt.Errorf("updating run: %w", err)
		}
		return getRun(ctx, tx, runID)

	case eventlog.EventRunCancelled:
		if _, err := tx.ExecContext(ctx, `UPDATE runs SET status = ?, completed_at = ? WHERE run_id = ?`,
			string(eventlog.RunCancelled), formatTime(now), runID); err != nil {
			return nil, fmt.Errorf("updating run: %w", err)
		}
		return getRun(ctx, tx, runID)

	case eventlog.EventStepStarted:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO steps (run_id, correlation_id, status, attempt, started_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)
			 ON CONFLICT(run_id, correlation_id) DO UPDATE SET status = excluded.status, attempt = excluded.attempt, updated_at = excluded.updated_at`,
			runID, event.CorrelationID, string(eventlog.StepRunning), meta.Attempt, formatTime(now), formatTime(now),
		); err != nil {
			return nil, fmt.Errorf("upserting step: %w", err)
		}
		return getStep(ctx, tx, runID, event.CorrelationID)

	case eventlog.EventStepRetrying:
		var retryAfter any
		if meta.RetryAfter != nil {
			retryAfter = formatTime(*meta.RetryAfter)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE steps SET status = ?, attempt = ?, retry_after = ?, last_error = ?, updated_at = ? WHERE run_id = ? AND correlation_id = ?`,
			string(eventlog.StepPending), meta.Attempt, retryAfter, meta.ErrorMessage, formatTime(now), runID, event.CorrelationID,
		); err != nil {
			return nil, fmt.Errorf("updating step: %w", err)
		}
		return getStep(ctx, tx, runID, event.CorrelationID)

	case eventlog.EventStepCompleted:
		if _, err := tx.ExecContext(ctx,
			`UPDATE steps SET status = ?, output = ?, retry_after = NULL, updated_at = ? WHERE run_id = ? AND correlation_id = ?`,
			string(eventlog.StepCompleted), meta.Output, formatTime(now), runID, event.CorrelationID,
		); err != nil {
			return nil, fmt.Errorf("updating step: %w", err)
		}
		return getStep(ctx, tx, runID, event.CorrelationID)

	case eventlog.EventStepFailed:
		if _, err := tx.ExecContext(ctx,
			`UPDATE steps SET status = ?, last_error = ?, retry_after = NULL, updated_at = ? WHERE run_id = ? AND correlation_id = ?`,
			string(eventlog.StepFailed), meta.ErrorMessage, formatTime(now), runID, event.CorrelationID,
		); err != nil {
			return nil, fmt.Errorf("updating step: %w", err)
		}
		return getStep(ctx, tx, runID, event.CorrelationID)

	case eventlog.EventHookCreated:
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO hooks (run_id, correlation_id, hook_id, token, created_at) VALUES (?, ?, ?, ?, ?)`,
			runID, event.CorrelationID, event.EventID, meta.Token, formatTime(now),
		); err != nil {
			return nil, fmt.Errorf("inserting hook: %w", err)
		}
		return &eventlog.Hook{HookID: event.EventID, RunID: runID, Token: meta.Token, CreatedAt: now}, nil

	case eventlog.EventHookReceived:
		return getHook(ctx, tx, runID, event.CorrelationID)

	case eventlog.EventHookDisposed:
		if _, err := tx.ExecContext(ctx, `UPDATE hooks SET disposed = 1 WHERE run_id = ? AND correlation_id = ?`,
			runID, event.CorrelationID); err != nil {
			return nil, fmt.Errorf("updating hook: %w", err)
		}
		return getHook(ctx, tx, runID, event.CorrelationID)

	case eventlog.EventWaitCreated, eventlog.EventWaitExpired:
		return nil, nil

	default:
		return nil, &dflowerrors.ValidationError{Field: "type", Message: "unknown event type: " + string(event.Type)}
	}
}

func getRun(ctx context.Context, tx *sql.Tx, runID string) (*eventlog.Run, error) {
	run := &eventlog.Run{RunID: runID}
	var status, createdAt string
	var startedAt, completedAt sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT workflow_name, status, input, output, error, created_at, started_at, completed_at FROM runs WHERE run_id = ?`,
		runID,
	).Scan(&run.WorkflowName, &status, &run.Input, &run.Output, &run.Error, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", runID, err)
	}
	run.Status = eventlog.RunStatus(status)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.StartedAt = parseTime(startedAt.String)
	run.CompletedAt = parseTime(completedAt.String)
	return run, nil
}

func getStep(ctx context.Context, tx *sql.Tx, runID, correlationID string) (*eventlog.Step, error) {
	step := &eventlog.Step{StepID: correlationID, RunID: runID, CorrelationID: correlationID}
	var status, startedAt, updatedAt string
	var retryAfter sql.NullString
	err := tx.QueryRowContext(ctx,
		`SELECT status, attempt, retry_after, last_error, output, started_at, updated_at FROM steps WHERE run_id = ? AND correlation_id = ?`,
		runID, correlationID,
	).Scan(&status, &step.Attempt, &retryAfter, &step.LastError, &step.Output, &startedAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading step %s/%s: %w", runID, correlationID, err)
	}
	step.Status = eventlog.StepStatus(status)
	step.RetryAfter = parseTime(retryAfter.String)
	step.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	step.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return step, nil
}

func getHook(ctx context.Context, tx *sql.Tx, runID, correlationID string) (*eventlog.Hook, error) {
	hook := &eventlog.Hook{RunID: runID}
	var disposed int
	var createdAt string
	err := tx.QueryRowContext(ctx,
		`SELECT hook_id, token, disposed, created_at FROM hooks WHERE run_id = ? AND correlation_id = ?`,
		runID, correlationID,
	).Scan(&hook.HookID, &hook.Token, &disposed, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("reading hook %s/%s: %w", runID, correlationID, err)
	}
	hook.Disposed = disposed != 0
	hook.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return hook, nil
}

// ListEvents implements eventlog.EventReader.
func (s *Store) ListEvents(ctx context.Context, runID string, page eventlog.Page) ([]eventlog.Event, error) {
	query := `SELECT event_id, ordinal, type, correlation_id, data, spec_version, created_at
	          FROM events WHERE run_id = ? ORDER BY ordinal ASC`
	args := []any{runID}
	if page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, page.Limit, page.Offset)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing events for run %s: %w", runID, err)
	}
	defer rows.Close()
	return scanEvents(rows, runID)
}

// ListByCorrelationID implements eventlog.EventReader.
func (s *Store) ListByCorrelationID(ctx context.Context, runID, correlationID string) ([]eventlog.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT event_id, ordinal, type, correlation_id, data, spec_version, created_at
		 FROM events WHERE run_id = ? AND correlation_id = ? ORDER BY ordinal ASC`,
		runID, correlationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing events for %s/%s: %w", runID, correlationID, err)
	}
	defer rows.Close()
	return scanEvents(rows, runID)
}

func scanEvents(rows *sql.Rows, runID string) ([]eventlog.Event, error) {
	var out []eventlog.Event
	for rows.Next() {
		var e eventlog.Event
		var typ, createdAt string
		e.RunID = runID
		if err := rows.Scan(&e.EventID, &e.Ordinal, &typ, &e.CorrelationID, &e.Data, &e.SpecVersion, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.Type = eventlog.EventType(typ)
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetRun implements eventlog.RunStore.
func (s *Store) GetRun(ctx context.Context, runID string) (*eventlog.Run, error) {
	run, err := getRunNoTx(ctx, s.db, runID)
	if err == sql.ErrNoRows {
		return nil, &dflowerrors.NotFoundError{Resource: "run", ID: runID}
	}
	return run, err
}

func getRunNoTx(ctx context.Context, q querier, runID string) (*eventlog.Run, error) {
	run := &eventlog.Run{RunID: runID}
	var status, createdAt string
	var startedAt, completedAt sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT workflow_name, status, input, output, error, created_at, started_at, completed_at FROM runs WHERE run_id = ?`,
		runID,
	).Scan(&run.WorkflowName, &status, &run.Input, &run.Output, &run.Error, &createdAt, &startedAt, &completedAt)
	if err != nil {
		return nil, err
	}
	run.Status = eventlog.RunStatus(status)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.StartedAt = parseTime(startedAt.String)
	run.CompletedAt = parseTime(completedAt.String)
	return run, nil
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// ListRuns implements eventlog.RunLister.
func (s *Store) ListRuns(ctx context.Context, filter eventlog.RunFilter) ([]*eventlog.Run, error) {
	query := `SELECT run_id, workflow_name, status, input, output, error, created_at, started_at, completed_at FROM runs WHERE 1=1`
	var args []any
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	if filter.WorkflowName != "" {
		query += ` AND workflow_name = ?`
		args = append(args, filter.WorkflowName)
	}
	query += ` ORDER BY created_at ASC`
	if filter.Page.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Page.Limit, filter.Page.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var out []*eventlog.Run
	for rows.Next() {
		run := &eventlog.Run{}
		var status, createdAt string
		var startedAt, completedAt sql.NullString
		if err := rows.Scan(&run.RunID, &run.WorkflowName, &status, &run.Input, &run.Output, &run.Error, &createdAt, &startedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Status = eventlog.RunStatus(status)
		run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
		run.StartedAt = parseTime(startedAt.String)
		run.CompletedAt = parseTime(completedAt.String)
		out = append(out, run)
	}
	return out, rows.Err()
}

// GetStep implements eventlog.StepStore.
func (s *Store) GetStep(ctx context.Context, runID, correlationID string) (*eventlog.Step, error) {
	step, err := getStepNoTx(ctx, s.db, runID, correlationID)
	if err == sql.ErrNoRows {
		return nil, &dflowerrors.NotFoundError{Resource: "step", ID: correlationID}
	}
	return step, err
}

func getStepNoTx(ctx context.Context, q querier, runID, correlationID string) (*eventlog.Step, error) {
	step := &eventlog.Step{StepID: correlationID, RunID: runID, CorrelationID: correlationID}
	var status, startedAt, updatedAt string
	var retryAfter sql.NullString
	err := q.QueryRowContext(ctx,
		`SELECT status, attempt, retry_after, last_error, output, started_at, updated_at FROM steps WHERE run_id = ? AND correlation_id = ?`,
		runID, correlationID,
	).Scan(&status, &step.Attempt, &retryAfter, &step.LastError, &step.Output, &startedAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	step.Status = eventlog.StepStatus(status)
	step.RetryAfter = parseTime(retryAfter.String)
	step.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
	step.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return step, nil
}

// ListSteps implements eventlog.StepStore.
func (s *Store) ListSteps(ctx context.Context, runID string) ([]*eventlog.Step, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT correlation_id, status, attempt, retry_after, last_error, output, started_at, updated_at FROM steps WHERE run_id = ?`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing steps for run %s: %w", runID, err)
	}
	defer rows.Close()

	var out []*eventlog.Step
	for rows.Next() {
		step := &eventlog.Step{RunID: runID}
		var status, startedAt, updatedAt string
		var retryAfter sql.NullString
		if err := rows.Scan(&step.CorrelationID, &status, &step.Attempt, &retryAfter, &step.LastError, &step.Output, &startedAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning step: %w", err)
		}
		step.StepID = step.CorrelationID
		step.Status = eventlog.StepStatus(status)
		step.RetryAfter = parseTime(retryAfter.String)
		step.StartedAt, _ = time.Parse(time.RFC3339Nano, startedAt)
		step.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		out = append(out, step)
	}
	return out, rows.Err()
}

// GetHook implements eventlog.HookStore.
func (s *Store) GetHook(ctx context.Context, runID, correlationID string) (*eventlog.Hook, error) {
	hook, err := getHookNoTx(ctx, s.db, runID, correlationID)
	if err == sql.ErrNoRows {
		return nil, &dflowerrors.NotFoundError{Resource: "hook", ID: correlationID}
	}
	return hook, err
}

func getHookNoTx(ctx context.Context, q querier, runID, correlationID string) (*eventlog.Hook, error) {
	hook := &eventlog.Hook{RunID: runID}
	var disposed int
	var createdAt string
	err := q.QueryRowContext(ctx,
		`SELECT hook_id, token, disposed, created_at FROM hooks WHERE run_id = ? AND correlation_id = ?`,
		runID, correlationID,
	).Scan(&hook.HookID, &hook.Token, &disposed, &createdAt)
	if err != nil {
		return nil, err
	}
	hook.Disposed = disposed != 0
	hook.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return hook, nil
}

// GetHookByToken implements eventlog.HookStore.
func (s *Store) GetHookByToken(ctx context.Context, token string) (*eventlog.Hook, error) {
	hook := &eventlog.Hook{}
	var disposed int
	var createdAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT run_id, hook_id, correlation_id, token, disposed, created_at FROM hooks WHERE token = ?`,
		token,
	).Scan(&hook.RunID, &hook.HookID, new(string), &hook.Token, &disposed, &createdAt)
	if err == sql.ErrNoRows {
		return nil, &dflowerrors.NotFoundError{Resource: "hook", ID: token}
	}
	if err != nil {
		return nil, fmt.Errorf("looking up hook by token: %w", err)
	}
	hook.Disposed = disposed != 0
	hook.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return hook, nil
}

// Close implements io.Closer.
func (s *Store) Close() error {
	return s.db.Close()
}
