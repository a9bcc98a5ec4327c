package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/artpar/swarmup/internal/core/stack"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	// Open database connection
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to open database", ErrConnectionFailed)
	}
	// Single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", "failed to ping database", ErrConnectionFailed)
	}

	// Run migrations
	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Run Operations
// =============================================================================

// runRow represents a run row in the database.
type runRow struct {
	ID              string         `db:"id"`
	Domain          string         `db:"domain"`
	ManifestURL     string         `db:"manifest_url"`
	ManifestVersion string         `db:"manifest_version"`
	Outcome         string         `db:"outcome"`
	Error           string         `db:"error"`
	StartedAt       string         `db:"started_at"`
	FinishedAt      sql.NullString `db:"finished_at"`
}

func (r runRow) toRun() (Run, error) {
	started, err := time.Parse(time.RFC3339Nano, r.StartedAt)
	if err != nil {
		return Run{}, NewStoreError("toRun", "run", r.ID, "invalid started_at", ErrInvalidData)
	}
	run := Run{
		ID:              r.ID,
		Domain:          r.Domain,
		ManifestURL:     r.ManifestURL,
		ManifestVersion: r.ManifestVersion,
		Outcome:         stack.Outcome(r.Outcome),
		Error:           r.Error,
		StartedAt:       started,
	}
	if r.FinishedAt.Valid {
		finished, err := time.Parse(time.RFC3339Nano, r.FinishedAt.String)
		if err != nil {
			return Run{}, NewStoreError("toRun", "run", r.ID, "invalid finished_at", ErrInvalidData)
		}
		run.FinishedAt = &finished
	}
	return run, nil
}

// StartRun inserts a new run.
func (s *SQLiteStore) StartRun(ctx context.Context, run *Run) error {
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO runs (id, domain, manifest_url, manifest_version, started_at)
		VALUES (:id, :domain, :manifest_url, :manifest_version, :started_at)`

	_, err := s.db.NamedExecContext(ctx, query, map[string]any{
		"id":               run.ID,
		"domain":           run.Domain,
		"manifest_url":     run.ManifestURL,
		"manifest_version": run.ManifestVersion,
		"started_at":       run.StartedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return NewStoreError("StartRun", "run", run.ID, "run already exists", ErrDuplicateID)
		}
		return NewStoreError("StartRun", "run", run.ID, err.Error(), err)
	}
	return nil
}

// FinishRun records the final outcome of a run.
func (s *SQLiteStore) FinishRun(ctx context.Context, id string, outcome stack.Outcome, errMsg string, finishedAt time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET outcome = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(outcome), errMsg, finishedAt.UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return NewStoreError("FinishRun", "run", id, err.Error(), err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return NewStoreError("FinishRun", "run", id, err.Error(), err)
	}
	if n == 0 {
		return NewStoreError("FinishRun", "run", id, "run not found", ErrNotFound)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, NewStoreError("GetRun", "run", id, "run not found", ErrNotFound)
		}
		return nil, NewStoreError("GetRun", "run", id, err.Error(), err)
	}
	run, err := row.toRun()
	if err != nil {
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, NewStoreError("ListRuns", "run", "", err.Error(), err)
	}

	runs := make([]Run, 0, len(rows))
	for _, r := range rows {
		run, err := r.toRun()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

// =============================================================================
// Stage Operations
// =============================================================================

// stageRow represents a stage result row in the database.
type stageRow struct {
	ID         int64  `db:"id"`
	RunID      string `db:"run_id"`
	Position   int    `db:"position"`
	Stage      string `db:"stage"`
	Outcome    string `db:"outcome"`
	Error      string `db:"error"`
	Steps      string `db:"steps"`
	RecordedAt string `db:"recorded_at"`
}

func toStepRecords(steps []stack.StepResult) []StepRecord {
	records := make([]StepRecord, 0, len(steps))
	for _, s := range steps {
		records = append(records, StepRecord{
			Name:     s.Name,
			Outcome:  s.Outcome,
			Attempts: s.Attempts,
			Message:  s.Message,
		})
	}
	return records
}

// RecordStage stores the result of one stage of a run.
func (s *SQLiteStore) RecordStage(ctx context.Context, runID string, position int, result stack.StageResult) error {
	steps, err := json.Marshal(toStepRecords(result.Steps))
	if err != nil {
		return NewStoreError("RecordStage", "stage", result.Stage, "failed to encode steps", ErrInvalidData)
	}

	errMsg := ""
	if result.Err != nil {
		errMsg = result.Err.Error()
	}

	query := `
		INSERT INTO stage_results (run_id, position, stage, outcome, error, steps, recorded_at)
		VALUES (:run_id, :position, :stage, :outcome, :error, :steps, :recorded_at)`

	_, err = s.db.NamedExecContext(ctx, query, map[string]any{
		"run_id":      runID,
		"position":    position,
		"stage":       result.Stage,
		"outcome":     string(result.Outcome),
		"error":       errMsg,
		"steps":       string(steps),
		"recorded_at": time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return NewStoreError("RecordStage", "run", runID, "run not found", ErrNotFound)
		}
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return NewStoreError("RecordStage", "stage", result.Stage, "stage already recorded", ErrDuplicateID)
		}
		return NewStoreError("RecordStage", "stage", result.Stage, err.Error(), err)
	}
	return nil
}

// ListStages returns the stage results of a run in order.
func (s *SQLiteStore) ListStages(ctx context.Context, runID string) ([]StageRecord, error) {
	var rows []stageRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM stage_results WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, NewStoreError("ListStages", "stage", runID, err.Error(), err)
	}

	records := make([]StageRecord, 0, len(rows))
	for _, r := range rows {
		var steps []StepRecord
		if err := json.Unmarshal([]byte(r.Steps), &steps); err != nil {
			return nil, NewStoreError("ListStages", "stage", r.Stage, "failed to decode steps", ErrInvalidData)
		}
		recorded, err := time.Parse(time.RFC3339Nano, r.RecordedAt)
		if err != nil {
			return nil, NewStoreError("ListStages", "stage", r.Stage, "invalid recorded_at", ErrInvalidData)
		}
		records = append(records, StageRecord{
			RunID:      r.RunID,
			Position:   r.Position,
			Stage:      r.Stage,
			Outcome:    stack.Outcome(r.Outcome),
			Error:      r.Error,
			Steps:      steps,
			RecordedAt: recorded,
		})
	}
	return records, nil
}

// Ensure SQLiteStore implements Store.
var _ Store = (*SQLiteStore)(nil)
