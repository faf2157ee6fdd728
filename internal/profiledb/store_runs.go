package profiledb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// BeginRun records the start of a command invocation.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.ID == "" || run.Operation == "" {
		return errors.New("run requires an id and operation")
	}
	err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, operation, bam_path, fasta_path, started_at, finished_at, version, settings_json)
         VALUES (?, ?, ?, ?, ?, NULL, ?, ?)`,
		run.ID,
		run.Operation,
		nullableString(run.BAMPath),
		nullableString(run.FastaPath),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Version,
		run.Settings,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps a run's completion time.
func (s *Store) FinishRun(ctx context.Context, id string, at time.Time) error {
	err := s.execWithRetry(ctx,
		"UPDATE runs SET finished_at = ? WHERE id = ?",
		at.UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

const runColumns = "id, operation, bam_path, fasta_path, started_at, finished_at, version, settings_json"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run       Run
		bamPath   sql.NullString
		fastaPath sql.NullString
		started   string
		finished  sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Operation, &bamPath, &fastaPath, &started, &finished, &run.Version, &run.Settings); err != nil {
		return nil, err
	}
	run.BAMPath = bamPath.String
	run.FastaPath = fastaPath.String
	startedAt, err := time.Parse(time.RFC3339Nano, started)
	if err != nil {
		return nil, fmt.Errorf("parse started_at: %w", err)
	}
	run.StartedAt = startedAt
	if finished.Valid && finished.String != "" {
		finishedAt, err := time.Parse(time.RFC3339Nano, finished.String)
		if err != nil {
			return nil, fmt.Errorf("parse finished_at: %w", err)
		}
		run.FinishedAt = finishedAt
	}
	return &run, nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// LatestRun fetches the most recently started finished run for an
// operation. Downstream commands attach to it when re-opening a profile.
func (s *Store) LatestRun(ctx context.Context, operation string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs
         WHERE operation = ? AND finished_at IS NOT NULL
         ORDER BY started_at DESC LIMIT 1`,
		operation,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no finished %s run: %w", operation, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("latest run: %w", err)
	}
	return run, nil
}

// Runs lists all runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs ORDER BY started_at DESC")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

// SetMeta stores one key/value fact about a run, replacing any previous
// value.
func (s *Store) SetMeta(ctx context.Context, runID, key, value string) error {
	err := s.execWithRetry(ctx,
		`INSERT INTO meta (run_id, key, value) VALUES (?, ?, ?)
         ON CONFLICT (run_id, key) DO UPDATE SET value = excluded.value`,
		runID, key, value,
	)
	if err != nil {
		return fmt.Errorf("set meta %s: %w", key, err)
	}
	return nil
}

// GetMeta fetches one fact about a run.
func (s *Store) GetMeta(ctx context.Context, runID, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM meta WHERE run_id = ? AND key = ?", runID, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("meta %s: %w", key, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("get meta %s: %w", key, err)
	}
	return value, nil
}

// MetaAll fetches every fact recorded for a run.
func (s *Store) MetaAll(ctx context.Context, runID string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta WHERE run_id = ? ORDER BY key", runID)
	if err != nil {
		return nil, fmt.Errorf("list meta: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan meta: %w", err)
		}
		out[key] = value
	}
	return out, rows.Err()
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
