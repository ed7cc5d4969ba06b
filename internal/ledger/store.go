package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = "run_id, started_at, finished_at, input_path, input_hash, output_path, manifest_id, frames, tiles, pack_bytes, sidecar_cid, audio_cid, status, error_class, error_message"

const defaultListLimit = 20

// Record inserts or replaces a run.
func (s *Store) Record(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.RunID) == "" {
		return errors.New("record run: empty run id")
	}
	if run.Status == "" {
		return errors.New("record run: empty status")
	}
	err := s.exec(ctx,
		"INSERT OR REPLACE INTO runs ("+runColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		run.RunID,
		formatTime(run.StartedAt),
		formatTime(run.FinishedAt),
		run.InputPath,
		nullString(run.InputHash),
		run.OutputPath,
		nullString(run.ManifestID),
		int64(run.Frames),
		int64(run.Tiles),
		int64(run.PackBytes),
		nullString(run.SidecarCID),
		nullString(run.AudioCID),
		string(run.Status),
		nullString(run.ErrorClass),
		nullString(run.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w", run.RunID, err)
	}
	return nil
}

// List returns the most recent runs, newest first. A non-positive limit uses the default.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	ctx = orBackground(ctx)
	if limit <= 0 {
		limit = defaultListLimit
	}
	var runs []Run
	err := s.retry.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, run_id DESC LIMIT ?", limit)
		if err != nil {
			return err
		}
		defer func() { _ = rows.Close() }()
		runs = runs[:0]
		for rows.Next() {
			run, err := scanRun(rows)
			if err != nil {
				return err
			}
			runs = append(runs, run)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Get returns the run with the given id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	ctx = orBackground(ctx)
	var (
		run   Run
		found bool
	)
	err := s.retry.do(ctx, func() error {
		row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE run_id = ?", runID)
		scanned, err := scanRun(row)
		if errors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		run, found = scanned, true
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}
	if !found {
		return nil, nil
	}
	return &run, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run          Run
		startedRaw   string
		finishedRaw  string
		inputHash    sql.NullString
		manifestID   sql.NullString
		frames       int64
		tiles        int64
		packBytes    int64
		sidecarCID   sql.NullString
		audioCID     sql.NullString
		status       string
		errorClass   sql.NullString
		errorMessage sql.NullString
	)
	if err := scanner.Scan(
		&run.RunID,
		&startedRaw,
		&finishedRaw,
		&run.InputPath,
		&inputHash,
		&run.OutputPath,
		&manifestID,
		&frames,
		&tiles,
		&packBytes,
		&sidecarCID,
		&audioCID,
		&status,
		&errorClass,
		&errorMessage,
	); err != nil {
		return Run{}, err
	}
	if t, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = t
	}
	if t, err := parseTimeString(finishedRaw); err == nil {
		run.FinishedAt = t
	}
	run.InputHash = inputHash.String
	run.ManifestID = manifestID.String
	run.Frames = uint64(max(frames, 0))
	run.Tiles = uint64(max(tiles, 0))
	run.PackBytes = uint64(max(packBytes, 0))
	run.SidecarCID = sidecarCID.String
	run.AudioCID = audioCID.String
	run.Status = Status(status)
	run.ErrorClass = errorClass.String
	run.ErrorMessage = errorMessage.String
	return run, nil
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now()
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimeString(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, strings.TrimSpace(value))
}

func nullString(value string) sql.NullString {
	value = strings.TrimSpace(value)
	return sql.NullString{String: value, Valid: value != ""}
}
