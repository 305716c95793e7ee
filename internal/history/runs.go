package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Attempt result constants.
const (
	ResultSuccess = "success"
	ResultFailed  = "failed"
	ResultMissing = "missing"
)

// StartRun opens a new run record and returns its ID.
func (s *SQLiteStore) StartRun(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO runs (started_at) VALUES (CURRENT_TIMESTAMP)`)
	if err != nil {
		return 0, fmt.Errorf("failed to insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read run id: %w", err)
	}
	return id, nil
}

// FinishRun closes a run record with its terminal outcome.
func (s *SQLiteStore) FinishRun(ctx context.Context, runID int64, outcome, detail string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = CURRENT_TIMESTAMP, outcome = ?, detail = ?
		WHERE id = ?
	`, outcome, detail, runID)
	if err != nil {
		return fmt.Errorf("failed to finish run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check finish result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %d not found", runID)
	}
	return nil
}

// RecordAttempt saves one step execution.
func (s *SQLiteStore) RecordAttempt(ctx context.Context, a Attempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO step_attempts (run_id, step_index, label, artifact, attempts, result, error)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, a.RunID, a.StepIndex, a.Label, a.Artifact, a.Attempts, a.Result, a.Error)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *SQLiteStore) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, finished_at, outcome, detail
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		var finished sql.NullTime
		var outcome, detail sql.NullString
		if err := rows.Scan(&r.ID, &r.StartedAt, &finished, &outcome, &detail); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if finished.Valid {
			r.FinishedAt = finished.Time
		}
		r.Outcome = outcome.String
		r.Detail = detail.String
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}

	return runs, nil
}

// AttemptsForRun returns the step attempts recorded for one run, oldest first.
func (s *SQLiteStore) AttemptsForRun(ctx context.Context, runID int64) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, step_index, label, artifact, attempts, result, error, created_at
		FROM step_attempts
		WHERE run_id = ?
		ORDER BY id ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attempts: %w", err)
	}
	defer rows.Close()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var artifact, attemptErr sql.NullString
		var created time.Time
		if err := rows.Scan(&a.RunID, &a.StepIndex, &a.Label, &artifact, &a.Attempts, &a.Result, &attemptErr, &created); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Artifact = artifact.String
		a.Error = attemptErr.String
		a.CreatedAt = created
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attempts: %w", err)
	}

	return attempts, nil
}
