package database

import (
	"context"
	"database/sql"
	"fmt"
)

// JobRunRepository implements the scheduler's atomic daily claim on top of
// the job_runs table.
type JobRunRepository struct {
	db *sql.DB
}

// NewJobRunRepository creates a job-run repository.
func NewJobRunRepository(db *sql.DB) *JobRunRepository {
	return &JobRunRepository{db: db}
}

// Claim advances the job's last-run date to the given date. The conditional
// upsert succeeds for exactly one caller per (job, date): a second claim the
// same day affects zero rows. date is "YYYY-MM-DD" in the scheduler's
// reference zone.
func (r *JobRunRepository) Claim(ctx context.Context, job, date string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO job_runs (name, last_run_date, updated_at)
		VALUES ($1, $2::date, NOW())
		ON CONFLICT (name) DO UPDATE SET
			last_run_date = EXCLUDED.last_run_date,
			updated_at = NOW()
		WHERE job_runs.last_run_date < EXCLUDED.last_run_date
	`, job, date)
	if err != nil {
		return false, fmt.Errorf("failed to claim job run: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read claim result: %w", err)
	}
	return affected == 1, nil
}
