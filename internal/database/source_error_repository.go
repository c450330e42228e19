package database

import (
	"context"
	"database/sql"
	"fmt"
)

// SourceErrorRepository tracks running fetch-failure counts per source.
type SourceErrorRepository struct {
	db *sql.DB
}

// NewSourceErrorRepository creates a source-error repository.
func NewSourceErrorRepository(db *sql.DB) *SourceErrorRepository {
	return &SourceErrorRepository{db: db}
}

// RecordError increments the source's error counter and remembers the last
// message.
func (r *SourceErrorRepository) RecordError(ctx context.Context, sourceID, message string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO source_feed_errors (source_id, error_count, last_error, updated_at)
		VALUES ($1, 1, $2, NOW())
		ON CONFLICT (source_id) DO UPDATE SET
			error_count = source_feed_errors.error_count + 1,
			last_error = EXCLUDED.last_error,
			updated_at = NOW()
	`, sourceID, message)
	if err != nil {
		return fmt.Errorf("failed to record source error: %w", err)
	}
	return nil
}

// ErrorCount returns the running error count for a source, 0 when unseen.
func (r *SourceErrorRepository) ErrorCount(ctx context.Context, sourceID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT error_count FROM source_feed_errors WHERE source_id = $1
	`, sourceID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get source error count: %w", err)
	}
	return count, nil
}
