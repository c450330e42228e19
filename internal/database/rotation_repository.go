package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/townwire/townwire/internal/models"
)

// RotationRepository persists per-category rotation state.
type RotationRepository struct {
	db *sql.DB
}

// NewRotationRepository creates a rotation repository.
func NewRotationRepository(db *sql.DB) *RotationRepository {
	return &RotationRepository{db: db}
}

// Get returns the stored state for a category, nil when none exists.
func (r *RotationRepository) Get(ctx context.Context, category string) (*models.RotationState, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT category, cursor_index, shuffle_order, updated_at
		FROM rotation_states
		WHERE category = $1
	`, category)

	var (
		state models.RotationState
		raw   []byte
	)
	err := row.Scan(&state.Category, &state.Cursor, &raw, &state.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rotation state: %w", err)
	}

	if err := json.Unmarshal(raw, &state.Order); err != nil {
		return nil, fmt.Errorf("failed to decode shuffle order: %w", err)
	}
	return &state, nil
}

// Save replaces a category's (cursor, shuffle) pair in one statement.
func (r *RotationRepository) Save(ctx context.Context, state models.RotationState) error {
	raw, err := json.Marshal(state.Order)
	if err != nil {
		return fmt.Errorf("failed to encode shuffle order: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO rotation_states (category, cursor_index, shuffle_order, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (category) DO UPDATE SET
			cursor_index = EXCLUDED.cursor_index,
			shuffle_order = EXCLUDED.shuffle_order,
			updated_at = NOW()
	`, state.Category, state.Cursor, raw)
	if err != nil {
		return fmt.Errorf("failed to save rotation state: %w", err)
	}
	return nil
}
