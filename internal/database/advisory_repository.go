package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/townwire/townwire/internal/models"
)

// AdvisoryRepository provides postgres access to campaign advisories.
type AdvisoryRepository struct {
	db *sql.DB
}

// NewAdvisoryRepository creates an advisory repository.
func NewAdvisoryRepository(db *sql.DB) *AdvisoryRepository {
	return &AdvisoryRepository{db: db}
}

// Insert stores one advisory.
func (r *AdvisoryRepository) Insert(ctx context.Context, a models.Advisory) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO advisories (id, campaign_id, location, description, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, a.ID, a.CampaignID, a.Location, a.Description, a.StartDate, a.EndDate, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert advisory: %w", err)
	}
	return nil
}

// ListByCampaign returns a campaign's advisories.
func (r *AdvisoryRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.Advisory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, location, description, start_date, end_date, created_at
		FROM advisories
		WHERE campaign_id = $1
		ORDER BY created_at, id
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list advisories: %w", err)
	}
	defer rows.Close()

	var out []models.Advisory
	for rows.Next() {
		var a models.Advisory
		if err := rows.Scan(&a.ID, &a.CampaignID, &a.Location, &a.Description, &a.StartDate, &a.EndDate, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan advisory: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// DeleteByCampaign removes a campaign's advisories.
func (r *AdvisoryRepository) DeleteByCampaign(ctx context.Context, campaignID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM advisories WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete advisories: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return int(affected), nil
}
