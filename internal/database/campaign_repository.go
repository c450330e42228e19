package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/townwire/townwire/internal/models"
)

// CampaignRepository provides postgres access to campaigns.
type CampaignRepository struct {
	db *sql.DB
}

// NewCampaignRepository creates a campaign repository.
func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// GetByDate returns the campaign for a calendar date, nil when none exists.
func (r *CampaignRepository) GetByDate(ctx context.Context, date time.Time) (*models.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, status, subject_line, COALESCE(promo_event_id::text, ''), promo_image_url,
			review_sent_at, final_sent_at, created_at, updated_at
		FROM campaigns
		WHERE date = $1
	`, date)

	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign by date: %w", err)
	}
	return c, nil
}

// Get returns a campaign by id, nil when absent.
func (r *CampaignRepository) Get(ctx context.Context, campaignID string) (*models.Campaign, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, date, status, subject_line, COALESCE(promo_event_id::text, ''), promo_image_url,
			review_sent_at, final_sent_at, created_at, updated_at
		FROM campaigns
		WHERE id = $1
	`, campaignID)

	c, err := scanCampaign(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get campaign: %w", err)
	}
	return c, nil
}

func scanCampaign(row *sql.Row) (*models.Campaign, error) {
	var c models.Campaign
	err := row.Scan(&c.ID, &c.Date, &c.Status, &c.SubjectLine, &c.PromoEventID, &c.PromoImageURL,
		&c.ReviewSentAt, &c.FinalSentAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Create stores a new campaign.
func (r *CampaignRepository) Create(ctx context.Context, c models.Campaign) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO campaigns (id, date, status, subject_line, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.Date, c.Status, c.SubjectLine, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

// SetStatus updates a campaign's status.
func (r *CampaignRepository) SetStatus(ctx context.Context, campaignID string, status models.CampaignStatus) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET status = $2, updated_at = NOW() WHERE id = $1
	`, campaignID, status)
	if err != nil {
		return fmt.Errorf("failed to set campaign status: %w", err)
	}
	return nil
}

// GetSubjectLine returns the campaign's subject line, "" when unset.
func (r *CampaignRepository) GetSubjectLine(ctx context.Context, campaignID string) (string, error) {
	var subject string
	err := r.db.QueryRowContext(ctx, `
		SELECT subject_line FROM campaigns WHERE id = $1
	`, campaignID).Scan(&subject)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get subject line: %w", err)
	}
	return subject, nil
}

// SetSubjectLine stores the campaign's subject line.
func (r *CampaignRepository) SetSubjectLine(ctx context.Context, campaignID, subject string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET subject_line = $2, updated_at = NOW() WHERE id = $1
	`, campaignID, subject)
	if err != nil {
		return fmt.Errorf("failed to set subject line: %w", err)
	}
	return nil
}

// SetPromo stores the campaign's rotated sponsored listing.
func (r *CampaignRepository) SetPromo(ctx context.Context, campaignID, eventID, imageURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns SET promo_event_id = $2, promo_image_url = $3, updated_at = NOW() WHERE id = $1
	`, campaignID, eventID, imageURL)
	if err != nil {
		return fmt.Errorf("failed to set campaign promo: %w", err)
	}
	return nil
}
