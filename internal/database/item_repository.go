package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/townwire/townwire/internal/models"
)

// ItemRepository provides postgres access to raw items and evaluations.
type ItemRepository struct {
	db *sql.DB
}

// NewItemRepository creates an item repository.
func NewItemRepository(db *sql.DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// Insert stores an item. It returns false without error when an item with
// the same (campaign, source, external id) already exists.
func (r *ItemRepository) Insert(ctx context.Context, item models.Item) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO items (id, campaign_id, source_id, external_id, title, description, body, author, url, image_url, published_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (campaign_id, source_id, external_id) DO NOTHING
	`, item.ID, item.CampaignID, item.SourceID, item.ExternalID, item.Title, item.Description,
		item.Body, item.Author, item.URL, item.ImageURL, item.PublishedAt, item.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}
	return affected == 1, nil
}

// ListByCampaign returns a campaign's items in insertion order.
func (r *ItemRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, source_id, external_id, title, description, body, author, url, image_url, published_at, created_at
		FROM items
		WHERE campaign_id = $1
		ORDER BY created_at, id
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	defer rows.Close()

	var out []models.Item
	for rows.Next() {
		var it models.Item
		if err := rows.Scan(&it.ID, &it.CampaignID, &it.SourceID, &it.ExternalID, &it.Title, &it.Description,
			&it.Body, &it.Author, &it.URL, &it.ImageURL, &it.PublishedAt, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// UpdateImageURL replaces an item's image URL.
func (r *ItemRepository) UpdateImageURL(ctx context.Context, itemID, imageURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE items SET image_url = $2 WHERE id = $1
	`, itemID, imageURL)
	if err != nil {
		return fmt.Errorf("failed to update item image: %w", err)
	}
	return nil
}

// DeleteByCampaign removes a campaign's items; evaluations cascade.
func (r *ItemRepository) DeleteByCampaign(ctx context.Context, campaignID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM items WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete items: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return int(affected), nil
}

// SaveEvaluation stores the one evaluation for an item.
func (r *ItemRepository) SaveEvaluation(ctx context.Context, eval models.Evaluation) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO evaluations (item_id, interest, relevance, impact, total, reasoning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (item_id) DO UPDATE SET
			interest = EXCLUDED.interest,
			relevance = EXCLUDED.relevance,
			impact = EXCLUDED.impact,
			total = EXCLUDED.total,
			reasoning = EXCLUDED.reasoning
	`, eval.ItemID, eval.Interest, eval.Relevance, eval.Impact, eval.Total, eval.Reasoning, eval.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save evaluation: %w", err)
	}
	return nil
}

// ListEvaluations returns all evaluations for a campaign's items.
func (r *ItemRepository) ListEvaluations(ctx context.Context, campaignID string) ([]models.Evaluation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT e.item_id, e.interest, e.relevance, e.impact, e.total, e.reasoning, e.created_at
		FROM evaluations e
		JOIN items i ON i.id = e.item_id
		WHERE i.campaign_id = $1
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evaluations: %w", err)
	}
	defer rows.Close()

	var out []models.Evaluation
	for rows.Next() {
		var e models.Evaluation
		if err := rows.Scan(&e.ItemID, &e.Interest, &e.Relevance, &e.Impact, &e.Total, &e.Reasoning, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan evaluation: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
