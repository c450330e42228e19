package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/townwire/townwire/internal/models"
)

// ArchiveRepository writes immutable campaign snapshots.
type ArchiveRepository struct {
	db *sql.DB
}

// NewArchiveRepository creates an archive repository.
func NewArchiveRepository(db *sql.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

type archiveSnapshot struct {
	Items       []models.Item       `json:"items"`
	Evaluations []models.Evaluation `json:"evaluations"`
	Articles    []models.Article    `json:"articles"`
}

// Insert stores one archive record with its working set as a JSON snapshot.
func (r *ArchiveRepository) Insert(ctx context.Context, record models.ArchiveRecord) error {
	snapshot, err := json.Marshal(archiveSnapshot{
		Items:       record.Items,
		Evaluations: record.Evaluations,
		Articles:    record.Articles,
	})
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO archive_records (id, campaign_id, reason, snapshot, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, record.ID, record.CampaignID, record.Reason, snapshot, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert archive record: %w", err)
	}
	return nil
}
