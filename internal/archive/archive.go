// Package archive snapshots a campaign's working set before a destructive
// clear. Archival is best-effort: a failed snapshot is a logged warning,
// never a blocker for reprocessing.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/townwire/townwire/internal/curation"
	"github.com/townwire/townwire/internal/ingestion"
	"github.com/townwire/townwire/internal/models"
)

// Store persists archive records.
type Store interface {
	Insert(ctx context.Context, record models.ArchiveRecord) error
}

// Archiver captures immutable snapshots of campaign working sets.
type Archiver struct {
	items    ingestion.ItemRepository
	articles curation.ArticleRepository
	store    Store
	logger   *slog.Logger
	now      func() time.Time
}

// NewArchiver builds an archiver.
func NewArchiver(items ingestion.ItemRepository, articles curation.ArticleRepository, store Store, logger *slog.Logger) *Archiver {
	return &Archiver{
		items:    items,
		articles: articles,
		store:    store,
		logger:   logger,
		now:      time.Now,
	}
}

// Snapshot records the campaign's current items, evaluations and articles
// under the given reason. An empty working set writes no record.
func (a *Archiver) Snapshot(ctx context.Context, campaignID, reason string) error {
	items, err := a.items.ListByCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("list items: %w", err)
	}

	evals, err := a.items.ListEvaluations(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("list evaluations: %w", err)
	}

	articles, err := a.articles.ListByCampaign(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("list articles: %w", err)
	}

	if len(items) == 0 && len(articles) == 0 {
		a.logger.Debug("nothing to archive", "campaign", campaignID)
		return nil
	}

	record := models.ArchiveRecord{
		ID:          uuid.NewString(),
		CampaignID:  campaignID,
		Reason:      reason,
		Items:       items,
		Evaluations: evals,
		Articles:    articles,
		CreatedAt:   a.now(),
	}
	if err := a.store.Insert(ctx, record); err != nil {
		return fmt.Errorf("insert archive record: %w", err)
	}

	a.logger.Info("campaign archived",
		"campaign", campaignID,
		"reason", reason,
		"items", len(items),
		"articles", len(articles),
	)
	return nil
}

// MemoryStore is an in-memory archive Store for tests.
type MemoryStore struct {
	mu      sync.Mutex
	Records []models.ArchiveRecord
}

// NewMemoryStore creates an empty in-memory archive store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert appends a record.
func (m *MemoryStore) Insert(ctx context.Context, record models.ArchiveRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Records = append(m.Records, record)
	return nil
}
