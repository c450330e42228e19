package ingestion

import (
	"context"
	"sort"
	"sync"

	"github.com/townwire/townwire/internal/models"
)

// ItemRepository defines storage for raw items and their evaluations.
type ItemRepository interface {
	// Insert stores an item. It returns false without error when an item
	// with the same (campaign, source, external id) already exists.
	Insert(ctx context.Context, item models.Item) (bool, error)

	// ListByCampaign returns a campaign's items in insertion order.
	ListByCampaign(ctx context.Context, campaignID string) ([]models.Item, error)

	// UpdateImageURL replaces an item's image URL.
	UpdateImageURL(ctx context.Context, itemID, imageURL string) error

	// DeleteByCampaign removes all items (and their evaluations) for a
	// campaign, returning the number of items deleted.
	DeleteByCampaign(ctx context.Context, campaignID string) (int, error)

	// SaveEvaluation stores the one evaluation for an item.
	SaveEvaluation(ctx context.Context, eval models.Evaluation) error

	// ListEvaluations returns all evaluations for a campaign's items.
	ListEvaluations(ctx context.Context, campaignID string) ([]models.Evaluation, error)
}

// SourceErrorRecorder tracks running fetch-failure counts per source.
type SourceErrorRecorder interface {
	RecordError(ctx context.Context, sourceID, message string) error
}

// MemoryItemRepository is an in-memory ItemRepository for tests.
type MemoryItemRepository struct {
	mu    sync.Mutex
	items map[string]models.Item       // by item id
	evals map[string]models.Evaluation // by item id
	seq   int
	order map[string]int // insertion order by item id
}

// NewMemoryItemRepository creates an empty in-memory item repository.
func NewMemoryItemRepository() *MemoryItemRepository {
	return &MemoryItemRepository{
		items: make(map[string]models.Item),
		evals: make(map[string]models.Evaluation),
		order: make(map[string]int),
	}
}

// Insert stores an item, enforcing (campaign, source, external id) uniqueness.
func (r *MemoryItemRepository) Insert(ctx context.Context, item models.Item) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.items {
		if existing.CampaignID == item.CampaignID &&
			existing.SourceID == item.SourceID &&
			existing.ExternalID == item.ExternalID {
			return false, nil
		}
	}

	r.items[item.ID] = item
	r.order[item.ID] = r.seq
	r.seq++
	return true, nil
}

// ListByCampaign returns items for a campaign in insertion order.
func (r *MemoryItemRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Item
	for _, item := range r.items {
		if item.CampaignID == campaignID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.order[out[i].ID] < r.order[out[j].ID]
	})
	return out, nil
}

// UpdateImageURL replaces an item's image URL.
func (r *MemoryItemRepository) UpdateImageURL(ctx context.Context, itemID, imageURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if item, ok := r.items[itemID]; ok {
		item.ImageURL = imageURL
		r.items[itemID] = item
	}
	return nil
}

// DeleteByCampaign removes a campaign's items and evaluations.
func (r *MemoryItemRepository) DeleteByCampaign(ctx context.Context, campaignID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, item := range r.items {
		if item.CampaignID == campaignID {
			delete(r.items, id)
			delete(r.evals, id)
			delete(r.order, id)
			deleted++
		}
	}
	return deleted, nil
}

// SaveEvaluation stores an item's evaluation.
func (r *MemoryItemRepository) SaveEvaluation(ctx context.Context, eval models.Evaluation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evals[eval.ItemID] = eval
	return nil
}

// ListEvaluations returns evaluations for a campaign's items.
func (r *MemoryItemRepository) ListEvaluations(ctx context.Context, campaignID string) ([]models.Evaluation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Evaluation
	for id, eval := range r.evals {
		if item, ok := r.items[id]; ok && item.CampaignID == campaignID {
			out = append(out, eval)
		}
	}
	return out, nil
}

// Size returns the number of stored items.
func (r *MemoryItemRepository) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
