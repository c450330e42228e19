package campaign

import (
	"context"
	"sync"
	"time"

	"github.com/townwire/townwire/internal/models"
)

// Repository defines campaign storage. It also serves the selector's
// subject-line reads and writes.
type Repository interface {
	// GetByDate returns the campaign for a calendar date, nil when none
	// exists.
	GetByDate(ctx context.Context, date time.Time) (*models.Campaign, error)

	// Create stores a new campaign.
	Create(ctx context.Context, c models.Campaign) error

	// SetStatus updates a campaign's status.
	SetStatus(ctx context.Context, campaignID string, status models.CampaignStatus) error

	// GetSubjectLine returns the campaign's subject line, "" when unset.
	GetSubjectLine(ctx context.Context, campaignID string) (string, error)

	// SetSubjectLine stores the campaign's subject line.
	SetSubjectLine(ctx context.Context, campaignID, subject string) error

	// SetPromo stores the campaign's rotated sponsored listing.
	SetPromo(ctx context.Context, campaignID, eventID, imageURL string) error
}

// MemoryRepository is an in-memory campaign Repository for tests.
type MemoryRepository struct {
	mu        sync.Mutex
	campaigns map[string]models.Campaign
}

// NewMemoryRepository creates an empty in-memory campaign repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{campaigns: make(map[string]models.Campaign)}
}

// GetByDate returns the campaign whose date matches the given calendar day.
func (r *MemoryRepository) GetByDate(ctx context.Context, date time.Time) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.campaigns {
		if c.Date.Equal(date) {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

// Get returns a campaign by id, nil when absent.
func (r *MemoryRepository) Get(ctx context.Context, campaignID string) (*models.Campaign, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.campaigns[campaignID]; ok {
		out := c
		return &out, nil
	}
	return nil, nil
}

// Create stores a campaign.
func (r *MemoryRepository) Create(ctx context.Context, c models.Campaign) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = c
	return nil
}

// SetStatus updates a campaign's status.
func (r *MemoryRepository) SetStatus(ctx context.Context, campaignID string, status models.CampaignStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.campaigns[campaignID]; ok {
		c.Status = status
		c.UpdatedAt = time.Now()
		r.campaigns[campaignID] = c
	}
	return nil
}

// GetSubjectLine returns the campaign's subject line.
func (r *MemoryRepository) GetSubjectLine(ctx context.Context, campaignID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.campaigns[campaignID].SubjectLine, nil
}

// SetSubjectLine stores the campaign's subject line.
func (r *MemoryRepository) SetSubjectLine(ctx context.Context, campaignID, subject string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.campaigns[campaignID]; ok {
		c.SubjectLine = subject
		c.UpdatedAt = time.Now()
		r.campaigns[campaignID] = c
	}
	return nil
}

// SetPromo stores the campaign's rotated sponsored listing.
func (r *MemoryRepository) SetPromo(ctx context.Context, campaignID, eventID, imageURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.campaigns[campaignID]; ok {
		c.PromoEventID = eventID
		c.PromoImageURL = imageURL
		c.UpdatedAt = time.Now()
		r.campaigns[campaignID] = c
	}
	return nil
}
