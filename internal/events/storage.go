package events

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/townwire/townwire/internal/models"
)

// EventRepository defines storage for the event pool and per-campaign
// selections.
type EventRepository interface {
	// ListActiveOverlapping returns active pool events running on the day.
	ListActiveOverlapping(ctx context.Context, day time.Time) ([]models.CalendarEvent, error)

	// ListSelected returns the campaign-event rows already chosen for one
	// (campaign, date).
	ListSelected(ctx context.Context, campaignID string, date time.Time) ([]models.CampaignEvent, error)

	// InsertSelection stores one campaign-event row.
	InsertSelection(ctx context.Context, ce models.CampaignEvent) error
}

// MemoryEventRepository is an in-memory EventRepository for tests.
type MemoryEventRepository struct {
	mu         sync.Mutex
	pool       map[string]models.CalendarEvent
	selections []models.CampaignEvent
}

// NewMemoryEventRepository creates an empty in-memory event repository.
func NewMemoryEventRepository() *MemoryEventRepository {
	return &MemoryEventRepository{pool: make(map[string]models.CalendarEvent)}
}

// AddEvent seeds one pool event.
func (r *MemoryEventRepository) AddEvent(e models.CalendarEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pool[e.ID] = e
}

// ListActiveOverlapping returns active events running on the day, ordered
// by id for determinism.
func (r *MemoryEventRepository) ListActiveOverlapping(ctx context.Context, day time.Time) ([]models.CalendarEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.CalendarEvent
	for _, e := range r.pool {
		if e.Active && e.OverlapsDate(day) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListSelected returns selections for one campaign day.
func (r *MemoryEventRepository) ListSelected(ctx context.Context, campaignID string, date time.Time) ([]models.CampaignEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.CampaignEvent
	for _, ce := range r.selections {
		if ce.CampaignID == campaignID && sameDay(ce.Date, date) {
			out = append(out, ce)
		}
	}
	return out, nil
}

// InsertSelection stores one selection row.
func (r *MemoryEventRepository) InsertSelection(ctx context.Context, ce models.CampaignEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.selections = append(r.selections, ce)
	return nil
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
