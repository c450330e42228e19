// Package advisory discovers road-work and closure notices for a campaign
// through the search-augmented oracle. Discovery is best-effort: any
// failure yields zero advisories, never a run failure.
package advisory

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/townwire/townwire/internal/metrics"
	"github.com/townwire/townwire/internal/models"
	"github.com/townwire/townwire/internal/oracle"
)

// Store persists campaign advisories.
type Store interface {
	Insert(ctx context.Context, advisory models.Advisory) error
	DeleteByCampaign(ctx context.Context, campaignID string) (int, error)
}

const systemPrompt = `You track current road work and closures for a local area using web search. Respond with JSON only.`

const promptTemplate = `List road work, lane closures, and detours currently active or starting this week in or around: %s.

Respond with JSON in exactly this shape:
{"advisories": [{"location": "<road or intersection>", "description": "<one sentence>", "start_date": "<YYYY-MM-DD or null>", "end_date": "<YYYY-MM-DD or null>"}]}

Include only advisories you are confident are current. An empty list is a valid answer.`

// Populator fills a campaign's advisories.
type Populator struct {
	oracle  oracle.Oracle
	store   Store
	logger  *slog.Logger
	metrics *metrics.PipelineCollector
	now     func() time.Time
}

// NewPopulator builds an advisory populator.
func NewPopulator(o oracle.Oracle, store Store, logger *slog.Logger, collector *metrics.PipelineCollector) *Populator {
	return &Populator{
		oracle:  o,
		store:   store,
		logger:  logger,
		metrics: collector,
		now:     time.Now,
	}
}

// Populate replaces the campaign's advisories with freshly discovered ones.
// Returns the number stored; every failure degrades to zero advisories.
func (p *Populator) Populate(ctx context.Context, campaignID string, localities []string) int {
	if len(localities) == 0 {
		p.logger.Debug("no localities configured, skipping advisories")
		return 0
	}

	started := time.Now()
	resp, err := p.oracle.Complete(ctx, oracle.Request{
		Stage:    "advisory",
		System:   systemPrompt,
		Prompt:   fmt.Sprintf(promptTemplate, strings.Join(localities, ", ")),
		JSONMode: true,
	})
	if p.metrics != nil {
		p.metrics.OracleCall("advisory", time.Since(started))
	}
	if err != nil {
		p.logger.Warn("advisory discovery failed", "error", err)
		p.outcome("failed")
		return 0
	}

	var parsed struct {
		Advisories []struct {
			Location    string  `json:"location"`
			Description string  `json:"description"`
			StartDate   *string `json:"start_date"`
			EndDate     *string `json:"end_date"`
		} `json:"advisories"`
	}
	if err := oracle.Unmarshal(resp, &parsed); err != nil {
		p.logger.Warn("advisory response unparseable", "error", err)
		p.outcome("shape_error")
		return 0
	}

	if _, err := p.store.DeleteByCampaign(ctx, campaignID); err != nil {
		p.logger.Warn("clearing old advisories failed", "campaign", campaignID, "error", err)
		return 0
	}

	stored := 0
	for _, raw := range parsed.Advisories {
		location := strings.TrimSpace(raw.Location)
		description := strings.TrimSpace(raw.Description)
		if location == "" || description == "" {
			continue
		}

		adv := models.Advisory{
			ID:          uuid.NewString(),
			CampaignID:  campaignID,
			Location:    location,
			Description: description,
			StartDate:   parseDate(raw.StartDate),
			EndDate:     parseDate(raw.EndDate),
			CreatedAt:   p.now(),
		}
		if err := p.store.Insert(ctx, adv); err != nil {
			p.logger.Warn("advisory insert failed", "location", location, "error", err)
			continue
		}
		stored++
	}

	p.outcome("ok")
	p.logger.Info("advisories populated", "campaign", campaignID, "count", stored)
	return stored
}

func (p *Populator) outcome(result string) {
	if p.metrics != nil {
		p.metrics.StageOutcome("advisory", result)
	}
}

// parseDate parses YYYY-MM-DD, returning nil for anything else.
func parseDate(raw *string) *time.Time {
	if raw == nil {
		return nil
	}
	t, err := time.Parse("2006-01-02", strings.TrimSpace(*raw))
	if err != nil {
		return nil
	}
	return &t
}

// MemoryStore is an in-memory advisory Store for tests.
type MemoryStore struct {
	mu         sync.Mutex
	Advisories []models.Advisory
}

// NewMemoryStore creates an empty in-memory advisory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Insert appends an advisory.
func (m *MemoryStore) Insert(ctx context.Context, advisory models.Advisory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Advisories = append(m.Advisories, advisory)
	return nil
}

// ListByCampaign returns a campaign's advisories.
func (m *MemoryStore) ListByCampaign(ctx context.Context, campaignID string) ([]models.Advisory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Advisory
	for _, a := range m.Advisories {
		if a.CampaignID == campaignID {
			out = append(out, a)
		}
	}
	return out, nil
}

// DeleteByCampaign removes a campaign's advisories.
func (m *MemoryStore) DeleteByCampaign(ctx context.Context, campaignID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.Advisories[:0]
	deleted := 0
	for _, a := range m.Advisories {
		if a.CampaignID == campaignID {
			deleted++
			continue
		}
		kept = append(kept, a)
	}
	m.Advisories = kept
	return deleted, nil
}
