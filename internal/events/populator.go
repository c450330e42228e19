// Package events fills each campaign's multi-day event window from the
// local listings pool, honoring the featured and paid-placement tiers.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/townwire/townwire/internal/config"
	"github.com/townwire/townwire/internal/models"
)

// Populator selects pool events into a campaign's event window.
type Populator struct {
	repo    EventRepository
	cfg     config.EventsConfig
	logger  *slog.Logger
	shuffle func(n int, swap func(i, j int))
	now     func() time.Time
}

// NewPopulator builds an event populator.
func NewPopulator(repo EventRepository, cfg config.EventsConfig, logger *slog.Logger) *Populator {
	return &Populator{
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		shuffle: rand.Shuffle,
		now:     time.Now,
	}
}

// Populate fills each day of the campaign's window, starting at startDate.
// Selection per day follows a strict tier order: upstream-featured events
// are always included and marked featured; paid placements are always
// included but never marked featured; remaining capacity is filled by
// uniform random sampling. When a day has no upstream-featured event, the
// first regular (non-paid) pick is promoted to featured so every day with
// any event has one featured entry when possible.
//
// Populate is re-entrant: events already selected for a (campaign, date)
// are kept and only remaining capacity is filled.
func (p *Populator) Populate(ctx context.Context, campaignID string, startDate time.Time) error {
	for offset := 0; offset < p.cfg.WindowDays; offset++ {
		day := startDate.AddDate(0, 0, offset)
		if err := p.populateDay(ctx, campaignID, day); err != nil {
			return fmt.Errorf("populate %s: %w", day.Format("2006-01-02"), err)
		}
	}
	return nil
}

func (p *Populator) populateDay(ctx context.Context, campaignID string, day time.Time) error {
	existing, err := p.repo.ListSelected(ctx, campaignID, day)
	if err != nil {
		return fmt.Errorf("list selected: %w", err)
	}

	capacity := p.cfg.MaxPerDay - len(existing)
	if capacity <= 0 {
		p.logger.Debug("event day already full", "campaign", campaignID, "date", day.Format("2006-01-02"))
		return nil
	}

	taken := make(map[string]bool, len(existing))
	hasFeatured := false
	for _, ce := range existing {
		taken[ce.EventID] = true
		if ce.Featured {
			hasFeatured = true
		}
	}

	pool, err := p.repo.ListActiveOverlapping(ctx, day)
	if err != nil {
		return fmt.Errorf("list pool: %w", err)
	}

	var featured, paid, regular []models.CalendarEvent
	for _, e := range pool {
		if taken[e.ID] {
			continue
		}
		switch {
		case e.Featured:
			featured = append(featured, e)
		case e.Paid:
			paid = append(paid, e)
		default:
			regular = append(regular, e)
		}
	}

	p.shuffle(len(regular), func(i, j int) {
		regular[i], regular[j] = regular[j], regular[i]
	})

	position := len(existing) + 1
	selected := 0

	insert := func(e models.CalendarEvent, isFeatured bool) error {
		err := p.repo.InsertSelection(ctx, models.CampaignEvent{
			CampaignID: campaignID,
			EventID:    e.ID,
			Date:       day,
			Selected:   true,
			Featured:   isFeatured,
			Position:   position,
			CreatedAt:  p.now(),
		})
		if err != nil {
			return fmt.Errorf("insert selection %s: %w", e.ID, err)
		}
		position++
		selected++
		capacity--
		return nil
	}

	for _, e := range featured {
		if capacity == 0 {
			break
		}
		if err := insert(e, true); err != nil {
			return err
		}
		hasFeatured = true
	}

	for _, e := range paid {
		if capacity == 0 {
			break
		}
		// Paid placements are included but never visually featured.
		if err := insert(e, false); err != nil {
			return err
		}
	}

	for _, e := range regular {
		if capacity == 0 {
			break
		}
		promote := !hasFeatured
		if err := insert(e, promote); err != nil {
			return err
		}
		if promote {
			hasFeatured = true
		}
	}

	p.logger.Info("event day populated",
		"campaign", campaignID,
		"date", day.Format("2006-01-02"),
		"selected", selected,
		"existing", len(existing),
	)
	return nil
}
