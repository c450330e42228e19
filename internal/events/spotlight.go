package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/townwire/townwire/internal/rotation"
)

// rotationCategory keys the persisted rotation state for paid listings.
const rotationCategory = "paid-listing"

// PromoSetter stores the campaign's rotated sponsored listing.
type PromoSetter interface {
	SetPromo(ctx context.Context, campaignID, eventID, imageURL string) error
}

// ListingRehoster re-hosts a listing image onto durable storage, returning
// "" on failure.
type ListingRehoster interface {
	RehostListing(ctx context.Context, srcURL, label string) string
}

// Spotlight rotates one paid listing into each campaign. The event pool
// already includes every paid event; the spotlight additionally promotes a
// single one to the campaign's sponsored slot, cycling fairly through the
// pool so that every advertiser gets the slot before any repeats.
type Spotlight struct {
	repo      EventRepository
	rotation  *rotation.Selector
	campaigns PromoSetter
	rehoster  ListingRehoster // nil keeps the pool image URL as-is
	logger    *slog.Logger
}

// NewSpotlight builds a spotlight selector.
func NewSpotlight(repo EventRepository, rot *rotation.Selector, campaigns PromoSetter, rehoster ListingRehoster, logger *slog.Logger) *Spotlight {
	return &Spotlight{
		repo:      repo,
		rotation:  rot,
		campaigns: campaigns,
		rehoster:  rehoster,
		logger:    logger,
	}
}

// Select draws the next paid listing for the campaign's date and stores it
// as the campaign's promo. Returns the chosen event id, "" when no paid
// listing runs that day.
func (s *Spotlight) Select(ctx context.Context, campaignID string, day time.Time) (string, error) {
	pool, err := s.repo.ListActiveOverlapping(ctx, day)
	if err != nil {
		return "", err
	}

	byID := make(map[string]listing)
	var eligible []string
	for _, e := range pool {
		if !e.Paid {
			continue
		}
		byID[e.ID] = listing{title: e.Title, imageURL: e.ImageURL}
		eligible = append(eligible, e.ID)
	}
	if len(eligible) == 0 {
		s.logger.Debug("no paid listings for spotlight", "date", day.Format("2006-01-02"))
		return "", nil
	}

	id, err := s.rotation.Draw(ctx, rotationCategory, eligible)
	if err != nil {
		return "", err
	}

	chosen := byID[id]
	imageURL := chosen.imageURL
	if s.rehoster != nil && imageURL != "" {
		if hosted := s.rehoster.RehostListing(ctx, imageURL, chosen.title); hosted != "" {
			imageURL = hosted
		}
	}

	if err := s.campaigns.SetPromo(ctx, campaignID, id, imageURL); err != nil {
		return "", err
	}

	s.logger.Info("spotlight selected", "campaign", campaignID, "event", id)
	return id, nil
}

type listing struct {
	title    string
	imageURL string
}
