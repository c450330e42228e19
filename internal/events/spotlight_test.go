package events

import (
	"context"
	"testing"

	"github.com/townwire/townwire/internal/rotation"
)

type promoRecorder struct {
	eventIDs  []string
	imageURLs []string
}

func (p *promoRecorder) SetPromo(ctx context.Context, campaignID, eventID, imageURL string) error {
	p.eventIDs = append(p.eventIDs, eventID)
	p.imageURLs = append(p.imageURLs, imageURL)
	return nil
}

type stubListingRehoster struct {
	hosted string
	calls  int
}

func (s *stubListingRehoster) RehostListing(ctx context.Context, srcURL, label string) string {
	s.calls++
	return s.hosted
}

func TestSpotlightRotatesThroughPaidPool(t *testing.T) {
	repo := NewMemoryEventRepository()
	repo.AddEvent(poolEvent("paid-1", false, true))
	repo.AddEvent(poolEvent("paid-2", false, true))
	repo.AddEvent(poolEvent("paid-3", false, true))
	repo.AddEvent(poolEvent("reg-1", false, false))
	repo.AddEvent(poolEvent("feat-1", true, false))

	promos := &promoRecorder{}
	s := NewSpotlight(repo, rotation.NewSelector(rotation.NewMemoryStore(), testLogger()), promos, nil, testLogger())

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		id, err := s.Select(context.Background(), "camp-1", day)
		if err != nil {
			t.Fatalf("select %d: %v", i, err)
		}
		if id == "reg-1" || id == "feat-1" {
			t.Fatalf("non-paid event %s chosen for spotlight", id)
		}
		seen[id] = true
	}

	// One full cycle visits every paid listing exactly once.
	if len(seen) != 3 {
		t.Errorf("3 selections chose %d distinct paid listings, want 3", len(seen))
	}
	if len(promos.eventIDs) != 3 {
		t.Errorf("stored %d promos, want 3", len(promos.eventIDs))
	}
}

func TestSpotlightSkipsWhenNoPaidListings(t *testing.T) {
	repo := NewMemoryEventRepository()
	repo.AddEvent(poolEvent("reg-1", false, false))

	promos := &promoRecorder{}
	s := NewSpotlight(repo, rotation.NewSelector(rotation.NewMemoryStore(), testLogger()), promos, nil, testLogger())

	id, err := s.Select(context.Background(), "camp-1", day)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if id != "" {
		t.Errorf("chose %s with no paid listings", id)
	}
	if len(promos.eventIDs) != 0 {
		t.Errorf("stored a promo with no paid listings")
	}
}

func TestSpotlightRehostsListingImage(t *testing.T) {
	repo := NewMemoryEventRepository()
	e := poolEvent("paid-1", false, true)
	e.ImageURL = "https://example.com/flyer.png"
	repo.AddEvent(e)

	promos := &promoRecorder{}
	rehoster := &stubListingRehoster{hosted: "https://cdn.example.com/listing/abc.jpg"}
	s := NewSpotlight(repo, rotation.NewSelector(rotation.NewMemoryStore(), testLogger()), promos, rehoster, testLogger())

	if _, err := s.Select(context.Background(), "camp-1", day); err != nil {
		t.Fatalf("select: %v", err)
	}
	if rehoster.calls != 1 {
		t.Fatalf("rehoster called %d times, want 1", rehoster.calls)
	}
	if got := promos.imageURLs[0]; got != rehoster.hosted {
		t.Errorf("promo image = %q, want hosted URL", got)
	}
}

func TestSpotlightKeepsOriginalImageOnRehostFailure(t *testing.T) {
	repo := NewMemoryEventRepository()
	e := poolEvent("paid-1", false, true)
	e.ImageURL = "https://example.com/flyer.png"
	repo.AddEvent(e)

	promos := &promoRecorder{}
	s := NewSpotlight(repo, rotation.NewSelector(rotation.NewMemoryStore(), testLogger()), promos, &stubListingRehoster{hosted: ""}, testLogger())

	if _, err := s.Select(context.Background(), "camp-1", day); err != nil {
		t.Fatalf("select: %v", err)
	}
	if got := promos.imageURLs[0]; got != e.ImageURL {
		t.Errorf("promo image = %q, want original %q", got, e.ImageURL)
	}
}
