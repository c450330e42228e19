package events

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/townwire/townwire/internal/config"
	"github.com/townwire/townwire/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var day = time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)

func poolEvent(id string, featured, paid bool) models.CalendarEvent {
	return models.CalendarEvent{
		ID:        id,
		Title:     "Event " + id,
		StartDate: day.AddDate(0, 0, -1),
		EndDate:   day.AddDate(0, 0, 5),
		Featured:  featured,
		Paid:      paid,
		Active:    true,
	}
}

func newTestPopulator(repo EventRepository, maxPerDay, windowDays int) *Populator {
	p := NewPopulator(repo, config.EventsConfig{MaxPerDay: maxPerDay, WindowDays: windowDays}, testLogger())
	p.shuffle = func(n int, swap func(i, j int)) {}
	return p
}

func TestPopulateTierOrder(t *testing.T) {
	repo := NewMemoryEventRepository()
	repo.AddEvent(poolEvent("feat-1", true, false))
	repo.AddEvent(poolEvent("paid-1", false, true))
	repo.AddEvent(poolEvent("reg-1", false, false))
	repo.AddEvent(poolEvent("reg-2", false, false))

	p := newTestPopulator(repo, 3, 1)
	if err := p.Populate(context.Background(), "camp-1", day); err != nil {
		t.Fatalf("populate: %v", err)
	}

	selected, _ := repo.ListSelected(context.Background(), "camp-1", day)
	if len(selected) != 3 {
		t.Fatalf("selected %d events, want 3", len(selected))
	}

	byID := map[string]models.CampaignEvent{}
	for _, ce := range selected {
		byID[ce.EventID] = ce
	}

	feat, ok := byID["feat-1"]
	if !ok || !feat.Featured {
		t.Error("upstream-featured event missing or not marked featured")
	}
	paid, ok := byID["paid-1"]
	if !ok {
		t.Error("paid placement missing")
	} else if paid.Featured {
		t.Error("paid placement marked featured")
	}
}

func TestPopulatePromotesRegularWhenNoFeatured(t *testing.T) {
	repo := NewMemoryEventRepository()
	repo.AddEvent(poolEvent("paid-1", false, true))
	repo.AddEvent(poolEvent("reg-1", false, false))
	repo.AddEvent(poolEvent("reg-2", false, false))

	p := newTestPopulator(repo, 8, 1)
	if err := p.Populate(context.Background(), "camp-1", day); err != nil {
		t.Fatalf("populate: %v", err)
	}

	selected, _ := repo.ListSelected(context.Background(), "camp-1", day)
	featured := 0
	for _, ce := range selected {
		if ce.Featured {
			featured++
			if ce.EventID == "paid-1" {
				t.Error("paid placement promoted to featured")
			}
		}
	}
	if featured != 1 {
		t.Errorf("featured count = %d, want exactly 1", featured)
	}
}

func TestPopulateCapsPerDay(t *testing.T) {
	repo := NewMemoryEventRepository()
	for i := 0; i < 12; i++ {
		repo.AddEvent(poolEvent(fmt.Sprintf("reg-%d", i), false, false))
	}

	p := newTestPopulator(repo, 8, 1)
	if err := p.Populate(context.Background(), "camp-1", day); err != nil {
		t.Fatalf("populate: %v", err)
	}

	selected, _ := repo.ListSelected(context.Background(), "camp-1", day)
	if len(selected) != 8 {
		t.Errorf("selected %d events, want 8", len(selected))
	}
}

func TestPopulateReentrantFillsRemainingCapacityOnly(t *testing.T) {
	repo := NewMemoryEventRepository()
	repo.AddEvent(poolEvent("feat-1", true, false))
	for i := 0; i < 5; i++ {
		repo.AddEvent(poolEvent(fmt.Sprintf("reg-%d", i), false, false))
	}

	// A prior partial run already selected feat-1 and reg-0.
	for _, seed := range []models.CampaignEvent{
		{CampaignID: "camp-1", EventID: "feat-1", Date: day, Selected: true, Featured: true, Position: 1},
		{CampaignID: "camp-1", EventID: "reg-0", Date: day, Selected: true, Position: 2},
	} {
		if err := repo.InsertSelection(context.Background(), seed); err != nil {
			t.Fatalf("seed selection: %v", err)
		}
	}

	p := newTestPopulator(repo, 4, 1)
	if err := p.Populate(context.Background(), "camp-1", day); err != nil {
		t.Fatalf("populate: %v", err)
	}

	selected, _ := repo.ListSelected(context.Background(), "camp-1", day)
	if len(selected) != 4 {
		t.Fatalf("selected %d events, want 4", len(selected))
	}

	counts := map[string]int{}
	featured := 0
	for _, ce := range selected {
		counts[ce.EventID]++
		if ce.Featured {
			featured++
		}
	}
	for id, n := range counts {
		if n != 1 {
			t.Errorf("event %s selected %d times", id, n)
		}
	}
	// The prior run's featured selection satisfies the featured slot; no
	// regular event should be promoted on the re-run.
	if featured != 1 {
		t.Errorf("featured count = %d, want 1", featured)
	}
}

func TestPopulateCoversWholeWindow(t *testing.T) {
	repo := NewMemoryEventRepository()
	// One event per window day, each a single-day event.
	for i := 0; i < 3; i++ {
		e := poolEvent(fmt.Sprintf("day-%d", i), false, false)
		e.StartDate = day.AddDate(0, 0, i)
		e.EndDate = day.AddDate(0, 0, i)
		repo.AddEvent(e)
	}

	p := newTestPopulator(repo, 8, 3)
	if err := p.Populate(context.Background(), "camp-1", day); err != nil {
		t.Fatalf("populate: %v", err)
	}

	for i := 0; i < 3; i++ {
		d := day.AddDate(0, 0, i)
		selected, _ := repo.ListSelected(context.Background(), "camp-1", d)
		if len(selected) != 1 {
			t.Errorf("day %d selected %d events, want 1", i, len(selected))
			continue
		}
		if want := fmt.Sprintf("day-%d", i); selected[0].EventID != want {
			t.Errorf("day %d selected %s, want %s", i, selected[0].EventID, want)
		}
	}
}

func TestPopulateSkipsInactiveEvents(t *testing.T) {
	repo := NewMemoryEventRepository()
	e := poolEvent("reg-1", false, false)
	e.Active = false
	repo.AddEvent(e)

	p := newTestPopulator(repo, 8, 1)
	if err := p.Populate(context.Background(), "camp-1", day); err != nil {
		t.Fatalf("populate: %v", err)
	}

	selected, _ := repo.ListSelected(context.Background(), "camp-1", day)
	if len(selected) != 0 {
		t.Errorf("inactive event selected")
	}
}
