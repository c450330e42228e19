package rotation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pool(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("listing-%d", i+1)
	}
	return out
}

func TestDrawVisitsEveryIDOncePerCycle(t *testing.T) {
	store := NewMemoryStore()
	s := NewSelector(store, testLogger())
	eligible := pool(7)

	seen := make(map[string]int)
	for i := 0; i < len(eligible); i++ {
		id, err := s.Draw(context.Background(), "promo", eligible)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		seen[id]++
	}

	if len(seen) != len(eligible) {
		t.Fatalf("first cycle visited %d distinct ids, want %d", len(seen), len(eligible))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("id %s drawn %d times within one cycle", id, n)
		}
	}

	// The (N+1)th draw starts a fresh cycle and may repeat any id.
	id, err := s.Draw(context.Background(), "promo", eligible)
	if err != nil {
		t.Fatalf("draw after cycle: %v", err)
	}
	if id == "" {
		t.Fatalf("empty draw after reshuffle")
	}
}

func TestDrawPersistsCursorBetweenSelectors(t *testing.T) {
	store := NewMemoryStore()
	eligible := pool(4)

	seen := make(map[string]bool)
	// A new Selector per draw simulates separate pipeline runs sharing the
	// persisted state.
	for i := 0; i < len(eligible); i++ {
		s := NewSelector(store, testLogger())
		id, err := s.Draw(context.Background(), "promo", eligible)
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if seen[id] {
			t.Fatalf("id %s repeated before cycle completed", id)
		}
		seen[id] = true
	}
}

func TestDrawSkipsIDsRemovedFromPool(t *testing.T) {
	store := NewMemoryStore()
	s := NewSelector(store, testLogger())
	// Deterministic shuffle: identity permutation.
	s.shuffle = func(n int, swap func(i, j int)) {}

	full := []string{"a", "b", "c"}
	if _, err := s.Draw(context.Background(), "promo", full); err != nil {
		t.Fatalf("first draw: %v", err)
	}

	// "b" drops out of the pool; the next draw must return "c", not "b".
	id, err := s.Draw(context.Background(), "promo", []string{"a", "c"})
	if err != nil {
		t.Fatalf("second draw: %v", err)
	}
	if id != "c" {
		t.Errorf("draw = %q, want %q", id, "c")
	}
}

func TestDrawEmptyPool(t *testing.T) {
	s := NewSelector(NewMemoryStore(), testLogger())
	id, err := s.Draw(context.Background(), "promo", nil)
	if err != nil {
		t.Fatalf("draw: %v", err)
	}
	if id != "" {
		t.Errorf("draw = %q, want empty", id)
	}
}

func TestDrawNReturnsDistinctIDs(t *testing.T) {
	s := NewSelector(NewMemoryStore(), testLogger())
	eligible := pool(5)

	ids, err := s.DrawN(context.Background(), "promo", eligible, 3)
	if err != nil {
		t.Fatalf("drawN: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("drew %d ids, want 3", len(ids))
	}
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			t.Errorf("id %s repeated", id)
		}
		seen[id] = true
	}
}

func TestDrawNCappedByPoolSize(t *testing.T) {
	s := NewSelector(NewMemoryStore(), testLogger())
	ids, err := s.DrawN(context.Background(), "promo", pool(2), 10)
	if err != nil {
		t.Fatalf("drawN: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("drew %d ids, want 2", len(ids))
	}
}

func TestDrawSavesStateEachDraw(t *testing.T) {
	store := NewMemoryStore()
	s := NewSelector(store, testLogger())
	eligible := pool(3)

	for i := 0; i < 2; i++ {
		if _, err := s.Draw(context.Background(), "promo", eligible); err != nil {
			t.Fatalf("draw: %v", err)
		}
	}
	if store.Saves != 2 {
		t.Errorf("saves = %d, want 2", store.Saves)
	}

	state, err := store.Get(context.Background(), "promo")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	if state.Cursor != 2 {
		t.Errorf("cursor = %d, want 2", state.Cursor)
	}
}
