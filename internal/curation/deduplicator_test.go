package curation

import (
	"context"
	"errors"
	"testing"

	"github.com/townwire/townwire/internal/models"
	"github.com/townwire/townwire/internal/oracle"
)

func TestFindDuplicatesGroupsItems(t *testing.T) {
	scripted := oracle.NewScriptedOracle().Queue("dedupe",
		`{"groups": [{"primary_index": 0, "topic": "warehouse fire", "duplicates": [{"index": 2, "similarity": 0.91}]}], "unique_indices": [1]}`,
	)
	d := NewDeduplicator(scripted, testLogger(), nil)

	items := []models.Item{
		testItem("item-1", "Fire at warehouse", "Crews responded to a warehouse fire on the east side"),
		testItem("item-2", "Farmers market Saturday", "The weekly market returns to the square this weekend"),
		testItem("item-3", "Warehouse blaze draws crews", "Firefighters battled an east side warehouse blaze"),
	}

	groups := d.FindDuplicates(context.Background(), items)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if groups[0].PrimaryItemID != "item-1" {
		t.Errorf("primary = %q, want item-1", groups[0].PrimaryItemID)
	}
	if len(groups[0].Members) != 1 || groups[0].Members[0].ItemID != "item-3" {
		t.Errorf("members = %+v", groups[0].Members)
	}
	if groups[0].Members[0].Similarity != 0.91 {
		t.Errorf("similarity = %v", groups[0].Members[0].Similarity)
	}
}

func TestFindDuplicatesSkipsWithFewerThanTwoItems(t *testing.T) {
	scripted := oracle.NewScriptedOracle()
	d := NewDeduplicator(scripted, testLogger(), nil)

	items := []models.Item{testItem("item-1", "Only story today", "A quiet news day with a single story worth covering")}
	if groups := d.FindDuplicates(context.Background(), items); groups != nil {
		t.Errorf("expected nil groups, got %+v", groups)
	}
	if n := scripted.CallCount("dedupe"); n != 0 {
		t.Errorf("oracle called %d times for single item", n)
	}
}

func TestFindDuplicatesOracleFailureDegrades(t *testing.T) {
	scripted := oracle.NewScriptedOracle().Fail("dedupe", errors.New("upstream down"))
	d := NewDeduplicator(scripted, testLogger(), nil)

	items := []models.Item{
		testItem("item-1", "First", "First story description with some detail"),
		testItem("item-2", "Second", "Second story description with some detail"),
	}
	if groups := d.FindDuplicates(context.Background(), items); groups != nil {
		t.Errorf("expected nil groups on failure, got %+v", groups)
	}
}

func TestFindDuplicatesDropsBadIndices(t *testing.T) {
	scripted := oracle.NewScriptedOracle().Queue("dedupe",
		`{"groups": [
			{"primary_index": 99, "topic": "out of range", "duplicates": [{"index": 0, "similarity": 0.9}]},
			{"primary_index": 0, "topic": "self reference", "duplicates": [{"index": 0, "similarity": 1.0}, {"index": 7, "similarity": 0.8}]}
		], "unique_indices": []}`,
	)
	d := NewDeduplicator(scripted, testLogger(), nil)

	items := []models.Item{
		testItem("item-1", "First", "First story description with some detail"),
		testItem("item-2", "Second", "Second story description with some detail"),
	}
	if groups := d.FindDuplicates(context.Background(), items); len(groups) != 0 {
		t.Errorf("expected bad groups dropped, got %+v", groups)
	}
}

func TestNonPrimaryIDs(t *testing.T) {
	groups := []models.DuplicateGroup{
		{PrimaryItemID: "a", Members: []models.DuplicateMember{{ItemID: "b"}, {ItemID: "c"}}},
		{PrimaryItemID: "d", Members: []models.DuplicateMember{{ItemID: "e"}}},
	}
	got := NonPrimaryIDs(groups)
	for _, id := range []string{"b", "c", "e"} {
		if !got[id] {
			t.Errorf("missing non-primary id %q", id)
		}
	}
	if got["a"] || got["d"] {
		t.Error("primary ids marked as duplicates")
	}
}
