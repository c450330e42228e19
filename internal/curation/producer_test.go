package curation

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/townwire/townwire/internal/models"
	"github.com/townwire/townwire/internal/oracle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const passingRewrite = `{"headline": "Council approves budget", "body": "The city council approved next year's budget Tuesday night after a lengthy public session, setting aside new money for road repairs, the library expansion, and two additional firefighter positions starting this summer across town.", "word_count": 42}`

const passingCheck = `{"accuracy": 9, "timeliness": 9, "intent": 9, "passed": true, "issues": ""}`
const failingCheck = `{"accuracy": 3, "timeliness": 7, "intent": 5, "passed": false, "issues": "blurb invents a dollar figure"}`

func newTestProducer(o oracle.Oracle, articles ArticleRepository, skipDuplicates bool) *Producer {
	cfg := testCurationConfig()
	cfg.SkipDuplicates = skipDuplicates
	rewriter := NewRewriter(o, cfg, testLogger(), nil)
	checker := NewFactChecker(o, testLogger(), nil)
	return NewProducer(rewriter, checker, articles, cfg, testLogger(), nil)
}

func TestProducePassingItemCreatesOneArticle(t *testing.T) {
	articles := NewMemoryArticleRepository()
	scripted := oracle.NewScriptedOracle().
		Queue("rewrite", passingRewrite).
		Queue("factcheck", passingCheck)

	p := newTestProducer(scripted, articles, false)
	item := testItem("item-1", "Council approves budget", "The city council approved next year's budget after a long session")

	result := p.Produce(context.Background(), "camp-1", []models.Item{item}, nil)
	if result.Created != 1 || result.Failed != 0 || result.Dropped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, err := articles.ListByCampaign(context.Background(), "camp-1")
	if err != nil {
		t.Fatalf("list articles: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected exactly 1 article, got %d", len(got))
	}

	a := got[0]
	if a.ItemID != item.ID {
		t.Errorf("article item id = %q, want %q", a.ItemID, item.ID)
	}
	if a.SourceURL != item.URL {
		t.Errorf("source url = %q, want %q", a.SourceURL, item.URL)
	}
	if a.FactScore != 27 {
		t.Errorf("fact score = %d, want 27", a.FactScore)
	}
	if a.Active {
		t.Error("article active before selection")
	}
}

func TestProduceFailingCheckCreatesNoArticle(t *testing.T) {
	articles := NewMemoryArticleRepository()
	scripted := oracle.NewScriptedOracle().
		Queue("rewrite", passingRewrite).
		Queue("factcheck", failingCheck)

	p := newTestProducer(scripted, articles, false)
	item := testItem("item-1", "Council approves budget", "The city council approved next year's budget after a long session")

	result := p.Produce(context.Background(), "camp-1", []models.Item{item}, nil)
	if result.Dropped != 1 || result.Created != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, _ := articles.ListByCampaign(context.Background(), "camp-1")
	if len(got) != 0 {
		t.Fatalf("fact-check failure still created %d articles", len(got))
	}
}

func TestProduceRewriteFailureSkipsItemOnly(t *testing.T) {
	articles := NewMemoryArticleRepository()
	scripted := oracle.NewScriptedOracle().
		Queue("rewrite", `not json at all`, passingRewrite).
		Queue("factcheck", passingCheck)

	p := newTestProducer(scripted, articles, false)
	items := []models.Item{
		testItem("item-1", "First story", "A first local story with enough words in its description to matter"),
		testItem("item-2", "Second story", "A second local story with enough words in its description to matter"),
	}

	result := p.Produce(context.Background(), "camp-1", items, nil)
	if result.Failed != 1 || result.Created != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	// Every rewrite that succeeded must have been fact-checked.
	if n := scripted.CallCount("factcheck"); n != 1 {
		t.Errorf("factcheck called %d times, want 1", n)
	}
}

func TestProduceSkipsNonPrimaryDuplicatesWhenConfigured(t *testing.T) {
	articles := NewMemoryArticleRepository()
	scripted := oracle.NewScriptedOracle().
		Queue("rewrite", passingRewrite).
		Queue("factcheck", passingCheck)

	p := newTestProducer(scripted, articles, true)
	items := []models.Item{
		testItem("item-1", "Fire at warehouse", "Crews responded to a warehouse fire on the east side late Monday"),
		testItem("item-2", "Warehouse blaze draws crews", "Firefighters battled a blaze at an east side warehouse Monday night"),
	}
	groups := []models.DuplicateGroup{{
		PrimaryItemID: "item-1",
		Topic:         "warehouse fire",
		Members:       []models.DuplicateMember{{ItemID: "item-2", Similarity: 0.93}},
	}}

	result := p.Produce(context.Background(), "camp-1", items, groups)
	if result.Created != 1 || result.Skipped != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}

	got, _ := articles.ListByCampaign(context.Background(), "camp-1")
	if len(got) != 1 || got[0].ItemID != "item-1" {
		t.Fatalf("expected only the primary item's article, got %+v", got)
	}
}

func TestProduceKeepsDuplicatesByDefault(t *testing.T) {
	articles := NewMemoryArticleRepository()
	scripted := oracle.NewScriptedOracle().
		Queue("rewrite", passingRewrite, passingRewrite).
		Queue("factcheck", passingCheck, passingCheck)

	p := newTestProducer(scripted, articles, false)
	items := []models.Item{
		testItem("item-1", "Fire at warehouse", "Crews responded to a warehouse fire on the east side late Monday"),
		testItem("item-2", "Warehouse blaze draws crews", "Firefighters battled a blaze at an east side warehouse Monday night"),
	}
	groups := []models.DuplicateGroup{{
		PrimaryItemID: "item-1",
		Topic:         "warehouse fire",
		Members:       []models.DuplicateMember{{ItemID: "item-2", Similarity: 0.93}},
	}}

	result := p.Produce(context.Background(), "camp-1", items, groups)
	if result.Created != 2 || result.Skipped != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}
}
