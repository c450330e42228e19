package campaign

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/townwire/townwire/internal/alert"
	"github.com/townwire/townwire/internal/archive"
	"github.com/townwire/townwire/internal/config"
	"github.com/townwire/townwire/internal/curation"
	"github.com/townwire/townwire/internal/events"
	"github.com/townwire/townwire/internal/ingestion"
	"github.com/townwire/townwire/internal/models"
	"github.com/townwire/townwire/internal/oracle"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rssFeed(now time.Time, titles ...string) string {
	var items strings.Builder
	for i, title := range titles {
		fmt.Fprintf(&items, `
		<item>
			<title>%s</title>
			<link>https://example.com/story-%d</link>
			<guid>story-%d</guid>
			<description>A detailed local story description long enough to clear the minimum word count threshold for evaluation.</description>
			<pubDate>%s</pubDate>
		</item>`, title, i+1, i+1, now.Add(-2*time.Hour).Format(time.RFC1123Z))
	}
	return `<?xml version="1.0"?><rss version="2.0"><channel><title>Test Feed</title>` + items.String() + `</channel></rss>`
}

type fixture struct {
	orchestrator *Orchestrator
	campaigns    *MemoryRepository
	items        *ingestion.MemoryItemRepository
	articles     *curation.MemoryArticleRepository
	alerts       *alert.MemorySink
	scripted     *oracle.ScriptedOracle
	server       *httptest.Server
}

func newFixture(t *testing.T, scripted *oracle.ScriptedOracle, feedXML string) *fixture {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, feedXML)
	}))
	t.Cleanup(server.Close)

	cfg := config.CurationConfig{
		BatchSize:           1, // deterministic item-to-response pairing
		TopK:                5,
		MinDescriptionWords: 5,
		LowArticleThreshold: 2,
		LocalityBonus:       3,
		RewriteMinWords:     40,
		RewriteMaxWords:     75,
	}

	campaigns := NewMemoryRepository()
	items := ingestion.NewMemoryItemRepository()
	articles := curation.NewMemoryArticleRepository()
	alerts := &alert.MemorySink{}
	logger := testLogger()

	// Selection reads each article's evaluation total through the article
	// repository; the memory fake wires that join up by hand.
	evaluator := curation.NewEvaluator(scripted, &scoreMirror{repo: items, articles: articles}, cfg, logger, nil)
	producer := curation.NewProducer(
		curation.NewRewriter(scripted, cfg, logger, nil),
		curation.NewFactChecker(scripted, logger, nil),
		articles, cfg, logger, nil,
	)

	deps := Deps{
		Campaigns: campaigns,
		Items:     items,
		Articles:  articles,
		Adapter:   ingestion.NewAdapter(items, nil, nil, nil, logger, nil),
		Evaluator: evaluator,
		Dedup:     curation.NewDeduplicator(scripted, logger, nil),
		Producer:  producer,
		Selector:  curation.NewSelector(articles, campaigns, scripted, cfg, logger, nil),
		Events:    events.NewPopulator(events.NewMemoryEventRepository(), config.EventsConfig{MaxPerDay: 8, WindowDays: 3}, logger),
		Archiver:  archive.NewArchiver(items, articles, archive.NewMemoryStore(), logger),
		Alerts:    alerts,
	}

	sources := []models.SourceFeed{{ID: "test", Name: "Test Feed", URL: server.URL, Active: true}}
	o := NewOrchestrator(deps, sources, cfg, time.UTC, logger)
	return &fixture{
		orchestrator: o,
		campaigns:    campaigns,
		items:        items,
		articles:     articles,
		alerts:       alerts,
		scripted:     scripted,
		server:       server,
	}
}

// scoreMirror saves evaluations to the item repository and mirrors their
// totals into the article repository's score index, standing in for the SQL
// join the postgres repositories do.
type scoreMirror struct {
	repo     *ingestion.MemoryItemRepository
	articles *curation.MemoryArticleRepository
}

func (m *scoreMirror) Insert(ctx context.Context, item models.Item) (bool, error) {
	return m.repo.Insert(ctx, item)
}

func (m *scoreMirror) ListByCampaign(ctx context.Context, campaignID string) ([]models.Item, error) {
	return m.repo.ListByCampaign(ctx, campaignID)
}

func (m *scoreMirror) UpdateImageURL(ctx context.Context, itemID, imageURL string) error {
	return m.repo.UpdateImageURL(ctx, itemID, imageURL)
}

func (m *scoreMirror) DeleteByCampaign(ctx context.Context, campaignID string) (int, error) {
	return m.repo.DeleteByCampaign(ctx, campaignID)
}

func (m *scoreMirror) SaveEvaluation(ctx context.Context, eval models.Evaluation) error {
	m.articles.SetScore(eval.ItemID, eval.Total)
	return m.repo.SaveEvaluation(ctx, eval)
}

func (m *scoreMirror) ListEvaluations(ctx context.Context, campaignID string) ([]models.Evaluation, error) {
	return m.repo.ListEvaluations(ctx, campaignID)
}

const passingRewrite = `{"headline": "Local story lands", "body": "A concise retelling of the local story with every fact drawn from the source text itself, covering who was involved, what happened, where it took place, and when readers can expect the next development.", "word_count": 41}`

func TestRunEndToEnd(t *testing.T) {
	scripted := oracle.NewScriptedOracle().
		Queue("evaluate",
			`{"interest": 8, "relevance": 8, "impact": 7, "reasoning": "strong"}`,
			`{"interest": 4, "relevance": 4, "impact": 3, "reasoning": "weak"}`,
		).
		Queue("dedupe", `{"groups": [], "unique_indices": [0, 1]}`).
		Queue("rewrite", passingRewrite, passingRewrite).
		Queue("factcheck",
			`{"accuracy": 9, "timeliness": 9, "intent": 9, "passed": true, "issues": ""}`,
			`{"accuracy": 4, "timeliness": 8, "intent": 6, "passed": false, "issues": "invented a quote"}`,
		).
		Queue("subject", `{"subject": "Your morning briefing"}`)

	f := newFixture(t, scripted, rssFeed(time.Now(), "Council approves budget", "Warehouse fire update"))

	if err := f.orchestrator.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	date := models.DateKey(time.Now(), time.UTC)
	camp, err := f.campaigns.GetByDate(context.Background(), date)
	if err != nil || camp == nil {
		t.Fatalf("campaign lookup: camp=%v err=%v", camp, err)
	}
	if camp.Status != models.CampaignStatusDraft {
		t.Errorf("status = %s, want draft", camp.Status)
	}
	if camp.SubjectLine != "Your morning briefing" {
		t.Errorf("subject = %q", camp.SubjectLine)
	}

	// Item 2 failed the fact-check gate: exactly one article exists.
	articles, _ := f.articles.ListByCampaign(context.Background(), camp.ID)
	if len(articles) != 1 {
		t.Fatalf("expected 1 article, got %d", len(articles))
	}
	if !articles[0].Active {
		t.Error("surviving article not active")
	}

	// One active article is at or below the low threshold of 2.
	warned := false
	for _, a := range f.alerts.Alerts {
		if a.Severity == alert.SeverityWarning {
			warned = true
		}
	}
	if !warned {
		t.Error("low active article count raised no warning")
	}
}

func TestRunReprocessReplacesWorkingSet(t *testing.T) {
	responses := func(s *oracle.ScriptedOracle) {
		s.Queue("evaluate", `{"interest": 7, "relevance": 7, "impact": 7, "reasoning": "solid"}`).
			Queue("rewrite", passingRewrite).
			Queue("factcheck", `{"accuracy": 9, "timeliness": 9, "intent": 9, "passed": true, "issues": ""}`).
			Queue("subject", `{"subject": "Morning briefing"}`)
	}

	scripted := oracle.NewScriptedOracle()
	responses(scripted)
	responses(scripted)

	f := newFixture(t, scripted, rssFeed(time.Now(), "Only story"))

	for run := 0; run < 2; run++ {
		if err := f.orchestrator.Run(context.Background()); err != nil {
			t.Fatalf("run %d: %v", run+1, err)
		}
	}

	date := models.DateKey(time.Now(), time.UTC)
	camp, _ := f.campaigns.GetByDate(context.Background(), date)

	articles, _ := f.articles.ListByCampaign(context.Background(), camp.ID)
	if len(articles) != 1 {
		t.Fatalf("after reprocess expected 1 article, got %d", len(articles))
	}

	items, _ := f.items.ListByCampaign(context.Background(), camp.ID)
	if len(items) != 1 {
		t.Fatalf("after reprocess expected 1 item, got %d", len(items))
	}

	// The second run must not regenerate the subject line.
	if n := scripted.CallCount("subject"); n != 1 {
		t.Errorf("subject generated %d times across reruns, want 1", n)
	}
}

func TestRunAlertsOnRunLevelFailure(t *testing.T) {
	scripted := oracle.NewScriptedOracle().
		Queue("evaluate", `{"interest": 7, "relevance": 7, "impact": 7}`).
		Queue("rewrite", passingRewrite).
		Queue("factcheck", `{"accuracy": 9, "timeliness": 9, "intent": 9, "passed": true, "issues": ""}`).
		Queue("subject", `{"subject": "Morning briefing"}`)

	f := newFixture(t, scripted, rssFeed(time.Now(), "Only story"))
	f.orchestrator.deps.Selector = curation.NewSelector(
		failingArticles{f.articles}, f.campaigns, scripted,
		config.CurationConfig{TopK: 5}, testLogger(), nil,
	)

	if err := f.orchestrator.Run(context.Background()); err == nil {
		t.Fatal("expected run-level error")
	}

	errored := false
	for _, a := range f.alerts.Alerts {
		if a.Severity == alert.SeverityError && strings.Contains(a.Message, "select") {
			errored = true
		}
	}
	if !errored {
		t.Error("run-level failure raised no error alert naming the stage")
	}

	// The failure struck before finalize: the campaign stays processing.
	date := models.DateKey(time.Now(), time.UTC)
	camp, _ := f.campaigns.GetByDate(context.Background(), date)
	if camp.Status != models.CampaignStatusProcessing {
		t.Errorf("status = %s, want processing", camp.Status)
	}
}

type failingArticles struct {
	*curation.MemoryArticleRepository
}

func (f failingArticles) ListScored(ctx context.Context, campaignID string) ([]curation.ScoredArticle, error) {
	return nil, fmt.Errorf("datastore unreachable")
}
