package curation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/townwire/townwire/internal/config"
	"github.com/townwire/townwire/internal/metrics"
	"github.com/townwire/townwire/internal/models"
)

// Producer runs rewrite then fact-check for each item and creates an
// article only for items whose rewrite passed the check. There is no bypass
// around the check: every article row went through it.
type Producer struct {
	rewriter *Rewriter
	checker  *FactChecker
	articles ArticleRepository
	cfg      config.CurationConfig
	logger   *slog.Logger
	metrics  *metrics.PipelineCollector
}

// NewProducer builds an article producer.
func NewProducer(rewriter *Rewriter, checker *FactChecker, articles ArticleRepository, cfg config.CurationConfig, logger *slog.Logger, collector *metrics.PipelineCollector) *Producer {
	return &Producer{
		rewriter: rewriter,
		checker:  checker,
		articles: articles,
		cfg:      cfg,
		logger:   logger,
		metrics:  collector,
	}
}

// ProduceResult summarizes one Produce pass.
type ProduceResult struct {
	Created int
	Failed  int // rewrite or check errored
	Dropped int // fact-check verdict was fail
	Skipped int // non-primary duplicate, excluded by configuration
}

// Produce rewrites and fact-checks every item in order. Blank-scored items
// are still rewritten; scoring blank only removes an item from ranking
// input, not from publication. When duplicate skipping is enabled,
// non-primary members of duplicate groups are excluded up front.
func (p *Producer) Produce(ctx context.Context, campaignID string, items []models.Item, groups []models.DuplicateGroup) ProduceResult {
	var result ProduceResult

	nonPrimary := map[string]bool{}
	if p.cfg.SkipDuplicates {
		nonPrimary = NonPrimaryIDs(groups)
	}

	for _, item := range items {
		if nonPrimary[item.ID] {
			result.Skipped++
			p.outcome("duplicate_skipped")
			p.logger.Debug("skipping duplicate item", "item", item.ID, "title", item.Title)
			continue
		}

		rewrite, err := p.rewriter.Rewrite(ctx, item)
		if err != nil {
			result.Failed++
			p.outcome("rewrite_failed")
			p.logger.Error("item rewrite failed", "item", item.ID, "title", item.Title, "error", err)
			continue
		}

		check, err := p.checker.Check(ctx, item, rewrite)
		if err != nil {
			result.Failed++
			p.outcome("check_failed")
			p.logger.Error("item fact-check failed", "item", item.ID, "title", item.Title, "error", err)
			continue
		}
		if !check.Passed {
			result.Dropped++
			p.outcome("check_rejected")
			p.logger.Warn("rewrite rejected by fact-check",
				"item", item.ID,
				"title", item.Title,
				"score", check.Total,
				"issues", check.Issues,
			)
			continue
		}

		article := models.Article{
			ID:         uuid.NewString(),
			CampaignID: campaignID,
			ItemID:     item.ID,
			Headline:   rewrite.Headline,
			Body:       rewrite.Body,
			WordCount:  rewrite.WordCount,
			SourceURL:  item.URL,
			Author:     item.Author,
			ImageURL:   item.ImageURL,
			FactScore:  check.Total,
			FactDetail: check.Issues,
			CreatedAt:  time.Now(),
		}
		if err := p.articles.Insert(ctx, article); err != nil {
			result.Failed++
			p.outcome("insert_failed")
			p.logger.Error("article insert failed", "item", item.ID, "error", err)
			continue
		}

		result.Created++
		p.outcome("created")
	}

	p.logger.Info("article production complete",
		"created", result.Created,
		"failed", result.Failed,
		"dropped", result.Dropped,
		"skipped", result.Skipped,
	)
	return result
}

func (p *Producer) outcome(result string) {
	if p.metrics != nil {
		p.metrics.StageOutcome("produce", result)
	}
}
