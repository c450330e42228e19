package curation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/townwire/townwire/internal/config"
	"github.com/townwire/townwire/internal/metrics"
	"github.com/townwire/townwire/internal/oracle"
)

// Selector activates the top K articles by evaluation total and triggers
// subject-line generation off the highest-scoring active article.
type Selector struct {
	articles  ArticleRepository
	campaigns SubjectStore
	oracle    oracle.Oracle
	cfg       config.CurationConfig
	logger    *slog.Logger
	metrics   *metrics.PipelineCollector
}

// NewSelector builds a selector.
func NewSelector(articles ArticleRepository, campaigns SubjectStore, o oracle.Oracle, cfg config.CurationConfig, logger *slog.Logger, collector *metrics.PipelineCollector) *Selector {
	return &Selector{
		articles:  articles,
		campaigns: campaigns,
		oracle:    o,
		cfg:       cfg,
		logger:    logger,
		metrics:   collector,
	}
}

// SelectTop sorts the campaign's articles by their item's evaluation total,
// descending, and marks exactly the top K active. The sort is stable: ties
// keep insertion order. Every article gets an explicit active flag and the
// active set gets 1-based ranks. Returns the number of active articles.
func (s *Selector) SelectTop(ctx context.Context, campaignID string) (int, error) {
	scored, err := s.articles.ListScored(ctx, campaignID)
	if err != nil {
		return 0, fmt.Errorf("list articles: %w", err)
	}
	if len(scored) == 0 {
		s.logger.Warn("no articles to select", "campaign", campaignID)
		return 0, nil
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	active := len(scored)
	if active > s.cfg.TopK {
		active = s.cfg.TopK
	}

	for i, a := range scored {
		if i < active {
			rank := i + 1
			if err := s.articles.SetActive(ctx, a.ID, true, &rank); err != nil {
				return 0, fmt.Errorf("activate article %s: %w", a.ID, err)
			}
		} else {
			if err := s.articles.SetActive(ctx, a.ID, false, nil); err != nil {
				return 0, fmt.Errorf("deactivate article %s: %w", a.ID, err)
			}
		}
	}

	s.logger.Info("selection complete", "campaign", campaignID, "articles", len(scored), "active", active)

	// Subject-line generation hangs off the top story. Best-effort: a
	// failure leaves the subject unset, it never fails the selection.
	if err := s.ensureSubjectLine(ctx, campaignID, scored[0]); err != nil {
		s.logger.Warn("subject line generation failed", "campaign", campaignID, "error", err)
	}

	return active, nil
}

// ensureSubjectLine generates and stores a subject line from the top
// article. It is idempotent: an existing subject line is never replaced.
func (s *Selector) ensureSubjectLine(ctx context.Context, campaignID string, top ScoredArticle) error {
	existing, err := s.campaigns.GetSubjectLine(ctx, campaignID)
	if err != nil {
		return fmt.Errorf("get subject line: %w", err)
	}
	if existing != "" {
		s.logger.Debug("subject line already set", "campaign", campaignID)
		return nil
	}

	started := time.Now()
	resp, err := s.oracle.Complete(ctx, oracle.Request{
		Stage:    "subject",
		System:   subjectSystemPrompt,
		Prompt:   subjectPrompt(top.Headline, top.Body),
		JSONMode: true,
	})
	if s.metrics != nil {
		s.metrics.OracleCall("subject", time.Since(started))
	}
	if err != nil {
		return fmt.Errorf("oracle: %w", err)
	}

	var parsed struct {
		Subject string `json:"subject"`
	}
	if err := oracle.Unmarshal(resp, &parsed); err != nil {
		return err
	}
	subject := strings.TrimSpace(parsed.Subject)
	if subject == "" {
		return oracle.NewShapeError("empty subject", resp)
	}

	if err := s.campaigns.SetSubjectLine(ctx, campaignID, subject); err != nil {
		return fmt.Errorf("set subject line: %w", err)
	}
	s.logger.Info("subject line set", "campaign", campaignID, "subject", subject)
	return nil
}
