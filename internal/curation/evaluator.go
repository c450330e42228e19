package curation

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/townwire/townwire/internal/config"
	"github.com/townwire/townwire/internal/ingestion"
	"github.com/townwire/townwire/internal/metrics"
	"github.com/townwire/townwire/internal/models"
	"github.com/townwire/townwire/internal/oracle"
)

// Sub-score weights for the evaluation total. Interest and relevance count
// double because they track reader pull; impact breaks ties between stories
// of equal pull.
const (
	interestWeight  = 2
	relevanceWeight = 2
	impactWeight    = 1
)

var (
	// Routine forecast items: the newsletter has a dedicated weather
	// section, so "today's weather" style items score blank.
	weatherRe = regexp.MustCompile(`(?i)\b(today'?s?|tomorrow'?s?|tonight'?s?)\s+(weather|forecast)\b|\bweather\s+(today|tomorrow|tonight)\b|\bforecast\s+for\s+(today|tomorrow|tonight)\b`)

	// Same-evening event announcements have expired by the time the next
	// morning's edition goes out.
	tonightRe = regexp.MustCompile(`(?i)\btonight\b`)
)

// Evaluator scores raw items with the oracle in bounded concurrent batches.
type Evaluator struct {
	oracle  oracle.Oracle
	repo    ingestion.ItemRepository
	cfg     config.CurationConfig
	logger  *slog.Logger
	metrics *metrics.PipelineCollector
	sleep   func(time.Duration)
}

// NewEvaluator builds an evaluator over the given oracle and item store.
func NewEvaluator(o oracle.Oracle, repo ingestion.ItemRepository, cfg config.CurationConfig, logger *slog.Logger, collector *metrics.PipelineCollector) *Evaluator {
	return &Evaluator{
		oracle:  o,
		repo:    repo,
		cfg:     cfg,
		logger:  logger,
		metrics: collector,
		sleep:   time.Sleep,
	}
}

// EvaluateResult summarizes one EvaluateAll pass.
type EvaluateResult struct {
	Scored int
	Blank  int
	Failed int
}

// EvaluateAll scores every item, saving one evaluation per scored item.
// Items are processed in fixed-size batches with a pause between batches so
// the oracle's rate limit is respected even across stages. A single item's
// failure is logged and counted without stopping the batch.
func (e *Evaluator) EvaluateAll(ctx context.Context, items []models.Item) EvaluateResult {
	var (
		result EvaluateResult
		mu     sync.Mutex
	)

	for start := 0; start < len(items); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for _, item := range items[start:end] {
			wg.Add(1)
			go func(item models.Item) {
				defer wg.Done()

				scored, err := e.evaluateOne(ctx, item)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err != nil:
					result.Failed++
					e.logger.Error("item evaluation failed", "item", item.ID, "title", item.Title, "error", err)
					e.outcome("failed")
				case !scored:
					result.Blank++
					e.outcome("blank")
				default:
					result.Scored++
					e.outcome("scored")
				}
			}(item)
		}
		wg.Wait()

		if end < len(items) && e.cfg.BatchDelay > 0 {
			e.sleep(e.cfg.BatchDelay)
		}
	}

	return result
}

// evaluateOne scores a single item. It returns (false, nil) when the
// blank-rating policy applies and no evaluation is saved.
func (e *Evaluator) evaluateOne(ctx context.Context, item models.Item) (bool, error) {
	if reason := e.blankReason(item); reason != "" {
		e.logger.Debug("item scored blank", "item", item.ID, "title", item.Title, "reason", reason)
		return false, nil
	}

	started := time.Now()
	resp, err := e.oracle.Complete(ctx, oracle.Request{
		Stage:    "evaluate",
		System:   evaluateSystemPrompt,
		Prompt:   evaluatePrompt(item),
		JSONMode: true,
	})
	if e.metrics != nil {
		e.metrics.OracleCall("evaluate", time.Since(started))
	}
	if err != nil {
		return false, fmt.Errorf("oracle: %w", err)
	}

	var parsed struct {
		Interest  *float64 `json:"interest"`
		Relevance *float64 `json:"relevance"`
		Impact    *float64 `json:"impact"`
		Reasoning string   `json:"reasoning"`
	}
	if err := oracle.Unmarshal(resp, &parsed); err != nil {
		return false, err
	}
	if parsed.Interest == nil || parsed.Relevance == nil || parsed.Impact == nil {
		return false, oracle.NewShapeError("missing sub-score", resp)
	}

	eval := models.Evaluation{
		ItemID:    item.ID,
		Interest:  clampScore(*parsed.Interest),
		Relevance: clampScore(*parsed.Relevance),
		Impact:    clampScore(*parsed.Impact),
		Reasoning: strings.TrimSpace(parsed.Reasoning),
		CreatedAt: time.Now(),
	}
	eval.Total = eval.Interest*interestWeight + eval.Relevance*relevanceWeight + eval.Impact*impactWeight
	if e.localityCount(item) >= 2 {
		eval.Total += e.cfg.LocalityBonus
	}

	if err := e.repo.SaveEvaluation(ctx, eval); err != nil {
		return false, fmt.Errorf("save evaluation: %w", err)
	}

	e.logger.Debug("item evaluated",
		"item", item.ID,
		"interest", eval.Interest,
		"relevance", eval.Relevance,
		"impact", eval.Impact,
		"total", eval.Total,
	)
	return true, nil
}

// blankReason returns why the item scores blank, or "" when it should be
// scored normally.
func (e *Evaluator) blankReason(item models.Item) string {
	if item.DescriptionWordCount() < e.cfg.MinDescriptionWords {
		return "description too short"
	}
	if weatherRe.MatchString(item.Title) || weatherRe.MatchString(item.Description) {
		return "routine weather item"
	}
	if tonightRe.MatchString(item.Title) {
		return "tonight pre-announcement"
	}
	return ""
}

// localityCount counts how many configured localities the item mentions.
func (e *Evaluator) localityCount(item models.Item) int {
	text := strings.ToLower(item.Title + " " + item.Text())
	count := 0
	for _, loc := range e.cfg.Localities {
		if strings.Contains(text, strings.ToLower(loc)) {
			count++
		}
	}
	return count
}

func (e *Evaluator) outcome(result string) {
	if e.metrics != nil {
		e.metrics.StageOutcome("evaluate", result)
	}
}

func clampScore(v float64) int {
	n := int(v)
	if n < 1 {
		return 1
	}
	if n > 10 {
		return 10
	}
	return n
}
