package curation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/townwire/townwire/internal/metrics"
	"github.com/townwire/townwire/internal/models"
	"github.com/townwire/townwire/internal/oracle"
)

// FactChecker verifies a rewrite against its source text. Its pass/fail
// verdict gates article creation: a failing rewrite never becomes an article.
type FactChecker struct {
	oracle  oracle.Oracle
	logger  *slog.Logger
	metrics *metrics.PipelineCollector
}

// NewFactChecker builds a fact checker over the given oracle.
func NewFactChecker(o oracle.Oracle, logger *slog.Logger, collector *metrics.PipelineCollector) *FactChecker {
	return &FactChecker{oracle: o, logger: logger, metrics: collector}
}

// Check rates the rewrite's accuracy, timeliness and intent alignment
// against the original item. All three ratings must come back as numbers; a
// partial response is a per-item error.
func (f *FactChecker) Check(ctx context.Context, item models.Item, rewrite models.Rewrite) (models.FactCheck, error) {
	started := time.Now()
	resp, err := f.oracle.Complete(ctx, oracle.Request{
		Stage:    "factcheck",
		System:   factCheckSystemPrompt,
		Prompt:   factCheckPrompt(item, rewrite),
		JSONMode: true,
	})
	if f.metrics != nil {
		f.metrics.OracleCall("factcheck", time.Since(started))
	}
	if err != nil {
		return models.FactCheck{}, fmt.Errorf("oracle: %w", err)
	}

	var parsed struct {
		Accuracy   *float64 `json:"accuracy"`
		Timeliness *float64 `json:"timeliness"`
		Intent     *float64 `json:"intent"`
		Passed     *bool    `json:"passed"`
		Issues     string   `json:"issues"`
	}
	if err := oracle.Unmarshal(resp, &parsed); err != nil {
		return models.FactCheck{}, err
	}
	if parsed.Accuracy == nil || parsed.Timeliness == nil || parsed.Intent == nil {
		return models.FactCheck{}, oracle.NewShapeError("missing rating", resp)
	}
	if parsed.Passed == nil {
		return models.FactCheck{}, oracle.NewShapeError("missing verdict", resp)
	}

	check := models.FactCheck{
		Accuracy:   clampScore(*parsed.Accuracy),
		Timeliness: clampScore(*parsed.Timeliness),
		Intent:     clampScore(*parsed.Intent),
		Passed:     *parsed.Passed,
		Issues:     strings.TrimSpace(parsed.Issues),
	}
	check.Total = check.Accuracy + check.Timeliness + check.Intent
	return check, nil
}
