package curation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/townwire/townwire/internal/config"
	"github.com/townwire/townwire/internal/metrics"
	"github.com/townwire/townwire/internal/models"
	"github.com/townwire/townwire/internal/oracle"
)

// Rewriter condenses a raw item into a short newsletter blurb.
type Rewriter struct {
	oracle  oracle.Oracle
	cfg     config.CurationConfig
	logger  *slog.Logger
	metrics *metrics.PipelineCollector
}

// NewRewriter builds a rewriter over the given oracle.
func NewRewriter(o oracle.Oracle, cfg config.CurationConfig, logger *slog.Logger, collector *metrics.PipelineCollector) *Rewriter {
	return &Rewriter{oracle: o, cfg: cfg, logger: logger, metrics: collector}
}

// Rewrite produces a headline and bounded-length body from the item's own
// text. A malformed response is a per-item error for the caller to log and
// skip.
func (r *Rewriter) Rewrite(ctx context.Context, item models.Item) (models.Rewrite, error) {
	started := time.Now()
	resp, err := r.oracle.Complete(ctx, oracle.Request{
		Stage:    "rewrite",
		System:   rewriteSystemPrompt,
		Prompt:   rewritePrompt(item, r.cfg.RewriteMinWords, r.cfg.RewriteMaxWords),
		JSONMode: true,
	})
	if r.metrics != nil {
		r.metrics.OracleCall("rewrite", time.Since(started))
	}
	if err != nil {
		return models.Rewrite{}, fmt.Errorf("oracle: %w", err)
	}

	var rewrite models.Rewrite
	if err := oracle.Unmarshal(resp, &rewrite); err != nil {
		return models.Rewrite{}, err
	}

	rewrite.Headline = strings.TrimSpace(rewrite.Headline)
	rewrite.Body = strings.TrimSpace(rewrite.Body)
	switch {
	case rewrite.Headline == "":
		return models.Rewrite{}, oracle.NewShapeError("empty headline", resp)
	case rewrite.Body == "":
		return models.Rewrite{}, oracle.NewShapeError("empty body", resp)
	case rewrite.WordCount <= 0:
		return models.Rewrite{}, oracle.NewShapeError("missing word count", resp)
	}

	return rewrite, nil
}
