package curation

import (
	"context"
	"log/slog"
	"time"

	"github.com/townwire/townwire/internal/metrics"
	"github.com/townwire/townwire/internal/models"
	"github.com/townwire/townwire/internal/oracle"
)

// Deduplicator groups items that cover the same story. Grouping is
// best-effort: any oracle or shape failure returns no groups and downstream
// rewriting proceeds as if every item were unique.
type Deduplicator struct {
	oracle  oracle.Oracle
	logger  *slog.Logger
	metrics *metrics.PipelineCollector
}

// NewDeduplicator builds a deduplicator over the given oracle.
func NewDeduplicator(o oracle.Oracle, logger *slog.Logger, collector *metrics.PipelineCollector) *Deduplicator {
	return &Deduplicator{oracle: o, logger: logger, metrics: collector}
}

// FindDuplicates clusters the campaign's items by story. It runs only when
// at least two items exist and never returns an error.
func (d *Deduplicator) FindDuplicates(ctx context.Context, items []models.Item) []models.DuplicateGroup {
	if len(items) < 2 {
		return nil
	}

	started := time.Now()
	resp, err := d.oracle.Complete(ctx, oracle.Request{
		Stage:    "dedupe",
		System:   dedupeSystemPrompt,
		Prompt:   dedupePrompt(items),
		JSONMode: true,
	})
	if d.metrics != nil {
		d.metrics.OracleCall("dedupe", time.Since(started))
	}
	if err != nil {
		d.logger.Warn("deduplication oracle call failed", "error", err)
		d.outcome("failed")
		return nil
	}

	var parsed struct {
		Groups []struct {
			PrimaryIndex *int   `json:"primary_index"`
			Topic        string `json:"topic"`
			Duplicates   []struct {
				Index      *int    `json:"index"`
				Similarity float64 `json:"similarity"`
			} `json:"duplicates"`
		} `json:"groups"`
		UniqueIndices []int `json:"unique_indices"`
	}
	if err := oracle.Unmarshal(resp, &parsed); err != nil {
		d.logger.Warn("deduplication response unparseable", "error", err)
		d.outcome("shape_error")
		return nil
	}

	var groups []models.DuplicateGroup
	for _, g := range parsed.Groups {
		if g.PrimaryIndex == nil || *g.PrimaryIndex < 0 || *g.PrimaryIndex >= len(items) {
			d.logger.Warn("dropping duplicate group with bad primary index", "topic", g.Topic)
			continue
		}

		group := models.DuplicateGroup{
			PrimaryItemID: items[*g.PrimaryIndex].ID,
			Topic:         g.Topic,
		}
		for _, dup := range g.Duplicates {
			if dup.Index == nil || *dup.Index < 0 || *dup.Index >= len(items) || *dup.Index == *g.PrimaryIndex {
				continue
			}
			group.Members = append(group.Members, models.DuplicateMember{
				ItemID:     items[*dup.Index].ID,
				Similarity: dup.Similarity,
			})
		}
		if len(group.Members) == 0 {
			continue
		}
		groups = append(groups, group)
	}

	d.outcome("ok")
	d.logger.Info("deduplication complete", "items", len(items), "groups", len(groups))
	return groups
}

// NonPrimaryIDs flattens duplicate groups into the set of item ids that are
// duplicates of some primary.
func NonPrimaryIDs(groups []models.DuplicateGroup) map[string]bool {
	out := make(map[string]bool)
	for _, g := range groups {
		for _, m := range g.Members {
			out[m.ItemID] = true
		}
	}
	return out
}

func (d *Deduplicator) outcome(result string) {
	if d.metrics != nil {
		d.metrics.StageOutcome("dedupe", result)
	}
}
