// Package campaign drives the daily curation run and owns the campaign
// state machine. The orchestrator only ever writes the processing and draft
// states; review and send states belong to downstream jobs.
package campaign

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/townwire/townwire/internal/advisory"
	"github.com/townwire/townwire/internal/alert"
	"github.com/townwire/townwire/internal/archive"
	"github.com/townwire/townwire/internal/config"
	"github.com/townwire/townwire/internal/curation"
	"github.com/townwire/townwire/internal/events"
	"github.com/townwire/townwire/internal/ingestion"
	"github.com/townwire/townwire/internal/metrics"
	"github.com/townwire/townwire/internal/models"
)

// Deps are the orchestrator's collaborators. Archiver, Advisories, Rehoster,
// Spotlight, Alerts and Metrics may be nil; the corresponding steps are
// skipped or degrade silently.
type Deps struct {
	Campaigns  Repository
	Items      ingestion.ItemRepository
	Articles   curation.ArticleRepository
	Adapter    *ingestion.Adapter
	Evaluator  *curation.Evaluator
	Dedup      *curation.Deduplicator
	Producer   *curation.Producer
	Selector   *curation.Selector
	Rehoster   ingestion.ImageRehoster
	Events     *events.Populator
	Spotlight  *events.Spotlight
	Advisories *advisory.Populator
	Archiver   *archive.Archiver
	Alerts     alert.Sink
	Metrics    *metrics.PipelineCollector
}

// Orchestrator runs the full curation pipeline for one campaign per day.
type Orchestrator struct {
	deps     Deps
	sources  []models.SourceFeed
	cfg      config.CurationConfig
	location *time.Location
	logger   *slog.Logger
	now      func() time.Time
}

// NewOrchestrator builds the orchestrator.
func NewOrchestrator(deps Deps, sources []models.SourceFeed, cfg config.CurationConfig, location *time.Location, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		deps:     deps,
		sources:  sources,
		cfg:      cfg,
		location: location,
		logger:   logger,
		now:      time.Now,
	}
}

// Run executes one end-to-end curation pass for today's campaign: archive
// and clear any prior working set, ingest, evaluate, deduplicate, rewrite
// and fact-check, select, rehost active images, populate events, rotate the
// sponsored spotlight, populate advisories, then advance the campaign to
// draft. Item- and source-level
// failures are absorbed by the stages; an error escaping a stage aborts the
// run, is reported through the alert sink with the stage that broke, and
// leaves the campaign in its last-reached state.
func (o *Orchestrator) Run(ctx context.Context) error {
	started := o.now()
	stage := "init"
	fail := func(err error) error {
		wrapped := fmt.Errorf("%s: %w", stage, err)
		o.logger.Error("campaign run failed", "stage", stage, "error", err)
		if o.deps.Alerts != nil {
			o.deps.Alerts.Notify(ctx, alert.SeverityError,
				fmt.Sprintf("Curation run failed during %s: %v", stage, err))
		}
		return wrapped
	}

	camp, err := o.ensureCampaign(ctx)
	if err != nil {
		return fail(err)
	}
	logger := o.logger.With("campaign", camp.ID, "date", camp.Date.Format("2006-01-02"))
	logger.Info("campaign run starting")

	stage = "archive"
	if o.deps.Archiver != nil {
		// Best-effort: a failed snapshot is a warning, the clear proceeds.
		if err := o.deps.Archiver.Snapshot(ctx, camp.ID, "reprocess"); err != nil {
			logger.Warn("archival failed, continuing with reprocess", "error", err)
			if o.deps.Alerts != nil {
				o.deps.Alerts.Notify(ctx, alert.SeverityWarning,
					fmt.Sprintf("Archival failed for campaign %s: %v", camp.ID, err))
			}
		}
	}

	stage = "clear"
	if _, err := o.deps.Articles.DeleteByCampaign(ctx, camp.ID); err != nil {
		return fail(err)
	}
	if _, err := o.deps.Items.DeleteByCampaign(ctx, camp.ID); err != nil {
		return fail(err)
	}

	stage = "ingest"
	fetched := o.deps.Adapter.FetchAll(ctx, camp.ID, o.sources)
	logger.Info("ingestion complete",
		"inserted", fetched.Inserted,
		"skipped", fetched.Skipped,
		"source_errors", fetched.SourceErrors,
	)

	items, err := o.deps.Items.ListByCampaign(ctx, camp.ID)
	if err != nil {
		return fail(err)
	}

	stage = "evaluate"
	evaluated := o.deps.Evaluator.EvaluateAll(ctx, items)
	logger.Info("evaluation complete",
		"scored", evaluated.Scored,
		"blank", evaluated.Blank,
		"failed", evaluated.Failed,
	)

	stage = "dedupe"
	groups := o.deps.Dedup.FindDuplicates(ctx, items)

	stage = "produce"
	produced := o.deps.Producer.Produce(ctx, camp.ID, items, groups)

	stage = "select"
	active, err := o.deps.Selector.SelectTop(ctx, camp.ID)
	if err != nil {
		return fail(err)
	}

	stage = "rehost"
	o.rehostActiveImages(ctx, camp.ID, logger)

	stage = "events"
	if o.deps.Events != nil {
		if err := o.deps.Events.Populate(ctx, camp.ID, camp.Date); err != nil {
			return fail(err)
		}
	}

	stage = "spotlight"
	if o.deps.Spotlight != nil {
		if _, err := o.deps.Spotlight.Select(ctx, camp.ID, camp.Date); err != nil {
			return fail(err)
		}
	}

	stage = "advisories"
	if o.deps.Advisories != nil {
		o.deps.Advisories.Populate(ctx, camp.ID, o.cfg.Localities)
	}

	stage = "finalize"
	if err := o.deps.Campaigns.SetStatus(ctx, camp.ID, models.CampaignStatusDraft); err != nil {
		return fail(err)
	}

	if active <= o.cfg.LowArticleThreshold {
		logger.Warn("low active article count", "active", active, "threshold", o.cfg.LowArticleThreshold)
		if o.deps.Alerts != nil {
			o.deps.Alerts.Notify(ctx, alert.SeverityWarning,
				fmt.Sprintf("Campaign %s drafted with only %d active articles", camp.Date.Format("2006-01-02"), active))
		}
	}

	if o.deps.Metrics != nil {
		o.deps.Metrics.RunCompleted(o.now().Sub(started), active)
	}
	logger.Info("campaign run complete",
		"items", len(items),
		"articles", produced.Created,
		"active", active,
		"duration", o.now().Sub(started),
	)
	return nil
}

// ensureCampaign finds or creates today's campaign and moves it to
// processing.
func (o *Orchestrator) ensureCampaign(ctx context.Context) (*models.Campaign, error) {
	date := models.DateKey(o.now(), o.location)

	camp, err := o.deps.Campaigns.GetByDate(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	if camp == nil {
		camp = &models.Campaign{
			ID:        uuid.NewString(),
			Date:      date,
			Status:    models.CampaignStatusProcessing,
			CreatedAt: o.now(),
			UpdatedAt: o.now(),
		}
		if err := o.deps.Campaigns.Create(ctx, *camp); err != nil {
			return nil, fmt.Errorf("create campaign: %w", err)
		}
		o.logger.Info("campaign created", "campaign", camp.ID, "date", date.Format("2006-01-02"))
		return camp, nil
	}

	if camp.Status != models.CampaignStatusProcessing {
		if err := o.deps.Campaigns.SetStatus(ctx, camp.ID, models.CampaignStatusProcessing); err != nil {
			return nil, fmt.Errorf("set processing: %w", err)
		}
		camp.Status = models.CampaignStatusProcessing
	}
	return camp, nil
}

// rehostActiveImages moves the active articles' images onto durable
// storage. Failures keep the original URL.
func (o *Orchestrator) rehostActiveImages(ctx context.Context, campaignID string, logger *slog.Logger) {
	if o.deps.Rehoster == nil {
		return
	}

	articles, err := o.deps.Articles.ListByCampaign(ctx, campaignID)
	if err != nil {
		logger.Warn("listing articles for rehost failed", "error", err)
		return
	}

	for _, a := range articles {
		if !a.Active || a.ImageURL == "" {
			continue
		}
		hosted := o.deps.Rehoster.RehostNews(ctx, a.ImageURL, a.Headline)
		if hosted == "" || hosted == a.ImageURL {
			continue
		}
		if err := o.deps.Articles.UpdateImageURL(ctx, a.ID, hosted); err != nil {
			logger.Warn("article image update failed", "article", a.ID, "error", err)
		}
	}
}
