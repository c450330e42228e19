package ingestion

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/townwire/townwire/internal/metrics"
	"github.com/townwire/townwire/internal/models"
)

// ImageRehoster re-hosts a source image and returns the durable URL, or ""
// on any failure.
type ImageRehoster interface {
	RehostNews(ctx context.Context, srcURL, label string) string
}

// FetchWindow is how far back an item's publication time may lie.
const FetchWindow = 24 * time.Hour

// Adapter fetches raw items from the configured content sources and inserts
// them into a campaign's working set. A single source's failure is isolated:
// it is logged and counted, and the remaining sources still run.
type Adapter struct {
	parser    *gofeed.Parser
	repo      ItemRepository
	errors    SourceErrorRecorder
	rehoster  ImageRehoster
	ephemeral []string
	logger    *slog.Logger
	metrics   *metrics.PipelineCollector
	now       func() time.Time
}

// NewAdapter builds a content-source adapter. rehoster and errors may be nil.
func NewAdapter(
	repo ItemRepository,
	errors SourceErrorRecorder,
	rehoster ImageRehoster,
	ephemeralHosts []string,
	logger *slog.Logger,
	collector *metrics.PipelineCollector,
) *Adapter {
	return &Adapter{
		parser:    gofeed.NewParser(),
		repo:      repo,
		errors:    errors,
		rehoster:  rehoster,
		ephemeral: ephemeralHosts,
		logger:    logger,
		metrics:   collector,
		now:       time.Now,
	}
}

// FetchResult summarizes one FetchAll pass.
type FetchResult struct {
	Inserted     int
	Skipped      int
	SourceErrors int
}

// FetchAll ingests every active source into the campaign. Ingestion must
// fully complete (all sources attempted) before evaluation begins, so this
// runs sources sequentially and never returns early on a source failure.
func (a *Adapter) FetchAll(ctx context.Context, campaignID string, sources []models.SourceFeed) FetchResult {
	var result FetchResult

	for _, src := range sources {
		if !src.Active {
			a.logger.Debug("skipping inactive source", "source", src.Name)
			continue
		}

		inserted, skipped, err := a.fetchSource(ctx, campaignID, src)
		if err != nil {
			result.SourceErrors++
			a.logger.Error("source fetch failed", "source", src.Name, "url", src.URL, "error", err)
			if a.metrics != nil {
				a.metrics.SourceError(src.ID)
			}
			if a.errors != nil {
				if recErr := a.errors.RecordError(ctx, src.ID, err.Error()); recErr != nil {
					a.logger.Error("failed to record source error", "source", src.Name, "error", recErr)
				}
			}
			continue
		}

		result.Inserted += inserted
		result.Skipped += skipped
		a.logger.Info("source fetched", "source", src.Name, "inserted", inserted, "skipped", skipped)
	}

	return result
}

// fetchSource pulls one feed and inserts its recent items.
func (a *Adapter) fetchSource(ctx context.Context, campaignID string, src models.SourceFeed) (inserted, skipped int, err error) {
	feed, err := a.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return 0, 0, err
	}

	now := a.now()
	cutoff := now.Add(-FetchWindow)

	for _, entry := range feed.Items {
		pubTime := publishTime(entry)
		if pubTime.Before(cutoff) || pubTime.After(now) {
			continue
		}

		item := a.normalize(ctx, campaignID, src, entry, pubTime)
		if item.Title == "" || item.URL == "" {
			skipped++
			continue
		}

		ok, insErr := a.repo.Insert(ctx, item)
		if insErr != nil {
			return inserted, skipped, insErr
		}
		if !ok {
			// Already ingested this external id for the campaign.
			skipped++
			continue
		}

		inserted++
		if a.metrics != nil {
			a.metrics.ItemIngested(src.ID)
		}
	}

	return inserted, skipped, nil
}

// normalize maps one feed entry onto the item model.
func (a *Adapter) normalize(ctx context.Context, campaignID string, src models.SourceFeed, entry *gofeed.Item, pubTime time.Time) models.Item {
	externalID := strings.TrimSpace(entry.GUID)
	if externalID == "" {
		externalID = strings.TrimSpace(entry.Link)
	}

	imageURL := ExtractImageURL(entry)
	if imageURL != "" && a.rehoster != nil && HostMatches(imageURL, a.ephemeral) {
		// The CDN URL will expire; rehost now rather than persist a link
		// that 404s by send time. Failure keeps the original URL.
		if hosted := a.rehoster.RehostNews(ctx, imageURL, entry.Title); hosted != "" {
			imageURL = hosted
		}
	}

	return models.Item{
		ID:          uuid.NewString(),
		CampaignID:  campaignID,
		SourceID:    src.ID,
		ExternalID:  externalID,
		Title:       CleanText(entry.Title),
		Description: CleanText(entry.Description),
		Body:        CleanText(entry.Content),
		Author:      authorName(entry),
		URL:         strings.TrimSpace(entry.Link),
		ImageURL:    imageURL,
		PublishedAt: pubTime,
		CreatedAt:   a.now(),
	}
}

// publishTime resolves an entry's publication timestamp, falling back to
// lenient parsing and finally the zero time (which the window check drops).
func publishTime(entry *gofeed.Item) time.Time {
	if entry.PublishedParsed != nil {
		return *entry.PublishedParsed
	}
	if entry.UpdatedParsed != nil {
		return *entry.UpdatedParsed
	}
	if entry.Published != "" {
		if t, err := dateparse.ParseAny(entry.Published); err == nil {
			return t
		}
	}
	return time.Time{}
}

func authorName(entry *gofeed.Item) string {
	if entry.Author != nil && entry.Author.Name != "" {
		return entry.Author.Name
	}
	for _, person := range entry.Authors {
		if person != nil && person.Name != "" {
			return person.Name
		}
	}
	return ""
}

// CleanText strips HTML tags and collapses whitespace in feed text.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "<p>", "\n")
	text = strings.ReplaceAll(text, "</p>", "\n")
	text = strings.ReplaceAll(text, "<br>", "\n")
	text = strings.ReplaceAll(text, "<br/>", "\n")
	text = strings.ReplaceAll(text, "<br />", "\n")

	for {
		start := strings.Index(text, "<")
		if start == -1 {
			break
		}
		end := strings.Index(text[start:], ">")
		if end == -1 {
			break
		}
		text = text[:start] + text[start+end+1:]
	}

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	for strings.Contains(text, "\n\n\n") {
		text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	}

	return strings.TrimSpace(text)
}
