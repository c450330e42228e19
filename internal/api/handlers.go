// Package api exposes the review surface: today's drafted campaign with its
// articles, events and advisories, plus an authenticated manual-run trigger.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"log/slog"

	"github.com/townwire/townwire/internal/models"
)

// CampaignStore reads campaigns for the public endpoints.
type CampaignStore interface {
	GetByDate(ctx context.Context, date time.Time) (*models.Campaign, error)
}

// ArticleStore reads a campaign's articles.
type ArticleStore interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]models.Article, error)
}

// EventStore reads a campaign's selected events.
type EventStore interface {
	ListSelected(ctx context.Context, campaignID string, date time.Time) ([]models.CampaignEvent, error)
}

// AdvisoryStore reads a campaign's advisories.
type AdvisoryStore interface {
	ListByCampaign(ctx context.Context, campaignID string) ([]models.Advisory, error)
}

type Handler struct {
	campaigns  CampaignStore
	articles   ArticleStore
	events     EventStore
	advisories AdvisoryStore
	location   *time.Location
	logger     *slog.Logger
	startTime  time.Time
}

func NewHandler(campaigns CampaignStore, articles ArticleStore, events EventStore, advisories AdvisoryStore, location *time.Location, logger *slog.Logger) *Handler {
	return &Handler{
		campaigns:  campaigns,
		articles:   articles,
		events:     events,
		advisories: advisories,
		location:   location,
		logger:     logger,
		startTime:  time.Now(),
	}
}

// DigestResponse is the full working set for one campaign day.
type DigestResponse struct {
	Campaign   *models.Campaign       `json:"campaign"`
	Articles   []models.Article       `json:"articles"`
	Events     []models.CampaignEvent `json:"events"`
	Advisories []models.Advisory      `json:"advisories"`
}

// GetTodayHandler handles GET /api/campaigns/today.
func (h *Handler) GetTodayHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	date := models.DateKey(time.Now(), h.location)

	camp, err := h.campaigns.GetByDate(ctx, date)
	if err != nil {
		h.logger.Error("failed to get campaign", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if camp == nil {
		http.Error(w, "No campaign for today", http.StatusNotFound)
		return
	}

	resp := DigestResponse{Campaign: camp}
	if resp.Articles, err = h.articles.ListByCampaign(ctx, camp.ID); err != nil {
		h.logger.Error("failed to list articles", "campaign", camp.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if resp.Events, err = h.events.ListSelected(ctx, camp.ID, camp.Date); err != nil {
		h.logger.Error("failed to list events", "campaign", camp.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if resp.Advisories, err = h.advisories.ListByCampaign(ctx, camp.ID); err != nil {
		h.logger.Error("failed to list advisories", "campaign", camp.ID, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, h.logger, resp)
}

// StatsResponse summarizes pipeline state for the dashboard.
type StatsResponse struct {
	CampaignStatus string `json:"campaign_status"`
	ArticleCount   int    `json:"article_count"`
	ActiveCount    int    `json:"active_count"`
	Uptime         string `json:"uptime"`
}

// GetStatsHandler handles GET /api/stats.
func (h *Handler) GetStatsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx := r.Context()
	resp := StatsResponse{CampaignStatus: "none"}

	camp, err := h.campaigns.GetByDate(ctx, models.DateKey(time.Now(), h.location))
	if err != nil {
		h.logger.Error("failed to get campaign for stats", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if camp != nil {
		resp.CampaignStatus = string(camp.Status)
		if articles, err := h.articles.ListByCampaign(ctx, camp.ID); err == nil {
			resp.ArticleCount = len(articles)
			for _, a := range articles {
				if a.Active {
					resp.ActiveCount++
				}
			}
		}
	}

	uptime := time.Since(h.startTime)
	resp.Uptime = fmt.Sprintf("%02d:%02d:%02d",
		int64(uptime.Hours()), int64(uptime.Minutes())%60, int64(uptime.Seconds())%60)

	writeJSON(w, h.logger, resp)
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to encode response", "error", err)
	}
}
