package api

import (
	"net/http"

	"log/slog"

	"github.com/townwire/townwire/internal/auth"
	"github.com/townwire/townwire/internal/config"
)

// SetupRoutes mounts the review API. Read endpoints are public; the manual
// run trigger requires auth and is not mounted when auth is unconfigured.
func SetupRoutes(mux *http.ServeMux, h *Handler, runs *RunHandler, authCfg config.AuthConfig, logger *slog.Logger) {
	mux.HandleFunc("/api/campaigns/today", h.GetTodayHandler)
	mux.HandleFunc("/api/stats", h.GetStatsHandler)

	if !authCfg.Enabled() {
		logger.Warn("admin auth not configured, protected endpoints disabled")
		return
	}

	authHandler := NewAuthHandler(authCfg, logger)
	middleware := auth.Middleware(authCfg)

	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.Handle("/api/auth/validate", middleware(http.HandlerFunc(authHandler.Validate)))
	mux.Handle("/api/runs", middleware(http.HandlerFunc(runs.Trigger)))
}
