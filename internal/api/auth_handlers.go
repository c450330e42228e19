package api

import (
	"encoding/json"
	"net/http"
	"time"

	"log/slog"

	"github.com/townwire/townwire/internal/auth"
	"github.com/townwire/townwire/internal/config"
)

// AuthHandler exchanges the admin password for a bearer token.
type AuthHandler struct {
	cfg    config.AuthConfig
	logger *slog.Logger
}

func NewAuthHandler(cfg config.AuthConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, logger: logger}
}

type LoginRequest struct {
	Password string `json:"password"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if !auth.CheckPassword(req.Password, h.cfg.AdminPasswordHash) {
		h.logger.Warn("failed login attempt", "ip", r.RemoteAddr)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, expires, err := auth.GenerateToken(h.cfg)
	if err != nil {
		h.logger.Error("failed to generate token", "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Info("successful login", "ip", r.RemoteAddr)
	writeJSON(w, h.logger, LoginResponse{Token: token, ExpiresAt: expires})
}

// Validate handles GET /api/auth/validate. The middleware has already
// checked the token when this runs.
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, h.logger, map[string]bool{"valid": true})
}
