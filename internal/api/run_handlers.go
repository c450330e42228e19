package api

import (
	"context"
	"net/http"
	"sync/atomic"

	"log/slog"
)

// RunHandler triggers a curation run outside the daily schedule. At most one
// manual run is in flight at a time.
type RunHandler struct {
	run     func(ctx context.Context) error
	running atomic.Bool
	logger  *slog.Logger
}

func NewRunHandler(run func(ctx context.Context) error, logger *slog.Logger) *RunHandler {
	return &RunHandler{run: run, logger: logger}
}

// Trigger handles POST /api/runs.
func (h *RunHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.running.CompareAndSwap(false, true) {
		http.Error(w, "A run is already in progress", http.StatusConflict)
		return
	}

	h.logger.Info("manual curation run triggered", "ip", r.RemoteAddr)
	go func() {
		defer h.running.Store(false)
		// Detached from the request: the run outlives the HTTP response.
		if err := h.run(context.Background()); err != nil {
			h.logger.Error("manual curation run failed", "error", err)
		}
	}()

	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write([]byte(`{"status":"started"}`))
}
