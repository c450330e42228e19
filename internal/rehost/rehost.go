// Package rehost downloads source images, validates and deduplicates them,
// and uploads them to durable public storage. Every failure degrades to an
// empty URL; callers keep the original link or show a placeholder, a failed
// rehost never aborts a pipeline run.
package rehost

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/townwire/townwire/internal/config"
	"github.com/townwire/townwire/internal/metrics"
)

// Namespace separates hosted images by use.
type Namespace string

const (
	NamespaceNews    Namespace = "news"
	NamespaceWeather Namespace = "weather"
	NamespaceListing Namespace = "listing"
)

// Rehoster implements the image re-hosting flow: bounded download, type and
// size validation, content-hash keyed at-most-once upload.
type Rehoster struct {
	store    ObjectStore
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
	metrics  *metrics.PipelineCollector
}

// NewRehoster builds a rehoster over the given object store.
func NewRehoster(store ObjectStore, cfg config.RehostConfig, logger *slog.Logger, collector *metrics.PipelineCollector) *Rehoster {
	return &Rehoster{
		store:    store,
		client:   &http.Client{Timeout: cfg.DownloadTimeout},
		maxBytes: cfg.MaxBytes,
		logger:   logger,
		metrics:  collector,
	}
}

// RehostNews re-hosts a news article image.
func (r *Rehoster) RehostNews(ctx context.Context, srcURL, label string) string {
	return r.rehost(ctx, srcURL, label, NamespaceNews)
}

// RehostWeather re-hosts a weather section image.
func (r *Rehoster) RehostWeather(ctx context.Context, srcURL, label string) string {
	return r.rehost(ctx, srcURL, label, NamespaceWeather)
}

// RehostListing re-hosts a listing image, resizing it to the listing
// aspect first. The storage key hashes the resized bytes rather than the
// source URL.
func (r *Rehoster) RehostListing(ctx context.Context, srcURL, label string) string {
	srcURL = strings.TrimSpace(srcURL)
	if srcURL == "" {
		return ""
	}

	data, contentType, ok := r.download(ctx, srcURL)
	if !ok {
		return ""
	}

	resized, err := resizeListing(data)
	if err != nil {
		r.logger.Warn("listing image resize failed", "url", srcURL, "error", err)
		r.outcome("error")
		return ""
	}

	key := fmt.Sprintf("%s/%s.jpg", NamespaceListing, hashBytes(resized))
	return r.storeOnce(ctx, key, "image/jpeg", resized, srcURL, contentType)
}

// rehost implements the URL-hash keyed flow shared by news and weather
// images.
func (r *Rehoster) rehost(ctx context.Context, srcURL, label string, ns Namespace) string {
	srcURL = strings.TrimSpace(srcURL)
	if srcURL == "" {
		return ""
	}

	key := fmt.Sprintf("%s/%s%s", ns, hashString(srcURL), extFromURL(srcURL))

	// A second request for an already-hashed name returns the existing
	// hosted URL without re-downloading or re-uploading.
	if exists, err := r.store.Exists(ctx, key); err == nil && exists {
		r.outcome("cached")
		return r.store.URL(key)
	}

	data, contentType, ok := r.download(ctx, srcURL)
	if !ok {
		return ""
	}

	return r.storeOnce(ctx, key, contentType, data, srcURL, contentType)
}

// storeOnce uploads unless the key already exists, then returns the URL.
func (r *Rehoster) storeOnce(ctx context.Context, key, contentType string, data []byte, srcURL, srcType string) string {
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		r.logger.Warn("image existence check failed", "key", key, "error", err)
	}

	if !exists {
		if err := r.store.Upload(ctx, key, contentType, bytes.NewReader(data)); err != nil {
			r.logger.Warn("image upload failed", "url", srcURL, "key", key, "error", err)
			r.outcome("upload_error")
			return ""
		}
		r.outcome("uploaded")
	} else {
		r.outcome("cached")
	}

	return r.store.URL(key)
}

// download fetches the image, enforcing the content-type and size limits.
func (r *Rehoster) download(ctx context.Context, srcURL string) (data []byte, contentType string, ok bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		r.logger.Warn("image request build failed", "url", srcURL, "error", err)
		r.outcome("error")
		return nil, "", false
	}

	resp, err := r.client.Do(req)
	if err != nil {
		r.logger.Warn("image download failed", "url", srcURL, "error", err)
		r.outcome("download_error")
		return nil, "", false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("image download bad status", "url", srcURL, "status", resp.StatusCode)
		r.outcome("download_error")
		return nil, "", false
	}

	contentType = resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		r.logger.Warn("not an image", "url", srcURL, "content_type", contentType)
		r.outcome("wrong_type")
		return nil, "", false
	}

	limited := io.LimitReader(resp.Body, r.maxBytes+1)
	data, err = io.ReadAll(limited)
	if err != nil {
		r.logger.Warn("image read failed", "url", srcURL, "error", err)
		r.outcome("download_error")
		return nil, "", false
	}
	if int64(len(data)) > r.maxBytes {
		r.logger.Warn("image too large", "url", srcURL, "max_bytes", r.maxBytes)
		r.outcome("too_large")
		return nil, "", false
	}

	return data, contentType, true
}

func (r *Rehoster) outcome(result string) {
	if r.metrics != nil {
		r.metrics.StageOutcome("rehost", result)
	}
}

func hashString(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:32]
}

func hashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:32]
}

// extFromURL pulls a file extension off the URL path, defaulting to .jpg.
func extFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ".jpg"
	}
	ext := strings.ToLower(path.Ext(u.Path))
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return ext
	}
	return ".jpg"
}
