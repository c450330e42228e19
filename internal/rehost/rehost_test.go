package rehost

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"log/slog"

	"github.com/townwire/townwire/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testRehostConfig() config.RehostConfig {
	return config.RehostConfig{
		MaxBytes:        1 << 20,
		DownloadTimeout: 5 * time.Second,
	}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 20, 10))
	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 12), G: 90, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func serveImage(t *testing.T, contentType string, body []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", contentType)
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRehostNewsUploadsAtMostOnce(t *testing.T) {
	srv := serveImage(t, "image/png", pngBytes(t))
	store := NewMemoryStore()
	r := NewRehoster(store, testRehostConfig(), testLogger(), nil)

	first := r.RehostNews(context.Background(), srv.URL+"/photo.png", "story")
	second := r.RehostNews(context.Background(), srv.URL+"/photo.png", "story")

	if first == "" {
		t.Fatal("rehost returned empty URL")
	}
	if !strings.HasPrefix(first, "https://img.test/news/") {
		t.Errorf("hosted URL = %q, want news namespace", first)
	}
	if second != first {
		t.Errorf("second rehost = %q, want cached %q", second, first)
	}
	if store.Uploads != 1 {
		t.Errorf("uploads = %d, want 1", store.Uploads)
	}
}

func TestRehostNewsFailuresReturnEmpty(t *testing.T) {
	cases := []struct {
		name  string
		serve func(t *testing.T) string
		cfg   config.RehostConfig
	}{
		{
			name: "404",
			serve: func(t *testing.T) string {
				srv := httptest.NewServer(http.NotFoundHandler())
				t.Cleanup(srv.Close)
				return srv.URL + "/gone.jpg"
			},
			cfg: testRehostConfig(),
		},
		{
			name: "not an image",
			serve: func(t *testing.T) string {
				return serveImage(t, "text/html", []byte("<html></html>")).URL + "/page.jpg"
			},
			cfg: testRehostConfig(),
		},
		{
			name: "too large",
			serve: func(t *testing.T) string {
				return serveImage(t, "image/png", pngBytes(t)).URL + "/big.png"
			},
			cfg: config.RehostConfig{MaxBytes: 10, DownloadTimeout: 5 * time.Second},
		},
	}

	for _, tc := range cases {
		store := NewMemoryStore()
		r := NewRehoster(store, tc.cfg, testLogger(), nil)
		if got := r.RehostNews(context.Background(), tc.serve(t), "story"); got != "" {
			t.Errorf("%s: rehost = %q, want empty", tc.name, got)
		}
		if store.Uploads != 0 {
			t.Errorf("%s: uploads = %d, want 0", tc.name, store.Uploads)
		}
	}
}

func TestRehostEmptyURL(t *testing.T) {
	r := NewRehoster(NewMemoryStore(), testRehostConfig(), testLogger(), nil)
	if got := r.RehostNews(context.Background(), "  ", "story"); got != "" {
		t.Errorf("rehost of blank URL = %q, want empty", got)
	}
}

func TestRehostListingResizesToCardResolution(t *testing.T) {
	srv := serveImage(t, "image/png", pngBytes(t))
	store := NewMemoryStore()
	r := NewRehoster(store, testRehostConfig(), testLogger(), nil)

	hosted := r.RehostListing(context.Background(), srv.URL+"/flyer.png", "listing")
	if hosted == "" {
		t.Fatal("listing rehost returned empty URL")
	}
	if !strings.HasPrefix(hosted, "https://img.test/listing/") || !strings.HasSuffix(hosted, ".jpg") {
		t.Errorf("hosted URL = %q, want listing namespace jpg", hosted)
	}

	key := strings.TrimPrefix(hosted, "https://img.test/")
	data := store.objects[key]
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("stored object is not a jpeg: %v", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != listingWidth || bounds.Dy() != listingHeight {
		t.Errorf("stored image is %dx%d, want %dx%d", bounds.Dx(), bounds.Dy(), listingWidth, listingHeight)
	}
}

func TestRehostListingDedupesByContent(t *testing.T) {
	body := pngBytes(t)
	first := serveImage(t, "image/png", body)
	second := serveImage(t, "image/png", body)

	store := NewMemoryStore()
	r := NewRehoster(store, testRehostConfig(), testLogger(), nil)

	a := r.RehostListing(context.Background(), first.URL+"/flyer-a.png", "listing")
	b := r.RehostListing(context.Background(), second.URL+"/flyer-b.png", "listing")

	// Same pixels from different URLs hash to the same key.
	if a == "" || a != b {
		t.Errorf("hosted URLs %q and %q, want identical", a, b)
	}
	if store.Uploads != 1 {
		t.Errorf("uploads = %d, want 1", store.Uploads)
	}
}

func TestRehostListingRejectsUndecodableImage(t *testing.T) {
	srv := serveImage(t, "image/png", []byte("not a real image"))
	store := NewMemoryStore()
	r := NewRehoster(store, testRehostConfig(), testLogger(), nil)

	if got := r.RehostListing(context.Background(), srv.URL+"/bad.png", "listing"); got != "" {
		t.Errorf("rehost of undecodable image = %q, want empty", got)
	}
	if store.Uploads != 0 {
		t.Errorf("uploads = %d, want 0", store.Uploads)
	}
}
