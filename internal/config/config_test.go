package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"log/slog"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != defaultPort {
		t.Errorf("port = %q, want %q", cfg.Server.Port, defaultPort)
	}
	if cfg.Curation.BatchSize != defaultBatchSize {
		t.Errorf("batch size = %d, want %d", cfg.Curation.BatchSize, defaultBatchSize)
	}
	if cfg.Curation.TopK != defaultTopK {
		t.Errorf("top k = %d, want %d", cfg.Curation.TopK, defaultTopK)
	}
	if cfg.Curation.SkipDuplicates {
		t.Error("skip duplicates should default to false")
	}
	if cfg.Scheduler.Timezone != defaultTimezone {
		t.Errorf("timezone = %q, want %q", cfg.Scheduler.Timezone, defaultTimezone)
	}
	if cfg.Scheduler.RunAt != defaultRunAt {
		t.Errorf("run at = %q, want %q", cfg.Scheduler.RunAt, defaultRunAt)
	}
	if cfg.Auth.Enabled() {
		t.Error("auth should be disabled without secrets")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("CURATION_TOP_K", "9")
	t.Setenv("CURATION_SKIP_DUPLICATES", "true")
	t.Setenv("CURATION_LOCALITIES", "Maplewood, Cedar Falls ,")
	t.Setenv("ADMIN_JWT_SECRET", "s")
	t.Setenv("ADMIN_PASSWORD_HASH", "h")
	t.Setenv("ADMIN_TOKEN_HOURS", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Logging.Level != slog.LevelDebug {
		t.Errorf("log level = %v, want debug", cfg.Logging.Level)
	}
	if cfg.Curation.TopK != 9 {
		t.Errorf("top k = %d, want 9", cfg.Curation.TopK)
	}
	if !cfg.Curation.SkipDuplicates {
		t.Error("skip duplicates not enabled")
	}
	if len(cfg.Curation.Localities) != 2 || cfg.Curation.Localities[1] != "Cedar Falls" {
		t.Errorf("localities = %v, want trimmed pair", cfg.Curation.Localities)
	}
	if !cfg.Auth.Enabled() {
		t.Error("auth should be enabled")
	}
	if cfg.Auth.TokenDuration != 2*time.Hour {
		t.Errorf("token duration = %v, want 2h", cfg.Auth.TokenDuration)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		key   string
		value string
	}{
		{"LOG_LEVEL", "verbose"},
		{"CURATION_TOP_K", "0"},
		{"CURATION_BATCH_SIZE", "-1"},
		{"SCHEDULER_TIMEZONE", "Mars/Olympus"},
		{"SCHEDULER_RUN_AT", "25:99"},
	}
	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%q accepted, want error", tc.key, tc.value)
			}
		})
	}
}

func TestResolveDatabaseURLCloudSQLFallback(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("INSTANCE_CONNECTION_NAME", "proj:region:db")
	t.Setenv("DB_USER", "townwire")
	t.Setenv("DB_NAME", "townwire")
	t.Setenv("DB_PASSWORD", "secret")

	got := resolveDatabaseURL()
	if !strings.Contains(got, "host=/cloudsql/proj:region:db") {
		t.Errorf("url = %q, want cloudsql socket host", got)
	}
	if !strings.Contains(got, "password=secret") {
		t.Errorf("url = %q, want password", got)
	}

	t.Setenv("DATABASE_URL", "postgres://direct")
	if got := resolveDatabaseURL(); got != "postgres://direct" {
		t.Errorf("url = %q, DATABASE_URL should win", got)
	}
}

func TestSchedulerLocation(t *testing.T) {
	s := SchedulerConfig{Timezone: "America/Chicago"}
	if s.Location().String() != "America/Chicago" {
		t.Errorf("location = %v", s.Location())
	}

	s.Timezone = "Nowhere/Invalid"
	if s.Location() != time.UTC {
		t.Errorf("invalid timezone should fall back to UTC")
	}
}

func TestLoadSources(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	content := `sources:
  - id: gazette
    name: Maplewood Gazette
    url: https://gazette.example.com/feed
    active: true
  - name: City Calendar
    url: https://city.example.com/rss
    active: false
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources: %v", err)
	}

	sources, err := LoadSources(path)
	if err != nil {
		t.Fatalf("load sources: %v", err)
	}
	if len(sources) != 2 {
		t.Fatalf("loaded %d sources, want 2", len(sources))
	}
	if sources[0].ID != "gazette" || !sources[0].Active {
		t.Errorf("first source = %+v", sources[0])
	}
	// Missing id falls back to the name; inactive feeds are kept.
	if sources[1].ID != "City Calendar" || sources[1].Active {
		t.Errorf("second source = %+v", sources[1])
	}
}

func TestLoadSourcesRejectsMissingURL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sources.yaml")
	if err := os.WriteFile(path, []byte("sources:\n  - name: broken\n"), 0o644); err != nil {
		t.Fatalf("write sources: %v", err)
	}
	if _, err := LoadSources(path); err == nil {
		t.Error("source without url accepted")
	}
}

func TestLoadSourcesMissingFile(t *testing.T) {
	if _, err := LoadSources(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("missing file accepted")
	}
}
