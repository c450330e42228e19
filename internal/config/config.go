package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents runtime configuration derived from environment variables.
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	Database  DatabaseConfig
	Oracle    OracleConfig
	Curation  CurationConfig
	Rehost    RehostConfig
	Events    EventsConfig
	Scheduler SchedulerConfig
	Alert     AlertConfig
	Sources   SourcesConfig
	Auth      AuthConfig
}

// ServerConfig holds parameters for the HTTP listener.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// AuthConfig secures the review API. When either value is unset the
// protected endpoints are not mounted.
type AuthConfig struct {
	JWTSecret         string
	AdminPasswordHash string // bcrypt hash of the admin password
	TokenDuration     time.Duration
}

// Enabled reports whether the protected API surface can be served.
func (a AuthConfig) Enabled() bool {
	return a.JWTSecret != "" && a.AdminPasswordHash != ""
}

// LoggingConfig represents structured logging configuration.
type LoggingConfig struct {
	Level  slog.Level
	Format string
}

// DatabaseConfig holds postgres connection parameters.
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
	ConnectTimeout     time.Duration
}

// OracleConfig holds settings for the generative-text capability.
type OracleConfig struct {
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
}

// CurationConfig tunes the scoring, rewriting and selection stages.
type CurationConfig struct {
	BatchSize           int           // concurrent oracle calls per evaluator batch
	BatchDelay          time.Duration // pause between evaluator batches
	TopK                int           // articles activated per campaign
	MinDescriptionWords int           // below this the evaluator scores blank
	SkipDuplicates      bool          // exclude non-primary duplicates from rewriting
	LowArticleThreshold int           // active-count at or below this raises a warning
	LocalityBonus       int           // added to totals mentioning 2+ localities
	Localities          []string
	RewriteMinWords     int
	RewriteMaxWords     int
}

// RehostConfig configures image downloading and object storage.
type RehostConfig struct {
	Bucket          string
	Region          string
	CDNBaseURL      string
	MaxBytes        int64
	DownloadTimeout time.Duration
	EphemeralHosts  []string // CDN hosts whose URLs expire and must be rehosted at ingest
}

// EventsConfig tunes the calendar populator.
type EventsConfig struct {
	MaxPerDay  int
	WindowDays int
}

// SchedulerConfig drives the daily gate.
type SchedulerConfig struct {
	Timezone      string
	RunAt         string // "HH:MM" in Timezone
	Window        time.Duration
	CheckInterval time.Duration
}

// AlertConfig configures the alerting sink.
type AlertConfig struct {
	SlackWebhookURL string
}

// SourcesConfig locates the YAML feed list.
type SourcesConfig struct {
	Path string
}

const (
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdownTimeout = 5 * time.Second
	defaultLogFormat       = "json"

	defaultTokenDuration = 24 * time.Hour

	defaultOracleModel   = "gpt-4o-mini"
	defaultOracleTimeout = 30 * time.Second

	defaultBatchSize           = 3
	defaultBatchDelay          = 2 * time.Second
	defaultTopK                = 5
	defaultMinDescWords        = 15
	defaultLowArticleThreshold = 2
	defaultLocalityBonus       = 3
	defaultRewriteMinWords     = 40
	defaultRewriteMaxWords     = 75

	defaultMaxImageBytes   = 5 << 20
	defaultDownloadTimeout = 20 * time.Second

	defaultEventsPerDay    = 8
	defaultEventWindowDays = 3

	defaultTimezone      = "America/Chicago"
	defaultRunAt         = "05:30"
	defaultGateWindow    = 15 * time.Minute
	defaultCheckInterval = time.Minute

	defaultSourcesPath = "sources.yaml"
)

// Load reads configuration from environment variables, applying defaults when
// values are not provided or invalid.
func Load() (Config, error) {
	cfg := Config{
		Server: ServerConfig{
			Port:            firstEnv("PORT", "SERVER_PORT", defaultPort),
			ReadTimeout:     defaultReadTimeout,
			WriteTimeout:    defaultWriteTimeout,
			ShutdownTimeout: defaultShutdownTimeout,
		},
		Logging: LoggingConfig{
			Level:  slog.LevelInfo,
			Format: defaultLogFormat,
		},
		Database: DatabaseConfig{
			URL:                resolveDatabaseURL(),
			MaxConnections:     25,
			MaxIdleConnections: 5,
			ConnMaxLifetime:    5 * time.Minute,
			ConnectTimeout:     10 * time.Second,
		},
		Oracle: OracleConfig{
			APIKey:      os.Getenv("OPENAI_API_KEY"),
			Model:       getEnv("OPENAI_MODEL", defaultOracleModel),
			Temperature: 0.3,
			MaxTokens:   1200,
			Timeout:     defaultOracleTimeout,
			MaxRetries:  3,
		},
		Curation: CurationConfig{
			BatchSize:           defaultBatchSize,
			BatchDelay:          defaultBatchDelay,
			TopK:                defaultTopK,
			MinDescriptionWords: defaultMinDescWords,
			LowArticleThreshold: defaultLowArticleThreshold,
			LocalityBonus:       defaultLocalityBonus,
			Localities:          splitList(os.Getenv("CURATION_LOCALITIES")),
			RewriteMinWords:     defaultRewriteMinWords,
			RewriteMaxWords:     defaultRewriteMaxWords,
		},
		Rehost: RehostConfig{
			Bucket:          os.Getenv("IMAGE_BUCKET"),
			Region:          getEnv("AWS_REGION", "us-east-1"),
			CDNBaseURL:      os.Getenv("IMAGE_CDN_BASE_URL"),
			MaxBytes:        defaultMaxImageBytes,
			DownloadTimeout: defaultDownloadTimeout,
			EphemeralHosts:  splitList(getEnv("IMAGE_EPHEMERAL_HOSTS", "fbcdn.net,cdninstagram.com")),
		},
		Events: EventsConfig{
			MaxPerDay:  defaultEventsPerDay,
			WindowDays: defaultEventWindowDays,
		},
		Scheduler: SchedulerConfig{
			Timezone:      getEnv("SCHEDULER_TIMEZONE", defaultTimezone),
			RunAt:         getEnv("SCHEDULER_RUN_AT", defaultRunAt),
			Window:        defaultGateWindow,
			CheckInterval: defaultCheckInterval,
		},
		Alert: AlertConfig{
			SlackWebhookURL: os.Getenv("SLACK_WEBHOOK_URL"),
		},
		Sources: SourcesConfig{
			Path: getEnv("SOURCES_FILE", defaultSourcesPath),
		},
		Auth: AuthConfig{
			JWTSecret:         os.Getenv("ADMIN_JWT_SECRET"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
			TokenDuration:     defaultTokenDuration,
		},
	}

	if v := os.Getenv("ADMIN_TOKEN_HOURS"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ADMIN_TOKEN_HOURS: %w", err)
		}
		cfg.Auth.TokenDuration = time.Duration(n) * time.Hour
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
		}
		cfg.Logging.Level = level
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		switch v {
		case "json", "text":
			cfg.Logging.Format = v
		default:
			return Config{}, fmt.Errorf("invalid LOG_FORMAT: must be 'json' or 'text'")
		}
	}

	if v := os.Getenv("OPENAI_TEMPERATURE"); v != "" {
		temp, err := strconv.ParseFloat(v, 32)
		if err != nil {
			return Config{}, fmt.Errorf("invalid OPENAI_TEMPERATURE: %w", err)
		}
		cfg.Oracle.Temperature = float32(temp)
	}

	if v := os.Getenv("ORACLE_TIMEOUT_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid ORACLE_TIMEOUT_SECONDS: %w", err)
		}
		cfg.Oracle.Timeout = d
	}

	if v := os.Getenv("CURATION_BATCH_SIZE"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CURATION_BATCH_SIZE: %w", err)
		}
		cfg.Curation.BatchSize = n
	}

	if v := os.Getenv("CURATION_BATCH_DELAY_SECONDS"); v != "" {
		d, err := parseSeconds(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CURATION_BATCH_DELAY_SECONDS: %w", err)
		}
		cfg.Curation.BatchDelay = d
	}

	if v := os.Getenv("CURATION_TOP_K"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CURATION_TOP_K: %w", err)
		}
		cfg.Curation.TopK = n
	}

	if v := os.Getenv("CURATION_SKIP_DUPLICATES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CURATION_SKIP_DUPLICATES: %w", err)
		}
		cfg.Curation.SkipDuplicates = b
	}

	if v := os.Getenv("EVENTS_MAX_PER_DAY"); v != "" {
		n, err := parsePositiveInt(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid EVENTS_MAX_PER_DAY: %w", err)
		}
		cfg.Events.MaxPerDay = n
	}

	if _, err := time.LoadLocation(cfg.Scheduler.Timezone); err != nil {
		return Config{}, fmt.Errorf("invalid SCHEDULER_TIMEZONE: %w", err)
	}

	if err := validateClock(cfg.Scheduler.RunAt); err != nil {
		return Config{}, fmt.Errorf("invalid SCHEDULER_RUN_AT: %w", err)
	}

	return cfg, nil
}

// resolveDatabaseURL prefers an explicit DATABASE_URL and otherwise builds a
// Cloud SQL unix-socket connection string from INSTANCE_CONNECTION_NAME.
// Cloud Run mounts instances at /cloudsql/<project:region:instance>.
func resolveDatabaseURL() string {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		return dbURL
	}

	instance := os.Getenv("INSTANCE_CONNECTION_NAME")
	user := os.Getenv("DB_USER")
	name := os.Getenv("DB_NAME")
	if instance == "" || user == "" || name == "" {
		return ""
	}

	conn := fmt.Sprintf("host=/cloudsql/%s user=%s dbname=%s sslmode=disable", instance, user, name)
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		conn += " password=" + password
	}
	return conn
}

// Location resolves the scheduler's reference time zone.
func (s SchedulerConfig) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func validateClock(raw string) error {
	if _, err := time.Parse("15:04", raw); err != nil {
		return fmt.Errorf("must be HH:MM")
	}
	return nil
}

func parseSeconds(raw string) (time.Duration, error) {
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < 0 {
		return 0, fmt.Errorf("must be a non-negative integer")
	}
	return time.Duration(seconds) * time.Second, nil
}

func parsePositiveInt(raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("must be a positive integer")
	}
	return n, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func firstEnv(key, alt, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return getEnv(alt, fallback)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch raw {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("must be one of debug, info, warn, error")
	}
}
