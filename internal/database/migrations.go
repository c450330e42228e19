package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migration is one named, idempotent schema step. Steps run in slice order
// inside individual transactions and are recorded in schema_migrations.
type migration struct {
	name string
	stmt string
}

var migrations = []migration{
	{
		name: "001_campaigns",
		stmt: `CREATE TABLE IF NOT EXISTS campaigns (
			id UUID PRIMARY KEY,
			date DATE NOT NULL UNIQUE,
			status VARCHAR(32) NOT NULL,
			subject_line TEXT NOT NULL DEFAULT '',
			review_sent_at TIMESTAMPTZ,
			final_sent_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "002_items",
		stmt: `CREATE TABLE IF NOT EXISTS items (
			id UUID PRIMARY KEY,
			campaign_id UUID NOT NULL REFERENCES campaigns(id),
			source_id TEXT NOT NULL,
			external_id TEXT NOT NULL,
			title TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			body TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL,
			image_url TEXT NOT NULL DEFAULT '',
			published_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE (campaign_id, source_id, external_id)
		)`,
	},
	{
		name: "003_evaluations",
		stmt: `CREATE TABLE IF NOT EXISTS evaluations (
			item_id UUID PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
			interest INT NOT NULL,
			relevance INT NOT NULL,
			impact INT NOT NULL,
			total INT NOT NULL,
			reasoning TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "004_articles",
		stmt: `CREATE TABLE IF NOT EXISTS articles (
			id UUID PRIMARY KEY,
			campaign_id UUID NOT NULL REFERENCES campaigns(id),
			item_id UUID NOT NULL,
			headline TEXT NOT NULL,
			body TEXT NOT NULL,
			word_count INT NOT NULL,
			source_url TEXT NOT NULL DEFAULT '',
			author TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			fact_score INT NOT NULL DEFAULT 0,
			fact_detail TEXT NOT NULL DEFAULT '',
			rank INT,
			active BOOLEAN NOT NULL DEFAULT FALSE,
			skipped BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "005_calendar_events",
		stmt: `CREATE TABLE IF NOT EXISTS calendar_events (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			venue TEXT NOT NULL DEFAULT '',
			url TEXT NOT NULL DEFAULT '',
			image_url TEXT NOT NULL DEFAULT '',
			start_date DATE NOT NULL,
			end_date DATE NOT NULL,
			featured BOOLEAN NOT NULL DEFAULT FALSE,
			paid BOOLEAN NOT NULL DEFAULT FALSE,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "006_campaign_events",
		stmt: `CREATE TABLE IF NOT EXISTS campaign_events (
			campaign_id UUID NOT NULL REFERENCES campaigns(id),
			event_id UUID NOT NULL REFERENCES calendar_events(id),
			date DATE NOT NULL,
			selected BOOLEAN NOT NULL DEFAULT TRUE,
			featured BOOLEAN NOT NULL DEFAULT FALSE,
			position INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (campaign_id, event_id, date)
		)`,
	},
	{
		name: "007_rotation_states",
		stmt: `CREATE TABLE IF NOT EXISTS rotation_states (
			category TEXT PRIMARY KEY,
			cursor_index INT NOT NULL DEFAULT 0,
			shuffle_order JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "008_archive_records",
		stmt: `CREATE TABLE IF NOT EXISTS archive_records (
			id UUID PRIMARY KEY,
			campaign_id UUID NOT NULL,
			reason TEXT NOT NULL,
			snapshot JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "009_advisories",
		stmt: `CREATE TABLE IF NOT EXISTS advisories (
			id UUID PRIMARY KEY,
			campaign_id UUID NOT NULL REFERENCES campaigns(id),
			location TEXT NOT NULL,
			description TEXT NOT NULL,
			start_date DATE,
			end_date DATE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "010_job_runs",
		stmt: `CREATE TABLE IF NOT EXISTS job_runs (
			name TEXT PRIMARY KEY,
			last_run_date DATE NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "011_campaign_promo",
		stmt: `ALTER TABLE campaigns
			ADD COLUMN IF NOT EXISTS promo_event_id UUID,
			ADD COLUMN IF NOT EXISTS promo_image_url TEXT NOT NULL DEFAULT ''`,
	},
	{
		name: "012_source_feed_errors",
		stmt: `CREATE TABLE IF NOT EXISTS source_feed_errors (
			source_id TEXT PRIMARY KEY,
			error_count INT NOT NULL DEFAULT 0,
			last_error TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
	{
		name: "013_oracle_calls",
		stmt: `CREATE TABLE IF NOT EXISTS oracle_calls (
			id BIGSERIAL PRIMARY KEY,
			stage TEXT NOT NULL,
			model TEXT NOT NULL,
			prompt_tokens INT NOT NULL DEFAULT 0,
			completion_tokens INT NOT NULL DEFAULT 0,
			total_tokens INT NOT NULL DEFAULT 0,
			latency_ms BIGINT NOT NULL DEFAULT 0,
			status TEXT NOT NULL,
			error_message TEXT NOT NULL DEFAULT '',
			cost_usd NUMERIC(10, 6) NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	},
}

// RunMigrations applies all pending schema migrations.
func RunMigrations(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(255) PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	applied := make(map[string]bool)
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return fmt.Errorf("failed to scan migration version: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate applied migrations: %w", err)
	}

	pending := 0
	for _, m := range migrations {
		if applied[m.name] {
			continue
		}

		pending++
		logger.Info("applying migration", "name", m.name)

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction for %s: %w", m.name, err)
		}

		if _, err := tx.ExecContext(ctx, m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", m.name, err)
		}

		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES ($1)", m.name); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.name, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %s: %w", m.name, err)
		}
	}

	if pending == 0 {
		logger.Info("no pending migrations")
	} else {
		logger.Info("migrations applied", "count", pending)
	}

	return nil
}
