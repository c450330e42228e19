package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/townwire/townwire/internal/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// EventRepository provides postgres access to the event pool and
// per-campaign selections.
type EventRepository struct {
	db *sql.DB
}

// NewEventRepository creates an event repository.
func NewEventRepository(db *sql.DB) *EventRepository {
	return &EventRepository{db: db}
}

// UpsertEvent stores or refreshes one pool event.
func (r *EventRepository) UpsertEvent(ctx context.Context, e models.CalendarEvent) error {
	query, args, err := psql.Insert("calendar_events").
		Columns("id", "title", "venue", "url", "image_url", "start_date", "end_date", "featured", "paid", "active", "created_at").
		Values(e.ID, e.Title, e.Venue, e.URL, e.ImageURL, e.StartDate, e.EndDate, e.Featured, e.Paid, e.Active, e.CreatedAt).
		Suffix(`ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			venue = EXCLUDED.venue,
			url = EXCLUDED.url,
			image_url = EXCLUDED.image_url,
			start_date = EXCLUDED.start_date,
			end_date = EXCLUDED.end_date,
			featured = EXCLUDED.featured,
			paid = EXCLUDED.paid,
			active = EXCLUDED.active`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build event upsert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert event: %w", err)
	}
	return nil
}

// ListActiveOverlapping returns active pool events running on the day.
func (r *EventRepository) ListActiveOverlapping(ctx context.Context, day time.Time) ([]models.CalendarEvent, error) {
	query, args, err := psql.Select("id", "title", "venue", "url", "image_url", "start_date", "end_date", "featured", "paid", "active", "created_at").
		From("calendar_events").
		Where(sq.Eq{"active": true}).
		Where(sq.LtOrEq{"start_date": day}).
		Where(sq.GtOrEq{"end_date": day}).
		OrderBy("start_date", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build event query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []models.CalendarEvent
	for rows.Next() {
		var e models.CalendarEvent
		if err := rows.Scan(&e.ID, &e.Title, &e.Venue, &e.URL, &e.ImageURL, &e.StartDate, &e.EndDate,
			&e.Featured, &e.Paid, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListSelected returns the selections already made for one (campaign, date).
func (r *EventRepository) ListSelected(ctx context.Context, campaignID string, date time.Time) ([]models.CampaignEvent, error) {
	query, args, err := psql.Select("campaign_id", "event_id", "date", "selected", "featured", "position", "created_at").
		From("campaign_events").
		Where(sq.Eq{"campaign_id": campaignID, "date": date}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build selection query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list selections: %w", err)
	}
	defer rows.Close()

	var out []models.CampaignEvent
	for rows.Next() {
		var ce models.CampaignEvent
		if err := rows.Scan(&ce.CampaignID, &ce.EventID, &ce.Date, &ce.Selected, &ce.Featured, &ce.Position, &ce.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan selection: %w", err)
		}
		out = append(out, ce)
	}
	return out, rows.Err()
}

// InsertSelection stores one campaign-event row. Re-inserting an existing
// (campaign, event, date) is a no-op, keeping population re-entrant.
func (r *EventRepository) InsertSelection(ctx context.Context, ce models.CampaignEvent) error {
	query, args, err := psql.Insert("campaign_events").
		Columns("campaign_id", "event_id", "date", "selected", "featured", "position", "created_at").
		Values(ce.CampaignID, ce.EventID, ce.Date, ce.Selected, ce.Featured, ce.Position, ce.CreatedAt).
		Suffix("ON CONFLICT (campaign_id, event_id, date) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build selection insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert selection: %w", err)
	}
	return nil
}
