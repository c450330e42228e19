package models

import (
	"time"
)

// CalendarEvent is one source event from the local listings pool.
type CalendarEvent struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Venue     string    `json:"venue,omitempty"`
	URL       string    `json:"url,omitempty"`
	ImageURL  string    `json:"image_url,omitempty"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Featured  bool      `json:"featured"` // flagged featured upstream, always included
	Paid      bool      `json:"paid"`     // paid placement, included but never visually featured
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// OverlapsDate reports whether the event runs on the given calendar day.
func (e *CalendarEvent) OverlapsDate(day time.Time) bool {
	d := day.Truncate(24 * time.Hour)
	return !e.StartDate.After(d.Add(24*time.Hour-time.Nanosecond)) && !e.EndDate.Before(d)
}

// CampaignEvent records the selection of one event for one calendar day of
// a campaign's 3-day event window.
type CampaignEvent struct {
	CampaignID string    `json:"campaign_id"`
	EventID    string    `json:"event_id"`
	Date       time.Time `json:"date"`
	Selected   bool      `json:"selected"`
	Featured   bool      `json:"featured"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
}

// Advisory is one road-work or closure notice attached to a campaign,
// discovered best-effort by the search-augmented oracle.
type Advisory struct {
	ID          string     `json:"id"`
	CampaignID  string     `json:"campaign_id"`
	Location    string     `json:"location"`
	Description string     `json:"description"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}
