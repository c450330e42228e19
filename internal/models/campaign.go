package models

import (
	"time"
)

// Campaign represents one day's newsletter edition. There is at most one
// campaign per calendar date; the curation pipeline creates it on the first
// run of the day and advances its status, it is never deleted.
type Campaign struct {
	ID            string         `json:"id"`
	Date          time.Time      `json:"date"` // calendar date, time component zero
	Status        CampaignStatus `json:"status"`
	SubjectLine   string         `json:"subject_line,omitempty"`
	PromoEventID  string         `json:"promo_event_id,omitempty"` // rotated sponsored listing
	PromoImageURL string         `json:"promo_image_url,omitempty"`
	ReviewSentAt  *time.Time     `json:"review_sent_at,omitempty"`
	FinalSentAt   *time.Time     `json:"final_sent_at,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CampaignStatus tracks a campaign through its lifecycle.
type CampaignStatus string

const (
	CampaignStatusProcessing CampaignStatus = "processing" // curation run in progress
	CampaignStatusDraft      CampaignStatus = "draft"      // curation complete, awaiting review
	CampaignStatusInReview   CampaignStatus = "in_review"  // review email sent
	CampaignStatusSent       CampaignStatus = "sent"       // final newsletter delivered
	CampaignStatusFailed     CampaignStatus = "failed"     // final send failed
)

// validTransitions encodes the campaign state machine. The curation pipeline
// itself only ever writes processing and draft; in_review, sent and failed
// belong to the downstream send jobs.
var validTransitions = map[CampaignStatus][]CampaignStatus{
	CampaignStatusProcessing: {CampaignStatusDraft},
	CampaignStatusDraft:      {CampaignStatusProcessing, CampaignStatusInReview},
	CampaignStatusInReview:   {CampaignStatusProcessing, CampaignStatusSent, CampaignStatusFailed},
	CampaignStatusSent:       {},
	CampaignStatusFailed:     {CampaignStatusProcessing},
}

// CanTransitionTo reports whether moving from s to next is a legal step in
// the campaign state machine.
func (s CampaignStatus) CanTransitionTo(next CampaignStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible.
func (s CampaignStatus) IsTerminal() bool {
	return len(validTransitions[s]) == 0
}

// DateKey normalizes a timestamp to its calendar date in the given location.
func DateKey(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
