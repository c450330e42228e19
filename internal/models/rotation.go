package models

import (
	"time"
)

// RotationState is the persisted cursor and shuffle order for one listing
// category. The rotation selector draws ids in shuffle order, guaranteeing
// every eligible id is visited once per full cycle before any repeats.
type RotationState struct {
	Category  string    `json:"category"`
	Cursor    int       `json:"cursor"`
	Order     []string  `json:"order"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Exhausted reports whether the cursor has consumed the current shuffle.
func (s *RotationState) Exhausted() bool {
	return s == nil || s.Cursor >= len(s.Order)
}

// ArchiveRecord is an immutable snapshot of a campaign's working set taken
// before a destructive clear. Records are written once and never mutated.
type ArchiveRecord struct {
	ID          string       `json:"id"`
	CampaignID  string       `json:"campaign_id"`
	Reason      string       `json:"reason"`
	Items       []Item       `json:"items"`
	Evaluations []Evaluation `json:"evaluations"`
	Articles    []Article    `json:"articles"`
	CreatedAt   time.Time    `json:"created_at"`
}
