package models

import (
	"strings"
	"time"
)

// SourceFeed describes one configured content feed.
type SourceFeed struct {
	ID         string `json:"id" yaml:"id"`
	Name       string `json:"name" yaml:"name"`
	URL        string `json:"url" yaml:"url"`
	Active     bool   `json:"active" yaml:"active"`
	ErrorCount int    `json:"error_count" yaml:"-"`
}

// Item is one raw ingested piece of content, owned by a campaign. Items for
// a campaign are archived and deleted wholesale at the start of each
// reprocessing run.
type Item struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	SourceID    string    `json:"source_id"`
	ExternalID  string    `json:"external_id"` // dedup key within the source
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Body        string    `json:"body,omitempty"`
	Author      string    `json:"author,omitempty"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"image_url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
}

// Text returns the best available prose for the item, preferring the full
// body over the feed description.
func (i *Item) Text() string {
	if strings.TrimSpace(i.Body) != "" {
		return i.Body
	}
	return i.Description
}

// DescriptionWordCount counts whitespace-separated words in the description.
func (i *Item) DescriptionWordCount() int {
	return len(strings.Fields(i.Description))
}

// Evaluation holds the AI interest/relevance/impact scores for one item.
// One-to-one with Item; absent entirely when the blank-rating policy applied.
type Evaluation struct {
	ItemID    string    `json:"item_id"`
	Interest  int       `json:"interest"`
	Relevance int       `json:"relevance"`
	Impact    int       `json:"impact"`
	Total     int       `json:"total"`
	Reasoning string    `json:"reasoning,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DuplicateGroup clusters items covering the same story. Membership is
// informational; non-primary items are not deleted.
type DuplicateGroup struct {
	PrimaryItemID string            `json:"primary_item_id"`
	Topic         string            `json:"topic"`
	Members       []DuplicateMember `json:"members"`
}

// DuplicateMember is one non-primary item in a duplicate group.
type DuplicateMember struct {
	ItemID     string  `json:"item_id"`
	Similarity float64 `json:"similarity"`
}
