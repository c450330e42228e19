package models

import (
	"time"
)

// Article is a rewritten, fact-checked candidate for publication. Articles
// exist only for items that passed the fact-check gate; a reprocessing run
// archives and replaces them wholesale rather than mutating in place.
type Article struct {
	ID         string    `json:"id"`
	CampaignID string    `json:"campaign_id"`
	ItemID     string    `json:"item_id"`
	Headline   string    `json:"headline"`
	Body       string    `json:"body"`
	WordCount  int       `json:"word_count"`
	SourceURL  string    `json:"source_url"`
	Author     string    `json:"author,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	FactScore  int       `json:"fact_score"`
	FactDetail string    `json:"fact_detail,omitempty"`
	Rank       *int      `json:"rank,omitempty"` // nil until the selector runs
	Active     bool      `json:"active"`
	Skipped    bool      `json:"skipped"`
	CreatedAt  time.Time `json:"created_at"`
}

// FactCheck is the per-dimension result of checking a rewrite against its
// source. Passed gates article creation; a failing rewrite never becomes an
// Article.
type FactCheck struct {
	Accuracy   int    `json:"accuracy"`
	Timeliness int    `json:"timeliness"`
	Intent     int    `json:"intent"`
	Total      int    `json:"total"`
	Passed     bool   `json:"passed"`
	Issues     string `json:"issues,omitempty"`
}

// Rewrite is the oracle's short-article rendition of a raw item.
type Rewrite struct {
	Headline  string `json:"headline"`
	Body      string `json:"body"`
	WordCount int    `json:"word_count"`
}
