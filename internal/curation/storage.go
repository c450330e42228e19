package curation

import (
	"context"
	"sort"
	"sync"

	"github.com/townwire/townwire/internal/models"
)

// ArticleRepository defines storage for rewritten articles.
type ArticleRepository interface {
	// Insert stores a new article.
	Insert(ctx context.Context, article models.Article) error

	// ListByCampaign returns a campaign's articles in insertion order.
	ListByCampaign(ctx context.Context, campaignID string) ([]models.Article, error)

	// ListScored returns a campaign's articles joined to their item's
	// evaluation total, in insertion order. Articles whose item scored
	// blank carry a zero score.
	ListScored(ctx context.Context, campaignID string) ([]ScoredArticle, error)

	// SetActive updates an article's active flag and rank.
	SetActive(ctx context.Context, articleID string, active bool, rank *int) error

	// UpdateImageURL replaces an article's image URL.
	UpdateImageURL(ctx context.Context, articleID, imageURL string) error

	// DeleteByCampaign removes all articles for a campaign.
	DeleteByCampaign(ctx context.Context, campaignID string) (int, error)
}

// ScoredArticle pairs an article with its evaluation total for selection.
type ScoredArticle struct {
	models.Article
	Score int
}

// SubjectStore reads and writes a campaign's subject line.
type SubjectStore interface {
	GetSubjectLine(ctx context.Context, campaignID string) (string, error)
	SetSubjectLine(ctx context.Context, campaignID, subject string) error
}

// MemoryArticleRepository is an in-memory ArticleRepository for tests.
type MemoryArticleRepository struct {
	mu       sync.Mutex
	articles map[string]models.Article
	scores   map[string]int // item id -> evaluation total
	seq      int
	order    map[string]int
}

// NewMemoryArticleRepository creates an empty in-memory article repository.
func NewMemoryArticleRepository() *MemoryArticleRepository {
	return &MemoryArticleRepository{
		articles: make(map[string]models.Article),
		scores:   make(map[string]int),
		order:    make(map[string]int),
	}
}

// SetScore registers an item's evaluation total for ListScored.
func (r *MemoryArticleRepository) SetScore(itemID string, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores[itemID] = total
}

// Insert stores an article.
func (r *MemoryArticleRepository) Insert(ctx context.Context, article models.Article) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.articles[article.ID] = article
	r.order[article.ID] = r.seq
	r.seq++
	return nil
}

// ListByCampaign returns a campaign's articles in insertion order.
func (r *MemoryArticleRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.Article, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Article
	for _, a := range r.articles {
		if a.CampaignID == campaignID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return r.order[out[i].ID] < r.order[out[j].ID]
	})
	return out, nil
}

// ListScored joins articles to their registered evaluation totals.
func (r *MemoryArticleRepository) ListScored(ctx context.Context, campaignID string) ([]ScoredArticle, error) {
	articles, err := r.ListByCampaign(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]ScoredArticle, 0, len(articles))
	for _, a := range articles {
		out = append(out, ScoredArticle{Article: a, Score: r.scores[a.ItemID]})
	}
	return out, nil
}

// SetActive updates an article's active flag and rank.
func (r *MemoryArticleRepository) SetActive(ctx context.Context, articleID string, active bool, rank *int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.articles[articleID]; ok {
		a.Active = active
		a.Rank = rank
		r.articles[articleID] = a
	}
	return nil
}

// UpdateImageURL replaces an article's image URL.
func (r *MemoryArticleRepository) UpdateImageURL(ctx context.Context, articleID, imageURL string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if a, ok := r.articles[articleID]; ok {
		a.ImageURL = imageURL
		r.articles[articleID] = a
	}
	return nil
}

// DeleteByCampaign removes a campaign's articles.
func (r *MemoryArticleRepository) DeleteByCampaign(ctx context.Context, campaignID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	deleted := 0
	for id, a := range r.articles {
		if a.CampaignID == campaignID {
			delete(r.articles, id)
			delete(r.order, id)
			deleted++
		}
	}
	return deleted, nil
}

// MemorySubjectStore is an in-memory SubjectStore for tests.
type MemorySubjectStore struct {
	mu       sync.Mutex
	subjects map[string]string
}

// NewMemorySubjectStore creates an empty in-memory subject store.
func NewMemorySubjectStore() *MemorySubjectStore {
	return &MemorySubjectStore{subjects: make(map[string]string)}
}

// GetSubjectLine returns the stored subject line, "" when unset.
func (s *MemorySubjectStore) GetSubjectLine(ctx context.Context, campaignID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subjects[campaignID], nil
}

// SetSubjectLine stores a subject line.
func (s *MemorySubjectStore) SetSubjectLine(ctx context.Context, campaignID, subject string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects[campaignID] = subject
	return nil
}
