package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/townwire/townwire/internal/curation"
	"github.com/townwire/townwire/internal/models"
)

// ArticleRepository provides postgres access to rewritten articles.
type ArticleRepository struct {
	db *sql.DB
}

// NewArticleRepository creates an article repository.
func NewArticleRepository(db *sql.DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Insert stores a new article.
func (r *ArticleRepository) Insert(ctx context.Context, a models.Article) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO articles (id, campaign_id, item_id, headline, body, word_count, source_url, author, image_url, fact_score, fact_detail, rank, active, skipped, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, a.ID, a.CampaignID, a.ItemID, a.Headline, a.Body, a.WordCount, a.SourceURL, a.Author,
		a.ImageURL, a.FactScore, a.FactDetail, a.Rank, a.Active, a.Skipped, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert article: %w", err)
	}
	return nil
}

// ListByCampaign returns a campaign's articles in insertion order.
func (r *ArticleRepository) ListByCampaign(ctx context.Context, campaignID string) ([]models.Article, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, campaign_id, item_id, headline, body, word_count, source_url, author, image_url, fact_score, fact_detail, rank, active, skipped, created_at
		FROM articles
		WHERE campaign_id = $1
		ORDER BY created_at, id
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list articles: %w", err)
	}
	defer rows.Close()

	var out []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListScored joins each article to its item's evaluation total. Articles
// whose item scored blank carry a zero score.
func (r *ArticleRepository) ListScored(ctx context.Context, campaignID string) ([]curation.ScoredArticle, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.campaign_id, a.item_id, a.headline, a.body, a.word_count, a.source_url, a.author, a.image_url, a.fact_score, a.fact_detail, a.rank, a.active, a.skipped, a.created_at,
			COALESCE(e.total, 0)
		FROM articles a
		LEFT JOIN evaluations e ON e.item_id = a.item_id
		WHERE a.campaign_id = $1
		ORDER BY a.created_at, a.id
	`, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to list scored articles: %w", err)
	}
	defer rows.Close()

	var out []curation.ScoredArticle
	for rows.Next() {
		var (
			a     models.Article
			score int
		)
		if err := rows.Scan(&a.ID, &a.CampaignID, &a.ItemID, &a.Headline, &a.Body, &a.WordCount,
			&a.SourceURL, &a.Author, &a.ImageURL, &a.FactScore, &a.FactDetail, &a.Rank,
			&a.Active, &a.Skipped, &a.CreatedAt, &score); err != nil {
			return nil, fmt.Errorf("failed to scan scored article: %w", err)
		}
		out = append(out, curation.ScoredArticle{Article: a, Score: score})
	}
	return out, rows.Err()
}

// SetActive updates an article's active flag and rank.
func (r *ArticleRepository) SetActive(ctx context.Context, articleID string, active bool, rank *int) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles SET active = $2, rank = $3 WHERE id = $1
	`, articleID, active, rank)
	if err != nil {
		return fmt.Errorf("failed to set article active: %w", err)
	}
	return nil
}

// UpdateImageURL replaces an article's image URL.
func (r *ArticleRepository) UpdateImageURL(ctx context.Context, articleID, imageURL string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE articles SET image_url = $2 WHERE id = $1
	`, articleID, imageURL)
	if err != nil {
		return fmt.Errorf("failed to update article image: %w", err)
	}
	return nil
}

// DeleteByCampaign removes a campaign's articles.
func (r *ArticleRepository) DeleteByCampaign(ctx context.Context, campaignID string) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM articles WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete articles: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read delete result: %w", err)
	}
	return int(affected), nil
}

func scanArticle(rows *sql.Rows) (models.Article, error) {
	var a models.Article
	err := rows.Scan(&a.ID, &a.CampaignID, &a.ItemID, &a.Headline, &a.Body, &a.WordCount,
		&a.SourceURL, &a.Author, &a.ImageURL, &a.FactScore, &a.FactDetail, &a.Rank,
		&a.Active, &a.Skipped, &a.CreatedAt)
	if err != nil {
		return models.Article{}, fmt.Errorf("failed to scan article: %w", err)
	}
	return a, nil
}
