package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ricirt/autoblog/internal/domain"
)

type pgContentStore struct {
	pool *pgxpool.Pool
	urls URLs
}

// NewPgContentStore returns a ContentStore backed by PostgreSQL.
func NewPgContentStore(pool *pgxpool.Pool, urls URLs) ContentStore {
	return &pgContentStore{pool: pool, urls: urls}
}

func (s *pgContentStore) Create(ctx context.Context, a domain.Article) (int64, error) {
	articleDefaults(&a)
	slug, err := nextSlug(ctx, a.Slug, s.slugTaken)
	if err != nil {
		return 0, fmt.Errorf("resolve slug: %w", err)
	}
	meta, err := json.Marshal(a.Meta)
	if err != nil {
		return 0, fmt.Errorf("encode meta: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx, `
		INSERT INTO articles (title, slug, body, status, type, category, tags, featured_image, meta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		a.Title, slug, a.Body, string(a.Status), a.Type, a.Category, a.Tags, a.FeaturedImage, meta, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}
	return id, nil
}

func (s *pgContentStore) slugTaken(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM articles WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

func (s *pgContentStore) Search(ctx context.Context, query string, types []string, status domain.PostStatus, limit int) ([]domain.Candidate, error) {
	args := []any{string(status), types}
	conditions := []string{"status = $1", "type = ANY($2)"}
	for _, term := range searchTerms(query) {
		args = append(args, likePattern(term))
		conditions = append(conditions, fmt.Sprintf("(title ILIKE $%d OR body ILIKE $%d)", len(args), len(args)))
	}
	args = append(args, limit)

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, title, slug
		FROM articles
		WHERE %s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d`, strings.Join(conditions, " AND "), len(args)), args...)
	if err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}
	defer rows.Close()

	var candidates []domain.Candidate
	for rows.Next() {
		var (
			c    domain.Candidate
			slug string
		)
		if err := rows.Scan(&c.ID, &c.Title, &slug); err != nil {
			return nil, err
		}
		c.URL = s.urls.permalink(slug)
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (s *pgContentStore) Permalink(ctx context.Context, id int64) (string, error) {
	var slug string
	err := s.pool.QueryRow(ctx, `SELECT slug FROM articles WHERE id = $1`, id).Scan(&slug)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get article %d: %w", id, err)
	}
	return s.urls.permalink(slug), nil
}

func (s *pgContentStore) EditURL(id int64) string {
	return s.urls.editURL(id)
}

func (s *pgContentStore) SaveMedia(ctx context.Context, m domain.MediaAsset) (int64, error) {
	var id int64
	err := s.pool.QueryRow(ctx, `
		INSERT INTO media_assets (filename, mime, data, alt_text, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		m.Filename, m.MIME, m.Data, m.AltText, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert media asset: %w", err)
	}
	return id, nil
}
