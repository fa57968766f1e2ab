package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ricirt/autoblog/internal/domain"
)

// SQLiteContentStore implements ContentStore for single-node deployments.
type SQLiteContentStore struct {
	db   *sql.DB
	urls URLs
}

func NewSQLiteContentStore(db *sql.DB, urls URLs) *SQLiteContentStore {
	return &SQLiteContentStore{db: db, urls: urls}
}

func (s *SQLiteContentStore) Create(ctx context.Context, a domain.Article) (int64, error) {
	articleDefaults(&a)
	slug, err := nextSlug(ctx, a.Slug, s.slugTaken)
	if err != nil {
		return 0, fmt.Errorf("resolve slug: %w", err)
	}
	tags, err := json.Marshal(a.Tags)
	if err != nil {
		return 0, fmt.Errorf("encode tags: %w", err)
	}
	meta, err := json.Marshal(a.Meta)
	if err != nil {
		return 0, fmt.Errorf("encode meta: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (title, slug, body, status, type, category, tags, featured_image, meta, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Title, slug, a.Body, string(a.Status), a.Type, a.Category, string(tags), a.FeaturedImage, string(meta), time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert article: %w", err)
	}
	return result.LastInsertId()
}

func (s *SQLiteContentStore) slugTaken(ctx context.Context, slug string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles WHERE slug = ?`, slug).Scan(&n)
	return n > 0, err
}

// Search relies on LIKE being case-insensitive for ASCII in SQLite.
func (s *SQLiteContentStore) Search(ctx context.Context, query string, types []string, status domain.PostStatus, limit int) ([]domain.Candidate, error) {
	if len(types) == 0 {
		return nil, nil
	}
	args := []any{string(status)}
	placeholders := make([]string, len(types))
	for i, t := range types {
		placeholders[i] = "?"
		args = append(args, t)
	}
	conditions := []string{"status = ?", fmt.Sprintf("type IN (%s)", strings.Join(placeholders, ", "))}
	for _, term := range searchTerms(query) {
		p := likePattern(term)
		args = append(args, p, p)
		conditions = append(conditions, `(title LIKE ? ESCAPE '\' OR body LIKE ? ESCAPE '\')`)
	}
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT id, title, slug
		FROM articles
		WHERE %s
		ORDER BY id DESC
		LIMIT ?`, strings.Join(conditions, " AND ")), args...)
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

func (s *SQLiteContentStore) Permalink(ctx context.Context, id int64) (string, error) {
	var slug string
	err := s.db.QueryRowContext(ctx, `SELECT slug FROM articles WHERE id = ?`, id).Scan(&slug)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get article %d: %w", id, err)
	}
	return s.urls.permalink(slug), nil
}

func (s *SQLiteContentStore) EditURL(id int64) string {
	return s.urls.editURL(id)
}

func (s *SQLiteContentStore) SaveMedia(ctx context.Context, m domain.MediaAsset) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO media_assets (filename, mime, data, alt_text, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.Filename, m.MIME, m.Data, m.AltText, time.Now().UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert media asset: %w", err)
	}
	return result.LastInsertId()
}

// Article loads a stored article.
func (s *SQLiteContentStore) Article(ctx context.Context, id int64) (*domain.Article, error) {
	var (
		a          domain.Article
		status     string
		tags, meta string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, slug, body, status, type, category, tags, featured_image, meta, created_at
		FROM articles WHERE id = ?`, id).
		Scan(&a.ID, &a.Title, &a.Slug, &a.Body, &status, &a.Type, &a.Category, &tags, &a.FeaturedImage, &meta, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}
	a.Status = domain.PostStatus(status)
	if err := json.Unmarshal([]byte(tags), &a.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal([]byte(meta), &a.Meta); err != nil {
		return nil, fmt.Errorf("decode meta: %w", err)
	}
	return &a, nil
}
