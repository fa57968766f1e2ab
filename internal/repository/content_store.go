package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ricirt/autoblog/internal/domain"
)

// ContentStore persists published articles and their media, and answers the
// keyword searches the linking engine runs against them.
type ContentStore interface {
	Create(ctx context.Context, a domain.Article) (int64, error)
	// Search returns articles of the given types and status whose title or body
	// contains every whitespace-separated term of query, newest first.
	Search(ctx context.Context, query string, types []string, status domain.PostStatus, limit int) ([]domain.Candidate, error)
	Permalink(ctx context.Context, id int64) (string, error)
	EditURL(id int64) string
	SaveMedia(ctx context.Context, m domain.MediaAsset) (int64, error)
}

// URLs builds public and admin addresses for articles.
type URLs struct {
	PublicBase string
	AdminBase  string
}

func (u URLs) permalink(slug string) string {
	return u.PublicBase + "/" + slug + "/"
}

func (u URLs) editURL(id int64) string {
	return fmt.Sprintf("%s/articles/%d/edit", u.AdminBase, id)
}

func searchTerms(query string) []string {
	return strings.Fields(strings.ToLower(query))
}

// likePattern wraps term in wildcards, escaping LIKE metacharacters with a backslash.
func likePattern(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(term) + "%"
}

func articleDefaults(a *domain.Article) {
	a.Status = a.Status.Normalize()
	if a.Type == "" {
		a.Type = domain.ContentPost
	}
	if a.Slug == "" {
		a.Slug = domain.Slugify(a.Title)
	}
	if a.Tags == nil {
		a.Tags = []string{}
	}
	if a.Meta == nil {
		a.Meta = map[string]string{}
	}
}

// nextSlug returns base, or base-N for the first N >= 2 not yet taken.
func nextSlug(ctx context.Context, base string, taken func(context.Context, string) (bool, error)) (string, error) {
	slug := base
	for n := 2; ; n++ {
		exists, err := taken(ctx, slug)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}
