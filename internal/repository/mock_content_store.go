package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ricirt/autoblog/internal/domain"
)

// MockContentStore is a hand-written, in-memory ContentStore used in unit tests.
type MockContentStore struct {
	mu       sync.RWMutex
	articles []domain.Article
	media    []domain.MediaAsset
	urls     URLs

	// Optional error overrides; set in tests to simulate failure paths.
	CreateErr    error
	SearchErr    error
	SaveMediaErr error

	// Searches records every query passed to Search.
	Searches []string
}

func NewMockContentStore() *MockContentStore {
	return &MockContentStore{urls: URLs{PublicBase: "https://blog.test", AdminBase: "https://blog.test/admin"}}
}

func (m *MockContentStore) Create(ctx context.Context, a domain.Article) (int64, error) {
	if m.CreateErr != nil {
		return 0, m.CreateErr
	}
	articleDefaults(&a)
	m.mu.Lock()
	defer m.mu.Unlock()
	slug, _ := nextSlug(ctx, a.Slug, func(_ context.Context, s string) (bool, error) {
		return slices.ContainsFunc(m.articles, func(x domain.Article) bool { return x.Slug == s }), nil
	})
	a.ID = int64(len(m.articles) + 1)
	a.Slug = slug
	a.CreatedAt = time.Now().UTC()
	m.articles = append(m.articles, a)
	return a.ID, nil
}

// Publish is a test helper that stores a published post with the given title.
func (m *MockContentStore) Publish(title string) domain.Candidate {
	id, _ := m.Create(context.Background(), domain.Article{Title: title, Body: "<p>" + title + "</p>", Status: domain.PostPublish})
	link, _ := m.Permalink(context.Background(), id)
	return domain.Candidate{ID: id, Title: title, URL: link}
}

func (m *MockContentStore) Search(_ context.Context, query string, types []string, status domain.PostStatus, limit int) ([]domain.Candidate, error) {
	m.mu.Lock()
	m.Searches = append(m.Searches, query)
	m.mu.Unlock()
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	terms := searchTerms(query)
	var result []domain.Candidate
	for i := len(m.articles) - 1; i >= 0 && len(result) < limit; i-- {
		a := m.articles[i]
		if a.Status != status || !slices.Contains(types, a.Type) {
			continue
		}
		haystack := strings.ToLower(a.Title + " " + a.Body)
		if !allContained(haystack, terms) {
			continue
		}
		result = append(result, domain.Candidate{ID: a.ID, Title: a.Title, URL: m.urls.permalink(a.Slug)})
	}
	return result, nil
}

func allContained(haystack string, terms []string) bool {
	for _, t := range terms {
		if !strings.Contains(haystack, t) {
			return false
		}
	}
	return true
}

func (m *MockContentStore) Permalink(_ context.Context, id int64) (string, error) {
	a, ok := m.Article(id)
	if !ok {
		return "", domain.ErrNotFound
	}
	return m.urls.permalink(a.Slug), nil
}

func (m *MockContentStore) EditURL(id int64) string {
	return m.urls.editURL(id)
}

func (m *MockContentStore) SaveMedia(_ context.Context, asset domain.MediaAsset) (int64, error) {
	if m.SaveMediaErr != nil {
		return 0, m.SaveMediaErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	asset.ID = int64(len(m.media) + 1)
	asset.CreatedAt = time.Now().UTC()
	m.media = append(m.media, asset)
	return asset.ID, nil
}

// Article returns a copy of the stored article.
func (m *MockContentStore) Article(id int64) (domain.Article, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 1 || int(id) > len(m.articles) {
		return domain.Article{}, false
	}
	return m.articles[id-1], true
}

// Media returns a copy of the stored media asset.
func (m *MockContentStore) Media(id int64) (domain.MediaAsset, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 1 || int(id) > len(m.media) {
		return domain.MediaAsset{}, false
	}
	return m.media[id-1], true
}
