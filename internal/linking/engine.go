package linking

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/ricirt/autoblog/internal/domain"
)

const (
	searchKeywords = 3
	searchLimit    = 50
	contextTitles  = 10
)

// CandidateSearcher is the text index the engine queries for link targets.
type CandidateSearcher interface {
	Search(ctx context.Context, query string, types []string, status domain.PostStatus, limit int) ([]domain.Candidate, error)
}

// Engine scores existing articles against a title and injects links to the
// best matches. It owns the scoring and injection; the searcher owns the index.
type Engine struct {
	searcher CandidateSearcher
}

func NewEngine(searcher CandidateSearcher) *Engine {
	return &Engine{searcher: searcher}
}

type scored struct {
	candidate domain.Candidate
	score     int
}

// FindRelated returns up to n published posts or pages ranked by how many
// distinct title keywords they share. Ties keep the searcher's order.
func (e *Engine) FindRelated(ctx context.Context, title string, n int) ([]domain.Candidate, error) {
	keywords := ExtractKeywords(title)
	if len(keywords) == 0 || n <= 0 {
		return nil, nil
	}

	query := strings.Join(keywords[:min(searchKeywords, len(keywords))], " ")
	found, err := e.searcher.Search(ctx, query, []string{domain.ContentPost, domain.ContentPage}, domain.PostPublish, searchLimit)
	if err != nil {
		return nil, fmt.Errorf("search link candidates: %w", err)
	}

	titleSet := toSet(keywords...)
	var ranked []scored
	for _, c := range found {
		if s := overlap(titleSet, ExtractKeywords(c.Title)); s > 0 {
			ranked = append(ranked, scored{candidate: c, score: s})
		}
	}
	slices.SortStableFunc(ranked, func(a, b scored) int { return b.score - a.score })

	result := make([]domain.Candidate, 0, min(n, len(ranked)))
	for _, r := range ranked[:min(n, len(ranked))] {
		result = append(result, r.candidate)
	}
	return result, nil
}

// overlap counts the distinct keywords present in both sets.
func overlap(titleSet map[string]struct{}, keywords []string) int {
	seen := make(map[string]struct{}, len(keywords))
	for _, k := range keywords {
		if _, ok := titleSet[k]; ok {
			seen[k] = struct{}{}
		}
	}
	return len(seen)
}

// ContextForPrompt lists the titles of the top related articles as "- title"
// lines, or returns "" when there are none.
func (e *Engine) ContextForPrompt(ctx context.Context, title string) (string, error) {
	related, err := e.FindRelated(ctx, title, contextTitles)
	if err != nil {
		return "", err
	}
	lines := make([]string, len(related))
	for i, c := range related {
		lines[i] = "- " + c.Title
	}
	return strings.Join(lines, "\n"), nil
}

// InjectLinks links at most maxLinks related articles into the paragraphs of
// body, one link per article, and returns the new body with the number of
// links added.
func (e *Engine) InjectLinks(ctx context.Context, body, title string, maxLinks int) (string, int, error) {
	if maxLinks <= 0 {
		return body, 0, nil
	}
	related, err := e.FindRelated(ctx, title, maxLinks*2)
	if err != nil {
		return body, 0, err
	}

	added := 0
	for _, c := range related {
		if added >= maxLinks {
			break
		}
		for _, kw := range ExtractKeywords(c.Title) {
			if len(kw) < 4 {
				continue
			}
			if linked, ok := linkFirstOccurrence(body, kw, c); ok {
				body = linked
				added++
				break
			}
		}
	}
	return body, added, nil
}
