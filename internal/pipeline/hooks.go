package pipeline

import "github.com/ricirt/autoblog/internal/domain"

// TextTransform rewrites a prompt or body at a pipeline checkpoint.
type TextTransform func(text, title string, opts domain.Options) string

// ArticleTransform adjusts the article right before publication.
type ArticleTransform func(a domain.Article, opts domain.Options) domain.Article

// Hooks holds ordered transforms applied at each checkpoint.
// A nil list leaves the value as built.
type Hooks struct {
	SystemPrompt []TextTransform
	UserPrompt   []TextTransform
	// Content runs after generation, before sanitizing and linking.
	Content     []TextTransform
	ImagePrompt []TextTransform
	Article     []ArticleTransform
}

func applyText(fns []TextTransform, text, title string, opts domain.Options) string {
	for _, fn := range fns {
		text = fn(text, title, opts)
	}
	return text
}

func applyArticle(fns []ArticleTransform, a domain.Article, opts domain.Options) domain.Article {
	for _, fn := range fns {
		a = fn(a, opts)
	}
	return a
}
