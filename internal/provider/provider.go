package provider

import (
	"context"
	"fmt"

	"github.com/ricirt/autoblog/internal/ratelimiter"
)

// TextGenerator produces an article body from a system and user prompt.
// Mocking this interface in tests gives full control over generation
// without making real HTTP calls.
type TextGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error)
}

// Image is a generated image in binary form.
type Image struct {
	Data []byte
	MIME string
}

// ImageGenerator produces a featured image for a prompt in a named style.
type ImageGenerator interface {
	Generate(ctx context.Context, prompt, style string) (Image, error)
}

// Provider names used for image selection and rate limiting.
const (
	NameOpenAI    = "openai"
	NameDallE     = "dall-e"
	NameStability = "stability"
)

// ImageProviders maps provider names to generators.
type ImageProviders map[string]ImageGenerator

// Get returns the generator registered under name.
func (p ImageProviders) Get(name string) (ImageGenerator, error) {
	g, ok := p[name]
	if !ok {
		return nil, fmt.Errorf("unknown image provider: %s", name)
	}
	return g, nil
}

// limitedText waits for a rate limiter token before every call.
type limitedText struct {
	next     TextGenerator
	limiters *ratelimiter.ProviderLimiters
	name     string
}

// LimitText wraps g so calls are rate limited under name.
func LimitText(g TextGenerator, limiters *ratelimiter.ProviderLimiters, name string) TextGenerator {
	return &limitedText{next: g, limiters: limiters, name: name}
}

func (l *limitedText) Generate(ctx context.Context, systemPrompt, userPrompt string, temperature float64) (string, error) {
	if err := l.limiters.Wait(ctx, l.name); err != nil {
		return "", fmt.Errorf("rate limit %s: %w", l.name, err)
	}
	return l.next.Generate(ctx, systemPrompt, userPrompt, temperature)
}

type limitedImage struct {
	next     ImageGenerator
	limiters *ratelimiter.ProviderLimiters
	name     string
}

// LimitImage wraps g so calls are rate limited under name.
func LimitImage(g ImageGenerator, limiters *ratelimiter.ProviderLimiters, name string) ImageGenerator {
	return &limitedImage{next: g, limiters: limiters, name: name}
}

func (l *limitedImage) Generate(ctx context.Context, prompt, style string) (Image, error) {
	if err := l.limiters.Wait(ctx, l.name); err != nil {
		return Image{}, fmt.Errorf("rate limit %s: %w", l.name, err)
	}
	return l.next.Generate(ctx, prompt, style)
}
