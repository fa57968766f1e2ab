// Package pipeline turns a title and its option snapshot into a published article.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/ricirt/autoblog/internal/domain"
	"github.com/ricirt/autoblog/internal/linking"
	"github.com/ricirt/autoblog/internal/provider"
	"github.com/ricirt/autoblog/internal/repository"
)

// ErrEmptyContent is returned when the text provider answers with nothing usable.
var ErrEmptyContent = errors.New("text provider returned empty content")

// emptyContentMessage is what operators see on the queue item.
const emptyContentMessage = "AI returned empty content."

// FailureMessage is the text stored on a queue item whose run failed with err.
func FailureMessage(err error) string {
	if errors.Is(err, ErrEmptyContent) {
		return emptyContentMessage
	}
	return err.Error()
}

// stageError keeps the underlying message intact while matching a stage sentinel.
type stageError struct {
	kind error
	err  error
}

func (e *stageError) Error() string   { return e.err.Error() }
func (e *stageError) Unwrap() []error { return []error{e.kind, e.err} }

func stageErr(kind, err error) error {
	return &stageError{kind: kind, err: err}
}

// Settings tunes provider calls.
type Settings struct {
	Temperature  float64
	TextTimeout  time.Duration
	ImageTimeout time.Duration
}

// Result describes a published article.
type Result struct {
	ArticleID  int64
	LinksAdded int
	// ImageError is set when the article was published without its image.
	ImageError string
}

// Orchestrator runs the generation pipeline for one title:
// prompts, text generation, link injection, featured image, publication.
type Orchestrator struct {
	text     provider.TextGenerator
	images   provider.ImageProviders
	store    repository.ContentStore
	linker   *linking.Engine
	hooks    Hooks
	settings Settings
	logger   *zap.Logger

	bodyPolicy  *bluemonday.Policy
	titlePolicy *bluemonday.Policy
}

func NewOrchestrator(
	text provider.TextGenerator,
	images provider.ImageProviders,
	store repository.ContentStore,
	linker *linking.Engine,
	hooks Hooks,
	settings Settings,
	logger *zap.Logger,
) *Orchestrator {
	if settings.TextTimeout <= 0 {
		settings.TextTimeout = 120 * time.Second
	}
	if settings.ImageTimeout <= 0 {
		settings.ImageTimeout = 120 * time.Second
	}
	return &Orchestrator{
		text:        text,
		images:      images,
		store:       store,
		linker:      linker,
		hooks:       hooks,
		settings:    settings,
		logger:      logger,
		bodyPolicy:  bluemonday.UGCPolicy(),
		titlePolicy: bluemonday.StrictPolicy(),
	}
}

// Run generates and publishes one article. Failures before publication are
// returned wrapped in domain.ErrGeneration or domain.ErrPublication; image
// failures are reported in Result.ImageError instead.
func (o *Orchestrator) Run(ctx context.Context, title string, opts domain.Options) (Result, error) {
	log := o.logger.With(zap.String("title", title))

	related := ""
	if opts.InternalLinking {
		var err error
		related, err = o.linker.ContextForPrompt(ctx, title)
		if err != nil {
			return Result{}, stageErr(domain.ErrGeneration, fmt.Errorf("find related articles: %w", err))
		}
	}

	system := applyText(o.hooks.SystemPrompt, SystemPrompt(opts), title, opts)
	user := applyText(o.hooks.UserPrompt, UserPrompt(title, opts, related), title, opts)

	body, err := o.generateText(ctx, system, user)
	if err != nil {
		return Result{}, stageErr(domain.ErrGeneration, err)
	}
	body = applyText(o.hooks.Content, body, title, opts)
	body = o.bodyPolicy.Sanitize(body)

	var res Result
	if opts.InternalLinking {
		body, res.LinksAdded, err = o.linker.InjectLinks(ctx, body, title, opts.MaxLinks)
		if err != nil {
			return Result{}, stageErr(domain.ErrGeneration, fmt.Errorf("inject links: %w", err))
		}
	}

	var featured *int64
	if opts.ImageEnabled() {
		id, err := o.featuredImage(ctx, title, opts)
		if err != nil {
			res.ImageError = err.Error()
			log.Warn("featured image skipped", zap.Error(stageErr(domain.ErrImage, err)))
		} else {
			featured = &id
		}
	}

	article, err := o.buildArticle(title, body, opts, featured, res.ImageError)
	if err != nil {
		return Result{}, stageErr(domain.ErrPublication, err)
	}
	article = applyArticle(o.hooks.Article, article, opts)

	res.ArticleID, err = o.store.Create(ctx, article)
	if err != nil {
		return Result{}, stageErr(domain.ErrPublication, fmt.Errorf("create article: %w", err))
	}

	log.Info("article published",
		zap.Int64("article_id", res.ArticleID),
		zap.Int("links", res.LinksAdded),
		zap.Bool("image", featured != nil),
	)
	return res, nil
}

func (o *Orchestrator) generateText(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.settings.TextTimeout)
	defer cancel()

	text, err := o.text.Generate(ctx, system, user, o.settings.Temperature)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyContent
	}
	return text, nil
}

func (o *Orchestrator) featuredImage(ctx context.Context, title string, opts domain.Options) (int64, error) {
	gen, err := o.images.Get(opts.ImageProvider)
	if err != nil {
		return 0, err
	}
	prompt := applyText(o.hooks.ImagePrompt, ImagePrompt(title, opts.ImageStyle), title, opts)

	genCtx, cancel := context.WithTimeout(ctx, o.settings.ImageTimeout)
	defer cancel()
	img, err := gen.Generate(genCtx, prompt, opts.ImageStyle)
	if err != nil {
		return 0, err
	}

	id, err := o.store.SaveMedia(ctx, domain.MediaAsset{
		Filename: domain.Slugify(title) + "." + domain.ImageExtension(img.MIME),
		MIME:     img.MIME,
		Data:     img.Data,
		AltText:  title,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to save image: %w", err)
	}
	return id, nil
}

func (o *Orchestrator) buildArticle(title, body string, opts domain.Options, featured *int64, imageErr string) (domain.Article, error) {
	snapshot, err := json.Marshal(opts)
	if err != nil {
		return domain.Article{}, fmt.Errorf("encode options: %w", err)
	}

	cleanTitle := strings.TrimSpace(html.UnescapeString(o.titlePolicy.Sanitize(title)))
	a := domain.Article{
		Title:         cleanTitle,
		Slug:          domain.Slugify(cleanTitle),
		Body:          body,
		Status:        opts.PostStatus.Normalize(),
		Type:          domain.ContentPost,
		Tags:          opts.TagList(),
		FeaturedImage: featured,
		Meta: map[string]string{
			domain.MetaGenerated: "1",
			domain.MetaOptions:   string(snapshot),
		},
	}
	if opts.Category > 0 {
		cat := opts.Category
		a.Category = &cat
	}
	if imageErr != "" {
		a.Meta[domain.MetaImageError] = imageErr
	}
	return a, nil
}
