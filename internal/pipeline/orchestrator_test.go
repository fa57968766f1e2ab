package pipeline_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ricirt/autoblog/internal/domain"
	"github.com/ricirt/autoblog/internal/linking"
	"github.com/ricirt/autoblog/internal/pipeline"
	"github.com/ricirt/autoblog/internal/provider"
	"github.com/ricirt/autoblog/internal/repository"
	"github.com/ricirt/autoblog/internal/secret"
)

type fakeText struct {
	mu     sync.Mutex
	body   string
	err    error
	system string
	user   string
	temp   float64
}

func (f *fakeText) Generate(_ context.Context, system, user string, temperature float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.system, f.user, f.temp = system, user, temperature
	return f.body, f.err
}

type fakeImage struct {
	img    provider.Image
	err    error
	prompt string
}

func (f *fakeImage) Generate(_ context.Context, prompt, _ string) (provider.Image, error) {
	f.prompt = prompt
	return f.img, f.err
}

const breadBody = `<h2>Start</h2><p>Beginners often rush the dough.</p><p>Advanced bakers shape loaves carefully.</p>`

func newOrchestrator(text provider.TextGenerator, images provider.ImageProviders, store *repository.MockContentStore, hooks pipeline.Hooks) *pipeline.Orchestrator {
	return pipeline.NewOrchestrator(text, images, store, linking.NewEngine(store), hooks,
		pipeline.Settings{Temperature: 0.7, TextTimeout: time.Second, ImageTimeout: time.Second}, zap.NewNop())
}

func TestOrchestrator_PublishesWithLinks(t *testing.T) {
	store := repository.NewMockContentStore()
	store.Publish("Bread Baking Tips for Beginners")
	store.Publish("Advanced Bread Baking Tips")
	text := &fakeText{body: breadBody}
	o := newOrchestrator(text, nil, store, pipeline.Hooks{})

	opts := domain.Options{
		WordCount: 1200, Tone: "friendly", PostStatus: domain.PostDraft,
		InternalLinking: true, MaxLinks: 3, Tags: "bread, baking", Category: 4,
		ImageProvider: domain.ImageProviderNone,
	}
	res, err := o.Run(context.Background(), "Bread baking tips", opts)
	require.NoError(t, err)
	assert.Equal(t, 2, res.LinksAdded)
	assert.Empty(t, res.ImageError)

	assert.Contains(t, text.user, "- Advanced Bread Baking Tips\n- Bread Baking Tips for Beginners")
	assert.Contains(t, text.system, "friendly tone")
	assert.InDelta(t, 0.7, text.temp, 1e-9)

	a, ok := store.Article(res.ArticleID)
	require.True(t, ok)
	assert.Equal(t, "Bread baking tips", a.Title)
	assert.Equal(t, domain.PostDraft, a.Status)
	assert.Equal(t, []string{"bread", "baking"}, a.Tags)
	require.NotNil(t, a.Category)
	assert.Equal(t, int64(4), *a.Category)
	assert.Nil(t, a.FeaturedImage)
	assert.Contains(t, a.Body, `<a href="https://blog.test/advanced-bread-baking-tips/" title="Advanced Bread Baking Tips">Advanced</a> bakers`)
	assert.Contains(t, a.Body, `<a href="https://blog.test/bread-baking-tips-for-beginners/" title="Bread Baking Tips for Beginners">Beginners</a> often`)

	assert.Equal(t, "1", a.Meta[domain.MetaGenerated])
	var snapshot domain.Options
	require.NoError(t, json.Unmarshal([]byte(a.Meta[domain.MetaOptions]), &snapshot))
	assert.Equal(t, opts, snapshot)
	assert.NotContains(t, a.Meta, domain.MetaImageError)
}

func TestOrchestrator_LinkingDisabled(t *testing.T) {
	store := repository.NewMockContentStore()
	store.Publish("Advanced Bread Baking Tips")
	text := &fakeText{body: breadBody}
	o := newOrchestrator(text, nil, store, pipeline.Hooks{})

	res, err := o.Run(context.Background(), "Bread baking tips", domain.Options{MaxLinks: 3})
	require.NoError(t, err)
	assert.Zero(t, res.LinksAdded)
	assert.Empty(t, store.Searches, "no search when linking is off")
	assert.NotContains(t, text.user, "related topics")
}

func TestOrchestrator_StabilityWithoutKey(t *testing.T) {
	store := repository.NewMockContentStore()
	stability := provider.NewStability("http://127.0.0.1:1", secret.NewStore("", ""), time.Second)
	o := newOrchestrator(&fakeText{body: "<p>Rye.</p>"}, provider.ImageProviders{provider.NameStability: stability}, store, pipeline.Hooks{})

	res, err := o.Run(context.Background(), "Rye loaves", domain.Options{ImageProvider: provider.NameStability, PostStatus: domain.PostPublish})
	require.NoError(t, err)
	assert.Equal(t, "Stability AI API key is not configured", res.ImageError)

	a, ok := store.Article(res.ArticleID)
	require.True(t, ok)
	assert.Nil(t, a.FeaturedImage)
	assert.Equal(t, "Stability AI API key is not configured", a.Meta[domain.MetaImageError])
	assert.Equal(t, domain.PostPublish, a.Status)
}

func TestOrchestrator_FeaturedImage(t *testing.T) {
	store := repository.NewMockContentStore()
	img := &fakeImage{img: provider.Image{Data: []byte("jpegdata"), MIME: "image/jpeg"}}
	hooks := pipeline.Hooks{
		ImagePrompt: []pipeline.TextTransform{func(p, _ string, _ domain.Options) string { return p + " Warm light." }},
	}
	o := newOrchestrator(&fakeText{body: "<p>Rye.</p>"}, provider.ImageProviders{provider.NameDallE: img}, store, hooks)

	res, err := o.Run(context.Background(), "Rye Loaves!", domain.Options{ImageProvider: provider.NameDallE, ImageStyle: "watercolor"})
	require.NoError(t, err)
	assert.Empty(t, res.ImageError)
	assert.Contains(t, img.prompt, "Style: watercolor painting, artistic.")
	assert.Contains(t, img.prompt, "Warm light.")

	a, _ := store.Article(res.ArticleID)
	require.NotNil(t, a.FeaturedImage)
	media, ok := store.Media(*a.FeaturedImage)
	require.True(t, ok)
	assert.Equal(t, "rye-loaves.jpg", media.Filename)
	assert.Equal(t, "Rye Loaves!", media.AltText)
	assert.Equal(t, []byte("jpegdata"), media.Data)
}

func TestOrchestrator_ImageErrorsAreContained(t *testing.T) {
	tests := []struct {
		name    string
		images  provider.ImageProviders
		saveErr error
		want    string
	}{
		{"unknown provider", provider.ImageProviders{}, nil, "unknown image provider: dall-e"},
		{"provider failure", provider.ImageProviders{provider.NameDallE: &fakeImage{err: errors.New("DALL-E generation failed: 500")}}, nil, "DALL-E generation failed: 500"},
		{"media store failure", provider.ImageProviders{provider.NameDallE: &fakeImage{img: provider.Image{Data: []byte{1}, MIME: "image/png"}}}, errors.New("disk full"), "failed to save image: disk full"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := repository.NewMockContentStore()
			store.SaveMediaErr = tc.saveErr
			o := newOrchestrator(&fakeText{body: "<p>Body.</p>"}, tc.images, store, pipeline.Hooks{})

			res, err := o.Run(context.Background(), "Oats", domain.Options{ImageProvider: provider.NameDallE})
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.ImageError)
			a, _ := store.Article(res.ArticleID)
			assert.Equal(t, tc.want, a.Meta[domain.MetaImageError])
		})
	}
}

func TestOrchestrator_Failures(t *testing.T) {
	t.Run("empty text", func(t *testing.T) {
		o := newOrchestrator(&fakeText{body: "  \n"}, nil, repository.NewMockContentStore(), pipeline.Hooks{})
		_, err := o.Run(context.Background(), "Oats", domain.Options{})
		assert.ErrorIs(t, err, domain.ErrGeneration)
		assert.ErrorIs(t, err, pipeline.ErrEmptyContent)
		assert.EqualError(t, err, "text provider returned empty content")
		assert.Equal(t, "AI returned empty content.", pipeline.FailureMessage(err))
	})

	t.Run("provider error keeps message", func(t *testing.T) {
		o := newOrchestrator(&fakeText{err: errors.New("AI text generation failed: 429")}, nil, repository.NewMockContentStore(), pipeline.Hooks{})
		_, err := o.Run(context.Background(), "Oats", domain.Options{})
		assert.ErrorIs(t, err, domain.ErrGeneration)
		assert.EqualError(t, err, "AI text generation failed: 429")
	})

	t.Run("search failure", func(t *testing.T) {
		store := repository.NewMockContentStore()
		store.SearchErr = errors.New("index offline")
		text := &fakeText{body: "<p>Body.</p>"}
		o := newOrchestrator(text, nil, store, pipeline.Hooks{})
		_, err := o.Run(context.Background(), "Oat porridge", domain.Options{InternalLinking: true, MaxLinks: 2})
		assert.ErrorIs(t, err, domain.ErrGeneration)
		assert.Empty(t, text.user, "text generation never started")
	})

	t.Run("publication rejected", func(t *testing.T) {
		store := repository.NewMockContentStore()
		store.CreateErr = errors.New("constraint violation")
		o := newOrchestrator(&fakeText{body: "<p>Body.</p>"}, nil, store, pipeline.Hooks{})
		_, err := o.Run(context.Background(), "Oats", domain.Options{})
		assert.ErrorIs(t, err, domain.ErrPublication)
		assert.NotErrorIs(t, err, domain.ErrGeneration)
	})
}

func TestOrchestrator_SanitizesAndHooks(t *testing.T) {
	store := repository.NewMockContentStore()
	text := &fakeText{body: `<p onclick="x()">Hello</p><script>alert(1)</script>`}
	hooks := pipeline.Hooks{
		SystemPrompt: []pipeline.TextTransform{func(s, _ string, _ domain.Options) string { return s + "\n\nHouse style: British spelling." }},
		Content:      []pipeline.TextTransform{func(s, _ string, _ domain.Options) string { return s + "<p>Footer</p>" }},
		Article: []pipeline.ArticleTransform{func(a domain.Article, _ domain.Options) domain.Article {
			a.Meta["reviewed"] = "no"
			return a
		}},
	}
	o := newOrchestrator(text, nil, store, hooks)

	res, err := o.Run(context.Background(), "<b>Oats</b> &amp; Honey", domain.Options{PostStatus: "scheduled"})
	require.NoError(t, err)
	assert.Contains(t, text.system, "House style: British spelling.")

	a, _ := store.Article(res.ArticleID)
	assert.Equal(t, "Oats & Honey", a.Title)
	assert.Equal(t, domain.PostDraft, a.Status, "unknown status falls back to draft")
	assert.NotContains(t, a.Body, "script")
	assert.NotContains(t, a.Body, "onclick")
	assert.Contains(t, a.Body, "<p>Footer</p>")
	assert.Equal(t, "no", a.Meta["reviewed"])
}
