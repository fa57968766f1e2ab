package linking

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricirt/autoblog/internal/domain"
)

var anchorOpen = regexp.MustCompile(`<a `)

func TestInjectLinks_LinksFirstMatchingParagraph(t *testing.T) {
	e := NewEngine(&fakeSearcher{candidates: []domain.Candidate{candidate(1, "Sourdough Starter Guide")}})
	body := "<h2>Sourdough</h2>\n<p>Feed your SOURDOUGH daily.</p>\n<p>More sourdough here.</p>"

	got, n, err := e.InjectLinks(context.Background(), body, "Sourdough Bread", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t,
		"<h2>Sourdough</h2>\n"+
			`<p>Feed your <a href="https://blog.test/sourdough-starter-guide/" title="Sourdough Starter Guide">SOURDOUGH</a> daily.</p>`+
			"\n<p>More sourdough here.</p>",
		got)
}

func TestInjectLinks_SkipsParagraphsWithLinks(t *testing.T) {
	e := NewEngine(&fakeSearcher{candidates: []domain.Candidate{candidate(1, "Sourdough Starter Guide")}})
	body := `<p>See <a href="/x">sourdough</a> tips.</p><p class="lead">Sourdough wins.</p>`

	got, n, err := e.InjectLinks(context.Background(), body, "Sourdough Bread", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, strings.HasPrefix(got, `<p>See <a href="/x">sourdough</a> tips.</p>`), "linked paragraph untouched")
	assert.Contains(t, got, `<p class="lead"><a href="https://blog.test/sourdough-starter-guide/" title="Sourdough Starter Guide">Sourdough</a> wins.</p>`)
}

func TestInjectLinks_RespectsMaxLinksAndOneLinkPerCandidate(t *testing.T) {
	e := NewEngine(&fakeSearcher{candidates: []domain.Candidate{
		candidate(1, "Bread Flour Guide"),
		candidate(2, "Bread Crumbs Recipe"),
		candidate(3, "Bread Machine Review"),
	}})
	body := strings.Repeat("<p>Bread is great.</p>", 5)

	got, n, err := e.InjectLinks(context.Background(), body, "Homemade Bread", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, anchorOpen.FindAllString(got, -1), 2)
	assert.Equal(t, 1, strings.Count(got, "bread-flour-guide"))
	assert.Equal(t, 1, strings.Count(got, "bread-crumbs-recipe"))
	assert.NotContains(t, got, "bread-machine-review")
}

func TestInjectLinks_NeverLinksAParagraphTwice(t *testing.T) {
	e := NewEngine(&fakeSearcher{candidates: []domain.Candidate{
		candidate(1, "Bread Flour Guide"),
		candidate(2, "Bread Crumbs Recipe"),
	}})
	body := "<p>Bread and more bread.</p>"

	got, n, err := e.InjectLinks(context.Background(), body, "Homemade Bread", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "the only paragraph already holds a link after the first candidate")
	assert.Len(t, anchorOpen.FindAllString(got, -1), 1)
}

func TestInjectLinks_MaxLinksZero(t *testing.T) {
	s := &fakeSearcher{candidates: []domain.Candidate{candidate(1, "Bread Flour Guide")}}
	body := "<p>Bread.</p>"

	got, n, err := NewEngine(s).InjectLinks(context.Background(), body, "Bread", 0)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.Zero(t, n)
	assert.Empty(t, s.queries)
}

func TestInjectLinks_ShortKeywordsIgnored(t *testing.T) {
	e := NewEngine(&fakeSearcher{candidates: []domain.Candidate{candidate(1, "Pie Tin Bread")}})
	body := "<p>A pie in a tin.</p><p>Fresh bread.</p>"

	got, n, err := e.InjectLinks(context.Background(), body, "Pie Bread", 3)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Contains(t, got, "<p>A pie in a tin.</p>")
	assert.Contains(t, got, `title="Pie Tin Bread">bread</a>`)
}

func TestInjectLinks_OnlyParagraphText(t *testing.T) {
	e := NewEngine(&fakeSearcher{candidates: []domain.Candidate{candidate(1, "Bread Basics")}})
	body := `<pre>bread</pre><h3>Bread</h3><p><img alt="bread" src="/bread.png"> Rustic loaf.</p><ul><li>bread</li></ul>`

	got, n, err := e.InjectLinks(context.Background(), body, "Bread", 3)
	require.NoError(t, err)
	assert.Zero(t, n, "no paragraph text mentions the keyword")
	assert.Equal(t, body, got)
}

func TestInjectLinks_TextAroundInlineMarkup(t *testing.T) {
	e := NewEngine(&fakeSearcher{candidates: []domain.Candidate{candidate(1, "Bread Basics")}})
	body := `<p><strong>Crusty</strong> bread &amp; butter.</p>`

	got, n, err := e.InjectLinks(context.Background(), body, "Bread", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, `<p><strong>Crusty</strong> <a href="https://blog.test/bread-basics/" title="Bread Basics">bread</a> &amp; butter.</p>`, got)
}

func TestInjectLinks_EscapesAttributes(t *testing.T) {
	target := domain.Candidate{ID: 1, Title: `Bread "Quick" & Easy`, URL: `https://blog.test/?p=1&x="y"`}
	e := NewEngine(&fakeSearcher{candidates: []domain.Candidate{target}})

	got, _, err := e.InjectLinks(context.Background(), "<p>Bread time.</p>", "Bread", 1)
	require.NoError(t, err)
	assert.Equal(t,
		`<p><a href="https://blog.test/?p=1&amp;x=&#34;y&#34;" title="Bread &#34;Quick&#34; &amp; Easy">Bread</a> time.</p>`,
		got)
}

func TestInjectLinks_SearchErrorReturnsBodyUnchanged(t *testing.T) {
	e := NewEngine(&fakeSearcher{err: assert.AnError})

	got, n, err := e.InjectLinks(context.Background(), "<p>Bread.</p>", "Bread", 2)
	require.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "<p>Bread.</p>", got)
	assert.Zero(t, n)
}
