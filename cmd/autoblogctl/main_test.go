package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ricirt/autoblog/internal/domain"
	"github.com/ricirt/autoblog/internal/secret"
)

// fakeServer records the last request and answers with a canned body.
type fakeServer struct {
	method string
	path   string
	auth   string
	body   []byte
	status int
	answer string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.method = r.Method
	f.path = r.URL.Path
	f.auth = r.Header.Get("Authorization")
	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(r.Body)
	f.body = buf.Bytes()

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
	}
	_, _ = w.Write([]byte(f.answer))
}

func run(t *testing.T, srv *httptest.Server, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	full := append([]string{"autoblogctl", "--server", srv.URL, "--token", "secret"}, args...)
	err := newApp(&out).Run(context.Background(), full)
	return out.String(), err
}

func TestGenerate_SendsOnlyGivenOptions(t *testing.T) {
	fake := &fakeServer{status: http.StatusCreated, answer: `{"message":"2 article(s) queued.","ids":[4,5]}`}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	out, err := run(t, srv, "generate", "--title", "Sourdough basics", "-t", "Rye bread", "--tone", "casual", "--max-links", "2", "--no-linking")
	require.NoError(t, err)
	assert.Contains(t, out, "2 article(s) queued.")
	assert.Contains(t, out, "#5")

	assert.Equal(t, http.MethodPost, fake.method)
	assert.Equal(t, "/api/v1/generate", fake.path)
	assert.Equal(t, "Bearer secret", fake.auth)

	var got map[string]any
	require.NoError(t, json.Unmarshal(fake.body, &got))
	assert.Equal(t, []any{"Sourdough basics", "Rye bread"}, got["titles"])
	assert.Equal(t, "casual", got["tone"])
	assert.EqualValues(t, 2, got["max_links"])
	assert.EqualValues(t, 0, got["internal_linking"])
	assert.NotContains(t, got, "word_count")
	assert.NotContains(t, got, "image_provider")
}

func TestGenerate_TitlesFromFile(t *testing.T) {
	fake := &fakeServer{status: http.StatusCreated, answer: `{"message":"2 article(s) queued.","ids":[1,2]}`}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "titles.txt")
	require.NoError(t, os.WriteFile(path, []byte("First title\n\n   \nSecond title\n"), 0o600))

	_, err := run(t, srv, "generate", "--file", path)
	require.NoError(t, err)

	var req domain.GenerateRequest
	require.NoError(t, json.Unmarshal(fake.body, &req))
	assert.Equal(t, []string{"First title", "Second title"}, req.Titles)
	assert.Nil(t, req.InternalLinking)
}

func TestGenerate_NoTitles(t *testing.T) {
	srv := httptest.NewServer(&fakeServer{})
	defer srv.Close()

	_, err := run(t, srv, "generate")
	assert.ErrorIs(t, err, errNoTitles)
}

func TestQueue_PrintsTable(t *testing.T) {
	fake := &fakeServer{answer: `[
		{"id": 2, "title": "Rye bread", "status": "failed", "post_id": null, "edit_url": null,
		 "error_message": "AI returned empty content.", "retry_count": 1, "created_at": "2026-01-02T10:00:00Z"},
		{"id": 1, "title": "Sourdough basics", "status": "complete", "post_id": 9,
		 "edit_url": "https://blog.test/admin/articles/9/edit", "error_message": null, "retry_count": 0,
		 "created_at": "2026-01-01T10:00:00Z"}
	]`}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	out, err := run(t, srv, "queue")
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/queue", fake.path)

	assert.Contains(t, strings.ToUpper(out), "STATUS")
	assert.Contains(t, out, "articles/9/edit")
	failed := strings.Index(out, "failed")
	done := strings.Index(out, "complete")
	require.True(t, failed > 0 && done > 0, out)
	assert.Less(t, failed, done, "rows keep server order")
}

func TestRetryAndDelete(t *testing.T) {
	t.Run("retry", func(t *testing.T) {
		fake := &fakeServer{answer: `{"message":"Item re-queued."}`}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		out, err := run(t, srv, "retry", "7")
		require.NoError(t, err)
		assert.Equal(t, "/api/v1/queue/7/retry", fake.path)
		assert.Equal(t, http.MethodPost, fake.method)
		assert.Equal(t, "Item re-queued.\n", out)
	})

	t.Run("delete of a missing item", func(t *testing.T) {
		fake := &fakeServer{status: http.StatusNotFound, answer: `{"message":"Item not found."}`}
		srv := httptest.NewServer(fake)
		defer srv.Close()

		_, err := run(t, srv, "delete", "7")
		var apiErr *apiError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusNotFound, apiErr.Status)
		assert.Equal(t, "Item not found.", apiErr.Message)
		assert.Equal(t, http.MethodDelete, fake.method)
	})

	t.Run("bad id", func(t *testing.T) {
		srv := httptest.NewServer(&fakeServer{})
		defer srv.Close()

		_, err := run(t, srv, "retry", "abc")
		assert.EqualError(t, err, `invalid item id "abc"`)
	})
}

func TestEncryptKey(t *testing.T) {
	var out bytes.Buffer
	err := newApp(&out).Run(context.Background(), []string{"autoblogctl", "encrypt-key", "--salt", "pepper", "sk-stability"})
	require.NoError(t, err)

	plain, err := secret.Decrypt(strings.TrimSpace(out.String()), "pepper")
	require.NoError(t, err)
	assert.Equal(t, "sk-stability", plain)
}
