package federation

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ksysoev/fedsearch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const catalogFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Wikipedia</title>
    <category>wikipedia</category>
    <link type="text/html" href="/content/wikipedia_en_all_nopic/"/>
  </entry>
  <entry>
    <title>Gutenberg</title>
    <category>gutenberg</category>
    <link type="text/html" href="/content/gutenberg_en_all/"/>
  </entry>
</feed>`

const searchFixture = `<!DOCTYPE html>
<html><body>
<div class="header">1-2 of 2,481 results</div>
<ul class="results">
  <li><a href="/viewer#wikipedia_en_all_nopic/A/Go_(programming_language)">Go (programming language)</a><cite>Go is a statically typed language.</cite></li>
  <li><a href="/viewer#wikipedia_en_all_nopic/A/Golang">Golang</a><cite>Golang is another name.</cite></li>
</ul>
</body></html>`

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/catalog/v2/entries", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(catalogFixture))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(searchFixture))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestNew_DiscoversCollections(t *testing.T) {
	srv := newTestServer(t)

	client, err := New(t.Context(), core.KiwixConfig{BaseURL: srv.URL, AutoDiscoverCollections: true})
	require.NoError(t, err)
	assert.Equal(t, 2, client.CollectionCount())
	assert.ElementsMatch(t, []string{"kiwix:wikipedia_en_all_nopic", "kiwix:gutenberg_en_all"}, client.SourceNames())
}

func TestNew_FiltersByCategory(t *testing.T) {
	srv := newTestServer(t)

	client, err := New(t.Context(), core.KiwixConfig{BaseURL: srv.URL, Categories: []string{"gutenberg"}})
	require.NoError(t, err)
	assert.Equal(t, 1, client.CollectionCount())
	assert.Equal(t, []string{"kiwix:gutenberg_en_all"}, client.SourceNames())
}

func TestNew_ExplicitCollectionsWithUnknownFallback(t *testing.T) {
	srv := newTestServer(t)

	client, err := New(t.Context(), core.KiwixConfig{
		BaseURL:     srv.URL,
		Collections: []string{"wikipedia_en_all_nopic", "unknown_pack"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"kiwix:wikipedia_en_all_nopic", "kiwix:unknown_pack"}, client.SourceNames())
}

func TestClient_Search(t *testing.T) {
	srv := newTestServer(t)

	client, err := New(t.Context(), core.KiwixConfig{BaseURL: srv.URL, AutoDiscoverCollections: true})
	require.NoError(t, err)

	result, err := client.Search(t.Context(), "golang", "", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Hits)
	assert.Equal(t, 500.0, result.Hits[0].Score)
	assert.Contains(t, result.Hits[0].DocID, "kiwix:")
	assert.NotEmpty(t, result.Hits[0].Preview)
}

func TestClient_Search_SourceFilterSingleCollection(t *testing.T) {
	srv := newTestServer(t)

	client, err := New(t.Context(), core.KiwixConfig{BaseURL: srv.URL, AutoDiscoverCollections: true})
	require.NoError(t, err)

	result, err := client.Search(t.Context(), "golang", "kiwix:gutenberg_en_all", 10)
	require.NoError(t, err)

	for _, hit := range result.Hits {
		assert.Equal(t, "kiwix:gutenberg_en_all", hit.Source)
	}
}

func TestClient_Search_UnrelatedSourceFilterReturnsEmpty(t *testing.T) {
	srv := newTestServer(t)

	client, err := New(t.Context(), core.KiwixConfig{BaseURL: srv.URL, AutoDiscoverCollections: true})
	require.NoError(t, err)

	result, err := client.Search(t.Context(), "golang", "filesystem", 10)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestClient_Search_EmptyQuery(t *testing.T) {
	srv := newTestServer(t)

	client, err := New(t.Context(), core.KiwixConfig{BaseURL: srv.URL, AutoDiscoverCollections: true})
	require.NoError(t, err)

	result, err := client.Search(t.Context(), "  ", "", 10)
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
}

func TestClient_Search_ToleratesCollectionErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/catalog/v2/entries", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(catalogFixture))
	})
	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("content") == "gutenberg_en_all" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(searchFixture))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := New(t.Context(), core.KiwixConfig{BaseURL: srv.URL, AutoDiscoverCollections: true})
	require.NoError(t, err)

	result, err := client.Search(t.Context(), "golang", "", 10)
	require.NoError(t, err)
	assert.NotEmpty(t, result.Hits)

	for _, hit := range result.Hits {
		assert.NotEqual(t, "kiwix:gutenberg_en_all", hit.Source)
	}
}

func TestIsKiwixFilter(t *testing.T) {
	assert.True(t, IsKiwixFilter("kiwix"))
	assert.True(t, IsKiwixFilter("Kiwix"))
	assert.True(t, IsKiwixFilter("kiwix:wikipedia"))
	assert.False(t, IsKiwixFilter("filesystem"))
	assert.False(t, IsKiwixFilter(""))
}

func TestParseHeaderTotal(t *testing.T) {
	srv := newTestServer(t)

	client, err := New(t.Context(), core.KiwixConfig{BaseURL: srv.URL, AutoDiscoverCollections: true})
	require.NoError(t, err)

	result, err := client.Search(t.Context(), "golang", "kiwix:wikipedia_en_all_nopic", 10)
	require.NoError(t, err)
	assert.Equal(t, 2481, result.TotalHits)
}
