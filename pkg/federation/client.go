// Package federation implements a client for a remote Kiwix-style wiki
// server: collection discovery over its OPDS-like catalog feed and result
// scraping from its search result pages.
package federation

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/ksysoev/fedsearch/pkg/core"
)

// maxPageLen bounds how many results are requested from a single remote
// collection per query, regardless of configuration.
const maxPageLen = 75

// Collection describes one content pack hosted by the remote server.
type Collection struct {
	ID       string
	Title    string
	Category string
}

// Client queries a remote Kiwix-style server across one or more collections.
type Client struct {
	httpClient           *http.Client
	baseURL              *url.URL
	collections          []Collection
	maxHitsPerCollection int
}

// New builds a Client from cfg: it normalizes the base URL, optionally
// discovers the server's available collections over its catalog feed, and
// resolves cfg.Collections/cfg.Categories against what was discovered.
func New(ctx context.Context, cfg core.KiwixConfig) (*Client, error) {
	cfg.ApplyDefaults()

	base, err := normalizeBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	httpClient := &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second}

	categories := map[string]bool{}

	for _, c := range cfg.Categories {
		c = strings.ToLower(strings.TrimSpace(c))
		if c != "" {
			categories[c] = true
		}
	}

	var discovered []Collection

	if cfg.AutoDiscoverCollections || len(categories) > 0 || len(cfg.Collections) == 0 {
		discovered, err = discoverCollections(ctx, httpClient, base)
		if err != nil {
			return nil, fmt.Errorf("failed to discover Kiwix collections: %w", err)
		}
	}

	byID := map[string]Collection{}
	for _, c := range discovered {
		byID[c.ID] = c
	}

	var collections []Collection

	if len(cfg.Collections) == 0 {
		for _, c := range byID {
			collections = append(collections, c)
		}
	} else {
		for _, id := range cfg.Collections {
			if c, ok := byID[id]; ok {
				collections = append(collections, c)
			} else {
				collections = append(collections, Collection{ID: id, Title: id})
			}
		}
	}

	if len(categories) > 0 {
		filtered := collections[:0]

		for _, c := range collections {
			if categories[strings.ToLower(c.Category)] {
				filtered = append(filtered, c)
			}
		}

		collections = filtered
	}

	sort.Slice(collections, func(i, j int) bool { return collections[i].ID < collections[j].ID })
	collections = dedupeByID(collections)

	return &Client{
		httpClient:           httpClient,
		baseURL:              base,
		collections:          collections,
		maxHitsPerCollection: cfg.MaxHitsPerCollection,
	}, nil
}

func dedupeByID(collections []Collection) []Collection {
	out := collections[:0]

	for i, c := range collections {
		if i > 0 && collections[i-1].ID == c.ID {
			continue
		}

		out = append(out, c)
	}

	return out
}

// SourceNames returns the "kiwix:<id>" source name of every resolved
// collection, for advertising in the /api/sources response.
func (c *Client) SourceNames() []string {
	names := make([]string, len(c.collections))
	for i, coll := range c.collections {
		names[i] = "kiwix:" + coll.ID
	}

	return names
}

// CollectionCount returns how many collections this client will query.
func (c *Client) CollectionCount() int {
	return len(c.collections)
}

// Search queries every collection selected by sourceFilter and merges their
// results, sorted by score descending. A per-collection failure is logged
// and otherwise ignored so a single unreachable collection doesn't fail the
// whole federated search.
func (c *Client) Search(ctx context.Context, query, sourceFilter string, limit int) (*core.SearchResult, error) {
	if strings.TrimSpace(query) == "" || limit == 0 {
		return &core.SearchResult{}, nil
	}

	selected := c.filteredCollections(sourceFilter)
	if len(selected) == 0 {
		return &core.SearchResult{}, nil
	}

	pageLen := c.maxHitsPerCollection
	if limit > pageLen {
		pageLen = limit
	}

	if pageLen > maxPageLen {
		pageLen = maxPageLen
	}

	result := &core.SearchResult{}

	for _, coll := range selected {
		collResult, err := c.searchCollection(ctx, coll, query, pageLen)
		if err != nil {
			slog.WarnContext(ctx, "Kiwix collection search failed", "collection", coll.ID, "error", err)
			continue
		}

		result.TotalHits += collResult.TotalHits
		result.Hits = append(result.Hits, collResult.Hits...)
	}

	sort.SliceStable(result.Hits, func(i, j int) bool { return result.Hits[i].Score > result.Hits[j].Score })

	return result, nil
}

// IsKiwixFilter reports whether a source filter value selects this client's
// namespace, either broadly ("kiwix") or a single collection ("kiwix:<id>").
func IsKiwixFilter(value string) bool {
	return strings.EqualFold(value, "kiwix") || strings.HasPrefix(value, "kiwix:")
}

func (c *Client) filteredCollections(sourceFilter string) []Collection {
	filter := strings.TrimSpace(sourceFilter)
	if filter == "" {
		return c.collections
	}

	if strings.EqualFold(filter, "kiwix") {
		return c.collections
	}

	if id, ok := strings.CutPrefix(filter, "kiwix:"); ok {
		var out []Collection

		for _, coll := range c.collections {
			if coll.ID == id {
				out = append(out, coll)
			}
		}

		return out
	}

	return nil
}

func (c *Client) searchCollection(ctx context.Context, coll Collection, query string, pageLen int) (*core.SearchResult, error) {
	searchURL := c.baseURL.JoinPath("search")

	q := searchURL.Query()
	q.Set("content", coll.ID)
	q.Set("pattern", query)
	q.Set("start", "0")
	q.Set("pageLength", fmt.Sprintf("%d", pageLen))
	searchURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL.String(), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build Kiwix search request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call Kiwix search endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("Kiwix search returned status %d", resp.StatusCode)
	}

	return parseSearchHTML(c.baseURL, coll, resp.Body)
}

func normalizeBaseURL(raw string) (*url.URL, error) {
	base := strings.TrimSpace(raw)
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid Kiwix base_url %q: %w", raw, err)
	}

	return u, nil
}
