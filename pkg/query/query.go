// Package query combines the local search index with federated Kiwix
// results into a single ranked, paginated answer, optionally synthesizing a
// grounded answer from the top hits.
package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ksysoev/fedsearch/pkg/core"
	"github.com/ksysoev/fedsearch/pkg/federation"
)

// LocalEngine is the subset of the local index engine the query service
// depends on.
type LocalEngine interface {
	Search(query string, limit, offset int, sourceFilter string) (*core.SearchResult, error)
}

// FederationClient is the subset of the Kiwix client the query service
// depends on.
type FederationClient interface {
	Search(ctx context.Context, query, sourceFilter string, limit int) (*core.SearchResult, error)
	SourceNames() []string
}

// Answerer is the subset of the answer synthesizer the query service
// depends on.
type Answerer interface {
	Synthesize(ctx context.Context, query string, hits []core.SearchHit) (string, error)
}

// Params describes one search request.
type Params struct {
	Query      string
	Limit      int
	Offset     int
	Source     string
	WantAnswer bool
}

// Response is the outcome of a combined, reranked, paginated search.
type Response struct {
	TotalHits int              `json:"total_hits"`
	Hits      []core.SearchHit `json:"hits"`
	Answer    *string          `json:"answer,omitempty"`
}

// Service answers search requests against the local index and, when
// configured, a federated Kiwix client, merging and reranking their hits
// before paginating and optionally synthesizing an answer.
type Service struct {
	local        LocalEngine
	federation   FederationClient
	answerer     Answerer
	defaultLimit int
	maxLimit     int
	sources      []string
}

// New builds a Service. federationClient and answerer may be nil to disable
// those features.
func New(local LocalEngine, federationClient FederationClient, answerer Answerer, defaultLimit, maxLimit int, localSourceNames []string) *Service {
	sources := append([]string{}, localSourceNames...)

	if federationClient != nil {
		sources = append(sources, federationClient.SourceNames()...)
	}

	sort.Strings(sources)
	sources = dedupeStrings(sources)

	return &Service{
		local:        local,
		federation:   federationClient,
		answerer:     answerer,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
		sources:      sources,
	}
}

func dedupeStrings(values []string) []string {
	out := values[:0]

	for i, v := range values {
		if i > 0 && values[i-1] == v {
			continue
		}

		out = append(out, v)
	}

	return out
}

// Sources returns every advertised source name: local source names plus any
// federated collection namespaces.
func (s *Service) Sources() []string {
	return s.sources
}

// Search runs params against the local index and, when applicable, the
// federated client, reranks the merged hits, paginates, and optionally
// synthesizes an answer from the page.
func (s *Service) Search(ctx context.Context, params Params) (*Response, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	sourceFilter := strings.TrimSpace(params.Source)

	fetchCount := (offset + limit) * 3
	if ceiling := max(s.maxLimit*20, limit); fetchCount > ceiling {
		fetchCount = ceiling
	}

	if fetchCount < 1 {
		fetchCount = 1
	}

	var localFilter string

	isKiwixOnly := sourceFilter != "" && federation.IsKiwixFilter(sourceFilter)
	if !isKiwixOnly {
		localFilter = sourceFilter
	}

	var (
		totalHits int
		hits      []core.SearchHit
	)

	if sourceFilter == "" || localFilter != "" {
		localResult, err := s.local.Search(params.Query, fetchCount, 0, localFilter)
		if err != nil {
			return nil, fmt.Errorf("local search query failed: %w", err)
		}

		totalHits += localResult.TotalHits
		hits = append(hits, localResult.Hits...)
	}

	if s.federation != nil && (sourceFilter == "" || federation.IsKiwixFilter(sourceFilter)) {
		kiwixResult, err := s.federation.Search(ctx, params.Query, sourceFilter, fetchCount)
		if err != nil {
			return nil, fmt.Errorf("Kiwix search failed: %w", err)
		}

		totalHits += kiwixResult.TotalHits
		hits = append(hits, kiwixResult.Hits...)
	}

	rerankHits(params.Query, hits)

	pagedHits := paginate(hits, offset, limit)

	var answerText *string

	if params.WantAnswer && s.answerer != nil {
		generated, err := s.answerer.Synthesize(ctx, params.Query, pagedHits)
		if err != nil {
			return nil, fmt.Errorf("failed generating answer: %w", err)
		}

		if generated != "" {
			answerText = &generated
		}
	}

	return &Response{TotalHits: totalHits, Hits: pagedHits, Answer: answerText}, nil
}

func paginate(hits []core.SearchHit, offset, limit int) []core.SearchHit {
	if offset >= len(hits) {
		return []core.SearchHit{}
	}

	end := offset + limit
	if end > len(hits) {
		end = len(hits)
	}

	return append([]core.SearchHit{}, hits[offset:end]...)
}
