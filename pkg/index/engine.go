// Package index holds the local search index: the manifest-diffing
// incremental indexer (C3/C4) and the Bleve-backed search engine (C5).
package index

import (
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/ksysoev/fedsearch/pkg/core"
)

// searchDocument is the shape indexed into Bleve for every RawDocument.
// body is analyzed for matching but not stored; everything the API needs to
// render a hit (preview, location, url) is stored but not analyzed.
type searchDocument struct {
	Source   string `json:"source"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Preview  string `json:"preview"`
	Location string `json:"location"`
	URL      string `json:"url"`
}

// Engine is the local, single-writer full-text index used both to apply
// incremental updates and to answer search queries.
type Engine struct {
	index bleve.Index
}

// Open opens the Bleve index at dir, creating it with the fixed mapping if
// it does not yet exist.
func Open(dir string) (*Engine, error) {
	idx, err := bleve.Open(dir)
	if err != nil {
		idx, err = bleve.New(dir, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index at %s: %w", dir, err)
		}
	}

	return &Engine{index: idx}, nil
}

// Close releases the index's file handles.
func (e *Engine) Close() error {
	if err := e.index.Close(); err != nil {
		return fmt.Errorf("failed to close search index: %w", err)
	}

	return nil
}

// DocCount returns the number of documents currently in the index.
func (e *Engine) DocCount() (uint64, error) {
	count, err := e.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}

	return count, nil
}

// NewBatch returns an empty write batch that the indexer accumulates
// document changes into before flushing.
func (e *Engine) NewBatch() *bleve.Batch {
	return e.index.NewBatch()
}

// ExecuteBatch atomically applies every change queued in b.
func (e *Engine) ExecuteBatch(b *bleve.Batch) error {
	if err := e.index.Batch(b); err != nil {
		return fmt.Errorf("failed to commit index batch: %w", err)
	}

	return nil
}

// indexInBatch queues doc for indexing under its DocID, replacing any
// existing document with the same ID.
func indexInBatch(b *bleve.Batch, doc core.RawDocument) error {
	sd := searchDocument{
		Source:   doc.Source,
		Title:    doc.Title,
		Body:     doc.Body,
		Preview:  doc.Preview,
		Location: doc.Location,
		URL:      doc.URL,
	}

	if err := b.Index(doc.DocID, sd); err != nil {
		return fmt.Errorf("failed to queue document %s: %w", doc.DocID, err)
	}

	return nil
}

// Search runs query against the index, optionally restricted to a single
// source, and returns up to limit hits starting at offset.
func (e *Engine) Search(query string, limit, offset int, sourceFilter string) (*core.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return &core.SearchResult{}, nil
	}

	if limit <= 0 {
		limit = core.DefaultResultLimit
	}

	q := buildSearchQuery(query)

	sourceFilter = strings.TrimSpace(sourceFilter)
	if sourceFilter != "" {
		sourceQ := bleve.NewTermQuery(sourceFilter)
		sourceQ.SetField("source")
		q = bleve.NewConjunctionQuery(q, sourceQ)
	}

	req := bleve.NewSearchRequestOptions(q, limit, offset, false)
	req.Fields = []string{"source", "title", "preview", "location", "url"}

	result, err := e.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]core.SearchHit, 0, len(result.Hits))

	for _, hit := range result.Hits {
		hits = append(hits, core.SearchHit{
			Score:    hit.Score,
			DocID:    hit.ID,
			Source:   fieldString(hit.Fields, "source"),
			Title:    fieldString(hit.Fields, "title"),
			Preview:  fieldString(hit.Fields, "preview"),
			Location: fieldString(hit.Fields, "location"),
			URL:      fieldString(hit.Fields, "url"),
		})
	}

	return &core.SearchResult{
		TotalHits: int(result.Total), //nolint:gosec // result counts never approach int overflow in practice
		Hits:      hits,
	}, nil
}

func fieldString(fields map[string]any, name string) string {
	s, _ := fields[name].(string)
	return s
}

const (
	minFuzzyTermLength = 4
	longTermThreshold  = 7
)

type queryTerm struct {
	text   string
	phrase bool
}

// splitQueryTerms parses user input into individual search terms.
// Double-quoted substrings are treated as phrase terms; unquoted words are
// split on whitespace.
func splitQueryTerms(input string) []queryTerm {
	var terms []queryTerm

	input = strings.TrimSpace(input)
	if input == "" {
		return terms
	}

	i := 0
	for i < len(input) {
		if input[i] == ' ' || input[i] == '\t' {
			i++
			continue
		}

		if input[i] == '"' {
			end := strings.IndexByte(input[i+1:], '"')
			if end == -1 {
				phrase := strings.TrimSpace(input[i+1:])
				if phrase != "" {
					terms = append(terms, queryTerm{text: phrase, phrase: true})
				}

				break
			}

			phrase := strings.TrimSpace(input[i+1 : i+1+end])
			if phrase != "" {
				terms = append(terms, queryTerm{text: phrase, phrase: true})
			}

			i += end + 2

			continue
		}

		end := strings.IndexAny(input[i:], " \t")
		if end == -1 {
			terms = append(terms, queryTerm{text: input[i:]})
			break
		}

		terms = append(terms, queryTerm{text: input[i : i+end]})
		i += end
	}

	return terms
}

// buildSearchQuery constructs a hybrid query from user input: each term
// becomes a disjunction of match/prefix/fuzzy sub-queries across title and
// body, and multiple terms are combined so all of them must match.
func buildSearchQuery(userQuery string) bleveQuery.Query {
	terms := splitQueryTerms(userQuery)
	if len(terms) == 0 {
		return bleve.NewMatchNoneQuery()
	}

	termQueries := make([]bleveQuery.Query, 0, len(terms))

	for _, term := range terms {
		if term.phrase {
			termQueries = append(termQueries, buildPhraseQueries(term.text))
		} else {
			termQueries = append(termQueries, buildTermQueries(term.text))
		}
	}

	if len(termQueries) == 1 {
		return termQueries[0]
	}

	return bleve.NewConjunctionQuery(termQueries...)
}

func buildPhraseQueries(phrase string) bleveQuery.Query {
	titleQ := bleve.NewMatchPhraseQuery(phrase)
	titleQ.SetField("title")
	titleQ.SetBoost(10.0)

	bodyQ := bleve.NewMatchPhraseQuery(phrase)
	bodyQ.SetField("body")
	bodyQ.SetBoost(5.0)

	return bleve.NewDisjunctionQuery(titleQ, bodyQ)
}

func buildTermQueries(term string) bleveQuery.Query {
	subQueries := make([]bleveQuery.Query, 0, 6)

	titleMatch := bleve.NewMatchQuery(term)
	titleMatch.SetField("title")
	titleMatch.SetBoost(6.0)

	bodyMatch := bleve.NewMatchQuery(term)
	bodyMatch.SetField("body")
	bodyMatch.SetBoost(3.0)

	subQueries = append(subQueries, titleMatch, bodyMatch)

	lowered := strings.ToLower(term)

	titlePrefix := bleve.NewPrefixQuery(lowered)
	titlePrefix.SetField("title")
	titlePrefix.SetBoost(3.0)

	bodyPrefix := bleve.NewPrefixQuery(lowered)
	bodyPrefix.SetField("body")
	bodyPrefix.SetBoost(1.5)

	subQueries = append(subQueries, titlePrefix, bodyPrefix)

	if len(term) >= minFuzzyTermLength {
		fuzziness := 1
		if len(term) >= longTermThreshold {
			fuzziness = 2
		}

		titleFuzzy := bleve.NewFuzzyQuery(lowered)
		titleFuzzy.SetField("title")
		titleFuzzy.SetFuzziness(fuzziness)
		titleFuzzy.SetBoost(1.0)

		bodyFuzzy := bleve.NewFuzzyQuery(lowered)
		bodyFuzzy.SetField("body")
		bodyFuzzy.SetFuzziness(fuzziness)
		bodyFuzzy.SetBoost(0.5)

		subQueries = append(subQueries, titleFuzzy, bodyFuzzy)
	}

	return bleve.NewDisjunctionQuery(subQueries...)
}

func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	analyzedStored := bleve.NewTextFieldMapping()
	analyzedStored.Store = true
	analyzedStored.IncludeTermVectors = true

	analyzedOnly := bleve.NewTextFieldMapping()
	analyzedOnly.Store = false

	storedOnly := bleve.NewTextFieldMapping()
	storedOnly.Store = true
	storedOnly.Index = false

	keyword := bleve.NewKeywordFieldMapping()
	keyword.Store = true

	docMapping.AddFieldMappingsAt("title", analyzedStored)
	docMapping.AddFieldMappingsAt("body", analyzedOnly)
	docMapping.AddFieldMappingsAt("preview", storedOnly)
	docMapping.AddFieldMappingsAt("location", storedOnly)
	docMapping.AddFieldMappingsAt("url", storedOnly)
	docMapping.AddFieldMappingsAt("source", keyword)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping

	return indexMapping
}
