package query

import (
	"context"
	"fmt"
	"testing"

	"github.com/ksysoev/fedsearch/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLocal struct {
	result *core.SearchResult
	err    error
	calls  int
}

func (f *fakeLocal) Search(_ string, _, _ int, _ string) (*core.SearchResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeFederation struct {
	result  *core.SearchResult
	err     error
	sources []string
	calls   int
}

func (f *fakeFederation) Search(_ context.Context, _, _ string, _ int) (*core.SearchResult, error) {
	f.calls++
	return f.result, f.err
}

func (f *fakeFederation) SourceNames() []string { return f.sources }

type fakeAnswerer struct {
	answer string
	err    error
}

func (f *fakeAnswerer) Synthesize(_ context.Context, _ string, _ []core.SearchHit) (string, error) {
	return f.answer, f.err
}

func TestService_Search_LocalOnly(t *testing.T) {
	local := &fakeLocal{result: &core.SearchResult{
		TotalHits: 2,
		Hits: []core.SearchHit{
			{DocID: "a", Title: "Alpha docs", Score: 1},
			{DocID: "b", Title: "Beta docs", Score: 2},
		},
	}}

	svc := New(local, nil, nil, 20, 100, []string{"docs"})

	resp, err := svc.Search(t.Context(), Params{Query: "docs", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalHits)
	assert.Len(t, resp.Hits, 2)
	assert.Equal(t, 1, local.calls)
}

func TestService_Search_MergesFederatedHits(t *testing.T) {
	local := &fakeLocal{result: &core.SearchResult{TotalHits: 1, Hits: []core.SearchHit{{DocID: "a", Title: "Local hit"}}}}
	fed := &fakeFederation{
		sources: []string{"kiwix:wikipedia"},
		result:  &core.SearchResult{TotalHits: 1, Hits: []core.SearchHit{{DocID: "kiwix:wikipedia:x", Title: "Remote hit"}}},
	}

	svc := New(local, fed, nil, 20, 100, []string{"docs"})

	resp, err := svc.Search(t.Context(), Params{Query: "hit", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, resp.TotalHits)
	assert.Len(t, resp.Hits, 2)
	assert.Equal(t, 1, fed.calls)
	assert.ElementsMatch(t, []string{"docs", "kiwix:wikipedia"}, svc.Sources())
}

func TestService_Search_KiwixOnlyFilterSkipsLocal(t *testing.T) {
	local := &fakeLocal{result: &core.SearchResult{}}
	fed := &fakeFederation{result: &core.SearchResult{Hits: []core.SearchHit{{DocID: "kiwix:x"}}}}

	svc := New(local, fed, nil, 20, 100, nil)

	_, err := svc.Search(t.Context(), Params{Query: "hit", Limit: 10, Source: "kiwix"})
	require.NoError(t, err)
	assert.Equal(t, 0, local.calls)
	assert.Equal(t, 1, fed.calls)
}

func TestService_Search_LocalSourceFilterSkipsFederation(t *testing.T) {
	local := &fakeLocal{result: &core.SearchResult{}}
	fed := &fakeFederation{result: &core.SearchResult{}}

	svc := New(local, fed, nil, 20, 100, nil)

	_, err := svc.Search(t.Context(), Params{Query: "hit", Limit: 10, Source: "docs"})
	require.NoError(t, err)
	assert.Equal(t, 1, local.calls)
	assert.Equal(t, 0, fed.calls)
}

func TestService_Search_Pagination(t *testing.T) {
	local := &fakeLocal{result: &core.SearchResult{
		TotalHits: 3,
		Hits: []core.SearchHit{
			{DocID: "a", Title: "A"},
			{DocID: "b", Title: "B"},
			{DocID: "c", Title: "C"},
		},
	}}

	svc := New(local, nil, nil, 20, 100, nil)

	resp, err := svc.Search(t.Context(), Params{Query: "x", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, resp.Hits, 1)
	assert.Equal(t, "B", resp.Hits[0].Title)
}

func TestService_Search_AnswerSynthesis(t *testing.T) {
	local := &fakeLocal{result: &core.SearchResult{Hits: []core.SearchHit{{DocID: "a", Title: "A"}}}}
	ans := &fakeAnswerer{answer: "synthesized answer"}

	svc := New(local, nil, ans, 20, 100, nil)

	resp, err := svc.Search(t.Context(), Params{Query: "x", Limit: 10, WantAnswer: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Answer)
	assert.Equal(t, "synthesized answer", *resp.Answer)
}

func TestService_Search_NoAnswerWhenEmptyGenerated(t *testing.T) {
	local := &fakeLocal{result: &core.SearchResult{Hits: []core.SearchHit{{DocID: "a"}}}}
	ans := &fakeAnswerer{answer: ""}

	svc := New(local, nil, ans, 20, 100, nil)

	resp, err := svc.Search(t.Context(), Params{Query: "x", Limit: 10, WantAnswer: true})
	require.NoError(t, err)
	assert.Nil(t, resp.Answer)
}

func TestService_Search_LimitClampedToMax(t *testing.T) {
	hits := make([]core.SearchHit, 0, 10)
	for i := 0; i < 10; i++ {
		hits = append(hits, core.SearchHit{DocID: fmt.Sprintf("d%d", i), Title: fmt.Sprintf("T%d", i)})
	}

	local := &fakeLocal{result: &core.SearchResult{TotalHits: len(hits), Hits: hits}}

	svc := New(local, nil, nil, 20, 5, nil)

	resp, err := svc.Search(t.Context(), Params{Query: "x", Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, resp.Hits, 5)
}
