package query

import (
	"testing"

	"github.com/ksysoev/fedsearch/pkg/core"
	"github.com/stretchr/testify/assert"
)

func TestNormalizeForMatching(t *testing.T) {
	assert.Equal(t, "hello world", normalizeForMatching("  Hello, World!!  "))
	assert.Equal(t, "go lang", normalizeForMatching("Go-Lang"))
	assert.Equal(t, "", normalizeForMatching("   "))
}

func TestTokenCoverage(t *testing.T) {
	tokens := tokenize(normalizeForMatching("go programming"))

	assert.InDelta(t, 1.0, tokenCoverage(tokens, "the go programming language"), 0.001)
	assert.InDelta(t, 0.0, tokenCoverage(tokens, "unrelated text"), 0.001)
	assert.Zero(t, tokenCoverage(nil, "go programming"))
	assert.Zero(t, tokenCoverage(tokens, ""))
}

func TestTokenCoverage_PrefixMatch(t *testing.T) {
	tokens := tokenize(normalizeForMatching("program"))

	coverage := tokenCoverage(tokens, "programming guide")
	assert.InDelta(t, 0.7, coverage, 0.001)
}

func TestRerankHits_EmptyQueryLeavesHitsUntouched(t *testing.T) {
	hits := []core.SearchHit{{Title: "B", Score: 1}, {Title: "A", Score: 2}}
	rerankHits("   ", hits)
	assert.Equal(t, "B", hits[0].Title)
}

func TestRerankHits_ExactTitleMatchWins(t *testing.T) {
	hits := []core.SearchHit{
		{Title: "Unrelated result", Score: 10, Source: "docs"},
		{Title: "Getting Started", Score: 1, Source: "docs"},
	}

	rerankHits("getting started", hits)
	assert.Equal(t, "Getting Started", hits[0].Title)
}

func TestRerankHits_BookArchiveCoverPenalty(t *testing.T) {
	hits := []core.SearchHit{
		{Title: "Moby Dick (Cover)", Score: 5, Source: "kiwix:gutenberg_en_all", Location: "a_cover.html"},
		{Title: "Moby Dick", Score: 5, Source: "kiwix:gutenberg_en_all", Location: "a.html"},
	}

	rerankHits("moby dick", hits)
	assert.Equal(t, "Moby Dick", hits[0].Title)
}
