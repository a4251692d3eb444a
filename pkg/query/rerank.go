package query

import (
	"sort"
	"strings"
	"unicode"

	"github.com/ksysoev/fedsearch/pkg/core"
)

// rerankHits replaces each hit's score with a relevance score computed
// against query, then sorts the hits by that score descending, breaking ties
// by shorter then lexicographically-earlier title. Hits are left untouched
// (original order and scores) when the query has no usable tokens.
func rerankHits(query string, hits []core.SearchHit) {
	normalizedQuery := normalizeForMatching(query)
	if normalizedQuery == "" || len(hits) == 0 {
		return
	}

	queryTokens := tokenize(normalizedQuery)
	if len(queryTokens) == 0 {
		return
	}

	for i := range hits {
		hits[i].Score = rerankScore(&hits[i], normalizedQuery, queryTokens)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}

		if len(hits[i].Title) != len(hits[j].Title) {
			return len(hits[i].Title) < len(hits[j].Title)
		}

		return hits[i].Title < hits[j].Title
	})
}

// rerankScore scores a single hit against the query. It is tuned for a mixed
// local/Kiwix result set and carries collection-specific adjustments for
// book-archive sources (title has many edition/chapter variants) on top of
// general title/preview token coverage.
func rerankScore(hit *core.SearchHit, normalizedQuery string, queryTokens []string) float64 {
	baseScore := hit.Score
	if baseScore < 0 {
		baseScore = 0
	}

	normalizedTitle := normalizeForMatching(hit.Title)
	normalizedPreview := normalizeForMatching(hit.Preview)
	normalizedLocation := normalizeForMatching(hit.Location)
	locationLC := strings.ToLower(hit.Location)
	titleLC := strings.ToLower(hit.Title)
	sourceLC := strings.ToLower(hit.Source)

	titleCoverage := tokenCoverage(queryTokens, normalizedTitle)
	previewCoverage := tokenCoverage(queryTokens, normalizedPreview)

	var boost float64

	if normalizedTitle == normalizedQuery {
		boost += 320.0
	}

	if strings.Contains(normalizedTitle, normalizedQuery) && len(normalizedQuery) >= 5 {
		boost += 210.0
	}

	boost += titleCoverage * 340.0
	boost += previewCoverage * 90.0

	isBookArchive := strings.Contains(sourceLC, "gutenberg")
	if isBookArchive {
		boost += titleCoverage * 240.0

		switch {
		case titleCoverage >= 0.9:
			boost += 160.0 + 220.0 + 80.0
		case titleCoverage >= 0.75:
			boost += 220.0 + 80.0
		case titleCoverage >= 0.6:
			boost += 80.0
		}

		if !strings.Contains(normalizedQuery, "chapter") &&
			(strings.Contains(titleLC, ", chapters") || strings.Contains(locationLC, "chapters%20")) {
			boost -= 130.0
		}

		if !strings.Contains(normalizedQuery, "cover") &&
			(strings.Contains(titleLC, "(") || strings.Contains(titleLC, "edition")) {
			boost -= 35.0
		}

		if strings.HasSuffix(locationLC, ".html") &&
			!strings.Contains(locationLC, "chapters%20") &&
			!strings.Contains(locationLC, "_cover") {
			boost += 90.0
		}
	}

	isCover := strings.Contains(normalizedTitle, " cover") ||
		strings.Contains(normalizedLocation, " cover") ||
		strings.Contains(locationLC, "_cover")
	if isCover && !strings.Contains(normalizedQuery, "cover") {
		boost -= 90.0
	}

	return baseScore + boost
}

// tokenCoverage measures what fraction of queryTokens are found in
// targetText, counting exact word matches fully and prefix matches (either
// direction, for tokens of at least 3 characters) at 0.7 weight.
func tokenCoverage(queryTokens []string, targetText string) float64 {
	if len(queryTokens) == 0 || targetText == "" {
		return 0
	}

	targetTokens := strings.Fields(targetText)
	if len(targetTokens) == 0 {
		return 0
	}

	var exactHits, prefixHits int

	for _, queryToken := range queryTokens {
		matched := false

		for _, target := range targetTokens {
			if target == queryToken {
				matched = true
				break
			}
		}

		if matched {
			exactHits++
			continue
		}

		if len(queryToken) >= 3 {
			for _, target := range targetTokens {
				if strings.HasPrefix(target, queryToken) || strings.HasPrefix(queryToken, target) {
					prefixHits++
					break
				}
			}
		}
	}

	return (float64(exactHits) + float64(prefixHits)*0.7) / float64(len(queryTokens))
}

func tokenize(normalizedText string) []string {
	return strings.Fields(normalizedText)
}

// normalizeForMatching lowercases input and collapses every run of
// characters other than ASCII letters and digits (including non-ASCII
// letters) into a single space, so punctuation and whitespace differences
// never affect matching.
func normalizeForMatching(input string) string {
	var b strings.Builder
	b.Grow(len(input))

	lastSpace := false

	for _, ch := range input {
		lower := unicode.ToLower(ch)

		if lower < unicode.MaxASCII && (unicode.IsLetter(lower) || unicode.IsDigit(lower)) {
			b.WriteRune(lower)
			lastSpace = false
		} else if !lastSpace {
			b.WriteByte(' ')
			lastSpace = true
		}
	}

	return strings.TrimSpace(b.String())
}
