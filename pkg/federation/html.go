package federation

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/microcosm-cc/bluemonday"

	"github.com/ksysoev/fedsearch/pkg/core"
)

// headerTotalRE extracts the result count out of a search page's header text,
// e.g. "1-10 of 2,481 results".
var headerTotalRE = regexp.MustCompile(`(?i)\bof\s+([0-9,]+)\b`)

var previewStripPolicy = bluemonday.StrictPolicy()

// parseSearchHTML scrapes a Kiwix-style search result page: a ".header"
// element carrying the total hit count, and a ".results" list of "li" rows
// each holding a title link and an optional "cite" preview snippet.
func parseSearchHTML(base *url.URL, coll Collection, body io.Reader) (*core.SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Kiwix search page: %w", err)
	}

	total, totalFound := parseHeaderTotal(doc)

	var hits []core.SearchHit

	doc.Find(".results li").Each(func(idx int, row *goquery.Selection) {
		link := row.Find("a").First()

		href, ok := link.Attr("href")
		if !ok || strings.TrimSpace(href) == "" {
			return
		}

		title := core.NormalizeWhitespace(link.Text())
		if title == "" {
			title = "Untitled"
		}

		preview := previewFromCite(row, coll)

		hits = append(hits, core.SearchHit{
			Score:    500.0 - float64(idx),
			DocID:    fmt.Sprintf("kiwix:%s:%s", coll.ID, href),
			Source:   fmt.Sprintf("kiwix:%s", coll.ID),
			Title:    title,
			Preview:  preview,
			Location: href,
			URL:      resolveHitURL(base, href),
		})
	})

	if !totalFound {
		total = len(hits)
	}

	return &core.SearchResult{TotalHits: total, Hits: hits}, nil
}

func parseHeaderTotal(doc *goquery.Document) (int, bool) {
	header := core.NormalizeWhitespace(doc.Find(".header").First().Text())
	if header == "" {
		return 0, false
	}

	m := headerTotalRE.FindStringSubmatch(header)
	if m == nil {
		return 0, false
	}

	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, false
	}

	return n, true
}

func previewFromCite(row *goquery.Selection, coll Collection) string {
	cite, err := row.Find("cite").First().Html()
	if err == nil {
		text := core.NormalizeWhitespace(previewStripPolicy.Sanitize(cite))
		if text != "" {
			return text
		}
	}

	return "From " + coll.Title
}

func resolveHitURL(base *url.URL, href string) string {
	trimmed := strings.TrimPrefix(href, "/")
	return base.JoinPath(trimmed).String()
}
