package ingest

import (
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ksysoev/fedsearch/pkg/core"
	"github.com/microcosm-cc/bluemonday"
)

type stackExchangeRow struct {
	ID               string `xml:"Id,attr"`
	Title            string `xml:"Title,attr"`
	Body             string `xml:"Body,attr"`
	LastActivityDate string `xml:"LastActivityDate,attr"`
}

const inferredTitleChars = 80

// StackExchangeXML streams a Stack Exchange data-dump XML export (posts.xml
// and similar) and emits one RawDocument per <row> element that carries an
// Id attribute.
func StackExchangeXML(src core.SourceConfig, maxIndexedChars int, sink Sink) (core.IngestStats, error) {
	var stats core.IngestStats

	f, err := os.Open(src.Path) //nolint:gosec // path comes from a configured, operator-controlled source root
	if err != nil {
		return stats, fmt.Errorf("failed to open Stack Exchange XML source %s: %w", src.Path, err)
	}
	defer f.Close()

	stripper := bluemonday.StrictPolicy()
	decoder := xml.NewDecoder(f)

	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}

		if err != nil {
			return stats, fmt.Errorf("error while parsing %s: %w", src.Path, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok || start.Name.Local != "row" {
			continue
		}

		var row stackExchangeRow
		if err := decoder.DecodeElement(&row, &start); err != nil {
			return stats, fmt.Errorf("error decoding row in %s: %w", src.Path, err)
		}

		stats.Scanned++

		if row.ID == "" {
			stats.Skipped++
			continue
		}

		bodyPlain := ""
		if row.Body != "" {
			bodyPlain = stripper.Sanitize(row.Body)
		}

		body := core.TruncateChars(core.NormalizeWhitespace(bodyPlain), maxIndexedChars)

		if body == "" && strings.TrimSpace(row.Title) == "" {
			stats.Skipped++
			continue
		}

		title := row.Title
		if title == "" {
			title = inferTitleFromBody(body, row.ID)
		}

		title = core.NormalizeWhitespace(title)
		if title == "" {
			title = "Post " + row.ID
		}

		if body == "" {
			body = title
		}

		doc := core.RawDocument{
			DocID:       fmt.Sprintf("stackexchange:%s:%s", src.Name, row.ID),
			Source:      src.Name,
			Title:       title,
			Body:        body,
			Preview:     core.PreviewFromText(body, previewChars),
			Location:    fmt.Sprintf("%s#%s", src.Path, row.ID),
			Fingerprint: fmt.Sprintf("%s:%d", row.LastActivityDate, len(row.Body)),
		}

		if err := sink(doc); err != nil {
			return stats, err
		}

		stats.Emitted++
	}

	return stats, nil
}

func inferTitleFromBody(body, id string) string {
	if body == "" {
		return "Post " + id
	}

	return core.PreviewFromText(body, inferredTitleChars)
}
