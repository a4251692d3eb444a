package ingest

import (
	"bufio"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ksysoev/fedsearch/pkg/core"
)

// JSONL reads src.Path as newline-delimited JSON and emits one RawDocument
// per non-blank, well-formed line. Field names default to id/title/body/url
// and are configurable per source.
func JSONL(src core.SourceConfig, maxIndexedChars int, sink Sink) (core.IngestStats, error) {
	var stats core.IngestStats

	idField := firstNonEmpty(src.IDField, "id")
	titleField := firstNonEmpty(src.TitleField, "title")
	bodyField := firstNonEmpty(src.BodyField, "body")
	urlField := firstNonEmpty(src.URLField, "url")

	f, err := os.Open(src.Path) //nolint:gosec // path comes from a configured, operator-controlled source root
	if err != nil {
		return stats, fmt.Errorf("failed to open JSONL source %s: %w", src.Path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	lineNum := 0

	for scanner.Scan() {
		lineNum++
		stats.Scanned++

		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			stats.Skipped++
			continue
		}

		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			slog.Warn("invalid JSONL object", "path", src.Path, "line", lineNum, "error", err)
			stats.Skipped++

			continue
		}

		id := valueToString(record[idField])
		if id == "" {
			id = strconv.Itoa(lineNum)
		}

		title := core.NormalizeWhitespace(valueToString(record[titleField]))
		if title == "" {
			title = "Document " + id
		}

		body := core.TruncateChars(core.NormalizeWhitespace(valueToString(record[bodyField])), maxIndexedChars)
		if body == "" {
			stats.Skipped++
			continue
		}

		url := strings.TrimSpace(valueToString(record[urlField]))

		sum := sha256.Sum256([]byte(line))

		doc := core.RawDocument{
			DocID:       fmt.Sprintf("jsonl:%s:%s", src.Name, id),
			Source:      src.Name,
			Title:       title,
			Body:        body,
			Preview:     core.PreviewFromText(body, previewChars),
			Location:    fmt.Sprintf("%s:%d", src.Path, lineNum),
			URL:         url,
			Fingerprint: hex.EncodeToString(sum[:]),
		}

		if err := sink(doc); err != nil {
			return stats, err
		}

		stats.Emitted++
	}

	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("failed reading JSONL source %s: %w", src.Path, err)
	}

	return stats, nil
}

func valueToString(v any) string {
	switch value := v.(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(value)
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}
