// Package ingest turns configured sources (filesystem trees, JSON-Lines
// exports, Stack Exchange XML dumps) into a stream of core.RawDocument
// values for the indexer to consume.
package ingest

import (
	"fmt"
	"log/slog"

	"github.com/ksysoev/fedsearch/pkg/core"
)

// Sink receives one ingested document at a time. Returning an error aborts
// ingestion of the current source.
type Sink func(core.RawDocument) error

// Sources scans every configured source and invokes sink once per emitted
// document, returning the aggregate stats across all sources.
func Sources(sources []core.SourceConfig, maxIndexedChars int, sink Sink) (core.IngestStats, error) {
	var total core.IngestStats

	for _, src := range sources {
		var (
			stats core.IngestStats
			err   error
		)

		switch src.Type {
		case core.SourceFilesystem:
			stats, err = Filesystem(src, maxIndexedChars, sink)
		case core.SourceJSONL:
			stats, err = JSONL(src, maxIndexedChars, sink)
		case core.SourceStackExchangeXML:
			stats, err = StackExchangeXML(src, maxIndexedChars, sink)
		default:
			return total, fmt.Errorf("unknown source type %q for source %q", src.Type, src.Name)
		}

		if err != nil {
			return total, fmt.Errorf("source %q: %w", src.Name, err)
		}

		slog.Info("source ingested",
			"source", src.Name, "type", src.Type,
			"scanned", stats.Scanned, "emitted", stats.Emitted, "skipped", stats.Skipped)

		total.Add(stats)
	}

	return total, nil
}
