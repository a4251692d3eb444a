package index

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ksysoev/fedsearch/pkg/core"
	"github.com/ksysoev/fedsearch/pkg/ingest"
)

// avgDocBytes estimates the in-memory footprint of one batched document, used
// to translate a configured writer memory budget into a document count at
// which an in-flight batch gets flushed. Bleve does not expose a writer
// memory knob the way the reference search library does; this is the
// closest equivalent control it offers.
const avgDocBytes = 4096

const minBatchDocs = 256

// Config bundles the settings the indexer needs from the application
// configuration.
type Config struct {
	IndexDir          string
	Sources           []core.SourceConfig
	MaxIndexedChars   int
	WriterMemoryBytes int
}

// Run ingests every configured source and applies the result to the index at
// cfg.IndexDir, diffing against the stored manifest so unchanged documents
// are skipped and documents no longer produced by any source are removed.
// If rebuild is true the existing index is discarded first and every
// document is reindexed from scratch.
func Run(cfg Config, rebuild bool) (core.IndexStats, error) {
	if len(cfg.Sources) == 0 {
		slog.Warn("no sources configured; nothing to index")
	}

	oldManifest := newManifest()

	if rebuild {
		if err := os.RemoveAll(cfg.IndexDir); err != nil {
			return core.IndexStats{}, fmt.Errorf("failed to clear index dir %s for rebuild: %w", cfg.IndexDir, err)
		}
	} else {
		var err error

		oldManifest, err = loadManifest(cfg.IndexDir)
		if err != nil {
			return core.IndexStats{}, err
		}
	}

	engine, err := Open(cfg.IndexDir)
	if err != nil {
		return core.IndexStats{}, err
	}
	defer engine.Close()

	maxBatchDocs := cfg.WriterMemoryBytes / avgDocBytes
	if maxBatchDocs < minBatchDocs {
		maxBatchDocs = minBatchDocs
	}

	batch := engine.NewBatch()
	newDocs := map[string]string{}
	seen := map[string]bool{}

	var indexedCount, unchangedCount int64

	ingestStats, err := ingest.Sources(cfg.Sources, cfg.MaxIndexedChars, func(doc core.RawDocument) error {
		if oldFp, ok := oldManifest.Docs[doc.DocID]; ok && !rebuild && oldFp == doc.Fingerprint {
			unchangedCount++
			seen[doc.DocID] = true
			newDocs[doc.DocID] = oldFp

			return nil
		}

		seen[doc.DocID] = true

		if err := indexInBatch(batch, doc); err != nil {
			return err
		}

		newDocs[doc.DocID] = doc.Fingerprint
		indexedCount++

		if batch.Size() >= maxBatchDocs {
			if err := engine.ExecuteBatch(batch); err != nil {
				return err
			}

			batch = engine.NewBatch()
		}

		return nil
	})
	if err != nil {
		return core.IndexStats{}, err
	}

	var removedCount int64

	if !rebuild {
		for oldID := range oldManifest.Docs {
			if !seen[oldID] {
				batch.Delete(oldID)
				removedCount++
			}
		}
	}

	if rebuild || indexedCount > 0 || removedCount > 0 {
		if err := engine.ExecuteBatch(batch); err != nil {
			return core.IndexStats{}, err
		}
	}

	if err := saveManifest(cfg.IndexDir, Manifest{Version: manifestVersion, Docs: newDocs}); err != nil {
		return core.IndexStats{}, err
	}

	return core.IndexStats{
		Scanned: ingestStats.Scanned,
		Indexed: indexedCount,
		Skipped: ingestStats.Skipped + unchangedCount,
		Removed: removedCount,
	}, nil
}
