package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

const manifestFileName = "manifest.json"
const manifestVersion = 1

// Manifest records the fingerprint of every document last written to the
// index, keyed by doc ID, so a subsequent run can tell which documents are
// unchanged, changed, or gone.
type Manifest struct {
	Version int               `json:"version"`
	Docs    map[string]string `json:"docs"`
}

func newManifest() Manifest {
	return Manifest{Version: manifestVersion, Docs: map[string]string{}}
}

// manifestPath returns the path of the manifest file for a given index
// directory.
func manifestPath(indexDir string) string {
	return filepath.Join(indexDir, manifestFileName)
}

// loadManifest reads the manifest for indexDir, returning an empty manifest
// if none exists yet.
func loadManifest(indexDir string) (Manifest, error) {
	path := manifestPath(indexDir)

	data, err := os.ReadFile(path) //nolint:gosec // indexDir is operator-configured, not tainted user input
	if os.IsNotExist(err) {
		return newManifest(), nil
	}

	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest at %s: %w", path, err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest at %s: %w", path, err)
	}

	if m.Docs == nil {
		m.Docs = map[string]string{}
	}

	return m, nil
}

// saveManifest writes m to indexDir atomically: it is written to a temp file
// in the same directory and renamed into place, so a crash mid-write never
// leaves a truncated manifest behind.
func saveManifest(indexDir string, m Manifest) error {
	if err := os.MkdirAll(indexDir, 0o755); err != nil {
		return fmt.Errorf("failed to create index dir %s: %w", indexDir, err)
	}

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to serialize manifest: %w", err)
	}

	path := manifestPath(indexDir)

	tmp, err := os.CreateTemp(indexDir, ".manifest-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest file: %w", err)
	}

	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)

		return fmt.Errorf("failed to write temp manifest file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp manifest file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename manifest into place at %s: %w", path, err)
	}

	return nil
}
