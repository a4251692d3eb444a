package index

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifest_LoadMissingReturnsEmpty(t *testing.T) {
	dir := t.TempDir()

	m, err := loadManifest(dir)

	require.NoError(t, err)
	assert.Equal(t, manifestVersion, m.Version)
	assert.Empty(t, m.Docs)
}

func TestManifest_SaveAndLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	m := newManifest()
	m.Docs["fs:a:one.md"] = "123:456"

	require.NoError(t, saveManifest(dir, m))

	loaded, err := loadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, m.Docs, loaded.Docs)

	assert.FileExists(t, filepath.Join(dir, manifestFileName))

	entries, err := filepathGlob(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "no leftover temp files should remain after a successful save")
}

func filepathGlob(dir string) ([]string, error) {
	return filepath.Glob(filepath.Join(dir, ".manifest-*.tmp"))
}
