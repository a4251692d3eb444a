package ingest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ksysoev/fedsearch/pkg/core"
	"github.com/ksysoev/fedsearch/pkg/ingest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestFilesystem_PlainText(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "notes/getting_started.md", "# Hello\n\nThis is the body.")
	writeTestFile(t, dir, "ignored.bin", "\x00\x01binary")

	var docs []core.RawDocument

	src := core.SourceConfig{Type: core.SourceFilesystem, Name: "docs", Path: dir}

	stats, err := ingest.Filesystem(src, 200_000, func(doc core.RawDocument) error {
		docs = append(docs, doc)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "getting started", docs[0].Title)
	assert.Equal(t, "fs:docs:notes/getting_started.md", docs[0].DocID)
	assert.Contains(t, docs[0].Body, "This is the body.")
	assert.EqualValues(t, 2, stats.Scanned)
	assert.EqualValues(t, 1, stats.Emitted)
	assert.EqualValues(t, 1, stats.Skipped)
}

func TestFilesystem_HTMLTitleExtraction(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "page.html", "<html><head><title>My Page</title></head><body><p>Content here.</p></body></html>")

	var docs []core.RawDocument

	src := core.SourceConfig{Type: core.SourceFilesystem, Name: "wiki", Path: dir}

	_, err := ingest.Filesystem(src, 200_000, func(doc core.RawDocument) error {
		docs = append(docs, doc)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "My Page", docs[0].Title)
	assert.Contains(t, docs[0].Body, "Content here.")
}

func TestFilesystem_ExtensionWhitelist(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "a.md", "markdown body")
	writeTestFile(t, dir, "b.rst", "rst body")

	var docs []core.RawDocument

	src := core.SourceConfig{Type: core.SourceFilesystem, Name: "docs", Path: dir, Extensions: []string{"md"}}

	_, err := ingest.Filesystem(src, 200_000, func(doc core.RawDocument) error {
		docs = append(docs, doc)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].Title)
}

func TestFilesystem_YAMLFrontMatterTitle(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "post.md", "---\ntitle: Front Matter Title\n---\nBody text follows.")

	var docs []core.RawDocument

	src := core.SourceConfig{Type: core.SourceFilesystem, Name: "docs", Path: dir}

	_, err := ingest.Filesystem(src, 200_000, func(doc core.RawDocument) error {
		docs = append(docs, doc)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Front Matter Title", docs[0].Title)
	assert.Contains(t, docs[0].Body, "Body text follows.")
	assert.NotContains(t, docs[0].Body, "title:")
}

func TestFilesystem_ExcludeGlobs(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, dir, "guide.md", "kept body")
	writeTestFile(t, dir, "drafts/wip.md", "draft body")

	var docs []core.RawDocument

	src := core.SourceConfig{
		Type: core.SourceFilesystem, Name: "docs", Path: dir,
		ExcludeGlobs: []string{"drafts/**"},
	}

	stats, err := ingest.Filesystem(src, 200_000, func(doc core.RawDocument) error {
		docs = append(docs, doc)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "guide", docs[0].Title)
	assert.EqualValues(t, 1, stats.Skipped)
}

func TestFilesystem_PreviewTruncation(t *testing.T) {
	dir := t.TempDir()

	long := ""
	for i := 0; i < 400; i++ {
		long += "x"
	}

	writeTestFile(t, dir, "long.txt", long)

	var docs []core.RawDocument

	src := core.SourceConfig{Type: core.SourceFilesystem, Name: "s", Path: dir}

	_, err := ingest.Filesystem(src, 200_000, func(doc core.RawDocument) error {
		docs = append(docs, doc)
		return nil
	})

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.True(t, len(docs[0].Preview) < len(docs[0].Body))
}
