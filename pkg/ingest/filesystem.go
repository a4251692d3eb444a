package ingest

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/ksysoev/fedsearch/pkg/core"
	"github.com/microcosm-cc/bluemonday"
	"gopkg.in/yaml.v3"
)

var defaultTextExtensions = []string{
	"txt", "md", "markdown", "rst", "org", "tex", "html", "htm", "xhtml", "xml", "json", "jsonl",
	"csv", "tsv", "log",
}

var htmlTitleRE = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)

const previewChars = 280

// Filesystem walks src.Path and emits one RawDocument per allowed text file
// found under it. HTML files have their tags stripped and their <title>
// extracted; other allowed files have a leading YAML front-matter block
// removed (its "title" key, if any, becomes the title) and are otherwise
// indexed verbatim.
func Filesystem(src core.SourceConfig, maxIndexedChars int, sink Sink) (core.IngestStats, error) {
	var stats core.IngestStats

	whitelist := src.Extensions
	if len(whitelist) == 0 {
		whitelist = defaultTextExtensions
	} else {
		lowered := make([]string, len(whitelist))
		for i, ext := range whitelist {
			lowered[i] = strings.ToLower(ext)
		}

		whitelist = lowered
	}

	stripper := bluemonday.StrictPolicy()

	err := walkTree(src.Path, src.FollowSymlinks, func(path string, info os.FileInfo) error {
		stats.Scanned++

		ext := fileExtension(path)
		if !extensionAllowed(ext, whitelist) {
			stats.Skipped++
			return nil
		}

		if rel, relErr := filepath.Rel(src.Path, path); relErr == nil && globExcluded(filepath.ToSlash(rel), src.ExcludeGlobs) {
			stats.Skipped++
			return nil
		}

		raw, err := os.ReadFile(path) //nolint:gosec // path comes from a configured, operator-controlled source root
		if err != nil {
			slog.Warn("unable to read file", "path", path, "error", err)
			stats.Skipped++

			return nil
		}

		if isBinary(raw) {
			stats.Skipped++
			return nil
		}

		rawText := string(raw)
		rel, err := filepath.Rel(src.Path, path)
		if err != nil {
			rel = path
		}

		rel = filepath.ToSlash(rel)

		var title, bodySource string

		if isHTMLExt(ext) {
			title = extractHTMLTitle(rawText)
			if title == "" {
				title = pathToTitle(rel)
			}

			bodySource = stripper.Sanitize(rawText)
		} else {
			frontTitle, rest := extractFrontMatterTitle(rawText)
			title = frontTitle
			bodySource = rest

			if title == "" {
				title = pathToTitle(rel)
			}
		}

		title = core.NormalizeWhitespace(title)
		if title == "" {
			title = rel
		}

		body := core.TruncateChars(core.NormalizeWhitespace(bodySource), maxIndexedChars)
		if body == "" {
			stats.Skipped++
			return nil
		}

		doc := core.RawDocument{
			DocID:       fmt.Sprintf("fs:%s:%s", src.Name, rel),
			Source:      src.Name,
			Title:       title,
			Body:        body,
			Preview:     core.PreviewFromText(body, previewChars),
			Location:    rel,
			Fingerprint: fingerprintForFile(info),
		}

		if err := sink(doc); err != nil {
			return err
		}

		stats.Emitted++

		return nil
	})

	return stats, err
}

// walkTree visits every regular file under root, optionally following
// symlinks to both files and directories.
func walkTree(root string, followSymlinks bool, visit func(path string, info os.FileInfo) error) error {
	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", root, err)
	}

	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		info, err := entry.Info()
		if err != nil {
			slog.Warn("walk entry error", "path", path, "error", err)
			continue
		}

		if info.Mode()&os.ModeSymlink != 0 {
			if !followSymlinks {
				continue
			}

			resolved, err := os.Stat(path)
			if err != nil {
				slog.Warn("unable to resolve symlink", "path", path, "error", err)
				continue
			}

			info = resolved
		}

		if info.IsDir() {
			if err := walkTree(path, followSymlinks, visit); err != nil {
				return err
			}

			continue
		}

		if !info.Mode().IsRegular() {
			continue
		}

		if err := visit(path, info); err != nil {
			return err
		}
	}

	return nil
}

func extensionAllowed(ext string, whitelist []string) bool {
	if ext == "" {
		return false
	}

	for _, allowed := range whitelist {
		if allowed == ext {
			return true
		}
	}

	return false
}

// globExcluded reports whether relPath matches any of the configured
// doublestar glob patterns (e.g. "**/drafts/**", "*.tmp.md").
func globExcluded(relPath string, patterns []string) bool {
	for _, pattern := range patterns {
		if matched, err := doublestar.Match(pattern, relPath); err == nil && matched {
			return true
		}
	}

	return false
}

func fileExtension(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return ""
	}

	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func isHTMLExt(ext string) bool {
	return ext == "html" || ext == "htm" || ext == "xhtml"
}

func pathToTitle(relPath string) string {
	stem := strings.TrimSuffix(filepath.Base(relPath), filepath.Ext(relPath))
	replacer := strings.NewReplacer("_", " ", "-", " ")

	return replacer.Replace(stem)
}

const frontMatterDelim = "---"

// extractFrontMatterTitle strips a leading "---"-delimited YAML front-matter
// block, if present, and returns its "title" key alongside the remaining
// body. Files without front matter are returned unchanged with an empty title.
func extractFrontMatterTitle(rawText string) (title, body string) {
	if !strings.HasPrefix(rawText, frontMatterDelim) {
		return "", rawText
	}

	rest := rawText[len(frontMatterDelim):]
	rest = strings.TrimPrefix(rest, "\n")

	end := strings.Index(rest, "\n"+frontMatterDelim)
	if end == -1 {
		return "", rawText
	}

	block := rest[:end]
	remainder := rest[end+1+len(frontMatterDelim):]
	remainder = strings.TrimPrefix(remainder, "\n")

	var front map[string]any
	if err := yaml.Unmarshal([]byte(block), &front); err != nil {
		return "", rawText
	}

	if t, ok := front["title"].(string); ok {
		return t, remainder
	}

	return "", remainder
}

func extractHTMLTitle(rawHTML string) string {
	m := htmlTitleRE.FindStringSubmatch(rawHTML)
	if m == nil {
		return ""
	}

	return core.NormalizeWhitespace(m[1])
}

func fingerprintForFile(info os.FileInfo) string {
	return fmt.Sprintf("%d:%d", info.Size(), info.ModTime().Unix())
}

// isBinary applies the same heuristic as the content-sniffing crates this
// pipeline was originally built against: a NUL byte anywhere in a sample of
// the content marks it as non-text.
func isBinary(data []byte) bool {
	sample := data
	if len(sample) > 8000 {
		sample = sample[:8000]
	}

	for _, b := range sample {
		if b == 0 {
			return true
		}
	}

	return false
}
