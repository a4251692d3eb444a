// Package answer implements optional answer synthesis against an
// Ollama-style local generation endpoint, grounded on the top search hits.
package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ksysoev/fedsearch/pkg/core"
)

const promptTemplate = `You are answering questions using only the provided offline search snippets. If the snippets are insufficient, say what is missing.

Question:
%s

Search snippets:
%s

Instructions:
- Give a concise answer in plain English.
- Include 2-5 inline citations in [source | location] format.
- Do not invent details not present in snippets.`

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Synthesizer calls an Ollama-style /api/generate endpoint to produce a
// grounded answer from a query and its top search hits.
type Synthesizer struct {
	httpClient      *http.Client
	baseURL         string
	model           string
	maxContextHits  int
	maxContextChars int
}

// New builds a Synthesizer from cfg.
func New(cfg core.OllamaConfig) *Synthesizer {
	cfg.ApplyDefaults()

	maxHits := cfg.MaxContextHits
	if maxHits < 1 {
		maxHits = 1
	}

	maxChars := cfg.MaxContextChars
	if maxChars < 500 {
		maxChars = 500
	}

	return &Synthesizer{
		httpClient:      &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		model:           cfg.Model,
		maxContextHits:  maxHits,
		maxContextChars: maxChars,
	}
}

// Synthesize produces an answer to query grounded in hits. It returns an
// empty string, not an error, when hits yield no usable context.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, hits []core.SearchHit) (string, error) {
	snippets := s.buildContext(hits)
	if snippets == "" {
		return "", nil
	}

	prompt := fmt.Sprintf(promptTemplate, query, snippets)

	payload, err := json.Marshal(generateRequest{Model: s.model, Prompt: prompt, Stream: false})
	if err != nil {
		return "", fmt.Errorf("failed to encode Ollama generate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/api/generate", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build Ollama generate request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call Ollama generate endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("Ollama generate returned status %d", resp.StatusCode)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to parse Ollama JSON response: %w", err)
	}

	return strings.TrimSpace(decoded.Response), nil
}

// buildContext formats up to maxContextHits hits into citation-ready chunks,
// stopping before the total would exceed maxContextChars.
func (s *Synthesizer) buildContext(hits []core.SearchHit) string {
	var b strings.Builder

	count := len(hits)
	if count > s.maxContextHits {
		count = s.maxContextHits
	}

	chars := 0

	for _, hit := range hits[:count] {
		chunk := fmt.Sprintf("- [%s | %s]\n  title: %s\n  preview: %s\n", hit.Source, hit.Location, hit.Title, hit.Preview)

		if chars+len(chunk) > s.maxContextChars {
			break
		}

		chars += len(chunk)

		b.WriteString(chunk)
	}

	return b.String()
}
