package cmd

import (
	"context"
	"fmt"

	"github.com/ksysoev/fedsearch/pkg/answer"
	"github.com/ksysoev/fedsearch/pkg/api"
	"github.com/ksysoev/fedsearch/pkg/core"
	"github.com/ksysoev/fedsearch/pkg/federation"
	"github.com/ksysoev/fedsearch/pkg/index"
	"github.com/ksysoev/fedsearch/pkg/query"
)

// RunCommand initializes the logger, loads configuration, opens the local
// index, wires up optional federation and answer synthesis, and starts the
// API server. It returns an error if any step fails.
func RunCommand(ctx context.Context, flags *cmdFlags) error {
	if err := initLogger(flags); err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}

	cfg, err := loadConfig(flags)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, err := index.Open(cfg.Index.Dir)
	if err != nil {
		return fmt.Errorf("failed to open search index: %w", err)
	}

	defer engine.Close()

	var federationClient query.FederationClient

	if cfg.kiwixEnabled() {
		client, err := federation.New(ctx, cfg.Kiwix)
		if err != nil {
			return fmt.Errorf("failed to initialize Kiwix integration: %w", err)
		}

		federationClient = client
	}

	var answerer query.Answerer

	if cfg.ollamaEnabled() {
		answerer = answer.New(cfg.Ollama)
	}

	localSources := localSourceNames(cfg.Sources)

	svc := query.New(engine, federationClient, answerer, cfg.Limits.DefaultResultLimit, cfg.Limits.MaxResultLimit, localSources)

	apiSvc, err := api.New(cfg.API, svc)
	if err != nil {
		return fmt.Errorf("failed to create API service: %w", err)
	}

	if err := apiSvc.Run(ctx); err != nil {
		return fmt.Errorf("failed to run API service: %w", err)
	}

	return nil
}

func localSourceNames(sources []core.SourceConfig) []string {
	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}

	return names
}
