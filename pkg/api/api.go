// Package api provides the HTTP server for the federated search service.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ksysoev/fedsearch/pkg/query"
)

const (
	defaultTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

// API is the HTTP server exposing the search, sources and health endpoints.
type API struct {
	svc    Service
	config Config
}

// Config holds the configuration for the API server.
type Config struct {
	Listen             string   `mapstructure:"listen"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
}

// Service defines the query operations the API depends on.
type Service interface {
	Search(ctx context.Context, params query.Params) (*query.Response, error)
	Sources() []string
}

// New creates a new API instance, validating that a listen address was
// configured.
func New(cfg Config, svc Service) (*API, error) {
	if cfg.Listen == "" {
		return nil, fmt.Errorf("listen address must be specified")
	}

	return &API{config: cfg, svc: svc}, nil
}

// Run starts the API server. It listens on the configured address and
// handles graceful shutdown: when ctx is cancelled, in-flight requests get a
// grace period before the server is forcefully closed.
func (a *API) Run(ctx context.Context) error {
	s := &http.Server{
		Addr:              a.config.Listen,
		ReadHeaderTimeout: defaultTimeout,
		Handler:           a.newMux(),
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		slog.WarnContext(ctx, "shutting down API server")

		if err := s.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(ctx, "graceful shutdown failed, forcing close", "error", err)

			if closeErr := s.Close(); closeErr != nil {
				slog.ErrorContext(ctx, "forced close failed", "error", closeErr)
			}
		}
	}()

	if err := s.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	return nil
}
