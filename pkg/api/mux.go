package api

import (
	"net/http"

	"github.com/ksysoev/fedsearch/pkg/api/middleware"
)

// newMux creates and returns a new HTTP ServeMux with the API's routes registered.
func (a *API) newMux() *http.ServeMux {
	mux := http.NewServeMux()

	withReqID := middleware.NewReqID()
	withCORS := middleware.NewCORS(a.config.CORSAllowedOrigins)

	mux.Handle("GET /", middleware.Use(a.info, withReqID, withCORS))
	mux.Handle("GET /healthz", middleware.Use(a.healthCheck, withReqID))
	mux.Handle("GET /api/search", middleware.Use(a.search, withReqID, withCORS))
	mux.Handle("GET /api/sources", middleware.Use(a.sources, withReqID, withCORS))
	mux.Handle("GET /embed/fedsearch.js", middleware.Use(a.embedJS, withReqID, withCORS))

	return mux
}
