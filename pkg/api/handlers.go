package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ksysoev/fedsearch/pkg/query"
)

type infoResponse struct {
	Service string `json:"service"`
	Docs    string `json:"docs"`
}

type sourcesResponse struct {
	Sources []string `json:"sources"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// healthCheck verifies the server is running and returns 200 OK.
func (a *API) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("ok")); err != nil {
		slog.ErrorContext(r.Context(), "failed to write response", "error", err)
	}
}

// info describes the service and its search endpoint.
func (a *API) info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, infoResponse{
		Service: "fedsearch",
		Docs:    "GET /api/search?q=...&limit=20&source=kiwix OR source=<local>; GET /api/sources",
	})
}

// sources lists every source name the service can be filtered by.
func (a *API) sources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, sourcesResponse{Sources: a.svc.Sources()})
}

// search runs a federated search and returns the merged, reranked, paginated
// hits, optionally with a synthesized answer.
func (a *API) search(w http.ResponseWriter, r *http.Request) {
	params := parseSearchParams(r)

	result, err := a.svc.Search(r.Context(), params)
	if err != nil {
		slog.ErrorContext(r.Context(), "search query failed", "error", err)
		writeJSON(w, r, http.StatusBadRequest, errorResponse{Error: err.Error()})

		return
	}

	writeJSON(w, r, http.StatusOK, result)
}

// embedJS serves the embeddable search widget script.
func (a *API) embedJS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(embedJS); err != nil {
		slog.ErrorContext(r.Context(), "failed to write embed script", "error", err)
	}
}

func parseSearchParams(r *http.Request) query.Params {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	wantAnswer, _ := strconv.ParseBool(q.Get("answer"))

	return query.Params{
		Query:      q.Get("q"),
		Limit:      limit,
		Offset:     offset,
		Source:     strings.TrimSpace(q.Get("source")),
		WantAnswer: wantAnswer,
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}
