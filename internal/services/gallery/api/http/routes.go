// Package http exposes the poster catalog and store status over HTTP.
package http

import (
	"net/http"

	"github.com/zyrr/gallery/internal/platform/httpx"
)

const (
	// PostersPath lists and creates posters.
	PostersPath = "/api/posters"
	// PosterPathPrefix precedes a poster slug.
	PosterPathPrefix = "/api/posters/"
	// StatusPath reports the backing store health.
	StatusPath = "/api/database/status"
)

// RegisterRoutes wires gallery routes into mux.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	if mux == nil || h == nil {
		return
	}
	mux.HandleFunc(http.MethodGet+" "+PostersPath, h.handleListPosters)
	mux.HandleFunc(http.MethodHead+" "+PostersPath, h.handleHeadPosters)
	mux.HandleFunc(http.MethodPost+" "+PostersPath, h.handleCreatePoster)
	mux.HandleFunc(PostersPath, httpx.MethodNotAllowed(http.MethodGet, http.MethodHead, http.MethodPost))

	mux.HandleFunc(http.MethodGet+" "+PosterPathPrefix+"{slug}", h.handleGetPoster)
	mux.HandleFunc(PosterPathPrefix+"{slug}", httpx.MethodNotAllowed(http.MethodGet, http.MethodHead))

	mux.HandleFunc(http.MethodGet+" "+StatusPath, h.handleStatus)
	mux.HandleFunc(StatusPath, httpx.MethodNotAllowed(http.MethodGet, http.MethodHead))
}

// NewRouter returns the gallery routes wrapped in the standard middleware.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()
	RegisterRoutes(mux, h)
	return httpx.Chain(mux,
		httpx.RequestID(),
		httpx.RecoverPanic(),
		httpx.AccessLog(),
		httpx.SecurityHeaders(),
	)
}
