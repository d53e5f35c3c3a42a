package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	apperrors "github.com/zyrr/gallery/internal/platform/errors"
	"github.com/zyrr/gallery/internal/platform/httpx"
	"github.com/zyrr/gallery/internal/platform/id"
	"github.com/zyrr/gallery/internal/platform/requestctx"
	"github.com/zyrr/gallery/internal/services/gallery/domain"
	"github.com/zyrr/gallery/internal/services/gallery/source"
	"github.com/zyrr/gallery/internal/services/gallery/status"
	"github.com/zyrr/gallery/internal/services/gallery/storage"
)

const (
	postersCacheControl = "public, max-age=300, stale-while-revalidate=600"
	statusCacheControl  = "public, max-age=60, stale-while-revalidate=120"

	maxPosterBody = 1 << 20

	msgFetchFailed  = "Failed to fetch posters"
	msgCreateFailed = "Failed to create poster"
	msgCreated      = "Poster created successfully"
	msgStatusFailed = "Status check failed"
)

// Catalog is the cached read path.
type Catalog interface {
	Posters(ctx context.Context) ([]domain.Poster, error)
	PosterBySlug(ctx context.Context, slug string) (domain.Poster, error)
	Clear()
}

// Sources resolves the store that accepts writes.
type Sources interface {
	Source(ctx context.Context) (source.Source, error)
}

// StatusChecker reports store health. Invalidate drops a cached report so
// the next check reflects a write.
type StatusChecker interface {
	Check(ctx context.Context) (status.Report, error)
	Invalidate()
}

// Config wires a Handler.
type Config struct {
	Catalog  Catalog
	Sources  Sources
	Status   StatusChecker
	JSONOnly bool
	// NewID generates ids for posters created without one.
	NewID func() (string, error)
}

// Handler serves gallery endpoints.
type Handler struct {
	catalog  Catalog
	sources  Sources
	status   StatusChecker
	jsonOnly bool
	newID    func() (string, error)
}

// NewHandler validates cfg and builds a Handler.
func NewHandler(cfg Config) (*Handler, error) {
	if cfg.Catalog == nil {
		return nil, errors.New("catalog is required")
	}
	if cfg.Status == nil {
		return nil, errors.New("status checker is required")
	}
	if cfg.Sources == nil && !cfg.JSONOnly {
		return nil, errors.New("sources are required unless running json-only")
	}
	newID := cfg.NewID
	if newID == nil {
		newID = id.NewID
	}
	return &Handler{
		catalog:  cfg.Catalog,
		sources:  cfg.Sources,
		status:   cfg.Status,
		jsonOnly: cfg.JSONOnly,
		newID:    newID,
	}, nil
}

func (h *Handler) handleListPosters(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)
	posters, err := h.catalog.Posters(ctx)
	if err != nil {
		log.Printf("list posters request_id=%s: %v", requestctx.RequestIDFromContext(ctx), err)
		httpx.NoStore(w)
		_ = httpx.WriteJSONError(w, http.StatusInternalServerError, msgFetchFailed)
		return
	}
	w.Header().Set("Cache-Control", postersCacheControl)
	if err := httpx.WriteJSON(w, http.StatusOK, domain.Summaries(posters)); err != nil {
		log.Printf("write posters: %v", err)
	}
}

// handleHeadPosters answers with the list headers only and never touches the
// store.
func (h *Handler) handleHeadPosters(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", postersCacheControl)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleCreatePoster(w http.ResponseWriter, r *http.Request) {
	poster, err := decodePoster(r.Body)
	if err != nil {
		httpx.NoStore(w)
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := httpx.RequestContext(r)
	if !h.jsonOnly {
		if err := h.createPoster(ctx, poster); err != nil {
			if apperrors.HTTPStatus(err) >= http.StatusInternalServerError {
				log.Printf("create poster slug=%s request_id=%s: %v", poster.Slug, requestctx.RequestIDFromContext(ctx), err)
			}
			httpx.WriteError(w, err, msgCreateFailed)
			return
		}
	}

	h.catalog.Clear()
	h.status.Invalidate()
	httpx.NoStore(w)
	_ = httpx.WriteJSON(w, http.StatusCreated, map[string]string{"message": msgCreated})
}

func (h *Handler) createPoster(ctx context.Context, poster domain.Poster) error {
	poster.Normalize()
	if poster.ID == "" {
		generated, err := h.newID()
		if err != nil {
			return fmt.Errorf("generate poster id: %w", err)
		}
		poster.ID = generated
	}
	if err := domain.Validate(poster); err != nil {
		return err
	}
	src, err := h.sources.Source(ctx)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeStoreUnavailable, "poster store unavailable", err)
	}
	return src.Store.CreatePoster(ctx, poster)
}

func (h *Handler) handleGetPoster(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.PathValue("slug"))
	ctx := httpx.RequestContext(r)
	poster, err := h.catalog.PosterBySlug(ctx, slug)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Printf("get poster slug=%s request_id=%s: %v", slug, requestctx.RequestIDFromContext(ctx), err)
		}
		httpx.WriteError(w, err, msgFetchFailed)
		return
	}
	w.Header().Set("Cache-Control", postersCacheControl)
	if err := httpx.WriteJSON(w, http.StatusOK, poster); err != nil {
		log.Printf("write poster: %v", err)
	}
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)
	report, err := h.status.Check(ctx)
	if err != nil {
		log.Printf("status check request_id=%s: %v", requestctx.RequestIDFromContext(ctx), err)
		httpx.NoStore(w)
		_ = httpx.WriteJSON(w, http.StatusInternalServerError, status.Report{
			Status:  status.StatusError,
			Type:    status.TypeNone,
			Message: msgStatusFailed,
		})
		return
	}
	w.Header().Set("Cache-Control", statusCacheControl)
	_ = httpx.WriteJSON(w, http.StatusOK, report)
}

func decodePoster(body io.Reader) (domain.Poster, error) {
	if body == nil {
		return domain.Poster{}, errors.New("request body is required")
	}
	dec := json.NewDecoder(io.LimitReader(body, maxPosterBody))
	dec.DisallowUnknownFields()
	var poster domain.Poster
	if err := dec.Decode(&poster); err != nil {
		if errors.Is(err, io.EOF) {
			return domain.Poster{}, errors.New("request body is required")
		}
		return domain.Poster{}, fmt.Errorf("invalid poster payload: %v", err)
	}
	return poster, nil
}
