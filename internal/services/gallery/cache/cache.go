// Package cache provides a read-through TTL cache in front of the selected
// poster store.
package cache

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zyrr/gallery/internal/platform/otel"
	"github.com/zyrr/gallery/internal/services/gallery/domain"
	"github.com/zyrr/gallery/internal/services/gallery/source"
	"github.com/zyrr/gallery/internal/services/gallery/storage"
)

const (
	// ListKey holds the full catalog.
	ListKey = "posters"
	// ListTTL bounds how long the full catalog is served from memory.
	ListTTL = 5 * time.Minute
	// PosterTTL bounds how long a single poster is served from memory.
	PosterTTL = 10 * time.Minute
)

var tracer = otel.Tracer("services/gallery/cache")

// SlugKey returns the cache key of one poster.
func SlugKey(slug string) string {
	return "poster:" + slug
}

// Provider resolves the store behind the cache.
type Provider interface {
	Source(ctx context.Context) (source.Source, error)
}

type entry struct {
	value    any
	storedAt time.Time
	ttl      time.Duration
}

// Cache memoizes store reads per key.
type Cache struct {
	provider Provider
	now      func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

// Option customises a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a cache over provider.
func New(provider Provider, opts ...Option) *Cache {
	c := &Cache{
		provider: provider,
		now:      time.Now,
		entries:  make(map[string]entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Posters returns the catalog, reading through to the store on miss or expiry.
func (c *Cache) Posters(ctx context.Context) (posters []domain.Poster, err error) {
	ctx, span := tracer.Start(ctx, "cache.Posters")
	defer func() { endSpan(span, err) }()

	if v, ok := c.get(ListKey); ok {
		span.SetAttributes(attribute.Bool("gallery.cache.hit", true))
		return slices.Clone(v.([]domain.Poster)), nil
	}
	span.SetAttributes(attribute.Bool("gallery.cache.hit", false))

	src, err := c.provider.Source(ctx)
	if err != nil {
		return nil, err
	}
	posters, err = src.Store.ListPosters(ctx)
	if err != nil {
		return nil, err
	}
	if posters == nil {
		posters = []domain.Poster{}
	}
	c.set(ListKey, slices.Clone(posters), ListTTL)
	return posters, nil
}

// PosterBySlug returns one poster. Missing posters are not cached.
func (c *Cache) PosterBySlug(ctx context.Context, slug string) (poster domain.Poster, err error) {
	slug = strings.TrimSpace(slug)
	key := SlugKey(slug)
	ctx, span := tracer.Start(ctx, "cache.PosterBySlug", trace.WithAttributes(attribute.String("gallery.poster.slug", slug)))
	defer func() { endSpan(span, err) }()

	if v, ok := c.get(key); ok {
		span.SetAttributes(attribute.Bool("gallery.cache.hit", true))
		return v.(domain.Poster), nil
	}
	span.SetAttributes(attribute.Bool("gallery.cache.hit", false))

	src, err := c.provider.Source(ctx)
	if err != nil {
		return domain.Poster{}, err
	}
	poster, err = src.Store.GetPosterBySlug(ctx, slug)
	if err != nil {
		return domain.Poster{}, err
	}
	c.set(key, poster, PosterTTL)
	return poster, nil
}

// Clear drops every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= e.ttl {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) set(key string, value any, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, storedAt: c.now(), ttl: ttl}
}

func endSpan(span trace.Span, err error) {
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
