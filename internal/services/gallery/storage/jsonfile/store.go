// Package jsonfile serves posters from a static JSON document. It is the
// read-only fallback store and never needs a database.
package jsonfile

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	apperrors "github.com/zyrr/gallery/internal/platform/errors"
	"github.com/zyrr/gallery/internal/services/gallery/domain"
	"github.com/zyrr/gallery/internal/services/gallery/storage"
)

//go:embed data/posters.json
var bundled []byte

// Document is the on-disk shape of the catalog file.
type Document struct {
	Posters []domain.Poster `json:"posters"`
}

// Store answers poster queries from an in-memory copy of the document.
type Store struct {
	posters []domain.Poster
	bySlug  map[string]int
}

// Open loads the catalog at path, or the bundled catalog when path is empty.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Parse(bundled)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read poster catalog: %w", err)
	}
	return Parse(raw)
}

// Parse decodes and validates a catalog document.
func Parse(raw []byte) (*Store, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode poster catalog: %w", err)
	}
	for i := range doc.Posters {
		doc.Posters[i].Normalize()
		if err := domain.Validate(doc.Posters[i]); err != nil {
			return nil, fmt.Errorf("poster %d (%s): %w", i, doc.Posters[i].Slug, err)
		}
	}
	if slug, dup := domain.DuplicateSlug(doc.Posters); dup {
		return nil, apperrors.WithMetadata(
			apperrors.CodePosterDuplicateSlug,
			"duplicate poster slug "+slug,
			map[string]string{"slug": slug},
		)
	}

	s := &Store{
		posters: doc.Posters,
		bySlug:  make(map[string]int, len(doc.Posters)),
	}
	for i, p := range s.posters {
		s.bySlug[p.Slug] = i
	}
	return s, nil
}

// ListPosters returns the catalog in document order.
func (s *Store) ListPosters(ctx context.Context) ([]domain.Poster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Poster, len(s.posters))
	copy(out, s.posters)
	return out, nil
}

// GetPosterBySlug returns one poster or storage.ErrNotFound.
func (s *Store) GetPosterBySlug(ctx context.Context, slug string) (domain.Poster, error) {
	if err := ctx.Err(); err != nil {
		return domain.Poster{}, err
	}
	idx, ok := s.bySlug[strings.TrimSpace(slug)]
	if !ok {
		return domain.Poster{}, storage.ErrNotFound
	}
	return s.posters[idx], nil
}

// CreatePoster always fails: the static catalog is read-only.
func (s *Store) CreatePoster(context.Context, domain.Poster) error {
	return storage.ErrUnsupported
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

var _ storage.PosterStore = (*Store)(nil)
