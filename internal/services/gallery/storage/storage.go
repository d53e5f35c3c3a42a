// Package storage defines persistence contracts for the poster catalog.
package storage

import (
	"context"

	apperrors "github.com/zyrr/gallery/internal/platform/errors"
	"github.com/zyrr/gallery/internal/services/gallery/domain"
)

var (
	// ErrNotFound indicates a requested poster is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "poster not found")
	// ErrAlreadyExists indicates a poster with the same id or slug is stored.
	ErrAlreadyExists = apperrors.New(apperrors.CodeAlreadyExists, "poster already exists")
	// ErrUnsupported indicates the store cannot perform the operation.
	ErrUnsupported = apperrors.New(apperrors.CodeUnsupported, "operation not supported by this store")
)

// Kind names a backing store implementation.
type Kind string

const (
	KindTurso  Kind = "turso"
	KindSQLite Kind = "sqlite"
	KindJSON   Kind = "json"
)

// Relational reports whether the kind is backed by a SQL database.
func (k Kind) Relational() bool {
	return k == KindTurso || k == KindSQLite
}

// PosterStore answers poster queries.
type PosterStore interface {
	ListPosters(ctx context.Context) ([]domain.Poster, error)
	GetPosterBySlug(ctx context.Context, slug string) (domain.Poster, error)
	CreatePoster(ctx context.Context, poster domain.Poster) error
	Close() error
}
