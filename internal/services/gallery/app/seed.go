package server

import (
	"context"
	"fmt"
	"log"

	"github.com/zyrr/gallery/internal/services/gallery/storage"
	"github.com/zyrr/gallery/internal/services/gallery/storage/jsonfile"
)

type posterCounter interface {
	CountPosters(ctx context.Context) (int, error)
}

// SeedEmpty copies the static catalog at jsonPath (bundled when empty) into
// store when store holds no posters. Posters that fail to insert are logged
// and skipped. It returns how many posters were inserted.
func SeedEmpty(ctx context.Context, store storage.PosterStore, jsonPath string) (int, error) {
	if store == nil {
		return 0, fmt.Errorf("poster store is required")
	}
	empty, err := isEmpty(ctx, store)
	if err != nil {
		return 0, err
	}
	if !empty {
		return 0, nil
	}

	catalog, err := jsonfile.Open(jsonPath)
	if err != nil {
		return 0, fmt.Errorf("open seed catalog: %w", err)
	}
	posters, err := catalog.ListPosters(ctx)
	if err != nil {
		return 0, fmt.Errorf("list seed posters: %w", err)
	}

	inserted := 0
	for _, poster := range posters {
		if err := store.CreatePoster(ctx, poster); err != nil {
			log.Printf("seed skip poster slug=%s: %v", poster.Slug, err)
			continue
		}
		inserted++
	}
	log.Printf("seeded %d of %d posters", inserted, len(posters))
	return inserted, nil
}

func isEmpty(ctx context.Context, store storage.PosterStore) (bool, error) {
	if counter, ok := store.(posterCounter); ok {
		n, err := counter.CountPosters(ctx)
		if err != nil {
			return false, err
		}
		return n == 0, nil
	}
	posters, err := store.ListPosters(ctx)
	if err != nil {
		return false, fmt.Errorf("list posters: %w", err)
	}
	return len(posters) == 0, nil
}
