// Package source picks the backing store that answers poster queries.
package source

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/zyrr/gallery/internal/platform/timeouts"
	"github.com/zyrr/gallery/internal/services/gallery/storage"
	"github.com/zyrr/gallery/internal/services/gallery/storage/jsonfile"
	"github.com/zyrr/gallery/internal/services/gallery/storage/sqlite"
	"github.com/zyrr/gallery/internal/services/gallery/storage/turso"
)

// ErrNoStore is returned when every store in the plan failed to initialize.
var ErrNoStore = errors.New("no poster store available")

// Config decides which stores are tried.
type Config struct {
	// JSONOnly serves the static catalog and skips every database.
	JSONOnly bool
	// JSONFallback appends the static catalog after the relational stores.
	JSONFallback bool
	// Remote holds the hosted database credentials; both fields must be set.
	Remote turso.Credentials
	// LocalPath is the SQLite file used by the local store.
	LocalPath string
	// JSONPath overrides the bundled static catalog.
	JSONPath string
}

// Openers construct each store. Tests replace them with fakes.
type Openers struct {
	Remote func(ctx context.Context, creds turso.Credentials) (storage.PosterStore, error)
	Local  func(ctx context.Context, path string) (storage.PosterStore, error)
	JSON   func(path string) (storage.PosterStore, error)
}

// DefaultOpeners wires the real store implementations.
func DefaultOpeners() Openers {
	return Openers{
		Remote: func(ctx context.Context, creds turso.Credentials) (storage.PosterStore, error) {
			return turso.Open(ctx, creds)
		},
		Local: func(ctx context.Context, path string) (storage.PosterStore, error) {
			return sqlite.Open(ctx, path)
		},
		JSON: func(path string) (storage.PosterStore, error) {
			return jsonfile.Open(path)
		},
	}
}

// Source is the selected store tagged with its kind.
type Source struct {
	Store storage.PosterStore
	Kind  storage.Kind
}

// Plan lists the stores to try, in order, for cfg.
func Plan(cfg Config) []storage.Kind {
	if cfg.JSONOnly {
		return []storage.Kind{storage.KindJSON}
	}
	plan := make([]storage.Kind, 0, 3)
	if cfg.Remote.Present() {
		plan = append(plan, storage.KindTurso)
	}
	plan = append(plan, storage.KindSQLite)
	if cfg.JSONFallback {
		plan = append(plan, storage.KindJSON)
	}
	return plan
}

// Selector memoizes the first store that initializes successfully.
type Selector struct {
	cfg     Config
	openers Openers

	mu       sync.Mutex
	selected *Source
	closed   bool
}

// NewSelector builds a selector. Missing openers fall back to the defaults.
func NewSelector(cfg Config, openers Openers) *Selector {
	defaults := DefaultOpeners()
	if openers.Remote == nil {
		openers.Remote = defaults.Remote
	}
	if openers.Local == nil {
		openers.Local = defaults.Local
	}
	if openers.JSON == nil {
		openers.JSON = defaults.JSON
	}
	return &Selector{cfg: cfg, openers: openers}
}

// Config returns the selector configuration.
func (s *Selector) Config() Config {
	return s.cfg
}

// Source returns the memoized store, initializing it on first use. A failed
// selection is not memoized; the next call retries the whole plan.
//
// Initialization outlives ctx: the selected store serves the whole process,
// so each attempt is bounded by timeouts.StoreInit rather than the caller's
// deadline or cancellation.
func (s *Selector) Source(ctx context.Context) (Source, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Source{}, fmt.Errorf("poster source is closed")
	}
	if s.selected != nil {
		return *s.selected, nil
	}

	initCtx := context.WithoutCancel(ctx)
	var failures []error
	for _, kind := range Plan(s.cfg) {
		store, err := s.open(initCtx, kind)
		if err != nil {
			log.Printf("poster store init failed kind=%s err=%v", kind, err)
			failures = append(failures, fmt.Errorf("%s: %w", kind, err))
			continue
		}
		log.Printf("poster store selected kind=%s", kind)
		s.selected = &Source{Store: store, Kind: kind}
		return *s.selected, nil
	}
	return Source{}, fmt.Errorf("%w: %w", ErrNoStore, errors.Join(failures...))
}

// Close releases the memoized store. Later Source calls fail.
func (s *Selector) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.selected == nil {
		return nil
	}
	err := s.selected.Store.Close()
	s.selected = nil
	return err
}

func (s *Selector) open(ctx context.Context, kind storage.Kind) (storage.PosterStore, error) {
	switch kind {
	case storage.KindTurso:
		initCtx, cancel := context.WithTimeout(ctx, timeouts.StoreInit)
		defer cancel()
		return s.openers.Remote(initCtx, s.cfg.Remote)
	case storage.KindSQLite:
		if strings.TrimSpace(s.cfg.LocalPath) == "" {
			return nil, fmt.Errorf("local database path is not configured")
		}
		initCtx, cancel := context.WithTimeout(ctx, timeouts.StoreInit)
		defer cancel()
		return s.openers.Local(initCtx, s.cfg.LocalPath)
	case storage.KindJSON:
		return s.openers.JSON(s.cfg.JSONPath)
	default:
		return nil, fmt.Errorf("unknown store kind %q", kind)
	}
}
