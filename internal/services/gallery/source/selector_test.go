package source

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/zyrr/gallery/internal/services/gallery/domain"
	"github.com/zyrr/gallery/internal/services/gallery/storage"
	"github.com/zyrr/gallery/internal/services/gallery/storage/turso"
)

type fakeStore struct {
	kind   storage.Kind
	closed int
}

func (f *fakeStore) ListPosters(context.Context) ([]domain.Poster, error) { return nil, nil }
func (f *fakeStore) GetPosterBySlug(context.Context, string) (domain.Poster, error) {
	return domain.Poster{}, storage.ErrNotFound
}
func (f *fakeStore) CreatePoster(context.Context, domain.Poster) error { return nil }
func (f *fakeStore) Close() error {
	f.closed++
	return nil
}

type openCounts struct {
	mu     sync.Mutex
	remote int
	local  int
	json   int
}

func (c *openCounts) get() (int, int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remote, c.local, c.json
}

func countingOpeners(counts *openCounts, remoteErr, localErr error) Openers {
	return Openers{
		Remote: func(context.Context, turso.Credentials) (storage.PosterStore, error) {
			counts.mu.Lock()
			counts.remote++
			counts.mu.Unlock()
			if remoteErr != nil {
				return nil, remoteErr
			}
			return &fakeStore{kind: storage.KindTurso}, nil
		},
		Local: func(context.Context, string) (storage.PosterStore, error) {
			counts.mu.Lock()
			counts.local++
			counts.mu.Unlock()
			if localErr != nil {
				return nil, localErr
			}
			return &fakeStore{kind: storage.KindSQLite}, nil
		},
		JSON: func(string) (storage.PosterStore, error) {
			counts.mu.Lock()
			counts.json++
			counts.mu.Unlock()
			return &fakeStore{kind: storage.KindJSON}, nil
		},
	}
}

var remoteCreds = turso.Credentials{URL: "libsql://gallery.turso.io", AuthToken: "tok"}

func TestPlan(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  Config
		want []storage.Kind
	}{
		{name: "json only", cfg: Config{JSONOnly: true, Remote: remoteCreds}, want: []storage.Kind{storage.KindJSON}},
		{name: "remote then local", cfg: Config{Remote: remoteCreds}, want: []storage.Kind{storage.KindTurso, storage.KindSQLite}},
		{name: "local only", cfg: Config{}, want: []storage.Kind{storage.KindSQLite}},
		{name: "partial credentials", cfg: Config{Remote: turso.Credentials{URL: "libsql://x"}}, want: []storage.Kind{storage.KindSQLite}},
		{name: "json fallback", cfg: Config{Remote: remoteCreds, JSONFallback: true}, want: []storage.Kind{storage.KindTurso, storage.KindSQLite, storage.KindJSON}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, Plan(tc.cfg)); diff != "" {
				t.Fatalf("Plan() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSourceWithoutCredentialsUsesLocal(t *testing.T) {
	counts := &openCounts{}
	sel := NewSelector(Config{LocalPath: "gallery.db"}, countingOpeners(counts, nil, nil))

	src, err := sel.Source(context.Background())
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if src.Kind != storage.KindSQLite {
		t.Fatalf("kind = %q, want %q", src.Kind, storage.KindSQLite)
	}
	if remote, local, _ := counts.get(); remote != 0 || local != 1 {
		t.Fatalf("opens remote=%d local=%d, want 0 and 1", remote, local)
	}
}

func TestSourceIsMemoized(t *testing.T) {
	counts := &openCounts{}
	sel := NewSelector(Config{Remote: remoteCreds, LocalPath: "gallery.db"}, countingOpeners(counts, nil, nil))

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := sel.Source(context.Background()); err != nil {
				t.Errorf("Source() error = %v", err)
			}
		}()
	}
	wg.Wait()

	src, err := sel.Source(context.Background())
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if src.Kind != storage.KindTurso {
		t.Fatalf("kind = %q, want %q", src.Kind, storage.KindTurso)
	}
	if remote, local, _ := counts.get(); remote != 1 || local != 0 {
		t.Fatalf("opens remote=%d local=%d, want 1 and 0", remote, local)
	}
}

func TestSourceFallsBackToLocal(t *testing.T) {
	counts := &openCounts{}
	sel := NewSelector(Config{Remote: remoteCreds, LocalPath: "gallery.db"}, countingOpeners(counts, errors.New("dial failed"), nil))

	src, err := sel.Source(context.Background())
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if src.Kind != storage.KindSQLite {
		t.Fatalf("kind = %q, want %q", src.Kind, storage.KindSQLite)
	}
	if _, err := sel.Source(context.Background()); err != nil {
		t.Fatalf("second Source() error = %v", err)
	}
	if remote, local, _ := counts.get(); remote != 1 || local != 1 {
		t.Fatalf("opens remote=%d local=%d, want 1 and 1", remote, local)
	}
}

func TestSourceJSONOnlySkipsDatabases(t *testing.T) {
	counts := &openCounts{}
	sel := NewSelector(Config{JSONOnly: true, Remote: remoteCreds, LocalPath: "gallery.db"}, countingOpeners(counts, nil, nil))

	src, err := sel.Source(context.Background())
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if src.Kind != storage.KindJSON {
		t.Fatalf("kind = %q, want %q", src.Kind, storage.KindJSON)
	}
	if remote, local, json := counts.get(); remote != 0 || local != 0 || json != 1 {
		t.Fatalf("opens remote=%d local=%d json=%d", remote, local, json)
	}
}

func TestSourceAllFailJoinsErrors(t *testing.T) {
	counts := &openCounts{}
	remoteErr := errors.New("dial failed")
	localErr := errors.New("disk full")
	sel := NewSelector(Config{Remote: remoteCreds, LocalPath: "gallery.db"}, countingOpeners(counts, remoteErr, localErr))

	_, err := sel.Source(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []error{ErrNoStore, remoteErr, localErr} {
		if !errors.Is(err, want) {
			t.Fatalf("error %v does not wrap %v", err, want)
		}
	}
	// Failures are not memoized; the next call retries the whole plan.
	if _, err := sel.Source(context.Background()); err == nil {
		t.Fatal("expected error on retry")
	}
	if remote, local, _ := counts.get(); remote != 2 || local != 2 {
		t.Fatalf("opens remote=%d local=%d, want 2 and 2", remote, local)
	}
}

func TestSourceIgnoresCallerCancellation(t *testing.T) {
	var remoteCalls int
	sel := NewSelector(Config{Remote: remoteCreds, LocalPath: "gallery.db"}, Openers{
		Remote: func(ctx context.Context, _ turso.Credentials) (storage.PosterStore, error) {
			remoteCalls++
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if _, ok := ctx.Deadline(); !ok {
				return nil, errors.New("init context has no deadline")
			}
			return &fakeStore{kind: storage.KindTurso}, nil
		},
		Local: func(context.Context, string) (storage.PosterStore, error) {
			return &fakeStore{kind: storage.KindSQLite}, nil
		},
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	src, err := sel.Source(ctx)
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if src.Kind != storage.KindTurso {
		t.Fatalf("kind = %q, want %q", src.Kind, storage.KindTurso)
	}

	src, err = sel.Source(context.Background())
	if err != nil {
		t.Fatalf("second Source() error = %v", err)
	}
	if src.Kind != storage.KindTurso || remoteCalls != 1 {
		t.Fatalf("kind = %q remote calls = %d, want turso and 1", src.Kind, remoteCalls)
	}
}

func TestSourceAllFailFallsBackToJSON(t *testing.T) {
	counts := &openCounts{}
	cfg := Config{Remote: remoteCreds, LocalPath: "gallery.db", JSONFallback: true}
	sel := NewSelector(cfg, countingOpeners(counts, errors.New("dial failed"), errors.New("disk full")))

	src, err := sel.Source(context.Background())
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if src.Kind != storage.KindJSON {
		t.Fatalf("kind = %q, want %q", src.Kind, storage.KindJSON)
	}
}

func TestSourceRequiresLocalPath(t *testing.T) {
	counts := &openCounts{}
	sel := NewSelector(Config{}, countingOpeners(counts, nil, nil))

	if _, err := sel.Source(context.Background()); !errors.Is(err, ErrNoStore) {
		t.Fatalf("error = %v, want %v", err, ErrNoStore)
	}
	if _, local, _ := counts.get(); local != 0 {
		t.Fatalf("local opens = %d, want 0", local)
	}
}

func TestCloseReleasesStore(t *testing.T) {
	store := &fakeStore{}
	sel := NewSelector(Config{LocalPath: "gallery.db"}, Openers{
		Local: func(context.Context, string) (storage.PosterStore, error) { return store, nil },
	})
	if _, err := sel.Source(context.Background()); err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if err := sel.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if store.closed != 1 {
		t.Fatalf("store closed %d times, want 1", store.closed)
	}
	if _, err := sel.Source(context.Background()); err == nil {
		t.Fatal("expected error after close")
	}
}

func TestDefaultOpenersLocalSQLite(t *testing.T) {
	sel := NewSelector(Config{LocalPath: filepath.Join(t.TempDir(), "gallery.db")}, Openers{})
	t.Cleanup(func() { _ = sel.Close() })

	src, err := sel.Source(context.Background())
	if err != nil {
		t.Fatalf("Source() error = %v", err)
	}
	if src.Kind != storage.KindSQLite {
		t.Fatalf("kind = %q, want %q", src.Kind, storage.KindSQLite)
	}
	posters, err := src.Store.ListPosters(context.Background())
	if err != nil {
		t.Fatalf("list posters: %v", err)
	}
	if len(posters) != 0 {
		t.Fatalf("posters = %d, want 0", len(posters))
	}
}
