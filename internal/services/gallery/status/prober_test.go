package status

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/zyrr/gallery/internal/services/gallery/domain"
	"github.com/zyrr/gallery/internal/services/gallery/source"
	"github.com/zyrr/gallery/internal/services/gallery/storage"
)

type fakeStore struct {
	pingErr error
}

func (fakeStore) ListPosters(context.Context) ([]domain.Poster, error) { return nil, nil }
func (fakeStore) GetPosterBySlug(context.Context, string) (domain.Poster, error) {
	return domain.Poster{}, storage.ErrNotFound
}
func (fakeStore) CreatePoster(context.Context, domain.Poster) error { return nil }
func (fakeStore) Close() error { return nil }
func (f fakeStore) Ping(context.Context) error { return f.pingErr }

type fakeProvider struct {
	mu    sync.Mutex
	calls int
	src   source.Source
	err   error
}

func (p *fakeProvider) Source(context.Context) (source.Source, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.src, p.err
}

func TestCheckConnected(t *testing.T) {
	t.Parallel()

	tests := []struct {
		kind storage.Kind
		want Report
	}{
		{kind: storage.KindTurso, want: Report{Status: StatusConnected, Type: "turso", Message: "Connected to Turso database"}},
		{kind: storage.KindSQLite, want: Report{Status: StatusConnected, Type: "sqlite", Message: "Connected to local SQLite database"}},
		{kind: storage.KindJSON, want: Report{Status: StatusConnected, Type: "json", Message: "Using JSON data source"}},
		{kind: storage.Kind("csv"), want: Report{Status: StatusConnected, Type: TypeUnknown, Message: "Connected to unrecognized data source"}},
	}
	for _, tc := range tests {
		t.Run(string(tc.kind), func(t *testing.T) {
			prober := NewProber(&fakeProvider{src: source.Source{Store: fakeStore{}, Kind: tc.kind}}, nil)
			got, err := prober.Check(context.Background())
			if err != nil {
				t.Fatalf("Check() error = %v", err)
			}
			if got != tc.want {
				t.Fatalf("Check() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestCheckSelectorFailure(t *testing.T) {
	t.Parallel()

	prober := NewProber(&fakeProvider{err: errors.New("no poster store available")}, nil)
	got, err := prober.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.Status != StatusError || got.Type != TypeNone {
		t.Fatalf("Check() = %+v, want error/none", got)
	}
	if got.Message != "no poster store available" {
		t.Fatalf("message = %q", got.Message)
	}
	if got.Connected() {
		t.Fatal("Connected() = true for error report")
	}
}

func TestCheckPingFailure(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{src: source.Source{Store: fakeStore{pingErr: errors.New("timeout")}, Kind: storage.KindTurso}}
	got, err := NewProber(provider, nil).Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got.Status != StatusError || got.Type != "turso" {
		t.Fatalf("Check() = %+v, want error/turso", got)
	}
}

func TestCheckCachesBothOutcomes(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	for _, provider := range []*fakeProvider{
		{src: source.Source{Store: fakeStore{}, Kind: storage.KindSQLite}},
		{err: errors.New("down")},
	} {
		now = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		prober := NewProber(provider, clock)
		for range 3 {
			if _, err := prober.Check(context.Background()); err != nil {
				t.Fatalf("Check() error = %v", err)
			}
		}
		if provider.calls != 1 {
			t.Fatalf("provider calls = %d, want 1", provider.calls)
		}
		now = now.Add(TTL)
		if _, err := prober.Check(context.Background()); err != nil {
			t.Fatalf("Check() error = %v", err)
		}
		if provider.calls != 2 {
			t.Fatalf("provider calls after ttl = %d, want 2", provider.calls)
		}
	}
}

func TestInvalidateForcesProbe(t *testing.T) {
	t.Parallel()

	provider := &fakeProvider{src: source.Source{Store: fakeStore{}, Kind: storage.KindJSON}}
	prober := NewProber(provider, nil)
	_, _ = prober.Check(context.Background())
	prober.Invalidate()
	_, _ = prober.Check(context.Background())
	if provider.calls != 2 {
		t.Fatalf("provider calls = %d, want 2", provider.calls)
	}
}

func TestCheckCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	provider := &fakeProvider{src: source.Source{Store: fakeStore{}, Kind: storage.KindJSON}}
	if _, err := NewProber(provider, nil).Check(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Check() error = %v, want %v", err, context.Canceled)
	}
	if provider.calls != 0 {
		t.Fatalf("provider calls = %d, want 0", provider.calls)
	}
}

func TestCheckUnconfigured(t *testing.T) {
	t.Parallel()

	var prober *Prober
	if _, err := prober.Check(context.Background()); err == nil {
		t.Fatal("expected error from nil prober")
	}
}
