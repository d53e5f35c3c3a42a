// Package status reports which poster store is answering and whether it is
// healthy.
package status

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/zyrr/gallery/internal/platform/timeouts"
	"github.com/zyrr/gallery/internal/services/gallery/source"
	"github.com/zyrr/gallery/internal/services/gallery/storage"
)

// TTL bounds how long a report is reused.
const TTL = 60 * time.Second

const (
	StatusConnected = "connected"
	StatusError     = "error"

	TypeNone    = "none"
	TypeUnknown = "unknown"
)

// Report is the outcome of one probe.
type Report struct {
	Status  string `json:"status"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// Connected reports whether a store answered.
func (r Report) Connected() bool {
	return r.Status == StatusConnected
}

// Provider resolves the selected store.
type Provider interface {
	Source(ctx context.Context) (source.Source, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

// Prober caches store health reports.
type Prober struct {
	provider Provider
	now      func() time.Time

	mu       sync.Mutex
	last     Report
	storedAt time.Time
	valid    bool
}

// NewProber builds a prober over provider. A nil now uses time.Now.
func NewProber(provider Provider, now func() time.Time) *Prober {
	if now == nil {
		now = time.Now
	}
	return &Prober{provider: provider, now: now}
}

// Check returns the cached report or probes the store. Both connected and
// error reports are cached. An error is returned only when the probe itself
// could not run.
func (p *Prober) Check(ctx context.Context) (Report, error) {
	if p == nil || p.provider == nil {
		return Report{}, fmt.Errorf("status prober is not configured")
	}
	if report, ok := p.cached(); ok {
		return report, nil
	}
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	probeCtx, cancel := context.WithTimeout(ctx, timeouts.StatusProbe)
	defer cancel()
	report := p.probe(probeCtx)

	p.mu.Lock()
	p.last = report
	p.storedAt = p.now()
	p.valid = true
	p.mu.Unlock()
	return report, nil
}

// Invalidate forces the next Check to probe.
func (p *Prober) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.valid = false
}

func (p *Prober) cached() (Report, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.valid || p.now().Sub(p.storedAt) >= TTL {
		return Report{}, false
	}
	return p.last, true
}

func (p *Prober) probe(ctx context.Context) Report {
	src, err := p.provider.Source(ctx)
	if err != nil {
		return Report{Status: StatusError, Type: TypeNone, Message: err.Error()}
	}
	typ := typeOf(src.Kind)
	if pg, ok := src.Store.(pinger); ok {
		if err := pg.Ping(ctx); err != nil {
			return Report{Status: StatusError, Type: typ, Message: fmt.Sprintf("ping %s store: %v", typ, err)}
		}
	}
	return Report{Status: StatusConnected, Type: typ, Message: messageFor(src.Kind)}
}

func typeOf(kind storage.Kind) string {
	switch kind {
	case storage.KindTurso, storage.KindSQLite, storage.KindJSON:
		return string(kind)
	default:
		return TypeUnknown
	}
}

func messageFor(kind storage.Kind) string {
	switch kind {
	case storage.KindTurso:
		return "Connected to Turso database"
	case storage.KindSQLite:
		return "Connected to local SQLite database"
	case storage.KindJSON:
		return "Using JSON data source"
	default:
		return "Connected to unrecognized data source"
	}
}
