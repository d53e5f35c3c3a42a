// Package turso opens the remote hosted libSQL poster store.
package turso

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"

	_ "github.com/tursodatabase/libsql-client-go/libsql"

	"github.com/zyrr/gallery/internal/services/gallery/storage"
	"github.com/zyrr/gallery/internal/services/gallery/storage/sqlstore"
)

// DriverName is the database/sql driver registered by libsql-client-go.
const DriverName = "libsql"

// Credentials locate and authorise a remote database.
type Credentials struct {
	URL       string
	AuthToken string
}

// Present reports whether both the URL and the token are set.
func (c Credentials) Present() bool {
	return strings.TrimSpace(c.URL) != "" && strings.TrimSpace(c.AuthToken) != ""
}

// DSN renders the connection string with the token as a query parameter.
func (c Credentials) DSN() (string, error) {
	if !c.Present() {
		return "", fmt.Errorf("remote database url and auth token are required")
	}
	parsed, err := url.Parse(strings.TrimSpace(c.URL))
	if err != nil {
		return "", fmt.Errorf("parse remote database url: %w", err)
	}
	switch parsed.Scheme {
	case "libsql", "https", "http", "wss", "ws":
	default:
		return "", fmt.Errorf("unsupported remote database scheme %q", parsed.Scheme)
	}
	query := parsed.Query()
	query.Set("authToken", strings.TrimSpace(c.AuthToken))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// Open connects to the remote database, verifies it answers and applies the
// poster migrations.
func Open(ctx context.Context, creds Credentials) (*sqlstore.Store, error) {
	dsn, err := creds.DSN()
	if err != nil {
		return nil, err
	}
	sqlDB, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open remote db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping remote db: %w", err)
	}
	store, err := sqlstore.Open(ctx, sqlDB, sqlstore.Options{Kind: storage.KindTurso})
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return store, nil
}
