// Package gallery parses gallery service flags and launches the service.
package gallery

import (
	"context"
	"errors"
	"flag"
	"log"
	"strings"
	"time"

	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	entrypoint "github.com/zyrr/gallery/internal/platform/cmd"
	platformgrpc "github.com/zyrr/gallery/internal/platform/grpc"
	server "github.com/zyrr/gallery/internal/services/gallery/app"
	"github.com/zyrr/gallery/internal/services/gallery/source"
	"github.com/zyrr/gallery/internal/services/gallery/storage/turso"
)

// Config holds gallery command configuration.
type Config struct {
	HTTPAddr     string `env:"ZYRR_GALLERY_HTTP_ADDR" envDefault:":8080"`
	GRPCAddr     string `env:"ZYRR_GALLERY_GRPC_ADDR"`
	JSONOnly     bool   `env:"ZYRR_GALLERY_JSON_ONLY"`
	JSONFallback bool   `env:"ZYRR_GALLERY_JSON_FALLBACK" envDefault:"true"`
	JSONPath     string `env:"ZYRR_GALLERY_JSON_PATH"`
	DBPath       string `env:"ZYRR_GALLERY_DB_PATH" envDefault:"data/gallery.db"`
	TursoURL     string `env:"TURSO_DATABASE_URL"`
	TursoToken   string `env:"TURSO_AUTH_TOKEN"`
	SeedEmpty    bool   `env:"ZYRR_GALLERY_SEED_EMPTY"`

	// HealthCheck probes a running instance's gRPC health and exits.
	HealthCheck bool `env:"-"`
}

const healthCheckTimeout = 5 * time.Second

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	fs.StringVar(&cfg.GRPCAddr, "grpc-addr", cfg.GRPCAddr, "gRPC health listen address (disabled when empty)")
	fs.BoolVar(&cfg.JSONOnly, "json-only", cfg.JSONOnly, "Serve the static JSON catalog and skip databases")
	fs.BoolVar(&cfg.SeedEmpty, "seed", cfg.SeedEmpty, "Seed an empty database from the static JSON catalog")
	fs.BoolVar(&cfg.HealthCheck, "healthcheck", false, "Check the gRPC health of a running instance and exit")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ServerConfig maps command configuration onto the server.
func (c Config) ServerConfig() server.Config {
	return server.Config{
		HTTPAddr: c.HTTPAddr,
		GRPCAddr: c.GRPCAddr,
		Source: source.Config{
			JSONOnly:     c.JSONOnly,
			JSONFallback: c.JSONFallback,
			Remote:       turso.Credentials{URL: c.TursoURL, AuthToken: c.TursoToken},
			LocalPath:    c.DBPath,
			JSONPath:     c.JSONPath,
		},
		SeedEmpty: c.SeedEmpty,
	}
}

// Run starts the gallery service, or probes a running one when
// cfg.HealthCheck is set.
func Run(ctx context.Context, cfg Config) error {
	if cfg.HealthCheck {
		return CheckHealth(ctx, cfg.GRPCAddr)
	}
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGallery, func(ctx context.Context) error {
		return server.Run(ctx, cfg.ServerConfig())
	})
}

// CheckHealth waits until the gallery at addr reports SERVING.
func CheckHealth(ctx context.Context, addr string) error {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return errors.New("grpc address is required for health checks")
	}
	conn, err := platformgrpc.DialHealth(addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	checkCtx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return platformgrpc.WaitForStatus(checkCtx, conn, server.HealthService, grpc_health_v1.HealthCheckResponse_SERVING, log.Printf)
}
