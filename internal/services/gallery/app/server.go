// Package server wires the gallery runtime and its HTTP and gRPC lifecycles.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/zyrr/gallery/internal/platform/timeouts"
	galleryhttp "github.com/zyrr/gallery/internal/services/gallery/api/http"
	"github.com/zyrr/gallery/internal/services/gallery/cache"
	"github.com/zyrr/gallery/internal/services/gallery/source"
	"github.com/zyrr/gallery/internal/services/gallery/status"
)

// HealthService is the gRPC health service name reported alongside "".
const HealthService = "zyrr.gallery.v1.PosterService"

// Config configures a gallery server.
type Config struct {
	// HTTPAddr is the HTTP listen address.
	HTTPAddr string
	// GRPCAddr enables the gRPC health service when set.
	GRPCAddr string
	// Source selects the backing store.
	Source source.Config
	// Openers override store constructors; zero values use the real stores.
	Openers source.Openers
	// SeedEmpty fills an empty relational store from the static catalog.
	SeedEmpty bool
	// HealthRefresh overrides the gRPC health refresh interval.
	HealthRefresh time.Duration
}

// Server hosts the gallery HTTP API, optional gRPC health, and the store
// lifecycle.
type Server struct {
	httpListener net.Listener
	httpServer   *http.Server

	grpcListener net.Listener
	grpcServer   *grpc.Server
	health       *health.Server

	selector *source.Selector
	prober   *status.Prober
	refresh  time.Duration

	closeOnce sync.Once
}

// New builds a server, selects the store, and opens its listeners.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	httpAddr := strings.TrimSpace(cfg.HTTPAddr)
	if httpAddr == "" {
		return nil, errors.New("http address is required")
	}

	selector := source.NewSelector(cfg.Source, cfg.Openers)
	catalog := cache.New(selector)
	prober := status.NewProber(selector, nil)

	if src, err := selector.Source(ctx); err != nil {
		log.Printf("poster store unavailable at startup: %v", err)
	} else if cfg.SeedEmpty && src.Kind.Relational() {
		if _, err := SeedEmpty(ctx, src.Store, cfg.Source.JSONPath); err != nil {
			log.Printf("seed poster store: %v", err)
		}
	}

	handler, err := galleryhttp.NewHandler(galleryhttp.Config{
		Catalog:  catalog,
		Sources:  selector,
		Status:   prober,
		JSONOnly: cfg.Source.JSONOnly,
	})
	if err != nil {
		_ = selector.Close()
		return nil, fmt.Errorf("build handler: %w", err)
	}

	httpListener, err := net.Listen("tcp", httpAddr)
	if err != nil {
		_ = selector.Close()
		return nil, fmt.Errorf("listen on %s: %w", httpAddr, err)
	}

	s := &Server{
		httpListener: httpListener,
		httpServer: &http.Server{
			Handler:           galleryhttp.NewRouter(handler),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		selector: selector,
		prober:   prober,
		refresh:  cfg.HealthRefresh,
	}
	if s.refresh <= 0 {
		s.refresh = timeouts.HealthRefresh
	}

	if grpcAddr := strings.TrimSpace(cfg.GRPCAddr); grpcAddr != "" {
		grpcListener, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("listen on %s: %w", grpcAddr, err)
		}
		s.grpcListener = grpcListener
		s.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
		s.health = health.NewServer()
		grpc_health_v1.RegisterHealthServer(s.grpcServer, s.health)
		s.refreshHealth(ctx)
	}
	return s, nil
}

// HTTPAddr returns the HTTP listener address.
func (s *Server) HTTPAddr() string {
	if s == nil || s.httpListener == nil {
		return ""
	}
	return s.httpListener.Addr().String()
}

// GRPCAddr returns the gRPC listener address, or "" when disabled.
func (s *Server) GRPCAddr() string {
	if s == nil || s.grpcListener == nil {
		return ""
	}
	return s.grpcListener.Addr().String()
}

// Run creates and serves a gallery server until context cancellation.
func Run(ctx context.Context, cfg Config) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve runs the HTTP and gRPC servers until ctx is cancelled or one fails.
// On cancellation HTTP is drained within the shutdown timeout.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	serveErr := make(chan error, 2)
	log.Printf("gallery http listening at %v", s.httpListener.Addr())
	go func() {
		serveErr <- s.httpServer.Serve(s.httpListener)
	}()

	refreshCtx, stopRefresh := context.WithCancel(ctx)
	defer stopRefresh()
	if s.grpcServer != nil {
		log.Printf("gallery grpc health listening at %v", s.grpcListener.Addr())
		go func() {
			serveErr <- s.grpcServer.Serve(s.grpcListener)
		}()
		go s.healthLoop(refreshCtx)
	}

	select {
	case <-ctx.Done():
		return s.shutdown()
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	}
}

func (s *Server) shutdown() error {
	if s.health != nil {
		s.health.Shutdown()
	}
	if s.grpcServer != nil {
		s.grpcServer.GracefulStop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	return nil
}

// Close releases listeners and the selected store.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.health != nil {
			s.health.Shutdown()
		}
		if s.grpcServer != nil {
			s.grpcServer.Stop()
		}
		if s.grpcListener != nil {
			_ = s.grpcListener.Close()
		}
		if s.httpServer != nil {
			_ = s.httpServer.Close()
		}
		if s.httpListener != nil {
			_ = s.httpListener.Close()
		}
		if s.selector != nil {
			if err := s.selector.Close(); err != nil {
				log.Printf("close poster store: %v", err)
			}
		}
	})
}

func (s *Server) healthLoop(ctx context.Context) {
	ticker := time.NewTicker(s.refresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshHealth(ctx)
		}
	}
}

// refreshHealth mirrors the status report into the gRPC health service.
func (s *Server) refreshHealth(ctx context.Context) {
	if s.health == nil {
		return
	}
	serving := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	report, err := s.prober.Check(ctx)
	if err != nil {
		log.Printf("health refresh: %v", err)
	} else if report.Connected() {
		serving = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", serving)
	s.health.SetServingStatus(HealthService, serving)
}
