// Package otel wires OpenTelemetry tracing for gallery processes.
package otel

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/zyrr/gallery/internal/platform/config"
)

const (
	instrumentationRoot = "github.com/zyrr/gallery/"
	envPrefix           = "ZYRR_GALLERY_OTEL"
)

type otelEnv struct {
	Endpoint    string  `env:"ENDPOINT"`
	Enabled     string  `env:"ENABLED"`
	SampleRatio float64 `env:"SAMPLE_RATIO" envDefault:"1"`
}

// Setup initialises OpenTelemetry tracing for the given service.
//
// Tracing is opt-in: when ZYRR_GALLERY_OTEL_ENDPOINT is empty or
// ZYRR_GALLERY_OTEL_ENABLED is "false", Setup returns a no-op shutdown
// function and no global provider is registered.
//
// The returned shutdown function flushes pending spans and should be deferred
// by the caller.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	var cfg otelEnv
	if err := config.ParseEnvWithPrefix(&cfg, envPrefix); err != nil {
		return noop, fmt.Errorf("otel config: %w", err)
	}
	if strings.EqualFold(cfg.Enabled, "false") {
		return noop, nil
	}
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return noop, nil
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpointURL(cfg.Endpoint),
	)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler(cfg.SampleRatio)),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}

// Tracer returns a tracer named after a package path inside this module.
func Tracer(pkg string) trace.Tracer {
	return otel.Tracer(instrumentationRoot + strings.TrimPrefix(pkg, "/"))
}

func sampler(ratio float64) sdktrace.Sampler {
	if ratio >= 1 {
		return sdktrace.AlwaysSample()
	}
	if ratio <= 0 {
		return sdktrace.NeverSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
}
