// Package otel configures OpenTelemetry tracing for fairscore processes.
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

	"github.com/louisbranch/fairscore/internal/platform/config"
)

const (
	// EnvEndpoint names the OTLP/HTTP collector URL.
	EnvEndpoint = "FAIRSCORE_OTEL_ENDPOINT"
	// EnvEnabled disables tracing when set to false.
	EnvEnabled = "FAIRSCORE_OTEL_ENABLED"
	// EnvSampleRatio sets the fraction of root traces recorded.
	EnvSampleRatio = "FAIRSCORE_OTEL_SAMPLE_RATIO"
)

// Config controls trace export.
type Config struct {
	Endpoint    string  `env:"FAIRSCORE_OTEL_ENDPOINT"`
	Enabled     bool    `env:"FAIRSCORE_OTEL_ENABLED"      envDefault:"true"`
	SampleRatio float64 `env:"FAIRSCORE_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// Active reports whether spans are exported.
func (c Config) Active() bool {
	return c.Enabled && strings.TrimSpace(c.Endpoint) != ""
}

// LoadConfig reads the tracing configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.SampleRatio < 0 || cfg.SampleRatio > 1 {
		return Config{}, fmt.Errorf("%s must be within [0,1], got %v", EnvSampleRatio, cfg.SampleRatio)
	}
	return cfg, nil
}

// Setup installs the global tracer provider for serviceName from the
// environment. Inactive configurations leave the no-op provider in place and
// return a no-op shutdown.
func Setup(ctx context.Context, serviceName string) (shutdown func(context.Context) error, err error) {
	cfg, err := LoadConfig()
	if err != nil {
		return noopShutdown, err
	}
	return Install(ctx, serviceName, cfg)
}

// Install installs the global tracer provider described by cfg.
func Install(ctx context.Context, serviceName string, cfg Config) (shutdown func(context.Context) error, err error) {
	if !cfg.Active() {
		return noopShutdown, nil
	}

	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpointURL(strings.TrimSpace(cfg.Endpoint)))
	if err != nil {
		return noopShutdown, fmt.Errorf("otlp exporter: %w", err)
	}
	res, err := resource.New(ctx, resource.WithAttributes(semconv.ServiceName(serviceName)))
	if err != nil {
		return noopShutdown, fmt.Errorf("otel resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})
	return tp.Shutdown, nil
}

func noopShutdown(context.Context) error { return nil }
