package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	oteltrace "go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const serviceName = "copilot-router"

var tracer oteltrace.Tracer = otel.Tracer(serviceName)

// Config holds tracing configuration.
type Config struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// Initialize sets up OTLP trace export. When disabled the Start* helpers
// still work against a no-op tracer.
func Initialize(cfg Config, logger *zap.Logger) (func(context.Context) error, error) {
	if !cfg.Enabled {
		logger.Info("Tracing disabled")
		return func(context.Context) error { return nil }, nil
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	exporter, err := otlptracegrpc.New(
		context.Background(),
		otlptracegrpc.WithEndpoint(cfg.Endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP exporter: %w", err)
	}

	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	tracer = otel.Tracer(serviceName)

	logger.Info("Tracing initialized", zap.String("endpoint", cfg.Endpoint))
	return tp.Shutdown, nil
}

// StartSpan creates a new span with the given name.
func StartSpan(ctx context.Context, spanName string) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, spanName)
}

// StartRouteSpan opens the top-level span for one routing request.
func StartRouteSpan(ctx context.Context, query string) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, "supervisor.route",
		oteltrace.WithAttributes(
			attribute.Int("query.length", len(query)),
		),
	)
}

// StartAgentSpan opens a span covering one capability agent invocation.
func StartAgentSpan(ctx context.Context, agent string) (context.Context, oteltrace.Span) {
	return tracer.Start(ctx, "agent.invoke",
		oteltrace.WithAttributes(
			attribute.String("agent.name", agent),
		),
	)
}
