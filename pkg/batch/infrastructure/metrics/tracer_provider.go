package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"

	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
	logger "github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

func serviceResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

// newSpanExporter creates the OTLP span exporter for the configured protocol.
func newSpanExporter(ctx context.Context, tc config.TracingConfig) (sdktrace.SpanExporter, error) {
	switch tc.Protocol {
	case config.OTLPProtocolHTTP:
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(tc.OTLPEndpoint)}
		if tc.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		return otlptracehttp.New(ctx, opts...)
	default:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(tc.OTLPEndpoint)}
		if tc.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}
}

// NewTracerProvider builds the SDK tracer provider. Spans are exported over OTLP when
// cfg.DimTime.Tracing.OTLPEndpoint is set and dropped otherwise. The provider is flushed and shut
// down when the application stops.
func NewTracerProvider(lc fx.Lifecycle, cfg *config.Config) (trace.TracerProvider, error) {
	tc := cfg.DimTime.Tracing
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(serviceResource(tc.ServiceName)),
	}
	if tc.OTLPEndpoint != "" {
		exporter, err := newSpanExporter(context.Background(), tc)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
		}
		opts = append(opts, sdktrace.WithBatcher(exporter))
		logger.Infof("Tracing: exporting spans to %s over %s.", tc.OTLPEndpoint, tc.Protocol)
	}

	tp := sdktrace.NewTracerProvider(opts...)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}
