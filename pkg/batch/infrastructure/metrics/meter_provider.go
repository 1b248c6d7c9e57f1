package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"

	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
	logger "github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// newMetricExporter creates the OTLP metric exporter for the configured protocol.
func newMetricExporter(ctx context.Context, mc config.MetricsConfig) (sdkmetric.Exporter, error) {
	switch mc.OTLPProtocol {
	case config.OTLPProtocolHTTP:
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(mc.OTLPEndpoint)}
		if mc.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		return otlpmetrichttp.New(ctx, opts...)
	default:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(mc.OTLPEndpoint)}
		if mc.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}
}

// NewMeterProvider builds the SDK meter provider. Without cfg.DimTime.Metrics.OTLPEndpoint it has no
// reader and measurements are dropped. The provider is shut down, exporting what is left, on stop.
func NewMeterProvider(lc fx.Lifecycle, cfg *config.Config) (*sdkmetric.MeterProvider, error) {
	mc := cfg.DimTime.Metrics
	opts := []sdkmetric.Option{
		sdkmetric.WithResource(serviceResource(cfg.DimTime.Tracing.ServiceName)),
	}
	if mc.OTLPEndpoint != "" {
		exporter, err := newMetricExporter(context.Background(), mc)
		if err != nil {
			return nil, fmt.Errorf("failed to create OTLP metric exporter: %w", err)
		}
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter)))
		logger.Infof("Metrics: exporting to %s over %s.", mc.OTLPEndpoint, mc.OTLPProtocol)
	}

	mp := sdkmetric.NewMeterProvider(opts...)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mp.Shutdown(ctx)
		},
	})
	return mp, nil
}
