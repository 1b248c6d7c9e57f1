package metrics

import (
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"

	metrics "github.com/tigerroll/dimtime/pkg/batch/core/metrics"
)

// NewMetricRecorder combines the Prometheus and OpenTelemetry recorders.
func NewMetricRecorder(prom *PrometheusRecorder, otel *OpenTelemetryRecorder) metrics.MetricRecorder {
	return metrics.NewCompositeRecorder(prom, otel)
}

func newOpenTelemetryRecorder(mp *sdkmetric.MeterProvider) (*OpenTelemetryRecorder, error) {
	return NewOpenTelemetryRecorder(mp)
}

// Module is an Fx module that provides the metric recorders and the OpenTelemetryTracer.
var Module = fx.Options(
	fx.Provide(NewPrometheusRecorder),
	fx.Provide(NewMeterProvider),
	fx.Provide(newOpenTelemetryRecorder),
	fx.Provide(NewMetricRecorder),
	fx.Provide(NewTracerProvider),
	// Provide OpenTelemetryTracer as a core.Tracer interface.
	fx.Provide(fx.Annotate(
		NewOpenTelemetryTracer,
		fx.As(new(metrics.Tracer)),
	)),
)
