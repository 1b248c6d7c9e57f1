package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	model "github.com/tigerroll/dimtime/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/dimtime/pkg/batch/core/metrics"
	logger "github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

const meterName = "github.com/tigerroll/dimtime"

type forceFlusher interface {
	ForceFlush(ctx context.Context) error
}

// OpenTelemetryRecorder records run metrics as OpenTelemetry instruments.
// Instrument names follow the Prometheus recorder with dots instead of underscores.
type OpenTelemetryRecorder struct {
	provider metric.MeterProvider

	rowsGenerated     metric.Int64Counter
	partitionsWritten metric.Int64Counter
	runs              metric.Int64Counter
	jobDuration       metric.Float64Histogram
	writeDuration     metric.Float64Histogram
}

// NewOpenTelemetryRecorder creates the instruments on a meter of provider.
func NewOpenTelemetryRecorder(provider metric.MeterProvider) (*OpenTelemetryRecorder, error) {
	meter := provider.Meter(meterName)
	r := &OpenTelemetryRecorder{provider: provider}

	var err error
	if r.rowsGenerated, err = meter.Int64Counter("dimtime.rows_generated",
		metric.WithDescription("Calendar rows generated."), metric.WithUnit("{row}")); err != nil {
		return nil, err
	}
	if r.partitionsWritten, err = meter.Int64Counter("dimtime.partitions_written",
		metric.WithDescription("Table partitions committed."), metric.WithUnit("{partition}")); err != nil {
		return nil, err
	}
	if r.runs, err = meter.Int64Counter("dimtime.runs",
		metric.WithDescription("Runs by status and failure kind."), metric.WithUnit("{run}")); err != nil {
		return nil, err
	}
	if r.jobDuration, err = meter.Float64Histogram("dimtime.job.duration",
		metric.WithDescription("Duration of runs."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if r.writeDuration, err = meter.Float64Histogram("dimtime.write.duration",
		metric.WithDescription("Duration of partitioned table writes."), metric.WithUnit("s")); err != nil {
		return nil, err
	}
	return r, nil
}

// RecordJobStart records the start of a JobExecution.
func (r *OpenTelemetryRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {}

// RecordJobEnd records the end of a JobExecution.
func (r *OpenTelemetryRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	kind := execution.FailureKind()
	if kind == "" {
		kind = "none"
	}
	jobName := attribute.String("job_name", execution.JobName)
	status := attribute.String("status", execution.Status.String())
	r.runs.Add(ctx, 1, metric.WithAttributes(jobName, status, attribute.String("kind", kind)))
	r.jobDuration.Record(ctx, execution.Duration().Seconds(), metric.WithAttributes(jobName, status))
}

// RecordRowsGenerated records generated rows.
func (r *OpenTelemetryRecorder) RecordRowsGenerated(ctx context.Context, jobName string, count int) {
	r.rowsGenerated.Add(ctx, int64(count), metric.WithAttributes(attribute.String("job_name", jobName)))
}

// RecordPartitionsWritten records committed partitions.
func (r *OpenTelemetryRecorder) RecordPartitionsWritten(ctx context.Context, table string, count int) {
	r.partitionsWritten.Add(ctx, int64(count), metric.WithAttributes(attribute.String("table", table)))
}

// RecordDuration records the duration of a "write"; other operations are ignored.
func (r *OpenTelemetryRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	if name != "write" {
		return
	}
	r.writeDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attribute.String("table", tags["table"])))
}

// Flush forces the provider's readers to export, when the provider supports it.
func (r *OpenTelemetryRecorder) Flush(ctx context.Context) error {
	f, ok := r.provider.(forceFlusher)
	if !ok {
		return nil
	}
	if err := f.ForceFlush(ctx); err != nil {
		return err
	}
	logger.Debugf("Metrics: OpenTelemetry readers flushed.")
	return nil
}

var _ metrics.MetricRecorder = (*OpenTelemetryRecorder)(nil)
