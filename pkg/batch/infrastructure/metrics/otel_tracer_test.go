package metrics_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	model "github.com/tigerroll/dimtime/pkg/batch/core/domain/model"
	"github.com/tigerroll/dimtime/pkg/batch/infrastructure/metrics"
)

func TestOpenTelemetryTracerSpans(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tracer := metrics.NewOpenTelemetryTracer(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))

	je := model.NewJobExecution("dim_time", "db.t")
	ctx, endJob := tracer.StartJobSpan(context.Background(), je)
	stepCtx, endStep := tracer.StartSpan(ctx, "dimtime.write", map[string]interface{}{"table": "db.t", "rows": 720})
	tracer.RecordEvent(stepCtx, "partition_committed", map[string]interface{}{"day": 1})
	tracer.RecordError(stepCtx, "writer", errors.New("upload failed"))
	endStep()
	je.MarkAsFailed(errors.New("upload failed"))
	endJob()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	step, run := spans[0], spans[1]

	assert.Equal(t, "dimtime.write", step.Name())
	assert.Equal(t, run.SpanContext().SpanID(), step.Parent().SpanID())
	assert.Equal(t, codes.Error, step.Status().Code)
	require.Len(t, step.Events(), 2)
	assert.Equal(t, "partition_committed", step.Events()[0].Name)

	assert.Equal(t, "dimtime.run", run.Name())
	assert.Equal(t, codes.Error, run.Status().Code)
	attrs := map[string]string{}
	for _, kv := range run.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "FAILED", attrs["job.status"])
	assert.Equal(t, "db.t", attrs["job.target"])
}
