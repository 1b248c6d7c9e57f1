// Package metrics provides a job listener that records run metrics and flushes them when the run ends.
package metrics

import (
	"context"

	port "github.com/tigerroll/dimtime/pkg/batch/core/application/port"
	model "github.com/tigerroll/dimtime/pkg/batch/core/domain/model"
	"github.com/tigerroll/dimtime/pkg/batch/core/metrics"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// MetricsJobListener forwards job events to a MetricRecorder.
type MetricsJobListener struct {
	recorder metrics.MetricRecorder
}

// NewMetricsJobListener creates a new MetricsJobListener.
func NewMetricsJobListener(recorder metrics.MetricRecorder) *MetricsJobListener {
	return &MetricsJobListener{recorder: recorder}
}

// BeforeJob records the start of the run.
func (l *MetricsJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.recorder.RecordJobStart(ctx, jobExecution)
}

// AfterJob records the outcome and flushes the recorder. A flush failure does not fail the run.
func (l *MetricsJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.recorder.RecordJobEnd(ctx, jobExecution)
	if err := l.recorder.Flush(ctx); err != nil {
		logger.Warnf("Failed to flush metrics for job '%s': %v", jobExecution.JobName, err)
	}
}

var _ port.JobExecutionListener = (*MetricsJobListener)(nil)
