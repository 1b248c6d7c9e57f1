package metrics

import (
	"context"
	"time"

	"github.com/hashicorp/go-multierror"

	model "github.com/tigerroll/dimtime/pkg/batch/core/domain/model"
)

// CompositeRecorder forwards every measurement to each of its recorders in order.
type CompositeRecorder struct {
	recorders []MetricRecorder
}

// NewCompositeRecorder creates a recorder fanning out to recorders.
func NewCompositeRecorder(recorders ...MetricRecorder) *CompositeRecorder {
	return &CompositeRecorder{recorders: recorders}
}

func (c *CompositeRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	for _, r := range c.recorders {
		r.RecordJobStart(ctx, execution)
	}
}

func (c *CompositeRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	for _, r := range c.recorders {
		r.RecordJobEnd(ctx, execution)
	}
}

func (c *CompositeRecorder) RecordRowsGenerated(ctx context.Context, jobName string, count int) {
	for _, r := range c.recorders {
		r.RecordRowsGenerated(ctx, jobName, count)
	}
}

func (c *CompositeRecorder) RecordPartitionsWritten(ctx context.Context, table string, count int) {
	for _, r := range c.recorders {
		r.RecordPartitionsWritten(ctx, table, count)
	}
}

func (c *CompositeRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	for _, r := range c.recorders {
		r.RecordDuration(ctx, name, duration, tags)
	}
}

// Flush flushes every recorder, even after a failure, and returns the combined errors.
func (c *CompositeRecorder) Flush(ctx context.Context) error {
	var result *multierror.Error
	for _, r := range c.recorders {
		if err := r.Flush(ctx); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

var _ MetricRecorder = (*CompositeRecorder)(nil)
