// Package metrics defines the metric and tracing abstractions used by dimtime jobs.
package metrics

import (
	"context"
	"time"

	model "github.com/tigerroll/dimtime/pkg/batch/core/domain/model"
)

// MetricRecorder is an abstract interface for recording metrics of a run.
// It facilitates integration with different metrics backends (e.g., Prometheus).
type MetricRecorder interface {
	// RecordJobStart records the start of a JobExecution.
	RecordJobStart(ctx context.Context, execution *model.JobExecution)

	// RecordJobEnd records the end of a JobExecution with its status and failure kind.
	RecordJobEnd(ctx context.Context, execution *model.JobExecution)

	// RecordRowsGenerated records the number of calendar rows generated.
	RecordRowsGenerated(ctx context.Context, jobName string, count int)

	// RecordPartitionsWritten records the number of partitions committed to table.
	RecordPartitionsWritten(ctx context.Context, table string, count int)

	// RecordDuration records the execution time of a specific operation.
	//
	// name: The operation (e.g., "write").
	// tags: Labels such as {"table": "db.table"}.
	RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string)

	// Flush delivers the recorded metrics to the backend, if it needs to be told.
	Flush(ctx context.Context) error
}
