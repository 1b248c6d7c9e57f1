// Package port defines the extension points a job calls into.
package port

import (
	"context"

	model "github.com/tigerroll/dimtime/pkg/batch/core/domain/model"
)

// JobExecutionListener is an interface for handling job execution events.
type JobExecutionListener interface {
	// BeforeJob is called just before a job execution starts.
	BeforeJob(ctx context.Context, jobExecution *model.JobExecution)
	// AfterJob is called after a job execution completes (regardless of success or failure).
	AfterJob(ctx context.Context, jobExecution *model.JobExecution)
}

// JobExecutionListenerGroup is the fx value group collecting the listeners.
const JobExecutionListenerGroup = "job_listeners"
