// Package model defines the execution record of a dimtime run.
package model

import (
	"time"

	"github.com/google/uuid"

	"github.com/tigerroll/dimtime/pkg/batch/support/util/exception"
)

// JobStatus is the lifecycle state of a run.
type JobStatus string

const (
	BatchStatusStarted   JobStatus = "STARTED"
	BatchStatusCompleted JobStatus = "COMPLETED"
	BatchStatusFailed    JobStatus = "FAILED"
)

// String returns the string representation of the JobStatus.
func (s JobStatus) String() string {
	return string(s)
}

// IsFinished reports whether the status is terminal.
func (s JobStatus) IsFinished() bool {
	return s == BatchStatusCompleted || s == BatchStatusFailed
}

// JobExecution records one run of a job.
type JobExecution struct {
	ID      string
	JobName string
	// Target is the "database.table" written by the run.
	Target string
	// Period is the resolved target month ("YYYYMM"), empty until resolved.
	Period    string
	Status    JobStatus
	StartTime time.Time
	EndTime   *time.Time

	RowsGenerated     int
	PartitionsWritten int

	// Failure is the error that failed the run.
	Failure error
}

// NewJobExecution creates a started execution.
func NewJobExecution(jobName, target string) *JobExecution {
	return &JobExecution{
		ID:        uuid.NewString(),
		JobName:   jobName,
		Target:    target,
		Status:    BatchStatusStarted,
		StartTime: time.Now(),
	}
}

// MarkAsCompleted ends the execution successfully.
func (je *JobExecution) MarkAsCompleted() {
	je.Status = BatchStatusCompleted
	now := time.Now()
	je.EndTime = &now
}

// MarkAsFailed ends the execution with err.
func (je *JobExecution) MarkAsFailed(err error) {
	je.Status = BatchStatusFailed
	je.Failure = err
	now := time.Now()
	je.EndTime = &now
}

// Duration returns the elapsed time of a finished execution, or the time since start.
func (je *JobExecution) Duration() time.Duration {
	if je.EndTime == nil {
		return time.Since(je.StartTime)
	}
	return je.EndTime.Sub(je.StartTime)
}

// FailureKind returns the error kind of the failure ("InvalidPeriodFormat", ...), or "" on success.
func (je *JobExecution) FailureKind() string {
	return exception.KindOf(je.Failure)
}
