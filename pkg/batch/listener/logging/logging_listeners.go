// Package logging provides a job listener that logs the start and outcome of each run.
package logging

import (
	"context"

	port "github.com/tigerroll/dimtime/pkg/batch/core/application/port"
	model "github.com/tigerroll/dimtime/pkg/batch/core/domain/model"
	logger "github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

type LoggingJobListener struct {
	log logger.Logger
}

func NewLoggingJobListener(log logger.Logger) *LoggingJobListener {
	return &LoggingJobListener{log: log}
}

func (l *LoggingJobListener) BeforeJob(ctx context.Context, jobExecution *model.JobExecution) {
	l.log.Infof("JobExecutionListener: BeforeJob - JobName: %s, ID: %s, Target: %s", jobExecution.JobName, jobExecution.ID, jobExecution.Target)
}

func (l *LoggingJobListener) AfterJob(ctx context.Context, jobExecution *model.JobExecution) {
	if jobExecution.Status == model.BatchStatusFailed {
		l.log.Errorf("JobExecutionListener: AfterJob - JobName: %s, Status: %s, Period: %s, Kind: %s, Error: %v",
			jobExecution.JobName, jobExecution.Status, jobExecution.Period, jobExecution.FailureKind(), jobExecution.Failure)
		return
	}
	l.log.Infof("JobExecutionListener: AfterJob - JobName: %s, Status: %s, Period: %s, Rows: %d, Partitions: %d, Duration: %s",
		jobExecution.JobName, jobExecution.Status, jobExecution.Period, jobExecution.RowsGenerated, jobExecution.PartitionsWritten, jobExecution.Duration())
}

var _ port.JobExecutionListener = (*LoggingJobListener)(nil)
