package test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	model "github.com/tigerroll/dimtime/pkg/batch/core/domain/model"
	"github.com/tigerroll/dimtime/pkg/batch/core/metrics"
)

// MockMetricRecorder is a mock implementation of metrics.MetricRecorder.
type MockMetricRecorder struct {
	mock.Mock
}

func (m *MockMetricRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	m.Called(ctx, execution)
}

func (m *MockMetricRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	m.Called(ctx, execution)
}

func (m *MockMetricRecorder) RecordRowsGenerated(ctx context.Context, jobName string, count int) {
	m.Called(ctx, jobName, count)
}

func (m *MockMetricRecorder) RecordPartitionsWritten(ctx context.Context, table string, count int) {
	m.Called(ctx, table, count)
}

func (m *MockMetricRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	m.Called(ctx, name, duration, tags)
}

func (m *MockMetricRecorder) Flush(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

var _ metrics.MetricRecorder = (*MockMetricRecorder)(nil)
