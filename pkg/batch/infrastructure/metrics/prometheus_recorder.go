package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/push"

	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
	model "github.com/tigerroll/dimtime/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/dimtime/pkg/batch/core/metrics"
	logger "github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// PrometheusRecorder is a Prometheus implementation of the metrics.MetricRecorder interface.
// A batch run is short-lived, so metrics are pushed to a Pushgateway on Flush instead of being scraped.
type PrometheusRecorder struct {
	registry *prometheus.Registry
	pusher   *push.Pusher

	rowsGenerated      *prometheus.CounterVec
	partitionsWritten  *prometheus.CounterVec
	runsTotal          *prometheus.CounterVec
	jobDurationSeconds *prometheus.HistogramVec
	writeDuration      *prometheus.HistogramVec
	lastSuccess        *prometheus.GaugeVec
}

// NewPrometheusRecorder creates a new instance of PrometheusRecorder.
// Flush pushes to cfg.DimTime.Metrics.PushGatewayURL when it is set.
func NewPrometheusRecorder(cfg *config.Config) *PrometheusRecorder {
	registry := prometheus.NewRegistry()

	// Register Go standard metrics and process/OS metrics.
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &PrometheusRecorder{
		registry: registry,
		rowsGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dimtime_rows_generated_total",
			Help: "Total number of calendar rows generated.",
		}, []string{"job_name"}),
		partitionsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dimtime_partitions_written_total",
			Help: "Total number of table partitions committed.",
		}, []string{"table"}),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dimtime_runs_total",
			Help: "Total number of runs by status and failure kind.",
		}, []string{"job_name", "status", "kind"}),
		jobDurationSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dimtime_job_duration_seconds",
			Help:    "Duration of runs.",
			Buckets: prometheus.DefBuckets,
		}, []string{"job_name", "status"}),
		writeDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "dimtime_write_duration_seconds",
			Help:    "Duration of partitioned table writes.",
			Buckets: prometheus.DefBuckets,
		}, []string{"table"}),
		lastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dimtime_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}, []string{"job_name"}),
	}

	registry.MustRegister(r.rowsGenerated)
	registry.MustRegister(r.partitionsWritten)
	registry.MustRegister(r.runsTotal)
	registry.MustRegister(r.jobDurationSeconds)
	registry.MustRegister(r.writeDuration)
	registry.MustRegister(r.lastSuccess)

	if url := cfg.DimTime.Metrics.PushGatewayURL; url != "" {
		r.pusher = push.New(url, cfg.DimTime.Metrics.JobName).Gatherer(registry)
	}
	return r
}

// GetRegistry returns the Prometheus registry.
func (r *PrometheusRecorder) GetRegistry() *prometheus.Registry {
	return r.registry
}

// RecordJobStart records the start of a JobExecution.
func (r *PrometheusRecorder) RecordJobStart(ctx context.Context, execution *model.JobExecution) {
	logger.Debugf("Metrics: Job '%s' started.", execution.JobName)
}

// RecordJobEnd records the end of a JobExecution.
func (r *PrometheusRecorder) RecordJobEnd(ctx context.Context, execution *model.JobExecution) {
	if execution.EndTime == nil {
		return
	}
	status := execution.Status.String()
	kind := execution.FailureKind()
	if kind == "" {
		kind = "none"
	}
	r.runsTotal.WithLabelValues(execution.JobName, status, kind).Inc()
	r.jobDurationSeconds.WithLabelValues(execution.JobName, status).Observe(execution.Duration().Seconds())
	if execution.Status == model.BatchStatusCompleted {
		r.lastSuccess.WithLabelValues(execution.JobName).Set(float64(execution.EndTime.Unix()))
	}
	logger.Debugf("Metrics: Job '%s' ended with %s. Duration: %.3fs", execution.JobName, status, execution.Duration().Seconds())
}

// RecordRowsGenerated records generated rows.
func (r *PrometheusRecorder) RecordRowsGenerated(ctx context.Context, jobName string, count int) {
	r.rowsGenerated.WithLabelValues(jobName).Add(float64(count))
}

// RecordPartitionsWritten records committed partitions.
func (r *PrometheusRecorder) RecordPartitionsWritten(ctx context.Context, table string, count int) {
	r.partitionsWritten.WithLabelValues(table).Add(float64(count))
}

// RecordDuration records the duration of a "write"; other operations are ignored.
func (r *PrometheusRecorder) RecordDuration(ctx context.Context, name string, duration time.Duration, tags map[string]string) {
	if name != "write" {
		return
	}
	r.writeDuration.WithLabelValues(tags["table"]).Observe(duration.Seconds())
}

// Flush pushes the registry to the Pushgateway. Without a configured gateway it does nothing.
func (r *PrometheusRecorder) Flush(ctx context.Context) error {
	if r.pusher == nil {
		return nil
	}
	if err := r.pusher.PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics: %w", err)
	}
	logger.Debugf("Metrics: pushed to Pushgateway.")
	return nil
}

var _ metrics.MetricRecorder = (*PrometheusRecorder)(nil)
