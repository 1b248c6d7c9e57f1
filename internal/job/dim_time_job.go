// Package job runs the monthly time-dimension generation: resolve the target month, generate its
// hourly rows and commit them to the dimension table partition by partition.
package job

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/dimtime/internal/calendar"
	"github.com/tigerroll/dimtime/internal/period"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	"github.com/tigerroll/dimtime/pkg/batch/component/step/writer"
	port "github.com/tigerroll/dimtime/pkg/batch/core/application/port"
	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
	model "github.com/tigerroll/dimtime/pkg/batch/core/domain/model"
	"github.com/tigerroll/dimtime/pkg/batch/core/metrics"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/exception"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// JobName identifies the job in logs, metrics and traces.
const JobName = "dim_time"

// TableWriter commits partitioned records.
type TableWriter interface {
	Write(ctx context.Context, req writer.WriteRequest, records []writer.PartitionedRecord[Record]) (*writer.WriteResult, error)
}

// DimTimeJobParams defines the dependencies of DimTimeJob.
type DimTimeJobParams struct {
	fx.In
	Config    *config.Config
	Resolver  *period.Resolver
	Catalog   catalog.Catalog
	Writer    TableWriter
	Logger    logger.Logger
	Recorder  metrics.MetricRecorder
	Tracer    metrics.Tracer
	Listeners []port.JobExecutionListener `group:"job_listeners"`
}

// DimTimeJob generates one month of the time dimension per run.
type DimTimeJob struct {
	cfg       *config.Config
	resolver  *period.Resolver
	catalog   catalog.Catalog
	writer    TableWriter
	log       logger.Logger
	recorder  metrics.MetricRecorder
	tracer    metrics.Tracer
	listeners []port.JobExecutionListener
}

// NewDimTimeJob creates the job.
func NewDimTimeJob(p DimTimeJobParams) *DimTimeJob {
	return &DimTimeJob{
		cfg:       p.Config,
		resolver:  p.Resolver,
		catalog:   p.Catalog,
		writer:    p.Writer,
		log:       p.Logger,
		recorder:  p.Recorder,
		tracer:    p.Tracer,
		listeners: p.Listeners,
	}
}

// Run executes one run for the JSON trigger payload. The returned execution is always non-nil and
// carries the outcome; the error is the run's failure, typed by its exception kind.
func (j *DimTimeJob) Run(ctx context.Context, payload []byte) (*model.JobExecution, error) {
	target := j.cfg.DimTime.Target
	je := model.NewJobExecution(JobName, target.QualifiedName())
	for _, l := range j.listeners {
		l.BeforeJob(ctx, je)
	}
	ctx, endSpan := j.tracer.StartJobSpan(ctx, je)
	defer endSpan()

	err := j.execute(ctx, je, payload)
	if err != nil {
		j.tracer.RecordError(ctx, "job", err)
		je.MarkAsFailed(err)
	} else {
		je.MarkAsCompleted()
	}
	for _, l := range j.listeners {
		l.AfterJob(ctx, je)
	}
	return je, err
}

func (j *DimTimeJob) execute(ctx context.Context, je *model.JobExecution, payload []byte) error {
	target := j.cfg.DimTime.Target

	tp, err := j.resolve(ctx, payload)
	if err != nil {
		return err
	}
	je.Period = tp.String()

	rows, err := j.generate(ctx, tp)
	if err != nil {
		return err
	}
	je.RowsGenerated = len(rows)

	table, err := j.catalog.GetTable(ctx, target.Database, target.Table)
	if err != nil {
		return exception.NewCatalogLookupFailure("catalog", fmt.Sprintf("failed to look up %s", target.QualifiedName()), err)
	}

	result, err := j.write(ctx, table, rows)
	if err != nil {
		return err
	}
	je.PartitionsWritten = len(result.Partitions)
	return nil
}

func (j *DimTimeJob) resolve(ctx context.Context, payload []byte) (period.TargetPeriod, error) {
	_, end := j.tracer.StartSpan(ctx, "dimtime.resolve", nil)
	defer end()

	event, err := period.ParseEvent(payload)
	if err != nil {
		return period.TargetPeriod{}, err
	}
	tp, err := j.resolver.Resolve(event)
	if err != nil {
		return period.TargetPeriod{}, err
	}
	j.log.Infof("Target period resolved to %s (data_ref '%s').", tp, event.DataRef)
	return tp, nil
}

func (j *DimTimeJob) generate(ctx context.Context, tp period.TargetPeriod) ([]calendar.Row, error) {
	ctx, end := j.tracer.StartSpan(ctx, "dimtime.generate", map[string]interface{}{"period": tp.String()})
	defer end()

	rows, err := calendar.Generate(tp.Year, tp.Month)
	if err != nil {
		return nil, err
	}
	j.recorder.RecordRowsGenerated(ctx, JobName, len(rows))
	return rows, nil
}

func (j *DimTimeJob) write(ctx context.Context, table *catalog.Table, rows []calendar.Row) (*writer.WriteResult, error) {
	wc := j.cfg.DimTime.Writer
	name := table.QualifiedName()
	ctx, end := j.tracer.StartSpan(ctx, "dimtime.write", map[string]interface{}{"table": name, "rows": len(rows)})
	defer end()

	req := writer.WriteRequest{
		Database:           table.Database,
		Table:              table.Name,
		Location:           table.Location,
		PartitionColumns:   wc.PartitionColumns,
		Mode:               wc.Mode,
		TableColumns:       table.Columns,
		TablePartitionKeys: table.PartitionKeys,
	}
	last := rows[len(rows)-1]
	j.log.Infof("Writing %d rows (%d..%d) in %d daily partitions to %s at %s.", len(rows), rows[0].SequenceID, last.SequenceID, last.Day, name, table.Location)

	start := time.Now()
	result, err := j.writer.Write(ctx, req, toRecords(rows))
	j.recorder.RecordDuration(ctx, "write", time.Since(start), map[string]string{"table": name})
	if err != nil {
		return nil, err
	}
	j.recorder.RecordPartitionsWritten(ctx, name, len(result.Partitions))
	j.tracer.RecordEvent(ctx, "partitions_committed", map[string]interface{}{"partitions": len(result.Partitions)})
	return result, nil
}
