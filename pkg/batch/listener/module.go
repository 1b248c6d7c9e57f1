// Package listener wires the job execution listeners.
package listener

import (
	"go.uber.org/fx"

	port "github.com/tigerroll/dimtime/pkg/batch/core/application/port"
	"github.com/tigerroll/dimtime/pkg/batch/listener/logging"
	"github.com/tigerroll/dimtime/pkg/batch/listener/metrics"
)

// Module provides the logging and metrics listeners into the job listener group.
var Module = fx.Options(
	fx.Provide(fx.Annotate(
		logging.NewLoggingJobListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"`+port.JobExecutionListenerGroup+`"`),
	)),
	fx.Provide(fx.Annotate(
		metrics.NewMetricsJobListener,
		fx.As(new(port.JobExecutionListener)),
		fx.ResultTags(`group:"`+port.JobExecutionListenerGroup+`"`),
	)),
)
