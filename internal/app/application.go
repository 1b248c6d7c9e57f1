// Package app assembles the dim_time job with uber-fx and runs it once.
package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/dimtime/internal/job"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/database/gorm"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage/s3"
	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
	infraMetrics "github.com/tigerroll/dimtime/pkg/batch/infrastructure/metrics"
	batchlistener "github.com/tigerroll/dimtime/pkg/batch/listener"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// TriggerEvent is the raw trigger payload, e.g. `{"data_ref": "202304"}`. It may be empty.
type TriggerEvent []byte

// ErrJobFailed is returned by RunApplication when the job execution ended in FAILED.
var ErrJobFailed = errors.New("dim_time job failed")

// runOutcome carries the job result out of the fx lifecycle.
type runOutcome struct {
	err error
}

// Options returns the fx options of the whole application, without the run hook.
func Options(envFilePath string, embeddedConfig config.EmbeddedConfig) fx.Option {
	return fx.Options(
		fx.Supply(
			embeddedConfig,
			fx.Annotate(envFilePath, fx.ResultTags(`name:"envFilePath"`)),
		),
		logger.Module,
		config.Module,

		storage.Module,
		local.Module,
		gcs.Module,
		s3.Module,
		gorm.Module,
		fx.Provide(NewCatalog),

		infraMetrics.Module,
		batchlistener.Module,
		job.Module,
	)
}

// RunApplication builds the application, runs the job once with event and shuts down.
// The returned error wraps ErrJobFailed when the job itself failed.
func RunApplication(appCtx context.Context, envFilePath string, embeddedConfig config.EmbeddedConfig, event TriggerEvent) error {
	outcome := &runOutcome{}

	app := fx.New(
		Options(envFilePath, embeddedConfig),
		fx.Supply(
			event,
			outcome,
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
		),
		fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // dimTimeJob *job.DimTimeJob
			"",              // event TriggerEvent
			"",              // outcome *runOutcome
			`name:"appCtx"`, // appCtx context.Context
		))),
	)
	if err := app.Err(); err != nil {
		return fmt.Errorf("failed to build application: %w", err)
	}

	if err := app.Start(appCtx); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	sig := <-app.Wait()
	logger.Debugf("Shutdown signal received (exit code %d).", sig.ExitCode)

	stopCtx, cancel := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancel()
	if err := app.Stop(stopCtx); err != nil {
		logger.Errorf("Failed to stop application cleanly: %v", err)
	}

	if outcome.err != nil {
		return fmt.Errorf("%w: %w", ErrJobFailed, outcome.err)
	}
	return nil
}

// startJobExecution is invoked by Fx to run the job once the application has started.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	dimTimeJob *job.DimTimeJob,
	event TriggerEvent,
	outcome *runOutcome,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: onStartJobExecution(dimTimeJob, event, outcome, shutdowner, appCtx),
		OnStop:  onStopApplication(),
	})
}

// onStartJobExecution runs the job in the background and requests shutdown when it returns.
func onStartJobExecution(
	dimTimeJob *job.DimTimeJob,
	event TriggerEvent,
	outcome *runOutcome,
	shutdowner fx.Shutdowner,
	appCtx context.Context,
) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		go func() {
			exitCode := 0
			defer func() {
				if r := recover(); r != nil {
					logger.Errorf("Panic recovered in job execution: %v", r)
					outcome.err = fmt.Errorf("panic: %v", r)
					exitCode = 1
				}
				logger.Infof("Requesting application shutdown after job completion.")
				if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
					logger.Errorf("Failed to shutdown application: %v", err)
				}
			}()

			logger.Infof("Starting job '%s'...", job.JobName)
			je, err := dimTimeJob.Run(appCtx, event)
			if err != nil {
				outcome.err = err
				exitCode = 1
				return
			}
			logger.Infof("Job '%s' (Execution ID: %s) finished with status %s.", job.JobName, je.ID, je.Status)
		}()
		return nil
	}
}

// onStopApplication logs application shutdown.
func onStopApplication() func(ctx context.Context) error {
	return func(ctx context.Context) error {
		logger.Infof("Application is shutting down.")
		return nil
	}
}
