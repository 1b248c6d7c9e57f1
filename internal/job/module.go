package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/dimtime/internal/period"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/storage"
	"github.com/tigerroll/dimtime/pkg/batch/component/step/writer"
	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// NewPeriodResolver creates a resolver reading the wall clock in the configured timezone.
func NewPeriodResolver(cfg *config.Config) (*period.Resolver, error) {
	loc, err := cfg.DimTime.System.Location()
	if err != nil {
		return nil, err
	}
	return period.NewResolver(period.SystemClock{Location: loc}), nil
}

// NewTableWriter creates the partitioned parquet writer for Record. Partitions are registered in the
// catalog when it supports it and registration is enabled.
func NewTableWriter(cfg *config.Config, resolver storage.StorageConnectionResolver, cat catalog.Catalog, log logger.Logger) *writer.PartitionedParquetWriter[Record] {
	opts := []writer.Option{
		writer.WithCompression(cfg.DimTime.Writer.CompressionType),
		writer.WithLogger(log),
	}
	if registrar, ok := cat.(catalog.PartitionRegistrar); ok && cfg.DimTime.Writer.RegisterPartitions {
		opts = append(opts, writer.WithPartitionRegistrar(registrar))
		log.Debugf("Partitions of %s will be registered in the catalog.", cfg.DimTime.Target.QualifiedName())
	}
	return writer.NewPartitionedParquetWriter[Record](resolver, Schema, opts...)
}

// Module provides the DimTimeJob and its collaborators.
var Module = fx.Options(
	fx.Provide(NewPeriodResolver),
	fx.Provide(fx.Annotate(
		NewTableWriter,
		fx.As(new(TableWriter)),
	)),
	fx.Provide(NewDimTimeJob),
)
