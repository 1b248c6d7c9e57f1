package gorm

import (
	"context"

	"go.uber.org/fx"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/database"
	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
)

// NewDBProvider provides the database.DBProvider and closes its connections on stop.
func NewDBProvider(lc fx.Lifecycle, cfg *config.Config) database.DBProvider {
	p := NewProvider(cfg)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return p.CloseAll()
		},
	})
	return p
}

// Module exports the gorm database provider for dependency injection.
var Module = fx.Options(
	fx.Provide(NewDBProvider),
)
