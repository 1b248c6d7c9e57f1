package storage

import (
	"context"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/fx"

	coreConfig "github.com/tigerroll/dimtime/pkg/batch/core/config"
)

// ResolverParams collects the providers contributed by the adapter modules.
type ResolverParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	Config    *coreConfig.Config
	Providers []StorageProvider `group:"storage_providers"`
}

// NewStorageConnectionResolver builds the resolver and closes every provider on stop.
func NewStorageConnectionResolver(p ResolverParams) StorageConnectionResolver {
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			var result *multierror.Error
			for _, provider := range p.Providers {
				if err := provider.CloseAll(); err != nil {
					result = multierror.Append(result, err)
				}
			}
			return result.ErrorOrNil()
		},
	})
	return NewConnectionResolver(p.Providers, p.Config.DimTime.StorageConfigs)
}

// Module provides the StorageConnectionResolver. Adapter modules contribute the providers.
var Module = fx.Options(
	fx.Provide(NewStorageConnectionResolver),
)
