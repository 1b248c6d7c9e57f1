package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog/glue"
	sqlcatalog "github.com/tigerroll/dimtime/pkg/batch/adapter/catalog/sql"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog/static"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/database"
	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/exception"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

// CatalogParams defines the dependencies for NewCatalog.
type CatalogParams struct {
	fx.In
	Lifecycle  fx.Lifecycle
	Config     *config.Config
	DBProvider database.DBProvider
}

// NewCatalog selects the catalog implementation named by catalog.type.
// For the sql catalog with auto_migrate set, the catalog schema is migrated on start.
func NewCatalog(p CatalogParams) (catalog.Catalog, error) {
	cc := p.Config.DimTime.Catalog
	switch cc.Type {
	case config.CatalogTypeGlue:
		c, err := glue.NewCatalog(cc.Region, cc.Endpoint)
		if err != nil {
			return nil, exception.NewBatchError("app", "failed to create glue catalog", err)
		}
		logger.Infof("Using Glue catalog (region: %s).", cc.Region)
		return c, nil

	case config.CatalogTypeSQL:
		conn, err := p.DBProvider.GetConnection(cc.DBRef)
		if err != nil {
			return nil, exception.NewBatchError("app", fmt.Sprintf("failed to open catalog database '%s'", cc.DBRef), err)
		}
		c := sqlcatalog.NewCatalog(conn)
		if cc.AutoMigrate {
			p.Lifecycle.Append(fx.Hook{
				OnStart: func(ctx context.Context) error {
					return c.Migrate(ctx)
				},
			})
		}
		logger.Infof("Using SQL catalog on database '%s' (%s).", cc.DBRef, conn.Type())
		return c, nil

	case config.CatalogTypeStatic:
		logger.Infof("Using static catalog with %d table(s).", len(cc.Tables))
		return static.NewCatalog(cc.Tables), nil

	default:
		return nil, exception.NewBatchError("app", fmt.Sprintf("unsupported catalog type '%s'", cc.Type), nil)
	}
}
