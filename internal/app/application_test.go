package app_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"

	"github.com/tigerroll/dimtime/internal/app"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog/glue"
	sqlcatalog "github.com/tigerroll/dimtime/pkg/batch/adapter/catalog/sql"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog/static"
	gormadapter "github.com/tigerroll/dimtime/pkg/batch/adapter/database/gorm"
	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/exception"
)

const applicationYAML = `
dimtime:
  system:
    timezone: UTC
    logging:
      level: DEBUG
  catalog:
    type: static
    tables:
      db_dimensao.dim_tempo:
        location: file://lake/warehouse/dim_tempo
  storage:
    lake:
      type: local
      base_dir: %s
`

func countParquetFiles(t *testing.T, root string) int {
	t.Helper()
	var n int
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return 0
	}
	require.NoError(t, filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".parquet" {
			n++
		}
		return nil
	}))
	return n
}

func TestRunApplication(t *testing.T) {
	base := t.TempDir()
	embedded := config.EmbeddedConfig(fmt.Sprintf(applicationYAML, base))

	err := app.RunApplication(context.Background(), filepath.Join(base, "missing.env"), embedded, app.TriggerEvent(`{"data_ref": "202304"}`))
	require.NoError(t, err)
	assert.Equal(t, 30, countParquetFiles(t, filepath.Join(base, "lake", "warehouse", "dim_tempo")))
}

func TestRunApplicationJobFailure(t *testing.T) {
	base := t.TempDir()
	embedded := config.EmbeddedConfig(fmt.Sprintf(applicationYAML, base))

	err := app.RunApplication(context.Background(), filepath.Join(base, "missing.env"), embedded, app.TriggerEvent(`{"data_ref": "2023-04"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, app.ErrJobFailed)
	assert.ErrorIs(t, err, exception.ErrInvalidPeriodFormat)
	assert.Zero(t, countParquetFiles(t, base))
}

func TestRunApplicationInvalidConfig(t *testing.T) {
	base := t.TempDir()
	embedded := config.EmbeddedConfig("dimtime:\n  writer:\n    mode: merge\n")

	err := app.RunApplication(context.Background(), filepath.Join(base, "missing.env"), embedded, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, app.ErrJobFailed)
}

func TestNewCatalog(t *testing.T) {
	newParams := func(t *testing.T, mutate func(cc *config.CatalogConfig, cfg *config.Config)) (app.CatalogParams, *fxtest.Lifecycle) {
		cfg := config.NewConfig()
		mutate(&cfg.DimTime.Catalog, cfg)
		lc := fxtest.NewLifecycle(t)
		return app.CatalogParams{
			Lifecycle:  lc,
			Config:     cfg,
			DBProvider: gormadapter.NewProvider(cfg),
		}, lc
	}

	t.Run("static", func(t *testing.T) {
		p, _ := newParams(t, func(cc *config.CatalogConfig, _ *config.Config) {
			cc.Type = config.CatalogTypeStatic
		})
		c, err := app.NewCatalog(p)
		require.NoError(t, err)
		assert.IsType(t, &static.Catalog{}, c)
	})

	t.Run("glue", func(t *testing.T) {
		p, _ := newParams(t, func(cc *config.CatalogConfig, _ *config.Config) {
			cc.Type = config.CatalogTypeGlue
			cc.Region = "us-east-1"
		})
		c, err := app.NewCatalog(p)
		require.NoError(t, err)
		assert.IsType(t, &glue.Catalog{}, c)
		_, ok := c.(catalog.PartitionRegistrar)
		assert.True(t, ok)
	})

	t.Run("sql with auto migrate", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "catalog.db")
		p, lc := newParams(t, func(cc *config.CatalogConfig, cfg *config.Config) {
			cc.Type = config.CatalogTypeSQL
			cc.DBRef = "catalog"
			cc.AutoMigrate = true
			cfg.DimTime.DatabaseConfigs = map[string]interface{}{
				"catalog": map[string]interface{}{"type": "sqlite", "database": dbPath},
			}
		})
		c, err := app.NewCatalog(p)
		require.NoError(t, err)
		require.IsType(t, &sqlcatalog.Catalog{}, c)

		lc.RequireStart()
		defer lc.RequireStop()

		_, err = c.GetTable(context.Background(), "db_dimensao", "dim_tempo")
		assert.ErrorIs(t, err, catalog.ErrTableNotFound)
	})

	t.Run("sql without database", func(t *testing.T) {
		p, _ := newParams(t, func(cc *config.CatalogConfig, _ *config.Config) {
			cc.Type = config.CatalogTypeSQL
			cc.DBRef = "missing"
		})
		_, err := app.NewCatalog(p)
		assert.Error(t, err)
	})

	t.Run("unsupported", func(t *testing.T) {
		p, _ := newParams(t, func(cc *config.CatalogConfig, _ *config.Config) {
			cc.Type = "hive"
		})
		_, err := app.NewCatalog(p)
		assert.Error(t, err)
	})
}
