package sql_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	sqlcatalog "github.com/tigerroll/dimtime/pkg/batch/adapter/catalog/sql"
	dbconfig "github.com/tigerroll/dimtime/pkg/batch/adapter/database/config"
	gormadapter "github.com/tigerroll/dimtime/pkg/batch/adapter/database/gorm"
)

func newSQLiteCatalog(t *testing.T) *sqlcatalog.Catalog {
	t.Helper()
	conn, err := gormadapter.Open(dbconfig.DatabaseConfig{
		Type:     "sqlite",
		Database: filepath.Join(t.TempDir(), "catalog.db"),
	}, "catalog")
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := sqlcatalog.NewCatalog(conn)
	require.NoError(t, c.Migrate(context.Background()))
	return c
}

func dimTable(location string) *catalog.Table {
	return &catalog.Table{
		Database: "db_dimensao",
		Name:     "dim_tempo",
		Location: location,
		Columns: []catalog.Column{
			{Name: "sequence_id", Type: "bigint"},
			{Name: "timestamp", Type: "timestamp"},
			{Name: "hour", Type: "int"},
		},
		PartitionKeys: []catalog.Column{
			{Name: "partition_year", Type: "int"},
			{Name: "partition_month", Type: "int"},
			{Name: "partition_day", Type: "int"},
		},
	}
}

func TestRegisterAndGetTable(t *testing.T) {
	ctx := context.Background()
	c := newSQLiteCatalog(t)

	_, err := c.GetTable(ctx, "db_dimensao", "dim_tempo")
	assert.ErrorIs(t, err, catalog.ErrTableNotFound)

	require.NoError(t, c.RegisterTable(ctx, dimTable("s3://lake/v1/dim_tempo")))
	got, err := c.GetTable(ctx, "db_dimensao", "dim_tempo")
	require.NoError(t, err)
	assert.Equal(t, dimTable("s3://lake/v1/dim_tempo"), got)

	// re-registering replaces location and columns
	replacement := dimTable("s3://lake/v2/dim_tempo")
	replacement.Columns = replacement.Columns[:1]
	require.NoError(t, c.RegisterTable(ctx, replacement))
	got, err = c.GetTable(ctx, "db_dimensao", "dim_tempo")
	require.NoError(t, err)
	assert.Equal(t, replacement, got)
}

func TestMigrateIsRepeatable(t *testing.T) {
	c := newSQLiteCatalog(t)
	assert.NoError(t, c.Migrate(context.Background()))
}

func TestRegisterPartitionsUpserts(t *testing.T) {
	ctx := context.Background()
	c := newSQLiteCatalog(t)
	table := dimTable("file://lake/dim_tempo")
	require.NoError(t, c.RegisterTable(ctx, table))

	parts := []catalog.PartitionSpec{
		{Values: []string{"2023", "4", "1"}, Location: "file://lake/dim_tempo/partition_year=2023/partition_month=4/partition_day=1"},
		{Values: []string{"2023", "4", "2"}, Location: "file://lake/dim_tempo/partition_year=2023/partition_month=4/partition_day=2"},
	}
	require.NoError(t, c.RegisterPartitions(ctx, table, parts))

	parts[0].Location = "file://lake/moved"
	require.NoError(t, c.RegisterPartitions(ctx, table, parts))

	locs, err := c.PartitionLocations(ctx, "db_dimensao", "dim_tempo")
	require.NoError(t, err)
	assert.Len(t, locs, 2)
	assert.Equal(t, "file://lake/moved", locs["2023/4/1"])

	missing := &catalog.Table{Database: "db_dimensao", Name: "nope"}
	assert.ErrorIs(t, c.RegisterPartitions(ctx, missing, parts), catalog.ErrTableNotFound)
	assert.NoError(t, c.RegisterPartitions(ctx, missing, nil))
}

func TestGetTableQueryFailure(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	conn, err := gormadapter.OpenDialector(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), dbconfig.DatabaseConfig{Type: "mysql"}, "mock_db")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT \\* FROM `catalog_tables`").WillReturnError(errors.New("connection reset"))

	_, err = sqlcatalog.NewCatalog(conn).GetTable(context.Background(), "db_dimensao", "dim_tempo")
	require.Error(t, err)
	assert.NotErrorIs(t, err, catalog.ErrTableNotFound)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}
