package static_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog/static"
	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
)

func TestGetTable(t *testing.T) {
	c := static.NewCatalog(map[string]config.TableLocationConfig{
		"db_dimensao.dim_tempo": {Location: "file://lake/dim_tempo"},
	})

	table, err := c.GetTable(context.Background(), "db_dimensao", "dim_tempo")
	require.NoError(t, err)
	assert.Equal(t, "file://lake/dim_tempo", table.Location)
	assert.Equal(t, "db_dimensao.dim_tempo", table.QualifiedName())
	assert.Empty(t, table.Columns)

	_, err = c.GetTable(context.Background(), "db_dimensao", "dim_data")
	assert.ErrorIs(t, err, catalog.ErrTableNotFound)
}
