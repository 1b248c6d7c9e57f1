// Package static provides a catalog backed by table locations listed in the configuration.
// It carries no schema, so writers skip the schema check for its tables.
package static

import (
	"context"
	"fmt"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	config "github.com/tigerroll/dimtime/pkg/batch/core/config"
)

// Catalog is an immutable map of "database.table" to table definitions.
type Catalog struct {
	tables map[string]catalog.Table
}

// Verify that Catalog implements the catalog.Catalog interface.
var _ catalog.Catalog = (*Catalog)(nil)

// NewCatalog builds a catalog from the `catalog.tables` configuration section.
func NewCatalog(tables map[string]config.TableLocationConfig) *Catalog {
	c := &Catalog{tables: make(map[string]catalog.Table, len(tables))}
	for key, t := range tables {
		c.tables[key] = catalog.Table{Location: t.Location}
	}
	return c
}

// GetTable looks up "database.table".
func (c *Catalog) GetTable(ctx context.Context, database, table string) (*catalog.Table, error) {
	t, ok := c.tables[database+"."+table]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", database, table, catalog.ErrTableNotFound)
	}
	t.Database = database
	t.Name = table
	return &t, nil
}
