// Package catalog defines the table catalog: the lookup from a logical table name to its storage
// location and schema, and the registration of written partitions.
package catalog

import (
	"context"
	"errors"
	"strings"
)

// ErrTableNotFound is returned by Catalog.GetTable when the table is not registered.
var ErrTableNotFound = errors.New("table not found in catalog")

// Column is a column name and its catalog type.
type Column struct {
	Name string
	Type string
}

// Table is a catalog table definition.
type Table struct {
	Database string
	Name     string
	// Location is the storage URI of the table root, e.g. "s3://lake/warehouse/dim_tempo".
	Location string
	// Columns are the data columns in order. Empty when the catalog does not track a schema.
	Columns []Column
	// PartitionKeys are the partition columns, outermost first. Empty when not tracked.
	PartitionKeys []Column
}

// QualifiedName returns "database.table".
func (t *Table) QualifiedName() string {
	return t.Database + "." + t.Name
}

// PartitionSpec is one written partition.
type PartitionSpec struct {
	// Values are the partition values in partition-key order.
	Values []string
	// Location is the storage URI of the partition directory.
	Location string
}

// Catalog resolves tables.
type Catalog interface {
	// GetTable returns the table definition or an error wrapping ErrTableNotFound.
	GetTable(ctx context.Context, database, table string) (*Table, error)
}

// PartitionRegistrar is implemented by catalogs that track partitions.
type PartitionRegistrar interface {
	// RegisterPartitions records the partitions as present. Re-registering a partition is not an error.
	RegisterPartitions(ctx context.Context, table *Table, partitions []PartitionSpec) error
}

// NormalizeType maps equivalent type spellings to one canonical lower-case name.
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	switch t {
	case "int", "integer", "int32":
		return "int"
	case "bigint", "long", "int64":
		return "bigint"
	case "timestamp", "timestamp_millis":
		return "timestamp"
	case "string", "varchar", "text":
		return "string"
	}
	return t
}

// SameColumns reports whether two column lists are equal, comparing names case-insensitively
// and types after NormalizeType.
func SameColumns(a, b []Column) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i].Name, b[i].Name) || NormalizeType(a[i].Type) != NormalizeType(b[i].Type) {
			return false
		}
	}
	return true
}
