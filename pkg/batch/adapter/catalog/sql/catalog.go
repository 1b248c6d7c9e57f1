// Package sql provides a catalog stored in a relational database (sqlite, mysql or postgres) through gorm,
// for deployments without a managed metastore.
package sql

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tigerroll/dimtime/pkg/batch/adapter/catalog"
	"github.com/tigerroll/dimtime/pkg/batch/adapter/database"
	"github.com/tigerroll/dimtime/pkg/batch/component/migration"
	"github.com/tigerroll/dimtime/pkg/batch/support/util/logger"
)

//go:embed resource/*.sql
var migrationFS embed.FS

// MigrationsTable tracks the applied catalog migrations.
const MigrationsTable = "catalog_schema_migrations"

type tableRecord struct {
	ID           string `gorm:"column:id;primaryKey"`
	DatabaseName string `gorm:"column:database_name"`
	Name         string `gorm:"column:table_name"`
	Location     string `gorm:"column:location"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (tableRecord) TableName() string { return "catalog_tables" }

type columnRecord struct {
	ID             string `gorm:"column:id;primaryKey"`
	TableID        string
	Position       int
	Name           string
	DataType       string
	IsPartitionKey bool
}

func (columnRecord) TableName() string { return "catalog_columns" }

type partitionRecord struct {
	ID              string `gorm:"column:id;primaryKey"`
	TableID         string
	PartitionValues string
	Location        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (partitionRecord) TableName() string { return "catalog_partitions" }

// Catalog implements catalog.Catalog and catalog.PartitionRegistrar over a database connection.
type Catalog struct {
	conn database.DBConnection
	db   *gorm.DB
}

var (
	_ catalog.Catalog            = (*Catalog)(nil)
	_ catalog.PartitionRegistrar = (*Catalog)(nil)
)

// NewCatalog creates a catalog over conn.
func NewCatalog(conn database.DBConnection) *Catalog {
	return &Catalog{conn: conn, db: conn.GormDB()}
}

// Migrate creates or upgrades the catalog tables.
func (c *Catalog) Migrate(ctx context.Context) error {
	return migration.NewMigrator(c.conn).Up(ctx, migrationFS, "resource", MigrationsTable)
}

func (c *Catalog) findTable(tx *gorm.DB, database, table string) (*tableRecord, error) {
	var rec tableRecord
	err := tx.Where("database_name = ? AND table_name = ?", database, table).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s.%s: %w", database, table, catalog.ErrTableNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up table %s.%s: %w", database, table, err)
	}
	return &rec, nil
}

// GetTable loads the table with its data columns and partition keys in order.
func (c *Catalog) GetTable(ctx context.Context, database, table string) (*catalog.Table, error) {
	db := c.db.WithContext(ctx)
	rec, err := c.findTable(db, database, table)
	if err != nil {
		return nil, err
	}

	var cols []columnRecord
	if err := db.Where("table_id = ?", rec.ID).Order("is_partition_key").Order("position").Find(&cols).Error; err != nil {
		return nil, fmt.Errorf("failed to load columns of %s.%s: %w", database, table, err)
	}

	out := &catalog.Table{Database: rec.DatabaseName, Name: rec.Name, Location: rec.Location}
	for _, col := range cols {
		column := catalog.Column{Name: col.Name, Type: col.DataType}
		if col.IsPartitionKey {
			out.PartitionKeys = append(out.PartitionKeys, column)
		} else {
			out.Columns = append(out.Columns, column)
		}
	}
	return out, nil
}

// RegisterTable creates or replaces a table definition.
func (c *Catalog) RegisterTable(ctx context.Context, table *catalog.Table) error {
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := c.findTable(tx, table.Database, table.Name)
		switch {
		case errors.Is(err, catalog.ErrTableNotFound):
			rec = &tableRecord{ID: uuid.NewString(), DatabaseName: table.Database, Name: table.Name, Location: table.Location}
			if err := tx.Create(rec).Error; err != nil {
				return fmt.Errorf("failed to create table %s: %w", table.QualifiedName(), err)
			}
		case err != nil:
			return err
		default:
			rec.Location = table.Location
			if err := tx.Save(rec).Error; err != nil {
				return fmt.Errorf("failed to update table %s: %w", table.QualifiedName(), err)
			}
		}

		if err := tx.Where("table_id = ?", rec.ID).Delete(&columnRecord{}).Error; err != nil {
			return fmt.Errorf("failed to clear columns of %s: %w", table.QualifiedName(), err)
		}
		var cols []columnRecord
		for i, col := range table.Columns {
			cols = append(cols, columnRecord{ID: uuid.NewString(), TableID: rec.ID, Position: i, Name: col.Name, DataType: col.Type})
		}
		for i, col := range table.PartitionKeys {
			cols = append(cols, columnRecord{ID: uuid.NewString(), TableID: rec.ID, Position: i, Name: col.Name, DataType: col.Type, IsPartitionKey: true})
		}
		if len(cols) > 0 {
			if err := tx.Create(&cols).Error; err != nil {
				return fmt.Errorf("failed to store columns of %s: %w", table.QualifiedName(), err)
			}
		}
		logger.Infof("Registered table %s at %s.", table.QualifiedName(), table.Location)
		return nil
	})
}

// RegisterPartitions upserts the partitions, keyed by their values.
func (c *Catalog) RegisterPartitions(ctx context.Context, table *catalog.Table, partitions []catalog.PartitionSpec) error {
	if len(partitions) == 0 {
		return nil
	}
	return c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rec, err := c.findTable(tx, table.Database, table.Name)
		if err != nil {
			return err
		}
		recs := make([]partitionRecord, 0, len(partitions))
		for _, p := range partitions {
			recs = append(recs, partitionRecord{
				ID:              uuid.NewString(),
				TableID:         rec.ID,
				PartitionValues: strings.Join(p.Values, "/"),
				Location:        p.Location,
			})
		}
		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "table_id"}, {Name: "partition_values"}},
			DoUpdates: clause.AssignmentColumns([]string{"location", "updated_at"}),
		}).Create(&recs).Error
		if err != nil {
			return fmt.Errorf("failed to register partitions of %s: %w", table.QualifiedName(), err)
		}
		logger.Debugf("Registered %d partitions of %s.", len(recs), table.QualifiedName())
		return nil
	})
}

// PartitionLocations returns the registered partition locations keyed by "v1/v2/...".
func (c *Catalog) PartitionLocations(ctx context.Context, database, table string) (map[string]string, error) {
	db := c.db.WithContext(ctx)
	rec, err := c.findTable(db, database, table)
	if err != nil {
		return nil, err
	}
	var parts []partitionRecord
	if err := db.Where("table_id = ?", rec.ID).Find(&parts).Error; err != nil {
		return nil, fmt.Errorf("failed to load partitions of %s.%s: %w", database, table, err)
	}
	out := make(map[string]string, len(parts))
	for _, p := range parts {
		out[p.PartitionValues] = p.Location
	}
	return out, nil
}
