// Package database defines the database connection abstractions used by the SQL-backed catalog.
package database

import (
	"context"
	"database/sql"

	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dimtime/pkg/batch/adapter/database/config"
	coreAdapter "github.com/tigerroll/dimtime/pkg/batch/core/adapter"
)

// DBConnection represents an open, named database connection.
type DBConnection interface {
	coreAdapter.ResourceConnection // Type(), Name(), Close()

	// GormDB returns the gorm handle bound to this connection.
	GormDB() *gorm.DB
	// GetSQLDB returns the underlying *sql.DB connection.
	GetSQLDB() (*sql.DB, error)
	// Config returns the database configuration associated with this connection.
	Config() dbconfig.DatabaseConfig
	// RefreshConnection pings the pool to make sure the connection is still usable.
	RefreshConnection(ctx context.Context) error
}

// DBProvider manages named database connections.
type DBProvider interface {
	// GetConnection retrieves the named connection, opening it on first use.
	GetConnection(name string) (DBConnection, error)
	// CloseAll closes all connections managed by this provider.
	CloseAll() error
}
