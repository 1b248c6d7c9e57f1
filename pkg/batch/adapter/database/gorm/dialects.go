package gorm

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbconfig "github.com/tigerroll/dimtime/pkg/batch/adapter/database/config"
)

func init() {
	RegisterDialector("sqlite", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		if cfg.Database == "" {
			return nil, errors.New("SQLite database path cannot be empty")
		}
		return sqlite.Open(SQLiteConnectionString(cfg)), nil
	})
	RegisterDialector("mysql", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(MySQLConnectionString(cfg)), nil
	})
	RegisterDialector("postgres", func(cfg dbconfig.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(PostgresConnectionString(cfg)), nil
	})
}

// SQLiteConnectionString returns the database file path; foreign keys are enabled.
func SQLiteConnectionString(c dbconfig.DatabaseConfig) string {
	return c.Database + "?_foreign_keys=on"
}

// MySQLConnectionString builds a go-sql-driver DSN with parseTime enabled and UTC timestamps,
// e.g. user:password@tcp(host:port)/dbname?parseTime=true.
func MySQLConnectionString(c dbconfig.DatabaseConfig) string {
	mc := mysqldriver.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Loc = time.UTC
	return mc.FormatDSN()
}

// PostgresConnectionString builds a key/value DSN for gorm.io/driver/postgres.
func PostgresConnectionString(c dbconfig.DatabaseConfig) string {
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, sslmode)
}
