package drivers

import (
	"context"
	"database/sql"

	"catalog-sync/internal/model"
)

// ConnectionConfig holds what a driver needs to build a connection string.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Params   map[string]string
}

// Dialect captures the SQL differences the catalog repository has to care about.
type Dialect interface {
	// Placeholder returns the bind variable for the n-th (1-based) argument.
	Placeholder(n int) string

	// QualifiedName returns schema.table quoted as the database expects.
	QualifiedName(schema, table string) string

	// QuoteIdentifier quotes a column name.
	QuoteIdentifier(name string) string

	// ClearTableStatement empties a table without leaving the current transaction.
	ClearTableStatement(qualified string) string

	// MaxInListSize is the largest number of values allowed in one IN list.
	MaxInListSize() int
}

// DriverBase provides common functionality for all drivers
type DriverBase struct {
	dbType     model.DatabaseType
	driverName string
}

func NewDriverBase(dbType model.DatabaseType, driverName string) *DriverBase {
	return &DriverBase{dbType: dbType, driverName: driverName}
}

func (db *DriverBase) GetDatabaseTypeName() string {
	return string(db.dbType)
}

func (db *DriverBase) GetDriverName() string {
	return db.driverName
}

// Open opens a pool through the registered database/sql driver.
func (db *DriverBase) Open(dsn string) (*sql.DB, error) {
	return sql.Open(db.driverName, dsn)
}

// TestConnection pings the database.
func (db *DriverBase) TestConnection(ctx context.Context, conn *sql.DB) error {
	return conn.PingContext(ctx)
}

// Driver interface
type Driver interface {
	// Open opens a database connection
	Open(dsn string) (*sql.DB, error)

	// ValidateDSN validates the connection string
	ValidateDSN(dsn string) error

	// GetDefaultPort returns the default port for the database
	GetDefaultPort() int

	// BuildDSN builds a connection string from configuration
	BuildDSN(config *ConnectionConfig) string

	// GetDatabaseTypeName returns the database type name
	GetDatabaseTypeName() string

	// TestConnection tests if the connection is working
	TestConnection(ctx context.Context, db *sql.DB) error

	// GetDriverName returns the underlying SQL driver name
	GetDriverName() string

	// Dialect returns the SQL dialect of the database
	Dialect() Dialect
}
