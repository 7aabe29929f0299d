package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"catalog-sync/internal/database/drivers"
	"catalog-sync/internal/model"
)

// PoolSettings tunes the database/sql pool of the catalog connection.
type PoolSettings struct {
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// Connection is an open catalog database together with the driver that opened it.
type Connection struct {
	DB     *sql.DB
	Driver drivers.Driver
}

// ConnectionStats represents connection pool statistics
type ConnectionStats struct {
	OpenConnections   int           `json:"openConnections"`
	InUse             int           `json:"inUse"`
	Idle              int           `json:"idle"`
	WaitCount         int64         `json:"waitCount"`
	WaitDuration      time.Duration `json:"waitDuration"`
	MaxIdleClosed     int64         `json:"maxIdleClosed"`
	MaxLifetimeClosed int64         `json:"maxLifetimeClosed"`
}

// Open resolves the driver for dbType, opens a pool and verifies it with a ping.
func Open(ctx context.Context, registry *DriverRegistry, dbType model.DatabaseType, config *drivers.ConnectionConfig, pool PoolSettings) (*Connection, error) {
	driver, err := registry.GetDriver(dbType)
	if err != nil {
		return nil, err
	}

	dsn := driver.BuildDSN(config)
	if err := driver.ValidateDSN(dsn); err != nil {
		return nil, err
	}

	db, err := driver.Open(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	configureConnectionPool(db, pool)

	if err := driver.TestConnection(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{DB: db, Driver: driver}, nil
}

// configureConnectionPool configures the connection pool settings
func configureConnectionPool(db *sql.DB, pool PoolSettings) {
	maxOpenConns := pool.MaxOpenConns
	if maxOpenConns <= 0 {
		maxOpenConns = 10
	}
	db.SetMaxOpenConns(maxOpenConns)

	maxIdleConns := maxOpenConns / 2
	if maxIdleConns < 2 {
		maxIdleConns = 2
	}
	db.SetMaxIdleConns(maxIdleConns)

	maxLifetime := pool.ConnMaxLifetime
	if maxLifetime <= 0 {
		maxLifetime = 30 * time.Minute
	}
	db.SetConnMaxLifetime(maxLifetime)

	idleTime := pool.ConnMaxIdleTime
	if idleTime <= 0 {
		idleTime = 30 * time.Second
	}
	db.SetConnMaxIdleTime(idleTime)
}

// Stats returns statistics for the pool
func (c *Connection) Stats() ConnectionStats {
	s := c.DB.Stats()
	return ConnectionStats{
		OpenConnections:   s.OpenConnections,
		InUse:             s.InUse,
		Idle:              s.Idle,
		WaitCount:         s.WaitCount,
		WaitDuration:      s.WaitDuration,
		MaxIdleClosed:     s.MaxIdleClosed,
		MaxLifetimeClosed: s.MaxLifetimeClosed,
	}
}

// Close closes the pool
func (c *Connection) Close() error {
	return c.DB.Close()
}
