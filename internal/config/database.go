package config

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"catalog-sync/internal/database"
	"catalog-sync/internal/database/drivers"
	"catalog-sync/internal/model"
	"catalog-sync/internal/utils"
)

// ConnectionConfig converts the database section into driver settings
func (c DatabaseConfig) ConnectionConfig() *drivers.ConnectionConfig {
	return &drivers.ConnectionConfig{
		Host:     c.Host,
		Port:     c.Port,
		Database: c.Database,
		Username: c.Username,
		Password: c.Password,
		Params:   c.Params,
	}
}

// PoolSettings converts the database section into pool settings
func (c DatabaseConfig) PoolSettings() database.PoolSettings {
	return database.PoolSettings{
		MaxOpenConns:    c.MaxOpenConns,
		ConnMaxLifetime: c.ConnMaxLifetime,
		ConnMaxIdleTime: c.ConnMaxIdleTime,
	}
}

// InitDatabase opens the catalog database and runs a health check against it
func InitDatabase(ctx context.Context, cfg *Config, logger *zap.Logger) (*database.Connection, error) {
	registry := database.GetDriverRegistry()
	dbType := model.DatabaseType(cfg.Database.Driver)
	if !registry.IsSupported(dbType) {
		return nil, utils.NewErrorBuilder(utils.ErrCodeUnsupportedDriver).
			WithDetails(cfg.Database.Driver).
			Build()
	}

	conn, err := database.Open(ctx, registry, dbType, cfg.Database.ConnectionConfig(), cfg.Database.PoolSettings())
	if err != nil {
		return nil, utils.NewConnectionError(err, fmt.Sprintf("%s@%s", cfg.Database.Driver, cfg.Database.Host))
	}

	health := database.CheckHealth(ctx, conn, cfg.Database.HealthTimeout)
	if !health.Healthy() {
		conn.Close()
		return nil, utils.NewConnectionError(fmt.Errorf("%s", health.Message), "health check")
	}

	logger.Info("Database connection established",
		zap.String("driver", conn.Driver.GetDatabaseTypeName()),
		zap.String("host", cfg.Database.Host),
		zap.Duration("latency", health.Latency),
	)
	return conn, nil
}
