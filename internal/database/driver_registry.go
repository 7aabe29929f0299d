package database

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"catalog-sync/internal/database/drivers"
	"catalog-sync/internal/database/drivers/traditional"
	"catalog-sync/internal/model"
)

// DriverRegistry manages driver instances and creation
type DriverRegistry struct {
	drivers map[model.DatabaseType]func() drivers.Driver
	mutex   sync.RWMutex
}

var globalDriverRegistry = NewDriverRegistry()

// GetDriverRegistry returns the global driver registry
func GetDriverRegistry() *DriverRegistry {
	return globalDriverRegistry
}

// NewDriverRegistry creates a registry with the catalog drivers registered
func NewDriverRegistry() *DriverRegistry {
	registry := &DriverRegistry{
		drivers: make(map[model.DatabaseType]func() drivers.Driver),
	}

	registry.registerDrivers()

	return registry
}

func (dr *DriverRegistry) registerDrivers() {
	dr.mutex.Lock()
	defer dr.mutex.Unlock()

	dr.register(model.DatabaseTypeOracle, func() drivers.Driver {
		return traditional.NewOracleDriver()
	})
	dr.register(model.DatabaseTypeMySQL, func() drivers.Driver {
		return traditional.NewMySQLDriver(model.DatabaseTypeMySQL)
	})
	dr.register(model.DatabaseTypeMariaDB, func() drivers.Driver {
		return traditional.NewMySQLDriver(model.DatabaseTypeMariaDB)
	})
	dr.register(model.DatabaseTypePostgreSQL, func() drivers.Driver {
		return traditional.NewPostgreSQLDriver()
	})
}

// register registers a driver factory function
func (dr *DriverRegistry) register(dbType model.DatabaseType, factory func() drivers.Driver) {
	dr.drivers[dbType] = factory
}

// GetDriver creates a driver for the specified database type
func (dr *DriverRegistry) GetDriver(dbType model.DatabaseType) (drivers.Driver, error) {
	dr.mutex.RLock()
	factory, exists := dr.drivers[model.DatabaseType(strings.ToLower(string(dbType)))]
	dr.mutex.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}

	return factory(), nil
}

// IsSupported checks if a database type is supported
func (dr *DriverRegistry) IsSupported(dbType model.DatabaseType) bool {
	dr.mutex.RLock()
	_, exists := dr.drivers[model.DatabaseType(strings.ToLower(string(dbType)))]
	dr.mutex.RUnlock()

	return exists
}

// ListDrivers returns all supported database types in name order
func (dr *DriverRegistry) ListDrivers() []model.DatabaseType {
	dr.mutex.RLock()
	defer dr.mutex.RUnlock()

	types := make([]model.DatabaseType, 0, len(dr.drivers))
	for dbType := range dr.drivers {
		types = append(types, dbType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}
