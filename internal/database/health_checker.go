package database

import (
	"context"
	"time"
)

const (
	HealthStatusHealthy   = "healthy"
	HealthStatusUnhealthy = "unhealthy"
)

// HealthCheckResult represents the result of a health check
type HealthCheckResult struct {
	DatabaseType string        `json:"databaseType"`
	Status       string        `json:"status"`
	Message      string        `json:"message,omitempty"`
	Latency      time.Duration `json:"latency"`
	CheckedAt    time.Time     `json:"checkedAt"`
}

// Healthy reports whether the check succeeded
func (r HealthCheckResult) Healthy() bool {
	return r.Status == HealthStatusHealthy
}

// CheckHealth runs the driver's connection test against the catalog within timeout.
func CheckHealth(ctx context.Context, conn *Connection, timeout time.Duration) HealthCheckResult {
	start := time.Now()
	result := HealthCheckResult{
		DatabaseType: conn.Driver.GetDatabaseTypeName(),
		CheckedAt:    start,
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	if err := conn.Driver.TestConnection(ctx, conn.DB); err != nil {
		result.Status = HealthStatusUnhealthy
		result.Message = err.Error()
	} else {
		result.Status = HealthStatusHealthy
	}
	result.Latency = time.Since(start)

	return result
}
