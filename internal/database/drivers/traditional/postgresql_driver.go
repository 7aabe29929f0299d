package traditional

import (
	"fmt"
	"net"
	"net/url"
	"strconv"

	"github.com/lib/pq"

	"catalog-sync/internal/database/drivers"
	"catalog-sync/internal/model"
)

// PostgreSQLDriver implements Driver for PostgreSQL
type PostgreSQLDriver struct {
	*drivers.DriverBase
}

func NewPostgreSQLDriver() *PostgreSQLDriver {
	return &PostgreSQLDriver{DriverBase: drivers.NewDriverBase(model.DatabaseTypePostgreSQL, "postgres")}
}

func (d *PostgreSQLDriver) ValidateDSN(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("DSN cannot be empty")
	}
	if _, err := pq.ParseURL(dsn); err != nil {
		return fmt.Errorf("invalid postgres DSN: %w", err)
	}
	return nil
}

func (d *PostgreSQLDriver) GetDefaultPort() int {
	return 5432
}

func (d *PostgreSQLDriver) BuildDSN(config *drivers.ConnectionConfig) string {
	port := config.Port
	if port == 0 {
		port = d.GetDefaultPort()
	}

	query := url.Values{}
	query.Set("sslmode", "disable")
	for k, v := range config.Params {
		query.Set(k, v)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(config.Username, config.Password),
		Host:     net.JoinHostPort(config.Host, strconv.Itoa(port)),
		Path:     "/" + config.Database,
		RawQuery: query.Encode(),
	}
	return u.String()
}

func (d *PostgreSQLDriver) Dialect() drivers.Dialect {
	return postgresDialect{}
}

type postgresDialect struct{}

func (postgresDialect) Placeholder(n int) string {
	return fmt.Sprintf("$%d", n)
}

// Names are quoted to keep the upper-case catalog naming.
func (postgresDialect) QualifiedName(schema, table string) string {
	return pq.QuoteIdentifier(schema) + "." + pq.QuoteIdentifier(table)
}

func (postgresDialect) QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

func (postgresDialect) ClearTableStatement(qualified string) string {
	return "TRUNCATE TABLE " + qualified
}

func (postgresDialect) MaxInListSize() int {
	return 1000
}
