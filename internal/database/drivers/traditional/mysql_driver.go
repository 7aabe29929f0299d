package traditional

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"

	"catalog-sync/internal/database/drivers"
	"catalog-sync/internal/model"
)

// MySQLDriver implements Driver for MySQL/MariaDB
type MySQLDriver struct {
	*drivers.DriverBase
}

func NewMySQLDriver(dbType model.DatabaseType) *MySQLDriver {
	return &MySQLDriver{DriverBase: drivers.NewDriverBase(dbType, "mysql")}
}

func (d *MySQLDriver) ValidateDSN(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("DSN cannot be empty")
	}
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return fmt.Errorf("invalid mysql DSN: %w", err)
	}
	return nil
}

func (d *MySQLDriver) GetDefaultPort() int {
	return 3306
}

func (d *MySQLDriver) BuildDSN(config *drivers.ConnectionConfig) string {
	port := config.Port
	if port == 0 {
		port = d.GetDefaultPort()
	}

	cfg := mysql.NewConfig()
	cfg.User = config.Username
	cfg.Passwd = config.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(config.Host, strconv.Itoa(port))
	cfg.DBName = config.Database
	cfg.ParseTime = true
	if len(config.Params) > 0 {
		cfg.Params = make(map[string]string, len(config.Params))
		for k, v := range config.Params {
			cfg.Params[k] = v
		}
	}
	return cfg.FormatDSN()
}

func (d *MySQLDriver) Dialect() drivers.Dialect {
	return mysqlDialect{}
}

type mysqlDialect struct{}

func (mysqlDialect) Placeholder(int) string {
	return "?"
}

func (m mysqlDialect) QualifiedName(schema, table string) string {
	return m.QuoteIdentifier(schema) + "." + m.QuoteIdentifier(table)
}

func (mysqlDialect) QuoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

// TRUNCATE causes an implicit commit in MySQL.
func (mysqlDialect) ClearTableStatement(qualified string) string {
	return "DELETE FROM " + qualified
}

func (mysqlDialect) MaxInListSize() int {
	return 1000
}
