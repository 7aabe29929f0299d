package traditional

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	go_ora "github.com/sijms/go-ora/v2"

	"catalog-sync/internal/database/drivers"
	"catalog-sync/internal/model"
)

// OracleDriver implements Driver for Oracle
type OracleDriver struct {
	*drivers.DriverBase
}

func NewOracleDriver() *OracleDriver {
	return &OracleDriver{DriverBase: drivers.NewDriverBase(model.DatabaseTypeOracle, "oracle")}
}

func (d *OracleDriver) ValidateDSN(dsn string) error {
	if dsn == "" {
		return fmt.Errorf("DSN cannot be empty")
	}
	if !strings.HasPrefix(strings.ToLower(dsn), "oracle://") {
		return fmt.Errorf("oracle DSN must start with oracle://")
	}
	return nil
}

func (d *OracleDriver) GetDefaultPort() int {
	return 1521
}

// BuildDSN builds an oracle:// URL; Database is the service name.
func (d *OracleDriver) BuildDSN(config *drivers.ConnectionConfig) string {
	port := config.Port
	if port == 0 {
		port = d.GetDefaultPort()
	}
	return go_ora.BuildUrl(config.Host, port, config.Database, config.Username, config.Password, config.Params)
}

func (d *OracleDriver) TestConnection(ctx context.Context, db *sql.DB) error {
	var one int
	return db.QueryRowContext(ctx, "SELECT 1 FROM DUAL").Scan(&one)
}

func (d *OracleDriver) Dialect() drivers.Dialect {
	return oracleDialect{}
}

type oracleDialect struct{}

func (oracleDialect) Placeholder(n int) string {
	return fmt.Sprintf(":%d", n)
}

// Catalog tables are created with unquoted upper-case names.
func (oracleDialect) QualifiedName(schema, table string) string {
	return schema + "." + table
}

func (oracleDialect) QuoteIdentifier(name string) string {
	return name
}

// TRUNCATE is DDL in Oracle and commits the open transaction.
func (oracleDialect) ClearTableStatement(qualified string) string {
	return "DELETE FROM " + qualified
}

func (oracleDialect) MaxInListSize() int {
	return 1000
}
