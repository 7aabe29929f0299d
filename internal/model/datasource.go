package model

import "strings"

// DatabaseType identifies the kind of database a JDBC connection URL points at.
type DatabaseType string

const (
	DatabaseTypeOracle     DatabaseType = "oracle"
	DatabaseTypeMySQL      DatabaseType = "mysql"
	DatabaseTypeSQLServer  DatabaseType = "sqlserver"
	DatabaseTypePostgreSQL DatabaseType = "postgresql"
	DatabaseTypeHive       DatabaseType = "hive2"
	DatabaseTypeMariaDB    DatabaseType = "mariadb"
	DatabaseTypeClickHouse DatabaseType = "clickhouse"
	DatabaseTypeDB2        DatabaseType = "db2"
	DatabaseTypeUnknown    DatabaseType = "unknown"
)

// UnknownDriverClass is stored when the URL prefix matches no known database.
const UnknownDriverClass = "unknown.driver"

var jdbcDriverClasses = map[DatabaseType]string{
	DatabaseTypeOracle:     "oracle.jdbc.OracleDriver",
	DatabaseTypeMySQL:      "com.mysql.cj.jdbc.Driver",
	DatabaseTypeSQLServer:  "com.microsoft.sqlserver.jdbc.SQLServerDriver",
	DatabaseTypePostgreSQL: "org.postgresql.Driver",
	DatabaseTypeHive:       "org.apache.hive.jdbc.HiveDriver",
	DatabaseTypeMariaDB:    "org.mariadb.jdbc.Driver",
	DatabaseTypeClickHouse: "com.clickhouse.jdbc.ClickHouseDriver",
	DatabaseTypeDB2:        "com.ibm.db2.jcc.DB2Driver",
}

// jdbcPrefixOrder keeps prefix matching deterministic.
var jdbcPrefixOrder = []DatabaseType{
	DatabaseTypeOracle,
	DatabaseTypeMySQL,
	DatabaseTypeSQLServer,
	DatabaseTypePostgreSQL,
	DatabaseTypeHive,
	DatabaseTypeMariaDB,
	DatabaseTypeClickHouse,
	DatabaseTypeDB2,
}

// DatabaseTypeFromURL classifies a JDBC URL by its "jdbc:<kind>" prefix.
func DatabaseTypeFromURL(url string) DatabaseType {
	lower := strings.ToLower(strings.TrimSpace(url))
	for _, dbType := range jdbcPrefixOrder {
		if strings.HasPrefix(lower, "jdbc:"+string(dbType)) {
			return dbType
		}
	}
	return DatabaseTypeUnknown
}

// DriverClass returns the JDBC driver class name recorded for this database type.
func (t DatabaseType) DriverClass() string {
	if class, ok := jdbcDriverClasses[t]; ok {
		return class
	}
	return UnknownDriverClass
}
