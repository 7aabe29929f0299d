package repository

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"catalog-sync/internal/database/drivers/traditional"
	"catalog-sync/internal/model"
)

type sqliteDialect struct{}

func (sqliteDialect) Placeholder(int) string                   { return "?" }
func (sqliteDialect) QualifiedName(schema, table string) string { return schema + "." + table }
func (sqliteDialect) QuoteIdentifier(name string) string        { return name }
func (sqliteDialect) ClearTableStatement(q string) string       { return "DELETE FROM " + q }
func (sqliteDialect) MaxInListSize() int                        { return 1000 }

var catalogDDL = []string{
	`CREATE TABLE %s.D_CONNECTION (ID INTEGER PRIMARY KEY, URL TEXT, USER_NAME TEXT, PASS TEXT,
		DESCRIPTION TEXT, CONNECTION_NAME TEXT, DRIVER_NAME TEXT, ID_DB INTEGER, PORT TEXT,
		TYPE_DB TEXT, INSERT_DATE TIMESTAMP)`,
	`CREATE TABLE %s.D_TIME_PARAM_CONFIG (NAME TEXT, ADD_DAY INTEGER, ADD_MON INTEGER,
		ADD_YEAR INTEGER, FORMAT TEXT, EXTEND_FORMAT TEXT, ADD_MIN INTEGER, ADD_HOUR INTEGER)`,
	`CREATE TABLE %s.D_DB_2_HDFS_COMMAND (ID INTEGER PRIMARY KEY, ID_CONNECTION INTEGER,
		FETCH_SIZE INTEGER, USE_PARTITION INTEGER, NUM_FIELDS INTEGER, NUM_EXES INTEGER,
		NUM_PARTS INTEGER, DESCRIPTION TEXT, USE_SUBPARTITION INTEGER, PARAMS TEXT, ID_DB INTEGER,
		SPLIT_COLUMN TEXT, MASK_COLUMN TEXT, INSERT_DATE TIMESTAMP, SQL_COMMAND TEXT)`,
	`CREATE TABLE %s.D_DB_2_HDFS_CONFIG (ID INTEGER PRIMARY KEY, ID_COMMAND INTEGER,
		ID_COMMAND_CREATE INTEGER, TABLE_NAME TEXT, LOCATION_PATH TEXT, REMOVE_PATH TEXT,
		SOURCE TEXT, DESCRIPTION TEXT, IS_ACTIVE INTEGER, ID_GROUP INTEGER, MAX_TIME INTEGER,
		INSERT_DATE TIMESTAMP, OUTPUT_FORMAT TEXT, IMPORT_TYPE TEXT)`,
	`CREATE TABLE %s.D_DB_2_HDFS_COMMAND_CREATE (ID INTEGER PRIMARY KEY, ID_CONNECTION INTEGER,
		DESCRIPTION TEXT, INSERT_DATE TIMESTAMP, SQL_COMMAND TEXT)`,
	`CREATE TABLE %s.D_CLEAN_FOLDER (FOLDER TEXT, DESCRIPTION TEXT, IS_ACTIVE INTEGER,
		ID_COMMAND_CREATE INTEGER, INSERT_DATE TIMESTAMP)`,
	`CREATE TABLE %s.D_DB_2_HDFS_HISTORY (ID_TABLE INTEGER, PRD_ID INTEGER, STATUS TEXT)`,
}

func openTestCatalog(t *testing.T, batchSize int) (*sql.DB, Catalog) {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	for _, schema := range []string{"src", "tgt"} {
		_, err := db.Exec("ATTACH DATABASE ':memory:' AS " + schema)
		require.NoError(t, err)
		for _, ddl := range catalogDDL {
			_, err := db.Exec(strings.ReplaceAll(ddl, "%s", schema))
			require.NoError(t, err)
		}
	}

	catalog, err := NewSQLCatalog(db, sqliteDialect{}, Schemas{Source: "src", Target: "tgt"}, batchSize)
	require.NoError(t, err)
	return db, catalog
}

func mustExec(t *testing.T, db *sql.DB, stmt string, args ...any) {
	t.Helper()
	_, err := db.Exec(stmt, args...)
	require.NoError(t, err)
}

func TestNewSQLCatalogRejectsBadSchema(t *testing.T) {
	_, err := NewSQLCatalog(nil, sqliteDialect{}, Schemas{Source: "src; DROP", Target: "tgt"}, 10)
	assert.ErrorIs(t, err, ErrInvalidSchema)
}

func TestSQLTargetInsertAndDelete(t *testing.T) {
	ctx := context.Background()
	_, catalog := openTestCatalog(t, 2)

	uow, err := catalog.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()

	conns := []model.Connection{
		{ID: 1, URL: model.String("jdbc:oracle:thin:@h:1521/ORCL"), UserName: model.String("u")},
		{ID: 2, URL: model.String("10.0.0.1")},
		{ID: 3, URL: model.String("jdbc:mysql://h/db"), DriverName: model.String("com.mysql.cj.jdbc.Driver")},
	}
	n, err := uow.Target().InsertBatch(ctx, model.ConnectionTable, model.Records(conns))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	got, err := uow.Target().Connections(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "u", got[0].UserName.String)
	assert.False(t, got[1].UserName.Valid)
	assert.False(t, got[1].InsertDate.Valid)

	// three ids with a batch size of two takes two statements
	deleted, err := uow.Target().DeleteByIDs(ctx, model.ConnectionTable, []int64{1, 3, 99})
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	got, err = uow.Target().Connections(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(2), got[0].ID)
}

func TestSQLTargetUpdateConnectionDisplay(t *testing.T) {
	ctx := context.Background()
	_, catalog := openTestCatalog(t, 0)

	uow, err := catalog.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()

	_, err = uow.Target().InsertBatch(ctx, model.ConnectionTable, model.Records([]model.Connection{
		{ID: 7, URL: model.String("jdbc:postgresql://h/sales"), ConnectionName: model.String("old"), Description: model.String("keep")},
	}))
	require.NoError(t, err)

	require.NoError(t, uow.Target().UpdateConnectionDisplay(ctx, 7, model.String("sales"), model.String("org.postgresql.Driver")))

	got, err := uow.Target().Connections(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "sales", got[0].ConnectionName.String)
	assert.Equal(t, "org.postgresql.Driver", got[0].DriverName.String)
	assert.Equal(t, "keep", got[0].Description.String)
}

func TestSQLSourcePipelineRows(t *testing.T) {
	ctx := context.Background()
	db, catalog := openTestCatalog(t, 0)

	mustExec(t, db, `INSERT INTO src.D_DB_2_HDFS_COMMAND (ID, ID_CONNECTION, SQL_COMMAND) VALUES (10, 1, 'SELECT 1')`)
	mustExec(t, db, `INSERT INTO src.D_DB_2_HDFS_COMMAND_CREATE (ID, DESCRIPTION, SQL_COMMAND) VALUES (50, 'ddl', 'CREATE TABLE t (a INT)')`)
	mustExec(t, db, `INSERT INTO src.D_DB_2_HDFS_CONFIG (ID, ID_COMMAND, ID_COMMAND_CREATE, TABLE_NAME) VALUES (100, 10, 50, 'db.t1')`)
	mustExec(t, db, `INSERT INTO src.D_DB_2_HDFS_CONFIG (ID, ID_COMMAND, TABLE_NAME) VALUES (101, 10, 't2')`)
	mustExec(t, db, `INSERT INTO src.D_DB_2_HDFS_CONFIG (ID, ID_COMMAND, TABLE_NAME) VALUES (102, 11, 'orphan')`)
	mustExec(t, db, `INSERT INTO src.D_DB_2_HDFS_HISTORY VALUES (100, 20251201, 'SUCCESS'), (101, 20250101, 'SUCCESS'), (101, 20251201, 'FAILED')`)

	uow, err := catalog.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()

	rows, err := uow.Source().PipelineRows(ctx, HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(100), rows[0].ConfigID)
	assert.Equal(t, "CREATE TABLE t (a INT)", rows[0].CreateSQL.String)
	assert.Equal(t, "SELECT 1", rows[0].CommandSQL.String)
	assert.False(t, rows[1].CreateID.Valid)
	assert.False(t, rows[1].CreateSQL.Valid)

	rows, err = uow.Source().PipelineRows(ctx, HistoryFilter{Enabled: true, From: 20251120, To: 20251226, Status: "SUCCESS"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(100), rows[0].ConfigID)

	tables, err := uow.Source().SourceTables(ctx)
	require.NoError(t, err)
	assert.Len(t, tables, 3)

	max, err := uow.Source().MaxCreateID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(50), max)

	max, err = uow.Target().MaxCreateID(ctx)
	require.NoError(t, err)
	assert.Zero(t, max)
}

func TestSQLTargetLinkAndTruncate(t *testing.T) {
	ctx := context.Background()
	_, catalog := openTestCatalog(t, 0)

	uow, err := catalog.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()
	target := uow.Target()

	_, err = target.InsertBatch(ctx, model.CreateTable, model.Records([]model.Create{
		{ID: 5, Description: model.String("ingestion.t1"), SQLCommand: model.String("ALTER TABLE ingestion.t1 DROP IF EXISTS PARTITION(x)")},
		{ID: 3, Description: model.String("ingestion.t1"), SQLCommand: model.String("ALTER TABLE ingestion.t1 DROP IF EXISTS PARTITION(y)")},
		{ID: 2, Description: model.String("ingestion.t1"), SQLCommand: model.String("CREATE TABLE ingestion.t1 (a INT)")},
	}))
	require.NoError(t, err)
	_, err = target.InsertBatch(ctx, model.CleanTable, model.Records([]model.Clean{
		{Folder: "/raw_data/c/t1/partition=${YYYYMMDD:MM-6}", Description: model.String("ingestion.t1")},
		{Folder: "/raw_data/c/t2/partition=${YYYYMMDD:MM-6}", Description: model.String("ingestion.t2")},
	}))
	require.NoError(t, err)

	linked, err := target.LinkCleanToDropCommands(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), linked)

	require.NoError(t, target.Truncate(ctx, model.CleanTable))
	require.NoError(t, uow.Commit())
	assert.ErrorIs(t, uow.Commit(), ErrTxDone)
}

func TestSQLUnitRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	_, catalog := openTestCatalog(t, 0)

	uow, err := catalog.Begin(ctx)
	require.NoError(t, err)
	_, err = uow.Target().InsertBatch(ctx, model.TimeParamTable, model.Records([]model.TimeParam{{Name: "p1"}}))
	require.NoError(t, err)
	require.NoError(t, uow.Rollback())

	uow, err = catalog.Begin(ctx)
	require.NoError(t, err)
	defer uow.Rollback()
	params, err := uow.Target().TimeParams(ctx)
	require.NoError(t, err)
	assert.Empty(t, params)
}

func TestStatementsFollowDialect(t *testing.T) {
	oracle := query{dialect: traditional.NewOracleDriver().Dialect(), schema: "DL"}
	postgres := query{dialect: traditional.NewPostgreSQLDriver().Dialect(), schema: "DL"}

	src := &sqlSource{query: oracle}
	stmt, args := src.pipelineQuery(HistoryFilter{Enabled: true, From: 1, To: 2, Status: "SUCCESS"})
	assert.Contains(t, stmt, "FROM DL.D_DB_2_HDFS_CONFIG cfg")
	assert.Contains(t, stmt, "h.STATUS = :1 AND h.PRD_ID >= :2 AND h.PRD_ID <= :3")
	assert.Equal(t, []any{"SUCCESS", int64(1), int64(2)}, args)

	tgt := &sqlTarget{query: postgres, batchSize: 1000}
	assert.Equal(t,
		`INSERT INTO "DL"."D_DB_2_HDFS_COMMAND_CREATE" ("ID", "ID_CONNECTION", "DESCRIPTION", "INSERT_DATE", "SQL_COMMAND") VALUES ($1, $2, $3, $4, $5)`,
		tgt.insertStatement(model.CreateTable))
	assert.Contains(t, tgt.linkStatement(), `c."DESCRIPTION" = "DL"."D_CLEAN_FOLDER"."DESCRIPTION"`)
	assert.Contains(t, tgt.linkStatement(), `LIKE 'ALTER TABLE%'`)
}
