package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"catalog-sync/internal/metrics"
	"catalog-sync/internal/model"
	"catalog-sync/internal/repository"
	"catalog-sync/internal/rewrite"
	"catalog-sync/internal/transform"
	"catalog-sync/internal/utils"
)

// prefixCodec stores "enc(x)" for x; anything else fails to decrypt.
type prefixCodec struct {
	failures atomic.Int64
}

func (c *prefixCodec) Encrypt(v sql.NullString) sql.NullString {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return sql.NullString{}
	}
	return model.String("enc(" + v.String + ")")
}

func (c *prefixCodec) Decrypt(v sql.NullString) sql.NullString {
	if !v.Valid || strings.TrimSpace(v.String) == "" {
		return sql.NullString{}
	}
	if strings.HasPrefix(v.String, "enc(") && strings.HasSuffix(v.String, ")") {
		return model.String(v.String[4 : len(v.String)-1])
	}
	c.failures.Add(1)
	return v
}

func (c *prefixCodec) Failures() int64 { return c.failures.Load() }

var fixedNow = time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)

func conn(id int64, url, user, pass, name string) model.Connection {
	return model.Connection{
		ID:             id,
		URL:            model.String(url),
		UserName:       model.NullableString(user),
		Pass:           model.NullableString(pass),
		ConnectionName: model.NullableString(name),
	}
}

func sourceSnapshot() repository.Snapshot {
	return repository.Snapshot{
		Connections: []model.Connection{
			conn(1, "jdbc:oracle:thin:@//db1:1521/SALESDB", "enc(app)", "enc(pw)", "sales"),
			conn(2, "jdbc:mysql://db2:3306/crm", "enc(u2)", "enc(p2)", "crm"),
			conn(3, "10.0.0.5", "enc(ftp)", "garbage", "ftp"),
		},
		TimeParams: []model.TimeParam{
			{Name: "Daily", AddDay: model.Int64(-1)},
			{Name: "weekly", AddDay: model.Int64(-7)},
		},
		Commands: []model.Command{
			{ID: 10, ConnectionID: model.Int64(1), SQLCommand: model.String("SELECT * FROM orders"), FetchSize: model.Int64(1000)},
			{ID: 11, ConnectionID: model.Int64(2), SQLCommand: model.String("SELECT a FROM contacts")},
			{ID: 12, ConnectionID: model.Int64(1), SQLCommand: model.String("DELETE FROM jobs")},
		},
		Creates: []model.Create{
			{ID: 50, Description: model.String("orders ddl"), SQLCommand: model.String(
				"CREATE EXTERNAL TABLE sales.orders (a INT) ROW FORMAT DELIMITED FIELDS TERMINATED BY ',' STORED AS TEXTFILE LOCATION 'hdfs://nn/data/sales/orders'")},
		},
		Configs: []model.Config{
			{ID: 100, CommandID: model.Int64(10), CreateID: model.Int64(50), TableName: model.String("sales.orders"),
				LocationPath: model.String("hdfs://nn/data/sales/orders/${YYYYMMDD}"), Source: model.String("ORA")},
			{ID: 101, CommandID: model.Int64(11), TableName: model.String("crm.contacts"),
				LocationPath: model.String("/data/crm/contacts/dt=${YYYYMMDD}")},
			{ID: 102, CommandID: model.Int64(12), TableName: model.String("ops.jobs"),
				LocationPath: model.String("/data/ops/jobs/${YYYYMMDD}/part/${HH}")},
		},
		History: []model.HistoryEntry{
			{TableID: 100, PrdID: 20251201, Status: "SUCCESS"},
			{TableID: 102, PrdID: 20250101, Status: "SUCCESS"},
		},
	}
}

func targetSnapshot() repository.Snapshot {
	return repository.Snapshot{
		Connections: []model.Connection{
			conn(1, "jdbc:oracle:thin:@//db1:1521/SALESDB", "app", "enc(pw)", "old"),
			conn(2, "jdbc:mysql://db2:3306/crm", "other", "enc(p2)", "crm"),
			conn(9, "jdbc:postgresql://pg:5432/manual", "m", "enc(x)", "Manual"),
		},
		TimeParams: []model.TimeParam{{Name: " daily ", AddDay: model.Int64(-1)}},
		Commands: []model.Command{
			{ID: 10, ConnectionID: model.Int64(1), MaskColumn: model.String("ssn")},
			{ID: 11, ConnectionID: model.Int64(2), MaskColumn: model.String("email")},
			{ID: 20, ConnectionID: model.Int64(1), SQLCommand: model.String("SELECT 1 FROM dual")},
		},
		Configs: []model.Config{
			{ID: 100, CommandID: model.Int64(10), TableName: model.String("ingestion.orders")},
			{ID: 101, CommandID: model.Int64(11), CreateID: model.Int64(60), TableName: model.String("ingestion.contacts")},
			{ID: 200, CommandID: model.Int64(20), TableName: model.String("ingestion.manual_table")},
		},
		Creates: []model.Create{
			{ID: 60, Description: model.String("contacts ddl"), SQLCommand: model.String("CREATE TABLE ingestion.contacts (a INT)")},
			{ID: 70, Description: model.String("ingestion.stale"), SQLCommand: model.String("ALTER TABLE ingestion.stale DROP")},
		},
		Cleans: []model.Clean{{Folder: "/old/folder", Description: model.String("ingestion.stale")}},
	}
}

func newTestService(t *testing.T, catalog repository.Catalog, opts Options, m *metrics.SyncMetrics) *SyncService {
	t.Helper()
	return NewSyncService(catalog, &prefixCodec{}, opts, zaptest.NewLogger(t), m).
		WithClock(func() time.Time { return fixedNow })
}

func connectionByID(conns []model.Connection, id int64) (model.Connection, bool) {
	for _, c := range conns {
		if c.ID == id {
			return c, true
		}
	}
	return model.Connection{}, false
}

func ids[T any](rows []T, id func(T) int64) []int64 {
	out := make([]int64, len(rows))
	for i, r := range rows {
		out[i] = id(r)
	}
	return out
}

func TestRunSyncsCatalog(t *testing.T) {
	catalog := repository.NewMemoryCatalog(sourceSnapshot(), targetSnapshot())
	m := metrics.New()
	svc := newTestService(t, catalog, Options{}, m)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, report.Outcome)
	assert.NotEmpty(t, report.RunID)

	got := catalog.Target().Sorted()

	t.Run("time params", func(t *testing.T) {
		require.Len(t, got.TimeParams, 2)
		assert.Equal(t, " daily ", got.TimeParams[0].Name)
		assert.Equal(t, "weekly", got.TimeParams[1].Name)
	})

	t.Run("connections", func(t *testing.T) {
		assert.Equal(t, []int64{1, 2, 3, 9}, ids(got.Connections, func(c model.Connection) int64 { return c.ID }))

		c1, _ := connectionByID(got.Connections, 1)
		assert.Equal(t, "app", c1.UserName.String)
		assert.Equal(t, "enc(pw)", c1.Pass.String)
		assert.Equal(t, "salesdb", c1.ConnectionName.String)
		assert.Equal(t, "oracle.jdbc.OracleDriver", c1.DriverName.String)
		assert.Equal(t, fixedNow, c1.InsertDate.Time)

		// conflicting credentials keep the target row untouched
		c2, _ := connectionByID(got.Connections, 2)
		assert.Equal(t, "other", c2.UserName.String)
		require.Len(t, report.Conflicts, 1)
		assert.Contains(t, report.Conflicts[0], "JDBC connection 2")

		c3, _ := connectionByID(got.Connections, 3)
		assert.Equal(t, "ftp_10.0.0.5", c3.ConnectionName.String)
		assert.Equal(t, model.String(""), c3.DriverName)
		assert.Equal(t, "ftp", c3.UserName.String)
		assert.Equal(t, "enc(garbage)", c3.Pass.String)

		c9, _ := connectionByID(got.Connections, 9)
		assert.Equal(t, "manual", c9.ConnectionName.String)
		assert.Equal(t, "org.postgresql.Driver", c9.DriverName.String)
		assert.Equal(t, "m", c9.UserName.String)

		assert.Equal(t, TableCounts{Inserted: 2, Deleted: 1, Updated: 1}, report.Counts(model.ConnectionTable.Name))
	})

	t.Run("commands", func(t *testing.T) {
		assert.Equal(t, []int64{10, 11, 12, 20}, ids(got.Commands, func(c model.Command) int64 { return c.ID }))
		assert.Equal(t, "ssn", got.Commands[0].MaskColumn.String)
		assert.Equal(t, "SELECT * FROM orders", got.Commands[0].SQLCommand.String)
		assert.Equal(t, int64(1000), got.Commands[0].FetchSize.Int64)
		// kept target command is not replaced by the source one
		assert.False(t, got.Commands[1].SQLCommand.Valid)
		assert.Equal(t, "email", got.Commands[1].MaskColumn.String)
		assert.False(t, got.Commands[2].MaskColumn.Valid)
	})

	t.Run("configs", func(t *testing.T) {
		assert.Equal(t, []int64{100, 101, 102, 200}, ids(got.Configs, func(c model.Config) int64 { return c.ID }))

		orders := got.Configs[0]
		assert.Equal(t, "ingestion.orders", orders.TableName.String)
		assert.Equal(t, "/raw_data/salesdb/orders/partition=${YYYYMMDD}", orders.LocationPath.String)
		assert.Equal(t, int64(0), orders.IsActive.Int64)
		assert.Equal(t, int64(25251325), orders.GroupID.Int64)
		assert.Equal(t, int64(900), orders.MaxTime.Int64)
		assert.Equal(t, "PARQUET", orders.OutputFormat.String)
		assert.Equal(t, "ORA", orders.Source.String)
		assert.False(t, orders.RemovePath.Valid)

		jobs := got.Configs[2]
		assert.Equal(t, "/data/ops/jobs/${YYYYMMDD}/part/${HH}", jobs.LocationPath.String)
		assert.Equal(t, []int64{200}, report.TargetOnly)
	})

	t.Run("creates", func(t *testing.T) {
		assert.Equal(t, []int64{50, 60, 61, 62}, ids(got.Creates, func(c model.Create) int64 { return c.ID }))
		assert.Equal(t,
			"CREATE EXTERNAL TABLE ingestion.orders (a INT) STORED AS PARQUET LOCATION '/raw_data/salesdb/orders'",
			got.Creates[0].SQLCommand.String)
		assert.Equal(t, `ALTER TABLE ingestion.orders DROP IF EXISTS PARTITION(partition="${YYYYMMDD:MM-6}")`, got.Creates[2].SQLCommand.String)
		assert.Equal(t, "ingestion.orders", got.Creates[2].Description.String)
		assert.False(t, got.Creates[2].ConnectionID.Valid)
		assert.Equal(t, "ingestion.jobs", got.Creates[3].Description.String)
		assert.Equal(t, int64(61), report.NextCreateID)
	})

	t.Run("cleans", func(t *testing.T) {
		require.Len(t, got.Cleans, 1)
		assert.Equal(t, "/raw_data/salesdb/orders/partition="+transform.RetentionVariable, got.Cleans[0].Folder)
		assert.Equal(t, model.Int64(61), got.Cleans[0].CreateID)
		assert.Equal(t, int64(1), report.LinkedCleans)
	})

	t.Run("diagnostics", func(t *testing.T) {
		assert.Len(t, report.DiagnosticsOf(rewrite.KindTooComplex), 1)
		nonSelect := report.DiagnosticsOf(rewrite.KindNonSelectCommand)
		require.Len(t, nonSelect, 1)
		assert.Equal(t, int64(12), nonSelect[0].ContextID)
		assert.Len(t, report.DiagnosticsOf(rewrite.KindCredentialCodec), 1)
		assert.Equal(t, int64(1), report.CodecFailures)
	})

	t.Run("metrics", func(t *testing.T) {
		assert.Equal(t, 2.0, testutil.ToFloat64(m.Rows.WithLabelValues(model.ConfigTable.Name, OpInserted)))
		assert.Equal(t, 3.0, testutil.ToFloat64(m.Rows.WithLabelValues(model.CreateTable.Name, OpInserted)))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.Conflicts))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.LastRunSuccess))
	})
}

func TestRunIsIdempotent(t *testing.T) {
	catalog := repository.NewMemoryCatalog(sourceSnapshot(), targetSnapshot())
	svc := newTestService(t, catalog, Options{}, nil)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)
	first := catalog.Target().Sorted()

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	second := catalog.Target().Sorted()

	assert.Equal(t, first, second)
	assert.Equal(t, int64(61), report.NextCreateID)
}

func TestRunRollsBackOnFailure(t *testing.T) {
	boom := errors.New("boom")
	initial := targetSnapshot()
	catalog := repository.NewMemoryCatalog(sourceSnapshot(), initial)
	catalog.FailOn("InsertBatch:"+model.ConfigTable.Name, boom)
	m := metrics.New()
	svc := newTestService(t, catalog, Options{}, m)

	report, err := svc.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.True(t, utils.IsErrorType(err, utils.ErrCodeQueryFailed))
	assert.Equal(t, OutcomeFailed, report.Outcome)
	assert.Contains(t, report.Error, "D_DB_2_HDFS_CONFIG")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.LastRunSuccess))

	assert.Equal(t, initial.Sorted(), catalog.Target().Sorted())
}

func TestRunDryRunRollsBack(t *testing.T) {
	initial := targetSnapshot()
	catalog := repository.NewMemoryCatalog(sourceSnapshot(), initial)
	svc := newTestService(t, catalog, Options{DryRun: true}, nil)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeRolledBack, report.Outcome)
	assert.True(t, report.DryRun)
	assert.Equal(t, int64(2), report.Counts(model.ConfigTable.Name).Inserted)
	assert.Equal(t, initial.Sorted(), catalog.Target().Sorted())
}

func TestRunAppliesHistoryFilter(t *testing.T) {
	catalog := repository.NewMemoryCatalog(sourceSnapshot(), targetSnapshot())
	svc := newTestService(t, catalog, Options{
		History: repository.HistoryFilter{Enabled: true, From: 20251120, To: 20251226, Status: "SUCCESS"},
	}, nil)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	got := catalog.Target().Sorted()
	assert.Equal(t, []int64{100, 101, 200}, ids(got.Configs, func(c model.Config) int64 { return c.ID }))
	assert.Equal(t, []int64{10, 11, 20}, ids(got.Commands, func(c model.Command) int64 { return c.ID }))
}

func TestRunUsesConfiguredLayout(t *testing.T) {
	catalog := repository.NewMemoryCatalog(sourceSnapshot(), targetSnapshot())
	svc := newTestService(t, catalog, Options{
		Transform: transform.Options{RawRoot: "/lake/raw", TableSchema: "staging"},
	}, nil)

	_, err := svc.Run(context.Background())
	require.NoError(t, err)

	got := catalog.Target().Sorted()
	assert.Equal(t, "staging.orders", got.Configs[0].TableName.String)
	assert.Equal(t, "/lake/raw/salesdb/orders/partition=${YYYYMMDD}", got.Configs[0].LocationPath.String)
	assert.Contains(t, got.Creates[0].SQLCommand.String, "TABLE staging.orders")
}

func TestRunCancelledContext(t *testing.T) {
	catalog := repository.NewMemoryCatalog(sourceSnapshot(), targetSnapshot())
	svc := newTestService(t, catalog, Options{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := svc.Run(ctx)
	require.Error(t, err)
	assert.True(t, utils.IsErrorType(err, utils.ErrCodeTransactionFailed))
	assert.Equal(t, OutcomeFailed, report.Outcome)
}

func TestConnectionNameLookup(t *testing.T) {
	idx := connectionNames([]model.Connection{
		conn(1, "u", "", "", " Sales "),
		conn(2, "u", "", "", ""),
	})

	assert.Equal(t, "Sales", idx.lookup(model.Int64(1)))
	assert.Equal(t, "unknown_2", idx.lookup(model.Int64(2)))
	assert.Equal(t, "unknown_conn_3", idx.lookup(model.Int64(3)))
	assert.Equal(t, "unknown_conn_0", idx.lookup(sql.NullInt64{}))
}
