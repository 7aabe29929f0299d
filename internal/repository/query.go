package repository

import (
	"context"
	"database/sql"
	"strings"

	"catalog-sync/internal/database/drivers"
	"catalog-sync/internal/model"
)

type scanner interface {
	Scan(dest ...any) error
}

// query binds statements to one transaction, dialect and schema.
type query struct {
	tx      *sql.Tx
	dialect drivers.Dialect
	schema  string
}

func (q query) table(t model.Table) string {
	return q.dialect.QualifiedName(q.schema, t.Name)
}

// columns renders the column list of t, prefixed with alias when it is not empty.
func (q query) columns(alias string, t model.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = q.column(alias, c)
	}
	return strings.Join(cols, ", ")
}

func (q query) column(alias, name string) string {
	if alias == "" {
		return q.dialect.QuoteIdentifier(name)
	}
	return alias + "." + q.dialect.QuoteIdentifier(name)
}

// placeholders renders n bind variables starting at position from.
func (q query) placeholders(from, n int) string {
	ps := make([]string, n)
	for i := range ps {
		ps[i] = q.dialect.Placeholder(from + i)
	}
	return strings.Join(ps, ", ")
}

func (q query) selectAll(t model.Table) string {
	return "SELECT " + q.columns("", t) + " FROM " + q.table(t)
}

func (q query) maxID(ctx context.Context, t model.Table) (int64, error) {
	var max sql.NullInt64
	stmt := "SELECT MAX(" + q.column("", t.Key) + ") FROM " + q.table(t)
	if err := q.tx.QueryRowContext(ctx, stmt).Scan(&max); err != nil {
		return 0, err
	}
	return max.Int64, nil
}

// queryAll runs stmt and scans every row with scan.
func queryAll[T any](ctx context.Context, q query, stmt string, args []any, scan func(scanner) (T, error)) ([]T, error) {
	rows, err := q.tx.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func scanConnection(s scanner) (model.Connection, error) {
	var c model.Connection
	err := s.Scan(&c.ID, &c.URL, &c.UserName, &c.Pass, &c.Description, &c.ConnectionName,
		&c.DriverName, &c.DBID, &c.Port, &c.TypeDB, &c.InsertDate)
	return c, err
}

func scanTimeParam(s scanner) (model.TimeParam, error) {
	var t model.TimeParam
	var name sql.NullString
	err := s.Scan(&name, &t.AddDay, &t.AddMon, &t.AddYear, &t.Format, &t.ExtendFormat, &t.AddMin, &t.AddHour)
	t.Name = name.String
	return t, err
}

func scanCommand(s scanner) (model.Command, error) {
	var c model.Command
	err := s.Scan(&c.ID, &c.ConnectionID, &c.FetchSize, &c.UsePartition, &c.NumFields, &c.NumExes,
		&c.NumParts, &c.Description, &c.UseSubpartition, &c.Params, &c.DBID, &c.SplitColumn,
		&c.MaskColumn, &c.InsertDate, &c.SQLCommand)
	return c, err
}

func scanConfig(s scanner) (model.Config, error) {
	var c model.Config
	err := s.Scan(&c.ID, &c.CommandID, &c.CreateID, &c.TableName, &c.LocationPath, &c.RemovePath,
		&c.Source, &c.Description, &c.IsActive, &c.GroupID, &c.MaxTime, &c.InsertDate,
		&c.OutputFormat, &c.ImportType)
	return c, err
}

func scanCreate(s scanner) (model.Create, error) {
	var c model.Create
	err := s.Scan(&c.ID, &c.ConnectionID, &c.Description, &c.InsertDate, &c.SQLCommand)
	return c, err
}

func scanSourceTable(s scanner) (model.SourceTable, error) {
	var t model.SourceTable
	err := s.Scan(&t.ID, &t.TableName)
	return t, err
}

func scanPipelineRow(s scanner) (model.PipelineRow, error) {
	var r model.PipelineRow
	err := s.Scan(
		&r.ConfigID, &r.CommandID, &r.CreateID, &r.TableName, &r.LocationPath, &r.Source,
		&r.Description, &r.ImportType,
		&r.ConnectionID, &r.FetchSize, &r.UsePartition, &r.NumFields, &r.NumExes, &r.NumParts,
		&r.CommandDesc, &r.UseSubpartition, &r.Params, &r.DBID, &r.SplitColumn, &r.CommandSQL,
		&r.CreateConnectionID, &r.CreateDesc, &r.CreateSQL,
	)
	return r, err
}
