package repository

import (
	"context"
	"strings"

	"catalog-sync/internal/model"
)

type sqlSource struct {
	query
}

func (s *sqlSource) Connections(ctx context.Context) ([]model.Connection, error) {
	return queryAll(ctx, s.query, s.selectAll(model.ConnectionTable), nil, scanConnection)
}

func (s *sqlSource) TimeParams(ctx context.Context) ([]model.TimeParam, error) {
	return queryAll(ctx, s.query, s.selectAll(model.TimeParamTable), nil, scanTimeParam)
}

func (s *sqlSource) SourceTables(ctx context.Context) ([]model.SourceTable, error) {
	stmt := "SELECT " + s.column("", "ID") + ", " + s.column("", "TABLE_NAME") +
		" FROM " + s.table(model.ConfigTable)
	return queryAll(ctx, s.query, stmt, nil, scanSourceTable)
}

func (s *sqlSource) MaxCreateID(ctx context.Context) (int64, error) {
	return s.maxID(ctx, model.CreateTable)
}

func (s *sqlSource) PipelineRows(ctx context.Context, filter HistoryFilter) ([]model.PipelineRow, error) {
	stmt, args := s.pipelineQuery(filter)
	return queryAll(ctx, s.query, stmt, args, scanPipelineRow)
}

func (s *sqlSource) pipelineQuery(filter HistoryFilter) (string, []any) {
	col := s.column
	var b strings.Builder

	b.WriteString("SELECT ")
	b.WriteString(strings.Join([]string{
		col("cfg", "ID"), col("cfg", "ID_COMMAND"), col("cfg", "ID_COMMAND_CREATE"),
		col("cfg", "TABLE_NAME"), col("cfg", "LOCATION_PATH"), col("cfg", "SOURCE"),
		col("cfg", "DESCRIPTION"), col("cfg", "IMPORT_TYPE"),
		col("cmd", "ID_CONNECTION"), col("cmd", "FETCH_SIZE"), col("cmd", "USE_PARTITION"),
		col("cmd", "NUM_FIELDS"), col("cmd", "NUM_EXES"), col("cmd", "NUM_PARTS"),
		col("cmd", "DESCRIPTION"), col("cmd", "USE_SUBPARTITION"), col("cmd", "PARAMS"),
		col("cmd", "ID_DB"), col("cmd", "SPLIT_COLUMN"), col("cmd", "SQL_COMMAND"),
		col("crt", "ID_CONNECTION"), col("crt", "DESCRIPTION"), col("crt", "SQL_COMMAND"),
	}, ", "))
	b.WriteString(" FROM " + s.table(model.ConfigTable) + " cfg")
	b.WriteString(" JOIN " + s.table(model.CommandTable) + " cmd ON " + col("cfg", "ID_COMMAND") + " = " + col("cmd", "ID"))
	b.WriteString(" LEFT JOIN " + s.table(model.CreateTable) + " crt ON " + col("cfg", "ID_COMMAND_CREATE") + " = " + col("crt", "ID"))

	var args []any
	if filter.Enabled {
		b.WriteString(" WHERE " + col("cfg", "ID") + " IN (SELECT DISTINCT " + col("h", "ID_TABLE") +
			" FROM " + s.table(model.HistoryTable) + " h WHERE " +
			col("h", "STATUS") + " = " + s.dialect.Placeholder(1) + " AND " +
			col("h", "PRD_ID") + " >= " + s.dialect.Placeholder(2) + " AND " +
			col("h", "PRD_ID") + " <= " + s.dialect.Placeholder(3) + ")")
		args = append(args, filter.Status, filter.From, filter.To)
	}
	b.WriteString(" ORDER BY " + col("cfg", "ID"))

	return b.String(), args
}
