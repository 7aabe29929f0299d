package repository

import (
	"context"
	"database/sql"
	"fmt"

	"catalog-sync/internal/model"
)

type sqlTarget struct {
	query
	batchSize int
}

func (t *sqlTarget) Connections(ctx context.Context) ([]model.Connection, error) {
	return queryAll(ctx, t.query, t.selectAll(model.ConnectionTable), nil, scanConnection)
}

func (t *sqlTarget) TimeParams(ctx context.Context) ([]model.TimeParam, error) {
	return queryAll(ctx, t.query, t.selectAll(model.TimeParamTable), nil, scanTimeParam)
}

func (t *sqlTarget) Commands(ctx context.Context) ([]model.Command, error) {
	return queryAll(ctx, t.query, t.selectAll(model.CommandTable), nil, scanCommand)
}

func (t *sqlTarget) Configs(ctx context.Context) ([]model.Config, error) {
	return queryAll(ctx, t.query, t.selectAll(model.ConfigTable), nil, scanConfig)
}

func (t *sqlTarget) Creates(ctx context.Context) ([]model.Create, error) {
	return queryAll(ctx, t.query, t.selectAll(model.CreateTable), nil, scanCreate)
}

func (t *sqlTarget) MaxCreateID(ctx context.Context) (int64, error) {
	return t.maxID(ctx, model.CreateTable)
}

func (t *sqlTarget) insertStatement(table model.Table) string {
	return "INSERT INTO " + t.table(table) + " (" + t.columns("", table) + ") VALUES (" +
		t.placeholders(1, len(table.Columns)) + ")"
}

func (t *sqlTarget) InsertBatch(ctx context.Context, table model.Table, rows []model.Record) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	stmt, err := t.tx.PrepareContext(ctx, t.insertStatement(table))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for i, row := range rows {
		values := row.Values()
		if len(values) != len(table.Columns) {
			return i, fmt.Errorf("%w: %s expects %d values, got %d", ErrUnexpectedRecord, table.Name, len(table.Columns), len(values))
		}
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return i, fmt.Errorf("insert into %s: %w", table.Name, err)
		}
	}
	return len(rows), nil
}

func (t *sqlTarget) DeleteByIDs(ctx context.Context, table model.Table, ids []int64) (int64, error) {
	var deleted int64
	for start := 0; start < len(ids); start += t.batchSize {
		end := min(start+t.batchSize, len(ids))
		chunk := ids[start:end]

		stmt := "DELETE FROM " + t.table(table) + " WHERE " + t.column("", table.Key) +
			" IN (" + t.placeholders(1, len(chunk)) + ")"
		args := make([]any, len(chunk))
		for i, id := range chunk {
			args[i] = id
		}

		res, err := t.tx.ExecContext(ctx, stmt, args...)
		if err != nil {
			return deleted, fmt.Errorf("delete from %s: %w", table.Name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}

func (t *sqlTarget) Truncate(ctx context.Context, table model.Table) error {
	_, err := t.tx.ExecContext(ctx, t.dialect.ClearTableStatement(t.table(table)))
	return err
}

func (t *sqlTarget) UpdateConnectionDisplay(ctx context.Context, id int64, name, driver sql.NullString) error {
	stmt := "UPDATE " + t.table(model.ConnectionTable) + " SET " +
		t.column("", "CONNECTION_NAME") + " = " + t.dialect.Placeholder(1) + ", " +
		t.column("", "DRIVER_NAME") + " = " + t.dialect.Placeholder(2) +
		" WHERE " + t.column("", "ID") + " = " + t.dialect.Placeholder(3)
	_, err := t.tx.ExecContext(ctx, stmt, name, driver, id)
	return err
}

func (t *sqlTarget) linkStatement() string {
	clean := t.table(model.CleanTable)
	create := t.table(model.CreateTable)
	outer := clean + "." + t.column("", "DESCRIPTION")
	match := " FROM " + create + " c WHERE " + t.column("c", "DESCRIPTION") + " = " + outer +
		" AND " + t.column("c", "SQL_COMMAND") + " LIKE 'ALTER TABLE%'"

	return "UPDATE " + clean + " SET " + t.column("", "ID_COMMAND_CREATE") +
		" = (SELECT MIN(" + t.column("c", "ID") + ")" + match + ")" +
		" WHERE " + t.column("", "ID_COMMAND_CREATE") + " IS NULL" +
		" AND EXISTS (SELECT 1" + match + ")"
}

func (t *sqlTarget) LinkCleanToDropCommands(ctx context.Context) (int64, error) {
	res, err := t.tx.ExecContext(ctx, t.linkStatement())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
