package repository

import (
	"context"
	"database/sql"

	"catalog-sync/internal/model"
)

// HistoryFilter restricts the source pipeline to configs with a load history entry of
// Status whose PRD_ID lies in [From, To].
type HistoryFilter struct {
	Enabled bool
	From    int64
	To      int64
	Status  string
}

// Matches reports whether a history entry passes the filter.
func (f HistoryFilter) Matches(h model.HistoryEntry) bool {
	return h.Status == f.Status && h.PrdID >= f.From && h.PrdID <= f.To
}

// SourceReader loads the source catalog
type SourceReader interface {
	// Connections returns every source connection
	Connections(ctx context.Context) ([]model.Connection, error)

	// TimeParams returns every source time parameter
	TimeParams(ctx context.Context) ([]model.TimeParam, error)

	// SourceTables returns the id and table name of every source config
	SourceTables(ctx context.Context) ([]model.SourceTable, error)

	// PipelineRows returns config ⋈ command ⟕ create ordered by config id
	PipelineRows(ctx context.Context, filter HistoryFilter) ([]model.PipelineRow, error)

	// MaxCreateID returns the largest create statement id, 0 when empty
	MaxCreateID(ctx context.Context) (int64, error)
}

// TargetStore reads and writes the target catalog
type TargetStore interface {
	Connections(ctx context.Context) ([]model.Connection, error)
	TimeParams(ctx context.Context) ([]model.TimeParam, error)
	Commands(ctx context.Context) ([]model.Command, error)
	Configs(ctx context.Context) ([]model.Config, error)
	Creates(ctx context.Context) ([]model.Create, error)

	// MaxCreateID returns the largest create statement id, 0 when empty
	MaxCreateID(ctx context.Context) (int64, error)

	// InsertBatch writes rows into table and returns the number written
	InsertBatch(ctx context.Context, table model.Table, rows []model.Record) (int, error)

	// DeleteByIDs removes rows whose key is in ids and returns the number removed
	DeleteByIDs(ctx context.Context, table model.Table, ids []int64) (int64, error)

	// Truncate removes every row of table inside the current transaction
	Truncate(ctx context.Context, table model.Table) error

	// UpdateConnectionDisplay sets only CONNECTION_NAME and DRIVER_NAME of a connection
	UpdateConnectionDisplay(ctx context.Context, id int64, name, driver sql.NullString) error

	// LinkCleanToDropCommands points unlinked clean rows at the smallest ALTER TABLE
	// create statement with the same description and returns the number linked
	LinkCleanToDropCommands(ctx context.Context) (int64, error)
}

// UnitOfWork is one transaction spanning both schemas
type UnitOfWork interface {
	Source() SourceReader
	Target() TargetStore
	Commit() error
	Rollback() error
}

// Catalog opens units of work against the catalog database
type Catalog interface {
	Begin(ctx context.Context) (UnitOfWork, error)
}
