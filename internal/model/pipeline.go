package model

import "database/sql"

// Command is a row of D_DB_2_HDFS_COMMAND: one extraction query against a connection.
type Command struct {
	ID              int64
	ConnectionID    sql.NullInt64
	FetchSize       sql.NullInt64
	UsePartition    sql.NullInt64
	NumFields       sql.NullInt64
	NumExes         sql.NullInt64
	NumParts        sql.NullInt64
	Description     sql.NullString
	UseSubpartition sql.NullInt64
	Params          sql.NullString
	DBID            sql.NullInt64
	SplitColumn     sql.NullString
	MaskColumn      sql.NullString
	InsertDate      sql.NullTime
	SQLCommand      sql.NullString
}

func (c Command) Values() []any {
	return []any{
		c.ID, c.ConnectionID, c.FetchSize, c.UsePartition, c.NumFields, c.NumExes,
		c.NumParts, c.Description, c.UseSubpartition, c.Params, c.DBID, c.SplitColumn,
		c.MaskColumn, c.InsertDate, c.SQLCommand,
	}
}

// Config is a row of D_DB_2_HDFS_CONFIG: where a command's output lands.
type Config struct {
	ID           int64
	CommandID    sql.NullInt64
	CreateID     sql.NullInt64
	TableName    sql.NullString
	LocationPath sql.NullString
	RemovePath   sql.NullString
	Source       sql.NullString
	Description  sql.NullString
	IsActive     sql.NullInt64
	GroupID      sql.NullInt64
	MaxTime      sql.NullInt64
	InsertDate   sql.NullTime
	OutputFormat sql.NullString
	ImportType   sql.NullString
}

func (c Config) Values() []any {
	return []any{
		c.ID, c.CommandID, c.CreateID, c.TableName, c.LocationPath, c.RemovePath,
		c.Source, c.Description, c.IsActive, c.GroupID, c.MaxTime, c.InsertDate,
		c.OutputFormat, c.ImportType,
	}
}

// Create is a row of D_DB_2_HDFS_COMMAND_CREATE holding DDL or maintenance SQL.
type Create struct {
	ID           int64
	ConnectionID sql.NullInt64
	Description  sql.NullString
	InsertDate   sql.NullTime
	SQLCommand   sql.NullString
}

func (c Create) Values() []any {
	return []any{c.ID, c.ConnectionID, c.Description, c.InsertDate, c.SQLCommand}
}

// Clean is a row of D_CLEAN_FOLDER. CreateID is filled in after insertion by
// matching DESCRIPTION against generated drop-partition statements.
type Clean struct {
	Folder      string
	Description sql.NullString
	IsActive    sql.NullInt64
	CreateID    sql.NullInt64
	InsertDate  sql.NullTime
}

func (c Clean) Values() []any {
	return []any{c.Folder, c.Description, c.IsActive, c.CreateID, c.InsertDate}
}

// SourceTable is the (ID, TABLE_NAME) projection of a source config.
type SourceTable struct {
	ID        int64
	TableName sql.NullString
}

// PipelineRow is the read-only join of a source config, its command and its optional
// create statement. It is only used as transformation input.
type PipelineRow struct {
	ConfigID     int64
	CommandID    int64
	CreateID     sql.NullInt64
	TableName    sql.NullString
	LocationPath sql.NullString
	Source       sql.NullString
	Description  sql.NullString
	ImportType   sql.NullString

	ConnectionID    sql.NullInt64
	FetchSize       sql.NullInt64
	UsePartition    sql.NullInt64
	NumFields       sql.NullInt64
	NumExes         sql.NullInt64
	NumParts        sql.NullInt64
	CommandDesc     sql.NullString
	UseSubpartition sql.NullInt64
	Params          sql.NullString
	DBID            sql.NullInt64
	SplitColumn     sql.NullString
	CommandSQL      sql.NullString

	CreateConnectionID sql.NullInt64
	CreateDesc         sql.NullString
	CreateSQL          sql.NullString
}

// HistoryEntry is a row of D_DB_2_HDFS_HISTORY: one load attempt of a config.
type HistoryEntry struct {
	TableID int64
	PrdID   int64
	Status  string
}

func (h HistoryEntry) Values() []any {
	return []any{h.TableID, h.PrdID, h.Status}
}
