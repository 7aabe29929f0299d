package model

import (
	"database/sql"
	"sort"
	"strings"
)

// Table describes a catalog table: its name, ordered columns and key column.
// Entities return their values in Columns order and scanners read in the same order.
type Table struct {
	Name    string
	Columns []string
	Key     string
}

// Record is a row that can be written through a Table descriptor.
type Record interface {
	Values() []any
}

// Records converts a typed slice into the generic form the batch writer takes.
func Records[T Record](rows []T) []Record {
	out := make([]Record, len(rows))
	for i, row := range rows {
		out[i] = row
	}
	return out
}

// ColumnList joins the column names for use in SELECT and INSERT statements.
func (t Table) ColumnList() string {
	return strings.Join(t.Columns, ", ")
}

var (
	ConnectionTable = Table{
		Name: "D_CONNECTION",
		Key:  "ID",
		Columns: []string{
			"ID", "URL", "USER_NAME", "PASS", "DESCRIPTION", "CONNECTION_NAME",
			"DRIVER_NAME", "ID_DB", "PORT", "TYPE_DB", "INSERT_DATE",
		},
	}

	CommandTable = Table{
		Name: "D_DB_2_HDFS_COMMAND",
		Key:  "ID",
		Columns: []string{
			"ID", "ID_CONNECTION", "FETCH_SIZE", "USE_PARTITION", "NUM_FIELDS", "NUM_EXES",
			"NUM_PARTS", "DESCRIPTION", "USE_SUBPARTITION", "PARAMS", "ID_DB", "SPLIT_COLUMN",
			"MASK_COLUMN", "INSERT_DATE", "SQL_COMMAND",
		},
	}

	ConfigTable = Table{
		Name: "D_DB_2_HDFS_CONFIG",
		Key:  "ID",
		Columns: []string{
			"ID", "ID_COMMAND", "ID_COMMAND_CREATE", "TABLE_NAME", "LOCATION_PATH", "REMOVE_PATH",
			"SOURCE", "DESCRIPTION", "IS_ACTIVE", "ID_GROUP", "MAX_TIME", "INSERT_DATE",
			"OUTPUT_FORMAT", "IMPORT_TYPE",
		},
	}

	CreateTable = Table{
		Name:    "D_DB_2_HDFS_COMMAND_CREATE",
		Key:     "ID",
		Columns: []string{"ID", "ID_CONNECTION", "DESCRIPTION", "INSERT_DATE", "SQL_COMMAND"},
	}

	CleanTable = Table{
		Name:    "D_CLEAN_FOLDER",
		Key:     "FOLDER",
		Columns: []string{"FOLDER", "DESCRIPTION", "IS_ACTIVE", "ID_COMMAND_CREATE", "INSERT_DATE"},
	}

	TimeParamTable = Table{
		Name: "D_TIME_PARAM_CONFIG",
		Key:  "NAME",
		Columns: []string{
			"NAME", "ADD_DAY", "ADD_MON", "ADD_YEAR", "FORMAT", "EXTEND_FORMAT", "ADD_MIN", "ADD_HOUR",
		},
	}

	HistoryTable = Table{
		Name:    "D_DB_2_HDFS_HISTORY",
		Key:     "ID_TABLE",
		Columns: []string{"ID_TABLE", "PRD_ID", "STATUS"},
	}
)

// IDSet is a set of numeric row identifiers.
type IDSet map[int64]struct{}

// NewIDSet builds a set from the given ids.
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s IDSet) Add(id int64) { s[id] = struct{}{} }

func (s IDSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// HasNull reports whether a nullable id is present; null is never a member.
func (s IDSet) HasNull(id sql.NullInt64) bool {
	return id.Valid && s.Has(id.Int64)
}

// Sorted returns the members in ascending order.
func (s IDSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// String wraps a non-null string value.
func String(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// NullableString maps blank text to null.
func NullableString(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return String(s)
}

// Int64 wraps a non-null integer value.
func Int64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: true}
}
