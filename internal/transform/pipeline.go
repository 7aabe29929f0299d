package transform

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
	"time"

	"catalog-sync/internal/model"
	"catalog-sync/internal/rewrite"
)

const (
	OutputFormatParquet = "PARQUET"

	// RetentionVariable is the time expression generated maintenance rows operate on.
	RetentionVariable = "${YYYYMMDD:MM-6}"
)

var pathVariable = regexp.MustCompile(`\$\{[^}]+\}`)

// Options carries the naming and default values applied to transformed pipeline rows.
type Options struct {
	RawRoot        string
	TableSchema    string
	DefaultGroupID int64
	DefaultMaxTime int64
}

// DefaultOptions returns the values used when configuration leaves them unset.
func DefaultOptions() Options {
	return Options{
		RawRoot:        "/raw_data",
		TableSchema:    rewrite.DefaultTableSchema,
		DefaultGroupID: 25251325,
		DefaultMaxTime: 900,
	}
}

// PipelineTransformer converts source pipeline rows into target commands, configs and
// create statements.
type PipelineTransformer struct {
	opts Options
	ddl  *rewrite.DDLRewriter
	now  func() time.Time
}

// NewPipelineTransformer creates a transformer. A nil clock uses time.Now.
func NewPipelineTransformer(opts Options, now func() time.Time) *PipelineTransformer {
	def := DefaultOptions()
	if strings.TrimSpace(opts.RawRoot) == "" {
		opts.RawRoot = def.RawRoot
	}
	if strings.TrimSpace(opts.TableSchema) == "" {
		opts.TableSchema = def.TableSchema
	}
	if opts.DefaultGroupID == 0 {
		opts.DefaultGroupID = def.DefaultGroupID
	}
	if opts.DefaultMaxTime == 0 {
		opts.DefaultMaxTime = def.DefaultMaxTime
	}
	if now == nil {
		now = time.Now
	}
	return &PipelineTransformer{
		opts: opts,
		ddl:  rewrite.NewDDLRewriter(opts.TableSchema),
		now:  now,
	}
}

// BaseTableName returns the part of a table name after its last dot.
func BaseTableName(name sql.NullString) string {
	n := strings.TrimSpace(name.String)
	if dot := strings.LastIndex(n, "."); dot >= 0 {
		n = n[dot+1:]
	}
	return n
}

// NormalizeTableName is the comparison form of a table name.
func NormalizeTableName(name sql.NullString) string {
	return strings.ToLower(BaseTableName(name))
}

// BasePath is the canonical storage directory of a table under a connection.
func (t *PipelineTransformer) BasePath(connName, table string) string {
	root := strings.TrimSuffix(t.opts.RawRoot, "/")
	return root + "/" + strings.ToLower(connName) + "/" + strings.ToLower(table)
}

// TransformConfig builds the target config for row. connName is the target connection
// name of the command's connection and determines the storage base path.
func (t *PipelineTransformer) TransformConfig(row model.PipelineRow, connName string) (model.Config, []rewrite.Diagnostic) {
	table := BaseTableName(row.TableName)
	if table == "" {
		table = fmt.Sprintf("unknown_table%d", row.ConfigID)
	}
	table = strings.ToLower(table)

	location, diags := rewrite.ResolvePath(row.LocationPath.String, t.BasePath(connName, table), row.ConfigID)

	return model.Config{
		ID:           row.ConfigID,
		CommandID:    model.Int64(row.CommandID),
		CreateID:     row.CreateID,
		TableName:    model.String(t.opts.TableSchema + "." + table),
		LocationPath: model.String(location),
		Source:       row.Source,
		Description:  row.Description,
		IsActive:     model.Int64(0),
		GroupID:      model.Int64(t.opts.DefaultGroupID),
		MaxTime:      model.Int64(t.opts.DefaultMaxTime),
		InsertDate:   sql.NullTime{Time: t.now(), Valid: true},
		OutputFormat: model.String(OutputFormatParquet),
		ImportType:   row.ImportType,
	}, diags
}

// TransformCommand builds the target command for row, keeping the mask column the target
// already had for this command id.
func (t *PipelineTransformer) TransformCommand(row model.PipelineRow, maskColumn sql.NullString) model.Command {
	return model.Command{
		ID:              row.CommandID,
		ConnectionID:    row.ConnectionID,
		FetchSize:       row.FetchSize,
		UsePartition:    row.UsePartition,
		NumFields:       row.NumFields,
		NumExes:         row.NumExes,
		NumParts:        row.NumParts,
		Description:     row.CommandDesc,
		UseSubpartition: row.UseSubpartition,
		Params:          row.Params,
		DBID:            row.DBID,
		SplitColumn:     row.SplitColumn,
		MaskColumn:      maskColumn,
		InsertDate:      sql.NullTime{Time: t.now(), Valid: true},
		SQLCommand:      row.CommandSQL,
	}
}

// TransformCreate rewrites the create statement of row. It reports false when the row has
// no create statement.
func (t *PipelineTransformer) TransformCreate(row model.PipelineRow, paths *rewrite.PathMap) (model.Create, bool, []rewrite.Diagnostic) {
	if !row.CreateID.Valid || !row.CreateSQL.Valid {
		return model.Create{}, false, nil
	}

	sqlText, diags := t.ddl.RewriteCreateStatement(row.CreateSQL.String, paths, row.CreateID.Int64)
	return model.Create{
		ID:           row.CreateID.Int64,
		ConnectionID: row.CreateConnectionID,
		Description:  row.CreateDesc,
		InsertDate:   sql.NullTime{Time: t.now(), Valid: true},
		SQLCommand:   model.String(sqlText),
	}, true, diags
}

// DropPartitionCreate synthesizes the retention statement for cfg's table.
func DropPartitionCreate(cfg model.Config, id int64) (model.Create, bool) {
	if !cfg.TableName.Valid {
		return model.Create{}, false
	}
	stmt := fmt.Sprintf(`ALTER TABLE %s DROP IF EXISTS PARTITION(partition="%s")`, cfg.TableName.String, RetentionVariable)
	return model.Create{
		ID:          id,
		Description: cfg.TableName,
		SQLCommand:  model.String(stmt),
	}, true
}

// CleanFromConfig synthesizes the folder cleanup row for cfg. Only locations with exactly
// one variable get one.
func (t *PipelineTransformer) CleanFromConfig(cfg model.Config) (model.Clean, bool) {
	if !cfg.LocationPath.Valid || rewrite.CountVariables(cfg.LocationPath.String) != 1 {
		return model.Clean{}, false
	}
	folder := pathVariable.ReplaceAllLiteralString(cfg.LocationPath.String, RetentionVariable)
	return model.Clean{
		Folder:      folder,
		Description: cfg.TableName,
		IsActive:    model.Int64(0),
		InsertDate:  sql.NullTime{Time: t.now(), Valid: true},
	}, true
}
