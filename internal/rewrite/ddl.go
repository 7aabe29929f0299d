package rewrite

import (
	"regexp"
	"strings"
)

// DefaultTableSchema is the schema rewritten table identifiers are moved into.
const DefaultTableSchema = "ingestion"

const parquetClause = "STORED AS PARQUET"

var (
	tableIdentifier = regexp.MustCompile(`(?i)\b(TABLE\s+(?:IF\s+(?:NOT\s+)?EXISTS\s+)?)([a-zA-Z0-9_]+(?:\.[a-zA-Z0-9_]+)?)`)

	storageFormat = regexp.MustCompile(`(?is)(ROW\s+FORMAT\s+DELIMITED(\s+FIELDS\s+TERMINATED\s+BY\s*'[^']*')?(\s+LINES\s+TERMINATED\s+BY\s*'[^']*')?)` +
		`|(STORED\s+AS\s+TEXTFILE)` +
		`|(STORED\s+AS\s+INPUTFORMAT\s+'[^']*'\s+OUTPUTFORMAT\s+'[^']*')` +
		`|(ROW\s+FORMAT\s+SERDE\s+'[^']*')`)

	repeatedParquet = regexp.MustCompile(`(?i)STORED AS PARQUET(\s+STORED AS PARQUET)+`)

	locationClause = regexp.MustCompile(`(?i)LOCATION\s+'([^']+)'`)
)

// DDLRewriter moves CREATE statements onto the canonical table schema, storage format
// and storage locations.
type DDLRewriter struct {
	tableSchema string
}

// NewDDLRewriter creates a rewriter that qualifies table names with tableSchema.
// An empty schema selects DefaultTableSchema.
func NewDDLRewriter(tableSchema string) *DDLRewriter {
	if strings.TrimSpace(tableSchema) == "" {
		tableSchema = DefaultTableSchema
	}
	return &DDLRewriter{tableSchema: strings.TrimSpace(tableSchema)}
}

// TableSchema returns the schema used to qualify table names.
func (r *DDLRewriter) TableSchema() string {
	return r.tableSchema
}

// RewriteCreateStatement rewrites table identifiers, storage format clauses and LOCATION
// paths. Locations under a base registered in paths are re-rooted with ResolvePath;
// all others are left as they are.
func (r *DDLRewriter) RewriteCreateStatement(sql string, paths *PathMap, contextID int64) (string, []Diagnostic) {
	out := r.qualifyTables(sql)
	out = replaceStorageFormat(out)

	var diags []Diagnostic
	out = locationClause.ReplaceAllStringFunc(out, func(clause string) string {
		path := locationClause.FindStringSubmatch(clause)[1]
		_, newBase, ok := paths.Match(path)
		if !ok {
			return clause
		}
		resolved, d := ResolvePath(path, newBase, contextID)
		diags = append(diags, d...)
		return "LOCATION '" + resolved + "'"
	})

	return out, diags
}

func (r *DDLRewriter) qualifyTables(sql string) string {
	return tableIdentifier.ReplaceAllStringFunc(sql, func(match string) string {
		parts := tableIdentifier.FindStringSubmatch(match)
		name := parts[2]
		if dot := strings.LastIndex(name, "."); dot >= 0 {
			name = name[dot+1:]
		}
		return parts[1] + r.tableSchema + "." + strings.ToLower(name)
	})
}

func replaceStorageFormat(sql string) string {
	out := storageFormat.ReplaceAllLiteralString(sql, parquetClause)
	return repeatedParquet.ReplaceAllLiteralString(out, parquetClause)
}
