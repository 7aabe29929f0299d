package security

import (
	"errors"
	"strings"

	"vitess.io/vitess/go/vt/sqlparser"
)

var (
	ErrSQLSyntaxError = errors.New("SQL syntax error")
	ErrEmptyQuery     = errors.New("query cannot be empty")
	ErrQueryTooLong   = errors.New("query exceeds maximum length")
)

// StatementKind is a coarse classification of an extraction statement.
type StatementKind string

const (
	StatementSelect StatementKind = "select"
	StatementDML    StatementKind = "dml"
	StatementDDL    StatementKind = "ddl"
	StatementOther  StatementKind = "other"
)

// SQLValidator checks that extraction commands are read-only queries.
type SQLValidator struct {
	maxQueryLength int
	parser         *sqlparser.Parser
}

// NewSQLValidator creates a new SQLValidator instance
func NewSQLValidator(maxQueryLength int) *SQLValidator {
	if maxQueryLength <= 0 {
		maxQueryLength = 100000
	}
	return &SQLValidator{
		maxQueryLength: maxQueryLength,
		parser:         sqlparser.NewTestParser(),
	}
}

// Classify parses sql and reports what kind of statement it is. Vendor syntax the parser
// does not understand yields ErrSQLSyntaxError.
func (sv *SQLValidator) Classify(sql string) (StatementKind, error) {
	normalized := sv.normalizeSQL(sql)
	if normalized == "" {
		return "", ErrEmptyQuery
	}
	if len(normalized) > sv.maxQueryLength {
		return "", ErrQueryTooLong
	}

	stmt, err := sv.parser.Parse(normalized)
	if err != nil {
		return "", ErrSQLSyntaxError
	}
	return classify(stmt), nil
}

// IsReadOnly checks if the SQL statement is read-only
func (sv *SQLValidator) IsReadOnly(sql string) (bool, error) {
	kind, err := sv.Classify(sql)
	if err != nil {
		return false, err
	}
	return kind == StatementSelect, nil
}

func classify(stmt sqlparser.Statement) StatementKind {
	switch stmt.(type) {
	case *sqlparser.Select, *sqlparser.Union:
		return StatementSelect
	case *sqlparser.Insert, *sqlparser.Update, *sqlparser.Delete:
		return StatementDML
	case sqlparser.DDLStatement:
		return StatementDDL
	default:
		return StatementOther
	}
}

func (sv *SQLValidator) normalizeSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	sql = strings.TrimSuffix(sql, ";")
	return strings.TrimSpace(sql)
}
