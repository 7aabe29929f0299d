package model

import (
	"database/sql"
	"strings"
)

// TimeParam is a row of D_TIME_PARAM_CONFIG. NAME is compared case-insensitively.
type TimeParam struct {
	Name         string
	AddDay       sql.NullInt64
	AddMon       sql.NullInt64
	AddYear      sql.NullInt64
	Format       sql.NullString
	ExtendFormat sql.NullString
	AddMin       sql.NullInt64
	AddHour      sql.NullInt64
}

func (t TimeParam) Values() []any {
	return []any{t.Name, t.AddDay, t.AddMon, t.AddYear, t.Format, t.ExtendFormat, t.AddMin, t.AddHour}
}

// Key is the dedup key: trimmed, lower-cased name.
func (t TimeParam) Key() string {
	return strings.ToLower(strings.TrimSpace(t.Name))
}
