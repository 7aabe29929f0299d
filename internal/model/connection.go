package model

import (
	"database/sql"
	"regexp"
	"strings"
)

// Connection is a row of D_CONNECTION. USER_NAME and PASS hold encrypted text in the
// source catalog; the target keeps the user name in clear and the password encrypted.
type Connection struct {
	ID             int64
	URL            sql.NullString
	UserName       sql.NullString
	Pass           sql.NullString
	Description    sql.NullString
	ConnectionName sql.NullString
	DriverName     sql.NullString
	DBID           sql.NullInt64
	Port           sql.NullString
	TypeDB         sql.NullString
	InsertDate     sql.NullTime
}

func (c Connection) Values() []any {
	return []any{
		c.ID, c.URL, c.UserName, c.Pass, c.Description, c.ConnectionName,
		c.DriverName, c.DBID, c.Port, c.TypeDB, c.InsertDate,
	}
}

var (
	dottedQuad = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
	hasLetter  = regexp.MustCompile(`[A-Za-z]`)
)

// IsFTPURL reports whether url is a bare dotted-quad IPv4 address. Such rows describe
// FTP endpoints rather than JDBC databases.
func IsFTPURL(url sql.NullString) bool {
	if !url.Valid {
		return false
	}
	u := strings.TrimSpace(url.String)
	return dottedQuad.MatchString(u) && !hasLetter.MatchString(u)
}

// IsFTP reports whether the connection is an FTP endpoint.
func (c Connection) IsFTP() bool {
	return IsFTPURL(c.URL)
}
