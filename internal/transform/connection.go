package transform

import (
	"database/sql"
	"net/url"
	"regexp"
	"strings"
	"time"

	"catalog-sync/internal/model"
)

// UnknownName is produced when no database name can be derived from a URL.
const UnknownName = "unknown"

// Codec decrypts and encrypts credential columns. Implementations return the input
// unchanged when a value cannot be processed.
type Codec interface {
	Encrypt(v sql.NullString) sql.NullString
	Decrypt(v sql.NullString) sql.NullString
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)

	oracleDescriptor = regexp.MustCompile(`(?i)(?:SERVICE_NAME|SID)\s*=\s*([^\s)]+)`)
	oracleEasy       = regexp.MustCompile(`(?i)jdbc:oracle:.*@(?:/{0,2})[^:/]+:\d+[:/]([^:/?]+)`)
	genericPath      = regexp.MustCompile(`(?i)://[^/]+/([^?]+)`)
	databaseProperty = regexp.MustCompile(`(?i)(?:databaseName|database)\s*=\s*([^;]+)`)

	versionSuffix = regexp.MustCompile(`(?:v\d+|_\d+|\d+)$`)
	dottedQuad    = regexp.MustCompile(`^\d{1,3}(\.\d{1,3}){3}$`)
)

// DetectDriver returns the JDBC driver class for a connection URL.
func DetectDriver(rawURL string) string {
	return model.DatabaseTypeFromURL(rawURL).DriverClass()
}

// ExtractDBName pulls the database or service name out of a JDBC URL. It returns false
// when none of the known URL shapes match.
func ExtractDBName(rawURL string) (string, bool) {
	u := strings.TrimSpace(whitespaceRun.ReplaceAllString(rawURL, " "))
	if u == "" {
		return "", false
	}

	if m := oracleDescriptor.FindStringSubmatch(u); m != nil {
		return m[1], true
	}
	if m := oracleEasy.FindStringSubmatch(u); m != nil {
		return m[1], true
	}
	if strings.Contains(u, "://") {
		if m := genericPath.FindStringSubmatch(u); m != nil {
			return m[1], true
		}
	}
	if m := databaseProperty.FindStringSubmatch(u); m != nil {
		return m[1], true
	}
	return "", false
}

// NormalizeName turns a database name into a connection name: lower-cased, with a
// trailing "dg" (Data Guard standby) and a trailing version or number removed.
func NormalizeName(rawName string, ok bool) string {
	if !ok {
		return UnknownName
	}
	name := strings.ToLower(strings.TrimSpace(rawName))
	name = strings.TrimSuffix(name, "dg")
	return versionSuffix.ReplaceAllString(name, "")
}

// ExtractHostOrIP returns the host an FTP connection points at.
func ExtractHostOrIP(rawURL string) string {
	clean := strings.TrimSpace(rawURL)
	if dottedQuad.MatchString(clean) {
		return clean
	}
	if strings.HasPrefix(strings.ToLower(clean), "ftp://") {
		if parsed, err := url.Parse(clean); err == nil && parsed.Hostname() != "" {
			return parsed.Hostname()
		}
		rest := clean[len("ftp://"):]
		if slash := strings.Index(rest, "/"); slash >= 0 {
			rest = rest[:slash]
		}
		return rest
	}
	return clean
}

// NormalizeURL is the comparison form of a URL: no whitespace, lower-cased.
func NormalizeURL(v sql.NullString) string {
	if !v.Valid {
		return ""
	}
	return strings.ToLower(whitespaceRun.ReplaceAllString(v.String, ""))
}

// DisplayFields derives the connection name and driver class a catalog shows for c.
// fallback is used as the name when the URL carries no recognizable database name.
func DisplayFields(c model.Connection, fallback sql.NullString) (name, driver sql.NullString) {
	rawURL := strings.TrimSpace(c.URL.String)
	if model.IsFTPURL(c.URL) {
		return model.String("ftp_" + ExtractHostOrIP(rawURL)), model.String("")
	}

	driver = model.String(DetectDriver(rawURL))
	derived := NormalizeName(ExtractDBName(rawURL))
	if derived == UnknownName {
		return fallback, driver
	}
	return model.String(derived), driver
}

// TransformConnection converts a source connection into its target form. The user name is
// stored decrypted and the password re-encrypted. existing is the target row with the
// same id, if any; its name is kept when the URL yields no database name.
func TransformConnection(src model.Connection, existing *model.Connection, codec Codec, now time.Time) model.Connection {
	out := src
	if src.URL.Valid {
		out.URL = model.String(strings.TrimSpace(src.URL.String))
	}

	out.UserName = codec.Decrypt(src.UserName)
	out.Pass = codec.Encrypt(codec.Decrypt(src.Pass))

	fallback := src.ConnectionName
	if existing != nil {
		fallback = existing.ConnectionName
	}
	out.ConnectionName, out.DriverName = DisplayFields(out, fallback)
	out.InsertDate = sql.NullTime{Time: now, Valid: true}
	return out
}
