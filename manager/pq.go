package manager

import (
	"context"
	"errors"
	"fmt"
	"strings"

	odbc "github.com/lebje/go-odbc"
	"github.com/lib/pq"
)

// pgConnString renders the attributes as a libpq keyword/value string,
// which both lib/pq and pgx accept.
func pgConnString(attrs Attributes) string {
	pairs := []struct{ key, val string }{
		{"host", attrs.Get("Server", "Servername", "Host")},
		{"port", attrs.Get("Port")},
		{"dbname", attrs.Get("Database", "DBName")},
		{"user", attrs.Get("UID", "Username", "User")},
		{"password", attrs.Get("PWD", "Password")},
		{"sslmode", attrs.Get("SSLMode")},
		{"application_name", attrs.Get("ApplicationName")},
	}
	var b strings.Builder
	for _, p := range pairs {
		if p.val == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		v := strings.ReplaceAll(p.val, `\`, `\\`)
		v = strings.ReplaceAll(v, `'`, `\'`)
		fmt.Fprintf(&b, "%s='%s'", p.key, v)
	}
	return b.String()
}

var pqDialect = &dialect{
	name:          "PostgreSQL",
	versionQuery:  "SHOW server_version",
	databaseQuery: "SELECT current_database()",
	numbered:      true,
	driverError:   pqError,
}

func pqError(err error) error {
	var pe *pq.Error
	if errors.As(err, &pe) {
		return &odbc.DriverError{State: string(pe.Code), Message: pe.Message}
	}
	return err
}

// openPQ connects through database/sql and lib/pq. It serves the ANSI
// PostgreSQL driver name.
func openPQ(ctx context.Context, attrs Attributes) (odbc.NativeConn, error) {
	c, err := openSQL(ctx, "postgres", pgConnString(attrs), pqDialect)
	if err != nil {
		return nil, err
	}
	return c, nil
}
