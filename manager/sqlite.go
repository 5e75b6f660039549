package manager

import (
	"context"

	odbc "github.com/lebje/go-odbc"
	"github.com/lebje/go-odbc/internal/sqlite"
	backend "github.com/yoshohai/sqlite3-backend"
)

// openSQLite opens the file named by Database, or a private in-memory
// database when none is given.
func openSQLite(_ context.Context, attrs Attributes) (odbc.NativeConn, error) {
	path := attrs.Get("Database", "DBQ")
	if path == "" {
		path = ":memory:"
	}
	c, err := sqlite.Open(path, backend.NewBackend())
	if err != nil {
		return nil, err
	}
	return c, nil
}
