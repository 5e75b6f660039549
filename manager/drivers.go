package manager

// Built-in driver names.
const (
	DriverPostgreSQL        = "PostgreSQL"
	DriverPostgreSQLUnicode = "PostgreSQL Unicode"
	DriverPostgreSQLANSI    = "PostgreSQL ANSI"
	DriverMySQL             = "MySQL"
	DriverSQLite            = "SQLite3"
)

func registerBuiltins(m *Manager) {
	pgAttrs := func(desc string) Attributes {
		return Attributes{"description": desc, "connectfunctions": "YYN", "sqllevel": "1"}
	}
	m.Register(DriverPostgreSQL, pgAttrs("PostgreSQL over pgx"), openPgx)
	m.Register(DriverPostgreSQLUnicode, pgAttrs("PostgreSQL over pgx"), openPgx)
	m.Register(DriverPostgreSQLANSI, pgAttrs("PostgreSQL over lib/pq"), openPQ)
	m.Register(DriverMySQL, Attributes{"description": "MySQL over go-sql-driver", "connectfunctions": "YYN"}, openMySQL)
	m.Register(DriverSQLite, Attributes{"description": "SQLite 3", "connectfunctions": "YYN"}, openSQLite)
}
