/*
Package odbc is a small ODBC client core: it opens connections through a
driver manager, prepares statements, binds typed parameters by position and
reads typed, nullable column values from a cursor.

	env := odbc.NewEnvironment(dm)
	defer env.Close()

	conn, err := env.Open(odbc.ConnectionString("Driver={SQLite3};Database=app.db;"), 5*time.Second)
	if err != nil {
		return err
	}
	defer conn.Close()

	stmt, err := conn.Prepare("SELECT id, name FROM widgets WHERE id = ?", 0)
	if err != nil {
		return err
	}
	defer stmt.Close()

	res, err := stmt.ExecuteWith(0, odbc.Int32(1))
	if err != nil {
		return err
	}
	for {
		ok, err := res.Next()
		if err != nil || !ok {
			break
		}
		name, err := res.String(odbc.Named("name"))
		...
	}

Ownership is strictly hierarchical: an Environment owns Connections, a
Connection owns Statements, a Statement owns Results. Closing an owner closes
its open children first. None of these types may be used from several
goroutines at once.

The driver manager is any DriverManager; package manager provides one that
routes connection strings to PostgreSQL, MySQL and SQLite drivers, and package
odbctest provides an in-memory one for tests.
*/
package odbc
