package manager

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-sql-driver/mysql"
	odbc "github.com/lebje/go-odbc"
)

var mysqlDialect = &dialect{
	name:          "MySQL",
	versionQuery:  "SELECT VERSION()",
	databaseQuery: "SELECT DATABASE()",
	driverError:   mysqlError,
}

func mysqlError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		state := string(me.SQLState[:])
		if me.SQLState == [5]byte{} {
			state = "HY000"
		}
		return &odbc.DriverError{State: state, NativeCode: int(me.Number), Message: me.Message}
	}
	return err
}

// mysqlDSN builds the go-sql-driver DSN. Temporal columns are parsed into
// time.Time in UTC.
func mysqlDSN(ctx context.Context, attrs Attributes) string {
	cfg := mysql.NewConfig()
	cfg.User = attrs.Get("UID", "User")
	cfg.Passwd = attrs.Get("PWD", "Password")
	cfg.DBName = attrs.Get("Database", "DB")
	cfg.Net = "tcp"
	if sock := attrs.Get("Socket"); sock != "" {
		cfg.Net = "unix"
		cfg.Addr = sock
	} else {
		host := attrs.Get("Server", "Host")
		if host == "" {
			host = "localhost"
		}
		port := attrs.Get("Port")
		if port == "" {
			port = "3306"
		}
		cfg.Addr = net.JoinHostPort(host, port)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if deadline, ok := ctx.Deadline(); ok {
		cfg.Timeout = time.Until(deadline)
	}
	return cfg.FormatDSN()
}

func openMySQL(ctx context.Context, attrs Attributes) (odbc.NativeConn, error) {
	c, err := openSQL(ctx, "mysql", mysqlDSN(ctx, attrs), mysqlDialect)
	if err != nil {
		return nil, err
	}
	return c, nil
}
