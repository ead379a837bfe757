// Package dialect provides database dialect abstraction for userdb.
//
// This package defines the interfaces used by the store to execute
// statements, allowing the same entity adapters to run against MySQL,
// PostgreSQL and SQLite.
//
// # Dialect Constants
//
//	dialect.MySQL    = "mysql"
//	dialect.Postgres = "postgres"
//	dialect.SQLite   = "sqlite"
//
// The dialect name also selects the placeholder style and the date binding
// used by the statement builder in dialect/sql.
//
// # Driver Interface
//
//	type Driver interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Usage
//
//	drv, err := sql.Open(dialect.MySQL, dsn)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
//	st := store.New(drv)
package dialect
