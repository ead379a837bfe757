// Package sql provides the statement builder and the database/sql backed
// driver used by userdb.
//
// # Values
//
// Column values are typed. The kind decides how a value is bound:
//
//	sql.String("alice")     // bound as a string
//	sql.Int(1)              // bound as an integer
//	sql.Date("1990/31/12")  // year/day/month, converted by the database
//	sql.Binary(pic)         // bound as raw bytes
//	sql.Absent()            // not provided, skipped by Insert and Update
//
// # Builders
//
// Statements are parameterized. Inline renders the same statement with
// literals and is only meant for logs:
//
//	st, err := sql.BuildSelect([]string{"USERNAME"}, "MYUSER",
//	    sql.NewConditionSet().EQ("USERNAME", "alice"))
//	st.Query    // SELECT USERNAME FROM MYUSER WHERE USERNAME = ?
//	st.Args     // [alice]
//	st.Inline() // SELECT USERNAME FROM MYUSER WHERE USERNAME = 'alice'
//
// The package level builders use the MySQL dialect. Use Dialect for others:
//
//	b := sql.Dialect(dialect.Postgres)
//	b.Select(...) // ... WHERE USERNAME = $1
//
// # Drivers
//
// Driver wraps *sql.DB. StatsDriver and DebugDriver wrap any
// dialect.Driver to collect statistics and log statements.
package sql
