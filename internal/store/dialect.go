package store

import (
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect captures what differs between the supported database engines.
// Queries are written once with '?' placeholders and rebound per dialect.
type Dialect struct {
	// Driver is the database/sql driver name.
	Driver string

	// Pragmas run once on the connection after it opens.
	Pragmas []string

	// Numbered reports whether placeholders are $1, $2, … instead of ?.
	Numbered bool

	// SingleConn limits the pool to one connection. SQLite only supports
	// one writer at a time.
	SingleConn bool

	// Sequence is the column definition of an auto-incrementing primary key.
	Sequence string
}

var (
	// SQLite is the default embedded store.
	SQLite = Dialect{
		Driver: "sqlite3",
		Pragmas: []string{
			"PRAGMA journal_mode = WAL",
			"PRAGMA synchronous = NORMAL",
			"PRAGMA busy_timeout = 5000",
			"PRAGMA foreign_keys = ON",
		},
		SingleConn: true,
		Sequence:   "INTEGER PRIMARY KEY AUTOINCREMENT",
	}

	// Postgres uses the pgx driver through database/sql.
	Postgres = Dialect{
		Driver:     "pgx",
		Numbered:   true,
		SingleConn: true,
		Sequence:   "BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY",
	}
)

// DialectFor returns the dialect registered under a driver name.
func DialectFor(driver string) (Dialect, bool) {
	switch driver {
	case "", SQLite.Driver, "sqlite":
		return SQLite, true
	case Postgres.Driver, "postgres", "postgresql":
		return Postgres, true
	}
	return Dialect{}, false
}

// Rebind rewrites '?' placeholders for the dialect. Question marks inside
// single-quoted literals are left alone.
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	quoted := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			quoted = !quoted
			b.WriteByte(c)
		case c == '?' && !quoted:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
