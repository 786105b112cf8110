// Package sqlitedb opens connections to registry database files and owns
// the small amount of SQLite-specific glue the rest of the tool needs.
//
// The driver is the pure Go modernc.org/sqlite, registered as "sqlite".
// Callers open a connection at the start of an operation and close it on
// every exit path; there is no package-level connection state.
package sqlitedb

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// busyTimeoutMS keeps long batch transactions from failing on SQLITE_BUSY.
// Generous on purpose: a single copy batch on a large table can hold a
// write lock for a while.
const busyTimeoutMS = 600000

// Open opens a registry database file for reading and writing.
//
// The pool is capped at one connection: the tool is single-threaded,
// and connection-level pragmas (foreign_keys in particular) must apply
// to the connection that runs the statements.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path, false))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenReadOnly opens a registry database file for reading only.
// Inspection and search never need write access.
func OpenReadOnly(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn(path, true))
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	return db, nil
}

func dsn(path string, readOnly bool) string {
	var b strings.Builder
	b.WriteString("file:")
	b.WriteString(path)
	fmt.Fprintf(&b, "?_pragma=busy_timeout(%d)", busyTimeoutMS)
	if readOnly {
		b.WriteString("&mode=ro")
	}
	return b.String()
}

// Quote wraps an identifier in double quotes for use in generated SQL.
// Identifiers must always come from the catalog (or be verified against
// it) before they reach generated statements; user-supplied values travel
// as bound parameters, never as SQL text.
func Quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteAll quotes every identifier in the slice and joins the result with
// commas, ready for a column list in generated SQL.
func QuoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = Quote(id)
	}
	return strings.Join(quoted, ", ")
}
