package schema

import (
	"database/sql"
	"errors"
	"fmt"

	"cacdb/internal/sqlitedb"
)

// ErrTableNotFound is returned when the requested table is absent from
// the catalog.
var ErrTableNotFound = errors.New("table not found")

// Tables lists the user tables in the database, in sqlite_master order.
func Tables(db *sql.DB) ([]string, error) {
	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

// TableExists reports whether the named table is present in the catalog.
func TableExists(db *sql.DB, table string) (bool, error) {
	var name string
	err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, fmt.Errorf("failed to check table %s: %w", table, err)
	}
	return true, nil
}

// Columns returns the ordered column definitions of the named table,
// read from PRAGMA table_info. Returns ErrTableNotFound when the table
// is absent from the catalog. Read-only: never mutates state.
func Columns(db *sql.DB, table string) ([]Column, error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", sqlitedb.Quote(table)))
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var cols []Column
	for rows.Next() {
		var (
			cid     int
			name    string
			ctype   string
			notNull int
			dflt    sql.NullString
			pk      int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notNull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan column of %s: %w", table, err)
		}
		cols = append(cols, Column{
			Name:    name,
			Type:    ctype,
			NotNull: notNull == 1,
			Default: dflt,
			PK:      pk,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns of %s: %w", table, err)
	}

	// PRAGMA table_info returns an empty set rather than an error for
	// unknown tables.
	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return cols, nil
}
