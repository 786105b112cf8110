package schema

import (
	"database/sql"
	"strings"

	"cacdb/internal/sqlitedb"
)

// Column describes one column of a registry table, as reported by the
// catalog. Immutable once read for the duration of a migration run.
type Column struct {
	Name    string
	Type    string
	NotNull bool
	Default sql.NullString
	// PK is the 1-based position of the column in the table's primary
	// key, 0 when the column is not part of the primary key.
	PK int
}

// Def renders the column as a definition fragment for CREATE TABLE:
// name type [NOT NULL] [DEFAULT value] [PRIMARY KEY].
// PRIMARY KEY is emitted only for the leading key column; SQLite takes
// a column-level PRIMARY KEY clause on one column only.
func (c Column) Def() string {
	parts := []string{sqlitedb.Quote(c.Name)}
	if c.Type != "" {
		parts = append(parts, c.Type)
	}
	if c.NotNull {
		parts = append(parts, "NOT NULL")
	}
	if c.Default.Valid {
		parts = append(parts, "DEFAULT "+c.Default.String)
	}
	if c.PK == 1 {
		parts = append(parts, "PRIMARY KEY")
	}
	return strings.Join(parts, " ")
}

// Names returns the column names in order.
func Names(cols []Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
