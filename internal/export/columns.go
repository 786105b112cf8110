// Package export writes column-level summaries of registry tables.
package export

import (
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"

	"cacdb/internal/schema"
	"cacdb/internal/sqlitedb"
)

// Columns writes a CSV of the table's column metadata plus one non-null
// sample value per column. A failure to sample a single column is
// recorded in that column's cell rather than aborting the export.
func Columns(db *sql.DB, table string, w io.Writer) error {
	cols, err := schema.Columns(db, table)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"column", "type", "notnull", "dflt_value", "pk", "sample"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, c := range cols {
		notNull := "0"
		if c.NotNull {
			notNull = "1"
		}
		record := []string{
			c.Name,
			c.Type,
			notNull,
			c.Default.String,
			fmt.Sprintf("%d", c.PK),
			sample(db, table, c.Name),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", c.Name, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}
	return nil
}

// sample fetches one non-null value of the column, empty when the column
// holds none.
func sample(db *sql.DB, table, column string) string {
	q := fmt.Sprintf("SELECT %s FROM %s WHERE %s IS NOT NULL LIMIT 1",
		sqlitedb.Quote(column), sqlitedb.Quote(table), sqlitedb.Quote(column))

	var v sql.NullString
	err := db.QueryRow(q).Scan(&v)
	switch {
	case err == sql.ErrNoRows:
		return ""
	case err != nil:
		return fmt.Sprintf("<error: %v>", err)
	}
	return v.String
}
