// Package migrate shrinks a registry table's schema by rebuilding it with
// a reduced column set. The rebuild copies rows into a shadow table in
// bounded batches, each inside its own transaction, then swaps the shadow
// table in place of the original.
package migrate

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cacdb/internal/schema"
	"cacdb/internal/sqlitedb"
)

// ErrNoKeepColumns is returned when none of the requested keep columns
// exist in the table. Proceeding would create a table with no columns.
var ErrNoKeepColumns = errors.New("no keep columns exist in table")

// DefaultBatchSize is the value-range width of one copy batch.
const DefaultBatchSize = 5000

// Progress is a snapshot of the copy phase, emitted after each committed
// batch. Instrumentation for the caller, not a correctness signal.
type Progress struct {
	Rows       int64
	TotalRows  int64
	Percent    float64
	RowsPerSec float64
	Remaining  time.Duration
}

// Options configures a rebuild.
type Options struct {
	// BatchSize partitions the batching column's value range, not row
	// counts: a batch covers [lo, lo+BatchSize-1] and may copy fewer
	// rows than BatchSize when the range has gaps. Defaults to
	// DefaultBatchSize when zero.
	BatchSize int
	// OnProgress, when set, is called after each committed batch.
	OnProgress func(Progress)
}

// Result is the outcome of a successful rebuild.
type Result struct {
	Dropped []string
	Rows    int64
	Elapsed time.Duration
}

// DropColumns rebuilds table keeping only the columns named in keep,
// preserving each kept column's type, nullability, default and primary
// key flag. Keep names absent from the table are ignored. When nothing
// would be dropped the table is left untouched and the result reports
// zero rows.
//
// Failure mid-copy rolls back only the in-flight batch transaction:
// previously committed batches stay in the shadow table and the original
// table is still present. Both are left on disk for inspection; there is
// no automatic cleanup or resume.
//
// The caller must guarantee single-writer access for the duration: rows
// written by others between the range scan and the final rename are
// silently lost.
func DropColumns(db *sql.DB, table string, keep []string, opts Options) (*Result, error) {
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	// Foreign key consistency is out of scope for the rebuild.
	if _, err := db.Exec("PRAGMA foreign_keys = OFF"); err != nil {
		return nil, fmt.Errorf("failed to disable foreign keys: %w", err)
	}

	ok, err := schema.TableExists(db, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", schema.ErrTableNotFound, table)
	}

	current, err := schema.Columns(db, table)
	if err != nil {
		return nil, err
	}

	kept, dropped := schema.Reconcile(current, keep)
	if len(dropped) == 0 {
		return &Result{Rows: 0}, nil
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoKeepColumns, table)
	}

	start := time.Now()
	res, err := rebuild(db, table, kept, batchSize, opts.OnProgress)
	if err != nil {
		return nil, err
	}
	res.Dropped = dropped
	res.Elapsed = time.Since(start)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to re-enable foreign keys: %w", err)
	}
	return res, nil
}

func rebuild(db *sql.DB, table string, kept []schema.Column, batchSize int, onProgress func(Progress)) (*Result, error) {
	shadow := table + "_new"
	keptNames := sqlitedb.QuoteAll(schema.Names(kept))

	defs := make([]string, len(kept))
	for i, c := range kept {
		defs[i] = c.Def()
	}
	createStmt := fmt.Sprintf("CREATE TABLE %s (%s)", sqlitedb.Quote(shadow), strings.Join(defs, ", "))
	if _, err := db.Exec(createStmt); err != nil {
		return nil, fmt.Errorf("failed to create shadow table %s: %w", shadow, err)
	}

	var totalRows int64
	if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", sqlitedb.Quote(table))).Scan(&totalRows); err != nil {
		return nil, fmt.Errorf("failed to count rows of %s: %w", table, err)
	}

	batchCol := batchColumn(kept)

	var minVal, maxVal sql.NullInt64
	scanStmt := fmt.Sprintf("SELECT MIN(%s), MAX(%s) FROM %s",
		sqlitedb.Quote(batchCol), sqlitedb.Quote(batchCol), sqlitedb.Quote(table))
	if err := db.QueryRow(scanStmt).Scan(&minVal, &maxVal); err != nil {
		return nil, fmt.Errorf("failed to scan range of %s.%s: %w", table, batchCol, err)
	}

	insertStmt := fmt.Sprintf("INSERT INTO %s SELECT %s FROM %s WHERE %s >= ? AND %s <= ?",
		sqlitedb.Quote(shadow), keptNames, sqlitedb.Quote(table),
		sqlitedb.Quote(batchCol), sqlitedb.Quote(batchCol))

	start := time.Now()
	var processed int64

	// NULL min means an empty table: nothing to copy, go straight to
	// the swap.
	if minVal.Valid && maxVal.Valid {
		for lo := minVal.Int64; lo <= maxVal.Int64; lo += int64(batchSize) {
			hi := lo + int64(batchSize) - 1

			tx, err := db.Begin()
			if err != nil {
				return nil, fmt.Errorf("failed to begin batch transaction: %w", err)
			}
			res, err := tx.Exec(insertStmt, lo, hi)
			if err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("failed to copy batch [%d, %d] of %s: %w", lo, hi, table, err)
			}
			// A sparse range copies fewer rows than the batch size, or
			// none at all. Termination is bound-based, never count-based.
			// A driver that cannot report a count for INSERT..SELECT
			// counts as zero; the batch itself already succeeded, so an
			// unavailable count only understates the progress figures.
			n, err := res.RowsAffected()
			if err == nil && n > 0 {
				processed += n
			}
			if err := tx.Commit(); err != nil {
				return nil, fmt.Errorf("failed to commit batch [%d, %d] of %s: %w", lo, hi, table, err)
			}

			if onProgress != nil {
				onProgress(snapshot(processed, totalRows, time.Since(start)))
			}
		}
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin swap transaction: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf("DROP TABLE %s", sqlitedb.Quote(table))); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to drop original table %s: %w", table, err)
	}
	if _, err := tx.Exec(fmt.Sprintf("ALTER TABLE %s RENAME TO %s", sqlitedb.Quote(shadow), sqlitedb.Quote(table))); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to rename %s to %s: %w", shadow, table, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit table swap: %w", err)
	}

	return &Result{Rows: processed}, nil
}

// batchColumn picks the column used to partition the copy into ranges:
// the first primary key column among the kept columns, else the first
// kept column.
func batchColumn(kept []schema.Column) string {
	for _, c := range kept {
		if c.PK > 0 {
			return c.Name
		}
	}
	return kept[0].Name
}

func snapshot(processed, total int64, elapsed time.Duration) Progress {
	p := Progress{Rows: processed, TotalRows: total}
	if total > 0 {
		p.Percent = float64(processed) / float64(total) * 100
	}
	if secs := elapsed.Seconds(); secs > 0 {
		p.RowsPerSec = float64(processed) / secs
	}
	if p.RowsPerSec > 0 {
		p.Remaining = time.Duration(float64(total-processed) / p.RowsPerSec * float64(time.Second))
	}
	return p
}
