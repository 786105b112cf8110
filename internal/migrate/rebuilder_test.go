package migrate_test

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"testing"

	"cacdb/internal/migrate"
	"cacdb/internal/schema"
	"cacdb/internal/sqlitedb"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newRegistryDB creates a database file with an affiliates table of n
// rows, ids 1..n.
func newRegistryDB(t *testing.T, n int) (*sql.DB, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "registry.db")
	db, err := sqlitedb.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE affiliates (
		id INTEGER PRIMARY KEY,
		surname TEXT NOT NULL,
		firstname TEXT NOT NULL,
		notes TEXT,
		scratch TEXT DEFAULT 'x'
	)`)
	require.NoError(t, err)

	fillAffiliates(t, db, 1, n)
	return db, path
}

// fillAffiliates inserts rows with ids from..to inclusive.
func fillAffiliates(t *testing.T, db *sql.DB, from, to int) {
	t.Helper()
	gofakeit.Seed(42)

	tx, err := db.Begin()
	require.NoError(t, err)
	stmt, err := tx.Prepare(`INSERT INTO affiliates (id, surname, firstname, notes, scratch) VALUES (?, ?, ?, ?, ?)`)
	require.NoError(t, err)
	for id := from; id <= to; id++ {
		_, err := stmt.Exec(id, gofakeit.LastName(), gofakeit.FirstName(), gofakeit.Sentence(4), "junk")
		require.NoError(t, err)
	}
	require.NoError(t, stmt.Close())
	require.NoError(t, tx.Commit())
}

func columnNames(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	cols, err := schema.Columns(db, table)
	require.NoError(t, err)
	return schema.Names(cols)
}

func countRows(t *testing.T, db *sql.DB, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", table)).Scan(&n))
	return n
}

func TestDropColumns_Scenario(t *testing.T) {
	db, _ := newRegistryDB(t, 12345)

	var progressCalls int
	var last migrate.Progress
	result, err := migrate.DropColumns(db, "affiliates", []string{"id", "surname", "firstname"}, migrate.Options{
		BatchSize: 5000,
		OnProgress: func(p migrate.Progress) {
			progressCalls++
			last = p
		},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"notes", "scratch"}, result.Dropped)
	assert.Equal(t, int64(12345), result.Rows)

	// 12,345 ids at batch size 5000 is three value ranges.
	assert.Equal(t, 3, progressCalls)
	assert.Equal(t, int64(12345), last.Rows)
	assert.InDelta(t, 100.0, last.Percent, 0.01)

	assert.Equal(t, []string{"id", "surname", "firstname"}, columnNames(t, db, "affiliates"))
	assert.Equal(t, int64(12345), countRows(t, db, "affiliates"))

	// Constraints survive the rebuild.
	cols, err := schema.Columns(db, "affiliates")
	require.NoError(t, err)
	assert.Equal(t, 1, cols[0].PK)
	assert.True(t, cols[1].NotNull)
}

func TestDropColumns_RowContentPreserved(t *testing.T) {
	db, _ := newRegistryDB(t, 50)

	before := make(map[int64]string)
	rows, err := db.Query(`SELECT id, surname FROM affiliates`)
	require.NoError(t, err)
	for rows.Next() {
		var id int64
		var surname string
		require.NoError(t, rows.Scan(&id, &surname))
		before[id] = surname
	}
	require.NoError(t, rows.Err())

	_, err = migrate.DropColumns(db, "affiliates", []string{"id", "surname"}, migrate.Options{BatchSize: 7})
	require.NoError(t, err)

	after := make(map[int64]string)
	rows, err = db.Query(`SELECT id, surname FROM affiliates`)
	require.NoError(t, err)
	for rows.Next() {
		var id int64
		var surname string
		require.NoError(t, rows.Scan(&id, &surname))
		after[id] = surname
	}
	require.NoError(t, rows.Err())

	assert.Equal(t, before, after)
}

func TestDropColumns_KeepListOrderWins(t *testing.T) {
	db, _ := newRegistryDB(t, 10)

	_, err := migrate.DropColumns(db, "affiliates", []string{"surname", "id"}, migrate.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"surname", "id"}, columnNames(t, db, "affiliates"))
}

func TestDropColumns_Idempotent(t *testing.T) {
	db, _ := newRegistryDB(t, 100)
	keep := []string{"id", "surname", "firstname"}

	first, err := migrate.DropColumns(db, "affiliates", keep, migrate.Options{})
	require.NoError(t, err)
	require.Equal(t, []string{"notes", "scratch"}, first.Dropped)

	// Second run has nothing to drop: success, zero rows, no mutation.
	second, err := migrate.DropColumns(db, "affiliates", keep, migrate.Options{})
	require.NoError(t, err)
	assert.Empty(t, second.Dropped)
	assert.Zero(t, second.Rows)
	assert.Equal(t, int64(100), countRows(t, db, "affiliates"))
}

func TestDropColumns_BatchSizeInvariance(t *testing.T) {
	for _, size := range []int{1, 100, 20000} {
		t.Run(fmt.Sprintf("size_%d", size), func(t *testing.T) {
			db, _ := newRegistryDB(t, 250)

			result, err := migrate.DropColumns(db, "affiliates", []string{"id", "surname"}, migrate.Options{BatchSize: size})
			require.NoError(t, err)

			assert.Equal(t, int64(250), result.Rows)
			assert.Equal(t, []string{"id", "surname"}, columnNames(t, db, "affiliates"))
			assert.Equal(t, int64(250), countRows(t, db, "affiliates"))
		})
	}
}

func TestDropColumns_SparseBatchingColumn(t *testing.T) {
	db, _ := newRegistryDB(t, 0)
	// Large gaps: most batch ranges copy nothing, which must not stop
	// the loop.
	for _, id := range []int{1, 5000, 99999} {
		_, err := db.Exec(`INSERT INTO affiliates (id, surname, firstname) VALUES (?, 'A', 'B')`, id)
		require.NoError(t, err)
	}

	result, err := migrate.DropColumns(db, "affiliates", []string{"id", "surname"}, migrate.Options{BatchSize: 100})
	require.NoError(t, err)

	assert.Equal(t, int64(3), result.Rows)
	assert.Equal(t, int64(3), countRows(t, db, "affiliates"))
}

func TestDropColumns_EmptyTable(t *testing.T) {
	db, _ := newRegistryDB(t, 0)

	result, err := migrate.DropColumns(db, "affiliates", []string{"id"}, migrate.Options{})
	require.NoError(t, err)

	assert.Zero(t, result.Rows)
	assert.Equal(t, []string{"surname", "firstname", "notes", "scratch"}, result.Dropped)
	assert.Equal(t, []string{"id"}, columnNames(t, db, "affiliates"))
}

func TestDropColumns_TableNotFound(t *testing.T) {
	db, _ := newRegistryDB(t, 5)

	_, err := migrate.DropColumns(db, "organizations", []string{"id"}, migrate.Options{})
	require.ErrorIs(t, err, schema.ErrTableNotFound)

	// No mutation happened.
	assert.Equal(t, int64(5), countRows(t, db, "affiliates"))
}

func TestDropColumns_NoKeepColumns(t *testing.T) {
	db, _ := newRegistryDB(t, 5)

	_, err := migrate.DropColumns(db, "affiliates", []string{"ghost"}, migrate.Options{})
	require.ErrorIs(t, err, migrate.ErrNoKeepColumns)

	assert.Equal(t, int64(5), countRows(t, db, "affiliates"))
}

func TestDropColumns_PartialFailureContainment(t *testing.T) {
	db, _ := newRegistryDB(t, 200)

	// Sabotage the second batch: after the first commit, plant a row in
	// the shadow table whose id collides with the next range.
	injected := false
	_, err := migrate.DropColumns(db, "affiliates", []string{"id", "surname"}, migrate.Options{
		BatchSize: 100,
		OnProgress: func(p migrate.Progress) {
			if injected {
				return
			}
			injected = true
			_, err := db.Exec(`INSERT INTO affiliates_new (id, surname) VALUES (150, 'CLASH')`)
			require.NoError(t, err)
		},
	})
	require.Error(t, err)

	// Only the in-flight batch rolled back: the original table is still
	// whole and queryable, and the first batch survives in the shadow.
	assert.Equal(t, int64(200), countRows(t, db, "affiliates"))
	assert.Equal(t, []string{"id", "surname", "firstname", "notes", "scratch"}, columnNames(t, db, "affiliates"))
	assert.Equal(t, int64(101), countRows(t, db, "affiliates_new"))
}

func TestDropColumns_ShadowTableAlreadyExists(t *testing.T) {
	db, _ := newRegistryDB(t, 10)
	_, err := db.Exec(`CREATE TABLE affiliates_new (id INTEGER)`)
	require.NoError(t, err)

	_, err = migrate.DropColumns(db, "affiliates", []string{"id"}, migrate.Options{})
	require.Error(t, err)

	// Fails before any copy; the original is untouched.
	assert.Equal(t, int64(10), countRows(t, db, "affiliates"))
}

func TestDropColumns_NoPrimaryKeyUsesFirstKeptColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nopk.db")
	db, err := sqlitedb.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`CREATE TABLE tallies (bucket INTEGER, label TEXT, junk TEXT)`)
	require.NoError(t, err)
	for i := 1; i <= 30; i++ {
		_, err := db.Exec(`INSERT INTO tallies (bucket, label, junk) VALUES (?, 'L', 'J')`, i)
		require.NoError(t, err)
	}

	result, err := migrate.DropColumns(db, "tallies", []string{"bucket", "label"}, migrate.Options{BatchSize: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(30), result.Rows)
	assert.Equal(t, []string{"bucket", "label"}, columnNames(t, db, "tallies"))
}
