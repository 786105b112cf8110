package cmd

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"cacdb/internal/migrate"
	"cacdb/internal/sqlitedb"

	"github.com/gosuri/uiprogress"
	"github.com/spf13/cobra"
)

var (
	batchSize   int
	columnsFile string
	backup      bool
)

var dropColumnsCmd = &cobra.Command{
	Use:   "drop-columns <database> <table>",
	Short: "Drop all columns from a table except those listed in a file",
	Long: `Rebuild a table keeping only the columns named in the columns file
(one name per line). Rows are copied into the replacement table in
batches, each in its own transaction, so the whole table never has to
fit in one transaction.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, table := args[0], args[1]

		if err := requireFile(dbPath, "Database file"); err != nil {
			return err
		}

		settings, err := GetSettings()
		if err != nil {
			return err
		}

		// Precedence: flag > config > built-in default.
		keepFile := columnsFile
		if keepFile == "" {
			keepFile = settings.ColumnsFile
		}
		if keepFile == "" {
			return fmt.Errorf("no columns file given (use --columns-file or settings.columns_file)")
		}
		if err := requireFile(keepFile, "Columns file"); err != nil {
			return err
		}

		size := settings.BatchSize
		if batchSize > 0 {
			size = batchSize
		}
		if size <= 0 {
			size = migrate.DefaultBatchSize
		}

		log.Printf("Reading columns to keep from: %s", keepFile)
		keep, err := migrate.ReadColumnsFile(keepFile)
		if err != nil {
			return err
		}

		if backup || settings.Backup {
			backupPath, err := migrate.Backup(dbPath)
			if err != nil {
				return fmt.Errorf("aborting, backup failed: %w", err)
			}
			fmt.Printf("Created backup at: %s\n", backupPath)
		}

		db, err := sqlitedb.Open(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		log.Printf("Starting migration of %s with batch size %d", table, size)
		start := time.Now()

		uiprogress.Start()
		bar := uiprogress.AddBar(100).AppendCompleted().PrependElapsed()

		// The render goroutine reads the snapshot while the migration
		// goroutine updates it.
		var mu sync.Mutex
		var last migrate.Progress
		bar.AppendFunc(func(b *uiprogress.Bar) string {
			mu.Lock()
			defer mu.Unlock()
			return fmt.Sprintf(" %d/%d rows - %.1f rows/sec - ETA %s",
				last.Rows, last.TotalRows, last.RowsPerSec, last.Remaining.Round(time.Second))
		})

		result, err := migrate.DropColumns(db, table, keep, migrate.Options{
			BatchSize: size,
			OnProgress: func(p migrate.Progress) {
				mu.Lock()
				last = p
				mu.Unlock()
				bar.Set(int(p.Percent))
			},
		})

		uiprogress.Stop()

		if err != nil {
			return err
		}

		if len(result.Dropped) == 0 {
			fmt.Println("No columns to drop.")
			return nil
		}

		elapsed := time.Since(start)
		fmt.Println("\n📊 Migration Summary:")
		fmt.Printf("Dropped %d columns from %s: %s\n",
			len(result.Dropped), table, strings.Join(result.Dropped, ", "))
		rate := float64(result.Rows)
		if secs := result.Elapsed.Seconds(); secs > 0 {
			rate = float64(result.Rows) / secs
		}
		fmt.Printf("Processed %d rows in %.2f seconds (%.1f rows/sec)\n",
			result.Rows, result.Elapsed.Seconds(), rate)
		log.Printf("Migration done! Time elapsed: %s", elapsed)

		return nil
	},
}

func init() {
	RootCmd.AddCommand(dropColumnsCmd)

	dropColumnsCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Value range covered by each copy batch (overrides config)")
	dropColumnsCmd.Flags().StringVar(&columnsFile, "columns-file", "", "File listing the columns to keep, one per line")
	dropColumnsCmd.Flags().BoolVar(&backup, "backup", false, "Copy the database file aside before making changes")
}
