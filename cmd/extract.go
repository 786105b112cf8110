package cmd

import (
	"fmt"
	"os"

	"cacdb/internal/export"
	"cacdb/internal/sqlitedb"

	"github.com/spf13/cobra"
)

var extractOut string

var extractCmd = &cobra.Command{
	Use:   "extract <database> <table>",
	Short: "Export a table's column metadata and sample values to CSV",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, table := args[0], args[1]
		if err := requireFile(dbPath, "Database file"); err != nil {
			return err
		}

		out := extractOut
		if out == "" {
			out = table + "_columns.csv"
		}

		db, err := sqlitedb.OpenReadOnly(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}

		if err := export.Columns(db, table, f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}

		fmt.Println("Wrote", out)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(extractCmd)

	extractCmd.Flags().StringVar(&extractOut, "out", "", "Output CSV path (default <table>_columns.csv)")
}
