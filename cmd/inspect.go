package cmd

import (
	"fmt"

	"cacdb/internal/schema"
	"cacdb/internal/sqlitedb"

	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <database>",
	Short: "List every table and its column schema",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := args[0]
		if err := requireFile(dbPath, "Database file"); err != nil {
			return err
		}

		db, err := sqlitedb.OpenReadOnly(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		tables, err := schema.Tables(db)
		if err != nil {
			return err
		}

		fmt.Println("Tables in the database:")
		for _, table := range tables {
			fmt.Printf("- %s\n", table)
			cols, err := schema.Columns(db, table)
			if err != nil {
				return err
			}
			fmt.Printf("  Schema for table '%s':\n", table)
			for _, c := range cols {
				fmt.Printf("    Column: %s, Type: %s, Not Null: %t, Primary Key: %d\n",
					c.Name, c.Type, c.NotNull, c.PK)
			}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(inspectCmd)
}
