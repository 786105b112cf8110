package cmd

import (
	"fmt"

	"cacdb/internal/search"
	"cacdb/internal/sqlitedb"

	"github.com/spf13/cobra"
)

var (
	searchBy      string
	searchColumns []string
)

var searchCmd = &cobra.Command{
	Use:   "search <database> <term>",
	Short: "Search businesses and their affiliates",
	Long: `Run a LIKE-based search across the registry. --by selects the side to
search: business (default), affiliate, or combined. --columns restricts
the searched columns; names are checked against the table catalog.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath, term := args[0], args[1]
		if err := requireFile(dbPath, "Database file"); err != nil {
			return err
		}

		db, err := sqlitedb.OpenReadOnly(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		q, err := search.NewQuerier(db)
		if err != nil {
			return err
		}

		var matches []search.Match
		switch searchBy {
		case "business":
			matches, err = q.ByBusiness(term, searchColumns)
		case "affiliate":
			matches, err = q.ByAffiliate(term, searchColumns)
		case "combined":
			// --columns applies to the business side here; the affiliate
			// side uses its defaults.
			matches, err = q.Combined(term, searchColumns, nil)
		default:
			return fmt.Errorf("invalid --by value %q (want business, affiliate or combined)", searchBy)
		}
		if err != nil {
			return err
		}

		fmt.Printf("🔍 %d matches for %q:\n", len(matches), term)
		for _, m := range matches {
			fmt.Printf("[%d] %s (RC %s) %s\n",
				m.BusinessID, m.BusinessName.String, m.RCNumber.String, m.Address.String)
			if m.AffiliateID.Valid {
				fmt.Printf("    └ affiliate #%d: %s %s <%s>\n",
					m.AffiliateID.Int64, m.Firstname.String, m.Surname.String, m.Email.String)
			}
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchBy, "by", "business", "Search side: business, affiliate or combined")
	searchCmd.Flags().StringSliceVar(&searchColumns, "columns", nil, "Columns to search (comma-separated, default depends on --by)")
}
