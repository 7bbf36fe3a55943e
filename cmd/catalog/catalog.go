// Package catalog implements the catalog inspection command.
package catalog

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aquatrace/aquatrace-go/internal/conf"
	"github.com/aquatrace/aquatrace-go/internal/species"
)

// Command creates the catalog command.
func Command(settings *conf.Settings) *cobra.Command {
	var showPremium bool

	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the loaded species catalog",
		Long:  "Load the species catalog and print every record for inspection.",
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := species.New(settings.Species.CatalogPath)
			if err != nil {
				return err
			}

			records := catalog.All(showPremium)
			for _, record := range records {
				tier := ""
				if record.Premium {
					tier = " [premium]"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%-18s %-24s %-28s %s%s\n",
					record.ID, record.CommonName, record.ScientificName,
					record.ConservationStatus, tier)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d species\n", len(records))
			return nil
		},
	}

	cmd.Flags().BoolVar(&showPremium, "premium", true, "Include premium species in the listing")

	return cmd
}
