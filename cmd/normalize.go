package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/umarjalal00/location-providers/internal/slug"
)

var normalizeLocation bool

var normalizeCmd = &cobra.Command{
	Use:   "normalize <identifier>...",
	Short: "Print the canonical key for region (or, with --location, city) identifiers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, raw := range args {
			key := slug.NormalizeRegion(raw)
			if normalizeLocation {
				key = slug.NormalizeLocation(raw)
			}
			fmt.Printf("%-24q %s\n", raw, key)
		}
		return nil
	},
}

func init() {
	normalizeCmd.Flags().BoolVar(&normalizeLocation, "location", false, "Normalize as a location slug")
	rootCmd.AddCommand(normalizeCmd)
}
