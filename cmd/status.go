package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/umarjalal00/location-providers/internal/store"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show directory contents",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		fmt.Printf("Directory Status (%s)\n", s.Driver)
		fmt.Printf("================\n")
		fmt.Printf("Providers: %d\n", s.ProviderCount())
		fmt.Printf("Countries: %d\n", s.TermCount(store.TaxCountry))
		fmt.Printf("States:    %d\n", s.TermCount(store.TaxState))
		fmt.Printf("Cities:    %d\n", s.TermCount(store.TaxCity))
		if at := s.Meta("seeded_at"); at != "" {
			fmt.Printf("Seeded at: %s\n", at)
		}

		byCountry := s.ProviderCountByCountry()
		if len(byCountry) > 0 {
			fmt.Printf("\nPer-Country Breakdown\n")
			fmt.Printf("---------------------\n")

			var countries []string
			for c := range byCountry {
				countries = append(countries, c)
			}
			sort.Strings(countries)

			for _, c := range countries {
				fmt.Printf("  %-10s  providers: %3d\n", c, byCountry[c])
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
