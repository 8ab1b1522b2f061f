package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the sample provider directory into an empty database",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openStore()
		if err != nil {
			return err
		}
		defer s.Close()

		seeded, err := s.Seed(context.Background())
		if err != nil {
			return fmt.Errorf("seeding: %w", err)
		}
		if !seeded {
			fmt.Println("Database already has providers; nothing seeded.")
			return nil
		}
		fmt.Printf("Seeded %d providers.\n", s.ProviderCount())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
