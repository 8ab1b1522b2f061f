package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/umarjalal00/location-providers/internal/locator"
	"github.com/umarjalal00/location-providers/internal/overlay"
)

var (
	resolveWidth  float64
	resolveHeight float64
	resolveJSON   bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [state]",
	Short: "Load a map and print where each city pin lands",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, closeData, err := dataProvider()
		if err != nil {
			return err
		}
		defer closeData()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		req := locator.LoadRequest{Map: overlay.Rect{Width: resolveWidth, Height: resolveHeight}}
		if len(args) == 1 {
			req.Region = args[0]
		}

		c := locator.New("cli", data, assetFetcher(), controllerOptions(nil))
		defer c.Close()
		v, err := c.Load(ctx, req)
		if err != nil {
			return err
		}

		if resolveJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(v)
		}

		fmt.Printf("Map: %s (%s)\n", v.State, v.Asset)
		for _, s := range v.Stages {
			if s.Error != "" {
				fmt.Printf("  %-14s %s: %s\n", s.Stage, s.Result, s.Error)
			} else {
				fmt.Printf("  %-14s %s\n", s.Stage, s.Result)
			}
		}
		if v.Fallback != nil {
			fmt.Printf("Fallback view: center %v zoom %d\n", v.Fallback.View.Center, v.Fallback.View.Zoom)
			for _, m := range v.Fallback.Markers() {
				fmt.Printf("  %-20s lat %9.4f  lng %9.4f\n", m.Slug, m.Lat, m.Lng)
			}
		}
		for _, p := range v.Pins {
			fmt.Printf("  %-20s x %7.1f  y %7.1f  (%s)\n", p.Slug, p.X, p.Y, p.Method)
		}
		fmt.Println(v.Message)
		return nil
	},
}

func init() {
	resolveCmd.Flags().Float64Var(&resolveWidth, "width", 0, "Rendered map width in pixels (default: map.width)")
	resolveCmd.Flags().Float64Var(&resolveHeight, "height", 0, "Rendered map height in pixels (default: map.height)")
	resolveCmd.Flags().BoolVar(&resolveJSON, "json", false, "Print the full view as JSON")
	rootCmd.AddCommand(resolveCmd)
}
