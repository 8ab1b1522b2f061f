package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/umarjalal00/location-providers/internal/observability"
	"github.com/umarjalal00/location-providers/internal/provider"
	"github.com/umarjalal00/location-providers/internal/slug"
	"github.com/umarjalal00/location-providers/internal/web"
)

var (
	serveHost string
	servePort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the locator page, directory API and map API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("host") {
			serveHost = cfg.Server.Host
		}
		if !cmd.Flags().Changed("port") {
			servePort = cfg.Server.Port
		}

		metrics, err := observability.NewCollector(nil)
		if err != nil {
			return err
		}
		data, closeData, err := dataProvider()
		if err != nil {
			return err
		}
		defer closeData()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
		defer cancel()

		srv := &web.Server{
			Data:     provider.Instrument(data, metrics),
			Maps:     newRegistry(data, metrics),
			Country:  slug.NormalizeLocation(cfg.Map.Country),
			AssetDir: cfg.Assets.Dir,
			Nonce:    cfg.Provider.Nonce,
			Addr:     fmt.Sprintf("%s:%d", serveHost, servePort),
			Metrics:  metrics,
			Log:      logger,

			IdleTimeout: time.Duration(cfg.Server.IdleMinutes) * time.Minute,
		}
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "localhost", "Host to listen on")
	serveCmd.Flags().IntVar(&servePort, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd)
}
