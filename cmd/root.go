package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/umarjalal00/location-providers/internal/config"
	"github.com/umarjalal00/location-providers/internal/logging"
)

var (
	dataDir    string
	verbose    bool
	configPath string
	cfg        *config.Config
	logger     logging.Logger
)

var rootCmd = &cobra.Command{
	Use:           "provider-locator",
	Short:         "Interactive service provider map: basemaps, city pins and directory listings",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		if !cmd.Flags().Changed("data-dir") {
			dataDir = cfg.Data.Dir
		}

		level := cfg.Log.Level
		if verbose {
			level = "debug"
		}
		logger = logging.New(logging.Config{Level: level, Format: cfg.Log.Format})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.toml", "Path to configuration file")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "data", "Directory holding the provider database")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
