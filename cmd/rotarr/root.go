package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vmunix/rotarr/internal/config"
)

var version = "dev"

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "rotarr",
	Short: "Disk-quota-bounded rotating media library",
	Long: `rotarr - keeps a rotating media library under a disk quota

Each pass evicts the oldest imported titles until every media root is
under its limit, then imports at most one new title per kind from the
configured Trakt or MDBList lists through Radarr and Sonarr.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var cfgErr *config.ConfigError
		if !errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: discovered)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override log.level (debug, info, warn, error)")

	rootCmd.Version = version
	rootCmd.SetVersionTemplate("rotarr {{.Version}}\n")
	rootCmd.SilenceErrors = true
}

// loadConfig resolves the configuration and prints configuration errors in full.
func loadConfig() (*config.Config, error) {
	cfg, path, err := config.Resolve(configPath)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(os.Stderr, cfgErr.Error())
		}
		return nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if path == "" {
		path = "(defaults)"
	}
	cfgSource = path
	return cfg, nil
}

// cfgSource records where the active configuration came from.
var cfgSource string
