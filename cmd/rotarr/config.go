package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vmunix/rotarr/internal/config"
	"github.com/vmunix/rotarr/internal/lists"
	"github.com/vmunix/rotarr/internal/media"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configCheckCmd = &cobra.Command{
	Use:   "check [path]",
	Short: "Validate configuration file",
	Long:  "Validates config.toml syntax, required fields, preference files and environment variable substitution without contacting any service.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigCheck,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCheckCmd)
}

func runConfigCheck(cmd *cobra.Command, args []string) error {
	path := configPath
	if len(args) > 0 {
		path = args[0]
	}
	out := cmd.OutOrStdout()

	cfg, used, err := config.Resolve(path)
	if err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			printConfigErrors(out, cfgErr)
			return fmt.Errorf("configuration invalid")
		}
		return fmt.Errorf("failed to load config: %w", err)
	}
	if used == "" {
		used = "(no file found, using defaults)"
	}
	fmt.Fprintf(out, "Validated %s\n\n", used)

	printConfigSummary(out, cfg)
	if err := cfg.RequireCatalogs(); err != nil {
		var cfgErr *config.ConfigError
		if errors.As(err, &cfgErr) {
			fmt.Fprintln(out)
			printConfigErrors(out, cfgErr)
		}
		return fmt.Errorf("configuration invalid")
	}
	fmt.Fprintln(out, "\nConfiguration valid!")
	return nil
}

func printConfigErrors(w io.Writer, e *config.ConfigError) {
	if len(e.Missing) > 0 {
		fmt.Fprintln(w, "Missing environment variables:")
		for _, m := range e.Missing {
			fmt.Fprintf(w, "  - %s\n", m)
		}
		fmt.Fprintln(w)
	}

	if len(e.Errors) > 0 {
		fmt.Fprintln(w, "Validation errors:")
		for _, err := range e.Errors {
			fmt.Fprintf(w, "  - %s\n", err)
		}
	}
}

func printConfigSummary(w io.Writer, cfg *config.Config) {
	fmt.Fprintln(w, "Configuration Summary:")
	fmt.Fprintf(w, "  Ledger:     %s\n", cfg.Ledger.Path)
	fmt.Fprintf(w, "  HTTP:       timeout %s, %d retries\n", cfg.HTTP.Timeout, cfg.HTTP.Retries)

	provider := "trakt"
	if cfg.Rotation.UseMDBList {
		provider = "mdblist"
	}
	if cfg.TMDB.APIKey != "" {
		provider += ", tmdb id mapping"
	}
	fmt.Fprintf(w, "  Lists:      %s\n", provider)

	for _, kind := range media.Kinds {
		limit := "no limit"
		if gb := cfg.DiskLimitGB(kind); gb > 0 {
			limit = fmt.Sprintf("%g GiB", gb)
		}
		var srcs []string
		configured := lists.BuildSources(cfg.Rotation.UseMDBList, cfg.ListNames(kind))
		for _, s := range configured {
			srcs = append(srcs, s.String())
		}
		if !slices.Contains(configured, lists.DefaultFallback) {
			srcs = append(srcs, lists.DefaultFallback.String()+" (fallback)")
		}
		fmt.Fprintf(w, "  %-11s %s, %s\n", strings.ToUpper(kind.Plural()[:1])+kind.Plural()[1:]+":", cfg.Root(kind), limit)
		fmt.Fprintf(w, "              sources: %s\n", strings.Join(srcs, ", "))
	}

	catalogs := []string{}
	if cfg.Radarr.APIKey != "" {
		catalogs = append(catalogs, "radarr "+cfg.Radarr.URL)
	}
	if cfg.Sonarr.APIKey != "" {
		catalogs = append(catalogs, "sonarr "+cfg.Sonarr.URL)
	}
	if len(catalogs) == 0 {
		catalogs = append(catalogs, "(none)")
	}
	fmt.Fprintf(w, "  Catalogs:   %s\n", strings.Join(catalogs, ", "))
}
