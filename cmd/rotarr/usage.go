package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/vmunix/rotarr/internal/config"
	"github.com/vmunix/rotarr/internal/diskusage"
	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/internal/quota"
)

var usageCmd = &cobra.Command{
	Use:   "usage",
	Short: "Show disk usage of each media root against its limit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		mon := diskusage.New(newLogger(cfg.Log, os.Stderr))
		printUsage(cmd.OutOrStdout(), cfg, mon)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(usageCmd)
}

func printUsage(w io.Writer, cfg *config.Config, meter quota.UsageMeter) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tROOT\tUSED\tLIMIT\tSTATUS")
	for _, kind := range media.Kinds {
		root := cfg.Root(kind)
		used := meter.UsageBytes(root)
		limit := quota.GiB(cfg.DiskLimitGB(kind))

		limitStr, status := "none", "-"
		if limit > 0 {
			limitStr = humanize.IBytes(uint64(limit))
			status = fmt.Sprintf("%.0f%%", float64(used)/float64(limit)*100)
			if used > limit {
				status += " over"
			}
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", kind.Plural(), root, humanize.IBytes(uint64(used)), limitStr, status)
	}
	_ = tw.Flush()
}
