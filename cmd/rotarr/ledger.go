package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vmunix/rotarr/internal/catalog"
	"github.com/vmunix/rotarr/internal/ledger"
	"github.com/vmunix/rotarr/internal/media"
)

var (
	ledgerKind  string
	ledgerLimit int
	ledgerPurge bool
)

var ledgerCmd = &cobra.Command{
	Use:   "ledger",
	Short: "Inspect and edit the import ledger",
}

var ledgerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List imported titles, oldest first",
	Args:  cobra.NoArgs,
	RunE:  runLedgerList,
}

var ledgerRemoveCmd = &cobra.Command{
	Use:   "remove <external-id>...",
	Short: "Forget imported titles",
	Long: `Removes entries from the import ledger so they are no longer eviction
candidates. With --purge the title is also deleted from its catalog.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLedgerRemove,
}

func init() {
	rootCmd.AddCommand(ledgerCmd)
	ledgerCmd.AddCommand(ledgerListCmd, ledgerRemoveCmd)

	ledgerListCmd.Flags().StringVar(&ledgerKind, "kind", "", "Filter by kind (movie, show)")
	ledgerListCmd.Flags().IntVar(&ledgerLimit, "limit", 0, "Maximum entries to show")
	ledgerRemoveCmd.Flags().BoolVar(&ledgerPurge, "purge", false, "Also delete the title and its files from the catalog")
}

func runLedgerList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openLedger(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	filter := ledger.Filter{Limit: ledgerLimit}
	if ledgerKind != "" {
		kind, err := media.ParseKind(ledgerKind)
		if err != nil {
			return err
		}
		filter.Kind = &kind
	}

	entries, err := store.List(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list ledger: %w", err)
	}
	printEntries(cmd.OutOrStdout(), entries)
	return nil
}

func printEntries(w io.Writer, entries []*ledger.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No imported titles.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tID\tTITLE\tSOURCE\tIMPORTED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", e.Kind, e.ExternalID, e.Title, e.SourceList,
			e.ImportedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = tw.Flush()
}

func runLedgerRemove(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, err := openLedger(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	unlock, err := acquireRunLock(cfg)
	if err != nil {
		return err
	}
	defer unlock()

	log := newLogger(cfg.Log, os.Stderr)
	return removeEntries(ctx, cmd.OutOrStdout(), store, buildCatalogs(cfg, log), args, ledgerPurge)
}

// removeEntries forgets each id, deleting it from its catalog first when purge is set.
// It stops at the first failure; earlier ids stay removed.
func removeEntries(ctx context.Context, out io.Writer, store *ledger.Store, catalogs catalog.Set, ids []string, purge bool) error {
	for _, id := range ids {
		entry, err := store.Get(ctx, id)
		if err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		if purge {
			cat, ok := catalogs.For(entry.Kind)
			if !ok {
				return fmt.Errorf("%s: no %s catalog configured", id, entry.Kind)
			}
			if err := cat.Remove(ctx, id); err != nil {
				return err
			}
		}
		if err := store.Remove(ctx, id); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		fmt.Fprintf(out, "Removed %s %s (%s)\n", entry.Kind, entry.ExternalID, entry.Title)
	}
	return nil
}
