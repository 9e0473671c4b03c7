package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/vmunix/rotarr/internal/config"
	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/internal/rotation"
)

// ErrAlreadyRunning is returned when another invocation holds the run lock.
var ErrAlreadyRunning = errors.New("another rotarr run is in progress")

var (
	runInterval   time.Duration
	runDryRun     bool
	runAddOnly    bool
	runRotateOnly bool
	runKinds      []string
	runPrefetch   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a rotation pass",
	Long: `Runs one rotation pass: enforce the disk quota of every configured kind,
then import at most one new title per kind. With --interval the pass
repeats until interrupted.`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().DurationVar(&runInterval, "interval", 0, "Repeat the pass at this interval (0 runs once)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "Show what would be done without making changes")
	runCmd.Flags().BoolVar(&runAddOnly, "add-only", false, "Only add new media, skip rotation")
	runCmd.Flags().BoolVar(&runRotateOnly, "rotate-only", false, "Only rotate old media, skip adding new")
	runCmd.Flags().StringSliceVar(&runKinds, "kind", nil, "Limit the pass to these kinds (movie, show)")
	runCmd.Flags().BoolVar(&runPrefetch, "prefetch", false, "Fetch every list concurrently before filtering")
	runCmd.MarkFlagsMutuallyExclusive("add-only", "rotate-only")
}

func runOptions() (rotation.Options, error) {
	opts := rotation.Options{
		DryRun:      runDryRun,
		SkipEnforce: runAddOnly,
		SkipImport:  runRotateOnly,
		Prefetch:    runPrefetch,
	}
	for _, k := range runKinds {
		kind, err := media.ParseKind(k)
		if err != nil {
			return opts, err
		}
		opts.Kinds = append(opts.Kinds, kind)
	}
	return opts, nil
}

func runRun(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.RequireCatalogs(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return err
	}
	opts, err := runOptions()
	if err != nil {
		return err
	}

	log := newLogger(cfg.Log, os.Stdout)
	log.Info("starting rotarr", "version", version, "config", cfgSource, "dry_run", opts.DryRun)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

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

	orch := newOrchestrator(cfg, store, opts, log)
	return loop(ctx, runInterval, log, func(ctx context.Context) {
		rep, err := orch.Run(ctx)
		if rep != nil {
			rep.Log(log)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("rotation pass failed", "error", err)
		}
	})
}

// acquireRunLock takes the lock that keeps passes and ledger edits from
// interleaving. The ledger directory must exist.
func acquireRunLock(cfg *config.Config) (func(), error) {
	lock := flock.New(lockPath(cfg))
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, lock.Path())
	}
	return func() { _ = lock.Unlock() }, nil
}

// loop calls pass once, then every interval until ctx is done. A zero
// interval runs a single pass.
func loop(ctx context.Context, interval time.Duration, log *slog.Logger, pass func(context.Context)) error {
	pass(ctx)
	if interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return nil
		case <-ticker.C:
			pass(ctx)
		}
	}
}
