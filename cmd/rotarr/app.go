package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/vmunix/rotarr/internal/catalog"
	"github.com/vmunix/rotarr/internal/config"
	"github.com/vmunix/rotarr/internal/diskusage"
	"github.com/vmunix/rotarr/internal/ledger"
	"github.com/vmunix/rotarr/internal/lists"
	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/internal/notify"
	"github.com/vmunix/rotarr/internal/quota"
	"github.com/vmunix/rotarr/internal/rotation"
	"github.com/vmunix/rotarr/internal/tmdb"
	"github.com/vmunix/rotarr/pkg/mdblist"
	"github.com/vmunix/rotarr/pkg/trakt"
)

const retryDelay = 2 * time.Second

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLogLevel(cfg.Level)}
	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// lockPath is the run lock kept next to the ledger.
func lockPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.Ledger.Path), "rotarr.lock")
}

func openLedger(ctx context.Context, cfg *config.Config) (*ledger.Store, error) {
	store, err := ledger.Open(ctx, cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", cfg.Ledger.Path, err)
	}
	return store, nil
}

func buildCatalogs(cfg *config.Config, log *slog.Logger) catalog.Set {
	opts := []catalog.Option{catalog.WithLogger(log), catalog.WithRetryDelay(retryDelay)}
	var cats []catalog.Catalog
	for _, kind := range cfg.Kinds() {
		switch kind {
		case media.KindMovie:
			cats = append(cats, catalog.NewMovieCatalog(catalog.Config{
				URL:              cfg.Radarr.URL,
				APIKey:           cfg.Radarr.APIKey,
				RootFolder:       cfg.Radarr.RootFolder,
				QualityProfileID: cfg.Radarr.QualityProfileID,
				Timeout:          cfg.HTTP.Timeout,
				Retries:          cfg.HTTP.Retries,
			}, opts...))
		case media.KindShow:
			cats = append(cats, catalog.NewShowCatalog(catalog.Config{
				URL:               cfg.Sonarr.URL,
				APIKey:            cfg.Sonarr.APIKey,
				RootFolder:        cfg.Sonarr.RootFolder,
				QualityProfileID:  cfg.Sonarr.QualityProfileID,
				LanguageProfileID: cfg.Sonarr.LanguageProfileID,
				Timeout:           cfg.HTTP.Timeout,
				Retries:           cfg.HTTP.Retries,
			}, opts...))
		}
	}
	return catalog.NewSet(cats...)
}

// buildResolver wires both list providers. Trakt is always present because it
// serves the trending fallback; without a client id its calls fail and are skipped.
func buildResolver(cfg *config.Config, log *slog.Logger) *lists.Resolver {
	traktClient := trakt.New(cfg.Trakt.ClientID,
		trakt.WithBaseURL(cfg.Trakt.BaseURL),
		trakt.WithTimeout(cfg.HTTP.Timeout),
		trakt.WithRetries(cfg.HTTP.Retries, retryDelay),
		trakt.WithLogger(log),
	)
	listLog := log.With("component", "lists")
	providers := []lists.Provider{lists.NewTraktProvider(traktClient, cfg.Trakt.User, listLog)}

	if cfg.Rotation.UseMDBList {
		mdbClient := mdblist.New(cfg.MDBList.APIKey,
			mdblist.WithBaseURL(cfg.MDBList.BaseURL),
			mdblist.WithTimeout(cfg.HTTP.Timeout),
			mdblist.WithRetries(cfg.HTTP.Retries, retryDelay),
			mdblist.WithLogger(log),
		)
		providers = append(providers, lists.NewMDBListProvider(mdbClient, cfg.MDBList.User, listLog))
	}

	sources := make(map[media.Kind][]lists.Source, len(media.Kinds))
	for _, kind := range media.Kinds {
		sources[kind] = lists.BuildSources(cfg.Rotation.UseMDBList, cfg.ListNames(kind))
	}
	var opts []lists.ResolverOption
	if cfg.TMDB.APIKey != "" {
		opts = append(opts, lists.WithIDMapper(tmdb.NewClient(cfg.TMDB.APIKey,
			tmdb.WithBaseURL(cfg.TMDB.BaseURL),
			tmdb.WithHTTPClient(&http.Client{Timeout: cfg.HTTP.Timeout}),
			tmdb.WithRetries(cfg.HTTP.Retries, retryDelay),
			tmdb.WithLogger(log),
		)))
	}
	return lists.NewResolver(providers, sources, log.With("component", "resolver"), opts...)
}

func buildLimits(cfg *config.Config) map[media.Kind]quota.Limit {
	limits := make(map[media.Kind]quota.Limit, len(media.Kinds))
	for _, kind := range media.Kinds {
		limits[kind] = quota.Limit{
			Root:         cfg.Root(kind),
			LimitBytes:   quota.GiB(cfg.DiskLimitGB(kind)),
			MaxEvictions: cfg.MaxEvictions(kind),
		}
	}
	return limits
}

// newOrchestrator wires every component of a rotation pass.
func newOrchestrator(cfg *config.Config, store *ledger.Store, opts rotation.Options, log *slog.Logger) *rotation.Orchestrator {
	catalogs := buildCatalogs(cfg, log)
	guard := quota.New(diskusage.New(log.With("component", "diskusage")), store, catalogs, buildLimits(cfg), log, quota.WithDryRun(opts.DryRun))
	notifier := notify.New(notify.Config{
		ChangeFile: cfg.Notifications.ChangeFile,
		Desktop:    cfg.Notifications.Desktop,
	}, log)

	if len(opts.Kinds) == 0 {
		opts.Kinds = cfg.Kinds()
	}
	opts.Prefetch = opts.Prefetch || cfg.Rotation.Prefetch
	return rotation.New(guard, buildResolver(cfg, log), store, catalogs, notifier, opts, log)
}
