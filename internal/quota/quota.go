// Package quota evicts the oldest imported titles until a media root is back
// under its disk limit.
package quota

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/vmunix/rotarr/internal/catalog"
	"github.com/vmunix/rotarr/internal/ledger"
	"github.com/vmunix/rotarr/internal/media"
)

// GiB converts a limit configured in gigabytes to bytes.
func GiB(gb float64) int64 {
	return int64(gb * (1 << 30))
}

// UsageMeter measures disk usage under a path.
type UsageMeter interface {
	UsageBytes(path string) int64
}

// Ledger is the part of the import ledger eviction needs.
type Ledger interface {
	Oldest(ctx context.Context, kind media.Kind, n int) ([]*ledger.Entry, error)
	Remove(ctx context.Context, externalID string) error
}

// Limit is the quota of one media kind. A zero LimitBytes disables the guard.
type Limit struct {
	Root         string
	LimitBytes   int64
	MaxEvictions int // per pass, 0 means unlimited
}

// Report describes one enforcement pass.
type Report struct {
	Kind          media.Kind
	LimitBytes    int64
	StartBytes    int64
	EndBytes      int64
	Evicted       []*ledger.Entry
	WouldEvict    *ledger.Entry // dry run only
	Disabled      bool
	Capped        bool
	Unenforceable bool
}

// Err returns ErrQuotaUnenforceable when the pass ended over quota with an
// empty ledger.
func (r Report) Err() error {
	if r.Unenforceable {
		return fmt.Errorf("%s: %s used, limit %s: %w", r.Kind,
			humanize.IBytes(uint64(r.EndBytes)), humanize.IBytes(uint64(r.LimitBytes)), ErrQuotaUnenforceable)
	}
	return nil
}

// Option configures a Guard.
type Option func(*Guard)

// WithDryRun makes Enforce report the next eviction without performing it.
func WithDryRun(dryRun bool) Option {
	return func(g *Guard) {
		g.dryRun = dryRun
	}
}

// Guard enforces per-kind disk quotas.
type Guard struct {
	usage    UsageMeter
	ledger   Ledger
	catalogs catalog.Set
	limits   map[media.Kind]Limit
	dryRun   bool
	log      *slog.Logger
}

// New creates a Guard.
func New(usage UsageMeter, l Ledger, catalogs catalog.Set, limits map[media.Kind]Limit, log *slog.Logger, opts ...Option) *Guard {
	g := &Guard{
		usage:    usage,
		ledger:   l,
		catalogs: catalogs,
		limits:   limits,
		log:      log.With("component", "quota"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Enforce evicts the oldest entries of kind, one at a time, until usage is
// within the limit or the ledger has no more entries. Every iteration removes
// one ledger entry or returns, so the loop terminates.
//
// A failed catalog removal leaves the entry in the ledger and aborts the pass
// with an error wrapping catalog.ErrRemoveFailed.
func (g *Guard) Enforce(ctx context.Context, kind media.Kind) (Report, error) {
	rep := Report{Kind: kind}

	lim, ok := g.limits[kind]
	if !ok || lim.LimitBytes <= 0 {
		rep.Disabled = true
		g.log.Debug("quota disabled", "media_kind", kind)
		return rep, nil
	}
	rep.LimitBytes = lim.LimitBytes

	cat, ok := g.catalogs.For(kind)
	if !ok {
		return rep, fmt.Errorf("%s: %w", kind, ErrNoCatalog)
	}

	usage := g.usage.UsageBytes(lim.Root)
	rep.StartBytes = usage
	g.log.Info("disk usage", "media_kind", kind, "root", lim.Root,
		"usage_bytes", usage, "usage", humanize.IBytes(uint64(usage)),
		"limit", humanize.IBytes(uint64(lim.LimitBytes)))

	for usage > lim.LimitBytes {
		if err := ctx.Err(); err != nil {
			rep.EndBytes = usage
			return rep, err
		}
		if lim.MaxEvictions > 0 && len(rep.Evicted) >= lim.MaxEvictions {
			rep.Capped = true
			g.log.Warn("eviction cap reached", "media_kind", kind, "max_evictions", lim.MaxEvictions,
				"usage", humanize.IBytes(uint64(usage)))
			break
		}

		oldest, err := g.ledger.Oldest(ctx, kind, 1)
		if err != nil {
			rep.EndBytes = usage
			return rep, fmt.Errorf("read oldest %s: %w", kind, err)
		}
		if len(oldest) == 0 {
			rep.Unenforceable = true
			g.log.Warn("QuotaUnenforceable: over limit with nothing left to evict", "media_kind", kind,
				"usage", humanize.IBytes(uint64(usage)), "limit", humanize.IBytes(uint64(lim.LimitBytes)))
			break
		}
		e := oldest[0]

		if g.dryRun {
			rep.WouldEvict = e
			g.log.Info("dry run: would evict", "media_kind", kind, "external_id", e.ExternalID,
				"title", e.Title, "imported_at", e.ImportedAt)
			break
		}

		if err := cat.Remove(ctx, e.ExternalID); err != nil {
			rep.EndBytes = usage
			if !errors.Is(err, catalog.ErrRemoveFailed) {
				err = fmt.Errorf("%w: %w", catalog.ErrRemoveFailed, err)
			}
			g.log.Error("eviction aborted", "media_kind", kind, "external_id", e.ExternalID, "error", err)
			return rep, fmt.Errorf("evict %s: %w", e.ExternalID, err)
		}
		if err := g.ledger.Remove(ctx, e.ExternalID); err != nil {
			rep.EndBytes = usage
			return rep, fmt.Errorf("forget %s: %w", e.ExternalID, err)
		}
		rep.Evicted = append(rep.Evicted, e)

		before := usage
		usage = g.usage.UsageBytes(lim.Root)
		g.log.Info("evicted", "media_kind", kind, "external_id", e.ExternalID, "title", e.Title,
			"freed", humanize.IBytes(uint64(max(before-usage, 0))), "usage", humanize.IBytes(uint64(usage)))
	}

	rep.EndBytes = usage
	return rep, nil
}
