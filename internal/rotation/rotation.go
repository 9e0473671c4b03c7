// Package rotation runs one pass of the rotation engine: enforce each kind's
// disk quota, then import at most one new title per kind.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/vmunix/rotarr/internal/catalog"
	"github.com/vmunix/rotarr/internal/ledger"
	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/internal/notify"
	"github.com/vmunix/rotarr/internal/quota"
)

const defaultMaxAddAttempts = 3

// maxAlreadyExists bounds adds rejected as duplicates in one pass. Hitting it
// means the catalog's existence index is out of date.
const maxAlreadyExists = 3

// Enforcer brings a kind back under its disk quota.
type Enforcer interface {
	Enforce(ctx context.Context, kind media.Kind) (quota.Report, error)
}

// CandidateSource yields import candidates in preference order.
type CandidateSource interface {
	Candidates(ctx context.Context, kind media.Kind) iter.Seq[media.Candidate]
	Resolve(ctx context.Context, kind media.Kind) []media.Candidate
}

// Ledger is the part of the import ledger a pass reads and writes.
type Ledger interface {
	Contains(ctx context.Context, externalID string) (bool, error)
	Insert(ctx context.Context, e *ledger.Entry) error
}

// Options selects which phases of a pass run.
type Options struct {
	Kinds       []media.Kind // defaults to media.Kinds
	DryRun      bool
	SkipEnforce bool
	SkipImport  bool
	// Prefetch resolves every source concurrently before filtering.
	Prefetch bool
	// MaxAddAttempts bounds how many candidates are tried when adds fail.
	MaxAddAttempts int
}

// Orchestrator coordinates the quota guard, the resolver, the ledger and the
// catalogs. Run is not safe for concurrent use.
type Orchestrator struct {
	guard    Enforcer
	source   CandidateSource
	ledger   Ledger
	catalogs catalog.Set
	notifier notify.Notifier
	opts     Options
	state    State
	log      *slog.Logger
}

// New creates an Orchestrator. A nil notifier disables notifications.
func New(guard Enforcer, source CandidateSource, l Ledger, catalogs catalog.Set, notifier notify.Notifier, opts Options, log *slog.Logger) *Orchestrator {
	if len(opts.Kinds) == 0 {
		opts.Kinds = media.Kinds
	}
	if opts.MaxAddAttempts <= 0 {
		opts.MaxAddAttempts = defaultMaxAddAttempts
	}
	if notifier == nil {
		notifier = notify.Nop{}
	}
	return &Orchestrator{
		guard:    guard,
		source:   source,
		ledger:   l,
		catalogs: catalogs,
		notifier: notifier,
		opts:     opts,
		log:      log.With("component", "rotation"),
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) enter(kind media.Kind, s State) {
	o.log.Debug("state", "media_kind", kind, "from", o.state, "to", s)
	o.state = s
}

// Run performs one pass over every configured kind. Failures of one kind are
// recorded in its KindReport and do not affect the others. The returned error
// is non-nil only when ctx is canceled.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	rep := &Report{Started: time.Now(), DryRun: o.opts.DryRun}
	defer func() {
		o.state = StateIdle
		rep.Duration = time.Since(rep.Started)
	}()

	for _, kind := range o.opts.Kinds {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		kr := &KindReport{Kind: kind, Skipped: make(map[Decision]int)}
		rep.Kinds = append(rep.Kinds, kr)
		if err := o.runKind(ctx, kr); err != nil {
			return rep, err
		}
	}
	return rep, nil
}

// runKind returns an error only on cancellation.
func (o *Orchestrator) runKind(ctx context.Context, kr *KindReport) error {
	kind := kr.Kind
	cat, ok := o.catalogs.For(kind)
	if !ok {
		o.log.Warn("no catalog configured, skipping", "media_kind", kind)
		kr.ImportErr = fmt.Errorf("%s: %w", kind, quota.ErrNoCatalog)
		return nil
	}

	if !o.opts.SkipEnforce {
		o.enter(kind, StateEnforcing)
		qr, err := o.guard.Enforce(ctx, kind)
		kr.Quota = &qr
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			kr.QuotaErr = err
			o.log.Error("quota enforcement failed", "media_kind", kind, "error", err)
		}
		for _, e := range qr.Evicted {
			o.notifier.Notify(ctx, fmt.Sprintf("Removed %s: %s", kind, e.Title))
		}
	}

	if o.opts.SkipImport {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	o.enter(kind, StateResolving)
	var cands iter.Seq[media.Candidate]
	if o.opts.Prefetch {
		cands = slices.Values(o.source.Resolve(ctx, kind))
	} else {
		cands = o.source.Candidates(ctx, kind)
	}

	attempts, conflicts := 0, 0
	for c := range cands {
		if err := ctx.Err(); err != nil {
			return err
		}
		o.enter(kind, StateFiltering)
		kr.Considered++
		d, err := o.filter(ctx, cat, c)
		if err != nil {
			kr.Skipped[d]++
			kr.ImportErr = err
			o.log.Error("catalog unavailable, skipping kind this pass", "media_kind", kind,
				"external_id", c.ExternalID, "error", err)
			return ctx.Err()
		}
		if d != Selected {
			kr.Skipped[d]++
			continue
		}

		if o.opts.DryRun {
			kr.WouldImport = &c
			o.log.Info("dry run: would import", "media_kind", kind, "external_id", c.ExternalID,
				"title", c.Title, "source_list", c.SourceList)
			return nil
		}

		o.enter(kind, StateImporting)
		res, err := cat.Add(ctx, c)
		switch {
		case errors.Is(err, catalog.ErrAlreadyExists):
			kr.Skipped[SkipInCatalog]++
			conflicts++
			o.log.Info("catalog already has candidate", "media_kind", kind, "external_id", c.ExternalID)
			if conflicts >= maxAlreadyExists {
				o.log.Warn("catalog keeps rejecting candidates as existing, stopping", "media_kind", kind,
					"rejected", conflicts)
				return nil
			}
			continue
		case err != nil:
			attempts++
			kr.ImportErr = err
			o.log.Error("import failed", "media_kind", kind, "external_id", c.ExternalID, "error", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, catalog.ErrUnauthorized) || attempts >= o.opts.MaxAddAttempts {
				return nil
			}
			continue
		}
		kr.ImportErr = nil

		if err := cat.TriggerSearch(ctx, c.ExternalID); err != nil {
			o.log.Warn("search trigger failed", "media_kind", kind, "external_id", c.ExternalID, "error", err)
		}

		o.enter(kind, StateRecording)
		if res != nil && res.Title != "" {
			c.Title = res.Title
		}
		// The catalog add is done; record it even if the pass was canceled meanwhile.
		if err := o.ledger.Insert(context.WithoutCancel(ctx), ledger.FromCandidate(c)); err != nil && !errors.Is(err, ledger.ErrDuplicate) {
			kr.ImportErr = fmt.Errorf("record %s: %w", c.ExternalID, err)
			o.log.Error("failed to record import", "media_kind", kind, "external_id", c.ExternalID, "error", err)
		}
		kr.Imported = &c
		o.log.Info("imported", "media_kind", kind, "external_id", c.ExternalID, "title", c.Title,
			"source_list", c.SourceList)
		o.notifier.Notify(ctx, fmt.Sprintf("Added %s: %s", kind, c.Title))
		return nil
	}

	if kr.Considered == 0 {
		o.log.Info("no candidates available", "media_kind", kind)
	} else if kr.ImportErr == nil {
		o.log.Info("every candidate already present", "media_kind", kind, "considered", kr.Considered)
	}
	return ctx.Err()
}

// filter decides whether a candidate is new to both the ledger and the catalog.
// A ledger read failure skips just the candidate. A catalog failure is
// returned since every later check would hit the same backend.
func (o *Orchestrator) filter(ctx context.Context, cat catalog.Catalog, c media.Candidate) (Decision, error) {
	in, err := o.ledger.Contains(ctx, c.ExternalID)
	if err != nil {
		o.log.Warn("ledger check failed", "external_id", c.ExternalID, "error", err)
		return SkipCheckFailed, nil
	}
	if in {
		return SkipInLedger, nil
	}
	in, err = cat.Exists(ctx, c.ExternalID)
	if err != nil {
		return SkipCheckFailed, fmt.Errorf("catalog check %s: %w", c.ExternalID, err)
	}
	if in {
		return SkipInCatalog, nil
	}
	return Selected, nil
}
