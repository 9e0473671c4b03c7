package lists

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vmunix/rotarr/internal/media"
)

// maxConcurrentFetches bounds parallel provider calls in Resolve.
const maxConcurrentFetches = 4

// Resolver produces rotation candidates from configured sources in preference order.
type Resolver struct {
	providers map[string]Provider
	sources   map[media.Kind][]Source
	fallback  *Source
	ids       IDMapper
	log       *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithFallback replaces the trending fallback. A nil source disables it.
func WithFallback(src *Source) ResolverOption {
	return func(r *Resolver) {
		r.fallback = src
	}
}

// NewResolver creates a resolver over providers. sources lists the preferred
// sources per kind; the fallback is appended unless already present.
func NewResolver(providers []Provider, sources map[media.Kind][]Source, log *slog.Logger, opts ...ResolverOption) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	fb := DefaultFallback
	r := &Resolver{
		providers: make(map[string]Provider, len(providers)),
		sources:   sources,
		fallback:  &fb,
		log:       log,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Sources returns the effective source order for kind.
func (r *Resolver) Sources(kind media.Kind) []Source {
	srcs := slices.Clone(r.sources[kind])
	if r.fallback != nil && !slices.Contains(srcs, *r.fallback) {
		srcs = append(srcs, *r.fallback)
	}
	return srcs
}

// Candidates returns a lazy sequence of candidates for kind. Sources are fetched
// one at a time, only as the consumer pulls past the previous source's titles.
// A failing or empty source is skipped. Each iteration starts from scratch.
func (r *Resolver) Candidates(ctx context.Context, kind media.Kind) iter.Seq[media.Candidate] {
	return func(yield func(media.Candidate) bool) {
		seen := make(map[string]struct{})
		for _, src := range r.Sources(kind) {
			if ctx.Err() != nil {
				return
			}
			cands, _ := r.fetch(ctx, kind, src)
			if !emit(kind, cands, seen, r.log, yield) {
				return
			}
		}
	}
}

// Resolve fetches every source concurrently and returns the full candidate list
// in the same order Candidates would produce it.
func (r *Resolver) Resolve(ctx context.Context, kind media.Kind) []media.Candidate {
	srcs := r.Sources(kind)
	results := make([][]media.Candidate, len(srcs))

	var g errgroup.Group
	g.SetLimit(maxConcurrentFetches)
	for i, src := range srcs {
		g.Go(func() error {
			results[i], _ = r.fetch(ctx, kind, src)
			return nil
		})
	}
	_ = g.Wait()

	var out []media.Candidate
	seen := make(map[string]struct{})
	for _, cands := range results {
		emit(kind, cands, seen, r.log, func(c media.Candidate) bool {
			out = append(out, c)
			return true
		})
	}
	return out
}

// fetch calls one source. Failures are logged and reported as ErrProviderUnavailable.
func (r *Resolver) fetch(ctx context.Context, kind media.Kind, src Source) ([]media.Candidate, error) {
	p, ok := r.providers[src.Provider]
	if !ok {
		r.log.Warn("no provider configured for source", "source", src.String(), "media_kind", kind)
		return nil, fmt.Errorf("%s: %w", src, ErrProviderUnavailable)
	}

	start := time.Now()
	cands, err := p.Fetch(ctx, kind, src.List)
	if err != nil {
		r.log.Warn("provider failed, skipping", "source", src.String(), "media_kind", kind, "error", err)
		return nil, fmt.Errorf("%s: %w: %v", src, ErrProviderUnavailable, err)
	}
	if len(cands) == 0 {
		r.log.Info("provider exhausted", "source", src.String(), "media_kind", kind)
		return nil, nil
	}
	cands = r.mapIDs(ctx, kind, cands)
	r.log.Debug("provider returned candidates", "source", src.String(), "media_kind", kind,
		"count", len(cands), "duration_ms", time.Since(start).Milliseconds())
	return cands, nil
}

// emit yields candidates not yet seen. Returns false once yield asks to stop.
func emit(kind media.Kind, cands []media.Candidate, seen map[string]struct{}, log *slog.Logger, yield func(media.Candidate) bool) bool {
	for _, c := range cands {
		if c.ExternalID == "" {
			log.Warn("dropping candidate without id", "title", c.Title, "source_list", c.SourceList)
			continue
		}
		if c.Kind != kind {
			continue
		}
		if _, dup := seen[c.ExternalID]; dup {
			continue
		}
		seen[c.ExternalID] = struct{}{}
		if !yield(c) {
			return false
		}
	}
	return true
}
