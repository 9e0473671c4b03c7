package lists

import (
	"context"
	"strconv"
	"strings"

	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/internal/tmdb"
)

// tmdbPrefix marks candidates whose only id is a TMDB id.
const tmdbPrefix = "tmdb:"

// IDMapper looks up the ids TMDB cross-references for a title.
type IDMapper interface {
	ExternalIDs(ctx context.Context, kind media.Kind, tmdbID int64) (tmdb.ExternalIDs, error)
}

// WithIDMapper lets the resolver rewrite TMDB-only candidates to the id the
// catalog keys on.
func WithIDMapper(m IDMapper) ResolverOption {
	return func(r *Resolver) {
		r.ids = m
	}
}

// mapIDs rewrites TMDB-keyed candidates. Movies keep the TMDB id when no IMDb id
// is known. Shows without a TVDB id are dropped.
func (r *Resolver) mapIDs(ctx context.Context, kind media.Kind, cands []media.Candidate) []media.Candidate {
	out := make([]media.Candidate, 0, len(cands))
	for _, c := range cands {
		raw, ok := strings.CutPrefix(c.ExternalID, tmdbPrefix)
		if !ok {
			out = append(out, c)
			continue
		}
		if id, mapped := r.mapTMDB(ctx, c.Kind, raw); mapped {
			c.ExternalID = id
		} else if c.Kind == media.KindShow {
			r.log.Debug("dropping show without tvdb id", "title", c.Title, "tmdb_id", raw, "source_list", c.SourceList)
			continue
		}
		out = append(out, c)
	}
	return out
}

func (r *Resolver) mapTMDB(ctx context.Context, kind media.Kind, raw string) (string, bool) {
	if r.ids == nil {
		return "", false
	}
	tmdbID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return "", false
	}
	ext, err := r.ids.ExternalIDs(ctx, kind, tmdbID)
	if err != nil {
		r.log.Warn("tmdb id lookup failed", "tmdb_id", tmdbID, "media_kind", kind, "error", err)
		return "", false
	}
	switch {
	case kind == media.KindShow && ext.TVDBID != 0:
		return strconv.FormatInt(ext.TVDBID, 10), true
	case kind == media.KindMovie && ext.IMDBID != "":
		return ext.IMDBID, true
	}
	return "", false
}
