package lists

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/pkg/trakt"
)

// trendingLimit matches the size of the trending feed the rotation pulls per kind.
const trendingLimit = 50

// TraktAPI is the subset of the Trakt client the provider uses.
type TraktAPI interface {
	TrendingMovies(ctx context.Context, limit int) ([]trakt.TrendingMovie, error)
	TrendingShows(ctx context.Context, limit int) ([]trakt.TrendingShow, error)
	UserLists(ctx context.Context, user string) ([]trakt.List, error)
	ListItems(ctx context.Context, user, slug string) ([]trakt.ListItem, error)
}

// TraktProvider serves the trending feed and user lists from Trakt.
// List specs are "trending", "user/slug", "user/Display Name" or a bare
// display name owned by the default user.
type TraktProvider struct {
	api         TraktAPI
	defaultUser string
	log         *slog.Logger
}

// NewTraktProvider creates a Trakt-backed provider.
func NewTraktProvider(api TraktAPI, defaultUser string, log *slog.Logger) *TraktProvider {
	if log == nil {
		log = slog.Default()
	}
	return &TraktProvider{api: api, defaultUser: defaultUser, log: log}
}

// Name returns the provider name.
func (p *TraktProvider) Name() string { return ProviderTrakt }

// Fetch returns the titles of list that match kind.
func (p *TraktProvider) Fetch(ctx context.Context, kind media.Kind, list string) ([]media.Candidate, error) {
	if list == "" || list == TrendingList {
		return p.trending(ctx, kind)
	}

	user, name, ok := splitUserList(list)
	if !ok {
		if p.defaultUser == "" {
			return nil, fmt.Errorf("trakt list %q: no user given and no default trakt user configured: %w", list, ErrListNotFound)
		}
		user = p.defaultUser
	}

	slug := name
	if !looksLikeSlug(name) {
		resolved, err := p.slugForName(ctx, user, name)
		if err != nil {
			return nil, err
		}
		slug = resolved
	}

	items, err := p.api.ListItems(ctx, user, slug)
	if errors.Is(err, trakt.ErrNotFound) && looksLikeSlug(name) {
		// Lowercase display names look like slugs; retry as a name.
		resolved, rerr := p.slugForName(ctx, user, name)
		if rerr != nil {
			return nil, rerr
		}
		slug = resolved
		items, err = p.api.ListItems(ctx, user, slug)
	}
	if err != nil {
		return nil, fmt.Errorf("trakt list %s/%s: %w", user, slug, err)
	}

	source := sourceLabel(ProviderTrakt, user+"/"+slug)
	var out []media.Candidate
	for _, it := range items {
		switch {
		case kind == media.KindMovie && it.Movie != nil:
			if c, ok := movieCandidate(*it.Movie, source); ok {
				out = append(out, c)
			}
		case kind == media.KindShow && it.Show != nil:
			if c, ok := showCandidate(*it.Show, source); ok {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

func (p *TraktProvider) slugForName(ctx context.Context, user, name string) (string, error) {
	lists, err := p.api.UserLists(ctx, user)
	if err != nil {
		return "", fmt.Errorf("trakt lists of %s: %w", user, err)
	}
	named := make([]namedList, 0, len(lists))
	for _, l := range lists {
		named = append(named, namedList{Name: l.Name, Slug: l.IDs.Slug})
	}
	slug, ok := matchListName(name, named)
	if !ok {
		return "", fmt.Errorf("trakt list %q of %s: %w", name, user, ErrListNotFound)
	}
	p.log.Debug("resolved trakt list name", "user", user, "name", name, "slug", slug)
	return slug, nil
}

func (p *TraktProvider) trending(ctx context.Context, kind media.Kind) ([]media.Candidate, error) {
	var out []media.Candidate
	switch kind {
	case media.KindMovie:
		entries, err := p.api.TrendingMovies(ctx, trendingLimit)
		if err != nil {
			return nil, fmt.Errorf("trakt trending movies: %w", err)
		}
		for _, e := range entries {
			if c, ok := movieCandidate(e.Movie, sourceLabel(ProviderTrakt, TrendingList)); ok {
				out = append(out, c)
			}
		}
	case media.KindShow:
		entries, err := p.api.TrendingShows(ctx, trendingLimit)
		if err != nil {
			return nil, fmt.Errorf("trakt trending shows: %w", err)
		}
		for _, e := range entries {
			if c, ok := showCandidate(e.Show, sourceLabel(ProviderTrakt, TrendingList)); ok {
				out = append(out, c)
			}
		}
	}
	return out, nil
}

// movieCandidate prefers the IMDb id and falls back to TMDB.
func movieCandidate(m trakt.Movie, source string) (media.Candidate, bool) {
	id := m.IDs.IMDB
	if id == "" && m.IDs.TMDB != 0 {
		id = tmdbPrefix + strconv.FormatInt(m.IDs.TMDB, 10)
	}
	if id == "" {
		return media.Candidate{}, false
	}
	return media.Candidate{ExternalID: id, Title: m.Title, Kind: media.KindMovie, SourceList: source}, true
}

// showCandidate prefers the TVDB id. A TMDB-only show is passed on for the
// resolver to map.
func showCandidate(s trakt.Show, source string) (media.Candidate, bool) {
	var id string
	switch {
	case s.IDs.TVDB != 0:
		id = strconv.FormatInt(s.IDs.TVDB, 10)
	case s.IDs.TMDB != 0:
		id = tmdbPrefix + strconv.FormatInt(s.IDs.TMDB, 10)
	default:
		return media.Candidate{}, false
	}
	return media.Candidate{ExternalID: id, Title: s.Title, Kind: media.KindShow, SourceList: source}, true
}
