package lists

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/pkg/mdblist"
)

// MDBListAPI is the subset of the MDBList client the provider uses.
type MDBListAPI interface {
	UserLists(ctx context.Context, user string) ([]mdblist.List, error)
	ListItems(ctx context.Context, user, slug string) ([]mdblist.Item, error)
}

// MDBListProvider serves curated MDBList lists. List specs are "user/slug",
// a bare slug of the default user, or empty for every list of the default user.
type MDBListProvider struct {
	api         MDBListAPI
	defaultUser string
	log         *slog.Logger
}

// NewMDBListProvider creates an MDBList-backed provider.
func NewMDBListProvider(api MDBListAPI, defaultUser string, log *slog.Logger) *MDBListProvider {
	if defaultUser == "" {
		defaultUser = mdblist.DefaultUser
	}
	if log == nil {
		log = slog.Default()
	}
	return &MDBListProvider{api: api, defaultUser: defaultUser, log: log}
}

// Name returns the provider name.
func (p *MDBListProvider) Name() string { return ProviderMDBList }

// Fetch returns the titles of list that match kind.
func (p *MDBListProvider) Fetch(ctx context.Context, kind media.Kind, list string) ([]media.Candidate, error) {
	if list == "" {
		return p.fetchAll(ctx, kind)
	}
	user, slug, ok := splitUserList(list)
	if !ok {
		user, slug = p.defaultUser, list
	}
	return p.fetchList(ctx, kind, user, slug)
}

// fetchAll walks every list of the default user. A failing list is skipped;
// only a failure to enumerate the lists is returned.
func (p *MDBListProvider) fetchAll(ctx context.Context, kind media.Kind) ([]media.Candidate, error) {
	lists, err := p.api.UserLists(ctx, p.defaultUser)
	if err != nil {
		return nil, fmt.Errorf("mdblist lists of %s: %w", p.defaultUser, err)
	}
	var out []media.Candidate
	for _, l := range lists {
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		items, err := p.fetchList(ctx, kind, p.defaultUser, l.Slug)
		if err != nil {
			p.log.Warn("failed to fetch list", "list", l.Title, "error", err)
			continue
		}
		out = append(out, items...)
	}
	return out, nil
}

func (p *MDBListProvider) fetchList(ctx context.Context, kind media.Kind, user, slug string) ([]media.Candidate, error) {
	items, err := p.api.ListItems(ctx, user, slug)
	if err != nil {
		return nil, fmt.Errorf("mdblist list %s/%s: %w", user, slug, err)
	}

	source := sourceLabel(ProviderMDBList, user+"/"+slug)
	var out []media.Candidate
	for _, it := range items {
		itemKind := media.KindShow
		if strings.EqualFold(it.Type, "movie") {
			itemKind = media.KindMovie
		}
		if itemKind != kind {
			continue
		}
		id := itemID(it, kind)
		if id == "" {
			p.log.Debug("skipping item without usable id", "title", it.Title, "list", source)
			continue
		}
		out = append(out, media.Candidate{ExternalID: id, Title: it.Title, Kind: kind, SourceList: source})
	}
	return out, nil
}

func itemID(it mdblist.Item, kind media.Kind) string {
	switch {
	case kind == media.KindShow && it.TVDBID != "":
		return string(it.TVDBID)
	case kind == media.KindMovie && it.IMDBID != "":
		return string(it.IMDBID)
	case it.TMDBID != "":
		return tmdbPrefix + string(it.TMDBID)
	}
	return ""
}
