package lists

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/rotarr/internal/media"
	"github.com/vmunix/rotarr/pkg/mdblist"
	"github.com/vmunix/rotarr/pkg/trakt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeTrakt struct {
	trendingMovies []trakt.TrendingMovie
	trendingShows  []trakt.TrendingShow
	userLists      map[string][]trakt.List
	items          map[string][]trakt.ListItem // "user/slug"
	err            error
	itemCalls      []string
}

func (f *fakeTrakt) TrendingMovies(context.Context, int) ([]trakt.TrendingMovie, error) {
	return f.trendingMovies, f.err
}

func (f *fakeTrakt) TrendingShows(context.Context, int) ([]trakt.TrendingShow, error) {
	return f.trendingShows, f.err
}

func (f *fakeTrakt) UserLists(_ context.Context, user string) ([]trakt.List, error) {
	return f.userLists[user], f.err
}

func (f *fakeTrakt) ListItems(_ context.Context, user, slug string) ([]trakt.ListItem, error) {
	f.itemCalls = append(f.itemCalls, user+"/"+slug)
	if f.err != nil {
		return nil, f.err
	}
	items, ok := f.items[user+"/"+slug]
	if !ok {
		return nil, trakt.ErrNotFound
	}
	return items, nil
}

func traktList(name, slug string) trakt.List {
	l := trakt.List{Name: name}
	l.IDs.Slug = slug
	return l
}

func TestTraktProvider_TrendingMovies(t *testing.T) {
	api := &fakeTrakt{trendingMovies: []trakt.TrendingMovie{
		{Movie: trakt.Movie{Title: "Dune", IDs: trakt.IDs{IMDB: "tt1160419"}}},
		{Movie: trakt.Movie{Title: "TMDB only", IDs: trakt.IDs{TMDB: 42}}},
		{Movie: trakt.Movie{Title: "No ids"}},
	}}
	p := NewTraktProvider(api, "", discardLogger())

	got, err := p.Fetch(context.Background(), media.KindMovie, TrendingList)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "tt1160419", got[0].ExternalID)
	assert.Equal(t, "trakt:trending", got[0].SourceList)
	assert.Equal(t, "tmdb:42", got[1].ExternalID)
}

func TestTraktProvider_TrendingShowsPreferTVDB(t *testing.T) {
	api := &fakeTrakt{trendingShows: []trakt.TrendingShow{
		{Show: trakt.Show{Title: "Severance", IDs: trakt.IDs{TVDB: 371980, TMDB: 95396}}},
		{Show: trakt.Show{Title: "No TVDB", IDs: trakt.IDs{TMDB: 1}}},
		{Show: trakt.Show{Title: "No ids"}},
	}}
	p := NewTraktProvider(api, "", discardLogger())

	got, err := p.Fetch(context.Background(), media.KindShow, "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "371980", got[0].ExternalID)
	assert.Equal(t, media.KindShow, got[0].Kind)
	assert.Equal(t, "tmdb:1", got[1].ExternalID)
}

func TestTraktProvider_UserSlugFiltersKind(t *testing.T) {
	api := &fakeTrakt{items: map[string][]trakt.ListItem{
		"jane/cozy-picks": {
			{Type: "movie", Movie: &trakt.Movie{Title: "Amelie", IDs: trakt.IDs{IMDB: "tt0211915"}}},
			{Type: "show", Show: &trakt.Show{Title: "Bluey", IDs: trakt.IDs{TVDB: 353618}}},
		},
	}}
	p := NewTraktProvider(api, "", discardLogger())

	movies, err := p.Fetch(context.Background(), media.KindMovie, "jane/cozy-picks")
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, "tt0211915", movies[0].ExternalID)
	assert.Equal(t, "trakt:jane/cozy-picks", movies[0].SourceList)

	shows, err := p.Fetch(context.Background(), media.KindShow, "jane/cozy-picks")
	require.NoError(t, err)
	require.Len(t, shows, 1)
	assert.Equal(t, "353618", shows[0].ExternalID)
}

func TestTraktProvider_DisplayNameWithDefaultUser(t *testing.T) {
	api := &fakeTrakt{
		userLists: map[string][]trakt.List{"jane": {traktList("Jane’s Cozy Picks!", "janes-cozy-picks")}},
		items: map[string][]trakt.ListItem{
			"jane/janes-cozy-picks": {{Type: "movie", Movie: &trakt.Movie{IDs: trakt.IDs{IMDB: "tt1"}}}},
		},
	}
	p := NewTraktProvider(api, "jane", discardLogger())

	got, err := p.Fetch(context.Background(), media.KindMovie, "Jane's Cozy Picks")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"jane/janes-cozy-picks"}, api.itemCalls)
}

func TestTraktProvider_SlugLikeNameFallsBackToNameLookup(t *testing.T) {
	api := &fakeTrakt{
		userLists: map[string][]trakt.List{"jane": {traktList("favorites", "favorites-2024")}},
		items: map[string][]trakt.ListItem{
			"jane/favorites-2024": {{Type: "movie", Movie: &trakt.Movie{IDs: trakt.IDs{IMDB: "tt2"}}}},
		},
	}
	p := NewTraktProvider(api, "", discardLogger())

	got, err := p.Fetch(context.Background(), media.KindMovie, "jane/favorites")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"jane/favorites", "jane/favorites-2024"}, api.itemCalls)
}

func TestTraktProvider_BareNameWithoutUser(t *testing.T) {
	p := NewTraktProvider(&fakeTrakt{}, "", discardLogger())
	_, err := p.Fetch(context.Background(), media.KindMovie, "Some List")
	assert.ErrorIs(t, err, ErrListNotFound)
}

func TestTraktProvider_Error(t *testing.T) {
	p := NewTraktProvider(&fakeTrakt{err: trakt.ErrMissingClientID}, "", discardLogger())
	_, err := p.Fetch(context.Background(), media.KindMovie, TrendingList)
	assert.ErrorIs(t, err, trakt.ErrMissingClientID)
}

type fakeMDBList struct {
	lists    map[string][]mdblist.List
	items    map[string][]mdblist.Item
	listsErr error
}

func (f *fakeMDBList) UserLists(_ context.Context, user string) ([]mdblist.List, error) {
	return f.lists[user], f.listsErr
}

func (f *fakeMDBList) ListItems(_ context.Context, user, slug string) ([]mdblist.Item, error) {
	items, ok := f.items[user+"/"+slug]
	if !ok {
		return nil, mdblist.ErrNotFound
	}
	return items, nil
}

func TestMDBListProvider_AllListsOfDefaultUser(t *testing.T) {
	api := &fakeMDBList{
		lists: map[string][]mdblist.List{
			mdblist.DefaultUser: {{Slug: "top", Title: "Top"}, {Slug: "broken", Title: "Broken"}, {Slug: "new", Title: "New"}},
		},
		items: map[string][]mdblist.Item{
			"hd-movie-lists/top": {
				{Title: "The Matrix", Type: "movie", IMDBID: "tt0133093"},
				{Title: "Breaking Bad", Type: "show", TVDBID: "81189"},
				{Title: "Fleabag", Type: "show", TMDBID: "67070"},
			},
			"hd-movie-lists/new": {
				{Title: "Heat", Type: "movie", TMDBID: "949"},
				{Title: "Nothing", Type: "movie"},
			},
		},
	}
	p := NewMDBListProvider(api, "", discardLogger())

	movies, err := p.Fetch(context.Background(), media.KindMovie, "")
	require.NoError(t, err)
	require.Len(t, movies, 2)
	assert.Equal(t, "tt0133093", movies[0].ExternalID)
	assert.Equal(t, "mdblist:hd-movie-lists/top", movies[0].SourceList)
	assert.Equal(t, "tmdb:949", movies[1].ExternalID)

	shows, err := p.Fetch(context.Background(), media.KindShow, "")
	require.NoError(t, err)
	require.Len(t, shows, 2)
	assert.Equal(t, "81189", shows[0].ExternalID)
	assert.Equal(t, "tmdb:67070", shows[1].ExternalID)
}

func TestMDBListProvider_NamedList(t *testing.T) {
	api := &fakeMDBList{items: map[string][]mdblist.Item{
		"curator/picks": {{Title: "Alien", Type: "movie", IMDBID: "tt0078748"}},
	}}
	p := NewMDBListProvider(api, "curator", discardLogger())

	got, err := p.Fetch(context.Background(), media.KindMovie, "picks")
	require.NoError(t, err)
	require.Len(t, got, 1)

	got, err = p.Fetch(context.Background(), media.KindMovie, "curator/picks")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestMDBListProvider_EnumerationFailure(t *testing.T) {
	p := NewMDBListProvider(&fakeMDBList{listsErr: errors.New("slow")}, "", discardLogger())
	_, err := p.Fetch(context.Background(), media.KindMovie, "")
	assert.Error(t, err)
}

func TestNormalizeListName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Jane’s Cozy Picks!", "jane s cozy picks"},
		{"  Amélie   & Friends ", "amelie friends"},
		{"Top-10: 2024", "top 10 2024"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeListName(tt.in), tt.in)
	}
}

func TestMatchListName(t *testing.T) {
	candidates := []namedList{
		{Name: "Cozy Picks", Slug: "cozy-picks"},
		{Name: "Horror Marathon", Slug: "horror-marathon"},
	}

	slug, ok := matchListName("cozy picks", candidates)
	assert.True(t, ok)
	assert.Equal(t, "cozy-picks", slug)

	slug, ok = matchListName("Horror Marathons", candidates)
	assert.True(t, ok, "close names match fuzzily")
	assert.Equal(t, "horror-marathon", slug)

	_, ok = matchListName("Documentaries", candidates)
	assert.False(t, ok)

	_, ok = matchListName("!!!", candidates)
	assert.False(t, ok)
}

func TestLooksLikeSlug(t *testing.T) {
	assert.True(t, looksLikeSlug("cozy-picks"))
	assert.True(t, looksLikeSlug("top_10"))
	assert.False(t, looksLikeSlug("Cozy Picks"))
	assert.False(t, looksLikeSlug(""))
}
