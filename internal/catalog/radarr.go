package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/vmunix/rotarr/internal/media"
)

// tmdbPrefix marks movie ids that carry a TMDB id instead of an IMDb id.
const tmdbPrefix = "tmdb:"

type radarrMovie struct {
	ID               int64             `json:"id,omitempty"`
	Title            string            `json:"title"`
	TitleSlug        string            `json:"titleSlug"`
	Year             int               `json:"year"`
	IMDBID           string            `json:"imdbId,omitempty"`
	TMDBID           int64             `json:"tmdbId"`
	Images           []json.RawMessage `json:"images"`
	QualityProfileID int               `json:"qualityProfileId,omitempty"`
	RootFolderPath   string            `json:"rootFolderPath,omitempty"`
	Monitored        bool              `json:"monitored"`
	AddOptions       *radarrAddOptions `json:"addOptions,omitempty"`
}

type radarrAddOptions struct {
	SearchForMovie bool `json:"searchForMovie"`
}

// MovieCatalog manages movies through the Radarr v3 API.
type MovieCatalog struct {
	*arrClient
	rootFolder       string
	qualityProfileID int
}

var _ Catalog = (*MovieCatalog)(nil)

// NewMovieCatalog creates a Radarr-backed catalog.
func NewMovieCatalog(cfg Config, opts ...Option) *MovieCatalog {
	return &MovieCatalog{
		arrClient:        newArrClient("radarr", cfg, opts),
		rootFolder:       cfg.RootFolder,
		qualityProfileID: cfg.QualityProfileID,
	}
}

// Kind returns media.KindMovie.
func (m *MovieCatalog) Kind() media.Kind { return media.KindMovie }

func (m *MovieCatalog) loadLibrary(ctx context.Context) (map[string]int64, error) {
	var movies []radarrMovie
	if err := m.do(ctx, http.MethodGet, "/api/v3/movie", nil, nil, &movies); err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	ids := make(map[string]int64, len(movies)*2)
	for _, mv := range movies {
		if mv.IMDBID != "" {
			ids[mv.IMDBID] = mv.ID
		}
		if mv.TMDBID != 0 {
			ids[tmdbPrefix+strconv.FormatInt(mv.TMDBID, 10)] = mv.ID
		}
	}
	return ids, nil
}

func (m *MovieCatalog) lookupID(ctx context.Context, externalID string, fresh bool) (int64, error) {
	ids, err := m.library(ctx, fresh, m.loadLibrary)
	if err != nil {
		return 0, err
	}
	id, ok := ids[externalID]
	if !ok {
		return 0, ErrNotInCatalog
	}
	return id, nil
}

// Exists reports whether Radarr already tracks the movie.
func (m *MovieCatalog) Exists(ctx context.Context, externalID string) (bool, error) {
	_, err := m.lookupID(ctx, externalID, false)
	if errors.Is(err, ErrNotInCatalog) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Add looks the movie up and adds it under the configured root folder.
// The search is left to TriggerSearch.
func (m *MovieCatalog) Add(ctx context.Context, c media.Candidate) (*AddResult, error) {
	movie, err := m.lookup(ctx, c.ExternalID)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %s: %w", ErrAddFailed, c.ExternalID, err)
	}

	movie.ID = 0
	movie.QualityProfileID = m.qualityProfileID
	movie.RootFolderPath = m.rootFolder
	movie.Monitored = true
	movie.AddOptions = &radarrAddOptions{SearchForMovie: false}

	var created radarrMovie
	if err := m.do(ctx, http.MethodPost, "/api/v3/movie", nil, movie, &created); err != nil {
		if isAlreadyExists(err) {
			return nil, fmt.Errorf("movie %s: %w", c.ExternalID, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%w: movie %s: %w", ErrAddFailed, c.ExternalID, err)
	}
	m.index.invalidate()

	m.log.Info("added movie", "external_id", c.ExternalID, "title", created.Title, "year", created.Year, "catalog_id", created.ID)
	return &AddResult{CatalogID: created.ID, Title: created.Title, Year: created.Year}, nil
}

func (m *MovieCatalog) lookup(ctx context.Context, externalID string) (*radarrMovie, error) {
	var movie radarrMovie
	if tmdb, ok := strings.CutPrefix(externalID, tmdbPrefix); ok {
		q := url.Values{"tmdbId": {tmdb}}
		if err := m.do(ctx, http.MethodGet, "/api/v3/movie/lookup/tmdb", q, nil, &movie); err != nil {
			return nil, err
		}
	} else {
		q := url.Values{"imdbId": {externalID}}
		if err := m.do(ctx, http.MethodGet, "/api/v3/movie/lookup/imdb", q, nil, &movie); err != nil {
			return nil, err
		}
	}
	if movie.TMDBID == 0 {
		return nil, fmt.Errorf("no match for %s", externalID)
	}
	return &movie, nil
}

// TriggerSearch starts a MoviesSearch command for the movie.
func (m *MovieCatalog) TriggerSearch(ctx context.Context, externalID string) error {
	id, err := m.lookupID(ctx, externalID, false)
	if err != nil {
		return fmt.Errorf("search %s: %w", externalID, err)
	}
	cmd := command{Name: "MoviesSearch", MovieIDs: []int64{id}}
	if err := m.do(ctx, http.MethodPost, "/api/v3/command", nil, cmd, nil); err != nil {
		return fmt.Errorf("search %s: %w", externalID, err)
	}
	return nil
}

// Remove deletes the movie and its files and adds an import exclusion so
// lists do not bring it straight back.
func (m *MovieCatalog) Remove(ctx context.Context, externalID string) error {
	id, err := m.lookupID(ctx, externalID, true)
	if errors.Is(err, ErrNotInCatalog) {
		m.log.Info("movie already absent from catalog", "external_id", externalID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: movie %s: %w", ErrRemoveFailed, externalID, err)
	}

	path := "/api/v3/movie/" + strconv.FormatInt(id, 10)
	if err := m.do(ctx, http.MethodDelete, path, deleteQuery(), nil, nil); err != nil && !isNotFound(err) {
		return fmt.Errorf("%w: movie %s: %w", ErrRemoveFailed, externalID, err)
	}
	m.index.invalidate()

	m.log.Info("removed movie", "external_id", externalID, "catalog_id", id)
	return nil
}
