package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/vmunix/rotarr/internal/media"
)

type sonarrSeries struct {
	ID                int64             `json:"id,omitempty"`
	Title             string            `json:"title"`
	TitleSlug         string            `json:"titleSlug"`
	Year              int               `json:"year"`
	TVDBID            int64             `json:"tvdbId"`
	Images            []json.RawMessage `json:"images"`
	Seasons           []json.RawMessage `json:"seasons"`
	QualityProfileID  int               `json:"qualityProfileId,omitempty"`
	LanguageProfileID int               `json:"languageProfileId,omitempty"`
	RootFolderPath    string            `json:"rootFolderPath,omitempty"`
	Monitored         bool              `json:"monitored"`
	SeasonFolder      bool              `json:"seasonFolder"`
	AddOptions        *sonarrAddOptions `json:"addOptions,omitempty"`
}

type sonarrAddOptions struct {
	SearchForMissingEpisodes bool `json:"searchForMissingEpisodes"`
}

// ShowCatalog manages shows through the Sonarr v3 API. External ids are TVDB ids.
type ShowCatalog struct {
	*arrClient
	rootFolder        string
	qualityProfileID  int
	languageProfileID int
}

var _ Catalog = (*ShowCatalog)(nil)

// NewShowCatalog creates a Sonarr-backed catalog.
func NewShowCatalog(cfg Config, opts ...Option) *ShowCatalog {
	return &ShowCatalog{
		arrClient:         newArrClient("sonarr", cfg, opts),
		rootFolder:        cfg.RootFolder,
		qualityProfileID:  cfg.QualityProfileID,
		languageProfileID: cfg.LanguageProfileID,
	}
}

// Kind returns media.KindShow.
func (s *ShowCatalog) Kind() media.Kind { return media.KindShow }

func (s *ShowCatalog) loadLibrary(ctx context.Context) (map[string]int64, error) {
	var series []sonarrSeries
	if err := s.do(ctx, http.MethodGet, "/api/v3/series", nil, nil, &series); err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	ids := make(map[string]int64, len(series))
	for _, sr := range series {
		if sr.TVDBID != 0 {
			ids[strconv.FormatInt(sr.TVDBID, 10)] = sr.ID
		}
	}
	return ids, nil
}

func (s *ShowCatalog) lookupID(ctx context.Context, tvdbID string, fresh bool) (int64, error) {
	ids, err := s.library(ctx, fresh, s.loadLibrary)
	if err != nil {
		return 0, err
	}
	id, ok := ids[tvdbID]
	if !ok {
		return 0, ErrNotInCatalog
	}
	return id, nil
}

// Exists reports whether Sonarr already tracks the show.
func (s *ShowCatalog) Exists(ctx context.Context, tvdbID string) (bool, error) {
	_, err := s.lookupID(ctx, tvdbID, false)
	if errors.Is(err, ErrNotInCatalog) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Add looks the show up by TVDB id and adds it under the configured root folder.
func (s *ShowCatalog) Add(ctx context.Context, c media.Candidate) (*AddResult, error) {
	var results []sonarrSeries
	q := url.Values{"term": {"tvdb:" + c.ExternalID}}
	if err := s.do(ctx, http.MethodGet, "/api/v3/series/lookup", q, nil, &results); err != nil {
		return nil, fmt.Errorf("%w: lookup %s: %w", ErrAddFailed, c.ExternalID, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: lookup %s: no match", ErrAddFailed, c.ExternalID)
	}

	show := results[0]
	show.ID = 0
	show.QualityProfileID = s.qualityProfileID
	show.LanguageProfileID = s.languageProfileID
	show.RootFolderPath = s.rootFolder
	show.Monitored = true
	show.SeasonFolder = true
	show.AddOptions = &sonarrAddOptions{SearchForMissingEpisodes: false}

	var created sonarrSeries
	if err := s.do(ctx, http.MethodPost, "/api/v3/series", nil, show, &created); err != nil {
		if isAlreadyExists(err) {
			return nil, fmt.Errorf("show %s: %w", c.ExternalID, ErrAlreadyExists)
		}
		return nil, fmt.Errorf("%w: show %s: %w", ErrAddFailed, c.ExternalID, err)
	}
	s.index.invalidate()

	s.log.Info("added show", "external_id", c.ExternalID, "title", created.Title, "catalog_id", created.ID)
	return &AddResult{CatalogID: created.ID, Title: created.Title, Year: created.Year}, nil
}

// TriggerSearch starts a SeriesSearch command for the show.
func (s *ShowCatalog) TriggerSearch(ctx context.Context, tvdbID string) error {
	id, err := s.lookupID(ctx, tvdbID, false)
	if err != nil {
		return fmt.Errorf("search %s: %w", tvdbID, err)
	}
	cmd := command{Name: "SeriesSearch", SeriesID: id}
	if err := s.do(ctx, http.MethodPost, "/api/v3/command", nil, cmd, nil); err != nil {
		return fmt.Errorf("search %s: %w", tvdbID, err)
	}
	return nil
}

// Remove deletes the show and its files with an import exclusion.
func (s *ShowCatalog) Remove(ctx context.Context, tvdbID string) error {
	id, err := s.lookupID(ctx, tvdbID, true)
	if errors.Is(err, ErrNotInCatalog) {
		s.log.Info("show already absent from catalog", "external_id", tvdbID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: show %s: %w", ErrRemoveFailed, tvdbID, err)
	}

	path := "/api/v3/series/" + strconv.FormatInt(id, 10)
	if err := s.do(ctx, http.MethodDelete, path, deleteQuery(), nil, nil); err != nil && !isNotFound(err) {
		return fmt.Errorf("%w: show %s: %w", ErrRemoveFailed, tvdbID, err)
	}
	s.index.invalidate()

	s.log.Info("removed show", "external_id", tvdbID, "catalog_id", id)
	return nil
}
