// Package catalog adapts external media-management catalogs (Radarr, Sonarr)
// to the four operations the rotation engine needs.
package catalog

import (
	"context"

	"github.com/vmunix/rotarr/internal/media"
)

//go:generate mockgen -destination=mocks/catalog.go -package=mocks github.com/vmunix/rotarr/internal/catalog Catalog

// Catalog adds, finds and removes titles of one media kind.
type Catalog interface {
	Kind() media.Kind
	// Exists reports whether the catalog already tracks externalID.
	Exists(ctx context.Context, externalID string) (bool, error)
	// Add starts tracking the candidate under the configured root folder.
	// Returns ErrAlreadyExists or an error wrapping ErrAddFailed.
	Add(ctx context.Context, c media.Candidate) (*AddResult, error)
	// TriggerSearch asks the catalog to look for releases. Best effort.
	TriggerSearch(ctx context.Context, externalID string) error
	// Remove deletes the catalog record and its files. An id unknown to the
	// catalog counts as removed. Failures wrap ErrRemoveFailed.
	Remove(ctx context.Context, externalID string) error
}

// AddResult describes an item the catalog accepted.
type AddResult struct {
	CatalogID int64
	Title     string
	Year      int
}

// Set selects a catalog by media kind.
type Set map[media.Kind]Catalog

// NewSet indexes catalogs by their kind.
func NewSet(catalogs ...Catalog) Set {
	s := make(Set, len(catalogs))
	for _, c := range catalogs {
		s[c.Kind()] = c
	}
	return s
}

// For returns the catalog for kind.
func (s Set) For(kind media.Kind) (Catalog, bool) {
	c, ok := s[kind]
	return c, ok
}
