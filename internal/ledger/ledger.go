// Package ledger persists the history of every title the rotation engine imported.
package ledger

import (
	"time"

	"github.com/vmunix/rotarr/internal/media"
)

// Entry is one imported title. Entries are never updated, only inserted and removed.
type Entry struct {
	ExternalID string
	Kind       media.Kind
	Title      string
	SourceList string
	ImportedAt time.Time
}

// Filter narrows List results.
type Filter struct {
	Kind  *media.Kind
	Limit int
}

// FromCandidate builds the entry recorded after a candidate was added to its catalog.
func FromCandidate(c media.Candidate) *Entry {
	return &Entry{
		ExternalID: c.ExternalID,
		Kind:       c.Kind,
		Title:      c.Title,
		SourceList: c.SourceList,
	}
}
