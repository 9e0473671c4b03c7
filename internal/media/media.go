// Package media defines the types shared by every stage of a rotation pass.
package media

import (
	"fmt"
	"strings"
)

// Kind distinguishes movies from shows.
type Kind string

const (
	KindMovie Kind = "movie"
	KindShow  Kind = "show"
)

// Kinds lists every supported kind in pass order.
var Kinds = []Kind{KindMovie, KindShow}

// ParseKind converts user input to a Kind.
// Accepts plural and series/tv aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "movie", "movies":
		return KindMovie, nil
	case "show", "shows", "series", "tv":
		return KindShow, nil
	default:
		return "", fmt.Errorf("unknown media kind %q", s)
	}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindMovie || k == KindShow
}

// Plural returns the display form used in logs and CLI output.
func (k Kind) Plural() string {
	if k == KindShow {
		return "shows"
	}
	return "movies"
}

// Candidate is a title resolved from an external list that has not yet been
// checked against the ledger or the catalog.
type Candidate struct {
	ExternalID string // IMDb id (or tmdb:N) for movies, TVDB id for shows
	Title      string
	Kind       Kind
	SourceList string // provider/list that yielded the title
}

func (c Candidate) String() string {
	return fmt.Sprintf("%s %q (%s)", c.Kind, c.Title, c.ExternalID)
}
