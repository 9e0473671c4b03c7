// Package lists resolves rotation candidates from external curated lists.
package lists

import (
	"context"
	"fmt"
	"strings"

	"github.com/vmunix/rotarr/internal/media"
)

// Provider names used in source descriptors.
const (
	ProviderMDBList = "mdblist"
	ProviderTrakt   = "trakt"
)

// TrendingList is the list name every provider may treat as its default feed.
const TrendingList = "trending"

//go:generate mockgen -destination=mocks/provider.go -package=mocks github.com/vmunix/rotarr/internal/lists Provider

// Provider fetches the titles of one named list.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, kind media.Kind, list string) ([]media.Candidate, error)
}

// Source names a list on a provider. An empty List means every list the
// provider's default user publishes.
type Source struct {
	Provider string
	List     string
}

func (s Source) String() string {
	if s.List == "" {
		return s.Provider + ":*"
	}
	return s.Provider + ":" + s.List
}

// DefaultFallback is the trending feed tried after every configured source.
var DefaultFallback = Source{Provider: ProviderTrakt, List: TrendingList}

// BuildSources turns configured list names into source descriptors for one kind.
// With no names the result is empty and the resolver relies on its fallback.
func BuildSources(useMDBList bool, names []string) []Source {
	provider := ProviderTrakt
	if useMDBList {
		provider = ProviderMDBList
	}
	var sources []Source
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		if n == TrendingList {
			sources = append(sources, Source{Provider: ProviderTrakt, List: TrendingList})
			continue
		}
		sources = append(sources, Source{Provider: provider, List: n})
	}
	if useMDBList && len(sources) == 0 {
		// Every list of the default MDBList user
		sources = append(sources, Source{Provider: ProviderMDBList})
	}
	return sources
}

// splitUserList splits "user/rest" into its parts. ok is false without a slash.
func splitUserList(spec string) (user, rest string, ok bool) {
	user, rest, ok = strings.Cut(spec, "/")
	if !ok || user == "" || rest == "" {
		return "", spec, false
	}
	return user, rest, true
}

func sourceLabel(provider, list string) string {
	return fmt.Sprintf("%s:%s", provider, list)
}
