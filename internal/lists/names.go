package lists

import (
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fuzzyListThreshold is the minimum Jaro-Winkler similarity for a display-name match.
const fuzzyListThreshold = 0.92

// NormalizeListName folds a list display name for comparison.
// Accents and punctuation are dropped, case and whitespace are collapsed.
func NormalizeListName(name string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, name)
	if err != nil {
		s = name
	}
	s = strings.ToLower(strings.ReplaceAll(s, "’", "'"))

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// namedList is a list display name with the slug it resolves to.
type namedList struct {
	Name string
	Slug string
}

// matchListName finds the slug whose display name matches name.
// Exact normalized matches win; otherwise the closest name above the threshold is used.
func matchListName(name string, candidates []namedList) (string, bool) {
	want := NormalizeListName(name)
	if want == "" {
		return "", false
	}

	for _, c := range candidates {
		if NormalizeListName(c.Name) == want {
			return c.Slug, true
		}
	}

	var best namedList
	var bestScore float32
	for _, c := range candidates {
		score := edlib.JaroWinklerSimilarity(want, NormalizeListName(c.Name))
		if score > bestScore {
			best, bestScore = c, score
		}
	}
	if bestScore >= fuzzyListThreshold && best.Slug != "" {
		return best.Slug, true
	}
	return "", false
}

// looksLikeSlug reports whether s is already a URL slug rather than a display name.
func looksLikeSlug(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}
