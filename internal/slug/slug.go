// Package slug converts program titles into URL-safe tokens and turns
// those tokens back into lookup keys.  The reverse direction is a
// best-effort approximation that only round-trips plain ASCII titles made
// of words separated by single spaces.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// validParam mirrors the route requirement used by the browse endpoints.
var validParam = regexp.MustCompile(`^[a-z0-9-]+$`)

// strict removes every tag.  bluemonday policies are safe for concurrent use.
var strict = bluemonday.StrictPolicy()

// Generate derives the slug stored alongside a program title.  The result
// is lower case, contains only [a-z0-9-] and never starts or ends with a
// hyphen.  Accented letters are folded to their base letter and
// apostrophes are dropped so "Grey's Anatomy" becomes "greys-anatomy".
func Generate(title string) string {
	// transformers keep internal state, build a fresh chain per call
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, title)
	if err != nil {
		folded = title
	}

	var b strings.Builder
	pending := false
	for _, r := range strings.ToLower(folded) {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			if pending && b.Len() > 0 {
				b.WriteByte('-')
			}
			pending = false
			b.WriteRune(r)
		case r == '\'' || r == '’':
		default:
			pending = true
		}
	}
	return b.String()
}

// Humanize rebuilds a display title from a slug: markup is stripped, the
// value trimmed, each hyphen separated word title-cased and hyphens turned
// into spaces.  "breaking-bad" gives "Breaking Bad".
func Humanize(s string) string {
	cleaned := stripTags(s)
	words := strings.Split(cleaned, "-")
	caser := cases.Title(language.Und)
	for i, w := range words {
		words[i] = caser.String(w)
	}
	return strings.Join(words, " ")
}

// LookupKey is the case-folded form of Humanize used to compare a slug
// against stored titles.
func LookupKey(s string) string {
	return strings.ToLower(Humanize(s))
}

// CleanParam strips markup, trims and converts hyphens to spaces without
// touching the case.  Category and program name lookups lower-case the
// result themselves.
func CleanParam(s string) string {
	return strings.ReplaceAll(stripTags(s), "-", " ")
}

// Valid reports whether a path parameter is acceptable as a slug.
func Valid(s string) bool {
	return validParam.MatchString(s)
}

func stripTags(s string) string {
	return strings.TrimSpace(strict.Sanitize(s))
}
