package photos

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// fallbackSlug names the folder of a plant whose name has no usable
// characters.
const fallbackSlug = "plant"

var (
	slugDrop       = regexp.MustCompile(`[^\w\s-]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugHyphenRuns = regexp.MustCompile(`-+`)
)

// foldAccents strips combining marks, so "Café" becomes "Cafe".
func foldAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// SanitizePlantName turns a plant name into a folder name made only of
// lower-case ASCII letters, digits, underscores and hyphens.
func SanitizePlantName(name string) string {
	s := foldAccents(strings.TrimSpace(name))
	s = slugDrop.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	s = slugSpaces.ReplaceAllString(s, "_")
	s = slugHyphenRuns.ReplaceAllString(s, "-")
	s = strings.ToLower(s)
	if s == "" {
		return fallbackSlug
	}
	return s
}
