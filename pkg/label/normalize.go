// CLAUDE:SUMMARY Cause label canonicalization: upper-case + whitespace collapse (display form) and diacritic removal (matching form).
package label

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize upper-cases s, trims it and collapses internal whitespace runs
// to a single space (e.g. "  diabetes   mellitus " -> "DIABETES MELLITUS").
// Accents are preserved: this is the display form written to the mapping.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	// Full case mapping: a caser is stateful, one per call.
	upper := cases.Upper(language.Und).String(s)
	return strings.Join(strings.Fields(upper), " ")
}

// StripAccents removes combining marks after canonical decomposition
// (CARDIOMIOPATÍA -> CARDIOMIOPATIA). Used for matching only.
func StripAccents(s string) string {
	if s == "" {
		return s
	}
	// transform.Chain keeps state between calls; build it per call so
	// concurrent resolvers never share one.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

// Fold returns the diacritic-free form of the normalized label.
func Fold(s string) string {
	return StripAccents(Normalize(s))
}

// FirstToken returns the first whitespace-separated token of s, or "".
func FirstToken(s string) string {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	if i := strings.IndexFunc(s, unicode.IsSpace); i >= 0 {
		return s[:i]
	}
	return s
}

// Len counts code points, not bytes: thresholds such as the minimum
// prefix length are expressed in characters.
func Len(s string) int {
	return len([]rune(s))
}
