package resolve

import "github.com/pmezard/go-difflib/difflib"

// Similarity returns the Ratcliff/Obershelp ratio 2*M/T of a and b, in [0,1],
// computed per character.
func Similarity(a, b string) float64 {
	m := difflib.NewMatcher(chars(a), chars(b))
	return m.Ratio()
}

func chars(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
