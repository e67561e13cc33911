package resolve

import (
	"strings"

	"github.com/hazyhaar/causa-registry/pkg/label"
)

// Query carries the two derived forms of the label being resolved.
type Query struct {
	Normalized string
	Folded     string
}

// NewQuery derives both forms from raw text.
func NewQuery(raw string) Query {
	n := label.Normalize(raw)
	return Query{Normalized: n, Folded: label.StripAccents(n)}
}

// Match is an accepted strategy result.
type Match struct {
	Target     string
	Similarity float64
}

// Strategy attempts one kind of match against the frozen vocabulary.
// Strategies never mutate shared state and are safe for concurrent use.
type Strategy interface {
	Kind() Kind
	Match(q Query) (Match, bool)
}

// exactStrategy: the normalized form is a reference verbatim.
type exactStrategy struct {
	refs *label.ReferenceSet
}

func (s exactStrategy) Kind() Kind { return KindNormalization }

func (s exactStrategy) Match(q Query) (Match, bool) {
	if q.Normalized == "" || !s.refs.Contains(q.Normalized) {
		return Match{}, false
	}
	return Match{Target: q.Normalized, Similarity: 1.0}, true
}

// accentStrategy: equal once diacritics are removed. The target keeps the
// reference's accents.
type accentStrategy struct {
	refs  *label.ReferenceSet
	score float64
}

func (s accentStrategy) Kind() Kind { return KindAccent }

func (s accentStrategy) Match(q Query) (Match, bool) {
	if q.Folded == "" {
		return Match{}, false
	}
	target, ok := s.refs.ByFolded(q.Folded)
	if !ok {
		return Match{}, false
	}
	return Match{Target: target, Similarity: s.score}, true
}

// prefixStrategy: the candidate is a truncated reference. It scans every
// reference, unblocked: truncation can cut through the first token.
type prefixStrategy struct {
	refs   *label.ReferenceSet
	minLen int
}

func (s prefixStrategy) Kind() Kind { return KindTruncated }

func (s prefixStrategy) Match(q Query) (Match, bool) {
	n := label.Len(q.Normalized)
	if n < s.minLen {
		return Match{}, false
	}
	var best Match
	for ref := range s.refs.All() {
		if !strings.HasPrefix(ref, q.Normalized) {
			continue
		}
		// Shorter references score higher; the first one wins ties.
		sim := float64(n) / float64(label.Len(ref))
		if sim > best.Similarity {
			best = Match{Target: ref, Similarity: sim}
		}
	}
	return best, best.Target != ""
}

// fuzzyStrategy: near-identical spelling within the candidate's block.
type fuzzyStrategy struct {
	index     *label.BlockIndex
	threshold float64
	minRatio  float64
	maxRatio  float64
}

func (s fuzzyStrategy) Kind() Kind { return KindTypo }

func (s fuzzyStrategy) Match(q Query) (Match, bool) {
	block := s.index.Block(label.FirstToken(q.Folded))
	if len(block) == 0 {
		return Match{}, false
	}
	n := float64(label.Len(q.Folded))

	var best Match
	for _, e := range block {
		refLen := float64(label.Len(e.Folded))
		if refLen == 0 {
			continue
		}
		if ratio := n / refLen; ratio < s.minRatio || ratio > s.maxRatio {
			continue
		}
		sim := Similarity(q.Folded, e.Folded)
		if sim > best.Similarity && sim >= s.threshold {
			best = Match{Target: e.Reference, Similarity: sim}
		}
	}
	return best, best.Target != ""
}
