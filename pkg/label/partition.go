// CLAUDE:SUMMARY Splits label stats into the multi-year reference vocabulary and single-year candidates.
package label

import (
	"iter"
	"slices"
	"sort"
)

// Partition splits stats into references (observed in more than one year)
// and candidates (observed in exactly one year). Claim frequency never
// promotes a label: a single-year label stays a candidate however common.
// Input order is preserved within each side.
func Partition(stats []*Stat) (refs, cands []*Stat) {
	for _, s := range stats {
		switch {
		case s.NumYears() > 1:
			refs = append(refs, s)
		case s.NumYears() == 1:
			cands = append(cands, s)
		}
	}
	return refs, cands
}

// ReferenceSet is the frozen canonical vocabulary: the distinct normalized
// forms of every multi-year label. It is read-only once built.
type ReferenceSet struct {
	forms  []string            // ascending
	exact  map[string]struct{} // normalized form
	folded map[string]string   // folded form -> display form
}

// NewReferenceSet builds the vocabulary from reference stats.
// When two display forms fold to the same key, the first in ascending
// order keeps the key.
func NewReferenceSet(refs []*Stat) *ReferenceSet {
	forms := make([]string, 0, len(refs))
	for _, s := range refs {
		forms = append(forms, s.Normalized())
	}
	return NewReferenceSetFromForms(forms)
}

// NewReferenceSetFromForms builds the vocabulary from display forms that
// are already normalized.
func NewReferenceSetFromForms(forms []string) *ReferenceSet {
	rs := &ReferenceSet{
		exact:  make(map[string]struct{}, len(forms)),
		folded: make(map[string]string, len(forms)),
	}
	for _, f := range forms {
		if f == "" {
			continue
		}
		if _, dup := rs.exact[f]; dup {
			continue
		}
		rs.exact[f] = struct{}{}
		rs.forms = append(rs.forms, f)
	}
	sort.Strings(rs.forms)
	for _, f := range rs.forms {
		key := StripAccents(f)
		if _, taken := rs.folded[key]; !taken {
			rs.folded[key] = f
		}
	}
	return rs
}

// Len returns the number of distinct reference forms.
func (rs *ReferenceSet) Len() int {
	return len(rs.forms)
}

// Forms returns a copy of the reference forms in iteration order.
func (rs *ReferenceSet) Forms() []string {
	return slices.Clone(rs.forms)
}

// All yields the reference forms in iteration order without copying.
func (rs *ReferenceSet) All() iter.Seq[string] {
	return slices.Values(rs.forms)
}

// Contains reports whether normalized is a reference form verbatim.
func (rs *ReferenceSet) Contains(normalized string) bool {
	_, ok := rs.exact[normalized]
	return ok
}

// ByFolded returns the display form whose diacritic-free form is folded.
func (rs *ReferenceSet) ByFolded(folded string) (string, bool) {
	f, ok := rs.folded[folded]
	return f, ok
}

// foldedKeys returns the distinct folded forms, ascending.
func (rs *ReferenceSet) foldedKeys() []string {
	keys := make([]string, 0, len(rs.folded))
	for k := range rs.folded {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
