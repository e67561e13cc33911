// CLAUDE:SUMMARY Per-label aggregation of claim observations: summed claim counts and distinct years (RawCauseStat).
package label

import (
	"sort"
	"strconv"
	"strings"
)

// Observation is one claim row reduced to what label resolution needs.
type Observation struct {
	Cause  string
	Claims int64
	Year   int
}

// Stat aggregates every observation of one raw label.
type Stat struct {
	Original string
	Claims   int64
	Years    []int // ascending, distinct

	normalized string
	folded     string
}

// NumYears returns the number of distinct years the label was observed in.
func (s *Stat) NumYears() int {
	return len(s.Years)
}

// YearsString renders Years as "2020,2021,2023".
func (s *Stat) YearsString() string {
	parts := make([]string, len(s.Years))
	for i, y := range s.Years {
		parts[i] = strconv.Itoa(y)
	}
	return strings.Join(parts, ",")
}

// Normalized returns the display form of the label.
func (s *Stat) Normalized() string {
	return s.normalized
}

// Folded returns the diacritic-free form of the label.
func (s *Stat) Folded() string {
	return s.folded
}

// NewStat builds a Stat and its derived forms. Years are sorted and deduplicated.
func NewStat(original string, claims int64, years ...int) *Stat {
	ys := append([]int(nil), years...)
	sort.Ints(ys)
	out := ys[:0]
	for i, y := range ys {
		if i > 0 && y == ys[i-1] {
			continue
		}
		out = append(out, y)
	}
	norm := Normalize(original)
	return &Stat{
		Original:   original,
		Claims:     claims,
		Years:      out,
		normalized: norm,
		folded:     StripAccents(norm),
	}
}

// Aggregator groups observations by raw label text.
type Aggregator struct {
	claims map[string]int64
	years  map[string]map[int]struct{}
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{
		claims: make(map[string]int64),
		years:  make(map[string]map[int]struct{}),
	}
}

// Add records one observation. Labels are grouped by their raw text,
// not their normalized form: two spellings stay two stats.
func (a *Aggregator) Add(o Observation) {
	a.claims[o.Cause] += o.Claims
	ys, ok := a.years[o.Cause]
	if !ok {
		ys = make(map[int]struct{})
		a.years[o.Cause] = ys
	}
	ys[o.Year] = struct{}{}
}

// Len returns the number of distinct raw labels seen so far.
func (a *Aggregator) Len() int {
	return len(a.claims)
}

// Stats returns one Stat per distinct raw label, sorted by raw text.
func (a *Aggregator) Stats() []*Stat {
	keys := make([]string, 0, len(a.claims))
	for k := range a.claims {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	stats := make([]*Stat, 0, len(keys))
	for _, k := range keys {
		years := make([]int, 0, len(a.years[k]))
		for y := range a.years[k] {
			years = append(years, y)
		}
		stats = append(stats, NewStat(k, a.claims[k], years...))
	}
	return stats
}

// Aggregate is a convenience wrapper over Aggregator.
func Aggregate(obs []Observation) []*Stat {
	a := NewAggregator()
	for _, o := range obs {
		a.Add(o)
	}
	return a.Stats()
}
