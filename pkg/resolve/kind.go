package resolve

import (
	"fmt"
	"math"
)

// Kind classifies a mapping decision. Values are the ones written to the
// tipo_correccion column.
type Kind string

const (
	KindUnchanged     Kind = "sin_cambio"
	KindNormalization Kind = "normalizacion"
	KindAccent        Kind = "acento"
	KindTruncated     Kind = "truncado"
	KindTypo          Kind = "typo"
)

// Kinds lists every kind in strategy priority order, unchanged last.
var Kinds = []Kind{KindNormalization, KindAccent, KindTruncated, KindTypo, KindUnchanged}

// ParseKind validates a tipo_correccion value read back from a mapping file.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown correction type %q", s)
}

// Decision is the outcome of resolving one label.
type Decision struct {
	Original   string  `json:"causa_original"`
	Target     string  `json:"causa_corregida"`
	Kind       Kind    `json:"tipo_correccion"`
	Similarity float64 `json:"similitud"`
}

// Changed reports whether the label was mapped onto a reference.
func (d Decision) Changed() bool {
	return d.Kind != KindUnchanged
}

// Round4 rounds a similarity to the 4 decimals stored in the mapping.
func Round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
