// CLAUDE:SUMMARY Generation summary (counts per correction type, unique-label reduction) and the post-apply cleaning report.
package mapping

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/hazyhaar/causa-registry/pkg/resolve"
)

// Summary describes a generated mapping.
type Summary struct {
	Total        int                    `json:"total"`
	References   int                    `json:"references"`
	Candidates   int                    `json:"candidates"`
	Vocabulary   int                    `json:"vocabulary"`
	ByKind       map[resolve.Kind]int   `json:"by_kind"`
	ClaimsByKind map[resolve.Kind]int64 `json:"claims_by_kind"`
	Suggested    int                    `json:"suggested"`
	UniqueAfter  int                    `json:"unique_after"`
}

// Summarize counts records per kind and the distinct corrected labels.
func Summarize(records []Record) *Summary {
	s := &Summary{
		Total:        len(records),
		ByKind:       make(map[resolve.Kind]int),
		ClaimsByKind: make(map[resolve.Kind]int64),
	}
	unique := make(map[string]struct{}, len(records))
	for _, r := range records {
		s.ByKind[r.Kind]++
		s.ClaimsByKind[r.Kind] += r.Frequency
		if r.Changed() {
			s.Suggested++
		}
		unique[r.Corrected] = struct{}{}
	}
	s.UniqueAfter = len(unique)
	return s
}

// Reduction returns how many distinct labels the mapping removes.
func (s *Summary) Reduction() int {
	return s.Total - s.UniqueAfter
}

// ReductionPct returns Reduction as a percentage of Total.
func (s *Summary) ReductionPct() float64 {
	return pct(s.Total, s.UniqueAfter)
}

func pct(before, after int) float64 {
	if before == 0 {
		return 0
	}
	return (1 - float64(after)/float64(before)) * 100
}

func comma(n int) string {
	return humanize.Comma(int64(n))
}

// WriteSummary prints the generation statistics for the operator.
func WriteSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "Causas multi-año (referencia): %s\n", comma(s.References))
	fmt.Fprintf(w, "Causas de 1 año (a revisar):   %s\n", comma(s.Candidates))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Resultados de matching:")
	fmt.Fprintf(w, "  - Normalizacion: %s\n", comma(s.ByKind[resolve.KindNormalization]))
	fmt.Fprintf(w, "  - Acentos:       %s\n", comma(s.ByKind[resolve.KindAccent]))
	fmt.Fprintf(w, "  - Truncado:      %s\n", comma(s.ByKind[resolve.KindTruncated]))
	fmt.Fprintf(w, "  - Typos:         %s\n", comma(s.ByKind[resolve.KindTypo]))
	fmt.Fprintf(w, "  - Sin match:     %s\n", comma(s.Candidates-s.Suggested))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total causas: %s\n", comma(s.Total))
	fmt.Fprintf(w, "Causas con corrección sugerida: %s\n", comma(s.Suggested))
	fmt.Fprintf(w, "Causas únicas ANTES: %s\n", comma(s.Total))
	fmt.Fprintf(w, "Causas únicas DESPUÉS (estimado): %s\n", comma(s.UniqueAfter))
	fmt.Fprintf(w, "Reducción: %s (%.1f%%)\n", comma(s.Reduction()), s.ReductionPct())
}

const reportRule = "======================================================================"

// WriteReport writes the cleaning report produced after an apply: label
// reduction, per-type volume, and the 20 corrections with the most claims.
// records may come in any order; a sorted copy is used.
func WriteReport(w io.Writer, st ApplyStats, records []Record) {
	records = append([]Record(nil), records...)
	Sort(records)
	sum := Summarize(records)

	fmt.Fprintln(w, reportRule)
	fmt.Fprintln(w, "REPORTE DE LIMPIEZA DE CAUSAS")
	fmt.Fprintln(w, reportRule)
	fmt.Fprintf(w, "\nCausas únicas ANTES: %s\n", comma(st.UniqueBefore))
	fmt.Fprintf(w, "Causas únicas DESPUÉS: %s\n", comma(st.UniqueAfter))
	fmt.Fprintf(w, "Reducción: %s (%.1f%%)\n",
		comma(st.UniqueBefore-st.UniqueAfter), pct(st.UniqueBefore, st.UniqueAfter))
	fmt.Fprintf(w, "Filas: %s, reescritas: %s, sin mapeo: %s, sin causa: %s, irregulares: %s\n",
		comma(st.Rows), comma(st.Rewritten), comma(st.Fallback), comma(st.MissingCause), comma(st.Ragged))

	fmt.Fprintf(w, "\n%s\nCORRECCIONES POR TIPO\n%s\n", strings.Repeat("-", 40), strings.Repeat("-", 40))
	for _, k := range resolve.Kinds {
		n := sum.ByKind[k]
		if n == 0 {
			continue
		}
		fmt.Fprintf(w, "  %s: %s causas (%s siniestros)\n", k, comma(n), humanize.Comma(sum.ClaimsByKind[k]))
	}

	fmt.Fprintf(w, "\n%s\nTOP 20 CORRECCIONES POR IMPACTO\n%s\n", strings.Repeat("-", 40), strings.Repeat("-", 40))
	shown := 0
	for _, r := range records {
		if !r.Changed() {
			continue
		}
		fmt.Fprintf(w, "  [%s] %s siniestros\n", r.Kind, humanize.Comma(r.Frequency))
		fmt.Fprintf(w, "    ANTES: %s\n", clip(r.Original, 60))
		fmt.Fprintf(w, "    DESPUÉS: %s\n", clip(r.Corrected, 60))
		shown++
		if shown == 20 {
			break
		}
	}

	fmt.Fprintf(w, "\n%s\nFIN DEL REPORTE\n%s\n", reportRule, reportRule)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
