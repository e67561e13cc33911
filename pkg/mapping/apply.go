package mapping

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/hazyhaar/causa-registry/pkg/atomicfile"
	"github.com/hazyhaar/causa-registry/pkg/claims"
)

// ApplyStats counts what the applicator did to a dataset.
type ApplyStats struct {
	Rows         int `json:"rows"`
	Rewritten    int `json:"rewritten"`     // cause label changed
	Fallback     int `json:"fallback"`      // label absent from the mapping, kept as is
	MissingCause int `json:"missing_cause"` // empty cause, kept as is
	Ragged       int `json:"ragged"`        // field count differs from the header
	UniqueBefore int `json:"unique_before"`
	UniqueAfter  int `json:"unique_after"`
}

// Apply copies the claim dataset from src to dst, replacing every cause
// label by its mapped form and keeping the previous value in auditColumn.
// Labels absent from the mapping are left unchanged and counted. If the
// dataset already carries auditColumn it is overwritten in place.
func (m *Mapping) Apply(src io.Reader, dst io.Writer, f claims.Format, auditColumn string) (ApplyStats, error) {
	var st ApplyStats
	if auditColumn == "" {
		return st, fmt.Errorf("apply: empty audit column name")
	}

	r, err := claims.NewReader(src, f)
	if err != nil {
		return st, err
	}
	cause := r.CauseIndex()
	width := len(r.Header())

	header := append([]string(nil), r.Header()...)
	audit := -1
	for i, h := range header {
		if h == auditColumn {
			audit = i
			break
		}
	}
	if audit < 0 {
		header = append(header, auditColumn)
		audit = len(header) - 1
	}

	w := csv.NewWriter(dst)
	if d := f.Delimiter; d != "" {
		w.Comma = []rune(d)[0]
	}
	if err := w.Write(header); err != nil {
		return st, fmt.Errorf("write header: %w", err)
	}

	before := make(map[string]struct{})
	after := make(map[string]struct{})
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, fmt.Errorf("read row %d: %w", r.Line()+1, err)
		}
		st.Rows++

		if len(rec) != width {
			st.Ragged++
		}
		cut := min(len(rec), width)
		row := make([]string, len(header)+len(rec)-cut)
		copy(row, rec[:cut])
		copy(row[len(header):], rec[cut:])

		var original string
		if cause < len(rec) {
			original = rec[cause]
		}
		corrected := original
		switch {
		case strings.TrimSpace(original) == "":
			st.MissingCause++
		default:
			before[original] = struct{}{}
			if c, ok := m.Lookup(original); ok {
				corrected = c
			} else {
				st.Fallback++
			}
			after[corrected] = struct{}{}
		}
		if corrected != original {
			st.Rewritten++
		}
		row[cause] = corrected
		row[audit] = original

		if err := w.Write(row); err != nil {
			return st, fmt.Errorf("write row %d: %w", r.Line(), err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return st, fmt.Errorf("flush: %w", err)
	}

	st.UniqueBefore = len(before)
	st.UniqueAfter = len(after)
	return st, nil
}

// ApplyFile applies the mapping to the dataset at in and writes the result
// atomically to out. in and out may be the same path.
func (m *Mapping) ApplyFile(in, out string, f claims.Format, auditColumn string) (ApplyStats, error) {
	var st ApplyStats
	src, err := os.Open(in)
	if err != nil {
		return st, fmt.Errorf("open dataset: %w", err)
	}
	defer src.Close()

	err = atomicfile.Write(out, func(w io.Writer) error {
		var err error
		st, err = m.Apply(src, w, f, auditColumn)
		return err
	})
	if err != nil {
		return st, fmt.Errorf("apply %s: %w", in, err)
	}
	return st, nil
}
