// CLAUDE:SUMMARY Claim dataset CSV access: encoding-aware reader with named column resolution, and observation extraction.
package claims

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/hazyhaar/causa-registry/pkg/label"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// ErrColumnNotFound is returned when a configured column is absent from the header.
var ErrColumnNotFound = errors.New("column not found")

// Format describes the CSV layout of a claim dataset.
type Format struct {
	Delimiter   string `yaml:"delimiter" mapstructure:"delimiter"`
	Encoding    string `yaml:"encoding" mapstructure:"encoding"`
	CauseColumn string `yaml:"cause_column" mapstructure:"cause_column"`
	CountColumn string `yaml:"count_column" mapstructure:"count_column"`
	YearColumn  string `yaml:"year_column" mapstructure:"year_column"`
}

// DefaultFormat returns the layout produced by the consolidation step.
func DefaultFormat() Format {
	return Format{
		Delimiter:   ",",
		Encoding:    "utf-8",
		CauseColumn: "cause_label",
		CountColumn: "claim_count",
		YearColumn:  "year",
	}
}

// Reader streams rows of a claim dataset.
type Reader struct {
	r      *csv.Reader
	header []string
	cause  int
	count  int
	year   int
	line   int
}

// NewReader reads the header and resolves the cause, count and year columns.
// Count and year are optional for callers that only rewrite labels: a
// missing one resolves to -1.
func NewReader(src io.Reader, f Format) (*Reader, error) {
	// Transcode non-UTF-8 extracts (older years are often windows-1252).
	if enc := f.Encoding; enc != "" && !isUTF8(enc) {
		e, err := htmlindex.Get(enc)
		if err != nil {
			return nil, fmt.Errorf("unsupported encoding %q: %w", enc, err)
		}
		src = transform.NewReader(src, e.NewDecoder())
	}

	r := csv.NewReader(src)
	if delim := f.Delimiter; delim != "" {
		r.Comma = []rune(delim)[0]
	}
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}

	cr := &Reader{r: r, header: header, line: 1}
	cr.cause = columnIndex(header, f.CauseColumn)
	if cr.cause < 0 {
		return nil, fmt.Errorf("cause column %q in header %v: %w", f.CauseColumn, header, ErrColumnNotFound)
	}
	cr.count = columnIndex(header, f.CountColumn)
	cr.year = columnIndex(header, f.YearColumn)
	return cr, nil
}

// Header returns the dataset header.
func (r *Reader) Header() []string {
	return r.header
}

// CauseIndex returns the position of the cause column.
func (r *Reader) CauseIndex() int {
	return r.cause
}

// Line returns the 1-based line of the last record read (header is line 1).
func (r *Reader) Line() int {
	return r.line
}

// Read returns the next record, or io.EOF.
func (r *Reader) Read() ([]string, error) {
	rec, err := r.r.Read()
	if err != nil {
		return nil, err
	}
	r.line++
	return rec, nil
}

// Quality counts data-quality conditions met while extracting observations.
// None of them abort a run.
type Quality struct {
	Rows         int `json:"rows"`
	Used         int `json:"used"`
	MissingCause int `json:"missing_cause"`
	BadCount     int `json:"bad_count"`
	BadYear      int `json:"bad_year"`
}

// Skipped returns the number of rows left out of aggregation.
func (q Quality) Skipped() int {
	return q.MissingCause + q.BadCount + q.BadYear
}

// Observe streams every row of src into agg. Rows with an empty cause or an
// unparsable count or year are skipped and counted.
func Observe(src io.Reader, f Format, agg *label.Aggregator) (Quality, error) {
	var q Quality
	r, err := NewReader(src, f)
	if err != nil {
		return q, err
	}
	if r.count < 0 {
		return q, fmt.Errorf("count column %q: %w", f.CountColumn, ErrColumnNotFound)
	}
	if r.year < 0 {
		return q, fmt.Errorf("year column %q: %w", f.YearColumn, ErrColumnNotFound)
	}

	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return q, fmt.Errorf("read row %d: %w", r.line+1, err)
		}
		q.Rows++

		cause := field(rec, r.cause)
		if strings.TrimSpace(cause) == "" {
			q.MissingCause++
			continue
		}
		count, ok := parseInt(field(rec, r.count))
		if !ok {
			q.BadCount++
			continue
		}
		year, ok := parseInt(field(rec, r.year))
		if !ok {
			q.BadYear++
			continue
		}
		agg.Add(label.Observation{Cause: cause, Claims: count, Year: int(year)})
		q.Used++
	}
	return q, nil
}

func field(rec []string, idx int) string {
	if idx < 0 || idx >= len(rec) {
		return ""
	}
	return rec[idx]
}

// parseInt accepts integers and integral floats ("12", "12.0").
func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func columnIndex(header []string, name string) int {
	if name == "" {
		return -1
	}
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

func isUTF8(enc string) bool {
	e := strings.ToLower(strings.ReplaceAll(enc, "-", ""))
	return e == "utf8" || e == ""
}
