// CLAUDE:SUMMARY Mapping file CSV codec (UTF-8 with BOM for spreadsheet review) and loader for the apply step.
package mapping

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/hazyhaar/causa-registry/pkg/atomicfile"
	"github.com/hazyhaar/causa-registry/pkg/resolve"
)

// ErrMappingNotFound is returned by Load when no mapping file exists yet.
var ErrMappingNotFound = errors.New("mapping file not found")

// Columns is the mapping file header, in order.
var Columns = []string{
	"causa_original", "causa_corregida", "tipo_correccion",
	"similitud", "frecuencia", "anios", "num_anios",
}

const bom = "\ufeff"

// Encode writes records as CSV, header first.
func Encode(w io.Writer, records []Record) error {
	if _, err := io.WriteString(w, bom); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.Original,
			r.Corrected,
			string(r.Kind),
			strconv.FormatFloat(r.Similarity, 'f', 4, 64),
			strconv.FormatInt(r.Frequency, 10),
			r.Years,
			strconv.Itoa(r.NumYears),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Save writes records to path atomically.
func Save(path string, records []Record) error {
	if err := atomicfile.Write(path, func(w io.Writer) error {
		return Encode(w, records)
	}); err != nil {
		return fmt.Errorf("save mapping %s: %w", path, err)
	}
	return nil
}

// Decode reads a mapping file. Only causa_original and causa_corregida are
// required: a reviewer may drop or reorder the informational columns.
func Decode(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], bom)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	for _, col := range []string{"causa_original", "causa_corregida"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("mapping header %v: missing column %q", header, col)
		}
	}

	get := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var records []Record
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read line %d: %w", line, err)
		}
		r := Record{
			Original:  get(rec, "causa_original"),
			Corrected: get(rec, "causa_corregida"),
			Kind:      resolve.KindUnchanged,
			Years:     get(rec, "anios"),
		}
		if v := get(rec, "tipo_correccion"); v != "" {
			k, err := resolve.ParseKind(v)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			r.Kind = k
		}
		if v := get(rec, "similitud"); v != "" {
			if r.Similarity, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("line %d: similitud %q: %w", line, v, err)
			}
		}
		if v := get(rec, "frecuencia"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: frecuencia %q: %w", line, v, err)
			}
			r.Frequency = int64(f)
		}
		if v := get(rec, "num_anios"); v != "" {
			if r.NumYears, err = strconv.Atoi(v); err != nil {
				return nil, fmt.Errorf("line %d: num_anios %q: %w", line, v, err)
			}
		}
		records = append(records, r)
	}
	return records, nil
}

// Mapping is a loaded, reviewed mapping ready to be applied.
type Mapping struct {
	Records []Record
	lookup  map[string]string
}

// New indexes records by raw label. A raw label listed twice keeps its last
// row, the one a reviewer appended.
func New(records []Record, logger *slog.Logger) *Mapping {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Mapping{Records: records, lookup: make(map[string]string, len(records))}
	var dups int
	for _, r := range records {
		if _, ok := m.lookup[r.Original]; ok {
			dups++
		}
		m.lookup[r.Original] = r.Corrected
	}
	if dups > 0 {
		logger.Warn("duplicate raw labels in mapping, last row kept", "duplicates", dups)
	}
	return m
}

// Load reads and indexes the mapping at path. A missing file yields
// ErrMappingNotFound.
func Load(path string, logger *slog.Logger) (*Mapping, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrMappingNotFound, path)
		}
		return nil, fmt.Errorf("open mapping: %w", err)
	}
	defer f.Close()

	records, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("mapping %s: %w", path, err)
	}
	return New(records, logger), nil
}

// Lookup returns the corrected label for a raw label.
func (m *Mapping) Lookup(original string) (string, bool) {
	c, ok := m.lookup[original]
	return c, ok
}

// Len returns the number of distinct raw labels in the mapping.
func (m *Mapping) Len() int {
	return len(m.lookup)
}

// References returns the display forms of every multi-year record: the
// vocabulary the mapping was generated against.
func (m *Mapping) References() []string {
	var out []string
	for _, r := range m.Records {
		if r.NumYears > 1 {
			out = append(out, r.Corrected)
		}
	}
	return out
}
