// CLAUDE:SUMMARY Mapping records (raw label -> canonical label) and the generation pipeline that produces them.
package mapping

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/hazyhaar/causa-registry/pkg/label"
	"github.com/hazyhaar/causa-registry/pkg/resolve"
)

// Record is one row of the mapping file: the durable, human-reviewed artifact.
type Record struct {
	Original   string       `json:"causa_original"`
	Corrected  string       `json:"causa_corregida"`
	Kind       resolve.Kind `json:"tipo_correccion"`
	Similarity float64      `json:"similitud"`
	Frequency  int64        `json:"frecuencia"`
	Years      string       `json:"anios"`
	NumYears   int          `json:"num_anios"`
}

// Changed reports whether the record suggests a correction.
func (r Record) Changed() bool {
	return r.Kind != resolve.KindUnchanged
}

func fromDecision(s *label.Stat, d resolve.Decision) Record {
	return Record{
		Original:   s.Original,
		Corrected:  d.Target,
		Kind:       d.Kind,
		Similarity: d.Similarity,
		Frequency:  s.Claims,
		Years:      s.YearsString(),
		NumYears:   s.NumYears(),
	}
}

// Sort orders records by descending frequency so the corrections with the
// most impact are reviewed first. Ties fall back to the raw label.
func Sort(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Frequency != records[j].Frequency {
			return records[i].Frequency > records[j].Frequency
		}
		return records[i].Original < records[j].Original
	})
}

// Generate partitions stats, resolves every single-year label against the
// multi-year vocabulary and returns one record per stat, sorted.
// References map to their own normalized form.
func Generate(ctx context.Context, stats []*label.Stat, cfg resolve.Config, logger *slog.Logger) ([]Record, *Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}

	refs, cands := label.Partition(stats)
	logger.Info("labels partitioned", "references", len(refs), "candidates", len(cands))

	vocab := label.NewReferenceSet(refs)
	res, err := resolve.New(cfg, vocab, logger)
	if err != nil {
		return nil, nil, err
	}

	decisions, err := res.ResolveAll(ctx, cands)
	if err != nil {
		return nil, nil, err
	}

	records := make([]Record, 0, len(stats))
	for _, s := range refs {
		records = append(records, Record{
			Original:   s.Original,
			Corrected:  s.Normalized(),
			Kind:       resolve.KindUnchanged,
			Similarity: 1.0,
			Frequency:  s.Claims,
			Years:      s.YearsString(),
			NumYears:   s.NumYears(),
		})
	}
	for i, s := range cands {
		records = append(records, fromDecision(s, decisions[i]))
	}
	if len(records) != len(stats) {
		return nil, nil, fmt.Errorf("mapping lost labels: %d stats, %d records", len(stats), len(records))
	}
	Sort(records)

	sum := Summarize(records)
	sum.References = len(refs)
	sum.Candidates = len(cands)
	sum.Vocabulary = vocab.Len()
	return records, sum, nil
}
