// CLAUDE:SUMMARY generate subcommand: aggregate the claim dataset, resolve single-year labels, write the mapping for review.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/causa-registry/pkg/claims"
	"github.com/hazyhaar/causa-registry/pkg/label"
	"github.com/hazyhaar/causa-registry/pkg/ledger"
	"github.com/hazyhaar/causa-registry/pkg/mapping"
	"github.com/hazyhaar/causa-registry/pkg/resolve"
)

var generateFlags = map[string]string{
	"dataset.path":     "dataset",
	"mapping.path":     "mapping",
	"matching.workers": "workers",
}

func addGenerateFlags(cmd *cobra.Command) {
	cmd.Flags().String("dataset", "", "claim dataset (CSV)")
	cmd.Flags().String("mapping", "", "mapping file to write")
	cmd.Flags().Int("workers", 0, "resolution workers (0 = one per CPU)")
}

func newGenerateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Build the cause mapping from the claim dataset (default command)",
		Long: `Aggregate the dataset by raw cause label, take every label seen in more than
one year as reference vocabulary and resolve the single-year labels against it.
The mapping is written sorted by claim count for review; it is not applied.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd, generateFlags)
			if err != nil {
				return err
			}
			run := ledger.Run{
				Kind:      ledger.KindGenerate,
				StartedAt: time.Now(),
				Dataset:   cfg.Dataset.Path,
				Mapping:   cfg.Mapping.Path,
			}
			err = a.generate(cmd.Context(), cfg, cmd.OutOrStdout(), &run)
			a.record(cmd.Context(), cfg, run, err)
			return err
		},
	}
	addGenerateFlags(cmd)
	return cmd
}

func (a *app) generate(ctx context.Context, cfg Config, out io.Writer, run *ledger.Run) error {
	f, err := os.Open(cfg.Dataset.Path)
	if err != nil {
		return &diagnostic{
			err:  fmt.Errorf("open dataset: %w", err),
			hint: "set dataset.path (or --dataset) to the consolidated claim CSV",
		}
	}
	defer f.Close()

	fmt.Fprintf(out, "Leyendo dataset: %s\n", cfg.Dataset.Path)
	agg := label.NewAggregator()
	q, err := claims.Observe(f, cfg.Dataset.Format, agg)
	if err != nil {
		if errors.Is(err, claims.ErrColumnNotFound) {
			return &diagnostic{err: err, hint: "set dataset.cause_column, dataset.count_column and dataset.year_column to the dataset header"}
		}
		return err
	}
	stats := agg.Stats()
	run.Rows, run.Skipped, run.Labels = q.Rows, q.Skipped(), len(stats)
	a.logger.Info("dataset aggregated",
		"rows", q.Rows,
		"used", q.Used,
		"missing_cause", q.MissingCause,
		"bad_count", q.BadCount,
		"bad_year", q.BadYear,
		"labels", len(stats),
	)
	fmt.Fprintf(out, "Filas: %s, causas distintas: %s\n\n", humanize.Comma(int64(q.Rows)), humanize.Comma(int64(len(stats))))

	records, sum, err := mapping.Generate(ctx, stats, cfg.Matching, a.logger)
	if err != nil {
		if errors.Is(err, resolve.ErrEmptyReferenceSet) {
			return &diagnostic{
				err:  err,
				hint: "no cause label appears in more than one year: check dataset.year_column and that the dataset spans several yearly extracts",
			}
		}
		return err
	}
	run.References, run.Candidates = sum.References, sum.Candidates
	run.UniqueBefore, run.UniqueAfter = sum.Total, sum.UniqueAfter
	run.ByKind = make(map[string]int, len(sum.ByKind))
	for k, n := range sum.ByKind {
		run.ByKind[string(k)] = n
	}

	if err := mapping.Save(cfg.Mapping.Path, records); err != nil {
		return err
	}

	mapping.WriteSummary(out, sum)
	fmt.Fprintf(out, "\nMapping guardado en: %s\n", cfg.Mapping.Path)
	fmt.Fprintln(out, "Revise el archivo y luego ejecute: causa apply")
	return nil
}

// record appends the run to the ledger. Ledger failures never fail the run.
func (a *app) record(ctx context.Context, cfg Config, run ledger.Run, runErr error) {
	if cfg.Ledger.Path == "" {
		return
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	l, err := ledger.Open(cfg.Ledger.Path)
	if err != nil {
		a.logger.Warn("ledger unavailable", "path", cfg.Ledger.Path, "error", err)
		return
	}
	defer l.Close()
	id, err := l.Record(context.WithoutCancel(ctx), run)
	if err != nil {
		a.logger.Warn("ledger write failed", "error", err)
		return
	}
	a.logger.Debug("run recorded", "id", id, "kind", run.Kind)
}
