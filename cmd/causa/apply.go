package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/causa-registry/pkg/atomicfile"
	"github.com/hazyhaar/causa-registry/pkg/claims"
	"github.com/hazyhaar/causa-registry/pkg/ledger"
	"github.com/hazyhaar/causa-registry/pkg/mapping"
)

func newApplyCmd(a *app) *cobra.Command {
	flags := map[string]string{
		"dataset.path": "dataset",
		"mapping.path": "mapping",
		"apply.output": "output",
		"report.path":  "report",
	}
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Rewrite the dataset's cause column with a reviewed mapping",
		Long: `Replace every cause label of the dataset by its mapped canonical form and keep
the previous value in the audit column (dataset.audit_column). Labels absent
from the mapping are kept unchanged and counted. The mapping must exist:
run "causa generate" and review its output first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd, flags)
			if err != nil {
				return err
			}
			run := ledger.Run{
				Kind:      ledger.KindApply,
				StartedAt: time.Now(),
				Dataset:   cfg.Dataset.Path,
				Mapping:   cfg.Mapping.Path,
				Output:    cfg.Apply.Output,
			}
			err = a.apply(cmd.Context(), cfg, cmd.OutOrStdout(), &run)
			a.record(cmd.Context(), cfg, run, err)
			return err
		},
	}
	cmd.Flags().String("dataset", "", "claim dataset to rewrite (CSV)")
	cmd.Flags().String("mapping", "", "reviewed mapping file")
	cmd.Flags().StringP("output", "o", "", "rewritten dataset (may equal --dataset)")
	cmd.Flags().String("report", "", "cleaning report file (empty disables it)")
	return cmd
}

func (a *app) apply(_ context.Context, cfg Config, out io.Writer, run *ledger.Run) error {
	m, err := mapping.Load(cfg.Mapping.Path, a.logger)
	if err != nil {
		if errors.Is(err, mapping.ErrMappingNotFound) {
			return &diagnostic{err: err, hint: "run `causa generate` first, review the mapping, then apply it"}
		}
		return err
	}
	a.logger.Info("mapping loaded", "path", cfg.Mapping.Path, "records", m.Len())

	st, err := m.ApplyFile(cfg.Dataset.Path, cfg.Apply.Output, cfg.Dataset.Format, cfg.Dataset.AuditColumn)
	if err != nil {
		if errors.Is(err, claims.ErrColumnNotFound) {
			return &diagnostic{err: err, hint: "set dataset.cause_column to the dataset's cause header"}
		}
		return err
	}
	run.Labels = m.Len()
	run.Rows = st.Rows
	run.Skipped = st.MissingCause
	run.Fallback = st.Fallback
	run.UniqueBefore, run.UniqueAfter = st.UniqueBefore, st.UniqueAfter
	run.ByKind = make(map[string]int)
	for _, r := range m.Records {
		run.ByKind[string(r.Kind)]++
	}

	if st.Fallback > 0 {
		a.logger.Warn("labels absent from the mapping were kept unchanged",
			"rows", st.Fallback,
			"hint", "the mapping was generated from another dataset",
		)
	}
	if st.Ragged > 0 {
		a.logger.Warn("rows with a field count different from the header",
			"rows", st.Ragged,
			"hint", "extra fields were kept after the audit column",
		)
	}

	fmt.Fprintf(out, "Filas: %s, reescritas: %s\n", humanize.Comma(int64(st.Rows)), humanize.Comma(int64(st.Rewritten)))
	fmt.Fprintf(out, "Causas únicas: %s -> %s\n", humanize.Comma(int64(st.UniqueBefore)), humanize.Comma(int64(st.UniqueAfter)))
	fmt.Fprintf(out, "Dataset limpio guardado en: %s\n", cfg.Apply.Output)

	if cfg.Report.Path == "" {
		return nil
	}
	if err := atomicfile.Write(cfg.Report.Path, func(w io.Writer) error {
		mapping.WriteReport(w, st, m.Records)
		return nil
	}); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(out, "Reporte guardado en: %s\n", cfg.Report.Path)
	return nil
}
