package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/hazyhaar/causa-registry/pkg/ledger"
)

func newRunsCmd(a *app) *cobra.Command {
	var (
		kind   string
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List recent generate/apply runs from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			if cfg.Ledger.Path == "" {
				return &diagnostic{err: fmt.Errorf("run ledger disabled"), hint: "set ledger.path in the config file"}
			}
			switch kind {
			case "", ledger.KindGenerate, ledger.KindApply:
			default:
				return fmt.Errorf("unknown run kind %q (want %s or %s)", kind, ledger.KindGenerate, ledger.KindApply)
			}

			l, err := ledger.Open(cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer l.Close()
			runs, err := l.List(cmd.Context(), kind, limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tKIND\tSTARTED\tDURATION\tSTATUS\tLABELS\tUNIQUE\tFALLBACK\tERROR")
			for _, r := range runs {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s -> %s\t%s\t%s\n",
					r.ID, r.Kind,
					humanize.Time(r.StartedAt),
					r.Duration().Round(time.Millisecond),
					r.Status,
					humanize.Comma(int64(r.Labels)),
					humanize.Comma(int64(r.UniqueBefore)), humanize.Comma(int64(r.UniqueAfter)),
					humanize.Comma(int64(r.Fallback)),
					r.Error,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only list runs of this kind (generate, apply)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum runs to list (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print runs as JSON")
	return cmd
}
