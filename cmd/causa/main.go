// CLAUDE:SUMMARY causa CLI entry point: root cobra command, viper config layering, slog setup and fatal diagnostics.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.3.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd(os.Stdout, os.Stderr).ExecuteContext(ctx)
	stop()
	if err != nil {
		report(os.Stderr, err)
		os.Exit(1)
	}
}

// diagnostic is a fatal precondition failure with a remediation line.
type diagnostic struct {
	err  error
	hint string
}

func (d *diagnostic) Error() string { return d.err.Error() }
func (d *diagnostic) Unwrap() error { return d.err }

func report(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)
	var d *diagnostic
	if errors.As(err, &d) && d.hint != "" {
		fmt.Fprintf(w, "  -> %s\n", d.hint)
	}
}

type app struct {
	v       *viper.Viper
	cfgFile string
	stderr  io.Writer
	logger  *slog.Logger
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: viper.New(), stderr: stderr}
	setDefaults(a.v)

	root := &cobra.Command{
		Use:   "causa",
		Short: "Resolve inconsistent claim cause labels into canonical identities",
		Long: `causa collapses the free-text cause labels of yearly claim extracts into a
smaller set of canonical labels.

Labels seen in more than one year form the reference vocabulary. Every
single-year label is matched against it (normalization, accents, truncation,
typos) and the result is written as a mapping file for human review.
The reviewed mapping is then applied to the dataset with "causa apply".

Without a subcommand, causa runs "generate".`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: ./causa.yaml)")
	root.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().String("ledger", "", "run ledger database (empty string in config disables it)")

	gen := newGenerateCmd(a)
	root.RunE = gen.RunE
	addGenerateFlags(root)

	root.AddCommand(
		gen,
		newApplyCmd(a),
		newServeCmd(a),
		newRunsCmd(a),
		newConfigCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "causa v%s\n", version)
			},
		},
	)
	return root
}

// init reads the config file and environment, then sets up logging.
func (a *app) init(cmd *cobra.Command) error {
	v := a.v
	if a.cfgFile != "" {
		v.SetConfigFile(a.cfgFile)
	} else {
		v.SetConfigName("causa")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// CAUSA_DATASET_PATH overrides dataset.path, and so on.
	v.SetEnvPrefix("CAUSA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if a.cfgFile != "" || !errors.As(err, &notFound) {
			return &diagnostic{
				err:  fmt.Errorf("read config: %w", err),
				hint: "check the --config path and its YAML syntax",
			}
		}
	}

	if err := bindFlags(v, cmd, map[string]string{
		"log.level":   "log-level",
		"ledger.path": "ledger",
	}); err != nil {
		return err
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(v.GetString("log.level"))); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	a.logger = slog.New(slog.NewTextHandler(a.stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(a.logger)

	if f := v.ConfigFileUsed(); f != "" {
		a.logger.Debug("config loaded", "file", f)
	}
	return nil
}

// bindFlags binds config keys to the executing command's flags only, so
// subcommands sharing a key never shadow each other.
func bindFlags(v *viper.Viper, cmd *cobra.Command, keys map[string]string) error {
	for key, name := range keys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}
