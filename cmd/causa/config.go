package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/causa-registry/pkg/claims"
	"github.com/hazyhaar/causa-registry/pkg/resolve"
)

// Config is the effective configuration of a run.
type Config struct {
	Dataset  DatasetConfig  `yaml:"dataset" mapstructure:"dataset"`
	Mapping  PathConfig     `yaml:"mapping" mapstructure:"mapping"`
	Apply    ApplyConfig    `yaml:"apply" mapstructure:"apply"`
	Report   PathConfig     `yaml:"report" mapstructure:"report"`
	Matching resolve.Config `yaml:"matching" mapstructure:"matching"`
	Ledger   PathConfig     `yaml:"ledger" mapstructure:"ledger"`
	Serve    ServeConfig    `yaml:"serve" mapstructure:"serve"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

type DatasetConfig struct {
	Path          string `yaml:"path" mapstructure:"path"`
	claims.Format `yaml:",inline" mapstructure:",squash"`
	// AuditColumn receives the pre-apply cause label.
	AuditColumn string `yaml:"audit_column" mapstructure:"audit_column"`
}

type PathConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

type ApplyConfig struct {
	Output string `yaml:"output" mapstructure:"output"`
}

type ServeConfig struct {
	Addr     string `yaml:"addr" mapstructure:"addr"`
	CacheTTL string `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	f := claims.DefaultFormat()
	m := resolve.DefaultConfig()

	v.SetDefault("dataset.path", "data/siniestros_consolidado.csv")
	v.SetDefault("dataset.delimiter", f.Delimiter)
	v.SetDefault("dataset.encoding", f.Encoding)
	v.SetDefault("dataset.cause_column", f.CauseColumn)
	v.SetDefault("dataset.count_column", f.CountColumn)
	v.SetDefault("dataset.year_column", f.YearColumn)
	v.SetDefault("dataset.audit_column", "cause_label_original")
	v.SetDefault("mapping.path", "data/causa_mapping.csv")
	v.SetDefault("apply.output", "data/siniestros_limpio.csv")
	v.SetDefault("report.path", "data/reporte_limpieza.txt")
	v.SetDefault("matching.min_prefix_length", m.MinPrefixLength)
	v.SetDefault("matching.fuzzy_threshold", m.FuzzyThreshold)
	v.SetDefault("matching.min_length_ratio", m.MinLengthRatio)
	v.SetDefault("matching.max_length_ratio", m.MaxLengthRatio)
	v.SetDefault("matching.accent_score", m.AccentScore)
	v.SetDefault("matching.workers", m.Workers)
	v.SetDefault("ledger.path", "data/causa_runs.db")
	v.SetDefault("serve.addr", ":8421")
	v.SetDefault("serve.cache_ttl", "10m")
	v.SetDefault("log.level", "info")
}

// load binds the command's flags and decodes the layered configuration.
func (a *app) load(cmd *cobra.Command, flags map[string]string) (Config, error) {
	var cfg Config
	if err := bindFlags(a.v, cmd, flags); err != nil {
		return cfg, err
	}
	if err := a.v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Matching.Validate(); err != nil {
		return cfg, &diagnostic{err: err, hint: "fix the matching.* keys in the config file or CAUSA_MATCHING_* variables"}
	}
	return cfg, nil
}

func (c Config) cacheTTL() (time.Duration, error) {
	d, err := time.ParseDuration(c.Serve.CacheTTL)
	if err != nil {
		return 0, fmt.Errorf("serve.cache_ttl: %w", err)
	}
	return d, nil
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration",
		Long: `Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (CAUSA_*, e.g. CAUSA_DATASET_PATH)
3. Config file (./causa.yaml or --config)
4. Defaults`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load(cmd, nil)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if f := a.v.ConfigFileUsed(); f != "" {
				fmt.Fprintf(out, "# config file: %s\n", f)
			} else {
				fmt.Fprintln(out, "# no config file, defaults and environment only")
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("marshal config: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	})
	return cmd
}
