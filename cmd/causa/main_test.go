package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/causa-registry/pkg/ledger"
	"github.com/hazyhaar/causa-registry/pkg/mapping"
	"github.com/hazyhaar/causa-registry/pkg/resolve"
)

const dataset = `cause_label,claim_count,year
CARDIOMIOPATIA DILATADA,10,2021
CARDIOMIOPATIA DILATADA,5,2022
CARDIOMIOPATÍA DILATADA,3,2020
DIABETES MELLITUS TIPO 2,100,2020
DIABETES MELLITUS TIPO 2,80,2021
DIABETES MELITUS TIPO 2,2,2022
FIEBRE,7,2023
,1,2023
`

type env struct {
	dir, config, dataset, mapping, output, report, ledger string
}

func newEnv(t *testing.T, data string) env {
	t.Helper()
	dir := t.TempDir()
	e := env{
		dir:     dir,
		config:  filepath.Join(dir, "causa.yaml"),
		dataset: filepath.Join(dir, "siniestros.csv"),
		mapping: filepath.Join(dir, "out", "causa_mapping.csv"),
		output:  filepath.Join(dir, "out", "siniestros_limpio.csv"),
		report:  filepath.Join(dir, "out", "reporte.txt"),
		ledger:  filepath.Join(dir, "out", "runs.db"),
	}
	require.NoError(t, os.WriteFile(e.dataset, []byte(data), 0o644))
	cfg := "dataset:\n  path: " + e.dataset +
		"\nmapping:\n  path: " + e.mapping +
		"\napply:\n  output: " + e.output +
		"\nreport:\n  path: " + e.report +
		"\nledger:\n  path: " + e.ledger +
		"\nlog:\n  level: warn\n"
	require.NoError(t, os.WriteFile(e.config, []byte(cfg), 0o644))
	return e
}

func run(t *testing.T, e env, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(append([]string{"--config", e.config}, args...))
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func listRuns(t *testing.T, path string) []ledger.Run {
	t.Helper()
	l, err := ledger.Open(path)
	require.NoError(t, err)
	defer l.Close()
	runs, err := l.List(context.Background(), "", 0)
	require.NoError(t, err)
	return runs
}

func TestGenerateThenApply(t *testing.T) {
	e := newEnv(t, dataset)

	out, _, err := run(t, e, "generate")
	require.NoError(t, err)
	assert.Contains(t, out, "Causas multi-año (referencia): 2")
	assert.Contains(t, out, "Mapping guardado en: "+e.mapping)

	m, err := mapping.Load(e.mapping, nil)
	require.NoError(t, err)
	assert.Equal(t, 5, m.Len())
	c, _ := m.Lookup("CARDIOMIOPATÍA DILATADA")
	assert.Equal(t, "CARDIOMIOPATIA DILATADA", c)
	c, _ = m.Lookup("DIABETES MELITUS TIPO 2")
	assert.Equal(t, "DIABETES MELLITUS TIPO 2", c)

	out, _, err = run(t, e, "apply")
	require.NoError(t, err)
	assert.Contains(t, out, "Causas únicas: 5 -> 3")

	data, err := os.ReadFile(e.output)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Equal(t, "cause_label,claim_count,year,cause_label_original", lines[0])
	assert.Contains(t, lines, "CARDIOMIOPATIA DILATADA,3,2020,CARDIOMIOPATÍA DILATADA")
	assert.Contains(t, lines, ",1,2023,")

	report, err := os.ReadFile(e.report)
	require.NoError(t, err)
	assert.Contains(t, string(report), "REPORTE DE LIMPIEZA DE CAUSAS")

	// The mapping file is never touched by apply.
	after, err := mapping.Load(e.mapping, nil)
	require.NoError(t, err)
	assert.Equal(t, m.Records, after.Records)

	runs := listRuns(t, e.ledger)
	require.Len(t, runs, 2)
	assert.Equal(t, ledger.KindApply, runs[0].Kind)
	assert.Equal(t, 8, runs[0].Rows)
	assert.Equal(t, 1, runs[0].Skipped)
	assert.Equal(t, ledger.KindGenerate, runs[1].Kind)
	assert.Equal(t, 2, runs[1].References)
	assert.Equal(t, 1, runs[1].ByKind[string(resolve.KindTypo)])
	assert.Equal(t, ledger.StatusOK, runs[1].Status)
}

func TestDefaultCommandIsGenerate(t *testing.T) {
	e := newEnv(t, dataset)
	_, _, err := run(t, e)
	require.NoError(t, err)
	_, err = os.Stat(e.mapping)
	assert.NoError(t, err)
}

func TestFlagsOverrideConfig(t *testing.T) {
	e := newEnv(t, dataset)
	alt := filepath.Join(e.dir, "alt.csv")

	_, _, err := run(t, e, "generate", "--mapping", alt)
	require.NoError(t, err)
	_, err = os.Stat(alt)
	assert.NoError(t, err)
	_, err = os.Stat(e.mapping)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestApplyWithoutMapping(t *testing.T) {
	e := newEnv(t, dataset)

	_, _, err := run(t, e, "apply")
	require.Error(t, err)
	assert.ErrorIs(t, err, mapping.ErrMappingNotFound)

	var buf bytes.Buffer
	report(&buf, err)
	assert.Contains(t, buf.String(), "run `causa generate` first")

	_, statErr := os.Stat(e.output)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "no output on failed precondition")

	runs := listRuns(t, e.ledger)
	require.Len(t, runs, 1)
	assert.Equal(t, ledger.StatusError, runs[0].Status)
}

func TestGenerateEmptyReferenceSet(t *testing.T) {
	e := newEnv(t, "cause_label,claim_count,year\nA,1,2020\nB,2,2021\n")

	_, _, err := run(t, e, "generate")
	require.Error(t, err)
	assert.ErrorIs(t, err, resolve.ErrEmptyReferenceSet)

	var buf bytes.Buffer
	report(&buf, err)
	assert.Contains(t, buf.String(), "more than one year")

	_, statErr := os.Stat(e.mapping)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestGenerateMissingColumn(t *testing.T) {
	e := newEnv(t, "cause_label,claim_count\nA,1\n")
	_, _, err := run(t, e, "generate")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "year")
}

func TestInvalidMatchingConfig(t *testing.T) {
	e := newEnv(t, dataset)
	t.Setenv("CAUSA_MATCHING_FUZZY_THRESHOLD", "1.5")

	_, _, err := run(t, e, "generate")
	assert.ErrorIs(t, err, resolve.ErrInvalidConfig)
}

func TestConfigShow(t *testing.T) {
	e := newEnv(t, dataset)
	t.Setenv("CAUSA_MATCHING_MIN_PREFIX_LENGTH", "25")

	out, _, err := run(t, e, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "# config file: "+e.config)
	assert.Contains(t, out, "min_prefix_length: 25")
	assert.Contains(t, out, "cause_column: cause_label")
	assert.Contains(t, out, "path: "+e.mapping)
	assert.Contains(t, out, "cache_ttl: 10m")
}

func TestRuns(t *testing.T) {
	e := newEnv(t, dataset)
	_, _, err := run(t, e, "generate")
	require.NoError(t, err)

	out, _, err := run(t, e, "runs")
	require.NoError(t, err)
	assert.Contains(t, out, "KIND")
	assert.Contains(t, out, "generate")

	out, _, err = run(t, e, "runs", "--json", "--kind", "generate")
	require.NoError(t, err)
	var runs []ledger.Run
	require.NoError(t, json.Unmarshal([]byte(out), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, 5, runs[0].Labels)

	_, _, err = run(t, e, "runs", "--kind", "bogus")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	e := newEnv(t, dataset)
	out, _, err := run(t, e, "version")
	require.NoError(t, err)
	assert.Equal(t, "causa v"+version+"\n", out)
}
