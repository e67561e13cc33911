package lookup

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hazyhaar/causa-registry/pkg/mapping"
	"github.com/hazyhaar/causa-registry/pkg/resolve"
)

func testMapping() *mapping.Mapping {
	return mapping.New([]mapping.Record{
		{Original: "DIABETES MELLITUS TIPO 2", Corrected: "DIABETES MELLITUS TIPO 2", Kind: resolve.KindUnchanged, Similarity: 1, Frequency: 900, NumYears: 3},
		{Original: "INSUFICIENCIA RENAL CRONICA TERMINAL", Corrected: "INSUFICIENCIA RENAL CRONICA TERMINAL", Kind: resolve.KindUnchanged, Similarity: 1, Frequency: 300, NumYears: 2},
		{Original: "DIABETES MELITUS TIPO 2", Corrected: "DIABETES MELLITUS TIPO 2", Kind: resolve.KindTypo, Similarity: 0.9787, Frequency: 9, NumYears: 1},
		{Original: "FIEBRE", Corrected: "FIEBRE", Kind: resolve.KindUnchanged, Similarity: 1, Frequency: 50, NumYears: 1},
	}, nil)
}

func testService(t *testing.T) *Service {
	t.Helper()
	s, err := New(testMapping(), resolve.DefaultConfig(), time.Minute, nil)
	require.NoError(t, err)
	return s
}

func TestResolve_MappingHit(t *testing.T) {
	s := testService(t)

	r, err := s.Resolve("DIABETES MELITUS TIPO 2")
	require.NoError(t, err)
	assert.Equal(t, OriginMapping, r.Origin)
	assert.Equal(t, "DIABETES MELLITUS TIPO 2", r.Corrected)
	assert.Equal(t, resolve.KindTypo, r.Kind)
	assert.Equal(t, 0.9787, r.Similarity)
}

func TestResolve_LiveAndCached(t *testing.T) {
	s := testService(t)

	r, err := s.Resolve("insuficiencia renal cronica termi")
	require.NoError(t, err)
	assert.Equal(t, OriginLive, r.Origin)
	assert.False(t, r.Cached)
	assert.Equal(t, resolve.KindTruncated, r.Kind)
	assert.Equal(t, "INSUFICIENCIA RENAL CRONICA TERMINAL", r.Corrected)
	assert.Equal(t, 0.9167, r.Similarity)

	again, err := s.Resolve("insuficiencia renal cronica termi")
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, r.Corrected, again.Corrected)
	assert.Equal(t, 1, s.Stats().Cached)

	s.Flush()
	assert.Zero(t, s.Stats().Cached)
}

func TestResolve_SingleYearRecordIsNotVocabulary(t *testing.T) {
	s := testService(t)

	// FIEBRE is in the mapping but single-year: a variant of it must not
	// resolve onto it.
	r, err := s.Resolve("fiebre ")
	require.NoError(t, err)
	assert.Equal(t, OriginLive, r.Origin)
	assert.Equal(t, resolve.KindUnchanged, r.Kind)
	assert.Equal(t, "FIEBRE", r.Corrected)
}

func TestResolve_Empty(t *testing.T) {
	s := testService(t)
	_, err := s.Resolve("   ")
	assert.ErrorIs(t, err, ErrEmptyLabel)
}

func TestResolve_NoReferences(t *testing.T) {
	m := mapping.New([]mapping.Record{{Original: "X", Corrected: "X", NumYears: 1}}, nil)
	s, err := New(m, resolve.DefaultConfig(), time.Minute, nil)
	require.NoError(t, err)
	assert.False(t, s.Stats().Live)

	r, err := s.Resolve("  gripe  comun ")
	require.NoError(t, err)
	assert.Equal(t, "GRIPE COMUN", r.Corrected)
	assert.Equal(t, resolve.KindUnchanged, r.Kind)
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := resolve.DefaultConfig()
	cfg.FuzzyThreshold = 2
	_, err := New(testMapping(), cfg, time.Minute, nil)
	assert.ErrorIs(t, err, resolve.ErrInvalidConfig)
}

func TestResolveBatch(t *testing.T) {
	s := testService(t)

	out, err := s.ResolveBatch([]string{"FIEBRE", "DIABETES MELLITUS TIPO 2 ", "DIABETES MELITUS TIPO 2"})
	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, "FIEBRE", out[0].Original)
	assert.Equal(t, resolve.KindNormalization, out[1].Kind)
	assert.Equal(t, OriginMapping, out[2].Origin)

	big := make([]string, MaxBatch+1)
	for i := range big {
		big[i] = fmt.Sprintf("L%d", i)
	}
	_, err = s.ResolveBatch(big)
	assert.ErrorIs(t, err, ErrBatchTooLarge)

	_, err = s.ResolveBatch([]string{"FIEBRE", ""})
	assert.ErrorIs(t, err, ErrEmptyLabel)
}

func TestStats(t *testing.T) {
	s := testService(t)
	st := s.Stats()
	assert.Equal(t, 4, st.Records)
	assert.Equal(t, 2, st.References)
	assert.Equal(t, 3, st.UniqueAfter)
	assert.Equal(t, 1, st.ByKind[resolve.KindTypo])
	assert.True(t, st.Live)
}
