package label

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	stats := Aggregate([]Observation{
		{Cause: "NEUMONIA", Claims: 10, Year: 2021},
		{Cause: "NEUMONIA", Claims: 5, Year: 2022},
		{Cause: "NEUMONIA", Claims: 1, Year: 2021},
		{Cause: "neumonía", Claims: 3, Year: 2020},
		{Cause: "APENDICITIS", Claims: 7, Year: 2024},
	})
	require.Len(t, stats, 3)

	// Sorted by raw text.
	assert.Equal(t, "APENDICITIS", stats[0].Original)
	assert.Equal(t, "NEUMONIA", stats[1].Original)
	assert.Equal(t, "neumonía", stats[2].Original)

	n := stats[1]
	assert.Equal(t, int64(16), n.Claims)
	assert.Equal(t, []int{2021, 2022}, n.Years)
	assert.Equal(t, 2, n.NumYears())
	assert.Equal(t, "2021,2022", n.YearsString())

	assert.Equal(t, "NEUMONÍA", stats[2].Normalized())
	assert.Equal(t, "NEUMONIA", stats[2].Folded())
}

func TestNewStat_DedupesYears(t *testing.T) {
	s := NewStat(" gastritis ", 4, 2023, 2020, 2023)
	assert.Equal(t, []int{2020, 2023}, s.Years)
	assert.Equal(t, "GASTRITIS", s.Normalized())
}

func TestPartition(t *testing.T) {
	stats := []*Stat{
		NewStat("MULTI", 2, 2020, 2021),
		NewStat("SINGLE", 1, 2022),
		NewStat("FREQUENT SINGLE", 1_000_000, 2024),
	}
	refs, cands := Partition(stats)
	require.Len(t, refs, 1)
	require.Len(t, cands, 2)
	assert.Equal(t, "MULTI", refs[0].Original)
	// Frequency never promotes a label to the reference set.
	assert.Equal(t, "FREQUENT SINGLE", cands[1].Original)
}

func TestReferenceSet(t *testing.T) {
	rs := NewReferenceSetFromForms([]string{
		"NEUMONIA", "CARDIOMIOPATÍA DILATADA", "NEUMONIA", "", "ASMA",
	})
	assert.Equal(t, 3, rs.Len())
	assert.Equal(t, []string{"ASMA", "CARDIOMIOPATÍA DILATADA", "NEUMONIA"}, rs.Forms())
	assert.True(t, rs.Contains("ASMA"))
	assert.False(t, rs.Contains("asma"))

	display, ok := rs.ByFolded("CARDIOMIOPATIA DILATADA")
	require.True(t, ok)
	assert.Equal(t, "CARDIOMIOPATÍA DILATADA", display)
}

func TestReferenceSet_FormsIsACopy(t *testing.T) {
	rs := NewReferenceSetFromForms([]string{"ASMA", "NEUMONIA"})
	forms := rs.Forms()
	forms[0] = "CHANGED"

	assert.Equal(t, []string{"ASMA", "NEUMONIA"}, rs.Forms())
	assert.Equal(t, []string{"ASMA", "NEUMONIA"}, slices.Collect(rs.All()))
	assert.True(t, rs.Contains("ASMA"))
}

func TestReferenceSet_FoldCollisionKeepsFirst(t *testing.T) {
	rs := NewReferenceSetFromForms([]string{"NEUMONÍA", "NEUMONIA"})
	display, ok := rs.ByFolded("NEUMONIA")
	require.True(t, ok)
	// "NEUMONIA" < "NEUMONÍA" in byte order.
	assert.Equal(t, "NEUMONIA", display)
}

func TestBlockIndex(t *testing.T) {
	rs := NewReferenceSetFromForms([]string{
		"DIABETES MELLITUS TIPO 2",
		"DIABETES GESTACIONAL",
		"CIRUGÍA DE RODILLA",
		"ASMA",
	})
	idx := NewBlockIndex(rs)
	assert.Equal(t, 3, idx.Len())

	block := idx.Block("DIABETES")
	require.Len(t, block, 2)
	assert.Equal(t, "DIABETES GESTACIONAL", block[0].Folded)
	assert.Equal(t, "DIABETES MELLITUS TIPO 2", block[1].Folded)

	cir := idx.Block("CIRUGIA")
	require.Len(t, cir, 1)
	assert.Equal(t, "CIRUGÍA DE RODILLA", cir[0].Reference)

	assert.Nil(t, idx.Block("DIABETSE"))
	assert.InDelta(t, 4.0/3.0, idx.AvgBlockSize(), 1e-9)
}
