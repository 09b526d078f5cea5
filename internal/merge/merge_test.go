package merge

import (
	"log/slog"
	"testing"

	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func runMerge(t *testing.T, base, incoming []record.Record, prefix string, raw *models.MergeSpec) models.MergeResult {
	t.Helper()
	spec, err := ParseSpec(raw)
	require.NoError(t, err)
	return New(base, incoming, prefix, spec, testLogger(), false).Run()
}

func TestRun_OneToManyNoTies(t *testing.T) {
	base := []record.Record{{"id": "1"}}
	incoming := []record.Record{{"ref": "1"}, {"ref": "1"}}

	result := runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields: [][]string{{"id", "ref"}},
		Type:          []string{"many", "many"},
	})

	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 0, result.Unresolved)
	require.Contains(t, base[0], "SRC")
	merged := base[0]["SRC"].([]any)
	require.Len(t, merged, 2)
	assert.Equal(t, record.Record{"ref": "1"}, merged[0])
	assert.Equal(t, record.Record{"ref": "1"}, merged[1])
}

func TestRun_UniqueBaseViolationPruned(t *testing.T) {
	base := []record.Record{{"id": "1"}}
	incoming := []record.Record{{"ref": "1"}, {"ref": "1"}}

	result := runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields: [][]string{{"id", "ref"}},
		Type:          []string{"many", "one"},
	})

	assert.Equal(t, 0, result.Merged)
	assert.Equal(t, 1, result.Unresolved)
	assert.NotContains(t, base[0], "SRC")
}

func TestRun_SecondaryFieldsResolveTies(t *testing.T) {
	base := []record.Record{
		{"id": "1", "symbol": "BRCA1"},
		{"id": "1", "symbol": "BRCA2"},
	}
	incoming := []record.Record{
		{"ref": "1", "gene": "BRCA1"},
		{"ref": "1", "gene": "BRCA2"},
	}

	result := runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields:   [][]string{{"id", "ref"}},
		SecondaryFields: [][]string{{"symbol", "gene"}},
		Type:            []string{"one", "one"},
	})

	assert.Equal(t, 2, result.Merged)
	assert.Equal(t, 0, result.Unresolved)
	merged0 := base[0]["SRC"].([]any)
	require.Len(t, merged0, 1)
	assert.Equal(t, "BRCA1", merged0[0].(record.Record)["gene"])
	merged1 := base[1]["SRC"].([]any)
	require.Len(t, merged1, 1)
	assert.Equal(t, "BRCA2", merged1[0].(record.Record)["gene"])
}

func TestRun_SecondaryFieldsExhaustedLeavesUnresolved(t *testing.T) {
	base := []record.Record{
		{"id": "1", "symbol": "SAME"},
		{"id": "1", "symbol": "SAME"},
	}
	incoming := []record.Record{
		{"ref": "1", "gene": "SAME"},
		{"ref": "1", "gene": "SAME"},
	}

	result := runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields:   [][]string{{"id", "ref"}},
		SecondaryFields: [][]string{{"symbol", "gene"}},
		Type:            []string{"one", "one"},
	})

	assert.Equal(t, 0, result.Merged)
	assert.Equal(t, 2, result.Unresolved)
	assert.NotContains(t, base[0], "SRC")
	assert.NotContains(t, base[1], "SRC")
}

func TestRun_NestedListFanOut(t *testing.T) {
	base := []record.Record{{"g": record.Record{"id": []string{"A", "B"}}}}
	incoming := []record.Record{{"ref": "B"}}

	result := runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields: [][]string{{"g.id", "ref"}},
		Type:          []string{"many", "many"},
	})

	assert.Equal(t, 1, result.Merged)
	require.Contains(t, base[0], "SRC")
}

func TestRun_NoMatchLeavesBaseUntouched(t *testing.T) {
	base := []record.Record{{"id": "1"}}
	incoming := []record.Record{{"ref": "2"}}

	result := runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields: [][]string{{"id", "ref"}},
		Type:          []string{"many", "many"},
	})

	assert.Equal(t, 0, result.Merged)
	assert.Equal(t, 1, result.Unresolved)
	assert.Equal(t, record.Record{"id": "1"}, base[0])
}

func TestRun_CompoundPrimaryFieldsAreANDed(t *testing.T) {
	base := []record.Record{
		{"id": "1", "chrom": "17"},
		{"id": "1", "chrom": "13"},
	}
	incoming := []record.Record{
		{"ref": "1", "c": "17"},
	}

	result := runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields: [][]string{{"id", "ref"}, {"chrom", "c"}},
		Type:          []string{"many", "many"},
	})

	// Only the record matching on both fields is merged.
	assert.Equal(t, 1, result.Merged)
	assert.Equal(t, 1, result.Unresolved)
	assert.Contains(t, base[0], "SRC")
	assert.NotContains(t, base[1], "SRC")
}

func TestRun_CardinalityEnforcedOnIncomingSide(t *testing.T) {
	// Two base records match the single incoming record; with the
	// incoming side unique the ambiguous match is pruned entirely.
	base := []record.Record{{"id": "1"}, {"id": "1"}}
	incoming := []record.Record{{"ref": "1"}}

	result := runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields: [][]string{{"id", "ref"}},
		Type:          []string{"one", "many"},
	})

	assert.Equal(t, 0, result.Merged)
	assert.Equal(t, 2, result.Unresolved)
}

func TestRun_IncomingConsumed(t *testing.T) {
	base := []record.Record{{"id": "1"}}
	incoming := []record.Record{{"ref": "1"}, {"ref": "nope"}}

	runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields: [][]string{{"id", "ref"}},
		Type:          []string{"many", "many"},
	})

	for i, rec := range incoming {
		assert.Nil(t, rec, "incoming record %d should be cleared", i)
	}
}

func TestRun_ExtendsExistingPrefixList(t *testing.T) {
	base := []record.Record{{"id": "1", "SRC": []any{record.Record{"ref": "0"}}}}
	incoming := []record.Record{{"ref": "1"}}

	result := runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields: [][]string{{"id", "ref"}},
		Type:          []string{"many", "many"},
	})

	assert.Equal(t, 1, result.Merged)
	merged := base[0]["SRC"].([]any)
	require.Len(t, merged, 2)
	assert.Equal(t, record.Record{"ref": "0"}, merged[0])
	assert.Equal(t, record.Record{"ref": "1"}, merged[1])
}

func TestRun_MultiValuedFieldsMatchOnAnyOverlap(t *testing.T) {
	base := []record.Record{{"aliases": []string{"TP53", "P53"}}}
	incoming := []record.Record{{"names": []string{"P53", "LFS1"}}}

	result := runMerge(t, base, incoming, "SRC", &models.MergeSpec{
		PrimaryFields: [][]string{{"aliases", "names"}},
		Type:          []string{"many", "many"},
	})

	assert.Equal(t, 1, result.Merged)
}

func TestParseSpec_Defaults(t *testing.T) {
	spec, err := ParseSpec(&models.MergeSpec{
		PrimaryFields: [][]string{{" id ", " ref "}},
	})
	require.NoError(t, err)
	assert.Equal(t, []FieldPair{{Base: "id", Incoming: "ref"}}, spec.PrimaryFields)
	assert.False(t, spec.IncomingUnique)
	assert.False(t, spec.BaseUnique)
}

func TestParseSpec_Cardinality(t *testing.T) {
	spec, err := ParseSpec(&models.MergeSpec{
		PrimaryFields: [][]string{{"id", "ref"}},
		Type:          []string{"one", "many"},
	})
	require.NoError(t, err)
	assert.True(t, spec.IncomingUnique)
	assert.False(t, spec.BaseUnique)
}

func TestParseSpec_Errors(t *testing.T) {
	tests := []struct {
		name string
		raw  *models.MergeSpec
	}{
		{"nil spec", nil},
		{"no primary fields", &models.MergeSpec{Type: []string{"many", "many"}}},
		{"malformed pair", &models.MergeSpec{PrimaryFields: [][]string{{"id"}}}},
		{"empty path", &models.MergeSpec{PrimaryFields: [][]string{{"id", " "}}}},
		{"bad cardinality token", &models.MergeSpec{
			PrimaryFields: [][]string{{"id", "ref"}},
			Type:          []string{"one", "unique"},
		}},
		{"wrong cardinality arity", &models.MergeSpec{
			PrimaryFields: [][]string{{"id", "ref"}},
			Type:          []string{"one"},
		}},
		{"malformed secondary pair", &models.MergeSpec{
			PrimaryFields:   [][]string{{"id", "ref"}},
			SecondaryFields: [][]string{{"a", "b", "c"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSpec(tt.raw)
			assert.Error(t, err)
		})
	}
}

func TestIntersectEdges(t *testing.T) {
	maps := []edgeMap{
		{0: posSet{0: {}, 1: {}}, 1: posSet{2: {}}},
		{0: posSet{1: {}, 3: {}}, 2: posSet{4: {}}},
	}
	folded := intersectEdges(maps)
	require.Len(t, folded, 1)
	assert.Equal(t, edgeMap{0: posSet{1: {}}}, folded[0])
}

func TestIntersectEdges_SingleMapUnchanged(t *testing.T) {
	maps := []edgeMap{{0: posSet{1: {}}}}
	folded := intersectEdges(maps)
	require.Len(t, folded, 1)
	assert.Equal(t, edgeMap{0: posSet{1: {}}}, folded[0])
}

func TestPruneUnique_NoConstraint(t *testing.T) {
	baseEdges := edgeMap{0: posSet{0: {}, 1: {}}}
	incomingEdges := edgeMap{0: posSet{0: {}}, 1: posSet{0: {}}}
	prunedBase, prunedIncoming := pruneUnique(baseEdges, incomingEdges, false, false)
	assert.Empty(t, prunedBase)
	assert.Empty(t, prunedIncoming)
	assert.Len(t, baseEdges, 1)
	assert.Len(t, incomingEdges, 2)
}

func TestPruneUnique_MirrorConsistency(t *testing.T) {
	// Base 0 is ambiguous (two incoming candidates); base 1 is clean.
	baseEdges := edgeMap{
		0: posSet{0: {}, 1: {}},
		1: posSet{2: {}},
	}
	incomingEdges := edgeMap{
		0: posSet{0: {}},
		1: posSet{0: {}},
		2: posSet{1: {}},
	}
	prunedBase, prunedIncoming := pruneUnique(baseEdges, incomingEdges, true, false)

	assert.Equal(t, edgeMap{0: posSet{0: {}, 1: {}}}, prunedBase)
	assert.Equal(t, edgeMap{0: posSet{0: {}}, 1: posSet{0: {}}}, prunedIncoming)
	// Survivors stay mirror-consistent.
	assert.Equal(t, edgeMap{1: posSet{2: {}}}, baseEdges)
	assert.Equal(t, edgeMap{2: posSet{1: {}}}, incomingEdges)
}
