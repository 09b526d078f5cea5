package core

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/annotstore/annotstore/internal/models"
	"github.com/annotstore/annotstore/internal/record"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func initialSource(t *testing.T, dir string) models.SourceSpec {
	t.Helper()
	genes := writeFile(t, dir, "genes.tsv", "id\tsymbol\n1\tBRCA1\n2\tBRCA2\n")
	return models.SourceSpec{
		Files:  []string{genes},
		Prefix: "GENES",
		Source: true,
		Parser: models.ParserSpec{Type: "TSV"},
		Metadata: map[string]any{
			"version": "1.0",
		},
	}
}

func mergedSource(t *testing.T, dir string) models.SourceSpec {
	t.Helper()
	refs := writeFile(t, dir, "refs.tsv", "ref\tname\n1\tBRCA1, DNA repair associated\n3\tUnknown\n")
	return models.SourceSpec{
		Files:  []string{refs},
		Prefix: "REFS",
		Parser: models.ParserSpec{Type: "TSV"},
		Merge: &models.MergeSpec{
			PrimaryFields: [][]string{{"GENES.id", "ref"}},
			Type:          []string{"many", "one"},
		},
	}
}

func TestCreate_InitialAndMergedSources(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.json")
	annotation := NewAnnotation(storePath, testLogger(), false)

	result, err := annotation.Create(context.Background(),
		[]models.SourceSpec{initialSource(t, dir), mergedSource(t, dir)})
	require.NoError(t, err)

	require.Len(t, result.Sources, 2)
	assert.Equal(t, models.SourceResult{
		Prefix: "GENES", Files: 1, Parsed: 2, Initial: true,
	}, result.Sources[0])
	assert.Equal(t, "REFS", result.Sources[1].Prefix)
	assert.Equal(t, 2, result.Sources[1].Parsed)
	assert.Equal(t, 1, result.Sources[1].Merged)

	doc := annotation.Document()
	require.Len(t, doc.Annotation, 2)
	first := doc.Annotation[0]
	genes := first["GENES"].([]any)
	require.Len(t, genes, 1)
	assert.Equal(t, record.Record{"id": "1", "symbol": "BRCA1"}, genes[0])
	refs := first["REFS"].([]any)
	require.Len(t, refs, 1)
	assert.Equal(t, "BRCA1, DNA repair associated", refs[0].(record.Record)["name"])
	assert.NotContains(t, doc.Annotation[1], "REFS")
	assert.Equal(t, map[string]any{"version": "1.0"}, doc.Metadata["GENES"])
}

func TestCreate_MergedSourceWithoutMergeSpecFails(t *testing.T) {
	dir := t.TempDir()
	source := mergedSource(t, dir)
	source.Merge = nil
	annotation := NewAnnotation(filepath.Join(dir, "store.json"), testLogger(), false)

	_, err := annotation.Create(context.Background(), []models.SourceSpec{source})
	assert.Error(t, err)
}

func TestCreate_UnknownParserFails(t *testing.T) {
	dir := t.TempDir()
	source := initialSource(t, dir)
	source.Parser.Type = "FASTA"
	annotation := NewAnnotation(filepath.Join(dir, "store.json"), testLogger(), false)

	_, err := annotation.Create(context.Background(), []models.SourceSpec{source})
	assert.Error(t, err)
}

func TestCreate_FilterAndKeepFields(t *testing.T) {
	dir := t.TempDir()
	genes := writeFile(t, dir, "genes.tsv",
		"id\tsymbol\tbiotype\n1\tBRCA1\tprotein_coding\n2\tRNU6-1\tsnRNA\n")
	annotation := NewAnnotation(filepath.Join(dir, "store.json"), testLogger(), false)

	result, err := annotation.Create(context.Background(), []models.SourceSpec{{
		Files:      []string{genes},
		Prefix:     "GENES",
		Source:     true,
		Parser:     models.ParserSpec{Type: "TSV"},
		Filter:     map[string][]string{"biotype": {"protein_coding"}},
		KeepFields: []string{"id", "symbol"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Sources[0].Parsed)
	doc := annotation.Document()
	require.Len(t, doc.Annotation, 1)
	entry := doc.Annotation[0]["GENES"].([]any)[0].(record.Record)
	assert.Equal(t, record.Record{"id": "1", "symbol": "BRCA1"}, entry)
}

func TestCreate_DropFields(t *testing.T) {
	dir := t.TempDir()
	genes := writeFile(t, dir, "genes.tsv", "id\tsymbol\tnoise\n1\tBRCA1\txyz\n")
	annotation := NewAnnotation(filepath.Join(dir, "store.json"), testLogger(), false)

	_, err := annotation.Create(context.Background(), []models.SourceSpec{{
		Files:      []string{genes},
		Prefix:     "GENES",
		Source:     true,
		Parser:     models.ParserSpec{Type: "TSV"},
		DropFields: []string{"noise"},
	}})
	require.NoError(t, err)

	entry := annotation.Document().Annotation[0]["GENES"].([]any)[0].(record.Record)
	assert.Equal(t, record.Record{"id": "1", "symbol": "BRCA1"}, entry)
}

func TestCreate_CytobandCalculation(t *testing.T) {
	dir := t.TempDir()
	genes := writeFile(t, dir, "genes.tsv",
		"id\tchrom\tstart\tend\n1\t17\t100\t200\n")
	reference := writeFile(t, dir, "cytoBand.txt",
		"chr17\t0\t3400000\tp13.3\tgneg\n")
	annotation := NewAnnotation(filepath.Join(dir, "store.json"), testLogger(), false)

	_, err := annotation.Create(context.Background(), []models.SourceSpec{{
		Files:  []string{genes},
		Prefix: "GENES",
		Source: true,
		Parser: models.ParserSpec{Type: "TSV"},
		Cytoband: &models.CytobandSpec{
			Chromosome:    "chrom",
			Start:         "start",
			End:           "end",
			ReferenceFile: reference,
		},
	}})
	require.NoError(t, err)

	rec := annotation.Document().Annotation[0]
	bands := rec["cytoband"].(record.Record)
	assert.Equal(t, []string{"17p13.3"}, bands["GENES"])
}

func TestWriteLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.json")
	annotation := NewAnnotation(storePath, testLogger(), false)
	_, err := annotation.Create(context.Background(),
		[]models.SourceSpec{initialSource(t, dir), mergedSource(t, dir)})
	require.NoError(t, err)
	require.NoError(t, annotation.Write())

	loaded, err := LoadAnnotation(storePath, testLogger(), false)
	require.NoError(t, err)
	require.Len(t, loaded.Document().Annotation, 2)
	assert.Contains(t, loaded.Document().Metadata, "GENES")
}

func TestUpdate_RemoveReplaceAdd(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.json")
	annotation := NewAnnotation(storePath, testLogger(), false)
	_, err := annotation.Create(context.Background(),
		[]models.SourceSpec{initialSource(t, dir), mergedSource(t, dir)})
	require.NoError(t, err)
	require.NoError(t, annotation.Write())

	loaded, err := LoadAnnotation(storePath, testLogger(), false)
	require.NoError(t, err)

	newRefs := writeFile(t, dir, "refs2.tsv", "ref\tname\n2\tBRCA2, DNA repair associated\n")
	result, err := loaded.Update(context.Background(), &models.UpdateInstruction{
		Remove: []string{"REFS"},
		Add: []models.SourceSpec{{
			Files:  []string{newRefs},
			Prefix: "REFS2",
			Parser: models.ParserSpec{Type: "TSV"},
			Merge: &models.MergeSpec{
				PrimaryFields: [][]string{{"GENES.id", "ref"}},
				Type:          []string{"many", "many"},
			},
		}},
	})
	require.NoError(t, err)

	require.Len(t, result.Sources, 1)
	assert.Equal(t, 1, result.Sources[0].Merged)
	doc := loaded.Document()
	for _, rec := range doc.Annotation {
		assert.NotContains(t, rec, "REFS")
	}
	second := doc.Annotation[1]
	refs2, ok := second["REFS2"].([]any)
	require.True(t, ok)
	assert.Equal(t, "BRCA2, DNA repair associated", refs2[0].(record.Record)["name"])
}

func TestUpdate_ReplaceSupersedesPriorRecords(t *testing.T) {
	dir := t.TempDir()
	storePath := filepath.Join(dir, "store.json")
	annotation := NewAnnotation(storePath, testLogger(), false)
	_, err := annotation.Create(context.Background(),
		[]models.SourceSpec{initialSource(t, dir), mergedSource(t, dir)})
	require.NoError(t, err)

	replacement := mergedSource(t, dir)
	replacement.Files = []string{writeFile(t, dir, "refs3.tsv", "ref\tname\n2\tNew name\n")}
	result, err := annotation.Update(context.Background(), &models.UpdateInstruction{
		Replace: []models.SourceSpec{replacement},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Sources[0].Merged)

	doc := annotation.Document()
	assert.NotContains(t, doc.Annotation[0], "REFS", "old records are gone")
	refs := doc.Annotation[1]["REFS"].([]any)
	assert.Equal(t, "New name", refs[0].(record.Record)["name"])
}

func TestRemovePrefix_ClearsCytobandAndMetadata(t *testing.T) {
	annotation := NewAnnotation(filepath.Join(t.TempDir(), "store.json"), testLogger(), false)
	doc := annotation.Document()
	doc.Annotation = []record.Record{{
		"SRC":      []any{record.Record{"id": "1"}},
		"OTHER":    []any{record.Record{"id": "1"}},
		"cytoband": record.Record{"SRC": []string{"17p13.3"}},
	}}
	doc.Metadata["SRC"] = map[string]any{"version": "1"}

	annotation.RemovePrefix("SRC")

	rec := doc.Annotation[0]
	assert.NotContains(t, rec, "SRC")
	assert.Contains(t, rec, "OTHER")
	assert.NotContains(t, rec, "cytoband")
	assert.NotContains(t, doc.Metadata, "SRC")
}

func TestFilterRecord(t *testing.T) {
	filters := map[string][]string{"biotype": {"protein_coding", "lncRNA"}}

	assert.True(t, filterRecord(record.Record{"biotype": "lncRNA"}, filters))
	assert.False(t, filterRecord(record.Record{"biotype": "snRNA"}, filters))
	assert.False(t, filterRecord(record.Record{"other": "x"}, filters), "missing field fails")
	assert.True(t, filterRecord(record.Record{"biotype": []string{"snRNA", "lncRNA"}}, filters),
		"list passes on any permitted value")
	assert.False(t, filterRecord(record.Record{"biotype": []any{"snRNA"}}, filters))
}
