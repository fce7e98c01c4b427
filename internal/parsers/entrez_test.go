package parsers

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnamed/gnamed/internal/namespace"
	"github.com/gnamed/gnamed/internal/record"
)

type captured struct {
	key record.DBRef
	rec *record.Record
}

func capture(out *[]captured) func(record.DBRef, *record.Record) error {
	return func(key record.DBRef, rec *record.Record) error {
		*out = append(*out, captured{key: key, rec: rec})
		return nil
	}
}

const entrezHeader = "#tax_id\tGeneID\tSymbol\tLocusTag\tSynonyms\tdbXrefs\tchromosome\tmap_location\tdescription\ttype_of_gene\tSymbol_from_nomenclature_authority\tFull_name_from_nomenclature_authority\tNomenclature_status\tOther_designations\tModification_date"

func entrezLine(cols ...string) string {
	return strings.Join(cols, "\t")
}

func TestEntrez_ParsesGeneLine(t *testing.T) {
	line := entrezLine(
		"9606", "672", "BRCA1", "-",
		"BRCAI|BRCC1|breast cancer 1, early onset (long form)",
		"MIM:113705|HGNC:HGNC:1100|Ensembl:ENSG00000012048",
		"17", "17q21.31",
		"BRCA1 DNA repair associated", "protein-coding",
		"BRCA1", "BRCA1 DNA repair associated", "O",
		"RING finger protein 53", "20240101",
	)

	var out []captured
	err := Entrez{}.Parse(context.Background(), strings.NewReader(entrezHeader+"\n"+line+"\n"), capture(&out))
	require.NoError(t, err)
	require.Len(t, out, 1)

	got := out[0]
	assert.Equal(t, record.DBRef{Namespace: namespace.Entrez, Accession: "672"}, got.key)
	assert.Equal(t, record.Gene, got.rec.Kind)
	assert.Equal(t, namespace.Human, got.rec.SpeciesID)
	assert.Equal(t, "BRCA1", got.rec.Symbol)
	assert.Equal(t, "BRCA1 DNA repair associated", got.rec.Name)
	assert.Equal(t, "17", got.rec.Chromosome)
	assert.Equal(t, "17q21.31", got.rec.Location)

	// The repeated authority prefix (HGNC:HGNC:1100) is collapsed;
	// unknown tags (MIM, Ensembl) are dropped.
	assert.True(t, got.rec.Refs[record.DBRef{Namespace: namespace.HGNC, Accession: "1100"}])
	assert.Len(t, got.rec.Refs, 2)

	// Synonyms split by shape: short ones are symbols, long spaced ones
	// are names.
	assert.True(t, got.rec.Strings[record.CatSymbol]["BRCAI"])
	assert.True(t, got.rec.Strings[record.CatSymbol]["BRCC1"])
	assert.True(t, got.rec.Strings[record.CatName]["breast cancer 1, early onset (long form)"])
	assert.True(t, got.rec.Strings[record.CatName]["RING finger protein 53"])
}

func TestEntrez_SkipsPlaceholderRows(t *testing.T) {
	line := entrezLine(
		"9606", "111111", "NEWENTRY", "-", "-", "-", "-", "-",
		"Record to support submission of GeneRIFs", "other",
		"-", "-", "-", "-", "20240101",
	)

	var out []captured
	err := Entrez{}.Parse(context.Background(), strings.NewReader(line+"\n"), capture(&out))
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestEntrez_ClearsJunkNames(t *testing.T) {
	line := entrezLine(
		"562", "944742", "lacZ", "-", "-", "ECOCYC:EG10527", "-", "8 min",
		"hypothetical protein", "protein-coding",
		"-", "-", "-", "-", "20240101",
	)

	var out []captured
	err := Entrez{}.Parse(context.Background(), strings.NewReader(line+"\n"), capture(&out))
	require.NoError(t, err)
	require.Len(t, out, 1)

	assert.Empty(t, out[0].rec.Name)
	assert.NotContains(t, out[0].rec.Strings[record.CatName], "hypothetical protein")
	assert.True(t, out[0].rec.Refs[record.DBRef{Namespace: namespace.EcoCyc, Accession: "EG10527"}])
}

func TestEntrez_RejectsOversizedSymbol(t *testing.T) {
	line := entrezLine(
		"9606", "1", strings.Repeat("X", 70), "-", "-", "-", "-", "-",
		"-", "protein-coding", "-", "-", "-", "-", "20240101",
	)

	var out []captured
	err := Entrez{}.Parse(context.Background(), strings.NewReader(line+"\n"), capture(&out))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 1")
}

func TestEntrez_RejectsShortRows(t *testing.T) {
	err := Entrez{}.Parse(context.Background(), strings.NewReader("9606\t672\tBRCA1\n"), capture(&[]captured{}))
	require.Error(t, err)
}
