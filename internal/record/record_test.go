package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnamed/gnamed/internal/namespace"
)

func TestAddDBRef_SameKindInsideSpace(t *testing.T) {
	rec := NewGene(namespace.Human, "BRCA1", "")

	require.NoError(t, rec.AddDBRef(DBRef{Namespace: namespace.HGNC, Accession: "1100"}))

	assert.True(t, rec.Refs[DBRef{Namespace: namespace.HGNC, Accession: "1100"}])
	assert.Empty(t, rec.Mappings)
}

func TestAddDBRef_OpenNamespaceAllowsAnySpecies(t *testing.T) {
	rec := NewGene(7955, "", "") // zebrafish, no organism-specific authority

	require.NoError(t, rec.AddDBRef(DBRef{Namespace: namespace.Entrez, Accession: "30686"}))

	assert.True(t, rec.Refs[DBRef{Namespace: namespace.Entrez, Accession: "30686"}])
}

func TestAddDBRef_SpeciesMismatchDemotedToMapping(t *testing.T) {
	rec := NewGene(namespace.Mouse, "Brca1", "")

	// HGNC only covers human; the key must not merge mouse genes.
	require.NoError(t, rec.AddDBRef(DBRef{Namespace: namespace.HGNC, Accession: "1100"}))

	assert.Empty(t, rec.Refs)
	assert.True(t, rec.Mappings[DBRef{Namespace: namespace.HGNC, Accession: "1100"}])
}

func TestAddDBRef_OppositeKindIsMapping(t *testing.T) {
	gene := NewGene(namespace.Human, "", "")
	require.NoError(t, gene.AddDBRef(DBRef{Namespace: namespace.UniProt, Accession: "P38398"}))
	assert.True(t, gene.Mappings[DBRef{Namespace: namespace.UniProt, Accession: "P38398"}])
	assert.Empty(t, gene.Refs)

	protein := NewProtein(namespace.Human, "", "")
	require.NoError(t, protein.AddDBRef(DBRef{Namespace: namespace.HGNC, Accession: "1100"}))
	assert.True(t, protein.Mappings[DBRef{Namespace: namespace.HGNC, Accession: "1100"}])
	assert.Empty(t, protein.Refs)
}

func TestAddDBRef_UnknownNamespace(t *testing.T) {
	rec := NewGene(namespace.Human, "", "")
	err := rec.AddDBRef(DBRef{Namespace: "ensembl", Accession: "ENSG00000012048"})
	require.Error(t, err)
}

func TestNewRecordRegistersStrings(t *testing.T) {
	rec := NewGene(namespace.Human, "BRCA1", "breast cancer type 1 susceptibility protein")

	assert.True(t, rec.Strings[CatSymbol]["BRCA1"])
	assert.True(t, rec.Strings[CatName]["breast cancer type 1 susceptibility protein"])
}

func TestAddStringIgnoresEmptyAndCollapsesDuplicates(t *testing.T) {
	rec := NewProtein(namespace.Human, "", "")

	rec.AddSymbol("")
	rec.AddSymbol("ANX5")
	rec.AddSymbol("ANX5")
	rec.AddKeyword("Apoptosis")

	assert.Len(t, rec.Strings[CatSymbol], 1)
	assert.True(t, rec.Strings[CatKeyword]["Apoptosis"])
	assert.NotContains(t, rec.Strings[CatSymbol], "")
}

func TestSetSymbolReplacesAndRecords(t *testing.T) {
	rec := NewProtein(namespace.Human, "", "")

	rec.SetSymbol("ANXA5")
	rec.SetName("annexin A5")

	assert.Equal(t, "ANXA5", rec.Symbol)
	assert.Equal(t, "annexin A5", rec.Name)
	assert.True(t, rec.Strings[CatSymbol]["ANXA5"])
	assert.True(t, rec.Strings[CatName]["annexin A5"])
}
