package loader

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnamed/gnamed/internal/namespace"
	"github.com/gnamed/gnamed/internal/record"
	"github.com/gnamed/gnamed/internal/store"
)

func geneKey(acc string) record.DBRef {
	return record.DBRef{Namespace: namespace.Entrez, Accession: acc}
}

func hgncKey(acc string) record.DBRef {
	return record.DBRef{Namespace: namespace.HGNC, Accession: acc}
}

// mergeCommitted runs the given records through one engine transaction
// and commits.
func mergeCommitted(t *testing.T, mem *store.Memory, kind record.EntityKind, merges ...func(*Engine) error) {
	t.Helper()
	ctx := context.Background()
	tx, err := mem.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)

	engine := NewEngine(kind, tx, nil)
	for _, m := range merges {
		require.NoError(t, m(engine))
	}
	require.NoError(t, tx.Commit(ctx))
}

func TestMerge_CreatesEntityAndOwnsKeys(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	rec := record.NewGene(namespace.Human, "BRCA1", "BRCA1 DNA repair associated")
	rec.Chromosome = "17"
	rec.Location = "17q21.31"
	require.NoError(t, rec.AddDBRef(geneKey("672")))
	require.NoError(t, rec.AddDBRef(hgncKey("1100")))

	mergeCommitted(t, mem, record.Gene, func(e *Engine) error {
		return e.Merge(ctx, geneKey("672"), rec)
	})

	require.Equal(t, 1, mem.EntityCount(record.Gene))
	entity := mem.Entity(record.Gene, 1)
	require.NotNil(t, entity)
	assert.Equal(t, namespace.Human, entity.SpeciesID)
	assert.Equal(t, "17", entity.Chromosome)
	assert.Equal(t, "17q21.31", entity.Location)

	primary := mem.Ref(record.Gene, geneKey("672"))
	require.NotNil(t, primary)
	assert.Equal(t, int64(1), primary.EntityID)
	assert.Equal(t, "BRCA1", primary.Symbol)
	assert.Equal(t, "BRCA1 DNA repair associated", primary.Name)

	// Secondary keys are owned but carry no snapshot.
	secondary := mem.Ref(record.Gene, hgncKey("1100"))
	require.NotNil(t, secondary)
	assert.Equal(t, int64(1), secondary.EntityID)
	assert.Empty(t, secondary.Symbol)

	strings := mem.Strings(record.Gene, 1)
	assert.True(t, strings[record.CatSymbol]["BRCA1"])
	assert.True(t, strings[record.CatName]["BRCA1 DNA repair associated"])
}

func TestMerge_Idempotent(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	build := func() *record.Record {
		rec := record.NewGene(namespace.Human, "BRCA1", "BRCA1 DNA repair associated")
		rec.Chromosome = "17"
		require.NoError(t, rec.AddDBRef(geneKey("672")))
		require.NoError(t, rec.AddDBRef(hgncKey("1100")))
		return rec
	}

	mergeCommitted(t, mem, record.Gene,
		func(e *Engine) error { return e.Merge(ctx, geneKey("672"), build()) },
		func(e *Engine) error { return e.Merge(ctx, geneKey("672"), build()) },
	)
	// And once more in a fresh transaction.
	mergeCommitted(t, mem, record.Gene,
		func(e *Engine) error { return e.Merge(ctx, geneKey("672"), build()) },
	)

	assert.Equal(t, 1, mem.EntityCount(record.Gene))
	assert.Equal(t, int64(1), mem.Ref(record.Gene, geneKey("672")).EntityID)
	assert.Len(t, mem.Strings(record.Gene, 1)[record.CatSymbol], 1)
}

func TestMerge_SharedKeyReusesEntity(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	entrez := record.NewGene(namespace.Human, "BRCA1", "")
	require.NoError(t, entrez.AddDBRef(geneKey("672")))
	require.NoError(t, entrez.AddDBRef(hgncKey("1100")))

	hgnc := record.NewGene(namespace.Human, "BRCA1", "breast cancer 1")
	hgnc.AddSymbol("RNF53")
	require.NoError(t, hgnc.AddDBRef(hgncKey("1100")))
	require.NoError(t, hgnc.AddDBRef(geneKey("672")))

	mergeCommitted(t, mem, record.Gene,
		func(e *Engine) error { return e.Merge(ctx, geneKey("672"), entrez) },
		func(e *Engine) error { return e.Merge(ctx, hgncKey("1100"), hgnc) },
	)

	require.Equal(t, 1, mem.EntityCount(record.Gene))
	assert.Equal(t, int64(1), mem.Ref(record.Gene, geneKey("672")).EntityID)
	assert.Equal(t, int64(1), mem.Ref(record.Gene, hgncKey("1100")).EntityID)

	// The second provider's primary key receives its own snapshot.
	assert.Equal(t, "BRCA1", mem.Ref(record.Gene, hgncKey("1100")).Symbol)
	assert.Equal(t, "breast cancer 1", mem.Ref(record.Gene, hgncKey("1100")).Name)

	// Strings are the union of both records.
	strings := mem.Strings(record.Gene, 1)
	assert.True(t, strings[record.CatSymbol]["RNF53"])
	assert.True(t, strings[record.CatName]["breast cancer 1"])
}

func TestMerge_ScalarsFirstWriterWins(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	first := record.NewGene(namespace.Human, "", "")
	first.Chromosome = "17"
	require.NoError(t, first.AddDBRef(geneKey("672")))

	second := record.NewGene(namespace.Human, "", "")
	second.Chromosome = "X"
	second.Location = "17q21.31"
	require.NoError(t, second.AddDBRef(geneKey("672")))

	mergeCommitted(t, mem, record.Gene,
		func(e *Engine) error { return e.Merge(ctx, geneKey("672"), first) },
		func(e *Engine) error { return e.Merge(ctx, geneKey("672"), second) },
	)

	entity := mem.Entity(record.Gene, 1)
	require.NotNil(t, entity)
	assert.Equal(t, "17", entity.Chromosome, "populated scalar must not be overwritten")
	assert.Equal(t, "17q21.31", entity.Location, "unset scalar is filled by the later record")
}

func TestMerge_AmbiguityUsesLowestID(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	one := record.NewGene(namespace.Human, "", "")
	require.NoError(t, one.AddDBRef(geneKey("1")))
	two := record.NewGene(namespace.Human, "", "")
	require.NoError(t, two.AddDBRef(geneKey("2")))

	bridge := record.NewGene(namespace.Human, "", "")
	require.NoError(t, bridge.AddDBRef(hgncKey("10")))
	require.NoError(t, bridge.AddDBRef(geneKey("1")))
	require.NoError(t, bridge.AddDBRef(geneKey("2")))

	mergeCommitted(t, mem, record.Gene,
		func(e *Engine) error { return e.Merge(ctx, geneKey("1"), one) },
		func(e *Engine) error { return e.Merge(ctx, geneKey("2"), two) },
		func(e *Engine) error { return e.Merge(ctx, hgncKey("10"), bridge) },
	)

	// Both entities survive; the bridging record lands on the lowest ID.
	assert.Equal(t, 2, mem.EntityCount(record.Gene))
	assert.Equal(t, int64(1), mem.Ref(record.Gene, geneKey("1")).EntityID)
	assert.Equal(t, int64(2), mem.Ref(record.Gene, geneKey("2")).EntityID)
	assert.Equal(t, int64(1), mem.Ref(record.Gene, hgncKey("10")).EntityID)
}

func TestMerge_BackfillsOrphanedKey(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	// Seed a cross-reference that no entity owns yet.
	tx, err := mem.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateCrossReference(ctx, record.Gene,
		&store.CrossReference{Key: hgncKey("99")}))
	require.NoError(t, tx.Commit(ctx))

	rec := record.NewGene(namespace.Human, "", "")
	require.NoError(t, rec.AddDBRef(geneKey("5")))
	require.NoError(t, rec.AddDBRef(hgncKey("99")))

	mergeCommitted(t, mem, record.Gene, func(e *Engine) error {
		return e.Merge(ctx, geneKey("5"), rec)
	})

	assert.Equal(t, int64(1), mem.Ref(record.Gene, hgncKey("99")).EntityID)
}

func TestMerge_RejectsKindMismatchAndProvisionalSpecies(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	tx, err := mem.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	engine := NewEngine(record.Gene, tx, nil)

	protein := record.NewProtein(namespace.Human, "", "")
	assert.Error(t, engine.Merge(ctx, record.DBRef{Namespace: namespace.UniProt, Accession: "P1"}, protein))

	provisional := record.NewGene(record.ProvisionalSpecies, "", "")
	require.NoError(t, provisional.AddDBRef(geneKey("7")))
	assert.Error(t, engine.Merge(ctx, geneKey("7"), provisional))
}

func TestMerge_LinksMappingsToOppositeKind(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	gene := record.NewGene(namespace.Human, "ANXA5", "")
	require.NoError(t, gene.AddDBRef(geneKey("308")))
	mergeCommitted(t, mem, record.Gene, func(e *Engine) error {
		return e.Merge(ctx, geneKey("308"), gene)
	})

	uniKey := record.DBRef{Namespace: namespace.UniProt, Accession: "P08758"}
	protein := record.NewProtein(namespace.Human, "ANXA5", "annexin A5")
	require.NoError(t, protein.AddDBRef(uniKey))
	require.NoError(t, protein.AddDBRef(geneKey("308"))) // opposite kind, a mapping
	mergeCommitted(t, mem, record.Protein, func(e *Engine) error {
		return e.Merge(ctx, uniKey, protein)
	})

	assert.True(t, mem.Linked(1, 1))
	// The mapping never merged kinds: the gene key still owns the gene.
	assert.Equal(t, int64(1), mem.Ref(record.Gene, geneKey("308")).EntityID)
	assert.Nil(t, mem.Ref(record.Protein, geneKey("308")))
}

func TestFlush_WritesStayVisible(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()

	first := record.NewGene(namespace.Human, "", "")
	require.NoError(t, first.AddDBRef(geneKey("672")))

	second := record.NewGene(namespace.Human, "", "")
	require.NoError(t, second.AddDBRef(geneKey("672")))
	require.NoError(t, second.AddDBRef(hgncKey("1100")))

	mergeCommitted(t, mem, record.Gene,
		func(e *Engine) error { return e.Merge(ctx, geneKey("672"), first) },
		func(e *Engine) error { e.Flush(); return nil },
		func(e *Engine) error { return e.Merge(ctx, geneKey("672"), second) },
	)

	assert.Equal(t, 1, mem.EntityCount(record.Gene))
	assert.Equal(t, int64(1), mem.Ref(record.Gene, hgncKey("1100")).EntityID)
}
