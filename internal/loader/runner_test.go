package loader

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnamed/gnamed/internal/namespace"
	"github.com/gnamed/gnamed/internal/record"
	"github.com/gnamed/gnamed/internal/store"
)

// lineSource emits one minimal gene record per input line, or fails on
// the line "boom".
type lineSource struct{}

func (lineSource) Parse(ctx context.Context, r io.Reader, emit Emit) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	for _, line := range strings.Fields(string(data)) {
		if line == "boom" {
			return errors.New("boom")
		}
		key := record.DBRef{Namespace: namespace.Entrez, Accession: line}
		rec := record.NewGene(namespace.Human, "", "")
		if err := rec.AddDBRef(key); err != nil {
			return err
		}
		if err := emit(key, rec); err != nil {
			return err
		}
	}
	return nil
}

func TestRunner_CommitsWholeFile(t *testing.T) {
	mem := store.NewMemory()
	runner := &Runner{Store: mem, Kind: record.Gene, FlushEvery: 2}

	result, err := runner.Run(context.Background(), lineSource{}, strings.NewReader("1 2 3 4 5"), "genes.txt")
	require.NoError(t, err)

	assert.Equal(t, 5, result.Records)
	assert.Equal(t, 2, result.Flushes)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 5, mem.EntityCount(record.Gene))
}

// mappingSource emits one protein whose record maps to two gene
// namespaces.
type mappingSource struct{}

func (mappingSource) Parse(ctx context.Context, r io.Reader, emit Emit) error {
	key := record.DBRef{Namespace: namespace.UniProt, Accession: "P1"}
	rec := record.NewProtein(namespace.Human, "", "")
	if err := rec.AddDBRef(key); err != nil {
		return err
	}
	if err := rec.AddDBRef(record.DBRef{Namespace: namespace.Entrez, Accession: "308"}); err != nil {
		return err
	}
	if err := rec.AddDBRef(record.DBRef{Namespace: namespace.HGNC, Accession: "538"}); err != nil {
		return err
	}
	return emit(key, rec)
}

func TestRunner_LinkSpacesFilterMappings(t *testing.T) {
	mem := store.NewMemory()

	// Two gene entities: gi:308 owns gene 1, hgnc:538 owns gene 2.
	geneRunner := &Runner{Store: mem, Kind: record.Gene}
	_, err := geneRunner.Run(context.Background(), lineSource{}, strings.NewReader("308 999"), "genes.txt")
	require.NoError(t, err)
	ctx := context.Background()
	tx, err := mem.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateCrossReference(ctx, record.Gene,
		&store.CrossReference{Key: record.DBRef{Namespace: namespace.HGNC, Accession: "538"}, EntityID: 2}))
	require.NoError(t, tx.Commit(ctx))

	runner := &Runner{Store: mem, Kind: record.Protein, LinkSpaces: []string{namespace.Entrez}}
	_, err = runner.Run(ctx, mappingSource{}, strings.NewReader(""), "proteins.dat")
	require.NoError(t, err)

	assert.True(t, mem.Linked(1, 1), "the allowed namespace still links")
	assert.False(t, mem.Linked(2, 1), "the filtered namespace must not link")
}

func TestRunner_RollsBackOnParseError(t *testing.T) {
	mem := store.NewMemory()
	runner := &Runner{Store: mem, Kind: record.Gene}

	_, err := runner.Run(context.Background(), lineSource{}, strings.NewReader("1 2 boom 4"), "genes.txt")
	require.Error(t, err)

	assert.Equal(t, 0, mem.EntityCount(record.Gene), "a failed run must leave nothing behind")
}
