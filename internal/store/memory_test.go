package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnamed/gnamed/internal/record"
)

func TestMemory_CommitPublishes(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	tx, err := mem.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateEntity(ctx, record.Gene, &Entity{SpeciesID: 9606}))

	assert.Equal(t, 0, mem.EntityCount(record.Gene), "uncommitted writes must stay private")
	require.NoError(t, tx.Commit(ctx))
	assert.Equal(t, 1, mem.EntityCount(record.Gene))
}

func TestMemory_RollbackDiscards(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	tx, err := mem.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateEntity(ctx, record.Gene, &Entity{SpeciesID: 9606}))
	require.NoError(t, tx.CreateCrossReference(ctx, record.Gene,
		&CrossReference{Key: record.DBRef{Namespace: "gi", Accession: "1"}, EntityID: 1}))
	require.NoError(t, tx.Rollback(ctx))

	assert.Equal(t, 0, mem.EntityCount(record.Gene))
	assert.Nil(t, mem.Ref(record.Gene, record.DBRef{Namespace: "gi", Accession: "1"}))
}

func TestMemory_WritesVisibleInsideTransaction(t *testing.T) {
	mem := NewMemory()
	ctx := context.Background()

	tx, err := mem.Begin(ctx)
	require.NoError(t, err)
	key := record.DBRef{Namespace: "gi", Accession: "672"}
	require.NoError(t, tx.CreateCrossReference(ctx, record.Gene, &CrossReference{Key: key, EntityID: 3}))

	found, err := tx.FindCrossReferences(ctx, record.Gene, []record.DBRef{key})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, int64(3), found[0].EntityID)
}
