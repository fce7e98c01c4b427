package bulk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnamed/gnamed/internal/namespace"
	"github.com/gnamed/gnamed/internal/record"
)

// fakeTx records every bulk operation in memory.
type fakeTx struct {
	next      int64
	restarted int64
	snapshot  map[record.DBRef]int64
	copies    map[string][][]any
}

func newFakeTx(next int64) *fakeTx {
	return &fakeTx{
		next:     next,
		snapshot: make(map[record.DBRef]int64),
		copies:   make(map[string][][]any),
	}
}

func (f *fakeTx) NextSequenceValue(ctx context.Context, name string) (int64, error) {
	return f.next, nil
}

func (f *fakeTx) RestartSequence(ctx context.Context, name string, next int64) error {
	f.restarted = next
	return nil
}

func (f *fakeTx) GeneRefSnapshot(ctx context.Context) (map[record.DBRef]int64, error) {
	return f.snapshot, nil
}

func (f *fakeTx) CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	f.copies[table] = append(f.copies[table], rows...)
	return int64(len(rows)), nil
}

func uniKey(acc string) record.DBRef {
	return record.DBRef{Namespace: namespace.UniProt, Accession: acc}
}

func newProtein(t *testing.T, acc string) *record.Record {
	t.Helper()
	rec := record.NewProtein(namespace.Human, "ANXA5", "annexin A5")
	rec.Length = 320
	rec.Mass = 35937
	require.NoError(t, rec.AddDBRef(uniKey(acc)))
	return rec
}

func TestAppend_AssignsSequentialIDs(t *testing.T) {
	tx := newFakeTx(100)
	ctx := context.Background()
	app, err := NewAppender(ctx, tx, nil)
	require.NoError(t, err)

	require.NoError(t, app.Append(ctx, uniKey("P08758"), newProtein(t, "P08758")))
	require.NoError(t, app.Append(ctx, uniKey("Q99999"), newProtein(t, "Q99999")))
	assert.Equal(t, 2, app.Buffered())

	require.NoError(t, app.Finish(ctx))

	proteins := tx.copies["proteins"]
	require.Len(t, proteins, 2)
	assert.Equal(t, int64(100), proteins[0][0])
	assert.Equal(t, int64(101), proteins[1][0])
	assert.Equal(t, int32(namespace.Human), proteins[0][1])
	assert.Equal(t, int32(320), proteins[0][2])
	assert.Equal(t, int32(35937), proteins[0][3])

	// The sequence restarts past the highest assigned ID.
	assert.Equal(t, int64(102), tx.restarted)
}

func TestAppend_PrimaryRefCarriesSnapshot(t *testing.T) {
	tx := newFakeTx(1)
	ctx := context.Background()
	app, err := NewAppender(ctx, tx, nil)
	require.NoError(t, err)

	rec := newProtein(t, "P08758")
	require.NoError(t, rec.AddDBRef(uniKey("A0AAA0AAA1")))
	require.NoError(t, app.Append(ctx, uniKey("P08758"), rec))
	require.NoError(t, app.Flush(ctx))

	refs := tx.copies["protein_refs"]
	require.Len(t, refs, 2)
	assert.Equal(t, []any{namespace.UniProt, "P08758", "ANXA5", "annexin A5", int64(1)}, refs[0])
	assert.Equal(t, []any{namespace.UniProt, "A0AAA0AAA1", nil, nil, int64(1)}, refs[1])
}

func TestAppend_ResolvesGeneLinksFromSnapshot(t *testing.T) {
	tx := newFakeTx(1)
	geneKey := record.DBRef{Namespace: namespace.Entrez, Accession: "308"}
	tx.snapshot[geneKey] = 7

	ctx := context.Background()
	app, err := NewAppender(ctx, tx, nil)
	require.NoError(t, err)

	rec := newProtein(t, "P08758")
	require.NoError(t, rec.AddDBRef(geneKey)) // opposite kind, a mapping
	require.NoError(t, rec.AddDBRef(record.DBRef{Namespace: namespace.HGNC, Accession: "538"}))
	require.NoError(t, app.Append(ctx, uniKey("P08758"), rec))
	require.NoError(t, app.Flush(ctx))

	// Only the mapping present in the snapshot produces a link.
	links := tx.copies["genes2proteins"]
	require.Len(t, links, 1)
	assert.Equal(t, []any{int64(7), int64(1)}, links[0])
}

func TestAppend_RejectsGeneRecords(t *testing.T) {
	tx := newFakeTx(1)
	ctx := context.Background()
	app, err := NewAppender(ctx, tx, nil)
	require.NoError(t, err)

	gene := record.NewGene(namespace.Human, "", "")
	key := record.DBRef{Namespace: namespace.Entrez, Accession: "672"}
	assert.Error(t, app.Append(ctx, key, gene))
}

func TestFlush_ClearsBuffers(t *testing.T) {
	tx := newFakeTx(1)
	ctx := context.Background()
	app, err := NewAppender(ctx, tx, nil)
	require.NoError(t, err)

	require.NoError(t, app.Append(ctx, uniKey("P08758"), newProtein(t, "P08758")))
	require.NoError(t, app.Flush(ctx))
	assert.Equal(t, 0, app.Buffered())

	require.NoError(t, app.Flush(ctx))
	assert.Len(t, tx.copies["proteins"], 1, "an empty flush must not resend rows")
}
