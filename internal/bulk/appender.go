// Package bulk implements the append-only protein import used for
// first-time loads into an empty store. It bypasses the merge engine:
// IDs are assigned client-side from the store's sequence, rows are
// buffered and shipped via the COPY protocol, and protein-to-gene
// mappings are resolved against one preloaded snapshot of the gene
// cross-references instead of per-record queries.
package bulk

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gnamed/gnamed/internal/record"
)

// Tx is the slice of store operations bulk appending needs. The
// PostgreSQL transaction implements it; tests substitute a fake.
type Tx interface {
	NextSequenceValue(ctx context.Context, name string) (int64, error)
	RestartSequence(ctx context.Context, name string, next int64) error
	GeneRefSnapshot(ctx context.Context) (map[record.DBRef]int64, error)
	CopyRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
}

const proteinSequence = "proteins_id_seq"

// Column layouts of the copied tables.
var (
	proteinColumns = []string{"id", "species_id", "length", "mass"}
	refColumns     = []string{"namespace", "accession", "symbol", "name", "protein_id"}
	stringColumns  = []string{"id", "cat", "value"}
	linkColumns    = []string{"gene_id", "protein_id"}
)

// Appender buffers protein rows and flushes them in bulk. It assumes
// the input stream is already deduplicated: no merge is attempted.
type Appender struct {
	tx  Tx
	log *slog.Logger

	nextID  int64
	geneIDs map[record.DBRef]int64

	proteins [][]any
	refs     [][]any
	strings  [][]any
	links    [][]any
}

// NewAppender reads the protein ID sequence and the gene reference
// snapshot, preparing for client-side ID assignment.
func NewAppender(ctx context.Context, tx Tx, log *slog.Logger) (*Appender, error) {
	if log == nil {
		log = slog.Default()
	}
	nextID, err := tx.NextSequenceValue(ctx, proteinSequence)
	if err != nil {
		return nil, fmt.Errorf("bulk append: %w", err)
	}
	geneIDs, err := tx.GeneRefSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("bulk append: %w", err)
	}
	log.Debug("bulk appender ready",
		"first_id", nextID,
		"gene_refs", len(geneIDs),
	)
	return &Appender{tx: tx, log: log, nextID: nextID, geneIDs: geneIDs}, nil
}

// nullableInt maps the zero value to NULL.
func nullableInt(n int) any {
	if n == 0 {
		return nil
	}
	return int32(n)
}

// nullableText maps the empty string to NULL.
func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// Append assigns the next ID to the record and buffers its entity,
// cross-reference, string and gene-link rows.
func (a *Appender) Append(ctx context.Context, key record.DBRef, rec *record.Record) error {
	if rec.Kind != record.Protein {
		return fmt.Errorf("bulk append %s: only protein records are supported", key)
	}
	id := a.nextID
	a.nextID++

	a.proteins = append(a.proteins, []any{id, int32(rec.SpeciesID), nullableInt(rec.Length), nullableInt(rec.Mass)})

	a.refs = append(a.refs, []any{
		key.Namespace, key.Accession,
		nullableText(rec.Symbol), nullableText(rec.Name), id,
	})
	secondary := make([]record.DBRef, 0, len(rec.Refs))
	for ref := range rec.Refs {
		if ref != key {
			secondary = append(secondary, ref)
		}
	}
	sort.Slice(secondary, func(i, j int) bool {
		if secondary[i].Namespace != secondary[j].Namespace {
			return secondary[i].Namespace < secondary[j].Namespace
		}
		return secondary[i].Accession < secondary[j].Accession
	})
	for _, ref := range secondary {
		a.refs = append(a.refs, []any{ref.Namespace, ref.Accession, nil, nil, id})
	}

	cats := make([]string, 0, len(rec.Strings))
	for cat := range rec.Strings {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		values := make([]string, 0, len(rec.Strings[cat]))
		for v := range rec.Strings[cat] {
			values = append(values, v)
		}
		sort.Strings(values)
		for _, v := range values {
			a.strings = append(a.strings, []any{id, cat, v})
		}
	}

	// Resolve gene hints against the snapshot; unknown keys are simply
	// not linked.
	linked := make(map[int64]bool)
	var geneIDs []int64
	for key := range rec.Mappings {
		if gid, ok := a.geneIDs[key]; ok && !linked[gid] {
			linked[gid] = true
			geneIDs = append(geneIDs, gid)
		}
	}
	sort.Slice(geneIDs, func(i, j int) bool { return geneIDs[i] < geneIDs[j] })
	for _, gid := range geneIDs {
		a.links = append(a.links, []any{gid, id})
	}
	return nil
}

// Buffered returns the number of buffered protein rows.
func (a *Appender) Buffered() int {
	return len(a.proteins)
}

// Flush ships all buffered rows to the store.
func (a *Appender) Flush(ctx context.Context) error {
	copies := []struct {
		table   string
		columns []string
		rows    *[][]any
	}{
		{"proteins", proteinColumns, &a.proteins},
		{"protein_refs", refColumns, &a.refs},
		{"protein_strings", stringColumns, &a.strings},
		{"genes2proteins", linkColumns, &a.links},
	}
	for _, c := range copies {
		if _, err := a.tx.CopyRows(ctx, c.table, c.columns, *c.rows); err != nil {
			return fmt.Errorf("bulk append flush: %w", err)
		}
		*c.rows = nil
	}
	return nil
}

// Finish flushes the remaining buffers and restarts the store's
// sequence past the highest assigned ID.
func (a *Appender) Finish(ctx context.Context) error {
	if err := a.Flush(ctx); err != nil {
		return err
	}
	if err := a.tx.RestartSequence(ctx, proteinSequence, a.nextID); err != nil {
		return fmt.Errorf("bulk append: %w", err)
	}
	return nil
}
