// Package store provides the persistent backing for the consolidated
// nomenclature repository: genes, proteins, their cross-references and
// strings, and the species taxonomy tree.
//
// Two implementations exist: PG writes to PostgreSQL through pgx, and
// Memory keeps everything in process for tests and dry runs. Both are
// used through the Store/Tx interfaces so the loaders never care which
// one they talk to.
package store

import (
	"context"

	"github.com/gnamed/gnamed/internal/record"
)

// CrossReference is one (namespace, accession) row, optionally owned by
// an entity. EntityID zero means the key is known but has no merged
// entity yet.
type CrossReference struct {
	Key      record.DBRef
	Symbol   string
	Name     string
	EntityID int64
}

// Entity is a gene or protein row. The zero value of a scalar field
// means "unset"; fields are only ever filled in, never overwritten.
type Entity struct {
	ID        int64
	SpeciesID int

	// Gene scalars.
	Chromosome string
	Location   string

	// Protein scalars.
	Length int
	Mass   int
}

// SpeciesName is one (category, name) pair attached to a species node.
type SpeciesName struct {
	Category string
	Name     string
}

// SpeciesNode is one node of the taxonomy tree. ParentID zero marks the
// root.
type SpeciesNode struct {
	ID          int
	ParentID    int
	Rank        string
	UniqueName  string
	GenbankName string
	Names       []SpeciesName
}

// Store opens units of work against the backing repository.
type Store interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is one unit of work. All writes within a Tx are visible to its own
// reads before Commit; Rollback discards them. Rollback after Commit is
// a no-op, so callers can defer it unconditionally.
type Tx interface {
	// FindCrossReferences returns every stored cross-reference matching
	// one of the given keys, with its owner if any.
	FindCrossReferences(ctx context.Context, kind record.EntityKind, keys []record.DBRef) ([]*CrossReference, error)

	// GetEntity loads one entity row by ID.
	GetEntity(ctx context.Context, kind record.EntityKind, id int64) (*Entity, error)

	// CreateEntity inserts a new entity and assigns e.ID.
	CreateEntity(ctx context.Context, kind record.EntityKind, e *Entity) error

	// UpdateEntityScalars writes the entity's scalar fields back.
	UpdateEntityScalars(ctx context.Context, kind record.EntityKind, e *Entity) error

	// CreateCrossReference inserts a new cross-reference row.
	CreateCrossReference(ctx context.Context, kind record.EntityKind, ref *CrossReference) error

	// SetCrossReferenceOwner attaches an orphaned key to an entity.
	SetCrossReferenceOwner(ctx context.Context, kind record.EntityKind, key record.DBRef, entityID int64) error

	// SetCrossReferenceNames stamps the symbol/name snapshot on a key.
	SetCrossReferenceNames(ctx context.Context, kind record.EntityKind, key record.DBRef, symbol, name string) error

	// EntityStrings returns the entity's strings grouped by category.
	EntityStrings(ctx context.Context, kind record.EntityKind, entityID int64) (map[string]map[string]bool, error)

	// AddEntityString attaches one string to an entity.
	AddEntityString(ctx context.Context, kind record.EntityKind, entityID int64, cat, value string) error

	// ResolveOwners maps each given key of the given kind to its owning
	// entity ID. Orphaned and unknown keys are omitted.
	ResolveOwners(ctx context.Context, kind record.EntityKind, keys []record.DBRef) (map[record.DBRef]int64, error)

	// LinkGeneProtein records a gene-protein association. Idempotent.
	LinkGeneProtein(ctx context.Context, geneID, proteinID int64) error

	// AddSpecies inserts a taxonomy node together with its names.
	AddSpecies(ctx context.Context, node *SpeciesNode) error

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// kindTables maps an entity kind to its table and column names.
func kindTables(kind record.EntityKind) (entities, refs, strings, idColumn string) {
	if kind == record.Gene {
		return "genes", "gene_refs", "gene_strings", "gene_id"
	}
	return "proteins", "protein_refs", "protein_strings", "protein_id"
}
