// Package loader implements the cross-reference merge engine that
// consolidates provider records into the entity graph, plus the runner
// that drives one engine over a parsed input stream inside a single
// unit of work.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gnamed/gnamed/internal/record"
	"github.com/gnamed/gnamed/internal/store"
)

// Engine resolves records of one entity kind against one open unit of
// work. It keeps an in-process cache of cross-reference rows seen
// during the run so a record can find entities created by earlier
// records without re-querying the store.
type Engine struct {
	kind record.EntityKind
	tx   store.Tx
	log  *slog.Logger

	// refs caches every cross-reference row touched since the last
	// flush, keyed by (namespace, accession).
	refs map[record.DBRef]*store.CrossReference
}

// NewEngine binds an engine to an entity kind and an open unit of work.
func NewEngine(kind record.EntityKind, tx store.Tx, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		kind: kind,
		tx:   tx,
		log:  log,
		refs: make(map[record.DBRef]*store.CrossReference),
	}
}

// Flush clears the cross-reference cache. The runner calls it
// periodically to bound memory; pending writes stay visible through the
// open transaction, so later records still find everything via lookup.
func (e *Engine) Flush() {
	e.refs = make(map[record.DBRef]*store.CrossReference)
}

// Merge resolves one record to the single entity it belongs to,
// creating the entity if no cross-reference key is owned yet, and
// reconciles the record's keys, strings and scalars against it.
//
// Merge is idempotent: re-submitting a byte-identical record changes
// nothing. When the record's keys point at more than one existing
// entity, the collision is logged and the entity with the lowest ID is
// used; the colliding entities themselves are left untouched.
func (e *Engine) Merge(ctx context.Context, key record.DBRef, rec *record.Record) error {
	if rec.Kind != e.kind {
		return fmt.Errorf("merge %s: record kind %s does not match engine kind %s", key, rec.Kind, e.kind)
	}
	if rec.SpeciesID == record.ProvisionalSpecies {
		return fmt.Errorf("merge %s: species never resolved", key)
	}

	// Partition the record's keys (always including the primary key)
	// into known and missing, filling the cache from one batch lookup.
	keys := make(map[record.DBRef]bool, len(rec.Refs)+1)
	keys[key] = true
	for ref := range rec.Refs {
		keys[ref] = true
	}

	var known []*store.CrossReference
	missing := make(map[record.DBRef]bool)
	var lookup []record.DBRef
	for k := range keys {
		if cached, ok := e.refs[k]; ok {
			known = append(known, cached)
		} else {
			lookup = append(lookup, k)
		}
	}
	found, err := e.tx.FindCrossReferences(ctx, e.kind, lookup)
	if err != nil {
		return fmt.Errorf("merge %s: %w", key, err)
	}
	for _, ref := range found {
		e.refs[ref.Key] = ref
		known = append(known, ref)
	}
	for _, k := range lookup {
		if _, ok := e.refs[k]; !ok {
			missing[k] = true
		}
	}

	// Collect the distinct entities already owning any known key.
	var owners []int64
	seen := make(map[int64]bool)
	for _, ref := range known {
		if ref.EntityID != 0 && !seen[ref.EntityID] {
			seen[ref.EntityID] = true
			owners = append(owners, ref.EntityID)
		}
	}

	var entityID int64
	switch len(owners) {
	case 0:
		entity := &store.Entity{
			SpeciesID:  rec.SpeciesID,
			Chromosome: rec.Chromosome,
			Location:   rec.Location,
			Length:     rec.Length,
			Mass:       rec.Mass,
		}
		if err := e.tx.CreateEntity(ctx, e.kind, entity); err != nil {
			return fmt.Errorf("merge %s: %w", key, err)
		}
		entityID = entity.ID
	case 1:
		entityID = owners[0]
	default:
		sort.Slice(owners, func(i, j int) bool { return owners[i] < owners[j] })
		e.log.Warn("merge ambiguity, using lowest entity id",
			"kind", e.kind.String(),
			"key", key.String(),
			"entity_ids", owners,
		)
		entityID = owners[0]
	}

	if len(owners) > 0 {
		if err := e.fillScalars(ctx, entityID, rec); err != nil {
			return fmt.Errorf("merge %s: %w", key, err)
		}
	}

	// Backfill ownership of orphaned keys and stamp the primary key's
	// symbol/name snapshot.
	for _, ref := range known {
		if ref.EntityID == 0 {
			if err := e.tx.SetCrossReferenceOwner(ctx, e.kind, ref.Key, entityID); err != nil {
				return fmt.Errorf("merge %s: %w", key, err)
			}
			ref.EntityID = entityID
		}
		if ref.Key == key && (ref.Symbol != rec.Symbol || ref.Name != rec.Name) {
			if err := e.tx.SetCrossReferenceNames(ctx, e.kind, ref.Key, rec.Symbol, rec.Name); err != nil {
				return fmt.Errorf("merge %s: %w", key, err)
			}
			ref.Symbol = rec.Symbol
			ref.Name = rec.Name
		}
	}

	// Create rows for keys seen for the first time.
	create := make([]record.DBRef, 0, len(missing))
	for k := range missing {
		create = append(create, k)
	}
	sort.Slice(create, func(i, j int) bool {
		if create[i].Namespace != create[j].Namespace {
			return create[i].Namespace < create[j].Namespace
		}
		return create[i].Accession < create[j].Accession
	})
	for _, k := range create {
		ref := &store.CrossReference{Key: k, EntityID: entityID}
		if k == key {
			ref.Symbol = rec.Symbol
			ref.Name = rec.Name
		}
		if err := e.tx.CreateCrossReference(ctx, e.kind, ref); err != nil {
			return fmt.Errorf("merge %s: %w", key, err)
		}
		e.refs[k] = ref
	}

	if err := e.mergeStrings(ctx, entityID, rec); err != nil {
		return fmt.Errorf("merge %s: %w", key, err)
	}
	if err := e.linkMappings(ctx, entityID, rec); err != nil {
		return fmt.Errorf("merge %s: %w", key, err)
	}
	return nil
}

// fillScalars writes the record's scalar fields onto an existing entity
// where the entity has no value yet. Populated fields are never
// overwritten.
func (e *Engine) fillScalars(ctx context.Context, entityID int64, rec *record.Record) error {
	if rec.Chromosome == "" && rec.Location == "" && rec.Length == 0 && rec.Mass == 0 {
		return nil
	}
	entity, err := e.tx.GetEntity(ctx, e.kind, entityID)
	if err != nil {
		return err
	}
	changed := false
	if entity.Chromosome == "" && rec.Chromosome != "" {
		entity.Chromosome = rec.Chromosome
		changed = true
	}
	if entity.Location == "" && rec.Location != "" {
		entity.Location = rec.Location
		changed = true
	}
	if entity.Length == 0 && rec.Length != 0 {
		entity.Length = rec.Length
		changed = true
	}
	if entity.Mass == 0 && rec.Mass != 0 {
		entity.Mass = rec.Mass
		changed = true
	}
	if !changed {
		return nil
	}
	return e.tx.UpdateEntityScalars(ctx, e.kind, entity)
}

// mergeStrings unions the record's strings into the entity's, adding
// only values not already stored per category.
func (e *Engine) mergeStrings(ctx context.Context, entityID int64, rec *record.Record) error {
	if len(rec.Strings) == 0 {
		return nil
	}
	known, err := e.tx.EntityStrings(ctx, e.kind, entityID)
	if err != nil {
		return err
	}
	cats := make([]string, 0, len(rec.Strings))
	for cat := range rec.Strings {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		values := make([]string, 0, len(rec.Strings[cat]))
		for v := range rec.Strings[cat] {
			if !known[cat][v] {
				values = append(values, v)
			}
		}
		sort.Strings(values)
		for _, v := range values {
			if err := e.tx.AddEntityString(ctx, e.kind, entityID, cat, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// linkMappings resolves the record's weaker associations against the
// opposite kind's cross-references and records gene-protein links for
// the ones that already own an entity. Mappings never merge entities.
func (e *Engine) linkMappings(ctx context.Context, entityID int64, rec *record.Record) error {
	if len(rec.Mappings) == 0 {
		return nil
	}
	opposite := record.Protein
	if e.kind == record.Protein {
		opposite = record.Gene
	}
	owners, err := e.tx.ResolveOwners(ctx, opposite, rec.MappingKeys())
	if err != nil {
		return err
	}
	linked := make(map[int64]bool, len(owners))
	ids := make([]int64, 0, len(owners))
	for _, id := range owners {
		if !linked[id] {
			linked[id] = true
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		geneID, proteinID := entityID, id
		if e.kind == record.Protein {
			geneID, proteinID = id, entityID
		}
		if err := e.tx.LinkGeneProtein(ctx, geneID, proteinID); err != nil {
			return err
		}
	}
	return nil
}
