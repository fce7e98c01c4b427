package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/gnamed/gnamed/internal/record"
)

// Memory is an in-process store used by tests and dry runs. It mirrors
// the transactional behavior of the PostgreSQL store: a transaction
// works on a copy of the state and Commit publishes it.
type Memory struct {
	mu    sync.Mutex
	state *memState
}

type memState struct {
	nextID   map[record.EntityKind]int64
	entities map[record.EntityKind]map[int64]*Entity
	refs     map[record.EntityKind]map[record.DBRef]*CrossReference
	strings  map[record.EntityKind]map[int64]map[string]map[string]bool
	links    map[[2]int64]bool

	species      map[int]*SpeciesNode
	speciesOrder []int
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{state: newMemState()}
}

func newMemState() *memState {
	s := &memState{
		nextID:   map[record.EntityKind]int64{record.Gene: 1, record.Protein: 1},
		entities: make(map[record.EntityKind]map[int64]*Entity),
		refs:     make(map[record.EntityKind]map[record.DBRef]*CrossReference),
		strings:  make(map[record.EntityKind]map[int64]map[string]map[string]bool),
		links:    make(map[[2]int64]bool),
		species:  make(map[int]*SpeciesNode),
	}
	for _, kind := range []record.EntityKind{record.Gene, record.Protein} {
		s.entities[kind] = make(map[int64]*Entity)
		s.refs[kind] = make(map[record.DBRef]*CrossReference)
		s.strings[kind] = make(map[int64]map[string]map[string]bool)
	}
	return s
}

func (s *memState) clone() *memState {
	c := newMemState()
	for kind, next := range s.nextID {
		c.nextID[kind] = next
	}
	for kind, entities := range s.entities {
		for id, e := range entities {
			copied := *e
			c.entities[kind][id] = &copied
		}
	}
	for kind, refs := range s.refs {
		for key, ref := range refs {
			copied := *ref
			c.refs[kind][key] = &copied
		}
	}
	for kind, byEntity := range s.strings {
		for id, cats := range byEntity {
			c.strings[kind][id] = make(map[string]map[string]bool, len(cats))
			for cat, values := range cats {
				set := make(map[string]bool, len(values))
				for v := range values {
					set[v] = true
				}
				c.strings[kind][id][cat] = set
			}
		}
	}
	for link := range s.links {
		c.links[link] = true
	}
	for id, node := range s.species {
		copied := *node
		copied.Names = append([]SpeciesName(nil), node.Names...)
		c.species[id] = &copied
	}
	c.speciesOrder = append([]int(nil), s.speciesOrder...)
	return c
}

// Begin opens a unit of work over a copy of the current state.
func (s *Memory) Begin(ctx context.Context) (Tx, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &memTx{parent: s, state: s.state.clone()}, nil
}

type memTx struct {
	parent *Memory
	state  *memState
	done   bool
}

var _ Tx = (*memTx)(nil)

func (t *memTx) FindCrossReferences(ctx context.Context, kind record.EntityKind, keys []record.DBRef) ([]*CrossReference, error) {
	var found []*CrossReference
	for _, key := range keys {
		if ref, ok := t.state.refs[kind][key]; ok {
			copied := *ref
			found = append(found, &copied)
		}
	}
	return found, nil
}

func (t *memTx) GetEntity(ctx context.Context, kind record.EntityKind, id int64) (*Entity, error) {
	e, ok := t.state.entities[kind][id]
	if !ok {
		return nil, fmt.Errorf("no %s with id %d", kind, id)
	}
	copied := *e
	return &copied, nil
}

func (t *memTx) CreateEntity(ctx context.Context, kind record.EntityKind, e *Entity) error {
	e.ID = t.state.nextID[kind]
	t.state.nextID[kind]++
	copied := *e
	t.state.entities[kind][e.ID] = &copied
	return nil
}

func (t *memTx) UpdateEntityScalars(ctx context.Context, kind record.EntityKind, e *Entity) error {
	stored, ok := t.state.entities[kind][e.ID]
	if !ok {
		return fmt.Errorf("no %s with id %d", kind, e.ID)
	}
	stored.Chromosome = e.Chromosome
	stored.Location = e.Location
	stored.Length = e.Length
	stored.Mass = e.Mass
	return nil
}

func (t *memTx) CreateCrossReference(ctx context.Context, kind record.EntityKind, ref *CrossReference) error {
	if _, exists := t.state.refs[kind][ref.Key]; exists {
		return fmt.Errorf("duplicate cross-reference %s", ref.Key)
	}
	copied := *ref
	t.state.refs[kind][ref.Key] = &copied
	return nil
}

func (t *memTx) SetCrossReferenceOwner(ctx context.Context, kind record.EntityKind, key record.DBRef, entityID int64) error {
	ref, ok := t.state.refs[kind][key]
	if !ok {
		return fmt.Errorf("no cross-reference %s", key)
	}
	ref.EntityID = entityID
	return nil
}

func (t *memTx) SetCrossReferenceNames(ctx context.Context, kind record.EntityKind, key record.DBRef, symbol, name string) error {
	ref, ok := t.state.refs[kind][key]
	if !ok {
		return fmt.Errorf("no cross-reference %s", key)
	}
	ref.Symbol = symbol
	ref.Name = name
	return nil
}

func (t *memTx) EntityStrings(ctx context.Context, kind record.EntityKind, entityID int64) (map[string]map[string]bool, error) {
	known := make(map[string]map[string]bool)
	for cat, values := range t.state.strings[kind][entityID] {
		set := make(map[string]bool, len(values))
		for v := range values {
			set[v] = true
		}
		known[cat] = set
	}
	return known, nil
}

func (t *memTx) AddEntityString(ctx context.Context, kind record.EntityKind, entityID int64, cat, value string) error {
	byEntity := t.state.strings[kind]
	if byEntity[entityID] == nil {
		byEntity[entityID] = make(map[string]map[string]bool)
	}
	if byEntity[entityID][cat] == nil {
		byEntity[entityID][cat] = make(map[string]bool)
	}
	byEntity[entityID][cat][value] = true
	return nil
}

func (t *memTx) ResolveOwners(ctx context.Context, kind record.EntityKind, keys []record.DBRef) (map[record.DBRef]int64, error) {
	owners := make(map[record.DBRef]int64)
	for _, key := range keys {
		if ref, ok := t.state.refs[kind][key]; ok && ref.EntityID != 0 {
			owners[key] = ref.EntityID
		}
	}
	return owners, nil
}

func (t *memTx) LinkGeneProtein(ctx context.Context, geneID, proteinID int64) error {
	t.state.links[[2]int64{geneID, proteinID}] = true
	return nil
}

func (t *memTx) AddSpecies(ctx context.Context, node *SpeciesNode) error {
	if _, exists := t.state.species[node.ID]; exists {
		return fmt.Errorf("duplicate species %d", node.ID)
	}
	copied := *node
	copied.Names = append([]SpeciesName(nil), node.Names...)
	t.state.species[node.ID] = &copied
	t.state.speciesOrder = append(t.state.speciesOrder, node.ID)
	return nil
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return fmt.Errorf("transaction already closed")
	}
	t.done = true
	t.parent.mu.Lock()
	defer t.parent.mu.Unlock()
	t.parent.state = t.state
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	t.done = true
	return nil
}

// Read accessors for tests and dry-run reporting. They observe
// committed state only.

// Entity returns a committed entity by ID, or nil.
func (s *Memory) Entity(kind record.EntityKind, id int64) *Entity {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.state.entities[kind][id]
	if !ok {
		return nil
	}
	copied := *e
	return &copied
}

// EntityCount returns the number of committed entities of a kind.
func (s *Memory) EntityCount(kind record.EntityKind) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.state.entities[kind])
}

// Ref returns a committed cross-reference, or nil.
func (s *Memory) Ref(kind record.EntityKind, key record.DBRef) *CrossReference {
	s.mu.Lock()
	defer s.mu.Unlock()
	ref, ok := s.state.refs[kind][key]
	if !ok {
		return nil
	}
	copied := *ref
	return &copied
}

// Strings returns the committed strings of one entity by category.
func (s *Memory) Strings(kind record.EntityKind, entityID int64) map[string]map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]map[string]bool)
	for cat, values := range s.state.strings[kind][entityID] {
		set := make(map[string]bool, len(values))
		for v := range values {
			set[v] = true
		}
		out[cat] = set
	}
	return out
}

// Linked reports whether a committed gene-protein association exists.
func (s *Memory) Linked(geneID, proteinID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.links[[2]int64{geneID, proteinID}]
}

// Species returns a committed taxonomy node, or nil.
func (s *Memory) Species(id int) *SpeciesNode {
	s.mu.Lock()
	defer s.mu.Unlock()
	node, ok := s.state.species[id]
	if !ok {
		return nil
	}
	copied := *node
	copied.Names = append([]SpeciesName(nil), node.Names...)
	return &copied
}

// SpeciesOrder returns committed taxonomy node IDs in insertion order.
func (s *Memory) SpeciesOrder() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.state.speciesOrder...)
}
