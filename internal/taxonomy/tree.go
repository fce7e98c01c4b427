// Package taxonomy builds the species tree from the NCBI taxonomy dump.
//
// The store enforces that a node's parent exists before the node, but
// the name-assignment input is not ordered that way: a child may arrive
// long before its parent. The tree loader parks such children on hold
// and releases them, transitively, once their parent lands.
package taxonomy

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gnamed/gnamed/internal/store"
)

type nodeDef struct {
	parentID int
	rank     string
}

// TreeLoader materializes the taxonomy tree in dependency order. Feed
// it the node-definition pass first (AddNode per nodes.dmp row), then
// the name-assignment pass in file order (AddName per names.dmp row),
// then Finish.
type TreeLoader struct {
	tx  store.Tx
	log *slog.Logger

	defs      map[int]nodeDef
	rootFound bool

	current *store.SpeciesNode
	loaded  map[int]bool
	onHold  map[int][]*store.SpeciesNode
	stored  int
}

// NewTreeLoader binds a tree loader to an open unit of work.
func NewTreeLoader(tx store.Tx, log *slog.Logger) *TreeLoader {
	if log == nil {
		log = slog.Default()
	}
	return &TreeLoader{
		tx:     tx,
		log:    log,
		defs:   make(map[int]nodeDef),
		loaded: make(map[int]bool),
		onHold: make(map[int][]*store.SpeciesNode),
	}
}

// AddNode registers one node definition. The row whose ID equals its
// parent ID is the root; it is stored with parent zero and rank "root".
func (t *TreeLoader) AddNode(id, parentID int, rank string) {
	if !t.rootFound && id == parentID {
		parentID = 0
		rank = "root"
		t.rootFound = true
	}
	t.defs[id] = nodeDef{parentID: parentID, rank: rank}
}

// AddName attaches one (category, name) pair to the node with the given
// ID. Consecutive names for one ID accumulate on the same node; a
// change of ID finalizes the previous node. The unique variant, when
// present, disambiguates homonymous scientific names.
func (t *TreeLoader) AddName(ctx context.Context, id int, category, name, unique string) error {
	if t.current == nil || t.current.ID != id {
		if t.current != nil {
			if err := t.finalize(ctx, t.current); err != nil {
				return err
			}
		}
		def, ok := t.defs[id]
		if !ok {
			return fmt.Errorf("species %d has names but no node definition", id)
		}
		t.current = &store.SpeciesNode{ID: id, ParentID: def.parentID, Rank: def.rank}
	}

	switch category {
	case "scientific name":
		if t.current.UniqueName != "" {
			return fmt.Errorf("species %d has two scientific names (%q, %q)",
				id, t.current.UniqueName, name)
		}
		if unique != "" {
			t.current.UniqueName = unique
		} else {
			t.current.UniqueName = name
		}
	case "genbank common name":
		if t.current.GenbankName != "" {
			return fmt.Errorf("species %d has two genbank common names (%q, %q)",
				id, t.current.GenbankName, name)
		}
		t.current.GenbankName = name
	}
	t.current.Names = append(t.current.Names, store.SpeciesName{Category: category, Name: name})
	return nil
}

// finalize stores a node whose parent is already in the store (or which
// is the root) and releases everything waiting on it; otherwise the
// node is parked until its parent arrives.
func (t *TreeLoader) finalize(ctx context.Context, node *store.SpeciesNode) error {
	if node.ParentID != 0 && !t.loaded[node.ParentID] {
		t.onHold[node.ParentID] = append(t.onHold[node.ParentID], node)
		return nil
	}
	if err := t.storeNode(ctx, node); err != nil {
		return err
	}
	return t.release(ctx, node.ID)
}

// release flushes every on-hold descendant of the given node. The walk
// is iterative with an explicit stack; a long chain of parked
// descendants must not grow the call stack.
func (t *TreeLoader) release(ctx context.Context, id int) error {
	stack := []int{id}
	for len(stack) > 0 {
		parent := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		pending, ok := t.onHold[parent]
		if !ok {
			continue
		}
		delete(t.onHold, parent)
		for _, node := range pending {
			if err := t.storeNode(ctx, node); err != nil {
				return err
			}
			stack = append(stack, node.ID)
		}
	}
	return nil
}

func (t *TreeLoader) storeNode(ctx context.Context, node *store.SpeciesNode) error {
	if err := t.tx.AddSpecies(ctx, node); err != nil {
		return err
	}
	t.loaded[node.ID] = true
	t.stored++
	return nil
}

// Finish finalizes the last accumulated node and force-adds anything
// still on hold. Stranded nodes mean the dump references a parent that
// was never defined; they are stored anyway, with a warning, so no data
// is silently dropped.
func (t *TreeLoader) Finish(ctx context.Context) error {
	if t.current != nil {
		if err := t.finalize(ctx, t.current); err != nil {
			return err
		}
		t.current = nil
	}

	if len(t.onHold) > 0 {
		stranded := 0
		for _, pending := range t.onHold {
			stranded += len(pending)
		}
		t.log.Warn("could not order all tree dependencies, force-adding stranded nodes",
			"stranded", stranded,
		)
		for _, pending := range t.onHold {
			for _, node := range pending {
				if err := t.storeNode(ctx, node); err != nil {
					return err
				}
			}
		}
		t.onHold = make(map[int][]*store.SpeciesNode)
	}
	return nil
}

// Stored returns the number of nodes handed to the store so far.
func (t *TreeLoader) Stored() int {
	return t.stored
}
