// Package record holds the provider-agnostic representation of one
// parsed nomenclature fact: the species, the authority's own symbol and
// name, alternate strings, and the cross-reference keys asserting which
// other identifiers name the same entity.
package record

import (
	"fmt"
	"log/slog"

	"github.com/gnamed/gnamed/internal/namespace"
)

// DBRef is a (namespace, accession) key identifying an entry in one
// naming authority. It is comparable and usable as a map key.
type DBRef struct {
	Namespace string
	Accession string
}

func (r DBRef) String() string {
	return r.Namespace + ":" + r.Accession
}

// EntityKind selects which side of the store (genes or proteins) a
// record and its cross-references belong to.
type EntityKind int

const (
	Gene EntityKind = iota
	Protein
)

func (k EntityKind) String() string {
	switch k {
	case Gene:
		return "gene"
	case Protein:
		return "protein"
	default:
		return fmt.Sprintf("EntityKind(%d)", int(k))
	}
}

// String categories stored alongside an entity.
const (
	CatSymbol     = "symbol"
	CatName       = "name"
	CatKeyword    = "keyword"
	CatIdentifier = "identifier"
	CatAccession  = "accession"
)

// ProvisionalSpecies marks a record whose species is discovered later in
// the same record's parse (UniProt sets it on the OX line). It must be
// replaced before the record is merged.
const ProvisionalSpecies = -1

// Record is the transient carrier handed from a parser to the loader.
// It is created per input record and discarded after the merge.
type Record struct {
	Kind      EntityKind
	SpeciesID int

	// Symbol and Name are the authority's own official designations,
	// stamped onto the primary cross-reference as a snapshot.
	Symbol string
	Name   string

	// Strings collects alternate symbols, names and keywords by
	// category. Duplicates within a category collapse.
	Strings map[string]map[string]bool

	// Refs asserts "same entity": every key here may be used to merge.
	Refs map[DBRef]bool

	// Mappings are weaker associations (protein-to-gene hints and
	// cross-species contamination) recorded for traversal but never
	// used to merge entities.
	Mappings map[DBRef]bool

	// Gene scalars, first-writer-wins in the store.
	Chromosome string
	Location   string

	// Protein scalars, first-writer-wins in the store.
	Length int
	Mass   int
}

// NewGene creates a gene record. Symbol and name, when present, are
// also registered as strings of their category.
func NewGene(speciesID int, symbol, name string) *Record {
	return newRecord(Gene, speciesID, symbol, name)
}

// NewProtein creates a protein record.
func NewProtein(speciesID int, symbol, name string) *Record {
	return newRecord(Protein, speciesID, symbol, name)
}

func newRecord(kind EntityKind, speciesID int, symbol, name string) *Record {
	r := &Record{
		Kind:      kind,
		SpeciesID: speciesID,
		Symbol:    symbol,
		Name:      name,
		Strings:   make(map[string]map[string]bool),
		Refs:      make(map[DBRef]bool),
		Mappings:  make(map[DBRef]bool),
	}
	if symbol != "" {
		r.AddSymbol(symbol)
	}
	if name != "" {
		r.AddName(name)
	}
	return r
}

// SetSymbol replaces the official symbol and records it as a string.
func (r *Record) SetSymbol(symbol string) {
	r.Symbol = symbol
	r.AddSymbol(symbol)
}

// SetName replaces the official name and records it as a string.
func (r *Record) SetName(name string) {
	r.Name = name
	r.AddName(name)
}

// AddSymbol registers an alternate symbol.
func (r *Record) AddSymbol(symbol string) {
	r.AddString(CatSymbol, symbol)
}

// AddName registers an alternate name.
func (r *Record) AddName(name string) {
	r.AddString(CatName, name)
}

// AddKeyword registers a keyword.
func (r *Record) AddKeyword(keyword string) {
	r.AddString(CatKeyword, keyword)
}

// AddString registers a string under an arbitrary category.
func (r *Record) AddString(cat, value string) {
	if value == "" {
		return
	}
	set, ok := r.Strings[cat]
	if !ok {
		set = make(map[string]bool)
		r.Strings[cat] = set
	}
	set[value] = true
}

// AddDBRef classifies a cross-reference key as either a merge-grade ref
// or a weaker mapping.
//
// A key lands in Refs when its namespace matches the record's kind and
// either the namespace is open (Entrez for genes, UniProt for proteins)
// or its species space contains the record's species. A same-kind key
// whose species space excludes the record's species indicates
// cross-species contamination: it is logged and demoted to Mappings.
// Keys of the opposite kind always land in Mappings. Unknown namespaces
// are an error.
func (r *Record) AddDBRef(ref DBRef) error {
	if !namespace.All[ref.Namespace] {
		return fmt.Errorf("unknown namespace in %s", ref)
	}

	var sameKind map[string]bool
	var open string
	switch r.Kind {
	case Gene:
		sameKind, open = namespace.GeneSpaces, namespace.Entrez
	case Protein:
		sameKind, open = namespace.ProteinSpaces, namespace.UniProt
	default:
		return fmt.Errorf("invalid record kind %d", int(r.Kind))
	}

	if sameKind[ref.Namespace] {
		if ref.Namespace == open || namespace.Allows(ref.Namespace, r.SpeciesID) {
			r.Refs[ref] = true
			return nil
		}
		slog.Warn("cross-reference outside its species space, kept as mapping",
			"ref", ref.String(),
			"species_id", r.SpeciesID,
		)
		r.Mappings[ref] = true
		return nil
	}

	if !namespace.Allows(ref.Namespace, r.SpeciesID) {
		slog.Debug("cross-species mapping",
			"ref", ref.String(),
			"species_id", r.SpeciesID,
		)
	}
	r.Mappings[ref] = true
	return nil
}

// RefKeys returns the refs as a slice in unspecified order.
func (r *Record) RefKeys() []DBRef {
	keys := make([]DBRef, 0, len(r.Refs))
	for key := range r.Refs {
		keys = append(keys, key)
	}
	return keys
}

// MappingKeys returns the mappings as a slice in unspecified order.
func (r *Record) MappingKeys() []DBRef {
	keys := make([]DBRef, 0, len(r.Mappings))
	for key := range r.Mappings {
		keys = append(keys, key)
	}
	return keys
}
