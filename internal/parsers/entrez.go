package parsers

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/gnamed/gnamed/internal/loader"
	"github.com/gnamed/gnamed/internal/namespace"
	"github.com/gnamed/gnamed/internal/record"
)

// gene_info column indexes.
const (
	entrezSpeciesID = iota
	entrezID
	entrezSymbol
	entrezLocusTag
	entrezSynonyms
	entrezDBXrefs
	entrezChromosome
	entrezMapLocation
	entrezName
	entrezTypeOfGene
	entrezNomenclatureSymbol
	entrezNomenclatureName
	entrezNomenclatureStatus
	entrezOtherDesignations
	entrezModificationDate
	entrezColumns
)

// entrezJunkNames are names frequently cited by Entrez that carry no
// information and are dropped from every name field.
var entrezJunkNames = map[string]bool{
	"hypothetical protein":                      true,
	"polypeptide":                               true,
	"polyprotein":                               true,
	"predicted protein":                         true,
	"protein":                                   true,
	"pseudo":                                    true,
	"similar to predicted protein":              true,
	"similar to conserved hypothetical protein": true,
	"similar to hypothetical protein":           true,
	"similar to polypeptide":                    true,
	"similar to polyprotein":                    true,
}

// entrezXrefs translates gene_info dbxref database tags to namespace
// codes. Tags absent here (Ensembl, miRBase, ...) have no local
// namespace and are dropped.
var entrezXrefs = map[string]string{
	"FLYBASE":               namespace.FlyBase,
	"HGNC":                  namespace.HGNC,
	"MGI":                   namespace.MGD,
	"RGD":                   namespace.RGD,
	"SGD":                   namespace.SGD,
	"UniProtKB/Swiss-Prot":  namespace.UniProt,
	"TAIR":                  namespace.TAIR,
	"ECOCYC":                namespace.EcoCyc,
	"WormBase":              namespace.WormBase,
	"Xenbase":               namespace.Xenbase,
}

// isGeneSymbol reports whether a string fits a symbol field: short and
// without spaces. Longer or spaced strings are filed as names instead.
func isGeneSymbol(s string) bool {
	return len(s) < 65 && !strings.Contains(s, " ")
}

// Entrez parses NCBI Entrez Gene gene_info dumps.
type Entrez struct{}

var _ loader.Source = Entrez{}

// Parse streams one gene record per data line.
func (Entrez) Parse(ctx context.Context, r io.Reader, emit loader.Emit) error {
	return scanLines(ctx, r, func(n int, line string) error {
		// The file opens with a #-prefixed header line.
		if n == 1 && strings.HasPrefix(line, "#") {
			return nil
		}
		items := strings.Split(line, "\t")
		if len(items) < entrezColumns {
			return fmt.Errorf("expected %d columns, got %d", entrezColumns, len(items))
		}
		for i := range items {
			items[i] = strings.TrimSpace(items[i])
			if items[i] == "-" {
				items[i] = ""
			}
		}

		// Placeholder rows for names not yet assigned.
		if items[entrezSymbol] == "NEWENTRY" {
			return nil
		}

		for _, i := range []int{entrezSymbol, entrezName, entrezNomenclatureSymbol, entrezNomenclatureName} {
			if entrezJunkNames[strings.ToLower(items[i])] {
				items[i] = ""
			}
		}

		speciesID, err := strconv.Atoi(items[entrezSpeciesID])
		if err != nil {
			return fmt.Errorf("bad species id %q: %w", items[entrezSpeciesID], err)
		}
		if len(items[entrezSymbol]) >= 65 {
			return fmt.Errorf("illegal symbol %q for gi:%s", items[entrezSymbol], items[entrezID])
		}

		rec := record.NewGene(speciesID, items[entrezSymbol], items[entrezName])
		rec.Chromosome = items[entrezChromosome]
		rec.Location = items[entrezMapLocation]

		key := record.DBRef{Namespace: namespace.Entrez, Accession: items[entrezID]}
		if err := rec.AddDBRef(key); err != nil {
			return err
		}

		if items[entrezDBXrefs] != "" {
			for _, xref := range strings.Split(items[entrezDBXrefs], "|") {
				db, acc, ok := strings.Cut(xref, ":")
				if !ok {
					return fmt.Errorf("bad dbxref %q", xref)
				}
				ns, known := entrezXrefs[db]
				if !known {
					continue
				}
				// Some tags repeat themselves in the accession
				// (HGNC:HGNC:5, MGI:MGI:95892).
				acc = strings.TrimPrefix(acc, db+":")
				if err := rec.AddDBRef(record.DBRef{Namespace: ns, Accession: acc}); err != nil {
					return err
				}
			}
		}

		if items[entrezNomenclatureSymbol] != "" {
			rec.AddSymbol(items[entrezNomenclatureSymbol])
		}
		if items[entrezSynonyms] != "" {
			// Symbols and names are freely mixed in this field; sort
			// them by shape.
			for _, syn := range strings.Split(items[entrezSynonyms], "|") {
				syn = strings.TrimSpace(syn)
				if syn == "" || syn == "unnamed" || entrezJunkNames[strings.ToLower(syn)] {
					continue
				}
				if isGeneSymbol(syn) || len(syn) < 17 {
					rec.AddSymbol(syn)
				} else {
					rec.AddName(syn)
				}
			}
		}
		if items[entrezNomenclatureName] != "" {
			rec.AddName(items[entrezNomenclatureName])
		}
		if items[entrezOtherDesignations] != "" {
			for _, name := range strings.Split(items[entrezOtherDesignations], "|") {
				name = strings.TrimSpace(name)
				if name == "" || entrezJunkNames[strings.ToLower(name)] {
					continue
				}
				if isGeneSymbol(name) {
					rec.AddSymbol(name)
				} else {
					rec.AddName(name)
				}
			}
		}

		return emit(key, rec)
	})
}
