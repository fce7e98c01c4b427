package parsers

import (
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/gnamed/gnamed/internal/loader"
	"github.com/gnamed/gnamed/internal/namespace"
	"github.com/gnamed/gnamed/internal/record"
)

// UniProt parses UniProtKB Swiss-Prot/TrEMBL text files. Records span
// many lines, dispatched on the two-letter line code, and are emitted
// when the terminator line arrives. The species is provisional until
// the OX line resolves it.
type UniProt struct{}

var _ loader.Source = UniProt{}

// Parse streams one protein record per entry.
func (UniProt) Parse(ctx context.Context, r io.Reader, emit loader.Emit) error {
	p := &uniprotEntry{emit: emit}
	return scanLines(ctx, r, func(n int, line string) error {
		return p.parseLine(line)
	})
}

type uniprotEntry struct {
	emit loader.Emit

	rec   *record.Record
	dbKey record.DBRef

	id           string
	length       int
	nameCat      string
	skipSequence bool
}

var (
	uniprotID = regexp.MustCompile(`^ID\s+(\w+)\s+(?:Reviewed|Unreviewed);\s+(\d+)\s+AA\.`)
	uniprotAC = regexp.MustCompile(`([A-Z][0-9][A-Z0-9]{3}[0-9](?:[A-Z][A-Z0-9]{2}[0-9])?);`)
	uniprotGN = regexp.MustCompile(`(\w+)\s*=\s*([^;]+);`)
	uniprotOX = regexp.MustCompile(`NCBI_TaxID\s*=\s*(\d+)`)
	uniprotDR = regexp.MustCompile(`^DR\s+([\w/\-]+)\s*;\s+(.*)$`)
	uniprotSQ = regexp.MustCompile(`^SQ\s+SEQUENCE\s+(\d+)\s+AA;\s+(\d+)\s+MW;`)
)

// uniprotXrefs translates DR line database tags to cross-reference
// keys. Tags absent here (PDB, GO, Pfam, ...) are not linkable and are
// skipped.
var uniprotXrefs = map[string]func(items []string) []record.DBRef{
	"BioCyc": func(items []string) []record.DBRef {
		// Only the EcoCyc slice of BioCyc has a local namespace.
		db, acc, ok := strings.Cut(items[0], ":")
		if !ok || db != "EcoCyc" {
			return nil
		}
		return []record.DBRef{{Namespace: namespace.EcoCyc, Accession: acc}}
	},
	"FlyBase":  xref(namespace.FlyBase, ""),
	"GeneID":   xref(namespace.Entrez, ""),
	"HGNC":     xref(namespace.HGNC, "HGNC:"),
	"MGI":      xref(namespace.MGD, "MGI:"),
	"RGD":      xref(namespace.RGD, ""),
	"SGD":      xref(namespace.SGD, ""),
	"TAIR":     xref(namespace.TAIR, ""),
	"WormBase": xref(namespace.WormBase, ""),
	"Xenbase":  xref(namespace.Xenbase, ""),
}

func xref(ns, prefix string) func(items []string) []record.DBRef {
	return func(items []string) []record.DBRef {
		acc := strings.TrimPrefix(items[0], prefix)
		return []record.DBRef{{Namespace: ns, Accession: acc}}
	}
}

func (p *uniprotEntry) parseLine(line string) error {
	if p.skipSequence && !strings.HasPrefix(line, "//") {
		return nil
	}
	if len(line) < 2 {
		return nil
	}
	switch line[:2] {
	case "ID":
		return p.parseID(line)
	case "AC":
		return p.parseAC(line)
	case "DE":
		return p.parseDE(line)
	case "GN":
		return p.parseGN(line)
	case "OX":
		return p.parseOX(line)
	case "DR":
		return p.parseDR(line)
	case "KW":
		return p.parseKW(line)
	case "SQ":
		return p.parseSQ(line)
	case "//":
		return p.finish()
	default:
		// Dates, references, comments, features, the sequence itself.
		return nil
	}
}

func (p *uniprotEntry) parseID(line string) error {
	m := uniprotID.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("malformed ID line")
	}
	p.id = m[1]
	p.length, _ = strconv.Atoi(m[2])
	return nil
}

func (p *uniprotEntry) parseAC(line string) error {
	accessions := uniprotAC.FindAllStringSubmatch(line, -1)
	if len(accessions) == 0 {
		return fmt.Errorf("no accessions on AC line")
	}
	// The first AC line starts the record; the first accession is the
	// primary key, the rest are retired accessions kept as strings.
	if p.rec == nil {
		p.rec = record.NewProtein(record.ProvisionalSpecies, "", "")
		p.rec.Length = p.length
		p.dbKey = record.DBRef{Namespace: namespace.UniProt, Accession: accessions[0][1]}
		if p.id != "" {
			p.rec.AddString(record.CatIdentifier, p.id)
		}
		if err := p.rec.AddDBRef(p.dbKey); err != nil {
			return err
		}
		accessions = accessions[1:]
	}
	for _, m := range accessions {
		p.rec.AddString(record.CatAccession, m[1])
	}
	return nil
}

var uniprotDECategories = []string{"RecName", "AltName", "SubName", "Flags", "Contains", "Includes"}

func (p *uniprotEntry) parseDE(line string) error {
	if p.rec == nil {
		return fmt.Errorf("DE line before AC")
	}
	body := strings.TrimSpace(line[2:])
	for _, cat := range uniprotDECategories {
		if strings.HasPrefix(body, cat+":") {
			if cat == "Flags" || cat == "Contains" || cat == "Includes" {
				return nil
			}
			p.nameCat = cat
			body = strings.TrimSpace(body[len(cat)+1:])
			break
		}
	}
	subcat, name, ok := strings.Cut(body, "=")
	if !ok {
		return fmt.Errorf("malformed DE line")
	}
	subcat = strings.TrimSpace(subcat)
	if !strings.HasSuffix(name, ";") {
		return fmt.Errorf("DE name %q not terminated", name)
	}
	name = name[:len(name)-1]

	// Short names that are neither short nor unspaced are full names.
	if subcat == "Short" && len(name) > 16 && strings.Contains(name, " ") {
		subcat = "Full"
	}

	if subcat == "Full" {
		name = lowerFirst(name)
		// Strip non-informative qualifiers; what remains may turn out
		// to be symbol-shaped.
		for {
			if strings.HasPrefix(name, "uncharacterized protein ") {
				name = name[len("uncharacterized protein "):]
			} else if strings.HasPrefix(name, "putative ") || strings.HasPrefix(name, "probable ") {
				name = name[len("putative "):]
			} else {
				break
			}
			if !strings.Contains(name, " ") && len(name) < 16 {
				subcat = "Short"
			}
		}
		// Rotate "kinase, putative serine" style inversions back into
		// natural order.
		for {
			comma := strings.LastIndex(name, ", ")
			if comma < 0 {
				break
			}
			name = name[comma+2:] + " " + name[:comma]
		}
	}

	if p.nameCat == "RecName" {
		switch subcat {
		case "Full":
			p.rec.Name = name
		case "Short":
			if p.rec.Symbol == "" {
				p.rec.Symbol = name
			}
		case "EC":
			if p.rec.Symbol == "" {
				p.rec.Symbol = "EC" + name
			}
		}
	}

	switch subcat {
	case "Full":
		p.rec.AddName(name)
	case "Short":
		p.rec.AddSymbol(name)
	case "EC":
		p.rec.AddKeyword("EC" + name)
	case "Allergen", "Biotech", "CD_antigen", "INN":
		// Trade and regulatory designations, not names.
	default:
		return fmt.Errorf("unknown DE subcategory %q", subcat)
	}
	return nil
}

func (p *uniprotEntry) parseGN(line string) error {
	if p.rec == nil {
		return fmt.Errorf("GN line before AC")
	}
	for _, m := range uniprotGN.FindAllStringSubmatch(line, -1) {
		key, value := m[1], m[2]
		switch key {
		case "Name":
			p.addSymbolOrName(value)
		case "Synonyms":
			for _, s := range strings.Split(value, ",") {
				p.addSymbolOrName(strings.TrimSpace(s))
			}
		case "OrderedLocusNames", "ORFNames":
			for _, s := range strings.Split(value, ",") {
				p.rec.AddKeyword(strings.TrimSpace(s))
			}
		default:
			return fmt.Errorf("unknown GN field %q", key)
		}
	}
	return nil
}

func (p *uniprotEntry) addSymbolOrName(value string) {
	if value == "" {
		return
	}
	if len(value) < 16 || !strings.Contains(value, " ") {
		p.rec.AddSymbol(value)
	} else {
		p.rec.AddName(value)
	}
}

func (p *uniprotEntry) parseOX(line string) error {
	if p.rec == nil {
		return fmt.Errorf("OX line before AC")
	}
	m := uniprotOX.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("malformed OX line")
	}
	speciesID, err := strconv.Atoi(m[1])
	if err != nil {
		return fmt.Errorf("bad species id %q: %w", m[1], err)
	}
	p.rec.SpeciesID = speciesID
	return nil
}

func (p *uniprotEntry) parseDR(line string) error {
	if p.rec == nil {
		return fmt.Errorf("DR line before AC")
	}
	m := uniprotDR.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("malformed DR line")
	}
	translate, ok := uniprotXrefs[m[1]]
	if !ok {
		return nil
	}
	accessions := strings.TrimSuffix(m[2], ".")
	items := strings.Split(accessions, ";")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	for _, ref := range translate(items) {
		if err := p.rec.AddDBRef(ref); err != nil {
			return err
		}
	}
	return nil
}

func (p *uniprotEntry) parseKW(line string) error {
	if p.rec == nil {
		return fmt.Errorf("KW line before AC")
	}
	body := strings.TrimSuffix(strings.TrimSpace(line[2:]), ".")
	for _, keyword := range strings.Split(body, ";") {
		keyword = strings.TrimSpace(keyword)
		if keyword == "" || keyword == "Complete proteome" {
			continue
		}
		p.rec.AddKeyword(keyword)
	}
	return nil
}

func (p *uniprotEntry) parseSQ(line string) error {
	if p.rec == nil {
		return fmt.Errorf("SQ line before AC")
	}
	m := uniprotSQ.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("malformed SQ line")
	}
	p.rec.Mass, _ = strconv.Atoi(m[2])
	p.skipSequence = true
	return nil
}

func (p *uniprotEntry) finish() error {
	if p.rec == nil {
		return nil
	}
	err := p.emit(p.dbKey, p.rec)
	p.rec = nil
	p.dbKey = record.DBRef{}
	p.id = ""
	p.length = 0
	p.nameCat = ""
	p.skipSequence = false
	return err
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}
