package parsers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/gnamed/gnamed/internal/loader"
	"github.com/gnamed/gnamed/internal/namespace"
	"github.com/gnamed/gnamed/internal/record"
)

// genenames.org custom download column indexes.
const (
	hgncID = iota
	hgncSymbol
	hgncName
	hgncPreviousSymbols
	hgncPreviousNames
	hgncSynonyms
	hgncNameSynonyms
	hgncLocation
	hgncPMIDs
	hgncGeneFamilySymbols
	hgncGeneFamilyNames
	hgncEntrezID
	hgncEnsemblID
	hgncMGDID
	hgncUniProtID
	hgncRGDID
	hgncColumns
)

// hgncLinks lists which columns carry cross-references and their
// namespaces. MGD and RGD accessions arrive with an "MGI:"/"RGD:"
// prefix that is stripped before linking.
var hgncLinks = []struct {
	column      int
	ns          string
	stripPrefix bool
}{
	{hgncEntrezID, namespace.Entrez, false},
	{hgncUniProtID, namespace.UniProt, false},
	{hgncMGDID, namespace.MGD, true},
	{hgncRGDID, namespace.RGD, true},
}

// hgncWrongRefs corrects cross-references genenames.org still publishes
// but the target authority has since retired.
var hgncWrongRefs = map[record.DBRef]record.DBRef{
	{Namespace: namespace.Entrez, Accession: "276721"}:    {Namespace: namespace.Entrez, Accession: "100422411"},
	{Namespace: namespace.Entrez, Accession: "446205"}:    {Namespace: namespace.Entrez, Accession: "646086"},
	{Namespace: namespace.Entrez, Accession: "100033412"}: {Namespace: namespace.Entrez, Accession: "100420926"},
}

// HGNC parses genenames.org custom download dumps (tab-separated, some
// fields quoted comma-separated lists). Every record is human.
type HGNC struct{}

var _ loader.Source = HGNC{}

// Parse streams one gene record per data line.
func (HGNC) Parse(ctx context.Context, r io.Reader, emit loader.Emit) error {
	return scanLines(ctx, r, func(n int, line string) error {
		if n == 1 {
			// Column header line.
			return nil
		}
		items := strings.Split(line, "\t")
		if len(items) < 2 {
			return fmt.Errorf("expected tab-separated columns")
		}
		for i := range items {
			items[i] = strings.TrimSpace(items[i])
			if items[i] == "-" {
				items[i] = ""
			}
		}
		// Trailing empty columns are omitted by the exporter.
		for len(items) < hgncColumns {
			items = append(items, "")
		}

		rec := record.NewGene(namespace.Human, items[hgncSymbol], items[hgncName])
		rec.Location = items[hgncLocation]

		// The ID column repeats the authority name (HGNC:5); the bare
		// number is the accession, matching how other providers cite it.
		key := record.DBRef{Namespace: namespace.HGNC, Accession: strings.TrimPrefix(items[hgncID], "HGNC:")}
		if err := rec.AddDBRef(key); err != nil {
			return err
		}

		for _, link := range hgncLinks {
			acc := items[link.column]
			if acc == "" {
				continue
			}
			if link.stripPrefix {
				if i := strings.Index(acc, ":"); i >= 0 {
					acc = acc[i+1:]
				}
			}
			ref := record.DBRef{Namespace: link.ns, Accession: acc}
			if corrected, outdated := hgncWrongRefs[ref]; outdated {
				slog.Info("correcting outdated cross-reference",
					"from", ref.String(),
					"to", corrected.String(),
				)
				ref = corrected
			}
			if err := rec.AddDBRef(ref); err != nil {
				return err
			}
		}

		for _, symbol := range splitCommaList(items[hgncPreviousSymbols]) {
			rec.AddSymbol(symbol)
		}
		for _, symbol := range splitCommaList(items[hgncSynonyms]) {
			rec.AddSymbol(symbol)
		}
		for _, name := range splitQuotedCommaList(items[hgncPreviousNames]) {
			rec.AddName(name)
		}
		for _, name := range splitQuotedCommaList(items[hgncNameSynonyms]) {
			rec.AddName(name)
		}

		for _, keyword := range splitCommaList(items[hgncGeneFamilySymbols]) {
			rec.AddKeyword(keyword)
		}
		// Family names compound several keywords with "/" and ":"
		// separators; "other" buckets carry no information.
		for _, name := range splitQuotedCommaList(items[hgncGeneFamilyNames]) {
			for _, sub := range strings.Split(name, " / ") {
				for _, keyword := range strings.Split(sub, " : ") {
					keyword = strings.TrimSpace(keyword)
					if keyword == "" || strings.EqualFold(keyword, "other") {
						continue
					}
					rec.AddKeyword(keyword)
				}
			}
		}

		return emit(key, rec)
	})
}

// splitCommaList splits a plain comma-separated field.
func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	var values []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

// splitQuotedCommaList splits a comma-separated field whose values may
// be double-quoted to protect embedded commas.
func splitQuotedCommaList(s string) []string {
	if s == "" {
		return nil
	}
	var values []string
	var b strings.Builder
	inQuote := false
	flush := func() {
		if v := strings.TrimSpace(b.String()); v != "" {
			values = append(values, v)
		}
		b.Reset()
	}
	for _, r := range s {
		switch {
		case r == '"':
			inQuote = !inQuote
		case r == ',' && !inQuote:
			flush()
		default:
			b.WriteRune(r)
		}
	}
	flush()
	return values
}
