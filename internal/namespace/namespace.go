// Package namespace defines the naming authorities gnamed consolidates,
// the short codes used to identify them, and the species each authority
// is permitted to describe.
package namespace

// Short codes for every supported naming authority.
//
// Entrez and UniProt are general-purpose repositories; the rest are
// organism-specific nomenclature authorities.
const (
	Entrez   = "gi"   // NCBI Entrez Gene
	UniProt  = "uni"  // UniProtKB Swiss-Prot/TrEMBL
	HGNC     = "hgnc" // human
	MGD      = "mgi"  // mouse
	RGD      = "rgd"  // human and rat
	FlyBase  = "fly"  // fruit fly
	SGD      = "sgd"  // bakers yeast (S. cerevisiae)
	PomBase  = "pb"   // fission yeast (S. pombe)
	TAIR     = "tair" // thale cress (A. thaliana)
	EcoCyc   = "eco"  // E. coli
	WormBase = "wb"   // nematode (C. elegans)
	Xenbase  = "xb"   // african and western frog (X. laevis and X. tropicalis)
)

// NCBI taxonomy IDs for the species the organism-specific authorities cover.
const (
	Human        = 9606  // H. sapiens
	Mouse        = 10090 // M. musculus
	Rat          = 10116 // R. norvegicus
	Fly          = 7227  // D. melanogaster
	BakersYeast  = 4932  // S. cerevisiae
	FissionYeast = 4896  // S. pombe
	Cress        = 3702  // A. thaliana
	EColi        = 562   // E. coli
	Nematode     = 6239  // C. elegans
	AfricanFrog  = 8355  // X. laevis
	WesternFrog  = 8364  // X. tropicalis
	Unidentified = 32644 // unknown/unclassified species
)

// All is the set of every known namespace code.
var All = map[string]bool{
	Entrez:   true,
	UniProt:  true,
	HGNC:     true,
	MGD:      true,
	RGD:      true,
	FlyBase:  true,
	SGD:      true,
	PomBase:  true,
	TAIR:     true,
	EcoCyc:   true,
	WormBase: true,
	Xenbase:  true,
}

// GeneSpaces holds the namespaces whose accessions identify genes.
var GeneSpaces = map[string]bool{
	Entrez:   true,
	HGNC:     true,
	MGD:      true,
	RGD:      true,
	FlyBase:  true,
	SGD:      true,
	PomBase:  true,
	TAIR:     true,
	EcoCyc:   true,
	WormBase: true,
	Xenbase:  true,
}

// ProteinSpaces holds the namespaces whose accessions identify proteins.
var ProteinSpaces = map[string]bool{
	UniProt: true,
}

// SpeciesSpaces declares which species each organism-specific namespace
// may describe. Namespaces absent from this map (Entrez, UniProt) are
// open: they may reference any species.
var SpeciesSpaces = map[string]map[int]bool{
	HGNC: {Human: true},
	MGD:  {Mouse: true},
	RGD:  {Human: true, Rat: true},
	FlyBase: {
		Fly: true, 46245: true, 7217: true, 7220: true, 7222: true,
		7230: true, 7234: true, 7238: true, 7240: true, 7244: true,
		7245: true, 7260: true,
	},
	SGD:     {BakersYeast: true, 559292: true},
	PomBase: {FissionYeast: true},
	TAIR:    {Cress: true},
	EcoCyc:  {EColi: true, 511145: true},
	WormBase: {
		Nematode: true, 6238: true, 31234: true, 135651: true,
		860376: true, 54126: true, 6289: true, 6305: true,
		6306: true, 6279: true,
	},
	Xenbase: {WesternFrog: true, AfricanFrog: true},
}

// Allows reports whether the namespace may describe the given species.
// Open namespaces allow every species.
func Allows(ns string, speciesID int) bool {
	space, restricted := SpeciesSpaces[ns]
	if !restricted {
		return true
	}
	return space[speciesID]
}

// Resource is one downloadable file published by a repository.
type Resource struct {
	// Path is appended to the repository URL to form the download link.
	Path string

	// Filename is the local name the download is stored under.
	Filename string

	// Encoding is the character encoding of the remote file, empty for
	// binary downloads taken verbatim.
	Encoding string
}

// Repository describes one downloadable source of nomenclature data.
type Repository struct {
	URL         string
	Resources   []Resource
	Description string
}

// Repositories catalogs the source dumps the fetch command can retrieve.
var Repositories = map[string]Repository{
	"taxa": {
		URL:         "https://ftp.ncbi.nih.gov/pub/taxonomy/",
		Resources:   []Resource{{Path: "taxdump.tar.gz", Filename: "taxdump.tar.gz"}},
		Description: "NCBI Taxonomy database dump (nodes.dmp, names.dmp)",
	},
	"entrez": {
		URL:         "https://ftp.ncbi.nih.gov/gene/DATA/",
		Resources:   []Resource{{Path: "gene_info.gz", Filename: "gene_info.gz"}},
		Description: "NCBI Entrez Gene gene_info file",
	},
	"uniprot": {
		URL: "https://ftp.uniprot.org/pub/databases/uniprot/current_release/knowledgebase/complete/",
		Resources: []Resource{
			{Path: "uniprot_sprot.dat.gz", Filename: "uniprot_sprot.dat.gz"},
			{Path: "uniprot_trembl.dat.gz", Filename: "uniprot_trembl.dat.gz"},
		},
		Description: "UniProtKB TrEMBL/Swiss-Prot text files",
	},
	"hgnc": {
		URL: "https://www.genenames.org/cgi-bin/download/custom?",
		Resources: []Resource{{
			Path: "col=gd_hgnc_id&col=gd_app_sym&col=gd_app_name&col=gd_prev_sym" +
				"&col=gd_prev_name&col=gd_aliases&col=gd_name_aliases&col=gd_pub_chrom_map" +
				"&col=gd_pubmed_ids&col=gd_gene_fam_name&col=gd_gene_fam_pagename" +
				"&col=gd_pub_eg_id&col=gd_pub_ensembl_id&col=gd_mgd_id&col=md_prot_id" +
				"&col=md_rgd_id&status=Approved&format=text&submit=submit",
			Filename: "hgnc.csv",
			Encoding: "ISO-8859-1",
		}},
		Description: "Human Genome Nomenclature Consortium (genenames.org)",
	},
}
