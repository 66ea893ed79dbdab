// Package digest projects PubMed EFetch documents into flat article records.
package digest

import "fmt"

// NotAvailable marks a date part or journal that PubMed did not provide.
const NotAvailable = "N/A"

// Columns is the fixed CSV column order of an article record.
var Columns = []string{
	"pmid",
	"pmcid",
	"doi",
	"pmid_url",
	"title",
	"abstract",
	"pubdate",
	"online_pub",
	"journal",
	"authors",
	"research_institute",
	"keywords",
	"publication_type",
	"url",
}

// Optional is a string value that may be absent.
type Optional struct {
	value string
	set   bool
}

// Some returns a present Optional holding v.
func Some(v string) Optional { return Optional{value: v, set: true} }

// None returns an absent Optional.
func None() Optional { return Optional{} }

// Get returns the value and whether it is present.
func (o Optional) Get() (string, bool) { return o.value, o.set }

// OrEmpty returns the value, or "" when absent.
func (o Optional) OrEmpty() string { return o.value }

// Record is one retained PubMed article.
type Record struct {
	PMID              string
	PMCID             Optional
	DOI               Optional
	Title             string
	Abstract          string
	PubDate           string
	OnlinePub         string
	Journal           string
	Authors           string
	ResearchInstitute Optional
	Keywords          string
	PublicationType   string
	URL               string
	PMIDURL           string
}

// Row returns the record's cells in Columns order. Absent values are empty.
func (r Record) Row() []string {
	return []string{
		r.PMID,
		r.PMCID.OrEmpty(),
		r.DOI.OrEmpty(),
		r.PMIDURL,
		r.Title,
		r.Abstract,
		r.PubDate,
		r.OnlinePub,
		r.Journal,
		r.Authors,
		r.ResearchInstitute.OrEmpty(),
		r.Keywords,
		r.PublicationType,
		r.URL,
	}
}

// PMCURL is the full-text mirror location for a PMC identifier.
func PMCURL(pmcid string) string {
	return fmt.Sprintf("https://www.ncbi.nlm.nih.gov/pmc/articles/%s/", pmcid)
}

// PubMedURL is the canonical landing page for a PMID.
func PubMedURL(pmid string) string {
	return fmt.Sprintf("https://pubmed.ncbi.nlm.nih.gov/%s/", pmid)
}
