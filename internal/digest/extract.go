package digest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"regexp"
	"strings"
)

// xmlTagRe matches XML/HTML tags for stripping from innerxml content.
var xmlTagRe = regexp.MustCompile(`<[^>]+>`)

// ExcludedTypes lists the lowercase publication types that drop an article.
var ExcludedTypes = []string{"review", "published erratum", "retraction of publication"}

// XML structures for parsing PubMed EFetch responses. Elements whose
// absence matters are pointers; a nil pointer means the element was missing.

type pubmedArticleSet struct {
	XMLName  xml.Name        `xml:"PubmedArticleSet"`
	Articles []pubmedArticle `xml:"PubmedArticle"`
}

type pubmedArticle struct {
	Citation   medlineCitation `xml:"MedlineCitation"`
	PubmedData pubmedData      `xml:"PubmedData"`
}

type medlineCitation struct {
	PMID         string           `xml:"PMID"`
	Article      xmlArticle       `xml:"Article"`
	KeywordLists []xmlKeywordList `xml:"KeywordList"`
}

type xmlArticle struct {
	Journal             xmlJournal             `xml:"Journal"`
	ArticleTitle        *xmlInnerContent       `xml:"ArticleTitle"`
	Abstract            xmlAbstract            `xml:"Abstract"`
	AuthorList          xmlAuthorList          `xml:"AuthorList"`
	PublicationTypeList xmlPublicationTypeList `xml:"PublicationTypeList"`
	ArticleDates        []xmlDate              `xml:"ArticleDate"`
}

type xmlJournal struct {
	JournalIssue xmlJournalIssue `xml:"JournalIssue"`
	Title        *string         `xml:"Title"`
}

type xmlJournalIssue struct {
	PubDate *xmlDate `xml:"PubDate"`
}

type xmlDate struct {
	DateType string  `xml:"DateType,attr"`
	Year     *string `xml:"Year"`
	Month    *string `xml:"Month"`
	Day      *string `xml:"Day"`
}

// xmlInnerContent captures innerxml to preserve text within nested tags
// like <i>, <sup>, <sub>, <b> that occur in ArticleTitle and AbstractText.
type xmlInnerContent struct {
	Inner string `xml:",innerxml"`
}

type xmlAbstract struct {
	AbstractTexts []xmlInnerContent `xml:"AbstractText"`
}

type xmlAuthorList struct {
	Authors []xmlAuthor `xml:"Author"`
}

type xmlAuthor struct {
	LastName        *string              `xml:"LastName"`
	ForeName        *string              `xml:"ForeName"`
	AffiliationInfo []xmlAffiliationInfo `xml:"AffiliationInfo"`
}

type xmlAffiliationInfo struct {
	Affiliation string `xml:"Affiliation"`
}

type xmlPublicationTypeList struct {
	Types []string `xml:"PublicationType"`
}

type xmlKeywordList struct {
	Keywords []xmlInnerContent `xml:"Keyword"`
}

type pubmedData struct {
	ArticleIDList xmlArticleIDList `xml:"ArticleIdList"`
}

type xmlArticleIDList struct {
	ArticleIDs []xmlArticleID `xml:"ArticleId"`
}

type xmlArticleID struct {
	IDType string `xml:"IdType,attr"`
	Value  string `xml:",chardata"`
}

// Extract parses an EFetch document for pmid and projects it into a Record.
// Any reason the document yields no record is returned as a *SkipError.
func Extract(pmid string, data []byte) (Record, error) {
	var set pubmedArticleSet
	if err := xml.Unmarshal(data, &set); err != nil {
		return Record{}, &SkipError{PMID: pmid, Reason: ReasonMalformed, Err: err}
	}

	pa, ok := selectArticle(pmid, set.Articles)
	if !ok {
		return Record{}, &SkipError{PMID: pmid, Reason: ReasonNoArticle}
	}

	return convertArticle(pmid, pa)
}

// selectArticle picks the article whose PMID matches, else the first one.
func selectArticle(pmid string, articles []pubmedArticle) (pubmedArticle, bool) {
	if len(articles) == 0 {
		return pubmedArticle{}, false
	}
	for _, pa := range articles {
		if strings.TrimSpace(pa.Citation.PMID) == pmid {
			return pa, true
		}
	}
	return articles[0], true
}

func convertArticle(pmid string, pa pubmedArticle) (Record, error) {
	xa := pa.Citation.Article
	ids := pa.PubmedData.ArticleIDList

	pmcid := articleID(ids, "pmc")

	// Exclusion runs before any other field is assembled.
	types := publicationTypes(xa.PublicationTypeList)
	if t, excluded := excludedType(types); excluded {
		return Record{}, &SkipError{PMID: pmid, Reason: ReasonExcluded, Detail: t}
	}

	if xa.ArticleTitle == nil {
		return Record{}, &SkipError{PMID: pmid, Reason: ReasonMalformed, Err: errors.New("missing ArticleTitle")}
	}

	pubdate := printDate(xa.Journal.JournalIssue.PubDate)
	online, ok := electronicDate(xa.ArticleDates)
	if !ok {
		online = pubdate
	}

	r := Record{
		PMID:              pmid,
		PMCID:             pmcid,
		DOI:               articleID(ids, "doi"),
		Title:             cleanInnerXML(xa.ArticleTitle.Inner),
		Abstract:          abstractText(xa.Abstract),
		PubDate:           pubdate,
		OnlinePub:         online,
		Journal:           journalTitle(xa.Journal),
		Authors:           authorNames(xa.AuthorList),
		ResearchInstitute: affiliations(xa.AuthorList),
		Keywords:          keywords(pa.Citation.KeywordLists),
		PublicationType:   strings.Join(types, "; "),
		PMIDURL:           PubMedURL(pmid),
	}
	if v, ok := pmcid.Get(); ok {
		r.URL = PMCURL(v)
	}
	return r, nil
}

// cleanInnerXML strips XML tags and decodes HTML entities from innerxml content.
func cleanInnerXML(s string) string {
	stripped := xmlTagRe.ReplaceAllString(s, "")
	return strings.TrimSpace(html.UnescapeString(stripped))
}

// text returns the trimmed value of an optional element.
func text(s *string) (string, bool) {
	if s == nil {
		return "", false
	}
	v := strings.TrimSpace(*s)
	return v, v != ""
}

func orNA(s *string) string {
	if v, ok := text(s); ok {
		return v
	}
	return NotAvailable
}

func articleID(list xmlArticleIDList, idType string) Optional {
	for _, aid := range list.ArticleIDs {
		if aid.IDType == idType {
			if v := strings.TrimSpace(aid.Value); v != "" {
				return Some(v)
			}
		}
	}
	return None()
}

func publicationTypes(list xmlPublicationTypeList) []string {
	types := make([]string, 0, len(list.Types))
	for _, pt := range list.Types {
		types = append(types, strings.ToLower(strings.TrimSpace(pt)))
	}
	return types
}

func excludedType(types []string) (string, bool) {
	for _, t := range types {
		for _, ex := range ExcludedTypes {
			if t == ex {
				return t, true
			}
		}
	}
	return "", false
}

func abstractText(abs xmlAbstract) string {
	parts := make([]string, 0, len(abs.AbstractTexts))
	for _, at := range abs.AbstractTexts {
		if t := cleanInnerXML(at.Inner); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// printDate formats PubDate as Year-Month-Day, or N/A without a year.
func printDate(d *xmlDate) string {
	if d == nil {
		return NotAvailable
	}
	year, ok := text(d.Year)
	if !ok {
		return NotAvailable
	}
	return fmt.Sprintf("%s-%s-%s", year, orNA(d.Month), orNA(d.Day))
}

// electronicDate formats the first ArticleDate typed Electronic that has a year.
// Every ArticleDate is considered, not only the first one, so a leading date
// of another type or without a year does not hide a usable electronic date.
func electronicDate(dates []xmlDate) (string, bool) {
	for _, d := range dates {
		if d.DateType != "Electronic" {
			continue
		}
		year, ok := text(d.Year)
		if !ok {
			continue
		}
		return fmt.Sprintf("%s-%s-%s", year, orNA(d.Month), orNA(d.Day)), true
	}
	return "", false
}

func journalTitle(j xmlJournal) string {
	return orNA(j.Title)
}

func authorNames(list xmlAuthorList) string {
	names := make([]string, 0, len(list.Authors))
	for _, au := range list.Authors {
		last, okLast := text(au.LastName)
		fore, okFore := text(au.ForeName)
		if !okLast || !okFore {
			continue
		}
		names = append(names, last+", "+fore)
	}
	return strings.Join(names, "; ")
}

// affiliations collects the first affiliation of every author, named or not.
func affiliations(list xmlAuthorList) Optional {
	var affs []string
	for _, au := range list.Authors {
		if len(au.AffiliationInfo) == 0 {
			continue
		}
		if a := strings.TrimSpace(au.AffiliationInfo[0].Affiliation); a != "" {
			affs = append(affs, a)
		}
	}
	if len(affs) == 0 {
		return None()
	}
	return Some(strings.Join(affs, "; "))
}

func keywords(lists []xmlKeywordList) string {
	var kws []string
	for _, l := range lists {
		for _, kw := range l.Keywords {
			if t := cleanInnerXML(kw.Inner); t != "" {
				kws = append(kws, t)
			}
		}
	}
	return strings.Join(kws, "; ")
}
