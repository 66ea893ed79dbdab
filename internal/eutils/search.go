package eutils

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultFilter is the topical filter of the digest: an OR over abstract terms.
const DefaultFilter = `"cancer"[Abstract] OR "tumor"[Abstract] OR "diabetes"[Abstract]`

// searchDateLayout is the date format PubMed expects in [Date - Publication] ranges.
const searchDateLayout = "2006/01/02"

// SearchOptions configures an ESearch request.
type SearchOptions struct {
	// Limit is sent as retmax. Zero leaves the NCBI default (20).
	Limit int
}

type eSearchResult struct {
	XMLName xml.Name `xml:"eSearchResult"`
	Count   int      `xml:"Count"`
	IDList  struct {
		IDs []string `xml:"Id"`
	} `xml:"IdList"`
}

// Search runs an ESearch query against PubMed and returns the matching PMIDs
// in the order NCBI lists them.
func (c *Client) Search(ctx context.Context, term string, opts *SearchOptions) ([]string, error) {
	if strings.TrimSpace(term) == "" {
		return nil, fmt.Errorf("search term cannot be empty")
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("term", term)
	params.Set("usehistory", "n")
	params.Set("datetype", "pdat")
	if opts != nil && opts.Limit > 0 {
		params.Set("retmax", strconv.Itoa(opts.Limit))
	}

	body, err := c.doGet(ctx, EndpointSearch, params)
	if err != nil {
		return nil, fmt.Errorf("search request failed: %w", err)
	}

	return parseSearch(body)
}

func parseSearch(data []byte) ([]string, error) {
	var res eSearchResult
	if err := xml.Unmarshal(data, &res); err != nil {
		return nil, &ParseError{Endpoint: EndpointSearch, Err: err}
	}

	ids := make([]string, 0, len(res.IDList.IDs))
	for _, id := range res.IDList.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// DigestQuery builds the ESearch term restricting filter to publications
// between start and end.
//
// With grouped false the term is assembled exactly as the digest has always
// sent it: the leading parenthesis is never closed, so PubMed binds the date
// range to the last OR disjunct only. grouped true parenthesises the filter
// so the range applies to all of it.
func DigestQuery(filter string, start, end time.Time, grouped bool) string {
	dates := fmt.Sprintf(`("%s"[Date - Publication] : "%s"[Date - Publication])`,
		start.Format(searchDateLayout), end.Format(searchDateLayout))
	if grouped {
		return fmt.Sprintf("(%s) AND %s", filter, dates)
	}
	return fmt.Sprintf("(%s AND %s", filter, dates)
}
