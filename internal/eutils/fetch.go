package eutils

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// FetchRaw retrieves the EFetch XML document for a single PMID.
// The body is returned undecoded; projecting it into a record is the
// caller's concern.
func (c *Client) FetchRaw(ctx context.Context, pmid string) ([]byte, error) {
	pmid = strings.TrimSpace(pmid)
	if pmid == "" {
		return nil, fmt.Errorf("PMID is required")
	}

	params := url.Values{}
	params.Set("db", "pubmed")
	params.Set("id", pmid)
	params.Set("retmode", "xml")

	body, err := c.doGet(ctx, EndpointFetch, params)
	if err != nil {
		return nil, fmt.Errorf("fetch request for PMID %s failed: %w", pmid, err)
	}
	return body, nil
}
