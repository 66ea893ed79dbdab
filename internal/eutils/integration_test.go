//go:build integration

package eutils

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"
)

func integrationClient(t *testing.T) *Client {
	t.Helper()
	opts := []Option{}
	if apiKey := os.Getenv("NCBI_API_KEY"); apiKey != "" {
		opts = append(opts, WithAPIKey(apiKey))
	}
	return NewClient(opts...)
}

func TestIntegration_DigestSearch(t *testing.T) {
	c := integrationClient(t)
	end := time.Now()
	q := DigestQuery(DefaultFilter, end.AddDate(0, 0, -7), end, true)
	ids, err := c.Search(context.Background(), q, &SearchOptions{Limit: 5})
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(ids) == 0 {
		t.Error("expected at least one PMID for the past week")
	}
	t.Logf("query %s returned %v", q, ids)
}

func TestIntegration_FetchRaw(t *testing.T) {
	c := integrationClient(t)
	time.Sleep(DefaultInterval)

	// A long-lived, stable PMID.
	body, err := c.FetchRaw(context.Background(), "1709163")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if !strings.Contains(string(body), "<PMID") {
		t.Errorf("expected PubmedArticle XML, got %d bytes", len(body))
	}
}
