package eutils

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchRaw_Params(t *testing.T) {
	fixture := loadTestdata(t, "efetch_article.xml")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/"+EndpointFetch {
			t.Errorf("expected path /%s, got %q", EndpointFetch, r.URL.Path)
		}
		q := r.URL.Query()
		if got := q.Get("db"); got != "pubmed" {
			t.Errorf("expected db=pubmed, got %q", got)
		}
		if got := q.Get("id"); got != "38000111" {
			t.Errorf("expected id=38000111, got %q", got)
		}
		if got := q.Get("retmode"); got != "xml" {
			t.Errorf("expected retmode=xml, got %q", got)
		}
		w.Write(fixture)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	body, err := c.FetchRaw(context.Background(), " 38000111 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(body, fixture) {
		t.Error("expected body to be returned unchanged")
	}
}

func TestFetchRaw_EmptyPMID(t *testing.T) {
	c := NewClient(WithBaseURL("http://unused"))
	if _, err := c.FetchRaw(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty PMID, got nil")
	}
}

func TestFetchRaw_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL))
	_, err := c.FetchRaw(context.Background(), "42")
	if err == nil {
		t.Fatal("expected error for 502 response, got nil")
	}
	if !IsStatus(err) {
		t.Errorf("expected a status error, got %v", err)
	}
	if !strings.Contains(err.Error(), "PMID 42") {
		t.Errorf("expected error to name the PMID, got %q", err)
	}
}

func TestFetchRaw_TransportError(t *testing.T) {
	c := NewClient(WithBaseURL("http://127.0.0.1:1"))
	_, err := c.FetchRaw(context.Background(), "42")
	if err == nil {
		t.Fatal("expected transport error, got nil")
	}
	if IsStatus(err) {
		t.Errorf("transport error should not be a status error: %v", err)
	}
}
