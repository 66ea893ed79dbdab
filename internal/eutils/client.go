// Package eutils provides a client for the NCBI E-utilities API.
package eutils

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the NCBI E-utilities base URL.
	DefaultBaseURL = "https://eutils.ncbi.nlm.nih.gov/entrez/eutils"
	// DefaultTool identifies this application to NCBI.
	DefaultTool = "pubmed-digest"
	// DefaultEmail is the contact email sent to NCBI.
	DefaultEmail = "pubmed-digest@users.noreply.github.com"
	// DefaultTimeout bounds every E-utilities request.
	DefaultTimeout = 30 * time.Second
)

// Endpoints used by the digest.
const (
	EndpointSearch = "esearch.fcgi"
	EndpointFetch  = "efetch.fcgi"
)

// RequestObserver is notified after every completed HTTP exchange.
// code is 0 when no response was received.
type RequestObserver func(endpoint string, code int, elapsed time.Duration)

// Client is an HTTP client for NCBI E-utilities.
type Client struct {
	baseURL    string
	apiKey     string
	tool       string
	email      string
	httpClient *http.Client
	timeout    time.Duration
	observe    RequestObserver
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the base URL for E-utilities requests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = url }
}

// WithAPIKey sets the NCBI API key.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithTool sets the tool parameter for NCBI requests.
func WithTool(tool string) Option {
	return func(c *Client) { c.tool = tool }
}

// WithEmail sets the email parameter for NCBI requests.
func WithEmail(email string) Option {
	return func(c *Client) { c.email = email }
}

// WithHTTPClient sets a custom HTTP client. It is used as given; WithTimeout
// does not modify it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
// Non-positive values keep DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRequestObserver registers a callback invoked after each request.
func WithRequestObserver(fn RequestObserver) Option {
	return func(c *Client) { c.observe = fn }
}

// NewClient creates a new E-utilities client with the given options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		tool:    DefaultTool,
		email:   DefaultEmail,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: c.timeout}
	}
	return c
}

// doGet performs a GET request and returns the response body.
// Non-200 responses are returned as *StatusError.
func (c *Client) doGet(ctx context.Context, endpoint string, params url.Values) ([]byte, error) {
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	if c.tool != "" {
		params.Set("tool", c.tool)
	}
	if c.email != "" {
		params.Set("email", c.email)
	}

	fullURL := fmt.Sprintf("%s/%s?%s", c.baseURL, endpoint, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.report(endpoint, 0, start)
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	c.report(endpoint, resp.StatusCode, start)

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, &StatusError{Endpoint: endpoint, Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	return body, nil
}

func (c *Client) report(endpoint string, code int, start time.Time) {
	if c.observe != nil {
		c.observe(endpoint, code, time.Since(start))
	}
}
