// Package brave provides a client for the Brave Search API.
package brave

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the Brave web search operations.
type Client interface {
	// Search performs a web search and returns ranked results.
	Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error)
}

// SearchResponse is the parsed Brave Search API response.
type SearchResponse struct {
	Web WebResults `json:"web"`
}

// WebResults holds the web result list.
type WebResults struct {
	Results []SearchResult `json:"results"`
}

// SearchResult represents a single web search result.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// SearchOption configures a search request.
type SearchOption func(*searchOpts)

type searchOpts struct {
	count      int
	siteFilter string
}

// WithCount caps the number of results returned.
func WithCount(n int) SearchOption {
	return func(o *searchOpts) {
		o.count = n
	}
}

// WithSiteFilter restricts results to a specific domain via a site: operator.
func WithSiteFilter(domain string) SearchOption {
	return func(o *searchOpts) {
		o.siteFilter = domain
	}
}

// Option configures the Brave client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new Brave Search client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://api.search.brave.com/res/v1",
		http: &http.Client{
			Timeout: 20 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// retryDo executes an HTTP request, retrying 429 with exponential backoff
// (1s doubling) and 5xx with a short linear backoff, up to three attempts
// each. Other non-2xx statuses are returned to the caller without retry.
func (c *httpClient) retryDo(ctx context.Context, req *http.Request) ([]byte, int, error) {
	const maxAttempts = 3

	expBackoff := 1 * time.Second
	linBackoff := 500 * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		retryReq := req.Clone(ctx)

		resp, err := c.http.Do(retryReq)
		if err != nil {
			lastErr = err
			if attempt < maxAttempts {
				if slept := sleepCtx(ctx, linBackoff); !slept {
					return nil, 0, ctx.Err()
				}
				continue
			}
			return nil, 0, lastErr
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			return nil, resp.StatusCode, eris.Wrap(readErr, "brave: read response body")
		}

		if resp.StatusCode == http.StatusTooManyRequests && attempt < maxAttempts {
			lastErr = eris.Errorf("brave: status 429: %s", string(body))
			if slept := sleepCtx(ctx, expBackoff); !slept {
				return nil, 0, ctx.Err()
			}
			expBackoff *= 2
			continue
		}

		if resp.StatusCode >= 500 && attempt < maxAttempts {
			lastErr = eris.Errorf("brave: status %d: %s", resp.StatusCode, string(body))
			if slept := sleepCtx(ctx, linBackoff); !slept {
				return nil, 0, ctx.Err()
			}
			continue
		}

		return body, resp.StatusCode, nil
	}

	return nil, 0, lastErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (c *httpClient) Search(ctx context.Context, query string, opts ...SearchOption) (*SearchResponse, error) {
	so := &searchOpts{count: 10}
	for _, opt := range opts {
		opt(so)
	}

	q := query
	if so.siteFilter != "" {
		q = fmt.Sprintf("site:%s %s", so.siteFilter, query)
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("count", strconv.Itoa(so.count))

	reqURL := c.baseURL + "/web/search?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "brave: create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", c.apiKey)

	body, statusCode, err := c.retryDo(ctx, req)
	if err != nil {
		return nil, eris.Wrap(err, "brave: search request failed")
	}

	if statusCode != http.StatusOK {
		return nil, eris.Errorf("brave: unexpected status %d: %s", statusCode, string(body))
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "brave: unmarshal response")
	}

	return &result, nil
}
