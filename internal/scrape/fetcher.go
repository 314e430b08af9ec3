// Package scrape fetches lifecycle bulletin pages from authorized vendor
// domains and reduces them to visible text.
package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lifecycle-cli/internal/resilience"
	"github.com/sells-group/lifecycle-cli/internal/vendor"
)

const (
	// maxBodyBytes caps the response body; oversized pages are discarded.
	maxBodyBytes = 1 << 20 // 1 MiB
	defaultTTL   = 24 * time.Hour
	// failureTTL bounds how long a failed fetch is remembered. A transient
	// outage must not poison a URL for the rest of a long-lived process.
	failureTTL = 5 * time.Minute
)

type cachedPage struct {
	text      string
	ok        bool
	fetchedAt time.Time
}

// Fetcher retrieves page text for authorized domains only, caching by URL
// for the duration of a run. The cache is append-only within a run; entries
// expire after the TTL so long-lived processes refetch eventually. Failed
// fetches are remembered only briefly.
type Fetcher struct {
	client *http.Client
	ttl    time.Duration

	mu    sync.Mutex
	cache map[string]cachedPage
}

// NewFetcher creates a Fetcher with a short per-request timeout and a
// 24-hour page cache.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		},
		ttl:   defaultTTL,
		cache: make(map[string]cachedPage),
	}
}

// WithTTL overrides the page cache TTL.
func (f *Fetcher) WithTTL(ttl time.Duration) *Fetcher {
	f.ttl = ttl
	return f
}

// WithHTTPClient overrides the HTTP client (for testing).
func (f *Fetcher) WithHTTPClient(hc *http.Client) *Fetcher {
	f.client = hc
	return f
}

// Fetch returns the visible text of the page at url, or ("", false) when the
// URL is outside every vendor's authorized domain set or the fetch fails.
// Failures are logged, never returned as errors: a missing page is
// non-authoritative content, not a pipeline fault.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, bool) {
	if !vendor.AuthorizedURL(url) {
		zap.L().Debug("scrape: url outside authorized domains", zap.String("url", url))
		return "", false
	}

	f.mu.Lock()
	if entry, ok := f.cache[url]; ok && time.Since(entry.fetchedAt) < f.entryTTL(entry) {
		f.mu.Unlock()
		return entry.text, entry.ok
	}
	f.mu.Unlock()

	text, ok := f.fetch(ctx, url)

	f.mu.Lock()
	f.cache[url] = cachedPage{text: text, ok: ok, fetchedAt: time.Now()}
	f.mu.Unlock()

	return text, ok
}

// entryTTL returns how long a cache entry stays valid: the configured TTL for
// successful fetches, failureTTL for failures.
func (f *Fetcher) entryTTL(entry cachedPage) time.Duration {
	if entry.ok {
		return f.ttl
	}
	ttl := f.ttl
	if failureTTL < ttl {
		ttl = failureTTL
	}
	return ttl
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, bool) {
	retryCfg := resilience.RetryConfig{
		MaxAttempts:    2,
		InitialBackoff: 300 * time.Millisecond,
		OnRetry:        resilience.RetryLogger("scrape", "fetch"),
	}

	body, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) ([]byte, error) {
		return f.get(ctx, url)
	})
	if err != nil {
		zap.L().Warn("scrape: fetch failed", zap.String("url", url), zap.Error(err))
		return "", false
	}

	text := VisibleText(string(body))
	if text == "" {
		return "", false
	}
	return text, true
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; LifecycleBot/1.0)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		return nil, resilience.NewTransientError(
			eris.Errorf("scrape: status %d from %s", resp.StatusCode, url), resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, eris.Errorf("scrape: status %d from %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: read body")
	}
	if len(body) > maxBodyBytes {
		return nil, eris.Errorf("scrape: body exceeds %d byte cap", maxBodyBytes)
	}

	return body, nil
}

// VisibleText reduces HTML to the text a reader would see: scripts, styles,
// nav and footer chrome removed, tags stripped, whitespace collapsed.
func VisibleText(html string) string {
	// Adjacent elements (table cells especially) would otherwise run their
	// text together: <td>EOS date</td><td>31-Jan-2016</td>.
	html = strings.ReplaceAll(html, "><", "> <")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	doc.Find("script, style, noscript, nav, footer, header, iframe").Remove()

	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		// Fragment without a body element.
		text = doc.Text()
	}

	return collapseWhitespace(text)
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
