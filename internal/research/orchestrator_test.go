package research

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lifecycle-cli/internal/model"
	"github.com/sells-group/lifecycle-cli/pkg/brave"
)

// fakeSearch returns canned results keyed by query text.
type fakeSearch struct {
	mu      sync.Mutex
	results map[string][]brave.SearchResult
	errs    map[string]error
	calls   []string
}

func (f *fakeSearch) Search(_ context.Context, query string, _ ...brave.SearchOption) (*brave.SearchResponse, error) {
	f.mu.Lock()
	f.calls = append(f.calls, query)
	f.mu.Unlock()

	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return &brave.SearchResponse{Web: brave.WebResults{Results: f.results[query]}}, nil
}

func (f *fakeSearch) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// fakePages serves canned page text by URL.
type fakePages struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func (f *fakePages) Fetch(_ context.Context, url string) (string, bool) {
	f.mu.Lock()
	f.fetched = append(f.fetched, url)
	f.mu.Unlock()

	text, ok := f.pages[url]
	return text, ok
}

func (f *fakePages) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

const ciscoBulletin = `End-of-Sale Announcement for the WS-C3850-48P.
The end-of-sale date is 31-Jan-2016. The last date of support is 31-Jan-2021.`

const thirdPartyPage = `Lifecycle tracker entry for WS-C3850-48P.
End-of-sale date: 30-Jun-2016.`

func fastConfig() OrchestratorConfig {
	return OrchestratorConfig{
		BatchSize:       3,
		PerQueryTimeout: 5 * time.Second,
		BatchInterval:   0, // no rate limiting in tests
		ResultCap:       5,
	}
}

func TestRunCollectsVendorEvidence(t *testing.T) {
	search := &fakeSearch{results: map[string][]brave.SearchResult{
		"q1": {{Title: "EOS", URL: "https://www.cisco.com/eos.html"}},
	}}
	pages := &fakePages{pages: map[string]string{
		"https://www.cisco.com/eos.html": ciscoBulletin,
	}}

	o := NewOrchestrator(search, pages, fastConfig())
	result := o.Run(context.Background(), []Query{{Text: "q1"}}, testProduct)

	assert.Equal(t, model.NewDate(2016, time.January, 31), result.Dates.EndOfSale)
	assert.Equal(t, model.NewDate(2021, time.January, 31), result.Dates.LastDayOfSupport)
	assert.Equal(t, 2, result.SourceCounts.VendorSite)
	assert.False(t, result.IsCurrentProduct)
	assert.Greater(t, result.Confidence.Overall, 0)

	for _, e := range result.Evidence {
		assert.Equal(t, model.SourceVendorSite, e.SourceClass)
		assert.Equal(t, "https://www.cisco.com/eos.html", e.SourceURL)
	}
}

func TestRunVendorDisplacesThirdParty(t *testing.T) {
	// Third-party evidence arrives in an earlier batch; the vendor page in a
	// later batch still wins the end-of-sale field.
	search := &fakeSearch{results: map[string][]brave.SearchResult{
		"q1": {{URL: "https://www.hpe.com/tracker.html"}},
		"q2": {{URL: "https://www.cisco.com/eos.html"}},
	}}
	pages := &fakePages{pages: map[string]string{
		"https://www.hpe.com/tracker.html": thirdPartyPage,
		"https://www.cisco.com/eos.html":   ciscoBulletin,
	}}

	cfg := fastConfig()
	cfg.BatchSize = 1
	o := NewOrchestrator(search, pages, cfg)
	result := o.Run(context.Background(), []Query{{Text: "q1"}, {Text: "q2"}}, testProduct)

	assert.Equal(t, model.NewDate(2016, time.January, 31), result.Dates.EndOfSale)
	var eos model.Evidence
	for _, e := range result.Evidence {
		if e.Field == model.FieldEndOfSale {
			eos = e
		}
	}
	assert.Equal(t, model.SourceVendorSite, eos.SourceClass)
}

func TestRunEarlyExit(t *testing.T) {
	// The first query already yields two vendor dates; later queries are
	// skipped at the batch boundary.
	search := &fakeSearch{results: map[string][]brave.SearchResult{
		"q1": {{URL: "https://www.cisco.com/eos.html"}},
		"q2": {{URL: "https://www.cisco.com/other.html"}},
		"q3": {{URL: "https://www.cisco.com/more.html"}},
	}}
	pages := &fakePages{pages: map[string]string{
		"https://www.cisco.com/eos.html": ciscoBulletin,
	}}

	cfg := fastConfig()
	cfg.BatchSize = 1
	o := NewOrchestrator(search, pages, cfg)
	result := o.Run(context.Background(),
		[]Query{{Text: "q1"}, {Text: "q2"}, {Text: "q3"}}, testProduct)

	assert.Equal(t, 2, result.Dates.CountKnown())
	assert.Equal(t, 1, search.callCount())
}

func TestRunNoEarlyExitWithoutVendorEvidence(t *testing.T) {
	// Two third-party dates alone do not trigger the early exit.
	search := &fakeSearch{results: map[string][]brave.SearchResult{
		"q1": {{URL: "https://www.hpe.com/a.html"}},
		"q2": {{URL: "https://www.hpe.com/b.html"}},
	}}
	pages := &fakePages{pages: map[string]string{
		"https://www.hpe.com/a.html": ciscoBulletin,
	}}

	cfg := fastConfig()
	cfg.BatchSize = 1
	o := NewOrchestrator(search, pages, cfg)
	o.Run(context.Background(), []Query{{Text: "q1"}, {Text: "q2"}}, testProduct)

	assert.Equal(t, 2, search.callCount())
}

func TestRunQueryFailureIsolated(t *testing.T) {
	search := &fakeSearch{
		results: map[string][]brave.SearchResult{
			"q2": {{URL: "https://www.cisco.com/eos.html"}},
		},
		errs: map[string]error{"q1": eris.New("search unavailable")},
	}
	pages := &fakePages{pages: map[string]string{
		"https://www.cisco.com/eos.html": ciscoBulletin,
	}}

	o := NewOrchestrator(search, pages, fastConfig())
	result := o.Run(context.Background(), []Query{{Text: "q1"}, {Text: "q2"}}, testProduct)

	assert.Equal(t, 2, result.Dates.CountKnown())
}

func TestRunSkipsUnauthorizedURLs(t *testing.T) {
	search := &fakeSearch{results: map[string][]brave.SearchResult{
		"q1": {
			{URL: "https://example.com/forum.html"},
			{URL: "https://www.cisco.com/eos.html"},
		},
	}}
	pages := &fakePages{pages: map[string]string{
		"https://www.cisco.com/eos.html": ciscoBulletin,
	}}

	o := NewOrchestrator(search, pages, fastConfig())
	o.Run(context.Background(), []Query{{Text: "q1"}}, testProduct)

	assert.Equal(t, []string{"https://www.cisco.com/eos.html"}, pages.fetched)
}

func TestRunDedupsURLsAcrossQueries(t *testing.T) {
	search := &fakeSearch{results: map[string][]brave.SearchResult{
		"q1": {{URL: "https://www.hpe.com/a.html"}},
		"q2": {{URL: "https://www.hpe.com/a.html"}},
	}}
	pages := &fakePages{pages: map[string]string{
		"https://www.hpe.com/a.html": thirdPartyPage,
	}}

	cfg := fastConfig()
	cfg.BatchSize = 1
	o := NewOrchestrator(search, pages, cfg)
	o.Run(context.Background(), []Query{{Text: "q1"}, {Text: "q2"}}, testProduct)

	assert.Equal(t, 1, pages.fetchCount())
}

func TestRunZeroEvidence(t *testing.T) {
	search := &fakeSearch{results: map[string][]brave.SearchResult{}}
	pages := &fakePages{}

	o := NewOrchestrator(search, pages, fastConfig())
	result := o.Run(context.Background(), []Query{{Text: "q1"}}, testProduct)

	assert.True(t, result.IsCurrentProduct)
	assert.Equal(t, 100, result.Confidence.Overall)
	assert.Equal(t, 0, result.Dates.CountKnown())
}

func TestRunRejectsUnverifiedPages(t *testing.T) {
	page := `End-of-life notice. The dates below are not applicable to WS-C3850-48P.
The end-of-sale date is 31-Jan-2016.`
	search := &fakeSearch{results: map[string][]brave.SearchResult{
		"q1": {{URL: "https://www.cisco.com/notice.html"}},
	}}
	pages := &fakePages{pages: map[string]string{
		"https://www.cisco.com/notice.html": page,
	}}

	o := NewOrchestrator(search, pages, fastConfig())
	result := o.Run(context.Background(), []Query{{Text: "q1"}}, testProduct)

	require.Equal(t, 0, result.Dates.CountKnown())
	assert.True(t, result.IsCurrentProduct)
}
