package research

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lifecycle-cli/internal/model"
	"github.com/sells-group/lifecycle-cli/pkg/brave"
)

func testEnricher(st *memStore, search *fakeSearch, pages *fakePages) *Enricher {
	return NewEnricher(NewCache(st), NewOrchestrator(search, pages, fastConfig()))
}

// vendorSearch wires the canned Cisco bulletin behind the first vendor query
// BuildQueries produces for the test product.
func vendorSearch() (*fakeSearch, *fakePages) {
	queries := BuildQueries(testProduct)
	search := &fakeSearch{results: map[string][]brave.SearchResult{
		queries[0].Text: {{URL: "https://www.cisco.com/eos.html"}},
	}}
	pages := &fakePages{pages: map[string]string{
		"https://www.cisco.com/eos.html": ciscoBulletin,
	}}
	return search, pages
}

func TestEnrichResearchesAndCaches(t *testing.T) {
	st := newMemStore()
	search, pages := vendorSearch()
	e := testEnricher(st, search, pages)

	ep, err := e.Enrich(context.Background(), testProduct)
	require.NoError(t, err)

	assert.Equal(t, model.NewDate(2016, time.January, 31), ep.Result.Dates.EndOfSale)
	assert.False(t, ep.Result.FromCache)
	assert.Empty(t, ep.OrderingViolations)

	// Estimation filled the gap fields from the end-of-sale anchor.
	require.NotNil(t, ep.Estimation)
	assert.Equal(t, model.FieldEndOfSale, ep.Estimation.BasisField)
	assert.True(t, ep.Estimation.VendorSpecific)
	assert.Equal(t, []model.Field{
		model.FieldEndOfSwMaintenance,
		model.FieldEndOfSecVulSupport,
	}, ep.Estimation.EstimatedFields)
	assert.Equal(t, 4, ep.Result.Dates.CountKnown())

	// The result was persisted.
	_, ok := st.entries["cisco|WS-C3850-48P"]
	assert.True(t, ok)
}

func TestEnrichServesFromCache(t *testing.T) {
	st := newMemStore()
	now := time.Now()
	seedEntry(st, now.AddDate(0, 0, -30), 70)

	search := &fakeSearch{}
	e := testEnricher(st, search, &fakePages{})

	ep, err := e.Enrich(context.Background(), testProduct)
	require.NoError(t, err)

	assert.True(t, ep.Result.FromCache)
	assert.Equal(t, 0, search.callCount(), "fresh cache hit must not search")
}

func TestEnrichNoCacheOptionBypassesCache(t *testing.T) {
	st := newMemStore()
	seedEntry(st, time.Now().AddDate(0, 0, -30), 70)

	search, pages := vendorSearch()
	e := testEnricher(st, search, pages)

	ep, err := e.EnrichWithOptions(context.Background(), testProduct, Options{UseCache: false})
	require.NoError(t, err)

	assert.False(t, ep.Result.FromCache)
	assert.Greater(t, search.callCount(), 0)
}

func TestEnrichCacheFaultDegradesToResearch(t *testing.T) {
	st := newMemStore()
	st.getErr = assert.AnError

	search, pages := vendorSearch()
	e := testEnricher(st, search, pages)

	ep, err := e.Enrich(context.Background(), testProduct)
	require.NoError(t, err)
	assert.Equal(t, model.NewDate(2016, time.January, 31), ep.Result.Dates.EndOfSale)
}

func TestEnrichCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := testEnricher(newMemStore(), &fakeSearch{}, &fakePages{})
	_, err := e.Enrich(ctx, testProduct)
	assert.Error(t, err)
}

func TestEnrichAllIsolatesFailures(t *testing.T) {
	// A canceled context fails each product individually; every product
	// still gets a row in the output.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := testEnricher(newMemStore(), &fakeSearch{}, &fakePages{})
	products := []model.Product{
		testProduct,
		{Manufacturer: "HPE", Identifier: "JL256A"},
	}

	results := e.EnrichAll(ctx, products, Options{UseCache: true})
	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, products[i], r.Product)
		assert.Equal(t, 0, r.Result.Confidence.Overall)
	}
}

func TestEnrichAllOrderPreserved(t *testing.T) {
	st := newMemStore()
	search := &fakeSearch{}
	e := testEnricher(st, search, &fakePages{})

	products := []model.Product{
		{Manufacturer: "A", Identifier: "AAA-1"},
		{Manufacturer: "B", Identifier: "BBB-2"},
		{Manufacturer: "C", Identifier: "CCC-3"},
	}

	results := e.EnrichAll(context.Background(), products, Options{UseCache: true})
	require.Len(t, results, 3)
	for i, r := range results {
		assert.Equal(t, products[i].Identifier, r.Product.Identifier)
	}
}

func TestPreflight(t *testing.T) {
	st := newMemStore()
	now := time.Now()
	seedEntry(st, now.AddDate(0, 0, -30), 70)

	e := testEnricher(st, &fakeSearch{}, &fakePages{})

	statuses, err := e.Preflight(context.Background(), []model.Product{testProduct})
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[testProduct.CacheKey()].Fresh)
}

func TestPreflightNilCache(t *testing.T) {
	e := NewEnricher(nil, NewOrchestrator(&fakeSearch{}, &fakePages{}, fastConfig()))

	statuses, err := e.Preflight(context.Background(), []model.Product{testProduct})
	require.NoError(t, err)
	assert.Empty(t, statuses)
}
