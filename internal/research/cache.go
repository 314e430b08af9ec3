// Package research drives the lifecycle research pipeline: cache lookup,
// query building, orchestrated search, scoring, and estimation backfill.
package research

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lifecycle-cli/internal/model"
	"github.com/sells-group/lifecycle-cli/internal/store"
)

const (
	// freshnessWindow is how long a cache entry counts as fresh. Entries
	// older than this are still returned, flagged expired, so callers can
	// accept degraded data.
	freshnessWindow = 365 * 24 * time.Hour

	// cacheHitBoost is added to a fresh entry's confidence on lookup,
	// reflecting accumulated trust in repeatedly confirmed results.
	cacheHitBoost = 5
)

// Cache wraps the persistent store with freshness and confidence semantics.
type Cache struct {
	store store.Store
	now   func() time.Time
}

// NewCache creates a Cache over the given store.
func NewCache(st store.Store) *Cache {
	return &Cache{store: st, now: time.Now}
}

// WithNow sets a fixed clock for testing.
func (c *Cache) WithNow(now func() time.Time) *Cache {
	c.now = now
	return c
}

// Hit is a cache lookup result.
type Hit struct {
	Result     model.ResearchResult
	Estimation *model.EstimationMetadata
}

// Lookup returns the cached research result for a product, or nil on miss.
// Fresh hits get a small confidence boost and FromCache=true; stale hits are
// returned with Expired=true and no boost.
func (c *Cache) Lookup(ctx context.Context, product model.Product) (*Hit, error) {
	mfrKey, idKey := store.NormalizeKeys(product.Manufacturer, product.Identifier)

	entry, err := c.store.GetCacheEntry(ctx, mfrKey, idKey)
	if err != nil {
		return nil, eris.Wrap(err, "research: cache lookup")
	}
	if entry == nil {
		return nil, nil
	}

	age := c.now().Sub(entry.ResearchedAt)
	expired := age > freshnessWindow

	confidence := entry.Confidence
	if !expired {
		confidence = min(100, confidence+cacheHitBoost)
	}

	hit := &Hit{
		Result: model.ResearchResult{
			Dates:      entry.Dates,
			Confidence: model.Confidence{Overall: confidence, Lifecycle: confidence},
			FromCache:  true,
			Expired:    expired,
		},
	}

	if len(entry.Estimation) > 0 {
		var meta model.EstimationMetadata
		if err := json.Unmarshal(entry.Estimation, &meta); err != nil {
			zap.L().Warn("research: bad estimation blob in cache",
				zap.String("identifier", product.Identifier),
				zap.Error(err),
			)
		} else {
			hit.Estimation = &meta
		}
	}

	return hit, nil
}

// Save upserts the research result for a product. Results with no dates at
// all are not cached: an entry is only created once research has found
// something worth keeping.
func (c *Cache) Save(ctx context.Context, product model.Product, result model.ResearchResult, meta *model.EstimationMetadata) error {
	if result.Dates.CountKnown() == 0 {
		zap.L().Debug("research: skipping cache save, no dates found",
			zap.String("identifier", product.Identifier),
		)
		return nil
	}

	mfrKey, idKey := store.NormalizeKeys(product.Manufacturer, product.Identifier)

	var estimation []byte
	if meta != nil {
		b, err := json.Marshal(meta)
		if err != nil {
			return eris.Wrap(err, "research: marshal estimation metadata")
		}
		estimation = b
	}

	entry := store.CacheEntry{
		ManufacturerKey: mfrKey,
		IdentifierKey:   idKey,
		Manufacturer:    product.Manufacturer,
		Identifier:      product.Identifier,
		Dates:           result.Dates,
		Source:          sourceDescriptor(result),
		Confidence:      result.Confidence.Overall,
		Estimation:      estimation,
		ResearchedAt:    c.now().UTC(),
	}

	return eris.Wrap(c.store.UpsertCacheEntry(ctx, entry), "research: cache save")
}

// Status describes a product's cache state for batch pre-flight planning.
type Status struct {
	Cached bool `json:"cached"`
	Fresh  bool `json:"fresh"`
}

// BulkLookup reports the cache status for each product, keyed by the
// product's normalized cache key.
func (c *Cache) BulkLookup(ctx context.Context, products []model.Product) (map[string]Status, error) {
	statuses := make(map[string]Status, len(products))
	for _, p := range products {
		mfrKey, idKey := store.NormalizeKeys(p.Manufacturer, p.Identifier)
		entry, err := c.store.GetCacheEntry(ctx, mfrKey, idKey)
		if err != nil {
			return nil, eris.Wrap(err, "research: bulk lookup")
		}
		st := Status{}
		if entry != nil {
			st.Cached = true
			st.Fresh = c.now().Sub(entry.ResearchedAt) <= freshnessWindow
		}
		statuses[p.CacheKey()] = st
	}
	return statuses, nil
}

// sourceDescriptor summarizes result provenance for the cache row.
func sourceDescriptor(result model.ResearchResult) string {
	if result.SourceCounts.VendorSite == 0 && result.SourceCounts.ThirdParty == 0 {
		return "no_evidence"
	}
	return fmt.Sprintf("vendor_site=%d third_party=%d",
		result.SourceCounts.VendorSite, result.SourceCounts.ThirdParty)
}
