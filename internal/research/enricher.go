package research

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/lifecycle-cli/internal/estimate"
	"github.com/sells-group/lifecycle-cli/internal/model"
	"github.com/sells-group/lifecycle-cli/internal/vendor"
)

// Enricher is the pipeline entry point: cache, orchestrated research, and
// estimation backfill behind one call.
type Enricher struct {
	cache *Cache
	orch  *Orchestrator
}

// NewEnricher creates an Enricher. Cache may be nil, in which case every
// call researches from scratch and nothing is persisted.
func NewEnricher(cache *Cache, orch *Orchestrator) *Enricher {
	return &Enricher{cache: cache, orch: orch}
}

// Options controls a batch enrichment call.
type Options struct {
	// UseCache gates both cache read and cache write. False forces
	// re-research and leaves the cache untouched.
	UseCache bool
}

// Enrich resolves lifecycle dates for one product: cache first, then
// orchestrated research, then estimation backfill for whatever is still
// missing. Cache faults degrade to research rather than failing the call.
func (e *Enricher) Enrich(ctx context.Context, product model.Product) (*model.EnrichedProduct, error) {
	return e.enrich(ctx, product, Options{UseCache: true})
}

// EnrichWithOptions is Enrich with explicit cache control.
func (e *Enricher) EnrichWithOptions(ctx context.Context, product model.Product, opts Options) (*model.EnrichedProduct, error) {
	return e.enrich(ctx, product, opts)
}

func (e *Enricher) enrich(ctx context.Context, product model.Product, opts Options) (*model.EnrichedProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profile := vendor.Detect(product.Manufacturer, product.Identifier)

	if opts.UseCache && e.cache != nil {
		hit, err := e.cache.Lookup(ctx, product)
		if err != nil {
			zap.L().Warn("research: cache lookup failed, researching",
				zap.String("identifier", product.Identifier),
				zap.Error(err),
			)
		} else if hit != nil {
			return e.finish(product, profile, hit.Result, hit.Estimation), nil
		}
	}

	queries := BuildQueries(product)
	result := e.orch.Run(ctx, queries, product)

	enriched := e.finish(product, profile, *result, nil)

	if opts.UseCache && e.cache != nil {
		if err := e.cache.Save(ctx, product, enriched.Result, enriched.Estimation); err != nil {
			zap.L().Warn("research: cache save failed",
				zap.String("identifier", product.Identifier),
				zap.Error(err),
			)
		}
	}

	return enriched, nil
}

// finish applies estimation backfill and the ordering validation pass.
func (e *Enricher) finish(product model.Product, profile *vendor.Profile, result model.ResearchResult, meta *model.EstimationMetadata) *model.EnrichedProduct {
	if meta == nil {
		result.Dates, meta = estimate.Estimate(result.Dates, profile)
	}

	return &model.EnrichedProduct{
		Product:            product,
		Result:             result,
		Estimation:         meta,
		OrderingViolations: estimate.ValidateOrder(result.Dates),
	}
}

// EnrichAll enriches products sequentially. One product's total failure
// degrades to a zero-confidence result; it never aborts the batch.
func (e *Enricher) EnrichAll(ctx context.Context, products []model.Product, opts Options) []model.EnrichedProduct {
	runID := uuid.New().String()
	zap.L().Info("research: batch enrichment started",
		zap.String("run_id", runID),
		zap.Int("products", len(products)),
		zap.Bool("use_cache", opts.UseCache),
	)

	enriched := make([]model.EnrichedProduct, 0, len(products))
	for _, p := range products {
		ep, err := e.enrich(ctx, p, opts)
		if err != nil {
			zap.L().Error("research: product enrichment failed",
				zap.String("run_id", runID),
				zap.String("identifier", p.Identifier),
				zap.Error(err),
			)
			enriched = append(enriched, model.EnrichedProduct{Product: p})
			continue
		}
		enriched = append(enriched, *ep)
	}

	zap.L().Info("research: batch enrichment finished",
		zap.String("run_id", runID),
		zap.Int("products", len(enriched)),
	)
	return enriched
}

// Preflight reports cache status per product before a batch run; callers
// use it to log planned cache hits and estimate external query volume.
func (e *Enricher) Preflight(ctx context.Context, products []model.Product) (map[string]Status, error) {
	if e.cache == nil {
		return map[string]Status{}, nil
	}
	return e.cache.BulkLookup(ctx, products)
}
