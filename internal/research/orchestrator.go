package research

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sells-group/lifecycle-cli/internal/extract"
	"github.com/sells-group/lifecycle-cli/internal/model"
	"github.com/sells-group/lifecycle-cli/internal/vendor"
	"github.com/sells-group/lifecycle-cli/internal/verify"
	"github.com/sells-group/lifecycle-cli/pkg/brave"
)

// PageFetcher retrieves visible page text for authorized URLs.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, bool)
}

// OrchestratorConfig tunes batching and timeouts.
type OrchestratorConfig struct {
	// BatchSize is the bounded concurrency limit per batch.
	BatchSize int
	// PerQueryTimeout bounds each search+fetch+extract query slot.
	PerQueryTimeout time.Duration
	// BatchInterval is the minimum delay between batch starts, honoring the
	// shared external rate limit.
	BatchInterval time.Duration
	// ResultCap limits search results consumed per query.
	ResultCap int
}

// DefaultOrchestratorConfig returns the standard tuning.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		BatchSize:       3,
		PerQueryTimeout: 30 * time.Second,
		BatchInterval:   2 * time.Second,
		ResultCap:       5,
	}
}

// Orchestrator executes a product's query plan against the web search
// capability in rate-limited, bounded-concurrency batches.
type Orchestrator struct {
	search  brave.Client
	fetcher PageFetcher
	cfg     OrchestratorConfig
	limiter *rate.Limiter
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(search brave.Client, fetcher PageFetcher, cfg OrchestratorConfig) *Orchestrator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if cfg.PerQueryTimeout <= 0 {
		cfg.PerQueryTimeout = 30 * time.Second
	}
	if cfg.ResultCap <= 0 {
		cfg.ResultCap = 5
	}
	var limiter *rate.Limiter
	if cfg.BatchInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(cfg.BatchInterval), 1)
	}
	return &Orchestrator{
		search:  search,
		fetcher: fetcher,
		cfg:     cfg,
		limiter: limiter,
	}
}

// Run executes queries in batches and merges the evidence into a scored
// ResearchResult. Individual query failures are isolated to their slot and
// never fail the run. Early exit happens only at batch boundaries: once two
// milestone dates are held and at least one is vendor-sourced, remaining
// queries are skipped.
func (o *Orchestrator) Run(ctx context.Context, queries []Query, product model.Product) *model.ResearchResult {
	profile := vendor.Detect(product.Manufacturer, product.Identifier)

	m := newMerger()
	seen := newURLSet()

	for start := 0; start < len(queries); start += o.cfg.BatchSize {
		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				break
			}
		}

		end := min(start+o.cfg.BatchSize, len(queries))
		batch := queries[start:end]

		// One evidence slice per query slot; merged in slot order after the
		// batch completes so arrival order can't affect the outcome.
		slots := make([][]model.Evidence, len(batch))

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.BatchSize)
		for i, q := range batch {
			g.Go(func() error {
				slots[i] = o.runQuery(gCtx, q, product, profile, seen)
				return nil
			})
		}
		_ = g.Wait()

		for _, evidence := range slots {
			m.add(evidence)
		}

		if m.dateCount() >= 2 && m.vendorCount() > 0 {
			zap.L().Debug("research: early exit, sufficient vendor evidence",
				zap.String("identifier", product.Identifier),
				zap.Int("queries_skipped", len(queries)-end),
			)
			break
		}
	}

	result := m.result()
	Score(result)
	return result
}

// runQuery executes one query slot: search, then fetch/extract/verify each
// authorized result page. Failures log and yield nothing.
func (o *Orchestrator) runQuery(ctx context.Context, q Query, product model.Product, profile *vendor.Profile, seen *urlSet) []model.Evidence {
	qCtx, cancel := context.WithTimeout(ctx, o.cfg.PerQueryTimeout)
	defer cancel()

	opts := []brave.SearchOption{brave.WithCount(o.cfg.ResultCap)}
	if q.SiteFilter != "" {
		opts = append(opts, brave.WithSiteFilter(q.SiteFilter))
	}

	resp, err := o.search.Search(qCtx, q.Text, opts...)
	if err != nil {
		zap.L().Warn("research: search query failed",
			zap.String("query", q.Text),
			zap.Error(err),
		)
		return nil
	}

	var evidence []model.Evidence
	for _, r := range resp.Web.Results {
		if !vendor.AuthorizedURL(r.URL) {
			continue
		}
		if !seen.claim(r.URL) {
			continue
		}

		text, ok := o.fetcher.Fetch(qCtx, r.URL)
		if !ok {
			continue
		}

		findings := extract.Extract(text, product.Identifier)
		if len(findings) == 0 {
			continue
		}
		if !verify.Verify(text, product.Identifier) {
			zap.L().Debug("research: page failed product verification",
				zap.String("url", r.URL),
				zap.String("identifier", product.Identifier),
			)
			continue
		}

		class := model.SourceThirdParty
		if vendor.IsVendorURL(profile, r.URL) {
			class = model.SourceVendorSite
		}
		for _, f := range findings {
			evidence = append(evidence, model.Evidence{
				Field:       f.Field,
				Date:        f.Date,
				SourceURL:   r.URL,
				SourceClass: class,
			})
		}
	}
	return evidence
}

// urlSet is the per-run URL dedup set; append-only for the run's duration.
type urlSet struct {
	mu   sync.Mutex
	seen map[string]bool
}

func newURLSet() *urlSet {
	return &urlSet{seen: make(map[string]bool)}
}

// claim returns true the first time a URL is presented.
func (s *urlSet) claim(url string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.seen[url] {
		return false
	}
	s.seen[url] = true
	return true
}

// merger applies the first-found-wins, vendor-over-third-party merge policy.
// A vendor-site evidence already held for a field is never replaced; a
// third-party evidence is displaced when vendor evidence for the same field
// arrives, regardless of arrival order.
type merger struct {
	held map[model.Field]model.Evidence
}

func newMerger() *merger {
	return &merger{held: make(map[model.Field]model.Evidence)}
}

func (m *merger) add(evidence []model.Evidence) {
	// Vendor evidence first so it wins ties within one batch.
	for _, e := range evidence {
		if e.SourceClass == model.SourceVendorSite {
			m.consider(e)
		}
	}
	for _, e := range evidence {
		if e.SourceClass == model.SourceThirdParty {
			m.consider(e)
		}
	}
}

func (m *merger) consider(e model.Evidence) {
	current, ok := m.held[e.Field]
	if !ok {
		m.held[e.Field] = e
		return
	}
	if current.SourceClass == model.SourceThirdParty && e.SourceClass == model.SourceVendorSite {
		m.held[e.Field] = e
	}
}

func (m *merger) dateCount() int {
	return len(m.held)
}

func (m *merger) vendorCount() int {
	n := 0
	for _, e := range m.held {
		if e.SourceClass == model.SourceVendorSite {
			n++
		}
	}
	return n
}

func (m *merger) result() *model.ResearchResult {
	result := &model.ResearchResult{}
	for _, f := range model.FieldOrder {
		e, ok := m.held[f]
		if !ok {
			continue
		}
		result.Dates.Set(f, e.Date)
		result.Evidence = append(result.Evidence, e)
		if e.SourceClass == model.SourceVendorSite {
			result.SourceCounts.VendorSite++
		} else {
			result.SourceCounts.ThirdParty++
		}
	}
	return result
}
