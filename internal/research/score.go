package research

import "github.com/sells-group/lifecycle-cli/internal/model"

// Confidence scoring constants (0-100 scale). Vendor-site provenance
// contributes a higher base than third-party, so a vendor-backed result can
// never score below a third-party-only result with the same field coverage.
const (
	vendorBase     = 40
	thirdPartyBase = 25
	perFieldBonus  = 12

	// currentProductConfidence applies when a full run finds no milestone
	// evidence at all. The product is then treated as currently sold and
	// supported. This is the pipeline's documented optimistic policy
	// default: an under-documented but genuinely end-of-life product will
	// be misread as current, and the caller accepts that trade.
	currentProductConfidence = 100
)

// Score derives the confidence pair from provenance and coverage, and sets
// IsCurrentProduct on zero-evidence results.
func Score(result *model.ResearchResult) {
	found := result.Dates.CountKnown()

	if len(result.Evidence) == 0 && found == 0 {
		result.IsCurrentProduct = true
		result.Confidence = model.Confidence{
			Overall:   currentProductConfidence,
			Lifecycle: 0,
		}
		return
	}

	base := thirdPartyBase
	if result.SourceCounts.VendorSite > 0 {
		base = vendorBase
	}

	result.Confidence = model.Confidence{
		Overall:   min(100, base+perFieldBonus*found),
		Lifecycle: min(100, 20*found),
	}
}
