package research

import (
	"fmt"
	"strings"

	"github.com/sells-group/lifecycle-cli/internal/model"
	"github.com/sells-group/lifecycle-cli/internal/vendor"
)

// maxQueries caps the query set per product to bound downstream cost.
const maxQueries = 12

// Query is one planned web search.
type Query struct {
	Text string
	// SiteFilter restricts the search to a domain when non-empty.
	SiteFilter string
	// Vendor marks queries targeted at the recognized vendor's own site.
	Vendor bool
}

// BuildQueries produces the prioritized query set for a product:
// vendor-domain-restricted queries first when the vendor is recognized, then
// generic milestone-keyword queries, then gap-filling queries for the fields
// hardest to find in the wild (security-vulnerability support end dates).
func BuildQueries(product model.Product) []Query {
	id := strings.TrimSpace(product.Identifier)
	if id == "" {
		return nil
	}

	var queries []Query

	if profile := vendor.Detect(product.Manufacturer, product.Identifier); profile != nil {
		queries = append(queries,
			Query{Text: fmt.Sprintf("%s end-of-life announcement", id), SiteFilter: profile.SearchDomain, Vendor: true},
			Query{Text: fmt.Sprintf("%s end-of-sale notice", id), SiteFilter: profile.SearchDomain, Vendor: true},
			Query{Text: fmt.Sprintf("%s lifecycle milestone dates", id), SiteFilter: profile.SearchDomain, Vendor: true},
		)
	}

	queries = append(queries,
		Query{Text: fmt.Sprintf(`"%s" "End-of-Sale"`, id)},
		Query{Text: fmt.Sprintf(`"%s" "End-of-Life"`, id)},
		Query{Text: fmt.Sprintf(`"%s" "Last Date of Support"`, id)},
	)
	if mfr := strings.TrimSpace(product.Manufacturer); mfr != "" {
		queries = append(queries, Query{Text: fmt.Sprintf("%s %s end of life announcement", mfr, id)})
	}

	// Security-support end dates are the fields vendors bury deepest.
	queries = append(queries,
		Query{Text: fmt.Sprintf(`"%s" "vulnerability support" end date`, id)},
		Query{Text: fmt.Sprintf(`"%s" end of security updates`, id)},
	)

	if len(queries) > maxQueries {
		queries = queries[:maxQueries]
	}
	return queries
}
