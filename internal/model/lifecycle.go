package model

// Field names one of the five lifecycle milestones.
type Field string

// Lifecycle milestone fields, in chronological order.
const (
	FieldIntroduced         Field = "introduced"
	FieldEndOfSale          Field = "end_of_sale"
	FieldEndOfSwMaintenance Field = "end_of_sw_maintenance"
	FieldEndOfSecVulSupport Field = "end_of_sec_vul_support"
	FieldLastDayOfSupport   Field = "last_day_of_support"
)

// FieldOrder lists the milestone fields in their required chronological order.
var FieldOrder = []Field{
	FieldIntroduced,
	FieldEndOfSale,
	FieldEndOfSwMaintenance,
	FieldEndOfSecVulSupport,
	FieldLastDayOfSupport,
}

// LifecycleDates holds the five optional milestone dates. A zero Date means
// the milestone is unknown, which is distinct from "verified not applicable".
type LifecycleDates struct {
	Introduced         Date `json:"introduced,omitzero"`
	EndOfSale          Date `json:"end_of_sale,omitzero"`
	EndOfSwMaintenance Date `json:"end_of_sw_maintenance,omitzero"`
	EndOfSecVulSupport Date `json:"end_of_sec_vul_support,omitzero"`
	LastDayOfSupport   Date `json:"last_day_of_support,omitzero"`
}

// Get returns the date for the named field.
func (l LifecycleDates) Get(f Field) Date {
	switch f {
	case FieldIntroduced:
		return l.Introduced
	case FieldEndOfSale:
		return l.EndOfSale
	case FieldEndOfSwMaintenance:
		return l.EndOfSwMaintenance
	case FieldEndOfSecVulSupport:
		return l.EndOfSecVulSupport
	case FieldLastDayOfSupport:
		return l.LastDayOfSupport
	}
	return Date{}
}

// Set assigns the date for the named field.
func (l *LifecycleDates) Set(f Field, d Date) {
	switch f {
	case FieldIntroduced:
		l.Introduced = d
	case FieldEndOfSale:
		l.EndOfSale = d
	case FieldEndOfSwMaintenance:
		l.EndOfSwMaintenance = d
	case FieldEndOfSecVulSupport:
		l.EndOfSecVulSupport = d
	case FieldLastDayOfSupport:
		l.LastDayOfSupport = d
	}
}

// Known returns the fields that currently hold a date, in chronological order.
func (l LifecycleDates) Known() []Field {
	var fields []Field
	for _, f := range FieldOrder {
		if !l.Get(f).IsZero() {
			fields = append(fields, f)
		}
	}
	return fields
}

// CountKnown returns the number of fields holding a date.
func (l LifecycleDates) CountKnown() int {
	return len(l.Known())
}

// SourceClass classifies the provenance of a piece of evidence.
type SourceClass string

const (
	// SourceVendorSite marks evidence found on a domain the vendor controls.
	SourceVendorSite SourceClass = "vendor_site"
	// SourceThirdParty marks evidence found anywhere else.
	SourceThirdParty SourceClass = "third_party"
)

// Evidence is one extracted milestone date with its provenance.
type Evidence struct {
	Field       Field       `json:"field"`
	Date        Date        `json:"date"`
	SourceURL   string      `json:"source_url"`
	SourceClass SourceClass `json:"source_class"`
}

// Confidence holds the 0-100 confidence pair for a research result.
type Confidence struct {
	Overall   int `json:"overall"`
	Lifecycle int `json:"lifecycle"`
}

// SourceCounts tallies evidence by provenance class.
type SourceCounts struct {
	VendorSite int `json:"vendor_site"`
	ThirdParty int `json:"third_party"`
}

// ResearchResult is the outcome of one research pass for a product.
//
// IsCurrentProduct is true when the run produced no milestone evidence at
// all: the product is treated as still actively sold and supported. This is
// a deliberate optimistic policy default, not a derived fact.
type ResearchResult struct {
	Dates            LifecycleDates `json:"dates"`
	Evidence         []Evidence     `json:"evidence,omitempty"`
	Confidence       Confidence     `json:"confidence"`
	IsCurrentProduct bool           `json:"is_current_product"`
	SourceCounts     SourceCounts   `json:"source_counts"`
	FromCache        bool           `json:"from_cache,omitempty"`
	Expired          bool           `json:"expired,omitempty"`
}

// EstimationMetadata records which fields the estimation engine supplied and
// from which anchor.
type EstimationMetadata struct {
	EstimatedFields      []Field `json:"estimated_fields"`
	BasisField           Field   `json:"basis_field"`
	EstimationConfidence int     `json:"estimation_confidence"`
	VendorSpecific       bool    `json:"vendor_specific"`
}

// EnrichedProduct is the final output of the pipeline: research result plus
// any estimation backfill and data-quality flags.
type EnrichedProduct struct {
	Product            Product             `json:"product"`
	Result             ResearchResult      `json:"result"`
	Estimation         *EstimationMetadata `json:"estimation,omitempty"`
	OrderingViolations []string            `json:"ordering_violations,omitempty"`
}
