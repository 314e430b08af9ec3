// Package estimate backfills missing lifecycle milestones from whichever
// anchor date research produced, using vendor-aware year intervals.
package estimate

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/lifecycle-cli/internal/model"
	"github.com/sells-group/lifecycle-cli/internal/vendor"
)

// anchorPriority lists the fields tried as estimation anchors, most
// trustworthy first. End-of-sale is the date vendors publish most reliably.
var anchorPriority = []model.Field{
	model.FieldEndOfSale,
	model.FieldLastDayOfSupport,
	model.FieldEndOfSwMaintenance,
	model.FieldEndOfSecVulSupport,
}

const (
	baseConfidence   = 60
	vendorConfidence = 70
)

// Estimate fills milestone dates still missing after research, anchored on
// the highest-priority known date. Introduced is never estimated: the
// interval table only relates end-of-sale to the later milestones. Known
// fields are never overwritten. Returns the input unchanged with nil
// metadata when no anchor date is known.
func Estimate(dates model.LifecycleDates, profile *vendor.Profile) (model.LifecycleDates, *model.EstimationMetadata) {
	var anchor model.Field
	for _, f := range anchorPriority {
		if !dates.Get(f).IsZero() {
			anchor = f
			break
		}
	}
	if anchor == "" {
		return dates, nil
	}

	offsets, vendorSpecific := profile.EffectiveOffsets()

	// Year offsets measured from end-of-sale; deltas between any two fields
	// follow by subtraction, so the table inverts cleanly when anchoring
	// from a later field.
	fromEndOfSale := map[model.Field]int{
		model.FieldEndOfSale:          0,
		model.FieldEndOfSwMaintenance: offsets.SwMaintenanceYears,
		model.FieldEndOfSecVulSupport: offsets.SecVulYears,
		model.FieldLastDayOfSupport:   offsets.SupportYears,
	}

	anchorDate := dates.Get(anchor)
	filled := dates
	var estimated []model.Field

	for _, f := range anchorPriority {
		if f == anchor || !filled.Get(f).IsZero() {
			continue
		}
		delta := fromEndOfSale[f] - fromEndOfSale[anchor]
		filled.Set(f, anchorDate.AddYears(delta))
		estimated = append(estimated, f)
	}

	if len(estimated) == 0 {
		return dates, nil
	}

	// Keep reported order chronological rather than anchor-priority order.
	ordered := make([]model.Field, 0, len(estimated))
	for _, f := range model.FieldOrder {
		for _, e := range estimated {
			if e == f {
				ordered = append(ordered, f)
			}
		}
	}

	confidence := baseConfidence
	if vendorSpecific {
		confidence = vendorConfidence
	}

	zap.L().Debug("estimate: backfilled lifecycle dates",
		zap.String("anchor", string(anchor)),
		zap.Int("estimated_fields", len(ordered)),
		zap.Bool("vendor_specific", vendorSpecific),
	)

	return filled, &model.EstimationMetadata{
		EstimatedFields:      ordered,
		BasisField:           anchor,
		EstimationConfidence: confidence,
		VendorSpecific:       vendorSpecific,
	}
}

// ValidateOrder checks the chronological invariant
// introduced <= endOfSale <= endOfSwMaintenance <= endOfSecVulSupport <= lastDayOfSupport
// over the known fields and returns a description of each violated pair.
// An inconsistency is a reportable condition; the engine never guesses a
// corrected value.
func ValidateOrder(dates model.LifecycleDates) []string {
	var violations []string

	prevField := model.Field("")
	prevDate := model.Date{}
	for _, f := range model.FieldOrder {
		d := dates.Get(f)
		if d.IsZero() {
			continue
		}
		if prevField != "" && prevDate.After(d) {
			violations = append(violations, fmt.Sprintf(
				"%s (%s) is after %s (%s)", prevField, prevDate, f, d,
			))
		}
		prevField = f
		prevDate = d
	}

	return violations
}
