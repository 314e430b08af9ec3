// Package extract locates milestone dates in page text near mentions of a
// product identifier.
package extract

import (
	"strings"

	"github.com/sells-group/lifecycle-cli/internal/dateparse"
	"github.com/sells-group/lifecycle-cli/internal/model"
)

const (
	// contextWindow is the number of characters taken on each side of an
	// identifier occurrence.
	contextWindow = 1200
	// keywordRadius is how close a milestone keyword must sit to a date for
	// the date to be attributed to that keyword's field.
	keywordRadius = 100
)

// fieldKeywords maps each milestone field to the phrases that announce it in
// vendor bulletins. All matching is case-insensitive; the lists are
// hand-authored and deliberately conservative.
var fieldKeywords = map[model.Field][]string{
	model.FieldIntroduced: {
		"general availability",
		"ga date",
		"introduced",
		"release date",
		"first shipment",
		"availability date",
	},
	model.FieldEndOfSale: {
		"end-of-sale",
		"end of sale",
		"eos date",
		"last date to order",
		"last order date",
		"end-of-order",
	},
	model.FieldEndOfSwMaintenance: {
		"end of software maintenance",
		"end of sw maintenance",
		"software maintenance releases",
		"end of maintenance",
		"eosm",
	},
	model.FieldEndOfSecVulSupport: {
		"vulnerability support",
		"security support",
		"end of security updates",
		"security fixes",
	},
	model.FieldLastDayOfSupport: {
		"last date of support",
		"last day of support",
		"end-of-service life",
		"end of service life",
		"ldos",
		"eol date",
		"end-of-life",
		"end of life",
		"end of support",
	},
}

// Finding is one milestone date located in page text. The orchestrator
// stamps provenance (URL, source class) when it builds Evidence.
type Finding struct {
	Field model.Field
	Date  model.Date
}

// Extract scans page text for milestone dates in the neighborhood of the
// product identifier. It returns nothing when the identifier does not occur
// in the text at all. For each field, the first attributed date in position
// order wins; later candidates on the same page are ignored.
func Extract(pageText, identifier string) []Finding {
	id := strings.TrimSpace(identifier)
	if id == "" || pageText == "" {
		return nil
	}

	lowerText := lowerASCII(pageText)
	lowerID := lowerASCII(id)

	occurrences := findOccurrences(lowerText, lowerID)
	if len(occurrences) == 0 {
		return nil
	}

	var findings []Finding
	seen := make(map[model.Field]bool)

	for _, pos := range occurrences {
		start := max(0, pos-contextWindow)
		end := min(len(pageText), pos+len(id)+contextWindow)
		window := pageText[start:end]
		lowerWindow := lowerText[start:end]

		for _, dm := range dateparse.FindAll(window) {
			field, ok := attributeField(lowerWindow, dm.Offset, len(dm.Text))
			if !ok || seen[field] {
				continue
			}
			seen[field] = true
			findings = append(findings, Finding{Field: field, Date: dm.Date})
		}
	}

	return findings
}

// lowerASCII lowercases ASCII letters only. Unicode case folding can change
// byte length (U+212A KELVIN SIGN lowercases to a one-byte "k"), which would
// misalign offsets between the folded text and the original. Identifier and
// keyword matching is ASCII, so ASCII folding is sufficient.
func lowerASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if 'A' <= r && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// findOccurrences returns every index of needle in haystack.
func findOccurrences(haystack, needle string) []int {
	var positions []int
	offset := 0
	for {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return positions
		}
		positions = append(positions, offset+i)
		offset += i + len(needle)
	}
}

// attributeField picks the milestone field for the date span
// [dateOff, dateOff+dateLen): the field whose keyword sits nearest, within
// keywordRadius. Keywords preceding the date outrank keywords following it,
// since bulletin prose and tables lead with the milestone label. A date with
// no keyword in range is unattributed.
func attributeField(lowerWindow string, dateOff, dateLen int) (model.Field, bool) {
	type candidate struct {
		field model.Field
		dist  int
	}
	var preceding, following []candidate

	for _, field := range model.FieldOrder {
		for _, kw := range fieldKeywords[field] {
			for _, kwOff := range findOccurrences(lowerWindow, kw) {
				switch {
				case kwOff+len(kw) <= dateOff:
					if d := dateOff - (kwOff + len(kw)); d <= keywordRadius {
						preceding = append(preceding, candidate{field, d})
					}
				case dateOff+dateLen <= kwOff:
					if d := kwOff - (dateOff + dateLen); d <= keywordRadius {
						following = append(following, candidate{field, d})
					}
				}
			}
		}
	}

	pool := preceding
	if len(pool) == 0 {
		pool = following
	}
	if len(pool) == 0 {
		return "", false
	}

	best := pool[0]
	for _, c := range pool[1:] {
		if c.dist < best.dist {
			best = c
		}
	}
	return best.field, true
}
