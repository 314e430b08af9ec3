// Package verify confirms that extracted evidence actually concerns the
// queried product, handling identifier variants and explicit exclusions.
package verify

import "strings"

// exclusionRadius bounds how far from an identifier match an exclusion
// phrase still disqualifies the page.
const exclusionRadius = 120

// Vendor bulletins often scope a notice with language like "excludes
// WS-C3850-48P"; a textual match inside such a clause is evidence the
// product is NOT covered.
var exclusionPhrases = []string{
	"not applicable to",
	"excludes",
	"except for",
	"does not apply to",
}

// Verify reports whether the page text concerns the given product. It
// matches the identifier and its variants (core part without manufacturer
// prefix/suffix, hyphens substituted with spaces) and rejects matches that
// sit inside explicit-exclusion language.
func Verify(pageText, identifier string) bool {
	id := strings.TrimSpace(identifier)
	if id == "" || pageText == "" {
		return false
	}

	lowerText := strings.ToLower(pageText)

	matched := false
	for _, variant := range Variants(id) {
		for _, pos := range findOccurrences(lowerText, strings.ToLower(variant)) {
			if excludedAt(lowerText, pos) {
				return false
			}
			matched = true
		}
	}

	return matched
}

// Variants returns the identifier forms accepted as a product mention:
// the identifier itself, the form with prefix dropped, the bare core part,
// and each with spaces substituted for hyphens. EOL bulletins frequently
// drop manufacturer prefixes and configuration suffixes when listing
// affected models.
func Variants(identifier string) []string {
	var variants []string
	add := func(v string) {
		v = strings.TrimSpace(v)
		if v == "" || len(v) < 3 {
			return
		}
		for _, existing := range variants {
			if strings.EqualFold(existing, v) {
				return
			}
		}
		variants = append(variants, v)
	}

	add(identifier)

	parts := strings.Split(identifier, "-")
	if len(parts) >= 2 {
		// Drop the manufacturer-style prefix: WS-C3850-48P -> C3850-48P.
		add(strings.Join(parts[1:], "-"))
	}
	if len(parts) >= 3 {
		// Core part alone: WS-C3850-48P -> C3850.
		add(parts[1])
	}

	// Hyphens as spaces, for prose mentions ("Catalyst 3850 48P").
	for _, v := range append([]string{}, variants...) {
		if strings.Contains(v, "-") {
			add(strings.ReplaceAll(v, "-", " "))
		}
	}

	return variants
}

// excludedAt reports whether an exclusion phrase appears shortly before the
// identifier occurrence at pos.
func excludedAt(lowerText string, pos int) bool {
	start := max(0, pos-exclusionRadius)
	preceding := lowerText[start:pos]
	for _, phrase := range exclusionPhrases {
		if strings.Contains(preceding, phrase) {
			return true
		}
	}
	return false
}

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
