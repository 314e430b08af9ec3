package model

import "strings"

// Product is the identity input for one enrichment call. Identifier is the
// primary correlation key (vendor part or model number); Manufacturer is free
// text and may be empty.
type Product struct {
	Manufacturer string `json:"manufacturer"`
	Identifier   string `json:"identifier"`
	Description  string `json:"description,omitempty"`
	Category     string `json:"category,omitempty"`
}

// CacheKey returns the normalized (manufacturer, identifier) key used by the
// research cache: manufacturer lowercased, identifier trimmed and uppercased.
// Original casing is preserved only in storage, never in the key.
func (p Product) CacheKey() string {
	return strings.ToLower(strings.TrimSpace(p.Manufacturer)) + "|" +
		strings.ToUpper(strings.TrimSpace(p.Identifier))
}
