// Package store persists the research cache: one row per
// (manufacturer, identifier) holding the last known research result.
package store

import (
	"context"
	"strings"
	"time"

	"github.com/sells-group/lifecycle-cli/internal/model"
)

// CacheEntry is one persisted research result. ManufacturerKey and
// IdentifierKey are the normalized lookup keys; Manufacturer and Identifier
// preserve the original casing.
type CacheEntry struct {
	ManufacturerKey string               `json:"manufacturer_key"`
	IdentifierKey   string               `json:"identifier_key"`
	Manufacturer    string               `json:"manufacturer"`
	Identifier      string               `json:"identifier"`
	Dates           model.LifecycleDates `json:"dates"`
	Source          string               `json:"source,omitempty"`
	Confidence      int                  `json:"confidence"`
	Estimation      []byte               `json:"estimation,omitempty"`
	ResearchedAt    time.Time            `json:"researched_at"`
}

// Stats summarizes the cache contents.
type Stats struct {
	Total int `json:"total"`
	Stale int `json:"stale"`
}

// Store defines the persistence interface for the research cache.
type Store interface {
	// GetCacheEntry returns the entry for the normalized key pair, or nil
	// when no research has been recorded.
	GetCacheEntry(ctx context.Context, manufacturerKey, identifierKey string) (*CacheEntry, error)

	// UpsertCacheEntry inserts or overwrites the entry for its key pair.
	// Dates, confidence, and timestamp are replaced unconditionally: the
	// latest research wins.
	UpsertCacheEntry(ctx context.Context, entry CacheEntry) error

	// CacheStats counts entries, treating those researched before
	// staleBefore as stale.
	CacheStats(ctx context.Context, staleBefore time.Time) (Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// NormalizeKeys derives the lookup keys for a product: manufacturer
// lowercased, identifier trimmed and uppercased.
func NormalizeKeys(manufacturer, identifier string) (string, string) {
	return strings.ToLower(strings.TrimSpace(manufacturer)),
		strings.ToUpper(strings.TrimSpace(identifier))
}
