package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lifecycle-cli/internal/model"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleEntry() CacheEntry {
	var dates model.LifecycleDates
	dates.Set(model.FieldEndOfSale, model.NewDate(2016, time.January, 24))
	dates.Set(model.FieldLastDayOfSupport, model.NewDate(2021, time.January, 31))
	return CacheEntry{
		ManufacturerKey: "cisco",
		IdentifierKey:   "WS-C3850-48P",
		Manufacturer:    "Cisco",
		Identifier:      "WS-C3850-48P",
		Dates:           dates,
		Source:          "vendor_site=2 third_party=0",
		Confidence:      64,
		Estimation:      []byte(`{"basis_field":"end_of_sale"}`),
		ResearchedAt:    time.Date(2026, time.August, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestSQLiteGetMissing(t *testing.T) {
	s := newTestSQLite(t)

	entry, err := s.GetCacheEntry(context.Background(), "cisco", "NOPE")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestSQLiteUpsertAndGet(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	want := sampleEntry()
	require.NoError(t, s.UpsertCacheEntry(ctx, want))

	got, err := s.GetCacheEntry(ctx, "cisco", "WS-C3850-48P")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, want.Manufacturer, got.Manufacturer)
	assert.Equal(t, want.Identifier, got.Identifier)
	assert.Equal(t, want.Dates, got.Dates)
	assert.Equal(t, want.Source, got.Source)
	assert.Equal(t, want.Confidence, got.Confidence)
	assert.JSONEq(t, string(want.Estimation), string(got.Estimation))
	assert.True(t, got.Dates.Introduced.IsZero(), "unset dates stay unknown")
}

func TestSQLiteUpsertReplaces(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	first := sampleEntry()
	require.NoError(t, s.UpsertCacheEntry(ctx, first))

	second := first
	second.Confidence = 90
	second.Dates.Set(model.FieldEndOfSwMaintenance, model.NewDate(2019, time.January, 24))
	second.ResearchedAt = first.ResearchedAt.Add(24 * time.Hour)
	require.NoError(t, s.UpsertCacheEntry(ctx, second))

	got, err := s.GetCacheEntry(ctx, "cisco", "WS-C3850-48P")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 90, got.Confidence)
	assert.Equal(t, model.NewDate(2019, time.January, 24), got.Dates.EndOfSwMaintenance)

	stats, err := s.CacheStats(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total, "upsert must not create a second row")
}

func TestSQLiteNilEstimation(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	entry := sampleEntry()
	entry.Estimation = nil
	require.NoError(t, s.UpsertCacheEntry(ctx, entry))

	got, err := s.GetCacheEntry(ctx, "cisco", "WS-C3850-48P")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Empty(t, got.Estimation)
}

func TestSQLiteCacheStats(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	old := sampleEntry()
	old.IdentifierKey = "OLD-1"
	old.ResearchedAt = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertCacheEntry(ctx, old))

	recent := sampleEntry()
	recent.IdentifierKey = "NEW-1"
	recent.ResearchedAt = time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.UpsertCacheEntry(ctx, recent))

	stats, err := s.CacheStats(ctx, time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Stale)
}

func TestSQLiteKeyedLookup(t *testing.T) {
	s := newTestSQLite(t)
	ctx := context.Background()

	entry := sampleEntry()
	require.NoError(t, s.UpsertCacheEntry(ctx, entry))

	// Different manufacturer key, same identifier: distinct row.
	other := sampleEntry()
	other.ManufacturerKey = "hpe"
	require.NoError(t, s.UpsertCacheEntry(ctx, other))

	got, err := s.GetCacheEntry(ctx, "hpe", "WS-C3850-48P")
	require.NoError(t, err)
	require.NotNil(t, got)

	stats, err := s.CacheStats(ctx, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
}
