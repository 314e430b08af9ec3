package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lifecycle-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS research_cache (
	manufacturer_key       TEXT NOT NULL,
	identifier_key         TEXT NOT NULL,
	manufacturer           TEXT NOT NULL DEFAULT '',
	identifier             TEXT NOT NULL DEFAULT '',
	introduced             TEXT,
	end_of_sale            TEXT,
	end_of_sw_maintenance  TEXT,
	end_of_sec_vul_support TEXT,
	last_day_of_support    TEXT,
	source                 TEXT NOT NULL DEFAULT '',
	confidence             INTEGER NOT NULL DEFAULT 0,
	estimation             TEXT,
	researched_at          DATETIME NOT NULL,
	PRIMARY KEY (manufacturer_key, identifier_key)
);

CREATE INDEX IF NOT EXISTS idx_research_cache_researched_at ON research_cache(researched_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetCacheEntry(ctx context.Context, manufacturerKey, identifierKey string) (*CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT manufacturer_key, identifier_key, manufacturer, identifier,
		        introduced, end_of_sale, end_of_sw_maintenance, end_of_sec_vul_support, last_day_of_support,
		        source, confidence, estimation, researched_at
		 FROM research_cache
		 WHERE manufacturer_key = ? AND identifier_key = ?`,
		manufacturerKey, identifierKey,
	)

	entry, err := scanCacheEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cache entry")
	}
	return entry, nil
}

func (s *SQLiteStore) UpsertCacheEntry(ctx context.Context, entry CacheEntry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO research_cache (
			manufacturer_key, identifier_key, manufacturer, identifier,
			introduced, end_of_sale, end_of_sw_maintenance, end_of_sec_vul_support, last_day_of_support,
			source, confidence, estimation, researched_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (manufacturer_key, identifier_key) DO UPDATE SET
			manufacturer = excluded.manufacturer,
			identifier = excluded.identifier,
			introduced = excluded.introduced,
			end_of_sale = excluded.end_of_sale,
			end_of_sw_maintenance = excluded.end_of_sw_maintenance,
			end_of_sec_vul_support = excluded.end_of_sec_vul_support,
			last_day_of_support = excluded.last_day_of_support,
			source = excluded.source,
			confidence = excluded.confidence,
			estimation = excluded.estimation,
			researched_at = excluded.researched_at`,
		entry.ManufacturerKey, entry.IdentifierKey, entry.Manufacturer, entry.Identifier,
		dateArg(entry.Dates.Introduced), dateArg(entry.Dates.EndOfSale),
		dateArg(entry.Dates.EndOfSwMaintenance), dateArg(entry.Dates.EndOfSecVulSupport),
		dateArg(entry.Dates.LastDayOfSupport),
		entry.Source, entry.Confidence, nullBytes(entry.Estimation), entry.ResearchedAt.UTC(),
	)
	return eris.Wrap(err, "sqlite: upsert cache entry")
}

func (s *SQLiteStore) CacheStats(ctx context.Context, staleBefore time.Time) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN researched_at < ? THEN 1 ELSE 0 END), 0)
		 FROM research_cache`,
		staleBefore.UTC(),
	).Scan(&st.Total, &st.Stale)
	return st, eris.Wrap(err, "sqlite: cache stats")
}

// helpers shared with the postgres backend

type scannable interface {
	Scan(dest ...any) error
}

func scanCacheEntry(row scannable) (*CacheEntry, error) {
	var e CacheEntry
	var intro, eos, eosm, esv, ldos sql.NullString
	var estimation sql.NullString

	err := row.Scan(
		&e.ManufacturerKey, &e.IdentifierKey, &e.Manufacturer, &e.Identifier,
		&intro, &eos, &eosm, &esv, &ldos,
		&e.Source, &e.Confidence, &estimation, &e.ResearchedAt,
	)
	if err != nil {
		return nil, err
	}

	e.Dates.Introduced = dateFromNull(intro)
	e.Dates.EndOfSale = dateFromNull(eos)
	e.Dates.EndOfSwMaintenance = dateFromNull(eosm)
	e.Dates.EndOfSecVulSupport = dateFromNull(esv)
	e.Dates.LastDayOfSupport = dateFromNull(ldos)
	if estimation.Valid {
		e.Estimation = []byte(estimation.String)
	}
	return &e, nil
}

// dateArg converts a Date to its ISO text form, or NULL when unknown.
func dateArg(d model.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

func dateFromNull(ns sql.NullString) model.Date {
	if !ns.Valid || ns.String == "" {
		return model.Date{}
	}
	var d model.Date
	if err := d.UnmarshalText([]byte(ns.String)); err != nil {
		return model.Date{}
	}
	return d
}

func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
